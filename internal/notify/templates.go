package notify

import (
	"fmt"

	"github.com/opuslog/backend/internal/models"
)

// templateArg names one positional argument of a display template: either a
// key into the notification's data payload, or the aggregation counter.
type templateArg struct {
	key   string
	count bool
}

func dataArg(key string) templateArg { return templateArg{key: key} }
func countArg() templateArg          { return templateArg{count: true} }

type displayTemplate struct {
	template string
	args     []templateArg
}

// displayDetails maps notification kind -> template key -> template. The kind
// codes and wording are synchronized with the frontend; the "many" variants
// render the aggregated form ("X and N others ...").
var displayDetails = map[string]map[string]displayTemplate{
	models.KindComment: {
		models.TemplateSingle: {
			template: "%v commented on your creation %v",
			args:     []templateArg{dataArg("actor_handler"), dataArg("acted_on")},
		},
		models.TemplateMany: {
			template: "%v and %v others commented on your creation %v",
			args:     []templateArg{dataArg("actor_handler"), countArg(), dataArg("acted_on")},
		},
		models.TemplateInternalPublication: {
			template: "'%v' of Publication '%v' commented on creation '%v'",
			args:     []templateArg{dataArg("contributor"), dataArg("actor_handler"), dataArg("acted_on")},
		},
	},
	models.KindCommentReply: {
		models.TemplateSingle: {
			template: "%v replied to your comment on %v",
			args:     []templateArg{dataArg("actor_handler"), dataArg("acted_on")},
		},
		models.TemplateMany: {
			template: "%v and %v others replied to your comment on %v",
			args:     []templateArg{dataArg("actor_handler"), countArg(), dataArg("acted_on")},
		},
	},
	models.KindCommentTagged: {
		models.TemplateSingle: {
			template: "%v tagged you in a comment on %v",
			args:     []templateArg{dataArg("actor_handler"), dataArg("acted_on")},
		},
	},
	models.KindUpVoteComment: {
		models.TemplateSingle: {
			template: "%v up voted your comment on %v",
			args:     []templateArg{dataArg("actor_handler"), dataArg("acted_on")},
		},
		models.TemplateMany: {
			template: "%v and %v others up voted your comment on %v",
			args:     []templateArg{dataArg("actor_handler"), countArg(), dataArg("acted_on")},
		},
	},
	models.KindDownVoteComment: {
		models.TemplateSingle: {
			template: "%v down voted your comment on %v",
			args:     []templateArg{dataArg("actor_handler"), dataArg("acted_on")},
		},
		models.TemplateMany: {
			template: "%v and %v others down voted your comment on %v",
			args:     []templateArg{dataArg("actor_handler"), countArg(), dataArg("acted_on")},
		},
	},
	models.KindSubscribe: {
		models.TemplateSingle: {
			template: "%v subscribed to your %v",
			args:     []templateArg{dataArg("actor_handler"), dataArg("suffix")},
		},
		models.TemplateMany: {
			template: "%v and %v others subscribed to your %v",
			args:     []templateArg{dataArg("actor_handler"), countArg(), dataArg("suffix")},
		},
	},
	models.KindUnsubscribe: {
		models.TemplateSingle: {
			template: "%v unsubscribed from your %v",
			args:     []templateArg{dataArg("actor_handler"), dataArg("suffix")},
		},
		models.TemplateMany: {
			template: "%v and %v others unsubscribed from your %v",
			args:     []templateArg{dataArg("actor_handler"), countArg(), dataArg("suffix")},
		},
	},
	models.KindUpVoteWriteUp: {
		models.TemplateSingle: {
			template: "%v up voted your creation %v",
			args:     []templateArg{dataArg("actor_handler"), dataArg("acted_on")},
		},
		models.TemplateMany: {
			template: "%v and %v others up voted your creation %v",
			args:     []templateArg{dataArg("actor_handler"), countArg(), dataArg("acted_on")},
		},
	},
	models.KindDownVoteWriteUp: {
		models.TemplateSingle: {
			template: "%v down voted your creation %v",
			args:     []templateArg{dataArg("actor_handler"), dataArg("acted_on")},
		},
		models.TemplateMany: {
			template: "%v and %v others down voted your creation %v",
			args:     []templateArg{dataArg("actor_handler"), countArg(), dataArg("acted_on")},
		},
	},
	models.KindNewThread: {
		models.TemplateInternalPublication: {
			template: "'%v' of Publication '%v' created a new Thread of subject '%v'",
			args:     []templateArg{dataArg("contributor"), dataArg("actor_handler"), dataArg("acted_on")},
		},
	},
	models.KindUpdateThread: {
		models.TemplateSingle: {
			template: "'%v' edited the Thread of subject '%v' to '%v'",
			args:     []templateArg{dataArg("actor_handler"), dataArg("old_subject"), dataArg("acted_on")},
		},
		models.TemplateInternalPublication: {
			template: "'%v' of Publication '%v' edited the Thread of subject '%v' to '%v'",
			args:     []templateArg{dataArg("contributor"), dataArg("actor_handler"), dataArg("old_subject"), dataArg("acted_on")},
		},
	},
	models.KindRequest: {
		models.TemplateAddThreadMember: {
			template: "'%v' sent a request to add you on Thread '%v'",
			args:     []templateArg{dataArg("actor_handler"), dataArg("acted_on")},
		},
		models.TemplateAddThreadMemberPub: {
			template: "'%v' of Publication '%v' sent a request to add '%v' on Thread '%v'",
			args:     []templateArg{dataArg("contributor"), dataArg("actor_handler"), dataArg("user_handler"), dataArg("acted_on")},
		},
		models.ActionAddPublicationContrib: {
			template: "'%v' invited you to contribute on Publication '%v'",
			args:     []templateArg{dataArg("actor_handler"), dataArg("acted_on")},
		},
		models.ActionAddWriteUpContributor: {
			template: "'%v' invited you to contribute on '%v'",
			args:     []templateArg{dataArg("actor_handler"), dataArg("acted_on")},
		},
	},
	models.KindRemoveMember: {
		models.TemplateDirectedTo: {
			template: "'%v' removed you from Thread '%v'",
			args:     []templateArg{dataArg("actor_handler"), dataArg("acted_on")},
		},
		models.TemplateSingle: {
			template: "'%v' removed '%v' from Thread '%v'",
			args:     []templateArg{dataArg("actor_handler"), dataArg("acted_on_user"), dataArg("acted_on")},
		},
		models.TemplateInternalPublication: {
			template: "'%v' of Publication '%v' removed %v from Thread '%v'",
			args:     []templateArg{dataArg("contributor"), dataArg("actor_handler"), dataArg("acted_on_user"), dataArg("acted_on")},
		},
	},
	models.KindNewMessage: {
		models.TemplateSingle: {
			template: "'%v' sent a message on thread '%v'",
			args:     []templateArg{dataArg("actor_handler"), dataArg("acted_on")},
		},
		models.TemplateMany: {
			template: "%v and %v others sent a message on thread %v",
			args:     []templateArg{dataArg("actor_handler"), countArg(), dataArg("acted_on")},
		},
		models.TemplateInternalPublication: {
			template: "'%v' of Publication '%v' sent a message on thread '%v'",
			args:     []templateArg{dataArg("contributor"), dataArg("actor_handler"), dataArg("acted_on")},
		},
	},
}

// RenderVerbose builds the human-readable string for a notification from its
// kind, template key, payload and aggregation counter.
func RenderVerbose(kind, templateKey string, data map[string]interface{}, count int) (string, error) {
	byKind, ok := displayDetails[kind]
	if !ok {
		return "", fmt.Errorf("no display templates for notification kind %q", kind)
	}
	tmpl, ok := byKind[templateKey]
	if !ok {
		return "", fmt.Errorf("no %q template for notification kind %q", templateKey, kind)
	}
	args := make([]interface{}, 0, len(tmpl.args))
	for _, arg := range tmpl.args {
		if arg.count {
			args = append(args, count)
			continue
		}
		args = append(args, data[arg.key])
	}
	return fmt.Sprintf(tmpl.template, args...), nil
}

// HasTemplate reports whether a kind defines the given template key.
func HasTemplate(kind, templateKey string) bool {
	byKind, ok := displayDetails[kind]
	if !ok {
		return false
	}
	_, ok = byKind[templateKey]
	return ok
}
