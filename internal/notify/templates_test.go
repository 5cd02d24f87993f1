package notify

import (
	"testing"

	"github.com/opuslog/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderVerboseSubstitutesPayloadKeys(t *testing.T) {
	data := map[string]interface{}{
		"actor_handler": "ada",
		"old_subject":   "Drafts",
		"acted_on":      "Final Drafts",
	}
	got, err := RenderVerbose(models.KindUpdateThread, models.TemplateSingle, data, 0)
	require.NoError(t, err)
	assert.Equal(t, "'ada' edited the Thread of subject 'Drafts' to 'Final Drafts'", got)
}

func TestRenderVerboseManyUsesCounter(t *testing.T) {
	data := map[string]interface{}{
		"actor_handler": "ada",
		"acted_on":      "First Light",
	}
	got, err := RenderVerbose(models.KindUpVoteWriteUp, models.TemplateMany, data, 4)
	require.NoError(t, err)
	assert.Equal(t, "ada and 4 others up voted your creation First Light", got)
}

func TestRenderVerboseUnknownKindOrKey(t *testing.T) {
	_, err := RenderVerbose("XX", models.TemplateSingle, nil, 0)
	assert.Error(t, err)

	// Replies never aggregate into an internal-publication feed entry.
	_, err = RenderVerbose(models.KindCommentReply, models.TemplateInternalPublication, nil, 0)
	assert.Error(t, err)
}

func TestHasTemplate(t *testing.T) {
	assert.True(t, HasTemplate(models.KindComment, models.TemplateMany))
	assert.False(t, HasTemplate(models.KindNewThread, models.TemplateSingle))
	assert.True(t, HasTemplate(models.KindRequest, models.ActionAddWriteUpContributor))
	assert.False(t, HasTemplate("XX", models.TemplateSingle))
}
