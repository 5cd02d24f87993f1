package models

// Actor kinds as persisted in (actor_type, actor_id) column pairs.
const (
	ActorUser        = "user"
	ActorPublication = "publication"
)

// Actor is the entity performing an action: either a plain user, or a
// publication acting through one of its contributors. Exactly one of the two
// shapes is populated. It is resolved once per request and passed explicitly;
// engagement and notification rows reference it as a (type, id) pair.
type Actor struct {
	User        *User
	Contributor *ContributorList
}

func UserActor(u *User) Actor {
	return Actor{User: u}
}

func PublicationActor(cl *ContributorList) Actor {
	return Actor{Contributor: cl}
}

func (a Actor) IsPublication() bool {
	return a.Contributor != nil
}

// Type reports the persisted actor kind.
func (a Actor) Type() string {
	if a.IsPublication() {
		return ActorPublication
	}
	return ActorUser
}

// ID is the id of the acting entity: the publication for contributor actions,
// the user otherwise.
func (a Actor) ID() uint {
	if a.IsPublication() {
		return a.Contributor.PublicationID
	}
	return a.User.ID
}

// Handler is the public handle shown as "who did this".
func (a Actor) Handler() string {
	if a.IsPublication() {
		return a.Contributor.Publication.Handler
	}
	return a.User.Handler
}

func (a Actor) DisplayName() string {
	if a.IsPublication() {
		return a.Contributor.Publication.Name
	}
	return a.User.Name
}

// ActingUser is the human behind the action regardless of actor kind.
func (a Actor) ActingUser() *User {
	if a.IsPublication() {
		return a.Contributor.Contributor
	}
	return a.User
}
