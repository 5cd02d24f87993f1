package repositories

import (
	"testing"

	"github.com/opuslog/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertWriteUpVote(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostgresVoteRepository(db)

	voter := createTestUser(t, db, "voter")
	owner := createTestUser(t, db, "owner")
	writeUp := createTestWriteUp(t, db, owner, "First Article")
	actor := models.UserActor(voter)

	// First vote creates the row.
	change, err := repo.UpsertWriteUpVote(actor, writeUp.ID, boolPtr(true))
	require.NoError(t, err)
	assert.True(t, change.Created)
	assert.True(t, change.Changed)

	// Same vote again is a no-op.
	change, err = repo.UpsertWriteUpVote(actor, writeUp.ID, boolPtr(true))
	require.NoError(t, err)
	assert.False(t, change.Changed)
	require.NotNil(t, change.Previous)
	assert.True(t, *change.Previous)

	// Flipping to a down vote changes the stored value.
	change, err = repo.UpsertWriteUpVote(actor, writeUp.ID, boolPtr(false))
	require.NoError(t, err)
	assert.True(t, change.Changed)
	require.NotNil(t, change.Previous)
	assert.True(t, *change.Previous)

	// Retracting sets the value to nil but keeps the row.
	change, err = repo.UpsertWriteUpVote(actor, writeUp.ID, nil)
	require.NoError(t, err)
	assert.True(t, change.Changed)

	vote, err := repo.GetWriteUpVote(actor, writeUp.ID)
	require.NoError(t, err)
	assert.Nil(t, vote.VoteType)

	// Retracting an already retracted vote is silent.
	change, err = repo.UpsertWriteUpVote(actor, writeUp.ID, nil)
	require.NoError(t, err)
	assert.False(t, change.Changed)

	// Exactly one row for the (actor, write-up) pair throughout.
	var count int64
	require.NoError(t, db.Model(&models.VoteWriteUp{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestUpsertCommentVote(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostgresVoteRepository(db)

	voter := createTestUser(t, db, "voter")
	owner := createTestUser(t, db, "owner")
	writeUp := createTestWriteUp(t, db, owner, "First Article")
	comment := &models.Comment{
		WriteUpID: writeUp.ID,
		ActorType: models.ActorUser,
		ActorID:   owner.ID,
		Body:      "a comment",
	}
	require.NoError(t, db.Create(comment).Error)

	actor := models.UserActor(voter)

	change, err := repo.UpsertCommentVote(actor, comment.ID, boolPtr(false))
	require.NoError(t, err)
	assert.True(t, change.Created)
	assert.True(t, change.Changed)

	change, err = repo.UpsertCommentVote(actor, comment.ID, boolPtr(false))
	require.NoError(t, err)
	assert.False(t, change.Changed)
}

func TestVoteAsPublicationRecordsActingUser(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostgresVoteRepository(db)

	member := createTestUser(t, db, "member")
	owner := createTestUser(t, db, "owner")
	writeUp := createTestWriteUp(t, db, owner, "First Article")

	pub := &models.Publication{Name: "The Quill", Handler: "quill", CreatorID: member.ID}
	require.NoError(t, db.Create(pub).Error)
	cl := &models.ContributorList{
		PublicationID: pub.ID,
		ContributorID: member.ID,
		Level:         models.LevelOwner,
	}
	require.NoError(t, db.Create(cl).Error)
	cl.Publication = pub
	cl.Contributor = member

	actor := models.PublicationActor(cl)
	change, err := repo.UpsertWriteUpVote(actor, writeUp.ID, boolPtr(true))
	require.NoError(t, err)
	assert.True(t, change.Created)

	vote, err := repo.GetWriteUpVote(actor, writeUp.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ActorPublication, vote.ActorType)
	assert.Equal(t, pub.ID, vote.ActorID)
	require.NotNil(t, vote.PublicationUserID)
	assert.Equal(t, member.ID, *vote.PublicationUserID)
}
