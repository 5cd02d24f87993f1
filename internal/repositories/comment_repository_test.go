package repositories

import (
	"testing"

	"github.com/opuslog/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSoftDeleteCommentKeepsRowAndReplies(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostgresCommentRepository(db)

	author := createTestUser(t, db, "author")
	writeUp := createTestWriteUp(t, db, author, "First Article")

	parent := &models.Comment{
		WriteUpID: writeUp.ID,
		ActorType: models.ActorUser,
		ActorID:   author.ID,
		Body:      "parent body",
	}
	require.NoError(t, repo.CreateComment(parent))

	reply := &models.Comment{
		WriteUpID: writeUp.ID,
		ActorType: models.ActorUser,
		ActorID:   author.ID,
		Body:      "reply body",
		ReplyToID: &parent.ID,
	}
	require.NoError(t, repo.CreateComment(reply))
	require.NoError(t, repo.IncrementReplies(parent.ID))

	require.NoError(t, repo.SoftDeleteComment(parent.ID))

	deleted, err := repo.GetCommentByID(parent.ID)
	require.NoError(t, err)
	assert.True(t, deleted.Deleted)
	assert.Equal(t, models.DeletedCommentPlaceholder, deleted.DisplayBody())
	assert.EqualValues(t, 1, deleted.Replies)

	// The reply tree survives the deletion.
	replies, err := repo.GetReplies(parent.ID)
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, "reply body", replies[0].DisplayBody())
}

func TestGetFirstLevelCommentsExcludesReplies(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostgresCommentRepository(db)

	author := createTestUser(t, db, "author")
	writeUp := createTestWriteUp(t, db, author, "First Article")

	first := &models.Comment{WriteUpID: writeUp.ID, ActorType: models.ActorUser, ActorID: author.ID, Body: "one"}
	require.NoError(t, repo.CreateComment(first))
	second := &models.Comment{WriteUpID: writeUp.ID, ActorType: models.ActorUser, ActorID: author.ID, Body: "two"}
	require.NoError(t, repo.CreateComment(second))
	reply := &models.Comment{WriteUpID: writeUp.ID, ActorType: models.ActorUser, ActorID: author.ID, Body: "nested", ReplyToID: &first.ID}
	require.NoError(t, repo.CreateComment(reply))

	comments, err := repo.GetFirstLevelComments(writeUp.ID)
	require.NoError(t, err)
	assert.Len(t, comments, 2)
	for _, comment := range comments {
		assert.Nil(t, comment.ReplyToID)
	}
}

func TestAdjustVoteCounts(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostgresCommentRepository(db)

	author := createTestUser(t, db, "author")
	writeUp := createTestWriteUp(t, db, author, "First Article")
	comment := &models.Comment{WriteUpID: writeUp.ID, ActorType: models.ActorUser, ActorID: author.ID, Body: "c"}
	require.NoError(t, repo.CreateComment(comment))

	require.NoError(t, repo.AdjustVoteCounts(comment.ID, 1, 0))
	require.NoError(t, repo.AdjustVoteCounts(comment.ID, -1, 1))

	got, err := repo.GetCommentByID(comment.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, got.UpVotes)
	assert.EqualValues(t, 1, got.DownVotes)
}
