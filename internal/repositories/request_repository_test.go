package repositories

import (
	"testing"

	"github.com/opuslog/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newThreadMemberRequest(threadID, fromID, toID uint) *models.RequestLog {
	return &models.RequestLog{
		RequestForType:  "thread",
		RequestForID:    threadID,
		RequestFromType: models.ActorUser,
		RequestFromID:   fromID,
		RequestToType:   models.ActorUser,
		RequestToID:     toID,
		Action:          models.ActionAddThreadMember,
		Params: map[string]interface{}{
			"thread_id":   threadID,
			"member_type": models.ActorUser,
			"member_id":   toID,
		},
	}
}

func TestCreateRequestRejectsDuplicatePending(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostgresRequestRepository(db)

	require.NoError(t, repo.CreateRequest(newThreadMemberRequest(1, 10, 20)))

	err := repo.CreateRequest(newThreadMemberRequest(1, 10, 20))
	assert.ErrorIs(t, err, ErrDuplicateRequest)

	// A different addressee for the same thread is fine.
	require.NoError(t, repo.CreateRequest(newThreadMemberRequest(1, 10, 30)))
}

func TestCreateRequestAllowedAfterResolution(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostgresRequestRepository(db)

	first := newThreadMemberRequest(1, 10, 20)
	require.NoError(t, repo.CreateRequest(first))
	require.NoError(t, repo.UpdateStatus(first, models.RequestRejected))

	// The pair is free again once the first request is resolved.
	require.NoError(t, repo.CreateRequest(newThreadMemberRequest(1, 10, 20)))
}

func TestGetPendingByIDIgnoresResolved(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostgresRequestRepository(db)

	req := newThreadMemberRequest(1, 10, 20)
	require.NoError(t, repo.CreateRequest(req))

	pending, err := repo.GetPendingByID(req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestPending, pending.Status)
	assert.Equal(t, models.ActionAddThreadMember, pending.Action)

	require.NoError(t, repo.UpdateStatus(req, models.RequestAccepted))

	_, err = repo.GetPendingByID(req.ID)
	assert.Error(t, err)
}
