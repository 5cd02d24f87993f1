package handlers

import (
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/opuslog/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorizeAddresseeForUserRequest(t *testing.T) {
	env := setupHandlerEnv(t)
	addressee := env.createUser(t, "addressee")
	stranger := env.createUser(t, "stranger")

	h := NewRequestHandler(nil, nil, nil, env.pubRepo, nil, nil)
	requestLog := &models.RequestLog{RequestToType: models.ActorUser, RequestToID: addressee.ID}

	assert.NoError(t, h.authorizeAddressee(requestLog, addressee.ID))

	err := h.authorizeAddressee(requestLog, stranger.ID)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusForbidden, httpErr.Code)
}

func TestAuthorizeAddresseeForPublicationRequest(t *testing.T) {
	env := setupHandlerEnv(t)
	owner := env.createUser(t, "owner")
	editor := env.createUser(t, "editor")
	lurker := env.createUser(t, "lurker")

	pub := &models.Publication{Name: "The Gazette", Handler: "gazette", CreatorID: owner.ID}
	require.NoError(t, env.pubRepo.CreatePublication(pub, owner))

	require.NoError(t, env.db.Create(&models.Permission{
		Name: "Receive notification", CodeName: models.PermReceiveNotification,
		PermissionFor: models.PermissionForPublication,
	}).Error)
	require.NoError(t, env.pubRepo.AddContributor(&models.ContributorList{
		PublicationID: pub.ID, ContributorID: editor.ID, Level: models.LevelEditor,
	}, []string{models.PermReceiveNotification}))
	// A contributor the request notification never reached.
	require.NoError(t, env.pubRepo.AddContributor(&models.ContributorList{
		PublicationID: pub.ID, ContributorID: lurker.ID, Level: models.LevelNoob,
	}, nil))

	h := NewRequestHandler(nil, nil, nil, env.pubRepo, nil, nil)
	requestLog := &models.RequestLog{RequestToType: models.ActorPublication, RequestToID: pub.ID}

	assert.NoError(t, h.authorizeAddressee(requestLog, owner.ID))
	assert.NoError(t, h.authorizeAddressee(requestLog, editor.ID))

	err := h.authorizeAddressee(requestLog, lurker.ID)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusForbidden, httpErr.Code)
}
