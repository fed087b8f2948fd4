package api

import (
	"net/http"
	"net/url"
	"testing"

	"props-bible/core/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inviteToken(t *testing.T, link string) string {
	t.Helper()
	u, err := url.Parse(link)
	require.NoError(t, err)
	token := u.Query().Get("token")
	require.NotEmpty(t, token)
	return token
}

func TestInvitationCreateAndAccept(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "rosalind", "rosalind@example.test", "pro")
	env.addUser(t, "celia", "celia@example.test", "free")
	env.addUser(t, "touchstone", "touchstone@example.test", "free")
	oc := env.login(t, "rosalind")
	cc := env.login(t, "celia")
	tc := env.login(t, "touchstone")
	showID := oc.createShow(t, "As You Like It")
	base := "/api/shows/" + itoa(showID)

	assert.Equal(t, http.StatusBadRequest, oc.do(t, http.MethodPost, base+"/invitations", map[string]string{"email": "not-an-email"}).Code)
	assert.Equal(t, http.StatusBadRequest, oc.do(t, http.MethodPost, base+"/invitations", map[string]string{"email": "celia@example.test", "role_id": "jester"}).Code)

	rr := oc.do(t, http.MethodPost, base+"/invitations", map[string]string{"email": "Celia@Example.test", "role_id": "designer"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created struct {
		Invitation store.Invitation `json:"invitation"`
		Link       string           `json:"link"`
	}
	decodeBody(t, rr, &created)
	assert.Equal(t, "celia@example.test", created.Invitation.Email)
	token := inviteToken(t, created.Link)

	// the token is bound to the invited address
	assert.Equal(t, http.StatusForbidden, tc.do(t, http.MethodPost, "/api/invitations/accept", map[string]string{"token": token}).Code)
	assert.Equal(t, http.StatusBadRequest, cc.do(t, http.MethodPost, "/api/invitations/accept", map[string]string{"token": token + "x"}).Code)

	rr = cc.do(t, http.MethodPost, "/api/invitations/accept", map[string]string{"token": token})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var member store.ShowMember
	decodeBody(t, rr, &member)
	assert.Equal(t, "designer", member.RoleID)
	assert.Equal(t, showID, member.ShowID)

	assert.Equal(t, http.StatusConflict, cc.do(t, http.MethodPost, "/api/invitations/accept", map[string]string{"token": token}).Code)
	assert.Equal(t, http.StatusOK, cc.do(t, http.MethodGet, base, nil).Code)

	rr = oc.do(t, http.MethodGet, base+"/invitations", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var list struct {
		Items []store.Invitation `json:"items"`
	}
	decodeBody(t, rr, &list)
	require.Len(t, list.Items, 1)
	assert.Equal(t, store.InvitationAccepted, list.Items[0].Status)
}

func TestInvitationRevoke(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "rosalind", "rosalind@example.test", "pro")
	env.addUser(t, "audrey", "audrey@example.test", "free")
	oc := env.login(t, "rosalind")
	ac := env.login(t, "audrey")
	base := "/api/shows/" + itoa(oc.createShow(t, "As You Like It"))

	rr := oc.do(t, http.MethodPost, base+"/invitations", map[string]string{"email": "audrey@example.test"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created struct {
		Invitation store.Invitation `json:"invitation"`
		Link       string           `json:"link"`
	}
	decodeBody(t, rr, &created)
	// viewers cannot manage invitations
	assert.Equal(t, http.StatusForbidden, ac.do(t, http.MethodDelete, base+"/invitations/"+itoa(created.Invitation.ID), nil).Code)

	require.Equal(t, http.StatusNoContent, oc.do(t, http.MethodDelete, base+"/invitations/"+itoa(created.Invitation.ID), nil).Code)
	rr = ac.do(t, http.MethodPost, "/api/invitations/accept", map[string]string{"token": inviteToken(t, created.Link)})
	assert.Equal(t, http.StatusGone, rr.Code)
}
