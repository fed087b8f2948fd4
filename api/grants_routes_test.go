package api

import (
	"context"
	"net/http"
	"testing"

	"props-bible/core/jobroles"
	"props-bible/core/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTeamGrantsStopAtCallerRank(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "lear", "lear@example.test", "pro")
	env.addUser(t, "kent", "kent@example.test", "free")
	env.addUser(t, "goneril", "goneril@example.test", "free")
	edmund := env.addUser(t, "edmund", "edmund@example.test", "free")
	albany := env.addUser(t, "albany", "albany@example.test", "free")
	oc := env.login(t, "lear")
	kc := env.login(t, "kent")
	gc := env.login(t, "goneril")
	id := oc.createShow(t, "King Lear")
	team := "/api/shows/" + itoa(id) + "/team"

	require.Equal(t, http.StatusCreated, oc.do(t, http.MethodPost, team, map[string]string{"username": "kent", "role_id": "stage_manager"}).Code)
	require.Equal(t, http.StatusCreated, oc.do(t, http.MethodPost, team, map[string]string{"username": "goneril", "role_id": "production_manager"}).Code)
	require.Equal(t, http.StatusCreated, oc.do(t, http.MethodPost, team, map[string]string{"username": "albany", "role_id": jobroles.OwnerRoleID}).Code)

	// a stage manager cannot seat anyone above their own rank
	assert.Equal(t, http.StatusForbidden, kc.do(t, http.MethodPost, team, map[string]string{"username": "edmund", "role_id": jobroles.OwnerRoleID}).Code)
	assert.Equal(t, http.StatusForbidden, kc.do(t, http.MethodPost, team, map[string]string{"username": "edmund", "role_id": "production_manager"}).Code)
	assert.Equal(t, http.StatusForbidden, kc.do(t, http.MethodPost, team, map[string]string{"username": "edmund", "role_id": "props_supervisor"}).Code)
	member, err := env.shows.Member(context.Background(), id, edmund.ID)
	require.NoError(t, err)
	assert.Nil(t, member)
	require.Equal(t, http.StatusCreated, kc.do(t, http.MethodPost, team, map[string]string{"username": "edmund", "role_id": "crew"}).Code)
	assert.Equal(t, http.StatusForbidden, env.login(t, "edmund").do(t, http.MethodDelete, "/api/shows/"+itoa(id), nil).Code)

	// a production manager may reassign below their rank only
	assert.Equal(t, http.StatusForbidden, gc.do(t, http.MethodPut, team+"/"+itoa(edmund.ID), map[string]string{"role_id": jobroles.OwnerRoleID}).Code)
	assert.Equal(t, http.StatusOK, gc.do(t, http.MethodPut, team+"/"+itoa(edmund.ID), map[string]string{"role_id": "designer"}).Code)
	assert.Equal(t, http.StatusForbidden, gc.do(t, http.MethodPut, team+"/"+itoa(albany.ID), map[string]string{"role_id": "viewer"}).Code)
	member, err = env.shows.Member(context.Background(), id, albany.ID)
	require.NoError(t, err)
	assert.Equal(t, jobroles.OwnerRoleID, member.RoleID)

	// the owner is never limited
	assert.Equal(t, http.StatusOK, oc.do(t, http.MethodPut, team+"/"+itoa(albany.ID), map[string]string{"role_id": "viewer"}).Code)
}

func TestInvitationGrantsStopAtCallerRank(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "portia", "portia@example.test", "pro")
	env.addUser(t, "nerissa", "nerissa@example.test", "free")
	oc := env.login(t, "portia")
	nc := env.login(t, "nerissa")
	base := "/api/shows/" + itoa(oc.createShow(t, "The Merchant of Venice"))
	require.Equal(t, http.StatusCreated, oc.do(t, http.MethodPost, base+"/team", map[string]string{"username": "nerissa", "role_id": "stage_manager"}).Code)

	rr := nc.do(t, http.MethodPost, base+"/invitations", map[string]string{"email": "shylock@example.test", "role_id": jobroles.OwnerRoleID})
	assert.Equal(t, http.StatusForbidden, rr.Code, rr.Body.String())
	rr = nc.do(t, http.MethodPost, base+"/invitations", map[string]string{"email": "shylock@example.test", "role_id": "crew"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = oc.do(t, http.MethodGet, base+"/invitations", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var list struct {
		Items []store.Invitation `json:"items"`
	}
	decodeBody(t, rr, &list)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "crew", list.Items[0].RoleID)
}

func TestAccountRoleGrantsStopAtCallerRank(t *testing.T) {
	env := newTestEnv(t)
	admin := env.addUser(t, "prospero", "prospero@example.test", "pro", jobroles.OwnerRoleID)
	regan := env.addUser(t, "regan", "regan@example.test", "free", "production_manager")
	cordelia := env.addUser(t, "cordelia", "cordelia@example.test", "free")
	rc := env.login(t, "regan")

	self := "/api/accounts/users/" + itoa(regan.ID)
	assert.Equal(t, http.StatusForbidden, rc.do(t, http.MethodPut, self+"/roles", map[string]any{"roles": []string{jobroles.OwnerRoleID}}).Code)
	assert.Equal(t, http.StatusForbidden, rc.do(t, http.MethodPut, self+"/plan", map[string]string{"plan": "unlimited"}).Code)
	_, roles, err := env.users.Get(context.Background(), regan.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"production_manager"}, roles)

	assert.Equal(t, http.StatusOK, rc.do(t, http.MethodPut, "/api/accounts/users/"+itoa(cordelia.ID)+"/roles", map[string]any{"roles": []string{"designer"}}).Code)
	// nor can they strip a more senior account
	assert.Equal(t, http.StatusForbidden, rc.do(t, http.MethodPut, "/api/accounts/users/"+itoa(admin.ID)+"/roles", map[string]any{"roles": []string{"viewer"}}).Code)
}

func TestCustomRoleActionsStayWithinCaller(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "regan", "regan@example.test", "free", "production_manager")
	rc := env.login(t, "regan")

	rr := rc.do(t, http.MethodPost, "/api/roles/", map[string]any{
		"name":        "Treasurer",
		"permissions": []string{string(jobroles.ActionManageSubscription), string(jobroles.ActionManageSettings)},
	})
	assert.Equal(t, http.StatusForbidden, rr.Code, rr.Body.String())

	rr = rc.do(t, http.MethodPost, "/api/roles/", map[string]any{
		"name":        "Runner",
		"permissions": []string{string(jobroles.ActionViewShows), string(jobroles.ActionEditProps)},
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var role jobroles.Role
	decodeBody(t, rr, &role)

	path := "/api/roles/" + role.ID
	rr = rc.do(t, http.MethodPut, path, map[string]any{"permissions": []string{string(jobroles.ActionManageSettings)}, "version": role.Version})
	assert.Equal(t, http.StatusForbidden, rr.Code, rr.Body.String())
	assert.False(t, env.deps.Policy.Allowed([]string{role.ID}, jobroles.ActionManageSettings))
}

func TestCustomRoleHeldByPendingInvitationCannotBeDeleted(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "oberon", "oberon@example.test", "pro", jobroles.OwnerRoleID)
	env.addUser(t, "puck", "puck@example.test", "free")
	oc := env.login(t, "oberon")
	pc := env.login(t, "puck")
	base := "/api/shows/" + itoa(oc.createShow(t, "A Midsummer Night's Dream"))

	rr := oc.do(t, http.MethodPost, "/api/roles/", map[string]any{"name": "Runner", "permissions": []string{string(jobroles.ActionViewShows)}})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var role jobroles.Role
	decodeBody(t, rr, &role)

	rr = oc.do(t, http.MethodPost, base+"/invitations", map[string]string{"email": "puck@example.test", "role_id": role.ID})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created struct {
		Invitation store.Invitation `json:"invitation"`
		Link       string           `json:"link"`
	}
	decodeBody(t, rr, &created)

	assert.Equal(t, http.StatusConflict, oc.do(t, http.MethodDelete, "/api/roles/"+role.ID, nil).Code)
	rr = pc.do(t, http.MethodPost, "/api/invitations/accept", map[string]string{"token": inviteToken(t, created.Link)})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var member store.ShowMember
	decodeBody(t, rr, &member)
	assert.Equal(t, role.ID, member.RoleID)
	assert.Equal(t, http.StatusConflict, oc.do(t, http.MethodDelete, "/api/roles/"+role.ID, nil).Code)
}
