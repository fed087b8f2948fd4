package api

import (
	"net/http"
	"testing"

	"props-bible/core/jobroles"
	"props-bible/core/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShowCreateStopsAtPlanLimit(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "orsino", "orsino@example.test", "free")
	c := env.login(t, "orsino")
	c.createShow(t, "Twelfth Night")

	rr := c.do(t, http.MethodPost, "/api/shows", map[string]string{"name": "Cymbeline"})
	require.Equal(t, http.StatusPaymentRequired, rr.Code, rr.Body.String())
	var denial struct {
		Error    string `json:"error"`
		Decision struct {
			Resource string `json:"resource"`
			Limit    int    `json:"limit"`
		} `json:"decision"`
	}
	decodeBody(t, rr, &denial)
	assert.Equal(t, "limits.reached", denial.Error)
	assert.Equal(t, "shows", denial.Decision.Resource)
	assert.Equal(t, 1, denial.Decision.Limit)

	rr = c.do(t, http.MethodGet, "/api/shows", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var list struct {
		Items []store.Show `json:"items"`
	}
	decodeBody(t, rr, &list)
	assert.Len(t, list.Items, 1)
}

func TestShowCreateIsOpenToEveryAccount(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "viola", "viola@example.test", "free", "viewer")
	c := env.login(t, "viola")
	assert.False(t, env.deps.Policy.Allowed([]string{"viewer"}, jobroles.ActionCreateShows))
	id := c.createShow(t, "Twelfth Night")

	rr := c.do(t, http.MethodGet, "/api/shows/"+itoa(id), nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var got struct {
		Show    store.Show `json:"show"`
		IsOwner bool       `json:"is_owner"`
	}
	decodeBody(t, rr, &got)
	assert.Equal(t, "Twelfth Night", got.Show.Name)
	assert.True(t, got.IsOwner)
}

func TestShowArchiveTwiceConflicts(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "antonio", "antonio@example.test", "pro")
	c := env.login(t, "antonio")
	id := c.createShow(t, "The Merchant of Venice")
	require.Equal(t, http.StatusOK, c.do(t, http.MethodPost, "/api/shows/"+itoa(id)+"/archive", nil).Code)
	assert.Equal(t, http.StatusConflict, c.do(t, http.MethodPost, "/api/shows/"+itoa(id)+"/archive", nil).Code)
	require.Equal(t, http.StatusOK, c.do(t, http.MethodPost, "/api/shows/"+itoa(id)+"/unarchive", nil).Code)
	assert.Equal(t, http.StatusConflict, c.do(t, http.MethodPost, "/api/shows/"+itoa(id)+"/unarchive", nil).Code)
}

func TestShowArchiveOnFreePlanIsLimited(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "olivia", "olivia@example.test", "free")
	c := env.login(t, "olivia")
	id := c.createShow(t, "Pericles")
	assert.Equal(t, http.StatusPaymentRequired, c.do(t, http.MethodPost, "/api/shows/"+itoa(id)+"/archive", nil).Code)
}

func TestShowAccessIsScopedToTheTeam(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "prospero", "prospero@example.test", "pro")
	env.addUser(t, "caliban", "caliban@example.test", "free")
	owner := env.login(t, "prospero")
	outsider := env.login(t, "caliban")
	id := owner.createShow(t, "The Tempest")
	path := "/api/shows/" + itoa(id)

	assert.Equal(t, http.StatusForbidden, outsider.do(t, http.MethodGet, path, nil).Code)
	assert.Equal(t, http.StatusNotFound, owner.do(t, http.MethodGet, "/api/shows/9999", nil).Code)

	rr := owner.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var got struct {
		Show    store.Show `json:"show"`
		IsOwner bool       `json:"is_owner"`
	}
	decodeBody(t, rr, &got)
	assert.True(t, got.IsOwner)
	assert.Equal(t, "The Tempest", got.Show.Name)
}

func TestShowActsAreNormalized(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "prospero", "prospero@example.test", "pro")
	c := env.login(t, "prospero")
	id := c.createShow(t, "The Tempest")
	path := "/api/shows/" + itoa(id) + "/acts"

	rr := c.do(t, http.MethodPut, path, map[string]any{"acts": []store.Act{
		{Number: 2, Name: " Two ", Scenes: []store.Scene{{Number: 2, Name: "b"}, {Number: 1, Name: "a"}}},
		{Number: 1, Name: "One"},
	}})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	show, err := env.shows.Get(t.Context(), id)
	require.NoError(t, err)
	require.Len(t, show.Acts, 2)
	assert.Equal(t, 1, show.Acts[0].Number)
	assert.Equal(t, "Two", show.Acts[1].Name)
	assert.Equal(t, 1, show.Acts[1].Scenes[0].Number)

	rr = c.do(t, http.MethodPut, path, map[string]any{"acts": []store.Act{{Number: 1}, {Number: 1}}})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestShowTeamManagement(t *testing.T) {
	env := newTestEnv(t)
	owner := env.addUser(t, "prospero", "prospero@example.test", "pro")
	ariel := env.addUser(t, "ariel", "ariel@example.test", "free")
	env.addUser(t, "trinculo", "trinculo@example.test", "free")
	oc := env.login(t, "prospero")
	ac := env.login(t, "ariel")
	tc := env.login(t, "trinculo")
	id := oc.createShow(t, "The Tempest")
	team := "/api/shows/" + itoa(id) + "/team"

	rr := oc.do(t, http.MethodPost, team, map[string]string{"username": "ariel", "role_id": "crew"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, http.StatusConflict, oc.do(t, http.MethodPost, team, map[string]string{"email": "ariel@example.test"}).Code)
	assert.Equal(t, http.StatusBadRequest, oc.do(t, http.MethodPost, team, map[string]string{"username": "trinculo", "role_id": "jester"}).Code)
	assert.Equal(t, http.StatusNotFound, oc.do(t, http.MethodPost, team, map[string]string{"username": "nobody"}).Code)

	// crew cannot invite
	assert.Equal(t, http.StatusForbidden, ac.do(t, http.MethodPost, team, map[string]string{"username": "trinculo"}).Code)
	assert.Equal(t, http.StatusForbidden, tc.do(t, http.MethodGet, team, nil).Code)

	rr = oc.do(t, http.MethodPut, team+"/"+itoa(ariel.ID), map[string]string{"role_id": "stage_manager"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, http.StatusBadRequest, oc.do(t, http.MethodPut, team+"/"+itoa(owner.ID), map[string]string{"role_id": "viewer"}).Code)

	rr = ac.do(t, http.MethodGet, team, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var members struct {
		Members []store.ShowMember `json:"members"`
	}
	decodeBody(t, rr, &members)
	assert.Len(t, members.Members, 2)

	assert.Equal(t, http.StatusBadRequest, oc.do(t, http.MethodDelete, team+"/"+itoa(owner.ID), nil).Code)
	// members may leave on their own
	assert.Equal(t, http.StatusNoContent, ac.do(t, http.MethodDelete, team+"/"+itoa(ariel.ID), nil).Code)
	assert.Equal(t, http.StatusForbidden, ac.do(t, http.MethodGet, "/api/shows/"+itoa(id), nil).Code)
}

func TestShowDeleteReleasesQuota(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "lear", "lear@example.test", "free")
	c := env.login(t, "lear")
	id := c.createShow(t, "King Lear")

	require.Equal(t, http.StatusNoContent, c.do(t, http.MethodDelete, "/api/shows/"+itoa(id), nil).Code)
	assert.Equal(t, http.StatusNotFound, c.do(t, http.MethodGet, "/api/shows/"+itoa(id), nil).Code)
	c.createShow(t, "King Lear, again")
}
