package api

import (
	"net/http"
	"testing"

	"props-bible/core/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackingListWithProps(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "hamlet", "hamlet@example.test", "free")
	c := env.login(t, "hamlet")
	showID := c.createShow(t, "Hamlet")
	base := "/api/shows/" + itoa(showID)

	rr := c.do(t, http.MethodPost, base+"/props", map[string]any{"name": "Yorick's skull", "weight_kg": 1.5, "quantity": 1})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var prop struct {
		ID int64 `json:"id"`
	}
	decodeBody(t, rr, &prop)

	rr = c.do(t, http.MethodPost, base+"/packing", map[string]string{"name": "Tour trunk"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var pl store.PackList
	decodeBody(t, rr, &pl)
	// free plan carries a single packing list
	assert.Equal(t, http.StatusPaymentRequired, c.do(t, http.MethodPost, base+"/packing", map[string]string{"name": "Second"}).Code)

	listPath := base + "/packing/" + itoa(pl.ID)
	rr = c.do(t, http.MethodPost, listPath+"/containers", map[string]any{"name": "Crate A", "max_weight_kg": 2})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var box store.PackContainer
	decodeBody(t, rr, &box)

	propPath := listPath + "/containers/" + itoa(box.ID) + "/props/" + itoa(prop.ID)
	rr = c.do(t, http.MethodPut, propPath, map[string]int{"quantity": 2})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var full store.PackList
	decodeBody(t, rr, &full)
	require.Len(t, full.Containers, 1)
	require.Len(t, full.Containers[0].Props, 1)
	assert.InDelta(t, 3.0, full.Containers[0].TotalWeightKg, 0.001)
	assert.True(t, full.Containers[0].OverWeight)

	assert.Equal(t, http.StatusBadRequest, c.do(t, http.MethodPut, propPath, map[string]int{"quantity": -1}).Code)
	missing := listPath + "/containers/" + itoa(box.ID) + "/props/99999"
	assert.Equal(t, http.StatusNotFound, c.do(t, http.MethodPut, missing, map[string]int{"quantity": 1}).Code)

	require.Equal(t, http.StatusNoContent, c.do(t, http.MethodDelete, propPath, nil).Code)
	rr = c.do(t, http.MethodGet, listPath, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var after store.PackList
	decodeBody(t, rr, &after)
	require.Len(t, after.Containers, 1)
	assert.Empty(t, after.Containers[0].Props)
}

func TestPackingRejectsForeignShowProps(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "hamlet", "hamlet@example.test", "pro")
	c := env.login(t, "hamlet")
	first := "/api/shows/" + itoa(c.createShow(t, "Hamlet"))
	second := "/api/shows/" + itoa(c.createShow(t, "Macbeth"))

	rr := c.do(t, http.MethodPost, second+"/props", map[string]any{"name": "Dagger"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var prop struct {
		ID int64 `json:"id"`
	}
	decodeBody(t, rr, &prop)

	rr = c.do(t, http.MethodPost, first+"/packing", map[string]string{"name": "Trunk"})
	require.Equal(t, http.StatusCreated, rr.Code)
	var pl store.PackList
	decodeBody(t, rr, &pl)
	rr = c.do(t, http.MethodPost, first+"/packing/"+itoa(pl.ID)+"/containers", map[string]string{"name": "Box"})
	require.Equal(t, http.StatusCreated, rr.Code)
	var box store.PackContainer
	decodeBody(t, rr, &box)

	path := first + "/packing/" + itoa(pl.ID) + "/containers/" + itoa(box.ID) + "/props/" + itoa(prop.ID)
	assert.Equal(t, http.StatusNotFound, c.do(t, http.MethodPut, path, map[string]int{"quantity": 1}).Code)
	// list ids are scoped to their show as well
	assert.Equal(t, http.StatusNotFound, c.do(t, http.MethodGet, second+"/packing/"+itoa(pl.ID), nil).Code)
}

func TestShoppingWorkflow(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "duncan", "duncan@example.test", "pro")
	buyer := env.addUser(t, "banquo", "banquo@example.test", "free")
	supervisor := env.addUser(t, "macduff", "macduff@example.test", "free")
	oc := env.login(t, "duncan")
	bc := env.login(t, "banquo")
	sc := env.login(t, "macduff")
	showID := oc.createShow(t, "Macbeth")
	base := "/api/shows/" + itoa(showID)
	require.Equal(t, http.StatusCreated, oc.do(t, http.MethodPost, base+"/team", map[string]any{"username": buyer.Username, "role_id": "props_buyer"}).Code)
	require.Equal(t, http.StatusCreated, oc.do(t, http.MethodPost, base+"/team", map[string]any{"username": supervisor.Username, "role_id": "props_supervisor"}).Code)

	// a buyer cannot set a budget
	rr := bc.do(t, http.MethodPost, base+"/shopping", map[string]any{"name": "Crown", "budget": 40})
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, http.StatusBadRequest, bc.do(t, http.MethodPost, base+"/shopping", map[string]any{"name": "Crown", "type": "rocket"}).Code)

	rr = bc.do(t, http.MethodPost, base+"/shopping", map[string]any{"name": "Crown", "type": "prop"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var item store.ShoppingItem
	decodeBody(t, rr, &item)
	assert.Equal(t, store.ShoppingPending, item.Status)
	itemPath := base + "/shopping/" + itoa(item.ID)

	rr = bc.do(t, http.MethodPost, itemPath+"/options", map[string]any{"shop": "Costume Hire Ltd", "url": "javascript:alert(1)", "price": 25})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = bc.do(t, http.MethodPost, itemPath+"/options", map[string]any{"shop": "Costume Hire Ltd", "url": "https://hire.example.test/crown", "price": 25})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var opt store.ShoppingOption
	decodeBody(t, rr, &opt)
	rr = bc.do(t, http.MethodPost, itemPath+"/options/"+itoa(opt.ID)+"/select", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	decodeBody(t, rr, &item)
	require.NotNil(t, item.SelectedOptionID)
	assert.Equal(t, opt.ID, *item.SelectedOptionID)

	// skipping approval is not a valid move, and buyers cannot approve
	assert.Equal(t, http.StatusConflict, bc.do(t, http.MethodPost, itemPath+"/status", map[string]string{"status": "purchased"}).Code)
	assert.Equal(t, http.StatusForbidden, bc.do(t, http.MethodPost, itemPath+"/status", map[string]string{"status": "approved"}).Code)

	rr = sc.do(t, http.MethodPost, itemPath+"/status", map[string]string{"status": "approved"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	decodeBody(t, rr, &item)
	assert.Equal(t, store.ShoppingApproved, item.Status)
	assert.Equal(t, supervisor.ID, item.DecidedBy)

	rr = bc.do(t, http.MethodPost, itemPath+"/status", map[string]string{"status": "purchased"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rr = bc.do(t, http.MethodPost, itemPath+"/status", map[string]string{"status": "picked_up"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	decodeBody(t, rr, &item)
	assert.Equal(t, store.ShoppingPickedUp, item.Status)
	assert.Equal(t, http.StatusConflict, sc.do(t, http.MethodPost, itemPath+"/status", map[string]string{"status": "rejected"}).Code)

	rr = oc.do(t, http.MethodGet, base+"/shopping?status=picked_up", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var list struct {
		Items []store.ShoppingItem `json:"items"`
	}
	decodeBody(t, rr, &list)
	assert.Len(t, list.Items, 1)
	assert.Equal(t, http.StatusBadRequest, oc.do(t, http.MethodGet, base+"/shopping?status=lost", nil).Code)
}

func TestShoppingDeleteIsLimitedToRequesterOrApprover(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "duncan", "duncan@example.test", "pro")
	env.addUser(t, "banquo", "banquo@example.test", "free")
	env.addUser(t, "fleance", "fleance@example.test", "free")
	oc := env.login(t, "duncan")
	bc := env.login(t, "banquo")
	fc := env.login(t, "fleance")
	base := "/api/shows/" + itoa(oc.createShow(t, "Macbeth"))
	require.Equal(t, http.StatusCreated, oc.do(t, http.MethodPost, base+"/team", map[string]string{"username": "banquo", "role_id": "props_maker"}).Code)
	require.Equal(t, http.StatusCreated, oc.do(t, http.MethodPost, base+"/team", map[string]string{"username": "fleance", "role_id": "props_maker"}).Code)

	rr := bc.do(t, http.MethodPost, base+"/shopping", map[string]any{"name": "Timber", "type": "material"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var item store.ShoppingItem
	decodeBody(t, rr, &item)
	path := base + "/shopping/" + itoa(item.ID)

	assert.Equal(t, http.StatusForbidden, fc.do(t, http.MethodDelete, path, nil).Code)
	assert.Equal(t, http.StatusNoContent, oc.do(t, http.MethodDelete, path, nil).Code)
	assert.Equal(t, http.StatusNotFound, bc.do(t, http.MethodGet, path, nil).Code)
}
