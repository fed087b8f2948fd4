package subscription

import (
	"sort"
	"strings"

	"props-bible/core/store"
)

// Unlimited marks a resource without a cap.
const Unlimited = -1

const (
	ResourceShows         = store.ResourceShows
	ResourceArchivedShows = store.ResourceArchivedShows
	ResourceProps         = store.ResourceProps
	ResourcePackingLists  = store.ResourcePackingLists
	ResourceBoards        = store.ResourceBoards
	ResourceCollaborators = store.ResourceCollaborators
)

// OwnerResources are counted per owner; collaborators are counted per show.
var OwnerResources = []string{
	ResourceShows, ResourceProps, ResourcePackingLists, ResourceBoards, ResourceArchivedShows,
}

type Plan struct {
	Name   string         `json:"name"`
	Rank   int            `json:"rank"`
	Limits map[string]int `json:"limits"`
}

var plans = map[string]Plan{
	"free": {Name: "free", Rank: 0, Limits: map[string]int{
		ResourceShows: 1, ResourceProps: 10, ResourcePackingLists: 1, ResourceBoards: 1, ResourceArchivedShows: 0, ResourceCollaborators: 3,
	}},
	"starter": {Name: "starter", Rank: 1, Limits: map[string]int{
		ResourceShows: 3, ResourceProps: 200, ResourcePackingLists: 5, ResourceBoards: 5, ResourceArchivedShows: 2, ResourceCollaborators: 5,
	}},
	"standard": {Name: "standard", Rank: 2, Limits: map[string]int{
		ResourceShows: 10, ResourceProps: 1000, ResourcePackingLists: 20, ResourceBoards: 10, ResourceArchivedShows: 5, ResourceCollaborators: 10,
	}},
	"pro": {Name: "pro", Rank: 3, Limits: map[string]int{
		ResourceShows: 20, ResourceProps: 5000, ResourcePackingLists: 50, ResourceBoards: 50, ResourceArchivedShows: 10, ResourceCollaborators: 25,
	}},
	"unlimited": {Name: "unlimited", Rank: 4, Limits: map[string]int{
		ResourceShows: Unlimited, ResourceProps: Unlimited, ResourcePackingLists: Unlimited, ResourceBoards: Unlimited,
		ResourceArchivedShows: Unlimited, ResourceCollaborators: Unlimited,
	}},
}

func normalizePlan(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func GetPlan(name string) (Plan, bool) {
	p, ok := plans[normalizePlan(name)]
	return p, ok
}

func IsKnownPlan(name string) bool {
	_, ok := GetPlan(name)
	return ok
}

// Plans lists the plans from the smallest to the largest.
func Plans() []Plan {
	out := make([]Plan, 0, len(plans))
	for _, p := range plans {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	return out
}

func IsKnownResource(resource string) bool {
	_, ok := plans["free"].Limits[resource]
	return ok
}

// Limit returns the cap for resource; unknown resources report false.
func (p Plan) Limit(resource string) (int, bool) {
	v, ok := p.Limits[resource]
	return v, ok
}
