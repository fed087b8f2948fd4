package jobroles

import (
	"sort"
	"strings"
	"time"
)

type RoleCategory string

const (
	CategoryManagement      RoleCategory = "management"
	CategoryStageManagement RoleCategory = "stage_management"
	CategoryPropsDepartment RoleCategory = "props_department"
	CategoryCreative        RoleCategory = "creative"
	CategoryCrew            RoleCategory = "crew"
	CategoryViewer          RoleCategory = "viewer"
	CategoryCustom          RoleCategory = "custom"
)

// DefaultCustomHierarchy ranks custom roles without a base below every built-in role.
const DefaultCustomHierarchy = 10

type Role struct {
	ID             string       `json:"id" yaml:"id"`
	Name           string       `json:"name" yaml:"name"`
	Description    string       `json:"description" yaml:"description"`
	Category       RoleCategory `json:"category" yaml:"category"`
	Hierarchy      int          `json:"hierarchy" yaml:"hierarchy"`
	Permissions    []Action     `json:"permissions" yaml:"permissions"`
	IsCustomizable bool         `json:"is_customizable" yaml:"is_customizable"`
	IsCustom       bool         `json:"is_custom" yaml:"is_custom"`
	BasedOn        string       `json:"based_on,omitempty" yaml:"based_on,omitempty"`
	Version        int          `json:"version" yaml:"version"`
	CreatedBy      string       `json:"created_by,omitempty" yaml:"created_by,omitempty"`
	CreatedAt      time.Time    `json:"created_at" yaml:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at" yaml:"updated_at"`
}

func (r Role) Grants(a Action) bool {
	for _, p := range r.Permissions {
		if p == a {
			return true
		}
	}
	return false
}

func (r Role) clone() Role {
	r.Permissions = append([]Action(nil), r.Permissions...)
	return r
}

func KnownRoleCategories() []RoleCategory {
	return []RoleCategory{
		CategoryManagement, CategoryStageManagement, CategoryPropsDepartment,
		CategoryCreative, CategoryCrew, CategoryViewer, CategoryCustom,
	}
}

func IsKnownRoleCategory(c RoleCategory) bool {
	for _, k := range KnownRoleCategories() {
		if k == c {
			return true
		}
	}
	return false
}

// Roles returns the static registry in declaration order.
func Roles() []Role {
	out := make([]Role, len(registry))
	for i, r := range registry {
		out[i] = r.clone()
	}
	return out
}

func Get(id string) (Role, bool) {
	idx, ok := registryIndex[normalizeID(id)]
	if !ok {
		return Role{}, false
	}
	return registry[idx].clone(), true
}

func IsBuiltIn(id string) bool {
	_, ok := registryIndex[normalizeID(id)]
	return ok
}

func ByCategory(cat RoleCategory) []Role {
	out := []Role{}
	for _, r := range registry {
		if r.Category == cat {
			out = append(out, r.clone())
		}
	}
	return out
}

// ByHierarchy sorts senior roles first; equal ranks are ordered by ID.
func ByHierarchy() []Role {
	out := Roles()
	SortByHierarchy(out)
	return out
}

func SortByHierarchy(roles []Role) {
	sort.SliceStable(roles, func(i, j int) bool {
		if roles[i].Hierarchy != roles[j].Hierarchy {
			return roles[i].Hierarchy < roles[j].Hierarchy
		}
		return roles[i].ID < roles[j].ID
	})
}

func HasPermission(roleID string, action Action) bool {
	r, ok := Get(roleID)
	if !ok || !IsKnownAction(action) {
		return false
	}
	return r.Grants(action)
}

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
