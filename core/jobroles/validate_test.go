package jobroles

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePermissions(t *testing.T) {
	cases := []struct {
		name     string
		perms    []Action
		valid    bool
		errors   int
		warnings []string
	}{
		{name: "empty", perms: nil, valid: false, errors: 1},
		{name: "unknown", perms: []Action{ActionViewShows, "fly_rigging"}, valid: false, errors: 1},
		{
			name:     "delete without view",
			perms:    []Action{ActionDeleteProps},
			valid:    true,
			warnings: []string{"has delete_props but not view_all_props"},
		},
		{
			name:     "duplicate",
			perms:    []Action{ActionViewShows, ActionViewShows},
			valid:    true,
			warnings: []string{"duplicate permission: view_shows"},
		},
		{
			name:     "manage roles without assign",
			perms:    []Action{ActionViewTeam, ActionManageRoles},
			valid:    true,
			warnings: []string{"has manage_roles but not assign_roles"},
		},
		{
			name:     "billing",
			perms:    []Action{ActionManageSubscription},
			valid:    true,
			warnings: []string{"manage_subscription grants billing control"},
		},
		{name: "clean", perms: []Action{ActionViewAllProps, ActionEditProps}, valid: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := ValidatePermissions(tc.perms)
			assert.Equal(t, tc.valid, res.Valid)
			assert.Len(t, res.Errors, tc.errors)
			for _, w := range tc.warnings {
				assert.Contains(t, res.Warnings, w)
			}
			if len(tc.warnings) == 0 {
				assert.Empty(t, res.Warnings)
			}
		})
	}
}

func TestValidateStringsNormalizes(t *testing.T) {
	res := ValidateStrings([]string{" View_Shows ", "", "EDIT_SHOWS"})
	assert.True(t, res.Valid)
	assert.Empty(t, res.Warnings)
}

func TestCompare(t *testing.T) {
	a := Role{ID: "a", Permissions: []Action{ActionViewShows, ActionViewAllProps, ActionEditProps}}
	b := Role{ID: "b", Permissions: []Action{ActionViewAllProps, ActionViewTasks}}
	cmp := Compare(a, b)
	assert.Equal(t, []Action{ActionViewAllProps}, cmp.Common)
	assert.Equal(t, []Action{ActionEditProps, ActionViewShows}, cmp.OnlyInA)
	assert.Equal(t, []Action{ActionViewTasks}, cmp.OnlyInB)
	assert.InDelta(t, 0.25, cmp.Similarity, 1e-9)

	empty := Compare(Role{ID: "x"}, Role{ID: "y"})
	assert.Zero(t, empty.Similarity)
	assert.Empty(t, empty.Common)

	self, err := CompareByID("crew", "crew")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, self.Similarity, 1e-9)
}

func TestCompareByIDUnknown(t *testing.T) {
	_, err := CompareByID("producer", "ghost")
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestPermissionMatrixIsComplete(t *testing.T) {
	m := PermissionMatrix()
	require.Len(t, m.Rows, len(Roles()))
	for _, row := range m.Rows {
		assert.Len(t, row.Grants, len(AllActions()))
	}
	assert.True(t, m.Rows[0].Grants[ActionManageSubscription])

	custom := PermissionMatrix(Role{ID: "custom-x", Permissions: []Action{ActionViewShows}})
	require.Len(t, custom.Rows, 1)
	assert.True(t, custom.Rows[0].Grants[ActionViewShows])
	assert.False(t, custom.Rows[0].Grants[ActionEditShows])
}

func TestNewCustomRole(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r, err := NewCustomRole(CustomRoleInput{Name: "  Props Runner (Act II) ", BasedOn: "crew", CreatedBy: "7"}, now)
	require.NoError(t, err)
	assert.Equal(t, "custom-props-runner-act-ii", r.ID)
	assert.Equal(t, 1, r.Version)
	assert.True(t, r.IsCustom)
	assert.True(t, r.IsCustomizable)
	assert.Equal(t, CategoryCustom, r.Category)
	assert.Equal(t, 6, r.Hierarchy)
	assert.Equal(t, "crew", r.BasedOn)
	crew, _ := Get("crew")
	assert.ElementsMatch(t, crew.Permissions, r.Permissions)
	assert.Equal(t, now, r.CreatedAt)

	noBase, err := NewCustomRole(CustomRoleInput{Name: "Wardrobe", Permissions: []Action{ActionViewShows, ActionViewShows}}, now)
	require.NoError(t, err)
	assert.Equal(t, DefaultCustomHierarchy, noBase.Hierarchy)
	assert.Equal(t, []Action{ActionViewShows}, noBase.Permissions)
}

func TestNewCustomRoleErrors(t *testing.T) {
	now := time.Now()
	_, err := NewCustomRole(CustomRoleInput{Name: "  "}, now)
	assert.ErrorIs(t, err, ErrInvalidRole)

	_, err = NewCustomRole(CustomRoleInput{Name: "!!!"}, now)
	assert.ErrorIs(t, err, ErrInvalidRole)

	_, err = NewCustomRole(CustomRoleInput{Name: "Runner", BasedOn: "ghost"}, now)
	assert.ErrorIs(t, err, ErrUnknownRole)

	_, err = NewCustomRole(CustomRoleInput{Name: "Runner"}, now)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.False(t, verr.Result.Valid)
}

func TestSlugifyTruncates(t *testing.T) {
	long := "Assistant to the assistant of the deputy props supervisor on tour"
	s := Slugify(long)
	assert.LessOrEqual(t, len(s), 48)
	assert.NotEqual(t, byte('-'), s[len(s)-1])
}

func TestApplyCustomUpdate(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r, err := NewCustomRole(CustomRoleInput{Name: "Runner", Permissions: []Action{ActionViewShows}}, now)
	require.NoError(t, err)

	name := "Lead Runner"
	later := now.Add(time.Hour)
	upd, err := ApplyCustomUpdate(r, CustomRoleUpdate{Name: &name, Permissions: []Action{ActionViewShows, ActionViewTasks}}, later)
	require.NoError(t, err)
	assert.Equal(t, 2, upd.Version)
	assert.Equal(t, r.ID, upd.ID)
	assert.Equal(t, "Lead Runner", upd.Name)
	assert.Equal(t, later, upd.UpdatedAt)
	assert.Equal(t, []Action{ActionViewShows}, r.Permissions)

	_, err = ApplyCustomUpdate(r, CustomRoleUpdate{Permissions: []Action{}}, later)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	builtIn, _ := Get("designer")
	_, err = ApplyCustomUpdate(builtIn, CustomRoleUpdate{Name: &name}, later)
	assert.ErrorIs(t, err, ErrBuiltInRole)
}
