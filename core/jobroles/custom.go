package jobroles

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
)

var (
	ErrUnknownRole     = errors.New("unknown job role")
	ErrInvalidRole     = errors.New("invalid job role")
	ErrBuiltInRole     = errors.New("built-in job role cannot be modified")
	ErrNotCustomizable = errors.New("job role is not customizable")
)

const (
	CustomIDPrefix = "custom-"
	maxSlugLength  = 48
)

type CustomRoleInput struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	Permissions []Action `json:"permissions" yaml:"permissions"`
	BasedOn     string   `json:"based_on" yaml:"based_on"`
	CreatedBy   string   `json:"-" yaml:"-"`
}

type CustomRoleUpdate struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Permissions []Action `json:"permissions"`
}

// NewCustomRole derives a custom role. When no permissions are supplied the
// base role's permissions are copied.
func NewCustomRole(in CustomRoleInput, now time.Time) (Role, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Role{}, fmt.Errorf("%w: name is required", ErrInvalidRole)
	}
	slug := Slugify(name)
	if slug == "" {
		return Role{}, fmt.Errorf("%w: name has no usable characters", ErrInvalidRole)
	}
	role := Role{
		ID:             CustomIDPrefix + slug,
		Name:           name,
		Description:    strings.TrimSpace(in.Description),
		Category:       CategoryCustom,
		Hierarchy:      DefaultCustomHierarchy,
		IsCustomizable: true,
		IsCustom:       true,
		Version:        1,
		CreatedBy:      in.CreatedBy,
		CreatedAt:      now.UTC(),
		UpdatedAt:      now.UTC(),
	}
	perms := append([]Action(nil), in.Permissions...)
	if base := normalizeID(in.BasedOn); base != "" {
		b, ok := Get(base)
		if !ok {
			return Role{}, fmt.Errorf("%w: %s", ErrUnknownRole, in.BasedOn)
		}
		if !b.IsCustomizable {
			return Role{}, fmt.Errorf("%w: %s", ErrNotCustomizable, b.ID)
		}
		role.BasedOn = b.ID
		role.Hierarchy = b.Hierarchy
		if len(perms) == 0 {
			perms = append(perms, b.Permissions...)
		}
	}
	res := ValidatePermissions(perms)
	if !res.Valid {
		return Role{}, &ValidationError{Result: res}
	}
	role.Permissions = dedupe(perms)
	return role, nil
}

// ApplyCustomUpdate returns the updated copy with Version bumped.
func ApplyCustomUpdate(role Role, upd CustomRoleUpdate, now time.Time) (Role, error) {
	if !role.IsCustom || IsBuiltIn(role.ID) {
		return Role{}, fmt.Errorf("%w: %s", ErrBuiltInRole, role.ID)
	}
	out := role.clone()
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return Role{}, fmt.Errorf("%w: name is required", ErrInvalidRole)
		}
		out.Name = name
	}
	if upd.Description != nil {
		out.Description = strings.TrimSpace(*upd.Description)
	}
	if upd.Permissions != nil {
		res := ValidatePermissions(upd.Permissions)
		if !res.Valid {
			return Role{}, &ValidationError{Result: res}
		}
		out.Permissions = dedupe(upd.Permissions)
	}
	out.Version = role.Version + 1
	out.UpdatedAt = now.UTC()
	return out, nil
}

// Slugify lowercases s and collapses every run of non-alphanumerics into "-".
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.Trim(b.String(), "-")
	if len(out) > maxSlugLength {
		out = strings.TrimRight(out[:maxSlugLength], "-")
	}
	return out
}

func dedupe(in []Action) []Action {
	seen := make(map[Action]struct{}, len(in))
	out := make([]Action, 0, len(in))
	for _, a := range in {
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	sortActions(out)
	return out
}
