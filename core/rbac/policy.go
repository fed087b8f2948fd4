package rbac

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

var modelText = `
[request_definition]
r = sub, act

[policy_definition]
p = sub, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && r.act == p.act
`

type Policy struct {
	mu        sync.RWMutex
	enforcer  *casbin.SyncedEnforcer
	rolePerms map[string]map[Permission]struct{}
}

func NewPolicy(roles []Role) (*Policy, error) {
	p := &Policy{rolePerms: map[string]map[Permission]struct{}{}}
	if err := p.Replace(roles); err != nil {
		return nil, err
	}
	return p, nil
}

func newEnforcer(rules [][]string) (*casbin.SyncedEnforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("rbac model: %w", err)
	}
	e, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("rbac enforcer: %w", err)
	}
	if len(rules) > 0 {
		if _, err := e.AddPolicies(rules); err != nil {
			return nil, fmt.Errorf("rbac rules: %w", err)
		}
	}
	return e, nil
}

func (p *Policy) Allowed(userRoles []string, perm Permission) bool {
	if p == nil {
		return false
	}
	p.mu.RLock()
	e := p.enforcer
	p.mu.RUnlock()
	if e == nil {
		return false
	}
	for _, r := range userRoles {
		r = strings.ToLower(strings.TrimSpace(r))
		if r == "" {
			continue
		}
		ok, err := e.Enforce(r, string(perm))
		if err == nil && ok {
			return true
		}
	}
	return false
}

// Roles lists role IDs known to the policy, sorted.
func (p *Policy) Roles() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	keys := make([]string, 0, len(p.rolePerms))
	for k := range p.rolePerms {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// PermissionsForRoles returns the union of permissions for the provided roles.
func (p *Policy) PermissionsForRoles(roles []string) []Permission {
	if p == nil {
		return nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	set := map[Permission]struct{}{}
	for _, r := range roles {
		if perms, ok := p.rolePerms[strings.ToLower(strings.TrimSpace(r))]; ok {
			for perm := range perms {
				set[perm] = struct{}{}
			}
		}
	}
	out := make([]Permission, 0, len(set))
	for perm := range set {
		out = append(out, perm)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Replace swaps the whole table; readers see either the old or the new enforcer.
// On error the previous table stays in force.
func (p *Policy) Replace(roles []Role) error {
	rp := make(map[string]map[Permission]struct{})
	var rules [][]string
	for _, r := range roles {
		name := strings.ToLower(strings.TrimSpace(r.Name))
		if name == "" {
			continue
		}
		m := rp[name]
		if m == nil {
			m = make(map[Permission]struct{})
			rp[name] = m
		}
		for _, perm := range r.Permissions {
			if _, dup := m[perm]; dup {
				continue
			}
			m[perm] = struct{}{}
			rules = append(rules, []string{name, string(perm)})
		}
	}
	e, err := newEnforcer(rules)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.rolePerms = rp
	p.enforcer = e
	p.mu.Unlock()
	return nil
}
