package jobroles

import "fmt"

type Comparison struct {
	RoleA      string   `json:"role_a"`
	RoleB      string   `json:"role_b"`
	Common     []Action `json:"common"`
	OnlyInA    []Action `json:"only_in_a"`
	OnlyInB    []Action `json:"only_in_b"`
	Similarity float64  `json:"similarity"`
}

// Compare computes the permission set difference of two roles.
// Similarity is the Jaccard index of the two sets.
func Compare(a, b Role) Comparison {
	setA := actionSet(a.Permissions)
	setB := actionSet(b.Permissions)
	cmp := Comparison{
		RoleA:   a.ID,
		RoleB:   b.ID,
		Common:  []Action{},
		OnlyInA: []Action{},
		OnlyInB: []Action{},
	}
	for p := range setA {
		if _, ok := setB[p]; ok {
			cmp.Common = append(cmp.Common, p)
		} else {
			cmp.OnlyInA = append(cmp.OnlyInA, p)
		}
	}
	for p := range setB {
		if _, ok := setA[p]; !ok {
			cmp.OnlyInB = append(cmp.OnlyInB, p)
		}
	}
	sortActions(cmp.Common)
	sortActions(cmp.OnlyInA)
	sortActions(cmp.OnlyInB)
	union := len(cmp.Common) + len(cmp.OnlyInA) + len(cmp.OnlyInB)
	if union > 0 {
		cmp.Similarity = float64(len(cmp.Common)) / float64(union)
	}
	return cmp
}

func CompareByID(a, b string) (Comparison, error) {
	ra, ok := Get(a)
	if !ok {
		return Comparison{}, fmt.Errorf("%w: %s", ErrUnknownRole, a)
	}
	rb, ok := Get(b)
	if !ok {
		return Comparison{}, fmt.Errorf("%w: %s", ErrUnknownRole, b)
	}
	return Compare(ra, rb), nil
}

func actionSet(in []Action) map[Action]struct{} {
	out := make(map[Action]struct{}, len(in))
	for _, a := range in {
		out[a] = struct{}{}
	}
	return out
}
