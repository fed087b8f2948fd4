package jobroles

type MatrixRow struct {
	RoleID    string          `json:"role_id"`
	Name      string          `json:"name"`
	Hierarchy int             `json:"hierarchy"`
	Grants    map[Action]bool `json:"grants"`
}

type Matrix struct {
	Actions []Action    `json:"actions"`
	Rows    []MatrixRow `json:"rows"`
}

// PermissionMatrix builds a role x action grid. Every row carries an entry for
// every known action. Without arguments the static registry is used.
func PermissionMatrix(roles ...Role) Matrix {
	if len(roles) == 0 {
		roles = Roles()
	}
	m := Matrix{Actions: AllActions(), Rows: make([]MatrixRow, 0, len(roles))}
	for _, r := range roles {
		granted := actionSet(r.Permissions)
		row := MatrixRow{
			RoleID:    r.ID,
			Name:      r.Name,
			Hierarchy: r.Hierarchy,
			Grants:    make(map[Action]bool, len(m.Actions)),
		}
		for _, a := range m.Actions {
			_, ok := granted[a]
			row.Grants[a] = ok
		}
		m.Rows = append(m.Rows, row)
	}
	return m
}
