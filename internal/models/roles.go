package models

// Role is the closed set of account roles. Authorization is a total-order
// comparison: user < author < admin.
type Role string

const (
	RoleUser   Role = "user"
	RoleAuthor Role = "author"
	RoleAdmin  Role = "admin"
)

var roleLevels = map[Role]int{
	RoleUser:   1,
	RoleAuthor: 2,
	RoleAdmin:  3,
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := roleLevels[r]
	return ok
}

// Level returns the ordinal rank of the role. Unknown roles rank below every
// known role so a corrupted claim can never pass an authorization check.
func (r Role) Level() int {
	return roleLevels[r]
}

// AtLeast reports whether r satisfies the required role.
func (r Role) AtLeast(required Role) bool {
	return r.Level() >= required.Level()
}
