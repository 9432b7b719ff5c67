package auth

// Role define los roles soportados.
// @Enum customer, admin
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// Claims representa la información extraída del token.
type Claims struct {
	UserID string
	Email  string
	Role   Role
}

func (c Claims) IsAdmin() bool {
	return c.Role == RoleAdmin
}
