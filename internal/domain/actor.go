package domain

type Role string

const (
	RoleCustomer Role = "customer"
	RoleProvider Role = "provider"
)

// Actor is the authenticated user on whose behalf a component operates.
// Role may be empty before authentication completes.
type Actor struct {
	ID          string `json:"id"`
	Role        Role   `json:"role"`
	DisplayName string `json:"display_name"`
}
