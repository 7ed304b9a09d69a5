package domain

const (
	RoleStudent = "student"
	RoleManager = "manager"
)

// Identity is the caller as decided by the external identity provider. An
// empty UserID means the request is unauthenticated.
type Identity struct {
	UserID string
	Role   string
}
