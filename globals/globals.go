package globals

// Context keys
type ContextKey string

const (
	UserIDKey ContextKey = "userId"
	RoleKey   ContextKey = "role"
	PhoneKey  ContextKey = "phone"
)

// Roles a user can hold. Fixed at signup.
const (
	RoleEmployee = "employee"
	RoleEmployer = "employer"
)
