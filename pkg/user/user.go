package user

// Role drives authorization decisions for privileged ledger operations.
type Role string

const (
	RoleUser       Role = "user"
	RoleSuperadmin Role = "superadmin"
)

type User struct {
	Id          int
	Uid         string
	Username    string
	DisplayName string
	Role        Role
	// Location is an optional site/office attribute used to filter
	// reimbursement listings.
	Location string
}

// IsPrivileged reports whether the user may perform superadmin-only
// operations such as settling reimbursements.
func (u User) IsPrivileged() bool {
	return u.Role == RoleSuperadmin
}
