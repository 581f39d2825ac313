package domain

const (
	RoleUser      = "user"
	RoleSuperuser = "superuser"
)

// Role derives the authorization role from the superuser flag.
func (u *User) Role() string {
	if u.IsSuperuser {
		return RoleSuperuser
	}
	return RoleUser
}
