package user

import "time"

// Role определяет, может ли пользователь создавать запросы на запись.
type Role string

const (
	RolePatient  Role = "patient"
	RoleProvider Role = "provider"
)

func (r Role) Valid() bool {
	return r == RolePatient || r == RoleProvider
}

type User struct {
	ID        int64
	Email     string
	Password  string // хэш
	Role      Role
	CreatedAt time.Time
}
