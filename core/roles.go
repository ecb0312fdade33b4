package core

import "strings"

// Roles, carried by the JWT claims of the authenticated caller.
const (
	// Admin
	RoleAdmin          = "admin:"
	RoleAdminOwner     = "admin:owner"
	RoleAdminPrincipal = "admin:principal"
	RoleAdminRegistrar = "admin:registrar"

	// Teacher
	RoleTeacher = "teacher:"
)

var (
	AdminRoles   = []string{RoleAdmin, RoleAdminOwner, RoleAdminPrincipal, RoleAdminRegistrar}
	TeacherRoles = []string{RoleTeacher}
	AllRoles     = append(append([]string{}, AdminRoles...), TeacherRoles...)
)

// RolesStartWith reports whether one of roles starts with prefix.
func RolesStartWith(roles []string, prefix string) bool {
	for _, role := range roles {
		if strings.HasPrefix(role, prefix) {
			return true
		}
	}
	return false
}

func IsAdmin(roles []string) bool   { return RolesStartWith(roles, RoleAdmin) }
func IsTeacher(roles []string) bool { return RolesStartWith(roles, RoleTeacher) }

// IsValidRole reports whether role is one of AllRoles.
func IsValidRole(role string) bool {
	for _, r := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}
