// Package auth provides staff users, roles, sessions, passkeys and API keys.
package auth

import "context"

// Role groups a set of permissions.
type Role string

const (
	Admin     Role = "admin"
	Staff     Role = "staff"
	Volunteer Role = "volunteer"
)

// ValidRoles is the set of allowed roles.
var ValidRoles = []Role{Admin, Staff, Volunteer}

// IsValid checks if a role is recognized.
func (r Role) IsValid() bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// Label returns a human-readable label for the role.
func (r Role) Label() string {
	switch r {
	case Admin:
		return "Administrator"
	case Staff:
		return "Staff"
	case Volunteer:
		return "Volunteer"
	default:
		return string(r)
	}
}

// Permission keys checked by RequirePermission.
const (
	PermEquipmentView     = "equipment.view"
	PermEquipmentManage   = "equipment.manage"
	PermMaintenanceRecord = "maintenance.record"
	PermVisitorsView      = "visitors.view"
	PermVisitorsManage    = "visitors.manage"
	PermFollowupsRecord   = "followups.record"
	PermMembersManage     = "members.manage"
	PermReportsView       = "reports.view"
	PermReportsExport     = "reports.export"
	PermUsersManage       = "users.manage"
)

var rolePermissions = map[Role][]string{
	Admin: {
		PermEquipmentView, PermEquipmentManage, PermMaintenanceRecord,
		PermVisitorsView, PermVisitorsManage, PermFollowupsRecord,
		PermMembersManage, PermReportsView, PermReportsExport, PermUsersManage,
	},
	Staff: {
		PermEquipmentView, PermEquipmentManage, PermMaintenanceRecord,
		PermVisitorsView, PermVisitorsManage, PermFollowupsRecord,
		PermMembersManage, PermReportsView, PermReportsExport,
	},
	Volunteer: {
		PermEquipmentView, PermMaintenanceRecord,
		PermVisitorsView, PermFollowupsRecord, PermReportsView,
	},
}

// Can reports whether role r grants perm.
func (r Role) Can(perm string) bool {
	for _, p := range rolePermissions[r] {
		if p == perm {
			return true
		}
	}
	return false
}

type userKey struct{}

// WithUser attaches the signed-in user to ctx.
func WithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// UserFrom returns the signed-in user, or nil.
func UserFrom(ctx context.Context) *User {
	u, _ := ctx.Value(userKey{}).(*User)
	return u
}
