package models

// All returns every model managed by the database migration, in dependency order.
func All() []any {
	return []any{
		&Role{},
		&Permission{},
		&RolePermission{},
		&UserRole{},
		&ResourceRequirement{},
		&AuditEntry{},
	}
}
