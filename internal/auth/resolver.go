package auth

import (
	"context"
	"database/sql"
	"time"

	"gorm.io/gorm"
)

// Grants is what a user holds at the moment of a decision.
type Grants struct {
	// Roles are the names of the roles with an active assignment.
	Roles Set `json:"roles"`
	// Permissions is the union of the permissions granted to Roles.
	Permissions Set `json:"permissions"`
	// ExpiredRoles are roles whose assignment ran out.
	ExpiredRoles Set `json:"expired_roles,omitempty"`
	// ExpiredPermissions are permissions only reachable through ExpiredRoles.
	ExpiredPermissions Set `json:"expired_permissions,omitempty"`
}

// EmptyGrants returns grants holding nothing.
func EmptyGrants() Grants {
	return Grants{
		Roles:              Set{},
		Permissions:        Set{},
		ExpiredRoles:       Set{},
		ExpiredPermissions: Set{},
	}
}

// Resolver computes what a user holds.
// Implementations are read-only and safe for concurrent use.
type Resolver interface {
	Grants(ctx context.Context, userID string) (Grants, error)
}

// Resolve returns the effective permission set of a user.
// A user without assignments resolves to an empty set.
func Resolve(ctx context.Context, r Resolver, userID string) (Set, error) {
	g, err := r.Grants(ctx, userID)
	if err != nil {
		return nil, err
	}

	return g.Permissions, nil
}

// StoreResolver reads grants straight from the database.
type StoreResolver struct {
	db  *gorm.DB
	now func() time.Time
}

// NewStoreResolver creates a resolver over db.
func NewStoreResolver(db *gorm.DB) *StoreResolver {
	return &StoreResolver{db: db, now: time.Now}
}

type grantRow struct {
	RoleName  string
	ExpiresAt sql.NullTime
	Code      sql.NullString
}

// Grants loads the role assignments of userID and unions the permissions of the assigned roles.
func (r *StoreResolver) Grants(ctx context.Context, userID string) (Grants, error) {
	g := EmptyGrants()
	if userID == "" {
		return g, nil
	}

	var rows []grantRow

	err := r.db.WithContext(ctx).
		Table("user_roles").
		Select("roles.name AS role_name, user_roles.expires_at AS expires_at, permissions.code AS code").
		Joins("JOIN roles ON roles.id = user_roles.role_id").
		Joins("LEFT JOIN role_permissions ON role_permissions.role_id = roles.id").
		Joins("LEFT JOIN permissions ON permissions.id = role_permissions.permission_id").
		Where("user_roles.user_id = ?", userID).
		Scan(&rows).Error
	if err != nil {
		return Grants{}, storeErr("resolve grants", err)
	}

	now := r.now()

	for _, row := range rows {
		if !row.ExpiresAt.Valid || row.ExpiresAt.Time.After(now) {
			g.Roles[row.RoleName] = struct{}{}
			if row.Code.Valid {
				g.Permissions[row.Code.String] = struct{}{}
			}

			continue
		}

		g.ExpiredRoles[row.RoleName] = struct{}{}
		if row.Code.Valid {
			g.ExpiredPermissions[row.Code.String] = struct{}{}
		}
	}

	// a permission granted by an active role is not expired
	for code := range g.Permissions {
		delete(g.ExpiredPermissions, code)
	}

	return g, nil
}
