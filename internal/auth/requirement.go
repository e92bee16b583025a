package auth

import (
	"fmt"
	"strings"

	"github.com/comunidade-central/accessctl/internal/db/models"
)

// Requirement is the access condition declared by a resource.
// The zero value is a public requirement.
type Requirement struct {
	// Permission must be present in the user's resolved permission set.
	Permission string `json:"permission,omitempty"`
	// AnyRole lists acceptable roles; holding one of them is enough.
	AnyRole []string `json:"any_role,omitempty"`

	// blank marks a requirement whose names were all empty. It is never public.
	blank bool
}

// Public returns a requirement every caller satisfies, including anonymous ones.
func Public() Requirement {
	return Requirement{}
}

// RequirePermission returns a requirement for a single permission code.
// A blank code yields a requirement that fails validation.
func RequirePermission(code string) Requirement {
	code = strings.TrimSpace(code)
	if code == "" {
		return Requirement{blank: true}
	}

	return Requirement{Permission: code}
}

// RequireAnyRole returns a requirement satisfied by holding at least one of names.
// Blank names are dropped; when none is left the requirement fails validation.
func RequireAnyRole(names ...string) Requirement {
	roles := make([]string, 0, len(names))

	for _, name := range names {
		if n := NormalizeRoleName(name); n != "" {
			roles = append(roles, n)
		}
	}

	if len(roles) == 0 {
		return Requirement{blank: true}
	}

	return Requirement{AnyRole: roles}
}

// NormalizeRoleName returns the stored form of a role name.
func NormalizeRoleName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// IsPublic reports whether the requirement is empty.
func (r Requirement) IsPublic() bool {
	return !r.blank && r.Permission == "" && len(r.AnyRole) == 0
}

// Validate rejects requirements mixing a permission and roles,
// and requirements naming only blank permissions or roles.
func (r Requirement) Validate() error {
	switch {
	case r.blank:
		return fmt.Errorf("%w: blank permission or role names", ErrInvalidRequirement)
	case r.Permission != "" && strings.TrimSpace(r.Permission) == "":
		return fmt.Errorf("%w: blank permission", ErrInvalidRequirement)
	case len(r.AnyRole) > 0 && RequireAnyRole(r.AnyRole...).blank:
		return fmt.Errorf("%w: blank role names", ErrInvalidRequirement)
	case r.Permission != "" && len(r.AnyRole) > 0:
		return fmt.Errorf("%w: permission and roles are mutually exclusive", ErrInvalidRequirement)
	}

	return nil
}

// Normalize returns the requirement with role names in stored form.
// Names that trim to nothing leave a requirement that fails Validate, never a public one.
func (r Requirement) Normalize() Requirement {
	switch {
	case r.blank:
		return r
	case len(r.AnyRole) == 0 && r.Permission == "":
		return Public()
	case len(r.AnyRole) == 0:
		return RequirePermission(r.Permission)
	case r.Permission == "":
		return RequireAnyRole(r.AnyRole...)
	}

	out := RequireAnyRole(r.AnyRole...)
	out.Permission = strings.TrimSpace(r.Permission)

	if out.Permission == "" {
		out.blank = true
	}

	return out
}

// SatisfiedBy reports whether grants meet the requirement.
func (r Requirement) SatisfiedBy(g Grants) bool {
	switch {
	case r.blank:
		return false
	case r.IsPublic():
		return true
	case r.Permission != "":
		return g.Permissions.Has(r.Permission)
	default:
		return g.Roles.HasAny(r.AnyRole...)
	}
}

// String renders the requirement as "public", "permission:<code>" or "any_role:<A>,<B>".
func (r Requirement) String() string {
	switch {
	case r.blank:
		return "invalid"
	case r.IsPublic():
		return "public"
	case r.Permission != "":
		return "permission:" + r.Permission
	default:
		return "any_role:" + strings.Join(r.AnyRole, ",")
	}
}

// ParseRequirement reads the String form back.
func ParseRequirement(s string) (Requirement, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "public" {
		return Public(), nil
	}

	kind, value, ok := strings.Cut(s, ":")
	if !ok || strings.TrimSpace(value) == "" {
		return Requirement{}, fmt.Errorf("%w: %q", ErrInvalidRequirement, s)
	}

	switch kind {
	case "permission":
		return RequirePermission(value), nil
	case "any_role":
		req := RequireAnyRole(strings.Split(value, ",")...)
		if req.blank {
			return Requirement{}, fmt.Errorf("%w: no role names in %q", ErrInvalidRequirement, s)
		}

		return req, nil
	default:
		return Requirement{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidRequirement, kind)
	}
}

// RequirementFromModel converts a stored resource requirement.
func RequirementFromModel(m *models.ResourceRequirement) (Requirement, error) {
	switch m.Kind {
	case models.RequirementPublic:
		return Public(), nil
	case models.RequirementPermission:
		if strings.TrimSpace(m.Permission) == "" {
			return Requirement{}, fmt.Errorf("%w: permission requirement without code", ErrInvalidRequirement)
		}

		return RequirePermission(m.Permission), nil
	case models.RequirementRoles:
		req := RequireAnyRole(m.Roles...)
		if req.blank {
			return Requirement{}, fmt.Errorf("%w: roles requirement without roles", ErrInvalidRequirement)
		}

		return req, nil
	default:
		return Requirement{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidRequirement, m.Kind)
	}
}
