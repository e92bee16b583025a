package auth

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/comunidade-central/accessctl/internal/cache"
	"github.com/comunidade-central/accessctl/internal/db/controller/requirement"
)

// Service bundles the stores, the resolver and the engine sharing one database.
type Service struct {
	DB          *gorm.DB
	Roles       *RoleStore
	Assignments *AssignmentStore
	Resolver    Resolver
	Engine      *Engine

	invalidator Invalidator
}

type serviceOptions struct {
	cache        cache.Cache
	recorder     Recorder
	recordAllows bool
	bypassRole   string
	critical     []string
}

// ServiceOption configures NewService.
type ServiceOption func(*serviceOptions)

// WithCache caches resolved grants in c.
func WithCache(c cache.Cache) ServiceOption {
	return func(o *serviceOptions) {
		o.cache = c
	}
}

// WithDecisionRecorder reports decisions to r. Allows are reported when recordAllows is set.
func WithDecisionRecorder(r Recorder, recordAllows bool) ServiceOption {
	return func(o *serviceOptions) {
		o.recorder = r
		o.recordAllows = recordAllows
	}
}

// WithBypass lets holders of role pass every valid requirement.
func WithBypass(role string) ServiceOption {
	return func(o *serviceOptions) {
		o.bypassRole = role
	}
}

// WithCriticalRoles protects roles from deletion and from losing their last holder.
func WithCriticalRoles(roles ...string) ServiceOption {
	return func(o *serviceOptions) {
		o.critical = roles
	}
}

// NewService creates an authorization service.
func NewService(db *gorm.DB, opts ...ServiceOption) *Service {
	var o serviceOptions
	for _, opt := range opts {
		opt(&o)
	}

	var (
		resolver    Resolver    = NewStoreResolver(db)
		invalidator Invalidator = noopInvalidator{}
	)

	if o.cache != nil {
		cached := NewCachedResolver(resolver, o.cache)
		resolver = cached
		invalidator = cached
	}

	roles := NewRoleStore(db, invalidator, o.critical...)

	engineOpts := []EngineOption{WithRecordAllows(o.recordAllows)}
	if o.recorder != nil {
		engineOpts = append(engineOpts, WithRecorder(o.recorder))
	}

	if o.bypassRole != "" {
		engineOpts = append(engineOpts, WithBypassRole(o.bypassRole))
	}

	return &Service{
		DB:          db,
		Roles:       roles,
		Assignments: NewAssignmentStore(db, invalidator, o.critical...),
		Resolver:    resolver,
		Engine:      NewEngine(resolver, roles, engineOpts...),
		invalidator: invalidator,
	}
}

// InvalidateAll drops the cached grants of every user.
// Needed after changes that bypassed the stores, such as seeding or edits made directly in the database.
func (s *Service) InvalidateAll(ctx context.Context) {
	s.invalidator.InvalidateAll(ctx)
}

// Decide evaluates req for userID.
func (s *Service) Decide(ctx context.Context, userID string, req Requirement) (Decision, error) {
	return s.Engine.Decide(ctx, userID, req)
}

// HasPermission reports whether userID holds the permission code.
// The bypass role is not applied, this is a plain lookup.
func (s *Service) HasPermission(ctx context.Context, userID, code string) (bool, error) {
	perms, err := Resolve(ctx, s.Resolver, userID)
	if err != nil {
		return false, err
	}

	return perms.Has(code), nil
}

// GetUserPermissions returns the sorted permission codes of userID.
func (s *Service) GetUserPermissions(ctx context.Context, userID string) ([]string, error) {
	perms, err := Resolve(ctx, s.Resolver, userID)
	if err != nil {
		return nil, err
	}

	return perms.Sorted(), nil
}

// ResourceRequirement returns the stored requirement of a resource.
// found is false when the resource has none.
func (s *Service) ResourceRequirement(ctx context.Context, resourceType, resourceID string) (Requirement, bool, error) {
	m, err := requirement.Get(s.DB.WithContext(ctx), resourceType, resourceID)

	switch {
	case errors.Is(err, requirement.ErrRequirementNotFound):
		return Requirement{}, false, nil
	case errors.Is(err, requirement.ErrResourceEmpty):
		return Requirement{}, false, ErrInvalidRequirement
	case err != nil:
		return Requirement{}, false, storeErr("get resource requirement", err)
	}

	req, err := RequirementFromModel(m)
	if err != nil {
		return Requirement{}, false, err
	}

	return req, true, nil
}

// DecideResource evaluates the stored requirement of a resource for userID.
// Resources without a stored requirement use fallback.
func (s *Service) DecideResource(
	ctx context.Context, userID, resourceType, resourceID string, fallback Requirement,
) (Decision, Requirement, error) {
	req, found, err := s.ResourceRequirement(ctx, resourceType, resourceID)
	if err != nil {
		return Decision{}, Requirement{}, err
	}

	if !found {
		req = fallback
	}

	d, err := s.Engine.Decide(ctx, userID, req)

	return d, req, err
}
