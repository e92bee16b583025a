package auth

import (
	"context"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

// Reason tells why a decision denied access.
type Reason string

const (
	// ReasonNone is the reason of an allow.
	ReasonNone Reason = ""
	// ReasonUnauthenticated means no user id was supplied.
	ReasonUnauthenticated Reason = "unauthenticated"
	// ReasonInsufficientRole means the user holds none of the required roles or permissions.
	ReasonInsufficientRole Reason = "insufficient_role"
	// ReasonRoleNotFound means the requirement names a role or permission that does not exist.
	ReasonRoleNotFound Reason = "role_not_found"
)

// Detail values recorded with a denial. They are never shown to end users.
const (
	DetailMissingGrant = "missing_grant"
	DetailExpiredGrant = "expired_grant"
	DetailBypass       = "bypass_role"
)

// Decision is the outcome of evaluating a requirement for a user.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  Reason `json:"reason,omitempty"`
	// Detail refines the reason for operators, e.g. the names that were not found.
	Detail string `json:"-"`
}

// Allow returns an allowing decision.
func Allow() Decision {
	return Decision{Allowed: true}
}

// Deny returns a denying decision.
func Deny(reason Reason, detail string) Decision {
	return Decision{Reason: reason, Detail: detail}
}

// String renders the decision as "allow" or "deny(<reason>)".
func (d Decision) String() string {
	if d.Allowed {
		return "allow"
	}

	return "deny(" + string(d.Reason) + ")"
}

// Catalog tells which role names and permission codes exist.
type Catalog interface {
	MissingRoles(ctx context.Context, names []string) ([]string, error)
	MissingPermissions(ctx context.Context, codes []string) ([]string, error)
}

// Recorder receives every reported decision. Record must not block.
type Recorder interface {
	Record(ctx context.Context, userID string, req Requirement, d Decision)
}

var (
	decisionsOnce sync.Once
	decisions     *prometheus.CounterVec //nolint:gochecknoglobals
)

func decisionCounter() *prometheus.CounterVec {
	decisionsOnce.Do(func() {
		decisions = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authz_decisions_total",
				Help: "Number of authorization decisions, differentiated by outcome and denial reason.",
			},
			[]string{"outcome", "reason"},
		)
	})

	return decisions
}

// Engine answers whether a user satisfies a requirement.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	resolver     Resolver
	catalog      Catalog
	recorder     Recorder
	bypassRole   string
	recordAllows bool
	counter      *prometheus.CounterVec
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithRecorder reports decisions to r.
func WithRecorder(r Recorder) EngineOption {
	return func(e *Engine) {
		e.recorder = r
	}
}

// WithRecordAllows reports allows too, denials are always reported.
func WithRecordAllows(on bool) EngineOption {
	return func(e *Engine) {
		e.recordAllows = on
	}
}

// WithBypassRole lets holders of role pass every requirement whose references exist.
func WithBypassRole(role string) EngineOption {
	return func(e *Engine) {
		e.bypassRole = NormalizeRoleName(role)
	}
}

// NewEngine creates a decision engine.
func NewEngine(resolver Resolver, catalog Catalog, opts ...EngineOption) *Engine {
	e := &Engine{
		resolver: resolver,
		catalog:  catalog,
		counter:  decisionCounter(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Decide evaluates req for userID. An empty userID is an anonymous caller.
// Errors wrap ErrStoreUnavailable or ErrInvalidRequirement and are never a denial.
func (e *Engine) Decide(ctx context.Context, userID string, req Requirement) (Decision, error) {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return Decision{}, err
	}

	d, err := e.decide(ctx, userID, req)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Stringer("requirement", req).Msg("authorization could not be determined")
		return Decision{}, err
	}

	e.report(ctx, userID, req, d)

	return d, nil
}

func (e *Engine) decide(ctx context.Context, userID string, req Requirement) (Decision, error) {
	if req.IsPublic() {
		return Allow(), nil
	}

	if userID == "" {
		return Deny(ReasonUnauthenticated, ""), nil
	}

	missing, err := e.missing(ctx, req)
	if err != nil {
		return Decision{}, err
	}

	if len(missing) > 0 {
		log.Error().
			Str("user_id", userID).
			Stringer("requirement", req).
			Strs("missing", missing).
			Msg("requirement references unknown roles or permissions")

		return Deny(ReasonRoleNotFound, "missing: "+strings.Join(missing, ",")), nil
	}

	g, err := e.resolver.Grants(ctx, userID)
	if err != nil {
		return Decision{}, err //nolint:wrapcheck
	}

	if e.bypassRole != "" && g.Roles.Has(e.bypassRole) {
		d := Allow()
		d.Detail = DetailBypass

		return d, nil
	}

	if req.SatisfiedBy(g) {
		return Allow(), nil
	}

	expired := Grants{Roles: g.ExpiredRoles, Permissions: g.ExpiredPermissions}
	if req.SatisfiedBy(expired) {
		return Deny(ReasonInsufficientRole, DetailExpiredGrant), nil
	}

	return Deny(ReasonInsufficientRole, DetailMissingGrant), nil
}

func (e *Engine) missing(ctx context.Context, req Requirement) ([]string, error) {
	if req.Permission != "" {
		return e.catalog.MissingPermissions(ctx, []string{req.Permission}) //nolint:wrapcheck
	}

	return e.catalog.MissingRoles(ctx, req.AnyRole) //nolint:wrapcheck
}

func (e *Engine) report(ctx context.Context, userID string, req Requirement, d Decision) {
	outcome := "allow"
	if !d.Allowed {
		outcome = "deny"
	}

	e.counter.WithLabelValues(outcome, string(d.Reason)).Inc()

	if e.recorder == nil || (d.Allowed && !e.recordAllows) {
		return
	}

	e.recorder.Record(ctx, userID, req, d)
}
