package auth

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/comunidade-central/accessctl/internal/cache"
)

// CachedResolver keeps the grants of recently seen users in a cache.
// Concurrent misses for one user share a single store read.
// It is also the Invalidator of the stores writing the grants it caches.
type CachedResolver struct {
	next  Resolver
	cache cache.Cache
	group singleflight.Group
}

// NewCachedResolver wraps next with c.
func NewCachedResolver(next Resolver, c cache.Cache) *CachedResolver {
	return &CachedResolver{next: next, cache: c}
}

// Grants implements Resolver.
// A failing cache is logged and bypassed, it never fails the decision.
func (r *CachedResolver) Grants(ctx context.Context, userID string) (Grants, error) {
	if userID == "" {
		return EmptyGrants(), nil
	}

	b, ok, err := r.cache.Get(ctx, userID)

	switch {
	case err != nil:
		log.Warn().Err(err).Str("user_id", userID).Msg("grant cache read failed")
	case ok:
		var g Grants
		if err = json.Unmarshal(b, &g); err == nil {
			return g.withSets(), nil
		}

		log.Warn().Err(err).Str("user_id", userID).Msg("dropping undecodable grant cache entry")
	}

	v, err, _ := r.group.Do(userID, func() (any, error) {
		g, err := r.next.Grants(ctx, userID)
		if err != nil {
			return Grants{}, err
		}

		if b, err := json.Marshal(g); err == nil {
			if err = r.cache.Set(ctx, userID, b); err != nil {
				log.Warn().Err(err).Str("user_id", userID).Msg("grant cache write failed")
			}
		}

		return g, nil
	})
	if err != nil {
		return Grants{}, err //nolint:wrapcheck
	}

	return v.(Grants), nil //nolint:forcetypeassert
}

// InvalidateUsers implements Invalidator.
func (r *CachedResolver) InvalidateUsers(ctx context.Context, userIDs ...string) {
	if len(userIDs) == 0 {
		return
	}

	for _, id := range userIDs {
		r.group.Forget(id)
	}

	if err := r.cache.Delete(ctx, userIDs...); err != nil {
		log.Error().Err(err).Strs("user_ids", userIDs).Msg("grant cache invalidation failed, entries expire with the cache ttl")
	}
}

// InvalidateAll implements Invalidator.
func (r *CachedResolver) InvalidateAll(ctx context.Context) {
	if err := r.cache.Flush(ctx); err != nil {
		log.Error().Err(err).Msg("grant cache flush failed, entries expire with the cache ttl")
	}
}

// withSets replaces nil sets left by decoding.
func (g Grants) withSets() Grants {
	if g.Roles == nil {
		g.Roles = Set{}
	}

	if g.Permissions == nil {
		g.Permissions = Set{}
	}

	if g.ExpiredRoles == nil {
		g.ExpiredRoles = Set{}
	}

	if g.ExpiredPermissions == nil {
		g.ExpiredPermissions = Set{}
	}

	return g
}
