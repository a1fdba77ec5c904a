package featureflags

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hirelocal/hirelocal-backend/pkg/logger"
)

// Store is the flag value backend, satisfied by pkg/redis.Client.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	FlagKey(name string) string
}

// Service evaluates boolean feature flags. Lookups that error or find no
// value report the flag as disabled, so a broken backend never turns a
// gated feature on.
type Service struct {
	store Store
	logg  *logger.Logger
}

func NewService(store Store, logg *logger.Logger) *Service {
	return &Service{store: store, logg: logg}
}

// IsEnabled reports whether the named flag is switched on. Every call reads
// the backend, so flipping a flag takes effect on the next request.
func (s *Service) IsEnabled(ctx context.Context, name string) bool {
	if s == nil || s.store == nil || strings.TrimSpace(name) == "" {
		return false
	}

	value, err := s.store.Get(ctx, s.store.FlagKey(name))
	if err != nil {
		if s.logg != nil && err != redis.Nil {
			ctx = s.logg.WithField(ctx, "flag", name)
			s.logg.Warn(ctx, "feature flag lookup failed, treating as disabled")
		}
		return false
	}
	return parseFlagValue(value)
}

// Enable sets the named flag on with no expiry.
func (s *Service) Enable(ctx context.Context, name string) error {
	return s.store.Set(ctx, s.store.FlagKey(name), "true", 0)
}

// Disable sets the named flag off with no expiry.
func (s *Service) Disable(ctx context.Context, name string) error {
	return s.store.Set(ctx, s.store.FlagKey(name), "false", 0)
}

func parseFlagValue(value string) bool {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "true", "1", "on", "enabled":
		return true
	default:
		return false
	}
}
