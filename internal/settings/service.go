package settings

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/cargofol/cargofol/internal/audit"
	"github.com/cargofol/cargofol/internal/shared"
)

const (
	snapshotCacheKey = "settings:rates"
	snapshotCacheTTL = 30 * time.Second
)

// RepositoryPort describes storage operations used by Service.
type RepositoryPort interface {
	List(ctx context.Context) ([]Setting, error)
	LoadValues(ctx context.Context) (map[string]float64, error)
	Get(ctx context.Context, key string) (Setting, error)
	Upsert(ctx context.Context, s Setting) error
}

// AuditPort records settings changes.
type AuditPort interface {
	Record(ctx context.Context, entry audit.Entry) error
}

// Service coordinates settings reads and the administrative update path.
type Service struct {
	repo   RepositoryPort
	cache  *redis.Client
	audit  AuditPort
	logger *slog.Logger
	group  singleflight.Group
}

// NewService builds Service. cache and auditor may be nil.
func NewService(repo RepositoryPort, cache *redis.Client, auditor AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, audit: auditor, logger: logger}
}

// List returns all stored settings rows.
func (s *Service) List(ctx context.Context) ([]Setting, error) {
	return s.repo.List(ctx)
}

// Snapshot reads every rate once and returns an immutable snapshot for a
// single calculation. A malformed stored value aborts with ConfigError.
func (s *Service) Snapshot(ctx context.Context) (Rates, error) {
	if values, ok := s.cachedValues(ctx); ok {
		return NewRates(values), nil
	}

	// Concurrent misses collapse into one store read.
	result, err, _ := s.group.Do(snapshotCacheKey, func() (any, error) {
		values, err := s.repo.LoadValues(ctx)
		if err != nil {
			return nil, err
		}
		s.storeCache(ctx, values)
		return values, nil
	})
	if err != nil {
		return Rates{}, err
	}
	return NewRates(result.(map[string]float64)), nil
}

// UpdateInput is the administrative update payload.
type UpdateInput struct {
	Key         string  `json:"key" validate:"required"`
	Value       float64 `json:"value"`
	Description string  `json:"description"`
}

// Update upserts one rate and audits the change. Only administrators
// reach this path; the router enforces that.
func (s *Service) Update(ctx context.Context, actorID int64, input UpdateInput) (Setting, error) {
	var before any
	if prev, err := s.repo.Get(ctx, input.Key); err == nil {
		before = prev.Value
	} else if !errors.Is(err, shared.ErrNotFound) {
		return Setting{}, err
	}

	updated := Setting{Key: input.Key, Value: input.Value, Description: input.Description}
	if err := s.repo.Upsert(ctx, updated); err != nil {
		return Setting{}, err
	}
	s.invalidateCache(ctx)

	if s.audit != nil {
		entry := audit.Entry{
			ActorID: actorID,
			Action:  audit.ActionUpdated,
			Details: map[string]any{"key": input.Key, "before": before, "after": input.Value},
		}
		if err := s.audit.Record(ctx, entry); err != nil {
			return updated, errors.Join(shared.ErrAuditFailed, err)
		}
	}
	return updated, nil
}

func (s *Service) cachedValues(ctx context.Context) (map[string]float64, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, snapshotCacheKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("settings cache read failed", slog.Any("error", err))
		}
		return nil, false
	}
	var values map[string]float64
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, false
	}
	return values, true
}

func (s *Service) storeCache(ctx context.Context, values map[string]float64) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, snapshotCacheKey, raw, snapshotCacheTTL).Err(); err != nil {
		s.logger.Warn("settings cache write failed", slog.Any("error", err))
	}
}

func (s *Service) invalidateCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, snapshotCacheKey).Err(); err != nil {
		s.logger.Warn("settings cache invalidate failed", slog.Any("error", err))
	}
}
