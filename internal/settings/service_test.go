package settings

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/cargofol/cargofol/internal/audit"
	"github.com/cargofol/cargofol/internal/shared"
)

type memoryRepo struct {
	values    map[string]Setting
	loadCalls int
	loadErr   error
}

func newMemoryRepo(values map[string]float64) *memoryRepo {
	repo := &memoryRepo{values: map[string]Setting{}}
	for k, v := range values {
		repo.values[k] = Setting{Key: k, Value: v, UpdatedAt: time.Now()}
	}
	return repo
}

func (m *memoryRepo) List(context.Context) ([]Setting, error) {
	out := make([]Setting, 0, len(m.values))
	for _, s := range m.values {
		out = append(out, s)
	}
	return out, nil
}

func (m *memoryRepo) LoadValues(context.Context) (map[string]float64, error) {
	m.loadCalls++
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	out := make(map[string]float64, len(m.values))
	for k, s := range m.values {
		out[k] = s.Value
	}
	return out, nil
}

func (m *memoryRepo) Get(_ context.Context, key string) (Setting, error) {
	s, ok := m.values[key]
	if !ok {
		return Setting{}, shared.ErrNotFound
	}
	return s, nil
}

func (m *memoryRepo) Upsert(_ context.Context, s Setting) error {
	s.UpdatedAt = time.Now()
	m.values[s.Key] = s
	return nil
}

type recordingAudit struct {
	entries []audit.Entry
	err     error
}

func (r *recordingAudit) Record(_ context.Context, entry audit.Entry) error {
	if r.err != nil {
		return r.err
	}
	r.entries = append(r.entries, entry)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testCache(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestSnapshotFallsBackToDefaults(t *testing.T) {
	repo := newMemoryRepo(nil)
	svc := NewService(repo, nil, nil, testLogger())

	rates, err := svc.Snapshot(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2.5, rates.Get(KeyCustomsRateKG))
	require.Equal(t, 0.15, rates.Get(KeyCustomsPercent))
	require.Equal(t, 150.0, rates.Get(KeyDeliveryRateM3))
}

func TestSnapshotPrefersStoredValues(t *testing.T) {
	repo := newMemoryRepo(map[string]float64{KeyCustomsRateKG: 3.75})
	svc := NewService(repo, nil, nil, testLogger())

	rates, err := svc.Snapshot(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3.75, rates.Get(KeyCustomsRateKG))
	require.Equal(t, 1.5, rates.Get(KeyDeliveryRateKG))
}

func TestSnapshotUsesCacheOnSecondRead(t *testing.T) {
	repo := newMemoryRepo(map[string]float64{KeyCustomsRateKG: 3.0})
	svc := NewService(repo, testCache(t), nil, testLogger())

	_, err := svc.Snapshot(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, repo.loadCalls)

	rates, err := svc.Snapshot(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, repo.loadCalls)
	require.Equal(t, 3.0, rates.Get(KeyCustomsRateKG))
}

func TestSnapshotPropagatesStoreErrors(t *testing.T) {
	repo := newMemoryRepo(nil)
	repo.loadErr = &ConfigError{Key: KeyCustomsRateKG, Raw: `"cheap"`}
	svc := NewService(repo, nil, nil, testLogger())

	_, err := svc.Snapshot(context.Background())
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	require.Equal(t, KeyCustomsRateKG, cfgErr.Key)
}

func TestUpdateAuditsBeforeAndAfter(t *testing.T) {
	repo := newMemoryRepo(map[string]float64{KeyCustomsRateKG: 2.5})
	auditor := &recordingAudit{}
	svc := NewService(repo, nil, auditor, testLogger())

	updated, err := svc.Update(context.Background(), 7, UpdateInput{Key: KeyCustomsRateKG, Value: 4.0})
	require.NoError(t, err)
	require.Equal(t, 4.0, updated.Value)

	require.Len(t, auditor.entries, 1)
	entry := auditor.entries[0]
	require.Equal(t, int64(7), entry.ActorID)
	require.Equal(t, audit.ActionUpdated, entry.Action)
	require.Equal(t, KeyCustomsRateKG, entry.Details["key"])
	require.Equal(t, 2.5, entry.Details["before"])
	require.Equal(t, 4.0, entry.Details["after"])
}

func TestUpdateNewKeyHasNilBefore(t *testing.T) {
	repo := newMemoryRepo(nil)
	auditor := &recordingAudit{}
	svc := NewService(repo, nil, auditor, testLogger())

	_, err := svc.Update(context.Background(), 1, UpdateInput{Key: KeyUSDToKGS, Value: 89.0})
	require.NoError(t, err)
	require.Len(t, auditor.entries, 1)
	require.Nil(t, auditor.entries[0].Details["before"])
}

func TestUpdateInvalidatesCache(t *testing.T) {
	repo := newMemoryRepo(map[string]float64{KeyCustomsRateKG: 2.5})
	svc := NewService(repo, testCache(t), nil, testLogger())

	_, err := svc.Snapshot(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, repo.loadCalls)

	_, err = svc.Update(context.Background(), 1, UpdateInput{Key: KeyCustomsRateKG, Value: 9.0})
	require.NoError(t, err)

	rates, err := svc.Snapshot(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, repo.loadCalls)
	require.Equal(t, 9.0, rates.Get(KeyCustomsRateKG))
}

func TestUpdateSurvivesAuditFailure(t *testing.T) {
	repo := newMemoryRepo(nil)
	auditor := &recordingAudit{err: errors.New("audit store down")}
	svc := NewService(repo, nil, auditor, testLogger())

	updated, err := svc.Update(context.Background(), 1, UpdateInput{Key: KeyCustomsRateKG, Value: 3.0})
	require.ErrorIs(t, err, shared.ErrAuditFailed)
	require.Equal(t, 3.0, updated.Value)

	// The rate change itself is durable.
	stored, err := repo.Get(context.Background(), KeyCustomsRateKG)
	require.NoError(t, err)
	require.Equal(t, 3.0, stored.Value)
}
