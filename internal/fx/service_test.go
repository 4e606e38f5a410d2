package fx

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cargofol/cargofol/internal/settings"
	"github.com/cargofol/cargofol/internal/shared"
)

type memoryRateRepo struct {
	rates  []Rate
	nextID int64
}

func (m *memoryRateRepo) Insert(_ context.Context, rate *Rate) error {
	for _, existing := range m.rates {
		if existing.CurrencyFrom == rate.CurrencyFrom &&
			existing.CurrencyTo == rate.CurrencyTo &&
			existing.Date.Equal(rate.Date) {
			return ErrDuplicateRate
		}
	}
	m.nextID++
	rate.ID = m.nextID
	m.rates = append(m.rates, *rate)
	return nil
}

func (m *memoryRateRepo) Latest(_ context.Context, from, to string) (Rate, error) {
	var found *Rate
	for i := range m.rates {
		r := &m.rates[i]
		if r.CurrencyFrom != from || r.CurrencyTo != to {
			continue
		}
		if found == nil || r.Date.After(found.Date) || (r.Date.Equal(found.Date) && r.ID > found.ID) {
			found = r
		}
	}
	if found == nil {
		return Rate{}, shared.ErrNotFound
	}
	return *found, nil
}

func (m *memoryRateRepo) List(_ context.Context, limit int) ([]Rate, error) {
	if limit <= 0 || limit > len(m.rates) {
		limit = len(m.rates)
	}
	out := make([]Rate, 0, limit)
	for i := len(m.rates) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.rates[i])
	}
	return out, nil
}

type recordingSettings struct {
	updates []settings.UpdateInput
}

func (r *recordingSettings) Update(_ context.Context, _ int64, input settings.UpdateInput) (settings.Setting, error) {
	r.updates = append(r.updates, input)
	return settings.Setting{Key: input.Key, Value: input.Value}, nil
}

func newTestService(repo *memoryRateRepo, settingsPort *recordingSettings) *Service {
	svc := NewService(repo, settingsPort, slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc.now = func() time.Time {
		return time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)
	}
	return svc
}

func TestRecordStoresDatedObservation(t *testing.T) {
	repo := &memoryRateRepo{}
	svc := newTestService(repo, &recordingSettings{})

	rate, err := svc.Record(context.Background(), RecordInput{
		CurrencyFrom: CurrencyCNY,
		CurrencyTo:   CurrencyKGS,
		Rate:         12.3,
	})
	require.NoError(t, err)
	require.NotEmpty(t, rate.RefID)
	require.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), rate.Date)

	_, err = svc.Record(context.Background(), RecordInput{
		CurrencyFrom: CurrencyCNY,
		CurrencyTo:   CurrencyKGS,
		Rate:         12.4,
	})
	require.ErrorIs(t, err, ErrDuplicateRate)
}

func TestRecordRejectsNonPositiveRate(t *testing.T) {
	svc := newTestService(&memoryRateRepo{}, &recordingSettings{})

	_, err := svc.Record(context.Background(), RecordInput{
		CurrencyFrom: CurrencyUSD,
		CurrencyTo:   CurrencyKGS,
		Rate:         0,
	})
	require.ErrorIs(t, err, ErrInvalidRate)
}

func TestSyncSettingsPushesLatestObservations(t *testing.T) {
	repo := &memoryRateRepo{
		rates: []Rate{
			{ID: 1, CurrencyFrom: CurrencyCNY, CurrencyTo: CurrencyKGS, Rate: 12.0, Date: time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)},
			{ID: 2, CurrencyFrom: CurrencyCNY, CurrencyTo: CurrencyKGS, Rate: 12.3, Date: time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)},
			{ID: 3, CurrencyFrom: CurrencyUSD, CurrencyTo: CurrencyKGS, Rate: 87.5, Date: time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)},
		},
		nextID: 3,
	}
	settingsPort := &recordingSettings{}
	svc := newTestService(repo, settingsPort)

	require.NoError(t, svc.SyncSettings(context.Background(), 1))
	require.Len(t, settingsPort.updates, 2)
	require.Equal(t, settings.KeyCNYToKGS, settingsPort.updates[0].Key)
	require.Equal(t, 12.3, settingsPort.updates[0].Value)
	require.Equal(t, settings.KeyUSDToKGS, settingsPort.updates[1].Key)
	require.Equal(t, 87.5, settingsPort.updates[1].Value)
}

func TestSyncSettingsSkipsPairsWithoutHistory(t *testing.T) {
	repo := &memoryRateRepo{
		rates: []Rate{
			{ID: 1, CurrencyFrom: CurrencyUSD, CurrencyTo: CurrencyKGS, Rate: 88.0, Date: time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)},
		},
		nextID: 1,
	}
	settingsPort := &recordingSettings{}
	svc := newTestService(repo, settingsPort)

	require.NoError(t, svc.SyncSettings(context.Background(), 1))
	require.Len(t, settingsPort.updates, 1)
	require.Equal(t, settings.KeyUSDToKGS, settingsPort.updates[0].Key)
}
