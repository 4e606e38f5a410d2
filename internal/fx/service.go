package fx

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cargofol/cargofol/internal/settings"
)

// RatePort describes the storage operations used by Service.
type RatePort interface {
	Insert(ctx context.Context, rate *Rate) error
	Latest(ctx context.Context, from, to string) (Rate, error)
	List(ctx context.Context, limit int) ([]Rate, error)
}

// SettingsPort pushes the current conversion values into the rate store.
type SettingsPort interface {
	Update(ctx context.Context, actorID int64, input settings.UpdateInput) (settings.Setting, error)
}

// Service records exchange-rate observations and keeps the settings
// keys cny_to_kgs and usd_to_kgs in step with the latest observations.
type Service struct {
	repo     RatePort
	settings SettingsPort
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(repo RatePort, settingsSvc SettingsPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, settings: settingsSvc, logger: logger, now: time.Now}
}

// RecordInput is one observation to store.
type RecordInput struct {
	CurrencyFrom string  `json:"currency_from" validate:"required,len=3"`
	CurrencyTo   string  `json:"currency_to" validate:"required,len=3"`
	Rate         float64 `json:"rate" validate:"required"`
}

// Record stores an observation dated today.
func (s *Service) Record(ctx context.Context, input RecordInput) (Rate, error) {
	if input.Rate <= 0 {
		return Rate{}, ErrInvalidRate
	}
	rate := Rate{
		RefID:        uuid.NewString(),
		CurrencyFrom: input.CurrencyFrom,
		CurrencyTo:   input.CurrencyTo,
		Rate:         input.Rate,
		Date:         s.now().UTC().Truncate(24 * time.Hour),
	}
	if err := s.repo.Insert(ctx, &rate); err != nil {
		return Rate{}, err
	}
	return rate, nil
}

// List returns recent observations, newest first.
func (s *Service) List(ctx context.Context, limit int) ([]Rate, error) {
	return s.repo.List(ctx, limit)
}

// settings keys fed by SyncSettings, paired with their source conversion.
var syncedPairs = []struct {
	key  string
	from string
	to   string
}{
	{settings.KeyCNYToKGS, CurrencyCNY, CurrencyKGS},
	{settings.KeyUSDToKGS, CurrencyUSD, CurrencyKGS},
}

// SyncSettings copies the latest CNY->KGS and USD->KGS observations into
// the settings store so subsequent cost calculations pick them up. A pair
// with no history is skipped, not an error. actorID attributes the audit
// entries the settings update produces.
func (s *Service) SyncSettings(ctx context.Context, actorID int64) error {
	for _, pair := range syncedPairs {
		latest, err := s.repo.Latest(ctx, pair.from, pair.to)
		if err != nil {
			s.logger.Info("fx sync: no observation for pair",
				slog.String("from", pair.from), slog.String("to", pair.to))
			continue
		}
		input := settings.UpdateInput{
			Key:         pair.key,
			Value:       latest.Rate,
			Description: fmt.Sprintf("Synced from exchange rates on %s", latest.Date.Format("2006-01-02")),
		}
		if _, err := s.settings.Update(ctx, actorID, input); err != nil {
			return fmt.Errorf("fx: sync %s: %w", pair.key, err)
		}
		s.logger.Info("fx sync: settings updated",
			slog.String("key", pair.key), slog.Float64("rate", latest.Rate))
	}
	return nil
}
