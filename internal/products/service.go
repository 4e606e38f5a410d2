package products

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cargofol/cargofol/internal/audit"
	"github.com/cargofol/cargofol/internal/costing"
	"github.com/cargofol/cargofol/internal/settings"
	"github.com/cargofol/cargofol/internal/shared"
)

// RepositoryPort describes the record store used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Product, error)
	List(ctx context.Context, f ListFilter) ([]Product, error)
}

// TxRepository exposes the operations that share one unit of work. The
// record mutation and its audit entry commit or roll back together.
type TxRepository interface {
	Insert(ctx context.Context, p Product) (int64, error)
	Update(ctx context.Context, p Product) error
	Delete(ctx context.Context, id int64) error
	RecordAudit(ctx context.Context, e audit.Entry) error
}

// SettingsPort supplies per-operation rate snapshots.
type SettingsPort interface {
	Snapshot(ctx context.Context) (settings.Rates, error)
}

// RecalcMetrics counts calculator reruns by formula family.
// *observability.Metrics satisfies it.
type RecalcMetrics interface {
	CountRecalculation(family string)
}

// ListFilter narrows and pages product listings.
type ListFilter struct {
	Limit  int
	Offset int
}

// Service orchestrates the record lifecycle around the calculators and
// the auditor.
type Service struct {
	repo     RepositoryPort
	settings SettingsPort
	logger   *slog.Logger
	metrics  RecalcMetrics
	now      func() time.Time
}

// NewService constructs the orchestrator.
func NewService(repo RepositoryPort, settingsPort SettingsPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, settings: settingsPort, logger: logger, now: time.Now}
}

// WithMetrics attaches the recalculation counter and returns the service.
func (s *Service) WithMetrics(m RecalcMetrics) *Service {
	s.metrics = m
	return s
}

// Get loads one record.
func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	return s.repo.Get(ctx, id)
}

// List returns records newest first.
func (s *Service) List(ctx context.Context, f ListFilter) ([]Product, error) {
	return s.repo.List(ctx, f)
}

// Create registers a record: it runs both calculators against a fresh
// rates snapshot, persists the record with derived fields attached and
// appends the creation audit entry in the same transaction.
func (s *Service) Create(ctx context.Context, actorID int64, input CreateInput) (Product, error) {
	p, err := input.toProduct()
	if err != nil {
		return Product{}, err
	}

	rates, err := s.settings.Snapshot(ctx)
	if err != nil {
		return Product{}, fmt.Errorf("products: load rates: %w", err)
	}
	s.recalculatePrimary(&p, rates)
	s.recalculateLocal(&p, rates)

	now := s.now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.Insert(ctx, p)
		if err != nil {
			return err
		}
		p.ID = id
		entry := audit.Entry{
			ActorID:   actorID,
			ProductID: &p.ID,
			Action:    audit.ActionCreated,
			Details:   map[string]any{"after": p.Snapshot()},
		}
		if err := tx.RecordAudit(ctx, entry); err != nil {
			return errors.Join(shared.ErrAuditFailed, err)
		}
		return nil
	})
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

// Update applies a typed partial patch. Each recalculation trigger is
// evaluated independently: the primary formula reruns when any of
// weight_kg, volume_m3, purchase_price or margin_percent was supplied,
// the local formula when any of price_cny, delivery_usd_per_kg or
// weight_kg was. Recalculation always uses the post-patch merged values.
func (s *Service) Update(ctx context.Context, actorID, id int64, patch Patch) (Product, error) {
	if err := patch.validate(); err != nil {
		return Product{}, err
	}

	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return Product{}, err
	}
	before := p.Snapshot()

	patch.apply(&p)

	redoPrimary := patch.touchesPrimary()
	redoLocal := patch.touchesLocal()
	if redoPrimary || redoLocal {
		rates, err := s.settings.Snapshot(ctx)
		if err != nil {
			return Product{}, fmt.Errorf("products: load rates: %w", err)
		}
		if redoPrimary {
			s.recalculatePrimary(&p, rates)
		}
		if redoLocal {
			s.recalculateLocal(&p, rates)
		}
	}
	p.UpdatedAt = s.now().UTC()

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.Update(ctx, p); err != nil {
			return err
		}
		entry := audit.Entry{
			ActorID:   actorID,
			ProductID: &p.ID,
			Action:    audit.ActionUpdated,
			Details:   map[string]any{"before": before, "after": p.Snapshot()},
		}
		if err := tx.RecordAudit(ctx, entry); err != nil {
			return errors.Join(shared.ErrAuditFailed, err)
		}
		return nil
	})
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

// Delete removes a record. The audit entry keeps the full final snapshot
// and the original numeric id in its payload; the relational product
// reference is nil because the row no longer exists.
func (s *Service) Delete(ctx context.Context, actorID, id int64) error {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	before := p.Snapshot()

	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.Delete(ctx, id); err != nil {
			return err
		}
		entry := audit.Entry{
			ActorID: actorID,
			Action:  audit.ActionDeleted,
			Details: map[string]any{"before": before, "id": id},
		}
		if err := tx.RecordAudit(ctx, entry); err != nil {
			return errors.Join(shared.ErrAuditFailed, err)
		}
		return nil
	})
}

// RecalculateAll reruns both calculators for every stored record against
// a single fresh rates snapshot and persists the records whose derived
// fields changed, each with its own audit entry. It returns the number
// of records updated. Used by the background recost sweep after rate
// changes.
func (s *Service) RecalculateAll(ctx context.Context, actorID int64) (int, error) {
	rates, err := s.settings.Snapshot(ctx)
	if err != nil {
		return 0, fmt.Errorf("products: load rates: %w", err)
	}

	updated := 0
	const pageSize = 500
	for offset := 0; ; offset += pageSize {
		page, err := s.repo.List(ctx, ListFilter{Limit: pageSize, Offset: offset})
		if err != nil {
			return updated, err
		}
		for _, p := range page {
			before := p.Snapshot()
			s.recalculatePrimary(&p, rates)
			s.recalculateLocal(&p, rates)
			if unchangedDerived(before, p) {
				continue
			}
			p.UpdatedAt = s.now().UTC()
			err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
				if err := tx.Update(ctx, p); err != nil {
					return err
				}
				entry := audit.Entry{
					ActorID:   actorID,
					ProductID: &p.ID,
					Action:    audit.ActionUpdated,
					Details:   map[string]any{"before": before, "after": p.Snapshot(), "reason": "recost"},
				}
				if err := tx.RecordAudit(ctx, entry); err != nil {
					return errors.Join(shared.ErrAuditFailed, err)
				}
				return nil
			})
			if err != nil {
				return updated, err
			}
			updated++
		}
		if len(page) < pageSize {
			return updated, nil
		}
	}
}

func unchangedDerived(before map[string]any, p Product) bool {
	return before["customs_cost"] == p.CustomsCost &&
		before["delivery_cost"] == p.DeliveryCost &&
		before["final_total_cost"] == p.FinalTotalCost &&
		before["outstanding_balance"] == p.OutstandingBalance &&
		before["total_cost_som"] == p.TotalCostSom
}

// Preview runs both calculators against the current rates without
// persisting anything.
func (s *Service) Preview(ctx context.Context, in costing.Inputs, local costing.LocalInputs) (costing.Derived, float64, error) {
	rates, err := s.settings.Snapshot(ctx)
	if err != nil {
		return costing.Derived{}, 0, fmt.Errorf("products: load rates: %w", err)
	}
	return costing.Compute(in, rates), costing.ComputeLocal(local, rates), nil
}

func (s *Service) recalculatePrimary(p *Product, rates settings.Rates) {
	derived := costing.Compute(costing.Inputs{
		WeightKG:      p.WeightKG,
		VolumeM3:      p.VolumeM3,
		PurchasePrice: p.PurchasePrice,
		MarginPercent: p.MarginPercent,
	}, rates)
	p.CustomsCost = derived.CustomsCost
	p.DeliveryCost = derived.DeliveryCost
	p.FinalTotalCost = derived.FinalTotalCost
	p.OutstandingBalance = derived.OutstandingBalance
	s.countRecalc("primary")
}

func (s *Service) recalculateLocal(p *Product, rates settings.Rates) {
	p.TotalCostSom = costing.ComputeLocal(costing.LocalInputs{
		PriceCNY:         p.PriceCNY,
		DeliveryUSDPerKG: p.DeliveryUSDPerKG,
		WeightKG:         p.WeightKG,
	}, rates)
	s.countRecalc("local")
}

func (s *Service) countRecalc(family string) {
	if s.metrics != nil {
		s.metrics.CountRecalculation(family)
	}
}
