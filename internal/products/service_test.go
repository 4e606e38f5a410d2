package products

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cargofol/cargofol/internal/audit"
	"github.com/cargofol/cargofol/internal/costing"
	"github.com/cargofol/cargofol/internal/settings"
	"github.com/cargofol/cargofol/internal/shared"
)

type memoryRepo struct {
	products  map[int64]Product
	entries   []audit.Entry
	nextID    int64
	failAudit bool
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{products: make(map[int64]Product)}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	snapshotProducts := make(map[int64]Product, len(r.products))
	for id, p := range r.products {
		snapshotProducts[id] = p
	}
	snapshotEntries := append([]audit.Entry(nil), r.entries...)
	if err := fn(ctx, &memoryTx{repo: r}); err != nil {
		// Roll back.
		r.products = snapshotProducts
		r.entries = snapshotEntries
		return err
	}
	return nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Product, error) {
	p, ok := r.products[id]
	if !ok {
		return Product{}, shared.ErrNotFound
	}
	return p, nil
}

func (r *memoryRepo) List(ctx context.Context, f ListFilter) ([]Product, error) {
	out := make([]Product, 0, len(r.products))
	for _, p := range r.products {
		out = append(out, p)
	}
	return out, nil
}

func (tx *memoryTx) Insert(ctx context.Context, p Product) (int64, error) {
	tx.repo.nextID++
	p.ID = tx.repo.nextID
	tx.repo.products[p.ID] = p
	return p.ID, nil
}

func (tx *memoryTx) Update(ctx context.Context, p Product) error {
	if _, ok := tx.repo.products[p.ID]; !ok {
		return shared.ErrNotFound
	}
	tx.repo.products[p.ID] = p
	return nil
}

func (tx *memoryTx) Delete(ctx context.Context, id int64) error {
	if _, ok := tx.repo.products[id]; !ok {
		return shared.ErrNotFound
	}
	delete(tx.repo.products, id)
	return nil
}

func (tx *memoryTx) RecordAudit(ctx context.Context, e audit.Entry) error {
	if tx.repo.failAudit {
		return errors.New("audit store unavailable")
	}
	e.Details = audit.Clone(e.Details)
	tx.repo.entries = append(tx.repo.entries, e)
	return nil
}

type stubSettings struct {
	rates settings.Rates
	err   error
}

func (s stubSettings) Snapshot(ctx context.Context) (settings.Rates, error) {
	if s.err != nil {
		return settings.Rates{}, s.err
	}
	return s.rates, nil
}

func testSettings() stubSettings {
	return stubSettings{rates: settings.NewRates(map[string]float64{
		settings.KeyCustomsRateKG:  2.5,
		settings.KeyCustomsPercent: 0.15,
		settings.KeyDeliveryRateKG: 1.5,
		settings.KeyDeliveryRateM3: 150,
		settings.KeyCNYToKGS:       12,
		settings.KeyUSDToKGS:       88,
	})}
}

func testCreateInput() CreateInput {
	return CreateInput{
		ProductName:      "Steel brackets",
		SupplierName:     "Guangzhou Hardware Co",
		OrderNumber:      "ORD-1001",
		Currency:         "USD",
		PurchasePrice:    1000,
		MarginPercent:    10,
		WeightKG:         10,
		VolumeM3:         0.5,
		Quantity:         200,
		ShippingMethod:   ShipRail,
		PriceCNY:         500,
		DeliveryUSDPerKG: 2,
	}
}

func TestCreateComputesDerivedFieldsAndAudits(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, testSettings(), nil)

	created, err := svc.Create(context.Background(), 42, testCreateInput())
	require.NoError(t, err)

	require.Equal(t, 150.0, created.CustomsCost)
	require.Equal(t, 75.0, created.DeliveryCost)
	require.Equal(t, 1347.5, created.FinalTotalCost)
	require.Equal(t, created.FinalTotalCost, created.OutstandingBalance)
	// 500*12 + 2*10*88
	require.Equal(t, 7760.0, created.TotalCostSom)
	require.Equal(t, PaymentUnpaid, created.PaymentStatus)
	require.Equal(t, CargoPending, created.Status)

	require.Len(t, repo.entries, 1)
	entry := repo.entries[0]
	require.Equal(t, audit.ActionCreated, entry.Action)
	require.Equal(t, int64(42), entry.ActorID)
	require.NotNil(t, entry.ProductID)
	require.Equal(t, created.ID, *entry.ProductID)
	after, ok := entry.Details["after"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, created.ID, after["id"])
	require.NotContains(t, entry.Details, "before")
}

func TestCreateAbortsOnSettingsError(t *testing.T) {
	repo := newMemoryRepo()
	cfgErr := &settings.ConfigError{Key: settings.KeyCustomsPercent, Raw: `"abc"`}
	svc := NewService(repo, stubSettings{err: cfgErr}, nil)

	_, err := svc.Create(context.Background(), 1, testCreateInput())

	var got *settings.ConfigError
	require.ErrorAs(t, err, &got)
	require.Empty(t, repo.products)
	require.Empty(t, repo.entries)
}

func TestCreateRejectsUnknownEnum(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, testSettings(), nil)

	input := testCreateInput()
	input.ShippingMethod = "Teleport"

	_, err := svc.Create(context.Background(), 1, input)
	require.ErrorIs(t, err, ErrInvalidEnum)
	require.Empty(t, repo.entries)
}

func TestUpdateNotFound(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, testSettings(), nil)

	_, err := svc.Update(context.Background(), 1, 999, Patch{ProductName: ptr("x")})
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.Empty(t, repo.entries)
}

func TestUpdateWithoutTriggerKeepsDerivedFields(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, testSettings(), nil)
	created, err := svc.Create(context.Background(), 1, testCreateInput())
	require.NoError(t, err)

	status := CargoInTransit
	updated, err := svc.Update(context.Background(), 1, created.ID, Patch{Status: &status})
	require.NoError(t, err)

	require.Equal(t, CargoInTransit, updated.Status)
	require.Equal(t, created.CustomsCost, updated.CustomsCost)
	require.Equal(t, created.DeliveryCost, updated.DeliveryCost)
	require.Equal(t, created.FinalTotalCost, updated.FinalTotalCost)
	require.Equal(t, created.TotalCostSom, updated.TotalCostSom)
	require.Len(t, repo.entries, 2)
	require.Equal(t, audit.ActionUpdated, repo.entries[1].Action)
}

func TestUpdateTriggerRecomputesFromMergedValues(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, testSettings(), nil)
	created, err := svc.Create(context.Background(), 1, testCreateInput())
	require.NoError(t, err)

	// Weight is a trigger for both formulas. The recomputation must use
	// the patched weight together with untouched existing fields.
	weight := 100.0
	updated, err := svc.Update(context.Background(), 1, created.ID, Patch{WeightKG: &weight})
	require.NoError(t, err)

	// customs = max(100*2.5, 1000*0.15) = 250; delivery = max(150, 75) = 150
	require.Equal(t, 250.0, updated.CustomsCost)
	require.Equal(t, 150.0, updated.DeliveryCost)
	require.Equal(t, (1000+250+150)*1.1, updated.FinalTotalCost)
	require.Equal(t, updated.FinalTotalCost, updated.OutstandingBalance)
	// local: 500*12 + 2*100*88
	require.Equal(t, 23600.0, updated.TotalCostSom)
}

func TestUpdateTriggersFireIndependently(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, testSettings(), nil)
	created, err := svc.Create(context.Background(), 1, testCreateInput())
	require.NoError(t, err)

	// price_cny only triggers the local formula.
	price := 1000.0
	updated, err := svc.Update(context.Background(), 1, created.ID, Patch{PriceCNY: &price})
	require.NoError(t, err)
	require.Equal(t, created.FinalTotalCost, updated.FinalTotalCost)
	require.Equal(t, 1000*12+2*10*88.0, updated.TotalCostSom)

	// margin_percent only triggers the primary formula.
	margin := 20.0
	updated, err = svc.Update(context.Background(), 1, created.ID, Patch{MarginPercent: &margin})
	require.NoError(t, err)
	require.Equal(t, (1000+150+75)*1.2, updated.FinalTotalCost)
	require.Equal(t, 1000*12+2*10*88.0, updated.TotalCostSom)
}

func TestDeleteRecordsSnapshotWithOriginalID(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, testSettings(), nil)

	// Seed ids 1..7 so the deleted subject is id 7.
	var last Product
	for i := 0; i < 7; i++ {
		p, err := svc.Create(context.Background(), 1, testCreateInput())
		require.NoError(t, err)
		last = p
	}
	require.Equal(t, int64(7), last.ID)

	require.NoError(t, svc.Delete(context.Background(), 9, 7))
	require.NotContains(t, repo.products, int64(7))

	entry := repo.entries[len(repo.entries)-1]
	require.Equal(t, audit.ActionDeleted, entry.Action)
	require.Nil(t, entry.ProductID)
	require.Equal(t, int64(9), entry.ActorID)
	require.Equal(t, int64(7), entry.Details["id"])
	before, ok := entry.Details["before"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, int64(7), before["id"])
}

func TestDeleteNotFound(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, testSettings(), nil)

	err := svc.Delete(context.Background(), 1, 404)
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.Empty(t, repo.entries)
}

func TestAuditFailureRollsBackMutation(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, testSettings(), nil)
	created, err := svc.Create(context.Background(), 1, testCreateInput())
	require.NoError(t, err)

	repo.failAudit = true
	name := "renamed"
	_, err = svc.Update(context.Background(), 1, created.ID, Patch{ProductName: &name})
	require.ErrorIs(t, err, shared.ErrAuditFailed)

	current, err := repo.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ProductName, current.ProductName)
}

func TestSnapshotsAreDetachedFromLiveRecord(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, testSettings(), nil)
	created, err := svc.Create(context.Background(), 1, testCreateInput())
	require.NoError(t, err)

	after := repo.entries[0].Details["after"].(map[string]any)
	recordedName := after["product_name"]

	name := "changed later"
	_, err = svc.Update(context.Background(), 1, created.ID, Patch{ProductName: &name})
	require.NoError(t, err)

	// The historical entry still shows the original value.
	require.Equal(t, recordedName, repo.entries[0].Details["after"].(map[string]any)["product_name"])
}

func TestRecalculateAllRefreshesStaleRecords(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, testSettings(), nil)
	created, err := svc.Create(context.Background(), 1, testCreateInput())
	require.NoError(t, err)

	// The m3 rate doubled since the record was costed.
	raised := stubSettings{rates: settings.NewRates(map[string]float64{
		settings.KeyCustomsRateKG:  2.5,
		settings.KeyCustomsPercent: 0.15,
		settings.KeyDeliveryRateKG: 1.5,
		settings.KeyDeliveryRateM3: 300,
		settings.KeyCNYToKGS:       12,
		settings.KeyUSDToKGS:       88,
	})}
	recostSvc := NewService(repo, raised, nil)

	updated, err := recostSvc.RecalculateAll(context.Background(), 0)
	require.NoError(t, err)
	require.Equal(t, 1, updated)

	current, err := repo.Get(context.Background(), created.ID)
	require.NoError(t, err)
	// delivery = max(10*1.5, 0.5*300) = 150, up from 75
	require.Equal(t, 150.0, current.DeliveryCost)
	require.Equal(t, (1000+150+150)*1.1, current.FinalTotalCost)

	entry := repo.entries[len(repo.entries)-1]
	require.Equal(t, audit.ActionUpdated, entry.Action)
	require.Equal(t, "recost", entry.Details["reason"])

	// A second sweep finds nothing stale.
	updated, err = recostSvc.RecalculateAll(context.Background(), 0)
	require.NoError(t, err)
	require.Zero(t, updated)
}

func TestPreviewDoesNotPersist(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, testSettings(), nil)

	derived, som, err := svc.Preview(context.Background(),
		costing.Inputs{WeightKG: 10, VolumeM3: 0.5, PurchasePrice: 1000, MarginPercent: 10},
		costing.LocalInputs{PriceCNY: 500, DeliveryUSDPerKG: 2, WeightKG: 10})
	require.NoError(t, err)
	require.Equal(t, 1347.5, derived.FinalTotalCost)
	require.Equal(t, 7760.0, som)
	require.Empty(t, repo.products)
	require.Empty(t, repo.entries)
}

type countingMetrics struct {
	families map[string]int
}

func (m *countingMetrics) CountRecalculation(family string) {
	if m.families == nil {
		m.families = make(map[string]int)
	}
	m.families[family]++
}

func TestRecalculationsFeedTheCounter(t *testing.T) {
	repo := newMemoryRepo()
	counter := &countingMetrics{}
	svc := NewService(repo, testSettings(), nil).WithMetrics(counter)

	created, err := svc.Create(context.Background(), 42, testCreateInput())
	require.NoError(t, err)
	require.Equal(t, 1, counter.families["primary"])
	require.Equal(t, 1, counter.families["local"])

	// A patch without a trigger field reruns neither formula.
	_, err = svc.Update(context.Background(), 42, created.ID, Patch{LogisticsNotes: ptr("repacked")})
	require.NoError(t, err)
	require.Equal(t, 1, counter.families["primary"])
	require.Equal(t, 1, counter.families["local"])

	// weight_kg triggers both families.
	_, err = svc.Update(context.Background(), 42, created.ID, Patch{WeightKG: ptr(20.0)})
	require.NoError(t, err)
	require.Equal(t, 2, counter.families["primary"])
	require.Equal(t, 2, counter.families["local"])
}

func ptr[T any](v T) *T { return &v }
