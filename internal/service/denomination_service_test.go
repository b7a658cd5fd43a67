package service

import (
	"context"
	"testing"

	"tillpoint/internal/domain"
	"tillpoint/internal/dto"
	"tillpoint/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// ── In-memory DenominationRepository ─────────────────────────────────────────

type fakeDenominationRepo struct {
	rows map[uuid.UUID]*model.Denomination
}

func newFakeDenominationRepo() *fakeDenominationRepo {
	return &fakeDenominationRepo{rows: make(map[uuid.UUID]*model.Denomination)}
}

func (r *fakeDenominationRepo) List(_ context.Context, includeInactive bool) ([]model.Denomination, error) {
	var out []model.Denomination
	for _, d := range r.rows {
		if !includeInactive && !d.IsActive {
			continue
		}
		out = append(out, *d)
	}
	return out, nil
}

func (r *fakeDenominationRepo) ListActive(ctx context.Context) ([]model.Denomination, error) {
	return r.List(ctx, false)
}

func (r *fakeDenominationRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Denomination, error) {
	d, ok := r.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *d
	return &copied, nil
}

func (r *fakeDenominationRepo) FindByValue(_ context.Context, value decimal.Decimal) (*model.Denomination, error) {
	for _, d := range r.rows {
		if d.Value.Equal(value) {
			copied := *d
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeDenominationRepo) Create(_ context.Context, d *model.Denomination) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	copied := *d
	r.rows[d.ID] = &copied
	return nil
}

func (r *fakeDenominationRepo) Update(_ context.Context, d *model.Denomination) error {
	copied := *d
	r.rows[d.ID] = &copied
	return nil
}

func (r *fakeDenominationRepo) Reorder(_ context.Context, orders map[uuid.UUID]int) error {
	for id := range orders {
		if _, ok := r.rows[id]; !ok {
			return gorm.ErrRecordNotFound
		}
	}
	for id, order := range orders {
		r.rows[id].DisplayOrder = order
	}
	return nil
}

func seedCatalog(t *testing.T, repo *fakeDenominationRepo, values ...int64) map[int64]uuid.UUID {
	t.Helper()
	ids := make(map[int64]uuid.UUID, len(values))
	for i, v := range values {
		d := &model.Denomination{
			Value:        decimal.NewFromInt(v),
			Label:        "$" + decimal.NewFromInt(v).String(),
			IsActive:     true,
			DisplayOrder: i,
		}
		require.NoError(t, repo.Create(context.Background(), d))
		ids[v] = d.ID
	}
	return ids
}

// ── ComputeTotal ─────────────────────────────────────────────────────────────

func TestComputeTotalSumsValueTimesCountPlusCoins(t *testing.T) {
	repo := newFakeDenominationRepo()
	seedCatalog(t, repo, 1000, 500, 50)
	svc := NewDenominationService(repo)

	counts := []dto.DenominationCount{
		{Value: decimal.NewFromInt(1000), Count: 5},
		{Value: decimal.NewFromInt(500), Count: 2},
	}
	total, snapshot, err := svc.ComputeTotal(context.Background(), counts, decimal.NewFromInt(50))
	require.NoError(t, err)

	assert.True(t, total.Equal(decimal.NewFromInt(6050)), "got %s", total)
	assert.Len(t, snapshot.Entries, 2)
	assert.True(t, snapshot.Coins.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, "$1000", snapshot.Entries[0].Label)
}

func TestComputeTotalIsOrderIndependent(t *testing.T) {
	repo := newFakeDenominationRepo()
	seedCatalog(t, repo, 1000, 500, 100)
	svc := NewDenominationService(repo)

	forward := []dto.DenominationCount{
		{Value: decimal.NewFromInt(1000), Count: 3},
		{Value: decimal.NewFromInt(500), Count: 1},
		{Value: decimal.NewFromInt(100), Count: 7},
	}
	backward := []dto.DenominationCount{forward[2], forward[1], forward[0]}

	a, _, err := svc.ComputeTotal(context.Background(), forward, decimal.Zero)
	require.NoError(t, err)
	b, _, err := svc.ComputeTotal(context.Background(), backward, decimal.Zero)
	require.NoError(t, err)
	assert.True(t, a.Equal(b))
}

func TestComputeTotalSkipsUnknownAndInactiveValues(t *testing.T) {
	repo := newFakeDenominationRepo()
	ids := seedCatalog(t, repo, 1000, 200)
	svc := NewDenominationService(repo)

	require.NoError(t, svc.Deactivate(context.Background(), ids[200]))

	counts := []dto.DenominationCount{
		{Value: decimal.NewFromInt(1000), Count: 1},
		{Value: decimal.NewFromInt(200), Count: 4},  // inactive
		{Value: decimal.NewFromInt(9999), Count: 2}, // never existed
	}
	total, snapshot, err := svc.ComputeTotal(context.Background(), counts, decimal.Zero)
	require.NoError(t, err)

	assert.True(t, total.Equal(decimal.NewFromInt(1000)), "got %s", total)
	assert.Len(t, snapshot.Entries, 1)
}

func TestComputeTotalEmptyCountIsCoinsOnly(t *testing.T) {
	repo := newFakeDenominationRepo()
	seedCatalog(t, repo, 1000)
	svc := NewDenominationService(repo)

	total, snapshot, err := svc.ComputeTotal(context.Background(), nil, decimal.NewFromInt(35))
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.NewFromInt(35)))
	assert.Empty(t, snapshot.Entries)
}

// ── Catalog CRUD ─────────────────────────────────────────────────────────────

func TestCreateRejectsDuplicateValueEvenWhenInactive(t *testing.T) {
	repo := newFakeDenominationRepo()
	ids := seedCatalog(t, repo, 500)
	svc := NewDenominationService(repo)

	require.NoError(t, svc.Deactivate(context.Background(), ids[500]))

	_, err := svc.Create(context.Background(), dto.CreateDenominationRequest{
		Value: decimal.NewFromInt(500),
		Label: "$500 bis",
	})
	var dup *domain.DuplicateValueError
	require.ErrorAs(t, err, &dup)
	assert.True(t, dup.Value.Equal(decimal.NewFromInt(500)))
}

func TestUpdateRejectsValueCollision(t *testing.T) {
	repo := newFakeDenominationRepo()
	ids := seedCatalog(t, repo, 100, 200)
	svc := NewDenominationService(repo)

	v := decimal.NewFromInt(200)
	_, err := svc.Update(context.Background(), ids[100], dto.UpdateDenominationRequest{Value: &v})
	var dup *domain.DuplicateValueError
	require.ErrorAs(t, err, &dup)
}

func TestUpdateUnknownDenominationIsNotFound(t *testing.T) {
	svc := NewDenominationService(newFakeDenominationRepo())
	label := "x"
	_, err := svc.Update(context.Background(), uuid.New(), dto.UpdateDenominationRequest{Label: &label})
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestDeactivateHidesFromDefaultList(t *testing.T) {
	repo := newFakeDenominationRepo()
	ids := seedCatalog(t, repo, 100, 200)
	svc := NewDenominationService(repo)

	require.NoError(t, svc.Deactivate(context.Background(), ids[100]))

	active, err := svc.List(context.Background(), false)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	all, err := svc.List(context.Background(), true)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestReorderUnknownIDFailsWholeBatch(t *testing.T) {
	repo := newFakeDenominationRepo()
	ids := seedCatalog(t, repo, 100, 200)
	svc := NewDenominationService(repo)

	err := svc.Reorder(context.Background(), dto.ReorderRequest{Items: []dto.ReorderItem{
		{ID: ids[100].String(), DisplayOrder: 5},
		{ID: uuid.New().String(), DisplayOrder: 6},
	}})
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)

	// First item untouched: all-or-nothing
	d, err := repo.FindByID(context.Background(), ids[100])
	require.NoError(t, err)
	assert.Equal(t, 0, d.DisplayOrder)
}

func TestReorderIsIdempotent(t *testing.T) {
	repo := newFakeDenominationRepo()
	ids := seedCatalog(t, repo, 100, 200)
	svc := NewDenominationService(repo)

	req := dto.ReorderRequest{Items: []dto.ReorderItem{
		{ID: ids[100].String(), DisplayOrder: 9},
		{ID: ids[200].String(), DisplayOrder: 3},
	}}
	require.NoError(t, svc.Reorder(context.Background(), req))
	require.NoError(t, svc.Reorder(context.Background(), req))

	d, err := repo.FindByID(context.Background(), ids[100])
	require.NoError(t, err)
	assert.Equal(t, 9, d.DisplayOrder)
}
