package locations

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-wms/meridian-wms/internal/platform/httpx"
)

type memoryRepo struct {
	byID   map[int64]Location
	byCode map[string]int64
	nextID int64

	// when set, the next Create fails with duplicate to simulate a
	// concurrent insert racing ResolveOrCreate
	raceOnce *Location
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{byID: make(map[int64]Location), byCode: make(map[string]int64)}
}

func (r *memoryRepo) List(ctx context.Context) ([]Location, error) {
	var out []Location
	for _, l := range r.byID {
		out = append(out, l)
	}
	return out, nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Location, error) {
	if l, ok := r.byID[id]; ok {
		return l, nil
	}
	return Location{}, httpx.ErrNotFound
}

func (r *memoryRepo) GetByCode(ctx context.Context, code string) (Location, error) {
	if id, ok := r.byCode[code]; ok {
		return r.byID[id], nil
	}
	return Location{}, httpx.ErrNotFound
}

func (r *memoryRepo) Create(ctx context.Context, location Location) (Location, error) {
	if r.raceOnce != nil {
		winner := *r.raceOnce
		r.raceOnce = nil
		r.insert(winner)
		return Location{}, httpx.ErrDuplicate
	}
	if _, ok := r.byCode[location.Code]; ok {
		return Location{}, httpx.ErrDuplicate
	}
	return r.insert(location), nil
}

func (r *memoryRepo) insert(location Location) Location {
	r.nextID++
	location.ID = r.nextID
	r.byID[location.ID] = location
	r.byCode[location.Code] = location.ID
	return location
}

func (r *memoryRepo) Update(ctx context.Context, id int64, location Location) error {
	existing, ok := r.byID[id]
	if !ok {
		return httpx.ErrNotFound
	}
	delete(r.byCode, existing.Code)
	location.ID = id
	r.byID[id] = location
	r.byCode[location.Code] = id
	return nil
}

func (r *memoryRepo) Delete(ctx context.Context, id int64) error {
	existing, ok := r.byID[id]
	if !ok {
		return httpx.ErrNotFound
	}
	delete(r.byCode, existing.Code)
	delete(r.byID, id)
	return nil
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, Location{Code: "A1", Name: "Aisle 1", Type: "closet"})
	require.Error(t, err)

	created, err := svc.Create(ctx, Location{Code: "A1", Name: "Aisle 1", Type: TypeShelf, IsActive: true})
	require.NoError(t, err)
	require.Equal(t, int64(1), created.ID)

	_, err = svc.Create(ctx, Location{Code: "A1", Name: "Aisle 1 again", Type: TypeShelf})
	require.ErrorIs(t, err, httpx.ErrDuplicate)
}

func TestResolveOrCreateReturnsExisting(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	created, err := svc.Create(ctx, Location{Code: "WH-1", Name: "Main warehouse", Type: TypeWarehouse, IsActive: true})
	require.NoError(t, err)

	resolved, err := svc.ResolveOrCreate(ctx, "WH-1")
	require.NoError(t, err)
	require.Equal(t, created.ID, resolved.ID)
	require.Equal(t, TypeWarehouse, resolved.Type)
}

func TestResolveOrCreateCreatesShelf(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	resolved, err := svc.ResolveOrCreate(ctx, "R1S2B3")
	require.NoError(t, err)
	require.Equal(t, "R1S2B3", resolved.Code)
	require.Equal(t, TypeShelf, resolved.Type)
	require.True(t, resolved.IsActive)

	again, err := svc.ResolveOrCreate(ctx, "R1S2B3")
	require.NoError(t, err)
	require.Equal(t, resolved.ID, again.ID)
}

func TestResolveOrCreateLosesRace(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	repo.raceOnce = &Location{Code: "B7", Name: "B7", Type: TypeBin, IsActive: true}

	resolved, err := svc.ResolveOrCreate(ctx, "B7")
	require.NoError(t, err)
	require.Equal(t, "B7", resolved.Code)
	require.NotZero(t, resolved.ID)
}
