package stock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryState struct {
	products  map[int64]ProductStock
	allocs    map[int64]map[int64]int64
	locations map[int64]bool
	movements []Movement
	nextID    int64
}

func (s memoryState) clone() memoryState {
	out := memoryState{
		products:  make(map[int64]ProductStock, len(s.products)),
		allocs:    make(map[int64]map[int64]int64, len(s.allocs)),
		locations: make(map[int64]bool, len(s.locations)),
		movements: append([]Movement(nil), s.movements...),
		nextID:    s.nextID,
	}
	for id, p := range s.products {
		out.products[id] = p
	}
	for pid, m := range s.allocs {
		cp := make(map[int64]int64, len(m))
		for lid, q := range m {
			cp[lid] = q
		}
		out.allocs[pid] = cp
	}
	for id, ok := range s.locations {
		out.locations[id] = ok
	}
	return out
}

// memoryRepo keeps all state in maps and restores a pre-transaction
// snapshot when the callback fails, mirroring a real rollback.
type memoryRepo struct {
	mu    sync.Mutex
	state memoryState

	failMovementInsert bool
}

func newTestRepo() *memoryRepo {
	return &memoryRepo{state: memoryState{
		products:  make(map[int64]ProductStock),
		allocs:    make(map[int64]map[int64]int64),
		locations: make(map[int64]bool),
	}}
}

func (r *memoryRepo) addProduct(id int64, name string, qty int64) {
	r.state.products[id] = ProductStock{ID: id, Name: name, Quantity: qty}
	r.state.allocs[id] = make(map[int64]int64)
}

func (r *memoryRepo) addLocation(id int64) {
	r.state.locations[id] = true
}

func (r *memoryRepo) setAllocation(productID, locationID, qty int64) {
	r.state.allocs[productID][locationID] = qty
}

type memoryTx struct {
	repo *memoryRepo
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	snapshot := r.state.clone()
	if err := fn(ctx, &memoryTx{repo: r}); err != nil {
		r.state = snapshot
		return err
	}
	return nil
}

func (r *memoryRepo) ListMovements(ctx context.Context, limit int) ([]Movement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Movement
	for i := len(r.state.movements) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.state.movements[i])
	}
	return out, nil
}

func (r *memoryRepo) GetProductStock(ctx context.Context, productID int64) (ProductStock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.state.products[productID]
	if !ok {
		return ProductStock{}, ErrProductNotFound
	}
	p.Locations = allocationList(r.state.allocs[productID])
	return p, nil
}

func allocationList(m map[int64]int64) []Allocation {
	out := []Allocation{}
	for lid := int64(1); lid <= 1000; lid++ {
		if q, ok := m[lid]; ok {
			out = append(out, Allocation{LocationID: lid, Quantity: q})
		}
	}
	return out
}

func (tx *memoryTx) GetProductForUpdate(ctx context.Context, productID int64) (ProductStock, error) {
	p, ok := tx.repo.state.products[productID]
	if !ok {
		return ProductStock{}, ErrProductNotFound
	}
	return p, nil
}

func (tx *memoryTx) LocationExists(ctx context.Context, locationID int64) (bool, error) {
	return tx.repo.state.locations[locationID], nil
}

func (tx *memoryTx) ListAllocations(ctx context.Context, productID int64) ([]Allocation, error) {
	return allocationList(tx.repo.state.allocs[productID]), nil
}

func (tx *memoryTx) UpsertAllocation(ctx context.Context, productID, locationID, quantity int64, now time.Time) error {
	tx.repo.state.allocs[productID][locationID] = quantity
	return nil
}

func (tx *memoryTx) DeleteAllocation(ctx context.Context, productID, locationID int64) error {
	delete(tx.repo.state.allocs[productID], locationID)
	return nil
}

func (tx *memoryTx) UpdateProductQuantity(ctx context.Context, productID, quantity int64, now time.Time) error {
	p := tx.repo.state.products[productID]
	p.Quantity = quantity
	tx.repo.state.products[productID] = p
	return nil
}

func (tx *memoryTx) InsertMovement(ctx context.Context, movement Movement) (int64, error) {
	if tx.repo.failMovementInsert {
		return 0, errors.New("simulated ledger failure")
	}
	tx.repo.state.nextID++
	movement.ID = tx.repo.state.nextID
	tx.repo.state.movements = append(tx.repo.state.movements, movement)
	return movement.ID, nil
}

// requireConsistent asserts the aggregate quantity equals the sum of
// the product's allocations.
func requireConsistent(t *testing.T, repo *memoryRepo, productID int64) {
	t.Helper()
	p, err := repo.GetProductStock(context.Background(), productID)
	require.NoError(t, err)
	var sum int64
	for _, a := range p.Locations {
		require.Greater(t, a.Quantity, int64(0), "allocation entries must stay positive")
		sum += a.Quantity
	}
	require.Equal(t, p.Quantity, sum)
}

const (
	locA = int64(1)
	locB = int64(2)
)

func setupRepo(qty int64, allocA int64) *memoryRepo {
	repo := newTestRepo()
	repo.addProduct(1, "Widget", qty)
	repo.addLocation(locA)
	repo.addLocation(locB)
	if allocA > 0 {
		repo.setAllocation(1, locA, allocA)
	}
	return repo
}

func movement(typ MovementType, qty int64) MovementInput {
	return MovementInput{
		ProductID:  1,
		LocationID: locA,
		Type:       typ,
		Quantity:   qty,
		Reason:     "cycle count",
		ActorID:    7,
	}
}

func TestInMovementIncreasesAllocation(t *testing.T) {
	repo := setupRepo(10, 10)
	svc := NewService(repo, nil)

	m, product, err := svc.Apply(context.Background(), movement(MovementIn, 5))
	require.NoError(t, err)
	require.Equal(t, int64(15), product.Quantity)
	require.Len(t, product.Locations, 1)
	require.Equal(t, int64(15), product.Locations[0].Quantity)
	require.Equal(t, int64(10), m.PreviousQuantity)
	require.Equal(t, int64(15), m.NewQuantity)
	requireConsistent(t, repo, 1)
}

func TestOutMovementRemovesEmptyEntry(t *testing.T) {
	repo := setupRepo(15, 15)
	svc := NewService(repo, nil)

	m, product, err := svc.Apply(context.Background(), movement(MovementOut, 15))
	require.NoError(t, err)
	require.Equal(t, int64(0), product.Quantity)
	require.Empty(t, product.Locations)
	require.Equal(t, int64(15), m.PreviousQuantity)
	require.Equal(t, int64(0), m.NewQuantity)
	requireConsistent(t, repo, 1)
}

func TestTransferCreatesDestinationEntry(t *testing.T) {
	repo := setupRepo(20, 20)
	svc := NewService(repo, nil)

	dest := locB
	input := movement(MovementTransfer, 8)
	input.DestinationID = &dest

	m, product, err := svc.Apply(context.Background(), input)
	require.NoError(t, err)
	require.Equal(t, int64(20), product.Quantity, "transfer must be quantity-neutral")
	require.Len(t, product.Locations, 2)
	require.Equal(t, int64(12), product.Locations[0].Quantity)
	require.Equal(t, int64(8), product.Locations[1].Quantity)
	require.Equal(t, int64(20), m.PreviousQuantity)
	// The ledger records the transferred amount, not the resulting
	// source balance.
	require.Equal(t, int64(8), m.NewQuantity)
	requireConsistent(t, repo, 1)
}

func TestTransferDrainsSourceEntry(t *testing.T) {
	repo := setupRepo(20, 20)
	svc := NewService(repo, nil)

	dest := locB
	input := movement(MovementTransfer, 20)
	input.DestinationID = &dest

	_, product, err := svc.Apply(context.Background(), input)
	require.NoError(t, err)
	require.Len(t, product.Locations, 1)
	require.Equal(t, locB, product.Locations[0].LocationID)
	require.Equal(t, int64(20), product.Quantity)
	requireConsistent(t, repo, 1)
}

func TestOutRejectsOverWithdrawal(t *testing.T) {
	repo := setupRepo(5, 5)
	svc := NewService(repo, nil)

	_, _, err := svc.Apply(context.Background(), movement(MovementOut, 6))
	require.ErrorIs(t, err, ErrInsufficientStock)

	product, err := repo.GetProductStock(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, int64(5), product.Quantity)
	require.Len(t, product.Locations, 1)
	require.Equal(t, int64(5), product.Locations[0].Quantity)

	movements, err := repo.ListMovements(context.Background(), 100)
	require.NoError(t, err)
	require.Empty(t, movements, "rejected movement must leave no ledger entry")
}

func TestAdjustmentSetsAbsoluteQuantity(t *testing.T) {
	repo := setupRepo(3, 3)
	svc := NewService(repo, nil)

	_, product, err := svc.Apply(context.Background(), movement(MovementAdjustment, 10))
	require.NoError(t, err)
	require.Equal(t, int64(10), product.Quantity)
	require.Equal(t, int64(10), product.Locations[0].Quantity)
	requireConsistent(t, repo, 1)
}

func TestAdjustmentToZeroRemovesEntry(t *testing.T) {
	repo := setupRepo(3, 3)
	svc := NewService(repo, nil)

	_, product, err := svc.Apply(context.Background(), movement(MovementAdjustment, 0))
	require.NoError(t, err)
	require.Equal(t, int64(0), product.Quantity)
	require.Empty(t, product.Locations, "zero allocation is removed, not kept")
	requireConsistent(t, repo, 1)
}

func TestConcurrentInMovementsAreSerialized(t *testing.T) {
	repo := setupRepo(0, 0)
	svc := NewService(repo, nil)

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := svc.Apply(context.Background(), movement(MovementIn, 5))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	product, err := repo.GetProductStock(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, int64(10), product.Quantity, "no lost update")
	requireConsistent(t, repo, 1)
}

func TestAtomicityOnLedgerFailure(t *testing.T) {
	repo := setupRepo(10, 10)
	repo.failMovementInsert = true
	svc := NewService(repo, nil)

	_, _, err := svc.Apply(context.Background(), movement(MovementIn, 5))
	require.Error(t, err)

	product, err := repo.GetProductStock(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, int64(10), product.Quantity, "product must be unchanged after rollback")
	require.Equal(t, int64(10), product.Locations[0].Quantity)

	movements, err := repo.ListMovements(context.Background(), 100)
	require.NoError(t, err)
	require.Empty(t, movements)
}

func TestValidationRunsBeforeTransaction(t *testing.T) {
	repo := setupRepo(10, 10)
	svc := NewService(repo, nil)
	ctx := context.Background()

	cases := []struct {
		name  string
		morph func(*MovementInput)
		want  error
	}{
		{"invalid type", func(in *MovementInput) { in.Type = "sideways" }, ErrInvalidMovementType},
		{"zero quantity", func(in *MovementInput) { in.Quantity = 0 }, ErrInvalidQuantity},
		{"negative quantity", func(in *MovementInput) { in.Quantity = -3 }, ErrInvalidQuantity},
		{"missing reason", func(in *MovementInput) { in.Reason = "" }, ErrReasonRequired},
		{"missing actor", func(in *MovementInput) { in.ActorID = 0 }, ErrActorRequired},
		{"missing destination", func(in *MovementInput) { in.Type = MovementTransfer }, ErrDestinationRequired},
		{"same location", func(in *MovementInput) {
			in.Type = MovementTransfer
			dest := locA
			in.DestinationID = &dest
		}, ErrSameLocation},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := movement(MovementIn, 5)
			tc.morph(&input)
			_, _, err := svc.Apply(ctx, input)
			require.ErrorIs(t, err, tc.want)
		})
	}

	movements, err := repo.ListMovements(ctx, 100)
	require.NoError(t, err)
	require.Empty(t, movements)
}

func TestMovementAgainstUnknownReferences(t *testing.T) {
	repo := setupRepo(10, 10)
	svc := NewService(repo, nil)
	ctx := context.Background()

	input := movement(MovementIn, 5)
	input.ProductID = 99
	_, _, err := svc.Apply(ctx, input)
	require.ErrorIs(t, err, ErrProductNotFound)

	input = movement(MovementIn, 5)
	input.LocationID = 99
	_, _, err = svc.Apply(ctx, input)
	require.ErrorIs(t, err, ErrLocationNotFound)

	dest := int64(99)
	input = movement(MovementTransfer, 5)
	input.DestinationID = &dest
	_, _, err = svc.Apply(ctx, input)
	require.ErrorIs(t, err, ErrDestinationNotFound)
}

func TestListMovementsNewestFirst(t *testing.T) {
	repo := setupRepo(0, 0)
	svc := NewService(repo, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _, err := svc.Apply(ctx, movement(MovementIn, 1))
		require.NoError(t, err)
	}

	movements, err := svc.ListMovements(ctx, 0)
	require.NoError(t, err)
	require.Len(t, movements, 3)
	require.Equal(t, int64(3), movements[0].ID)
	require.Equal(t, int64(1), movements[2].ID)
}
