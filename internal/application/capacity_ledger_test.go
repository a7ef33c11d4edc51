package application

import (
	"context"
	"sync"
	"testing"

	"github.com/aerolot/service-parking/internal/domain"
	locationDomain "github.com/aerolot/service-parking/internal/domain/location"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memLocationRepository is a mutex-guarded in-memory LocationRepository. The
// guarded decrement/increment mirror the single-statement SQL semantics of the
// gorm implementation.
type memLocationRepository struct {
	mu    sync.Mutex
	total map[uuid.UUID]int
	avail map[uuid.UUID]int
}

func newMemLocationRepository() *memLocationRepository {
	return &memLocationRepository{
		total: make(map[uuid.UUID]int),
		avail: make(map[uuid.UUID]int),
	}
}

func (r *memLocationRepository) add(id uuid.UUID, total, available int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.total[id] = total
	r.avail[id] = available
}

func (r *memLocationRepository) available(id uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.avail[id]
}

func (r *memLocationRepository) FindByID(ctx context.Context, id uuid.UUID) (*locationDomain.Location, error) {
	return nil, domain.NewNotFoundError("Location", id.String())
}

func (r *memLocationRepository) ListActive(ctx context.Context, airportCode string) ([]*locationDomain.Location, error) {
	return nil, nil
}

func (r *memLocationRepository) ConditionalDecrementAvailable(ctx context.Context, id uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	avail, ok := r.avail[id]
	if !ok {
		return 0, domain.NewNotFoundError("Location", id.String())
	}
	if avail <= 0 {
		return 0, domain.NewCapacityExhaustedError(id.String())
	}
	r.avail[id] = avail - 1
	return avail - 1, nil
}

func (r *memLocationRepository) IncrementAvailable(ctx context.Context, id uuid.UUID) (int, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	avail, ok := r.avail[id]
	if !ok {
		return 0, false, domain.NewNotFoundError("Location", id.String())
	}
	if avail >= r.total[id] {
		return avail, true, nil
	}
	r.avail[id] = avail + 1
	return avail + 1, false, nil
}

func (r *memLocationRepository) Save(ctx context.Context, loc *locationDomain.Location) error {
	return nil
}

func (r *memLocationRepository) Update(ctx context.Context, loc *locationDomain.Location) error {
	return nil
}

func TestCapacityLedger_ReserveAndRelease(t *testing.T) {
	repo := newMemLocationRepository()
	ledger := NewCapacityLedger(repo, zap.NewNop())
	id := uuid.New()
	repo.add(id, 5, 5)

	available, err := ledger.Reserve(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 4, available)

	available, err = ledger.Release(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 5, available)
}

func TestCapacityLedger_ReserveExhausted(t *testing.T) {
	repo := newMemLocationRepository()
	ledger := NewCapacityLedger(repo, zap.NewNop())
	id := uuid.New()
	repo.add(id, 3, 0)

	_, err := ledger.Reserve(context.Background(), id)
	assert.True(t, domain.IsCode(err, domain.CodeCapacityExhausted))
	assert.Equal(t, 0, repo.available(id))
}

func TestCapacityLedger_ReserveUnknownLocation(t *testing.T) {
	repo := newMemLocationRepository()
	ledger := NewCapacityLedger(repo, zap.NewNop())

	_, err := ledger.Reserve(context.Background(), uuid.New())
	assert.True(t, domain.IsCode(err, domain.CodeNotFound))
}

func TestCapacityLedger_ReleaseClampedAtTotal(t *testing.T) {
	repo := newMemLocationRepository()
	ledger := NewCapacityLedger(repo, zap.NewNop())
	id := uuid.New()
	repo.add(id, 3, 3)

	available, err := ledger.Release(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 3, available)
	assert.Equal(t, 3, repo.available(id))
}

func TestCapacityLedger_LastSpotSingleWinner(t *testing.T) {
	repo := newMemLocationRepository()
	ledger := NewCapacityLedger(repo, zap.NewNop())
	id := uuid.New()
	repo.add(id, 10, 1)

	const contenders = 8
	results := make(chan error, contenders)
	var start sync.WaitGroup
	start.Add(1)
	for i := 0; i < contenders; i++ {
		go func() {
			start.Wait()
			_, err := ledger.Reserve(context.Background(), id)
			results <- err
		}()
	}
	start.Done()

	var wins, exhausted int
	for i := 0; i < contenders; i++ {
		err := <-results
		switch {
		case err == nil:
			wins++
		case domain.IsCode(err, domain.CodeCapacityExhausted):
			exhausted++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, wins)
	assert.Equal(t, contenders-1, exhausted)
	assert.Equal(t, 0, repo.available(id))
}

func TestCapacityLedger_AvailableStaysWithinBounds(t *testing.T) {
	repo := newMemLocationRepository()
	ledger := NewCapacityLedger(repo, zap.NewNop())
	id := uuid.New()
	const total = 4
	repo.add(id, total, total)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = ledger.Reserve(context.Background(), id)
		}()
		go func() {
			defer wg.Done()
			_, _ = ledger.Release(context.Background(), id)
		}()
	}
	wg.Wait()

	available := repo.available(id)
	assert.GreaterOrEqual(t, available, 0)
	assert.LessOrEqual(t, available, total)
}
