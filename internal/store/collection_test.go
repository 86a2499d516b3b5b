package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spendwise-dev/spendwise/internal/gateway"
	"github.com/spendwise-dev/spendwise/internal/model"
)

// fakeResource is an in-memory gateway.Resource that can be told to fail.
type fakeResource[T Entity] struct {
	mu      sync.Mutex
	records []T
	setID   func(T, string) T
	nextID  int
	err     error
	calls   int
	block   chan struct{}
}

func (f *fakeResource[T]) enter() error {
	f.mu.Lock()
	f.calls++
	block, err := f.block, f.err
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	return err
}

func (f *fakeResource[T]) List(ctx context.Context) ([]T, error) {
	if err := f.enter(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]T{}, f.records...), nil
}

func (f *fakeResource[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	if err := f.enter(); err != nil {
		return zero, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.records {
		if r.EntityID() == id {
			return r, nil
		}
	}
	return zero, gateway.ErrNotFound
}

func (f *fakeResource[T]) Create(ctx context.Context, draft T) (T, error) {
	if err := f.enter(); err != nil {
		var zero T
		return zero, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	rec := f.setID(draft, "srv-"+strconv.Itoa(f.nextID))
	f.records = append(f.records, rec)
	return rec, nil
}

func (f *fakeResource[T]) Update(ctx context.Context, id string, rec T) (T, error) {
	if err := f.enter(); err != nil {
		var zero T
		return zero, err
	}
	return f.setID(rec, id), nil
}

func (f *fakeResource[T]) Delete(ctx context.Context, id string) error {
	return f.enter()
}

func (f *fakeResource[T]) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newFakeTransactions(records ...model.Transaction) *fakeResource[model.Transaction] {
	return &fakeResource[model.Transaction]{
		records: records,
		setID: func(tx model.Transaction, id string) model.Transaction {
			tx.ID = id
			return tx
		},
	}
}

func newFakeCategories(records ...model.Category) *fakeResource[model.Category] {
	return &fakeResource[model.Category]{
		records: records,
		setID: func(c model.Category, id string) model.Category {
			c.ID = id
			return c
		},
	}
}

func newFakeAccounts(records ...model.Account) *fakeResource[model.Account] {
	return &fakeResource[model.Account]{
		records: records,
		setID: func(a model.Account, id string) model.Account {
			a.ID = id
			return a
		},
	}
}

func newFakeBudgets(records ...model.Budget) *fakeResource[model.Budget] {
	return &fakeResource[model.Budget]{
		records: records,
		setID: func(b model.Budget, id string) model.Budget {
			b.ID = id
			return b
		},
	}
}

func quiet() Option {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return WithLogger(l)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func tx(id, typ, amount, date, cat string) model.Transaction {
	return model.Transaction{
		ID:          id,
		Type:        model.TransactionType(typ),
		Amount:      dec(amount),
		Description: "tx " + id,
		CategoryID:  cat,
		Date:        model.MustParseDate(date),
	}
}

func TestFetchAll_ReplacesItems(t *testing.T) {
	res := newFakeTransactions(tx("1", "income", "100", "2024-01-01", "c1"))
	c := NewCollection[model.Transaction]("transactions", res, quiet())
	c.Replace([]model.Transaction{tx("old", "expense", "1", "2023-01-01", "c1")})

	require.NoError(t, c.FetchAll(context.Background()))
	items := c.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "1", items[0].ID)
	assert.NoError(t, c.Err())
	assert.False(t, c.Loading())
}

func TestFetchAll_FailureKeepsItems(t *testing.T) {
	res := newFakeTransactions()
	c := NewCollection[model.Transaction]("transactions", res, quiet())
	c.Replace([]model.Transaction{tx("1", "income", "5", "2024-01-01", "c1")})
	res.err = errors.New("connection refused")

	err := c.FetchAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, err, c.Err())
	assert.Len(t, c.Items(), 1)

	c.ClearError()
	assert.NoError(t, c.Err())
}

func TestFetchAll_UnavailableEndpointIsEmpty(t *testing.T) {
	res := newFakeBudgets()
	res.err = fmt.Errorf("GET /budgets: %w", gateway.ErrEndpointUnavailable)

	c := NewCollection[model.Budget]("budgets", res, quiet())
	c.Replace([]model.Budget{{ID: "stale"}})

	require.NoError(t, c.FetchAll(context.Background()))
	assert.NotNil(t, c.Items())
	assert.Empty(t, c.Items())
	assert.NoError(t, c.Err())
}

func TestCreate_AppendsServerRecord(t *testing.T) {
	res := newFakeTransactions()
	c := NewCollection[model.Transaction]("transactions", res, quiet())
	c.Replace([]model.Transaction{tx("1", "income", "5", "2024-01-01", "c1")})

	created, err := c.Create(context.Background(), tx("", "expense", "12.50", "2024-02-01", "c1"))
	require.NoError(t, err)
	assert.Equal(t, "srv-1", created.ID)

	items := c.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "srv-1", items[1].ID)
}

func TestCreate_ValidationNeverReachesBackend(t *testing.T) {
	res := newFakeTransactions()
	c := NewCollection[model.Transaction]("transactions", res, quiet())

	_, err := c.Create(context.Background(), tx("", "expense", "-3", "2024-02-01", "c1"))
	require.Error(t, err)
	assert.True(t, model.IsValidation(err))
	assert.Zero(t, res.callCount())
	assert.NoError(t, c.Err(), "validation errors are not recorded")
	assert.Empty(t, c.Items())
}

func TestCreate_FailureLeavesItems(t *testing.T) {
	res := newFakeTransactions()
	res.err = errors.New("boom")
	c := NewCollection[model.Transaction]("transactions", res, quiet())

	_, err := c.Create(context.Background(), tx("", "expense", "3", "2024-02-01", "c1"))
	require.Error(t, err)
	assert.Empty(t, c.Items())
	assert.Error(t, c.Err())
}

func TestUpdate_ReplacesByID(t *testing.T) {
	res := newFakeTransactions()
	c := NewCollection[model.Transaction]("transactions", res, quiet())
	c.Replace([]model.Transaction{
		tx("1", "income", "5", "2024-01-01", "c1"),
		tx("2", "expense", "7", "2024-01-02", "c1"),
	})

	patch := tx("", "expense", "9", "2024-01-02", "c2")
	updated, err := c.Update(context.Background(), "2", patch)
	require.NoError(t, err)
	assert.Equal(t, "2", updated.ID)

	got, ok := c.Get("2")
	require.True(t, ok)
	assert.True(t, dec("9").Equal(got.Amount))
	assert.Equal(t, "c2", got.CategoryID)
	assert.Len(t, c.Items(), 2)
}

func TestUpdate_FailureLeavesRecord(t *testing.T) {
	res := newFakeTransactions()
	c := NewCollection[model.Transaction]("transactions", res, quiet())
	c.Replace([]model.Transaction{tx("1", "income", "5", "2024-01-01", "c1")})
	res.err = errors.New("conflict")

	_, err := c.Update(context.Background(), "1", tx("", "income", "50", "2024-01-01", "c1"))
	require.Error(t, err)
	got, _ := c.Get("1")
	assert.True(t, dec("5").Equal(got.Amount))
}

func TestDelete(t *testing.T) {
	res := newFakeTransactions()
	c := NewCollection[model.Transaction]("transactions", res, quiet())
	c.Replace([]model.Transaction{
		tx("1", "income", "5", "2024-01-01", "c1"),
		tx("2", "expense", "7", "2024-01-02", "c1"),
	})

	require.NoError(t, c.Delete(context.Background(), "1"))
	_, ok := c.Get("1")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())
}

func TestDelete_EmptyIDRejected(t *testing.T) {
	res := newFakeTransactions()
	c := NewCollection[model.Transaction]("transactions", res, quiet())

	assert.ErrorIs(t, c.Delete(context.Background(), ""), ErrMissingID)
	_, err := c.Update(context.Background(), "", tx("", "income", "1", "2024-01-01", "c1"))
	assert.ErrorIs(t, err, ErrMissingID)
	assert.Zero(t, res.callCount())
}

func TestDelete_FailureKeepsRecord(t *testing.T) {
	res := newFakeTransactions()
	res.err = errors.New("nope")
	c := NewCollection[model.Transaction]("transactions", res, quiet())
	c.Replace([]model.Transaction{tx("1", "income", "5", "2024-01-01", "c1")})

	require.Error(t, c.Delete(context.Background(), "1"))
	assert.Equal(t, 1, c.Len())
}

func TestLoading(t *testing.T) {
	res := newFakeTransactions()
	res.block = make(chan struct{})
	c := NewCollection[model.Transaction]("transactions", res, quiet())

	done := make(chan error)
	go func() { done <- c.FetchAll(context.Background()) }()

	assert.Eventually(t, c.Loading, time.Second, time.Millisecond)
	close(res.block)
	require.NoError(t, <-done)
	assert.False(t, c.Loading())
}

func TestItemsIsACopy(t *testing.T) {
	c := NewCollection[model.Transaction]("transactions", newFakeTransactions(), quiet())
	c.Replace([]model.Transaction{tx("1", "income", "5", "2024-01-01", "c1")})

	items := c.Items()
	items[0].Description = "mutated"
	got, _ := c.Get("1")
	assert.Equal(t, "tx 1", got.Description)
}

func TestReset(t *testing.T) {
	res := newFakeTransactions()
	res.err = errors.New("x")
	c := NewCollection[model.Transaction]("transactions", res, quiet())
	c.Replace([]model.Transaction{tx("1", "income", "5", "2024-01-01", "c1")})
	_ = c.FetchAll(context.Background())

	c.Reset()
	assert.Empty(t, c.Items())
	assert.NoError(t, c.Err())
}

func TestObserversSeeConfirmedMutations(t *testing.T) {
	var events []Event
	obs := ObserverFunc(func(_ context.Context, ev Event) { events = append(events, ev) })

	res := newFakeTransactions()
	c := NewCollection[model.Transaction]("transactions", res, quiet(), WithObserver(obs))
	ctx := context.Background()

	created, err := c.Create(ctx, tx("", "income", "10", "2024-01-01", "c1"))
	require.NoError(t, err)
	_, err = c.Update(ctx, created.ID, tx("", "income", "11", "2024-01-01", "c1"))
	require.NoError(t, err)
	require.NoError(t, c.Delete(ctx, created.ID))

	res.err = errors.New("fail")
	_, _ = c.Create(ctx, tx("", "income", "10", "2024-01-01", "c1"))

	require.Len(t, events, 3)
	assert.Equal(t, ActionCreate, events[0].Action)
	assert.Equal(t, ActionUpdate, events[1].Action)
	assert.Equal(t, ActionDelete, events[2].Action)
	assert.Equal(t, created.ID, events[2].ID)
	assert.Equal(t, "transactions", events[0].Collection)
}

type memMirror struct {
	data map[string][]byte
}

func (m *memMirror) SaveSnapshot(_ context.Context, collection string, data []byte) error {
	if m.data == nil {
		m.data = map[string][]byte{}
	}
	m.data[collection] = data
	return nil
}

func (m *memMirror) LoadSnapshot(_ context.Context, collection string) ([]byte, bool, error) {
	d, ok := m.data[collection]
	return d, ok, nil
}

func TestMirrorSnapshotAndHydrate(t *testing.T) {
	mirror := &memMirror{}
	res := newFakeTransactions(tx("1", "income", "100.25", "2024-01-01", "c1"))
	c := NewCollection[model.Transaction]("transactions", res, quiet(), WithMirror(mirror))
	require.NoError(t, c.FetchAll(context.Background()))
	require.Contains(t, mirror.data, "transactions")

	fresh := NewCollection[model.Transaction]("transactions", newFakeTransactions(), quiet(), WithMirror(mirror))
	ok, err := fresh.Hydrate(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	items := fresh.Items()
	require.Len(t, items, 1)
	assert.True(t, dec("100.25").Equal(items[0].Amount))
	assert.Equal(t, "2024-01-01", items[0].Date.String())
}

func TestHydrate_NoMirror(t *testing.T) {
	c := NewCollection[model.Transaction]("transactions", newFakeTransactions(), quiet())
	ok, err := c.Hydrate(context.Background())
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestConcurrentWritesOnDifferentIDs(t *testing.T) {
	res := newFakeTransactions()
	c := NewCollection[model.Transaction]("transactions", res, quiet())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Create(context.Background(), tx("", "expense", "1", "2024-01-01", "c1"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, c.Len())
}
