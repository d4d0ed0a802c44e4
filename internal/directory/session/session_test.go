package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smallbiznis/tutorly/internal/clock"
	"github.com/smallbiznis/tutorly/internal/config"
	"github.com/smallbiznis/tutorly/internal/directory/domain"
	"github.com/smallbiznis/tutorly/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// gatedService blocks each query until its page number is released.
type gatedService struct {
	mu      sync.Mutex
	gates   map[int]chan struct{}
	started chan int
	calls   atomic.Int32
}

func newGatedService() *gatedService {
	return &gatedService{gates: map[int]chan struct{}{}, started: make(chan int, 16)}
}

func (g *gatedService) gate(page int) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.gates[page]
	if !ok {
		ch = make(chan struct{})
		g.gates[page] = ch
	}
	return ch
}

func (g *gatedService) Query(ctx context.Context, req domain.QueryRequest) (domain.Page, error) {
	g.calls.Add(1)
	g.started <- req.Page
	<-g.gate(req.Page)
	return domain.Page{Strategy: domain.StrategyField, PageInfo: pagination.PageInfo{Page: req.Page}}, nil
}

func newTestRegistry(svc domain.Service, debounce time.Duration) *Registry {
	cfg := config.DefaultDirectoryConfig()
	cfg.SearchDebounce = debounce
	return NewRegistry(Params{
		Service: svc,
		Clock:   clock.NewFakeClock(time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)),
		Config:  config.NewDirectoryConfigHolder(cfg),
		Log:     zap.NewNop(),
	})
}

func TestLastRequestWins(t *testing.T) {
	svc := newGatedService()
	sess := newTestRegistry(svc, 0).Get(1, "operator-1")

	first := make(chan Outcome, 1)
	go func() {
		out, err := sess.Submit(context.Background(), domain.QueryRequest{Page: 1})
		assert.NoError(t, err)
		first <- out
	}()
	require.Equal(t, 1, <-svc.started)

	go func() {
		<-svc.started
		close(svc.gate(2))
	}()
	second, err := sess.Submit(context.Background(), domain.QueryRequest{Page: 2})
	require.NoError(t, err)
	assert.True(t, second.Applied)
	assert.EqualValues(t, 2, second.Seq)

	close(svc.gate(1))
	stale := <-first
	assert.False(t, stale.Applied, "older result arriving late is discarded")
	assert.EqualValues(t, 1, stale.Seq)

	state := sess.State()
	assert.EqualValues(t, 2, state.Seq)
	require.NotNil(t, state.Page)
	assert.Equal(t, 2, state.Page.PageInfo.Page)
}

func TestSearchIsDebounced(t *testing.T) {
	svc := newGatedService()
	close(svc.gate(1))
	sess := newTestRegistry(svc, 40*time.Millisecond).Get(1, "operator-1")

	var wg sync.WaitGroup
	outcomes := make([]Outcome, 3)
	for i, term := range []string{"s", "sm", "smi"} {
		wg.Add(1)
		go func(i int, term string) {
			defer wg.Done()
			out, err := sess.Submit(context.Background(), domain.QueryRequest{Search: term, Page: 1})
			assert.NoError(t, err)
			outcomes[i] = out
		}(i, term)
		time.Sleep(5 * time.Millisecond)
	}
	wg.Wait()

	assert.EqualValues(t, 1, svc.calls.Load())
	assert.True(t, outcomes[0].Superseded)
	assert.True(t, outcomes[1].Superseded)
	assert.True(t, outcomes[2].Applied)
	assert.Equal(t, "smi", sess.State().Request.Search)
}

func TestRegistryScopesSessions(t *testing.T) {
	r := newTestRegistry(newGatedService(), 0)

	a := r.Get(1, "k")
	assert.Same(t, a, r.Get(1, "k"))
	assert.NotSame(t, a, r.Get(2, "k"))

	_, ok := r.Lookup(3, "k")
	assert.False(t, ok)
}

func TestDebouncerHonoursContext(t *testing.T) {
	d := NewDebouncer(time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	latest, err := d.Wait(ctx)
	assert.False(t, latest)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPendingSearchLosesToLaterPageChange(t *testing.T) {
	svc := newGatedService()
	close(svc.gate(1))
	close(svc.gate(2))
	sess := newTestRegistry(svc, 60*time.Millisecond).Get(1, "operator-1")

	searched := make(chan Outcome, 1)
	go func() {
		out, err := sess.Submit(context.Background(), domain.QueryRequest{Search: "a", Page: 1})
		assert.NoError(t, err)
		searched <- out
	}()
	time.Sleep(10 * time.Millisecond)

	paged, err := sess.Submit(context.Background(), domain.QueryRequest{Page: 2})
	require.NoError(t, err)
	assert.True(t, paged.Applied)

	search := <-searched
	assert.True(t, search.Superseded)
	assert.False(t, search.Applied)
	assert.Less(t, search.Seq, paged.Seq)
	assert.EqualValues(t, 1, svc.calls.Load())

	state := sess.State()
	assert.Equal(t, paged.Seq, state.Seq)
	assert.Equal(t, "", state.Request.Search)
	require.NotNil(t, state.Page)
	assert.Equal(t, 2, state.Page.PageInfo.Page)
}

func TestRevertedSearchTermStillWins(t *testing.T) {
	svc := newGatedService()
	close(svc.gate(1))
	sess := newTestRegistry(svc, 40*time.Millisecond).Get(1, "operator-1")

	_, err := sess.Submit(context.Background(), domain.QueryRequest{Search: "a", Page: 1})
	require.NoError(t, err)

	typed := make(chan Outcome, 1)
	go func() {
		out, err := sess.Submit(context.Background(), domain.QueryRequest{Search: "ab", Page: 1})
		assert.NoError(t, err)
		typed <- out
	}()
	time.Sleep(5 * time.Millisecond)

	reverted, err := sess.Submit(context.Background(), domain.QueryRequest{Search: "a", Page: 1})
	require.NoError(t, err)
	assert.True(t, reverted.Applied)
	assert.True(t, (<-typed).Superseded)

	state := sess.State()
	assert.Equal(t, reverted.Seq, state.Seq)
	assert.Equal(t, "a", state.Request.Search)
}
