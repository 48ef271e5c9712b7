package pagination

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/dev-ayush21/Pvtwingo/internal/testutil"
	"github.com/dev-ayush21/Pvtwingo/pkg/game"
	"github.com/dev-ayush21/Pvtwingo/pkg/upstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubFetcher serves canned pages with per-page delays and records every call.
type stubFetcher struct {
	mu     sync.Mutex
	pages  map[int]game.Page
	errs   map[int]error
	delays map[int]time.Duration
	calls  []int
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{
		pages:  make(map[int]game.Page),
		errs:   make(map[int]error),
		delays: make(map[int]time.Duration),
	}
}

func (s *stubFetcher) FetchPage(ctx context.Context, g game.Type, page int) (game.Page, error) {
	s.mu.Lock()
	s.calls = append(s.calls, page)
	delay := s.delays[page]
	err := s.errs[page]
	p := s.pages[page]
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *stubFetcher) callCounts() map[int]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[int]int)
	for _, p := range s.calls {
		counts[p]++
	}
	return counts
}

// fill gives each of count pages perPage records with strictly decreasing issues.
func (s *stubFetcher) fill(count, perPage int) {
	issue := int64(1_000_000)
	for p := 1; p <= count; p++ {
		s.pages[p] = testutil.SequentialRecords(issue, perPage)
		issue -= int64(perPage)
	}
}

func newTestAggregator(t *testing.T, f PageFetcher, cfg Config) *Aggregator {
	t.Helper()
	agg, err := NewAggregator(f, cfg)
	require.NoError(t, err)
	return agg
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"defaults", DefaultConfig(), false},
		{"zero pages", Config{PageCount: 0, WindowSize: 500, MinRequired: 50}, true},
		{"zero window", Config{PageCount: 10, WindowSize: 0, MinRequired: 0}, true},
		{"min above window", Config{PageCount: 10, WindowSize: 20, MinRequired: 21}, true},
		{"negative min", Config{PageCount: 10, WindowSize: 20, MinRequired: -1}, true},
		{"min equals window", Config{PageCount: 1, WindowSize: 20, MinRequired: 20}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewAggregator_NilFetcher(t *testing.T) {
	_, err := NewAggregator(nil, DefaultConfig())
	assert.EqualError(t, err, "page fetcher is required")
}

func TestAggregate_FetchesEveryPageOnce(t *testing.T) {
	f := newStubFetcher()
	f.fill(10, 50)
	agg := newTestAggregator(t, f, DefaultConfig())

	history, err := agg.Aggregate(context.Background(), game.WinGo1M)
	require.NoError(t, err)
	assert.Equal(t, game.WinGo1M, history.Game)

	counts := f.callCounts()
	assert.Len(t, counts, 10)
	for p := 1; p <= 10; p++ {
		assert.Equal(t, 1, counts[p], "page %d", p)
	}
}

func TestAggregate_PagesInFlightTogether(t *testing.T) {
	const pageCount = 10
	var started sync.WaitGroup
	started.Add(pageCount)
	release := make(chan struct{})

	f := &barrierFetcher{started: &started, release: release}
	agg := newTestAggregator(t, f, Config{PageCount: pageCount, WindowSize: 500, MinRequired: 0})

	go func() {
		started.Wait()
		close(release)
	}()

	done := make(chan error, 1)
	go func() {
		_, err := agg.Aggregate(context.Background(), game.WinGo3M)
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("page fetches were not all in flight at the same time")
	}
}

// barrierFetcher blocks every fetch until all of them have started.
type barrierFetcher struct {
	started *sync.WaitGroup
	release chan struct{}
}

func (b *barrierFetcher) FetchPage(ctx context.Context, g game.Type, page int) (game.Page, error) {
	b.started.Done()
	select {
	case <-b.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return testutil.SequentialRecords(int64(1000-page*10), 10), nil
}

func TestAggregate_OrderIndependentOfCompletion(t *testing.T) {
	reference := newStubFetcher()
	reference.fill(10, 7)
	agg := newTestAggregator(t, reference, Config{PageCount: 10, WindowSize: 500, MinRequired: 1})
	want, err := agg.Aggregate(context.Background(), game.WinGo5M)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(42))
	for run := 0; run < 5; run++ {
		t.Run(fmt.Sprintf("permutation_%d", run), func(t *testing.T) {
			f := newStubFetcher()
			f.fill(10, 7)
			for i, p := range rng.Perm(10) {
				f.delays[p+1] = time.Duration(i*3) * time.Millisecond
			}

			agg := newTestAggregator(t, f, Config{PageCount: 10, WindowSize: 500, MinRequired: 1})
			got, err := agg.Aggregate(context.Background(), game.WinGo5M)
			require.NoError(t, err)
			assert.Equal(t, testutil.Issues(want.Records), testutil.Issues(got.Records))
		})
	}
}

func TestAggregate_MergeOrder(t *testing.T) {
	f := newStubFetcher()
	f.pages[1] = game.Page{{Issue: "a1"}, {Issue: "a2"}}
	f.pages[2] = game.Page{}
	f.pages[3] = game.Page{{Issue: "c1"}, {Issue: "c2"}, {Issue: "c3"}}
	f.delays[1] = 30 * time.Millisecond

	agg := newTestAggregator(t, f, Config{PageCount: 3, WindowSize: 10, MinRequired: 1})
	history, err := agg.Aggregate(context.Background(), game.WinGo1M)
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a2", "c1", "c2", "c3"}, testutil.Issues(history.Records))
}

func TestAggregate_KeepsDuplicatesAcrossPages(t *testing.T) {
	f := newStubFetcher()
	f.pages[1] = game.Page{{Issue: "100"}, {Issue: "99"}}
	f.pages[2] = game.Page{{Issue: "99"}, {Issue: "98"}}

	agg := newTestAggregator(t, f, Config{PageCount: 2, WindowSize: 10, MinRequired: 1})
	history, err := agg.Aggregate(context.Background(), game.WinGo1M)
	require.NoError(t, err)
	assert.Equal(t, []string{"100", "99", "99", "98"}, testutil.Issues(history.Records))
}

func TestAggregate_Truncation(t *testing.T) {
	tests := []struct {
		name      string
		perPage   int
		window    int
		wantLen   int
		wantFirst string
		wantLast  string
	}{
		{"exactly window", 50, 500, 500, "1000000", "999501"},
		{"over window", 60, 500, 500, "1000000", "999501"},
		{"under window", 30, 500, 300, "1000000", "999701"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newStubFetcher()
			f.fill(10, tt.perPage)
			agg := newTestAggregator(t, f, Config{PageCount: 10, WindowSize: tt.window, MinRequired: 50})

			history, err := agg.Aggregate(context.Background(), game.WinGo1M)
			require.NoError(t, err)
			require.Len(t, history.Records, tt.wantLen)
			assert.Equal(t, tt.wantFirst, history.Records[0].Issue)
			assert.Equal(t, tt.wantLast, history.Records[len(history.Records)-1].Issue)
		})
	}
}

func TestAggregate_Insufficient(t *testing.T) {
	tests := []struct {
		name    string
		total   int
		wantErr bool
	}{
		{"no records", 0, true},
		{"30 records", 30, true},
		{"49 records", 49, true},
		{"exactly 50", 50, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newStubFetcher()
			f.fill(10, 0)
			f.pages[1] = testutil.SequentialRecords(500, tt.total)

			agg := newTestAggregator(t, f, DefaultConfig())
			history, err := agg.Aggregate(context.Background(), game.WinGo1M)
			if !tt.wantErr {
				require.NoError(t, err)
				assert.Len(t, history.Records, tt.total)
				return
			}
			require.Error(t, err)
			assert.Nil(t, history)
			assert.Equal(t, KindInsufficient, KindOf(err))
			assert.True(t, errors.Is(err, ErrInsufficientHistory))
		})
	}
}

func TestAggregate_AnyPageFailureFailsBatch(t *testing.T) {
	for failing := 1; failing <= 10; failing++ {
		t.Run(fmt.Sprintf("page_%d", failing), func(t *testing.T) {
			f := newStubFetcher()
			f.fill(10, 50)
			cause := &upstream.FetchError{Page: failing, Class: upstream.ErrorClassNetwork, Err: errors.New("connection reset")}
			f.errs[failing] = cause

			agg := newTestAggregator(t, f, DefaultConfig())
			history, err := agg.Aggregate(context.Background(), game.WinGo1M)
			require.Error(t, err)
			assert.Nil(t, history)
			assert.Equal(t, KindUpstream, KindOf(err))

			var fetchErr *upstream.FetchError
			require.True(t, errors.As(err, &fetchErr))
			assert.Equal(t, failing, fetchErr.Page)
		})
	}
}

func TestAggregate_InvalidGameMakesNoRequests(t *testing.T) {
	for _, raw := range []string{"Foo", "", "WinGo_10M"} {
		t.Run(raw, func(t *testing.T) {
			f := newStubFetcher()
			agg := newTestAggregator(t, f, DefaultConfig())

			_, err := agg.Aggregate(context.Background(), game.Type(raw))
			require.Error(t, err)
			assert.Equal(t, KindInvalidGame, KindOf(err))
			assert.True(t, errors.Is(err, ErrInvalidGame))
			assert.Empty(t, f.callCounts())
		})
	}
}

func TestAggregate_WithUpstreamClient(t *testing.T) {
	mock := testutil.NewMockProvider()
	defer mock.Close()
	mock.SetPages(game.WinGo1M, 10, 50, 20240101100000)
	mock.SetPage(game.WinGo1M, 7, testutil.NewTimeoutPage(2*time.Second))

	cfg := upstream.DefaultConfig(mock.URL())
	cfg.Timeout = 150 * time.Millisecond
	client, err := upstream.New(cfg)
	require.NoError(t, err)

	agg := newTestAggregator(t, client, DefaultConfig())
	start := time.Now()
	_, err = agg.Aggregate(context.Background(), game.WinGo1M)
	require.Error(t, err)
	assert.Equal(t, KindUpstream, KindOf(err))
	assert.Less(t, time.Since(start), time.Second)

	var fetchErr *upstream.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, 7, fetchErr.Page)
	assert.Equal(t, upstream.ErrorClassTimeout, fetchErr.Class)

	hits := mock.PageHits()
	for p := 1; p <= 10; p++ {
		assert.Equal(t, 1, hits[p], "page %d", p)
	}
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, ErrorKind(""), KindOf(nil))
	assert.Equal(t, ErrorKind(""), KindOf(errors.New("other")))
	wrapped := fmt.Errorf("wrap: %w", &AggregationError{Kind: KindUpstream, Err: errors.New("x")})
	assert.Equal(t, KindUpstream, KindOf(wrapped))
}

func TestAggregate_ProviderServerError(t *testing.T) {
	mock := testutil.NewMockProvider()
	defer mock.Close()
	mock.SetPages(game.WinGo3M, 10, 50, 5000)
	mock.SetPage(game.WinGo3M, 2, testutil.PageResponse{StatusCode: http.StatusBadGateway, RawBody: "bad"})

	client, err := upstream.New(upstream.DefaultConfig(mock.URL()))
	require.NoError(t, err)

	agg := newTestAggregator(t, client, DefaultConfig())
	_, err = agg.Aggregate(context.Background(), game.WinGo3M)
	assert.Equal(t, KindUpstream, KindOf(err))
}
