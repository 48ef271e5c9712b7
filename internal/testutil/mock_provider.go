// Package testutil provides testing utilities for the WinGo predictor.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dev-ayush21/Pvtwingo/pkg/game"
)

// PageResponse defines the behavior of the mock provider for one page.
type PageResponse struct {
	StatusCode int
	// Records are wrapped in the provider envelope. Ignored when RawBody is set.
	Records []game.Record
	// RawBody is written verbatim.
	RawBody string
	Delay   time.Duration
}

// MockProvider is a configurable mock history provider.
type MockProvider struct {
	server *httptest.Server
	mu     sync.RWMutex
	pages  map[string]map[int]PageResponse

	// Tracking
	requestCount int
	pageHits     map[int]int
	games        map[string]int
	lastHeader   http.Header
}

// NewMockProvider creates a mock provider serving {base}/{game}/GetHistoryIssuePage.json?page=N.
// Unconfigured pages answer with an empty list.
func NewMockProvider() *MockProvider {
	m := &MockProvider{
		pages:    make(map[string]map[int]PageResponse),
		pageHits: make(map[int]int),
		games:    make(map[string]int),
	}

	m.server = httptest.NewServer(http.HandlerFunc(m.handle))
	return m
}

// URL returns the provider base URL.
func (m *MockProvider) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockProvider) Close() {
	m.server.Close()
}

// SetPage configures the response for one page of a game.
func (m *MockProvider) SetPage(g game.Type, page int, resp PageResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pages[string(g)] == nil {
		m.pages[string(g)] = make(map[int]PageResponse)
	}
	m.pages[string(g)][page] = resp
}

// SetPages fills pages 1..count of a game with perPage sequential records, newest first.
// Issues count down from start so the merged history is strictly decreasing.
func (m *MockProvider) SetPages(g game.Type, count, perPage int, start int64) {
	issue := start
	for p := 1; p <= count; p++ {
		m.SetPage(g, p, PageResponse{
			StatusCode: http.StatusOK,
			Records:    SequentialRecords(issue, perPage),
		})
		issue -= int64(perPage)
	}
}

// RequestCount returns the number of requests served.
func (m *MockProvider) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// PageHits returns how often each page index was requested.
func (m *MockProvider) PageHits() map[int]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	hits := make(map[int]int, len(m.pageHits))
	for k, v := range m.pageHits {
		hits[k] = v
	}
	return hits
}

// GameRequests returns how many requests targeted a game.
func (m *MockProvider) GameRequests(g game.Type) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.games[string(g)]
}

// LastHeader returns the headers of the most recent request.
func (m *MockProvider) LastHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastHeader
}

func (m *MockProvider) handle(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) < 2 || parts[len(parts)-1] != "GetHistoryIssuePage.json" {
		http.NotFound(w, r)
		return
	}
	gameName := parts[len(parts)-2]

	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil {
		http.Error(w, "bad page", http.StatusBadRequest)
		return
	}

	m.mu.Lock()
	m.requestCount++
	m.pageHits[page]++
	m.games[gameName]++
	m.lastHeader = r.Header.Clone()
	resp, ok := m.pages[gameName][page]
	m.mu.Unlock()

	if !ok {
		resp = PageResponse{StatusCode: http.StatusOK}
	}

	if resp.Delay > 0 {
		select {
		case <-time.After(resp.Delay):
		case <-r.Context().Done():
			return
		}
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	status := resp.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)

	if resp.RawBody != "" {
		w.Write([]byte(resp.RawBody))
		return
	}
	_ = json.NewEncoder(w).Encode(Envelope(resp.Records))
}

// Envelope wraps records the way the provider does.
func Envelope(records []game.Record) map[string]any {
	if records == nil {
		records = []game.Record{}
	}
	return map[string]any{
		"code": 0,
		"msg":  "Succeed",
		"result": map[string]any{
			"list":      records,
			"pageNo":    1,
			"totalPage": 50,
		},
	}
}

// SequentialRecords builds n records with issues start, start-1, ... and draw numbers cycling 0..9.
func SequentialRecords(start int64, n int) []game.Record {
	records := make([]game.Record, 0, n)
	for i := 0; i < n; i++ {
		issue := start - int64(i)
		records = append(records, game.Record{
			Issue:      strconv.FormatInt(issue, 10),
			DrawNumber: game.NewDrawNumber(int(issue % 10)),
		})
	}
	return records
}

// Issues extracts the issue identifiers of records, for comparisons in tests.
func Issues(records []game.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Issue
	}
	return out
}

// NewTimeoutPage returns a page response slower than any sane test timeout.
func NewTimeoutPage(d time.Duration) PageResponse {
	return PageResponse{StatusCode: http.StatusOK, Delay: d}
}

// NewServerErrorPage returns a 500 page.
func NewServerErrorPage() PageResponse {
	return PageResponse{
		StatusCode: http.StatusInternalServerError,
		RawBody:    fmt.Sprintf(`{"code":%d,"msg":"internal error"}`, http.StatusInternalServerError),
	}
}

// NewMalformedPage returns a 200 page with an unparseable body.
func NewMalformedPage() PageResponse {
	return PageResponse{StatusCode: http.StatusOK, RawBody: `{"result": {"list": [`}
}
