// Package telemetry keeps in-process statistics about answered queries.
// Nothing leaves the process; counters reset on restart.
package telemetry

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LatencyBucket is a latency histogram bucket.
type LatencyBucket string

const (
	BucketP50   LatencyBucket = "p50"   // <50ms
	BucketP100  LatencyBucket = "p100"  // 50-100ms
	BucketP500  LatencyBucket = "p500"  // 100-500ms
	BucketP1000 LatencyBucket = "p1000" // 500ms-1s
	BucketSlow  LatencyBucket = "slow"  // >=1s
)

// LatencyToBucket converts a duration to its histogram bucket.
func LatencyToBucket(d time.Duration) LatencyBucket {
	ms := d.Milliseconds()
	switch {
	case ms < 50:
		return BucketP50
	case ms < 100:
		return BucketP100
	case ms < 500:
		return BucketP500
	case ms < 1000:
		return BucketP1000
	default:
		return BucketSlow
	}
}

// QueryEvent is one answered query.
type QueryEvent struct {
	Query       string
	ResultCount int
	Latency     time.Duration
	Failed      bool
}

// CircularBuffer is a fixed-capacity FIFO buffer.
type CircularBuffer[T any] struct {
	items []T
	head  int
	size  int
}

// NewCircularBuffer creates a buffer holding at most capacity items.
func NewCircularBuffer[T any](capacity int) *CircularBuffer[T] {
	if capacity <= 0 {
		capacity = 100
	}
	return &CircularBuffer[T]{items: make([]T, capacity)}
}

// Add appends item, evicting the oldest when full.
func (b *CircularBuffer[T]) Add(item T) {
	b.items[b.head] = item
	b.head = (b.head + 1) % len(b.items)
	if b.size < len(b.items) {
		b.size++
	}
}

// Items returns the buffered items, oldest first.
func (b *CircularBuffer[T]) Items() []T {
	result := make([]T, 0, b.size)
	if b.size < len(b.items) {
		return append(result, b.items[:b.size]...)
	}
	result = append(result, b.items[b.head:]...)
	return append(result, b.items[:b.head]...)
}

// Size returns the number of buffered items.
func (b *CircularBuffer[T]) Size() int {
	return b.size
}

// ExtractTerms lowercases query and keeps the words of at least three
// letters, with surrounding punctuation removed.
func ExtractTerms(query string) []string {
	var terms []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		w = strings.Trim(w, "¿?¡!.,;:()\"'«»")
		if len([]rune(w)) >= 3 {
			terms = append(terms, w)
		}
	}
	return terms
}

// TermCount is a term and how many queries used it.
type TermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// Snapshot is a point-in-time copy of the metrics.
type Snapshot struct {
	TotalQueries        int64                   `json:"total_queries"`
	FailedQueries       int64                   `json:"failed_queries"`
	ZeroResultCount     int64                   `json:"zero_result_count"`
	ExactRepeatCount    int64                   `json:"exact_repeat_count"`
	TopTerms            []TermCount             `json:"top_terms"`
	ZeroResultQueries   []string                `json:"zero_result_queries"`
	LatencyDistribution map[LatencyBucket]int64 `json:"latency_distribution"`
	Since               time.Time               `json:"since"`
}

// ZeroResultPercentage returns the share of queries that found nothing.
func (s Snapshot) ZeroResultPercentage() float64 {
	if s.TotalQueries == 0 {
		return 0
	}
	return float64(s.ZeroResultCount) / float64(s.TotalQueries) * 100
}

// Config configures a QueryMetrics.
type Config struct {
	TopTerms            int // Terms reported in a snapshot (default: 20)
	MaxTrackedTerms     int // Distinct terms counted before new ones are dropped (default: 10000)
	ZeroResultsCapacity int // Recent zero-result queries kept (default: 50)
	RecentQueries       int // Recent query hashes kept for repeat detection (default: 500)
}

// DefaultConfig returns the default collector configuration.
func DefaultConfig() Config {
	return Config{
		TopTerms:            20,
		MaxTrackedTerms:     10000,
		ZeroResultsCapacity: 50,
		RecentQueries:       500,
	}
}

// QueryMetrics aggregates QueryEvents. It is safe for concurrent use.
type QueryMetrics struct {
	mu sync.Mutex

	cfg         Config
	total       int64
	failed      int64
	zeroResults int64
	repeats     int64
	terms       map[string]int64
	latency     map[LatencyBucket]int64
	zeroQueries *CircularBuffer[string]
	recent      *lru.Cache[string, struct{}]
	since       time.Time
}

// New creates a collector. Zero fields of cfg take their defaults.
func New(cfg Config) *QueryMetrics {
	def := DefaultConfig()
	if cfg.TopTerms <= 0 {
		cfg.TopTerms = def.TopTerms
	}
	if cfg.MaxTrackedTerms <= 0 {
		cfg.MaxTrackedTerms = def.MaxTrackedTerms
	}
	if cfg.ZeroResultsCapacity <= 0 {
		cfg.ZeroResultsCapacity = def.ZeroResultsCapacity
	}
	if cfg.RecentQueries <= 0 {
		cfg.RecentQueries = def.RecentQueries
	}

	// lru.New only fails for a non-positive size.
	recent, _ := lru.New[string, struct{}](cfg.RecentQueries)

	return &QueryMetrics{
		cfg:         cfg,
		terms:       make(map[string]int64),
		latency:     make(map[LatencyBucket]int64),
		zeroQueries: NewCircularBuffer[string](cfg.ZeroResultsCapacity),
		recent:      recent,
		since:       time.Now(),
	}
}

// Record adds one query to the aggregates.
func (m *QueryMetrics) Record(event QueryEvent) {
	key := hashQuery(event.Query)
	terms := ExtractTerms(event.Query)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.total++
	m.latency[LatencyToBucket(event.Latency)]++
	if event.Failed {
		m.failed++
		return
	}

	if ok, _ := m.recent.ContainsOrAdd(key, struct{}{}); ok {
		m.repeats++
	}
	if event.ResultCount == 0 {
		m.zeroResults++
		m.zeroQueries.Add(strings.TrimSpace(event.Query))
	}
	for _, t := range terms {
		if _, ok := m.terms[t]; ok || len(m.terms) < m.cfg.MaxTrackedTerms {
			m.terms[t]++
		}
	}
}

// hashQuery normalizes case and spacing so trivially different spellings
// of one question count as a repeat.
func hashQuery(query string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:8])
}

// Snapshot returns a copy of the current aggregates.
func (m *QueryMetrics) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	top := make([]TermCount, 0, len(m.terms))
	for t, c := range m.terms {
		top = append(top, TermCount{Term: t, Count: c})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Count != top[j].Count {
			return top[i].Count > top[j].Count
		}
		return top[i].Term < top[j].Term
	})
	if len(top) > m.cfg.TopTerms {
		top = top[:m.cfg.TopTerms]
	}

	latency := make(map[LatencyBucket]int64, len(m.latency))
	for b, c := range m.latency {
		latency[b] = c
	}

	return Snapshot{
		TotalQueries:        m.total,
		FailedQueries:       m.failed,
		ZeroResultCount:     m.zeroResults,
		ExactRepeatCount:    m.repeats,
		TopTerms:            top,
		ZeroResultQueries:   m.zeroQueries.Items(),
		LatencyDistribution: latency,
		Since:               m.since,
	}
}
