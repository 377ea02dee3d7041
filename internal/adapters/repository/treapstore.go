package repository

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/okian/squadron/pkg/metrics"
)

// Treap-based, in-memory Store implementation.
//
// Ordering: score DESC, then key ASC. "less" means ranks earlier, so an
// in-order traversal yields the leaderboard from best to worst.

// scoreScale controls fixed-point scaling from float64. Team scores live
// in [0, 1], so 12 decimal places never overflow.
const scoreScale = 1_000_000_000_000

type scoreFP int64

func toFixedPoint(x float64) scoreFP {
	switch {
	case math.IsNaN(x):
		return 0
	case x*scoreScale >= float64(math.MaxInt64):
		return scoreFP(math.MaxInt64)
	case x*scoreScale <= float64(math.MinInt64):
		return scoreFP(math.MinInt64)
	}
	return scoreFP(math.Round(x * scoreScale))
}

func toFloat(x scoreFP) float64 {
	return float64(x) / scoreScale
}

// record stores the fixed-point score plus metadata for a team's best.
type record struct {
	score scoreFP
	meta  Meta
}

// treap node
type node struct {
	key   string
	score scoreFP
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less returns true if (aScore, aKey) should appear before (bScore, bKey).
func less(aScore scoreFP, aKey string, bScore scoreFP, bKey string) bool {
	if aScore != bScore {
		return aScore > bScore
	}
	return aKey < bKey
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

// Priorities are a hash of the key: deterministic, yet spread well enough
// to keep the tree balanced regardless of score distribution.
func priority(key string) uint64 {
	return xxhash.Sum64String(key)
}

func insert(n *node, key string, score scoreFP) *node {
	if n == nil {
		return &node{key: key, score: score, prio: priority(key), size: 1}
	}
	if less(score, key, n.score, n.key) {
		n.left = insert(n.left, key, score)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, key, score)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, key string, score scoreFP) *node {
	if n == nil {
		return nil
	}
	switch {
	case score == n.score && key == n.key:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, key, score)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, key, score)
		}
	case less(score, key, n.score, n.key):
		n.left = deleteNode(n.left, key, score)
	default:
		n.right = deleteNode(n.right, key, score)
	}
	fix(n)
	return n
}

// last returns the lowest ranked node.
func last(n *node) *node {
	if n == nil {
		return nil
	}
	for n.right != nil {
		n = n.right
	}
	return n
}

// collect appends up to limit entries in rank order.
func collect(n *node, limit int, records map[string]record, out *[]Entry) {
	if n == nil || len(*out) >= limit {
		return
	}
	collect(n.left, limit, records, out)
	if len(*out) < limit {
		if rec, ok := records[n.key]; ok {
			*out = append(*out, Entry{Key: n.key, Score: toFloat(rec.score), Meta: cloneMeta(rec.meta)})
		}
	}
	if len(*out) < limit {
		collect(n.right, limit, records, out)
	}
}

func cloneMeta(m Meta) Meta {
	m.Archetypes = append([]string(nil), m.Archetypes...)
	m.Labels = append([]string(nil), m.Labels...)
	return m
}

// TreapStore is a leaderboard of teams keyed by team fingerprint.
type TreapStore struct {
	mu       sync.RWMutex
	root     *node
	byKey    map[string]record
	capacity int
}

var _ Store = (*TreapStore)(nil)

// NewTreapStore constructs a treap store with configuration options.
func NewTreapStore(opts ...Option) *TreapStore {
	s := &TreapStore{byKey: make(map[string]record)}
	for _, opt := range opts {
		opt(s)
	}
	metrics.UpdateLeaderboardTeams(0)
	return s
}

// UpdateBest implements Store.UpdateBest with O(log n) expected time.
func (s *TreapStore) UpdateBest(ctx context.Context, key string, score float64, meta Meta) (bool, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	if key == "" {
		metrics.RecordErrorByComponent("repository", "invalid_key")
		return false, ErrInvalidKey
	}

	ns := toFixedPoint(score)

	s.mu.Lock()
	if old, ok := s.byKey[key]; ok {
		if ns <= old.score {
			s.mu.Unlock()
			return false, nil
		}
		s.root = deleteNode(s.root, key, old.score)
	}
	s.byKey[key] = record{score: ns, meta: cloneMeta(meta)}
	s.root = insert(s.root, key, ns)

	kept := true
	if s.capacity > 0 && len(s.byKey) > s.capacity {
		worst := last(s.root)
		kept = worst.key != key
		s.root = deleteNode(s.root, worst.key, worst.score)
		delete(s.byKey, worst.key)
	}
	count := len(s.byKey)
	s.mu.Unlock()

	metrics.UpdateLeaderboardTeams(count)
	if kept {
		metrics.RecordLeaderboardUpdate()
	}
	return kept, nil
}

// Rank returns the current rank and score for a team.
func (s *TreapStore) Rank(ctx context.Context, key string) (Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.byKey[key]; !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return Entry{}, ErrNotFound
	}

	all := make([]Entry, 0, len(s.byKey))
	collect(s.root, len(s.byKey), s.byKey, &all)
	assignRanksWithTies(all)

	for _, e := range all {
		if e.Key == key {
			return e, nil
		}
	}
	return Entry{}, ErrNotFound
}

// TopN returns the top N entries ordered by score desc.
func (s *TreapStore) TopN(ctx context.Context, n int) ([]Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, 0, min(n, len(s.byKey)))
	collect(s.root, n, s.byKey, &out)
	assignRanksWithTies(out)
	return out, nil
}

// Count returns the total number of teams.
func (s *TreapStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byKey)
}

// Keys returns every tracked key in rank order.
func (s *TreapStore) Keys(ctx context.Context) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]Entry, 0, len(s.byKey))
	collect(s.root, len(s.byKey), s.byKey, &all)
	keys := make([]string, len(all))
	for i, e := range all {
		keys[i] = e.Key
	}
	return keys
}

// assignRanksWithTies gives equal scores the same rank; the next distinct
// score takes the next consecutive rank.
func assignRanksWithTies(entries []Entry) {
	if len(entries) == 0 {
		return
	}

	currentRank := 1
	for i := 0; i < len(entries); i++ {
		entries[i].Rank = currentRank

		same := 1
		for j := i + 1; j < len(entries) && entries[j].Score == entries[i].Score; j++ {
			entries[j].Rank = currentRank
			same++
		}

		currentRank++
		i += same - 1
	}
}
