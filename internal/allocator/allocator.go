// Package allocator implements the proxy's adaptive cache-allocation engine
// (§4.1): popularity tracking plus a budget-constrained assignment of
// cached-block counts per key, recomputed on a fixed interval via
// container/heap.
package allocator

import (
	"container/heap"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agar-cache/agar/pkg/utils"
)

// Config tunes the allocator.
type Config struct {
	K, M         int
	Budget       int
	Decay        float64
	Interval     time.Duration
	PruneEpsilon float64
}

// Allocator tracks per-key popularity and assigns each key a cached-block
// count c(K) ∈ [0, k+m] respecting Σc(K) ≤ B.
type Allocator struct {
	cfg    Config
	logger *utils.StructuredLogger

	popularity sync.Map // string -> *popularityRecord

	mu      sync.RWMutex
	recipes map[string]int

	lastReallocation atomic.Value // time.Time
	lastAssigned     atomic.Int64

	stopCh chan struct{}
	doneCh chan struct{}
}

type popularityRecord struct {
	mu      sync.Mutex
	weight  float64
	updated time.Time
}

// New builds an allocator for the given erasure parameters and cache budget.
func New(cfg Config, logger *utils.StructuredLogger) *Allocator {
	if cfg.Decay <= 0 || cfg.Decay > 1.0 {
		cfg.Decay = 1.0
	}
	a := &Allocator{
		cfg:     cfg,
		logger:  logger,
		recipes: make(map[string]int),
	}
	a.lastReallocation.Store(time.Time{})
	return a
}

// OnAccess records a popularity update for key, applying the configured decay:
// w ← decay*w + 1.
func (a *Allocator) OnAccess(key string) {
	v, _ := a.popularity.LoadOrStore(key, &popularityRecord{})
	rec := v.(*popularityRecord)

	rec.mu.Lock()
	rec.weight = a.cfg.Decay*rec.weight + 1
	rec.updated = time.Now()
	rec.mu.Unlock()
}

// RecipeOf returns the currently assigned cached-block count for key, or 0 if
// key has never been seen or no reallocation has run yet.
func (a *Allocator) RecipeOf(key string) int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.recipes[key]
}

// gain is the concave gain curve g(i) = max(0, k-i)/k.
func (a *Allocator) gain(i int) float64 {
	if a.cfg.K <= 0 {
		return 0
	}
	g := float64(a.cfg.K-i) / float64(a.cfg.K)
	if g < 0 {
		g = 0
	}
	return g
}

type slot struct {
	utility float64
	key     string
	index   int
}

type slotHeap []slot

func (h slotHeap) Len() int { return len(h) }
func (h slotHeap) Less(i, j int) bool {
	if h[i].utility != h[j].utility {
		return h[i].utility > h[j].utility // max-heap
	}
	return h[i].key < h[j].key // deterministic tie-break
}
func (h slotHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *slotHeap) Push(x interface{}) { *h = append(*h, x.(slot)) }
func (h *slotHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Reallocate recomputes c(·) for every known key from current popularities,
// subject to Σc(K) ≤ B, and atomically swaps in the new recipe snapshot. Runs
// out of the request path: on the allocator's own ticker, or on demand from
// the admin HTTP surface.
func (a *Allocator) Reallocate() {
	maxIndex := a.cfg.K + a.cfg.M

	h := &slotHeap{}
	heap.Init(h)

	a.popularity.Range(func(k, v interface{}) bool {
		key := k.(string)
		rec := v.(*popularityRecord)
		rec.mu.Lock()
		w := rec.weight
		rec.mu.Unlock()

		heap.Push(h, slot{utility: w * a.gain(0), key: key, index: 0})
		return true
	})

	next := make(map[string]int)
	assigned := 0

	for h.Len() > 0 && assigned < a.cfg.Budget {
		s := heap.Pop(h).(slot)
		next[s.key] = s.index + 1
		assigned++

		if s.index+1 < maxIndex {
			w := a.weightOf(s.key)
			heap.Push(h, slot{utility: w * a.gain(s.index + 1), key: s.key, index: s.index + 1})
		}
	}

	a.mu.Lock()
	a.recipes = next
	a.mu.Unlock()

	a.lastReallocation.Store(time.Now())
	a.lastAssigned.Store(int64(assigned))

	if a.logger != nil {
		a.logger.Debug("reallocation complete", map[string]interface{}{
			"keys_assigned": len(next),
			"blocks_used":   assigned,
			"budget":        a.cfg.Budget,
		})
	}

	a.prune()
}

func (a *Allocator) weightOf(key string) float64 {
	v, ok := a.popularity.Load(key)
	if !ok {
		return 0
	}
	rec := v.(*popularityRecord)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.weight
}

// prune drops popularity entries whose weight has decayed below the
// configured epsilon, bounding memory for long-running proxies. An
// enrichment, not a correctness requirement.
func (a *Allocator) prune() {
	if a.cfg.PruneEpsilon <= 0 {
		return
	}
	a.popularity.Range(func(k, v interface{}) bool {
		rec := v.(*popularityRecord)
		rec.mu.Lock()
		w := rec.weight
		rec.mu.Unlock()
		if w < a.cfg.PruneEpsilon {
			a.popularity.Delete(k)
		}
		return true
	})
}

// Status reports the allocator's last reallocation time and total blocks
// currently assigned, for the admin /status surface.
type Status struct {
	LastReallocation time.Time
	BlocksAssigned   int
	KeysTracked      int
}

func (a *Allocator) StatusSnapshot() Status {
	a.mu.RLock()
	keys := len(a.recipes)
	a.mu.RUnlock()

	last, _ := a.lastReallocation.Load().(time.Time)
	return Status{
		LastReallocation: last,
		BlocksAssigned:   int(a.lastAssigned.Load()),
		KeysTracked:      keys,
	}
}

// HealthCheck always succeeds: the allocator is pure in-memory state with no
// external dependency, so it has no failure mode of its own (§4.1).
func (a *Allocator) HealthCheck(ctx context.Context) error { return nil }

// Start launches the periodic reallocation loop on its own goroutine.
func (a *Allocator) Start() {
	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})

	go func() {
		defer close(a.doneCh)
		ticker := time.NewTicker(a.cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-a.stopCh:
				return
			case <-ticker.C:
				a.Reallocate()
			}
		}
	}()
}

// Stop halts the reallocation loop and waits for it to exit.
func (a *Allocator) Stop() {
	if a.stopCh == nil {
		return
	}
	close(a.stopCh)
	<-a.doneCh
}
