// Package library holds every observer chronicle of a directory and resolves
// them for assimilation windows.
package library

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/danielpatrickdp/obschronicle/internal/chronicle"
	"github.com/danielpatrickdp/obschronicle/internal/logging"
	"github.com/danielpatrickdp/obschronicle/internal/metrics"
	"github.com/danielpatrickdp/obschronicle/internal/replay"
	"github.com/danielpatrickdp/obschronicle/internal/store"
	"github.com/danielpatrickdp/obschronicle/internal/timestamp"
)

// SatelliteType is the only observer_type whose channels can be resolved.
const SatelliteType = "satellite"

var (
	// ErrNoChronicle is returned when an observer has no chronicle file.
	ErrNoChronicle = errors.New("no chronicle for observer")
	// ErrDecommissioned is returned when the window begins at or after decommissioning.
	ErrDecommissioned = errors.New("observer decommissioned")
	// ErrNotSatellite is returned when channel data is requested for a non-satellite observer.
	ErrNotSatellite = errors.New("observer is not a satellite")
)

// #region types
// Options wires optional collaborators into a Library.
type Options struct {
	Metrics *metrics.Metrics
	Store   *store.Store // nil disables persistence
}

type memoKey struct {
	observer   string
	window     replay.Window
	generation uint64
}

// Library is a set of chronicle documents keyed by observer name, the file
// stem of each *.yaml in the directory. It is safe for concurrent use.
type Library struct {
	dir  string
	opts Options

	mu         sync.RWMutex
	docs       map[string]*chronicle.Document
	generation uint64

	memoMu  sync.Mutex
	memoKey memoKey
	memo    *chronicle.Outcome
}

// #endregion types

// #region open
// Open loads every chronicle in dir.
func Open(dir string, opts Options) (*Library, error) {
	l := &Library{dir: dir, opts: opts}
	if err := l.Reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// Reload re-reads the directory. On failure the previously loaded documents
// stay in place. A successful reload discards the memo.
func (l *Library) Reload() error {
	docs, err := loadDir(l.dir)
	l.opts.Metrics.ObserveReload(err, len(docs))
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.docs = docs
	l.generation++
	l.mu.Unlock()

	l.memoMu.Lock()
	l.memo = nil
	l.memoMu.Unlock()
	return nil
}

func loadDir(dir string) (map[string]*chronicle.Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read chronicle dir %s: %w", dir, err)
	}
	docs := make(map[string]*chronicle.Document)
	for _, e := range entries {
		if e.IsDir() || !isChronicleFile(e.Name()) {
			continue
		}
		doc, err := chronicle.LoadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		docs[strings.TrimSuffix(e.Name(), ".yaml")] = doc
	}
	return docs, nil
}

func isChronicleFile(name string) bool {
	return strings.HasSuffix(name, ".yaml") && !strings.HasPrefix(name, ".")
}

// #endregion open

// #region lookup
// Dir returns the directory the library was loaded from.
func (l *Library) Dir() string { return l.dir }

// Observers returns the loaded observer names in ascending order.
func (l *Library) Observers() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.docs))
	for name := range l.docs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Document returns the chronicle of observer.
func (l *Library) Document(observer string) (*chronicle.Document, error) {
	doc, _, err := l.lookup(observer)
	return doc, err
}

func (l *Library) lookup(observer string) (*chronicle.Document, uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	doc, ok := l.docs[observer]
	if !ok {
		return nil, 0, fmt.Errorf("%w: %s", ErrNoChronicle, observer)
	}
	return doc, l.generation, nil
}

// #endregion lookup

// #region use-observer
// UseObserver reports whether observer contributes data to window w. An
// observer without a chronicle is always used; otherwise the window must end
// after commissioning and begin before any decommissioning.
func (l *Library) UseObserver(observer string, w replay.Window) (bool, error) {
	doc, _, err := l.lookup(observer)
	if errors.Is(err, ErrNoChronicle) {
		return true, nil
	}
	commissioned, err := timestamp.FromConf(doc.Commissioned)
	if err != nil {
		return false, fmt.Errorf("%s: commissioned: %w", observer, err)
	}
	if !w.Final.After(commissioned) {
		return false, nil
	}
	decommissioned, ok, err := decommissionedAt(doc)
	if err != nil {
		return false, fmt.Errorf("%s: %w", observer, err)
	}
	if ok && !w.Begin.Before(decommissioned) {
		return false, nil
	}
	return true, nil
}

func decommissionedAt(doc *chronicle.Document) (time.Time, bool, error) {
	if doc.Decommissioned == nil {
		return time.Time{}, false, nil
	}
	if s, ok := doc.Decommissioned.(string); ok && s == "" {
		return time.Time{}, false, nil
	}
	t, err := timestamp.FromConf(doc.Decommissioned)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("decommissioned: %w", err)
	}
	return t, true, nil
}

// #endregion use-observer

// #region resolve
// Resolve returns the satellite configuration of observer over w. The last
// resolved observer and window are memoized until the next reload, so the
// returned outcome must be treated as read-only. A fresh resolution is
// persisted when the library has a store.
func (l *Library) Resolve(observer string, w replay.Window) (chronicle.Outcome, error) {
	return l.ResolveContext(context.Background(), observer, w)
}

// ResolveContext is Resolve bounded by ctx. A resolution whose context ends
// before it completes is neither memoized nor persisted.
func (l *Library) ResolveContext(ctx context.Context, observer string, w replay.Window) (chronicle.Outcome, error) {
	start := time.Now()
	out, steps, err := l.resolve(ctx, observer, w)
	outcome := "ok"
	if err != nil {
		outcome = chronicle.Classify(err)
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			outcome = "canceled"
		case errors.Is(err, ErrNoChronicle):
			outcome = "no_chronicle"
		case errors.Is(err, ErrDecommissioned):
			outcome = "decommissioned"
		case errors.Is(err, ErrNotSatellite):
			outcome = "not_satellite"
		}
	}
	l.opts.Metrics.ObserveResolve(outcome, time.Since(start), steps)
	return out, err
}

func (l *Library) resolve(ctx context.Context, observer string, w replay.Window) (chronicle.Outcome, int, error) {
	doc, gen, err := l.lookup(observer)
	if err != nil {
		return chronicle.Outcome{}, 0, err
	}
	decommissioned, ok, err := decommissionedAt(doc)
	if err != nil {
		return chronicle.Outcome{}, 0, fmt.Errorf("%s: %w", observer, err)
	}
	if ok && !w.Begin.Before(decommissioned) {
		return chronicle.Outcome{}, 0, fmt.Errorf("%w: %s since %s, window begins %s",
			ErrDecommissioned, observer, decommissioned.Format(time.RFC3339), w.Begin.Format(time.RFC3339))
	}
	if doc.ObserverType != SatelliteType {
		return chronicle.Outcome{}, 0, fmt.Errorf("%w: %s has observer_type %q", ErrNotSatellite, observer, doc.ObserverType)
	}

	key := memoKey{observer: observer, window: w, generation: gen}
	if out, ok := l.memoized(key); ok {
		l.opts.Metrics.CacheHit()
		return out, len(out.Replay.Steps), nil
	}
	if err := ctx.Err(); err != nil {
		return chronicle.Outcome{}, 0, err
	}

	out, err := chronicle.Run(w, doc)
	if err != nil {
		return chronicle.Outcome{}, 0, fmt.Errorf("%s: %w", observer, err)
	}
	if err := ctx.Err(); err != nil {
		return chronicle.Outcome{}, 0, err
	}
	if l.opts.Store != nil {
		if err := persist(ctx, l.opts.Store, observer, out); err != nil {
			log.Printf("[CHRON] persist %s %s: %v", observer, w, err)
		}
	}

	l.memoMu.Lock()
	l.memoKey = key
	l.memo = &out
	l.memoMu.Unlock()
	return out, len(out.Replay.Steps), nil
}

func (l *Library) memoized(key memoKey) (chronicle.Outcome, bool) {
	l.memoMu.Lock()
	defer l.memoMu.Unlock()
	if l.memo == nil || l.memoKey != key {
		return chronicle.Outcome{}, false
	}
	return *l.memo, true
}

func persist(ctx context.Context, s *store.Store, observer string, out chronicle.Outcome) error {
	rec, err := s.SaveResolutionContext(ctx, store.Record{
		Observer:     observer,
		WindowBegin:  out.Window.Begin,
		WindowFinal:  out.Window.Final,
		Config:       out.Config,
		BeginAsOf:    out.Replay.Begin.AsOf,
		FinalAsOf:    out.Replay.Final.AsOf,
		StepsApplied: len(out.Replay.Steps),
	})
	if err != nil {
		return err
	}
	return logging.LogStepsContext(ctx, s.DB(), rec.ResolutionID, out.Replay.Steps)
}

// #endregion resolve
