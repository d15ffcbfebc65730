// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

package recommend_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/basket/internal/recommend"
	"github.com/tomtom215/basket/internal/recommend/algorithms"
)

type memEvents struct {
	mu     sync.Mutex
	events []recommend.Event
	err    error

	// onList runs inside ListEvents before it returns.
	onList func(ctx context.Context)
}

func (s *memEvents) ListEvents(ctx context.Context, since time.Time) ([]recommend.Event, error) {
	if s.onList != nil {
		s.onList(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make([]recommend.Event, 0, len(s.events))
	for _, e := range s.events {
		if since.IsZero() || !e.Timestamp.Before(since) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *memEvents) Append(_ context.Context, e recommend.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *memEvents) set(events []recommend.Event, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = events
	s.err = err
}

type memCatalog []string

func (c memCatalog) ListProductIDs(context.Context) ([]string, error) {
	return slices.Clone(c), nil
}

func (c memCatalog) Exists(_ context.Context, id string) (bool, error) {
	return slices.Contains(c, id), nil
}

type memSnapshots struct {
	mu    sync.Mutex
	saved []*recommend.Snapshot
	err   error
}

func (s *memSnapshots) Save(_ context.Context, snap *recommend.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, snap)
	return nil
}

func (s *memSnapshots) Load(context.Context) (*recommend.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.saved) == 0 {
		return nil, nil
	}
	return s.saved[len(s.saved)-1], nil
}

func at(user, product string, t recommend.EventType, ago time.Duration) recommend.Event {
	return recommend.Event{UserID: user, ProductID: product, Type: t, Timestamp: time.Now().Add(-ago)}
}

// scenarioEvents: u1 viewed p1 and bought p2, u2 bought p1 and viewed p3.
func scenarioEvents() []recommend.Event {
	return []recommend.Event{
		at("u1", "p1", recommend.EventView, 4*time.Hour),
		at("u1", "p2", recommend.EventPurchase, 3*time.Hour),
		at("u2", "p1", recommend.EventPurchase, 2*time.Hour),
		at("u2", "p3", recommend.EventView, time.Hour),
	}
}

func testConfig() *recommend.Config {
	cfg := recommend.DefaultConfig()
	cfg.Schedule.Interval = 0
	cfg.Schedule.MinInterval = 0
	cfg.Schedule.RunOnStartup = false
	return cfg
}

func newPipeline(t *testing.T, events recommend.EventStore, catalog recommend.Catalog, opts ...recommend.SchedulerOption) (*recommend.Engine, *recommend.Scheduler) {
	t.Helper()
	cfg := testConfig()
	model, err := algorithms.New(cfg.Model)
	if err != nil {
		t.Fatalf("algorithms.New() error = %v", err)
	}
	engine, err := recommend.NewEngine(cfg, model, catalog, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	sched, err := recommend.NewScheduler(engine, events, catalog, zerolog.Nop(), opts...)
	if err != nil {
		t.Fatalf("NewScheduler() error = %v", err)
	}
	return engine, sched
}

func TestScheduler_Scenario(t *testing.T) {
	t.Parallel()

	catalog := memCatalog{"p1", "p2", "p3", "p4", "p5"}
	engine, sched := newPipeline(t, &memEvents{events: scenarioEvents()}, catalog)

	res, err := sched.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if res.Version != 1 || res.Users != 2 || res.Events != 4 || res.Entries != 2 {
		t.Errorf("CycleResult = %+v", res)
	}

	rec, err := engine.Recommend(context.Background(), "u1", 2)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if !rec.Personalized || !rec.CacheHit {
		t.Errorf("Recommend(u1) = %+v, want a personalized cache hit", rec)
	}
	if !slices.Contains(rec.Items, "p3") {
		t.Errorf("Recommend(u1, 2) = %v, want p3 (related to p1 through u2)", rec.Items)
	}
	for _, id := range rec.Items {
		switch id {
		case "p2":
			t.Errorf("Recommend(u1) returned purchased p2")
		case "p4", "p5":
			t.Errorf("Recommend(u1) returned cold %s ahead of related products", id)
		}
	}
}

func TestScheduler_NeverSeenUserGetsTopPopular(t *testing.T) {
	t.Parallel()

	var events []recommend.Event
	// p0 is most popular, p6 least; p7 and p8 are cold.
	for i := 0; i < 7; i++ {
		for u := 0; u <= 7-i; u++ {
			events = append(events, at(fmt.Sprintf("u%d", u), fmt.Sprintf("p%d", i), recommend.EventView, time.Duration(i+1)*time.Minute))
		}
	}
	catalog := memCatalog{"p0", "p1", "p2", "p3", "p4", "p5", "p6", "p7", "p8"}
	engine, sched := newPipeline(t, &memEvents{events: events}, catalog)
	if _, err := sched.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}

	rec, err := engine.Recommend(context.Background(), "never-seen-user", 5)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	want := engine.Snapshot().Popular[:5]
	if rec.Personalized || !slices.Equal(rec.Items, want) {
		t.Errorf("Recommend() = %+v, want fallback %v", rec, want)
	}
	if !slices.Equal(want, []string{"p0", "p1", "p2", "p3", "p4"}) {
		t.Errorf("Popular[:5] = %v", want)
	}
}

func TestScheduler_CacheConsistentAfterPublish(t *testing.T) {
	t.Parallel()

	store := &memEvents{events: scenarioEvents()}
	engine, sched := newPipeline(t, store, memCatalog{"p1", "p2", "p3"})

	for want := uint64(1); want <= 3; want++ {
		if _, err := sched.RunOnce(context.Background()); err != nil {
			t.Fatalf("RunOnce() error = %v", err)
		}
		for _, user := range []string{"u1", "u2"} {
			entry, ok := engine.Cache().Get(user)
			if !ok {
				t.Fatalf("cycle %d: no entry for %s", want, user)
			}
			if entry.ModelVersion != want {
				t.Errorf("cycle %d: entry for %s has version %d", want, user, entry.ModelVersion)
			}
		}
		if engine.Version() != want {
			t.Errorf("engine version = %d, want %d", engine.Version(), want)
		}
	}
}

func TestScheduler_InsufficientDataKeepsSnapshot(t *testing.T) {
	t.Parallel()

	store := &memEvents{events: scenarioEvents()}
	engine, sched := newPipeline(t, store, memCatalog{"p1", "p2", "p3"})
	if _, err := sched.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	before := engine.Snapshot()
	beforeEntry, _ := engine.Cache().Get("u1")

	store.set(nil, nil)
	if _, err := sched.RunOnce(context.Background()); !errors.Is(err, recommend.ErrInsufficientData) {
		t.Fatalf("RunOnce() error = %v, want ErrInsufficientData", err)
	}
	if engine.Snapshot() != before {
		t.Error("snapshot replaced after a failed cycle")
	}
	afterEntry, ok := engine.Cache().Get("u1")
	if !ok || !slices.Equal(afterEntry.Items, beforeEntry.Items) || afterEntry.ModelVersion != beforeEntry.ModelVersion {
		t.Errorf("cache changed after a failed cycle: %+v -> %+v", beforeEntry, afterEntry)
	}
	if rec, err := engine.Recommend(context.Background(), "u1", 1); err != nil || !rec.Personalized {
		t.Errorf("Recommend() after failed cycle = %+v, %v", rec, err)
	}

	st := sched.Status()
	if st.Cycles != 1 || st.Failures != 1 || st.LastError == "" || st.State != "idle" {
		t.Errorf("Status() = %+v", st)
	}
}

func TestScheduler_EventStoreFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("duckdb unavailable")
	store := &memEvents{err: boom}
	var hookErr error
	engine, sched := newPipeline(t, store, memCatalog{"p1"},
		recommend.WithCycleHook(func(_ *recommend.CycleResult, err error) { hookErr = err }))

	if _, err := sched.RunOnce(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("RunOnce() error = %v, want %v", err, boom)
	}
	if !errors.Is(hookErr, boom) {
		t.Errorf("hook error = %v", hookErr)
	}
	if engine.Snapshot() != nil {
		t.Error("snapshot published despite failure")
	}
}

func TestScheduler_CancelledBeforePublish(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := &memEvents{events: scenarioEvents(), onList: func(context.Context) { cancel() }}
	engine, sched := newPipeline(t, store, memCatalog{"p1", "p2", "p3"})

	if _, err := sched.RunOnce(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("RunOnce() error = %v, want context.Canceled", err)
	}
	if engine.Snapshot() != nil || engine.Cache().Len() != 0 {
		t.Error("cancelled cycle left partial state behind")
	}
	if sched.State() != recommend.StateIdle {
		t.Errorf("State() = %v, want idle", sched.State())
	}
}

func TestScheduler_OneCycleAtATime(t *testing.T) {
	t.Parallel()

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	store := &memEvents{events: scenarioEvents(), onList: func(context.Context) {
		once.Do(func() {
			close(entered)
			<-release
		})
	}}
	engine, sched := newPipeline(t, store, memCatalog{"p1", "p2", "p3"})

	done := make(chan error, 1)
	go func() {
		_, err := sched.RunOnce(context.Background())
		done <- err
	}()
	<-entered

	if sched.State() != recommend.StateExtracting {
		t.Errorf("State() = %v, want extracting", sched.State())
	}
	if _, err := sched.RunOnce(context.Background()); !errors.Is(err, recommend.ErrRecomputeInProgress) {
		t.Errorf("concurrent RunOnce() error = %v, want ErrRecomputeInProgress", err)
	}
	// The old (empty) state stays servable while a cycle runs.
	if _, err := engine.Recommend(context.Background(), "u1", 2); err != nil {
		t.Errorf("Recommend() during cycle error = %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if engine.Version() != 1 {
		t.Errorf("Version() = %d, want 1", engine.Version())
	}
}

func TestScheduler_TriggerCoalesces(t *testing.T) {
	t.Parallel()

	_, sched := newPipeline(t, &memEvents{events: scenarioEvents()}, memCatalog{"p1"})
	if !sched.Trigger() {
		t.Error("first Trigger() = false, want queued")
	}
	for i := 0; i < 5; i++ {
		if sched.Trigger() {
			t.Error("Trigger() queued a second pending cycle")
		}
	}
	if !sched.Status().Pending {
		t.Error("Status().Pending = false after Trigger")
	}
}

func TestScheduler_Run(t *testing.T) {
	t.Parallel()

	cycles := make(chan *recommend.CycleResult, 4)
	saved := &memSnapshots{}
	engine, sched := newPipeline(t, &memEvents{events: scenarioEvents()}, memCatalog{"p1", "p2", "p3"},
		recommend.WithSnapshotStore(saved),
		recommend.WithCycleIDs(func() string { return "fixed" }),
		recommend.WithCycleHook(func(res *recommend.CycleResult, err error) {
			if err == nil {
				cycles <- res
			}
		}))

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- sched.Run(ctx) }()

	sched.Trigger()
	select {
	case res := <-cycles:
		if res.ID != "fixed" || res.Version != 1 {
			t.Errorf("cycle = %+v", res)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("triggered cycle did not run")
	}

	cancel()
	if err := <-runErr; !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if engine.Version() != 1 {
		t.Errorf("Version() = %d, want 1", engine.Version())
	}
	if snap, _ := saved.Load(context.Background()); snap == nil || snap.Version != 1 {
		t.Errorf("persisted snapshot = %+v", snap)
	}
}

func TestScheduler_SaveFailureKeepsPublish(t *testing.T) {
	t.Parallel()

	saved := &memSnapshots{err: errors.New("disk full")}
	engine, sched := newPipeline(t, &memEvents{events: scenarioEvents()}, memCatalog{"p1", "p2", "p3"},
		recommend.WithSnapshotStore(saved))

	if _, err := sched.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if engine.Version() != 1 {
		t.Errorf("Version() = %d, want 1 despite save failure", engine.Version())
	}
}

func TestScheduler_RestoreThenCycle(t *testing.T) {
	t.Parallel()

	engine, sched := newPipeline(t, &memEvents{events: scenarioEvents()}, memCatalog{"p1", "p2", "p3"})
	restored := &recommend.Snapshot{Version: 41, Catalog: map[string]struct{}{"p1": {}}}
	if err := engine.Restore(restored); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	res, err := sched.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if res.Version != 42 {
		t.Errorf("Version = %d, want 42 (continues after restored snapshot)", res.Version)
	}
}
