package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// flakySource serves a fixed set of descriptors but can be switched into a
// failing state to exercise the no-downgrade guarantee.
type flakySource struct {
	mu      sync.Mutex
	failing bool
	inner   *StaticSource
}

func (f *flakySource) setFailing(failing bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing = failing
}

func (f *flakySource) Categories(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return nil, fmt.Errorf("boom: %w", ErrSourceUnavailable)
	}
	return f.inner.Categories(ctx)
}

func (f *flakySource) Descriptors(ctx context.Context, category string) ([]RawDescriptor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return nil, fmt.Errorf("boom: %w", ErrSourceUnavailable)
	}
	return f.inner.Descriptors(ctx, category)
}

func TestReloader_LoadPublishesSnapshot(t *testing.T) {
	source := NewStaticSource().Add("info", staticDescriptor("a", "GET", "/a"))
	r := NewReloader(NewBuilder(nil, nil), source, nil, 0)

	if r.Current() != nil {
		t.Fatal("snapshot published before Load")
	}
	if err := r.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	snapshot := r.Current()
	if snapshot == nil {
		t.Fatal("no snapshot after Load")
	}
	if snapshot.Version != 1 {
		t.Errorf("version: got %d, want 1", snapshot.Version)
	}
	if _, ok := snapshot.Table.Lookup("GET", "/info/a"); !ok {
		t.Error("route missing from initial snapshot")
	}
}

func TestReloader_FailedBuildKeepsPreviousSnapshot(t *testing.T) {
	source := &flakySource{
		inner: NewStaticSource().Add("info", staticDescriptor("a", "GET", "/a")),
	}
	r := NewReloader(NewBuilder(nil, nil), source, nil, 0)

	if err := r.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	before := r.Current()

	source.setFailing(true)
	r.Trigger()
	waitForIdle(t, r)

	after := r.Current()
	if after != before {
		t.Error("failed reload replaced the published snapshot")
	}
	if _, ok := after.Table.Lookup("GET", "/info/a"); !ok {
		t.Error("previous routes lost after failed reload")
	}
}

// slowSource delays enumeration so triggers can pile up mid-build.
type slowSource struct {
	inner *StaticSource
	delay time.Duration
}

func (s *slowSource) Categories(ctx context.Context) ([]string, error) {
	time.Sleep(s.delay)
	return s.inner.Categories(ctx)
}

func (s *slowSource) Descriptors(ctx context.Context, category string) ([]RawDescriptor, error) {
	return s.inner.Descriptors(ctx, category)
}

func TestReloader_TriggerCoalesces(t *testing.T) {
	source := &slowSource{
		inner: NewStaticSource().Add("info", staticDescriptor("a", "GET", "/a")),
		delay: 100 * time.Millisecond,
	}
	r := NewReloader(NewBuilder(nil, nil), source, nil, 0)

	if err := r.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// All triggers land while the first rebuild is still running, so they
	// coalesce into exactly one follow-up build.
	for i := 0; i < 20; i++ {
		r.Trigger()
	}
	waitForIdle(t, r)

	version := r.Current().Version
	if version != 3 {
		t.Errorf("version: got %d, want 3 (load + build + one coalesced follow-up)", version)
	}
}

func TestReloader_ConcurrentReadsDuringReload(t *testing.T) {
	source := NewStaticSource().Add("info", staticDescriptor("a", "GET", "/a"))
	r := NewReloader(NewBuilder(nil, nil), source, nil, 0)

	if err := r.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				snapshot := r.Current()
				if snapshot == nil {
					t.Error("nil snapshot observed during reload")
					return
				}
				// Any published snapshot must be complete.
				if _, ok := snapshot.Table.Lookup("GET", "/info/a"); !ok {
					t.Error("incomplete snapshot observed")
					return
				}
			}
		}()
	}

	for i := 0; i < 50; i++ {
		r.Trigger()
		time.Sleep(time.Millisecond)
	}
	waitForIdle(t, r)
	close(done)
	wg.Wait()
}

func TestReloader_WatchRebuildsOnFileChange(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "info"), 0o755); err != nil {
		t.Fatal(err)
	}

	descriptor := []byte(`
name: Ping
category: info
method: GET
path: /ping-static
handler:
  kind: static
  options:
    body:
      status: true
`)
	if err := os.WriteFile(filepath.Join(dir, "info", "ping.yaml"), descriptor, 0o644); err != nil {
		t.Fatal(err)
	}

	source := NewFSSource(dir, ".yaml")
	r := NewReloader(NewBuilder(nil, nil), source, nil, 50*time.Millisecond)
	defer r.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := r.Load(ctx); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := r.Watch(ctx); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	if _, ok := r.Current().Table.Lookup("GET", "/info/ping-static"); !ok {
		t.Fatal("initial route missing")
	}

	second := []byte(`
name: Pong
category: info
method: GET
path: /pong-static
handler:
  kind: static
  options:
    body:
      status: true
`)
	if err := os.WriteFile(filepath.Join(dir, "info", "pong.yaml"), second, 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := r.Current().Table.Lookup("GET", "/info/pong-static"); ok {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("new route never appeared after file change")
}

// waitForIdle spins until no build is running or pending.
func waitForIdle(t *testing.T, r *Reloader) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		r.mu.Lock()
		idle := !r.building && !r.pending
		r.mu.Unlock()
		if idle {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("reloader never became idle")
}
