package core

import (
	"context"
	"net/http"
	"testing"
)

func staticDescriptor(name, method, path string) RawDescriptor {
	return RawDescriptor{
		Name:    name,
		Method:  method,
		Path:    path,
		Handler: okHandler(),
	}
}

func TestBuild_SkipsInvalidDescriptors(t *testing.T) {
	source := NewStaticSource().
		Add("info", staticDescriptor("a", "GET", "/a")).
		Add("info", staticDescriptor("b", "GET", "/b")).
		Add("tools", staticDescriptor("c", "GET", "/c")).
		Add("tools", staticDescriptor("d", "POST", "/d")).
		Add("ai", staticDescriptor("e", "GET", "/e")).
		Add("ai", RawDescriptor{Name: "broken", Method: "GET", Handler: okHandler()}) // missing path

	builder := NewBuilder(nil, nil)
	snapshot, err := builder.Build(context.Background(), source)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if snapshot.Stats.Discovered != 6 {
		t.Errorf("discovered: got %d, want 6", snapshot.Stats.Discovered)
	}
	if snapshot.Stats.Registered != 5 {
		t.Errorf("registered: got %d, want 5", snapshot.Stats.Registered)
	}
	if snapshot.Stats.Rejected != 1 {
		t.Errorf("rejected: got %d, want 1", snapshot.Stats.Rejected)
	}
	if len(snapshot.Catalog.Entries) != 5 {
		t.Errorf("catalog entries: got %d, want 5", len(snapshot.Catalog.Entries))
	}
	if snapshot.Table.Len() != 5 {
		t.Errorf("table size: got %d, want 5", snapshot.Table.Len())
	}
}

func TestBuild_PrefixResolution(t *testing.T) {
	source := NewStaticSource().
		Add("downloader", staticDescriptor("dl", "GET", "/douyin")).
		Add("mystery", staticDescriptor("m", "GET", "//thing"))

	builder := NewBuilder(nil, nil)
	snapshot, err := builder.Build(context.Background(), source)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if _, ok := snapshot.Table.Lookup("GET", "/download/douyin"); !ok {
		t.Error("expected /download/douyin to be registered")
	}
	// Unknown categories fall back to the default prefix, and redundant
	// separators collapse.
	if _, ok := snapshot.Table.Lookup("GET", "/other/thing"); !ok {
		t.Error("expected /other/thing to be registered")
	}
}

func TestBuild_CollisionLastWriteWins(t *testing.T) {
	first := RawDescriptor{
		Name:   "first",
		Method: "GET",
		Path:   "/same",
		Handler: HandlerFunc(func(w http.ResponseWriter, r *http.Request) error {
			_, err := w.Write([]byte("first"))
			return err
		}),
	}
	second := RawDescriptor{
		Name:   "second",
		Method: "GET",
		Path:   "/same",
		Handler: HandlerFunc(func(w http.ResponseWriter, r *http.Request) error {
			_, err := w.Write([]byte("second"))
			return err
		}),
	}

	source := NewStaticSource().
		Add("info", first).
		Add("info", second)

	builder := NewBuilder(nil, nil)
	snapshot, err := builder.Build(context.Background(), source)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if snapshot.Stats.Collisions != 1 {
		t.Errorf("collisions: got %d, want 1", snapshot.Stats.Collisions)
	}
	if snapshot.Table.Len() != 1 {
		t.Fatalf("table size: got %d, want 1", snapshot.Table.Len())
	}

	route, ok := snapshot.Table.Lookup("GET", "/info/same")
	if !ok {
		t.Fatal("route not found")
	}
	if route.Descriptor.Name != "second" {
		t.Errorf("expected later descriptor to win, got %q", route.Descriptor.Name)
	}
	if len(snapshot.Catalog.Entries) != 1 {
		t.Fatalf("catalog entries: got %d, want 1", len(snapshot.Catalog.Entries))
	}
	if snapshot.Catalog.Entries[0].Name != "second" {
		t.Errorf("catalog should list the winner, got %q", snapshot.Catalog.Entries[0].Name)
	}
}

func TestBuild_SourceFailure(t *testing.T) {
	builder := NewBuilder(nil, nil)
	_, err := builder.Build(context.Background(), NewFSSource("/does/not/exist", ".yaml"))
	if err == nil {
		t.Fatal("expected build failure for missing source dir")
	}
}

func TestCatalog_Categories(t *testing.T) {
	c := &Catalog{Entries: []CatalogEntry{
		{Category: "info"},
		{Category: "tools"},
		{Category: "info"},
	}}

	got := c.Categories()
	if len(got) != 2 || got[0] != "info" || got[1] != "tools" {
		t.Errorf("Categories() = %v, want [info tools]", got)
	}
}

func TestBuild_MethodsDistinguishRoutes(t *testing.T) {
	source := NewStaticSource().
		Add("tools", staticDescriptor("get", "GET", "/x")).
		Add("tools", staticDescriptor("post", "POST", "/x"))

	builder := NewBuilder(nil, nil)
	snapshot, err := builder.Build(context.Background(), source)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if snapshot.Table.Len() != 2 {
		t.Errorf("table size: got %d, want 2", snapshot.Table.Len())
	}
	if snapshot.Stats.Collisions != 0 {
		t.Errorf("collisions: got %d, want 0", snapshot.Stats.Collisions)
	}
}
