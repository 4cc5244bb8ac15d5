package core

import (
	"context"
	"fmt"
	"time"
)

// BuildStats summarizes one registry build.
type BuildStats struct {
	Discovered int // candidate descriptors seen
	Registered int // descriptors that made it into the table
	Rejected   int // descriptors rejected by validation
	Collisions int // (method, path) keys that were overwritten
}

// Snapshot is one immutable (RouteTable, Catalog) pair plus build metadata.
// Snapshots are published wholesale via atomic swap; in-flight requests keep
// using whichever snapshot they started with.
type Snapshot struct {
	Table   *RouteTable
	Catalog *Catalog
	Stats   BuildStats
	Version uint64
	BuiltAt time.Time
}

// Builder discovers, validates and registers capabilities, producing
// immutable snapshots. It is the sole writer of route tables and catalogs.
type Builder struct {
	handlers *HandlerRegistry
	logger   Logger
}

// NewBuilder creates a registry builder.
func NewBuilder(handlers *HandlerRegistry, logger Logger) *Builder {
	if handlers == nil {
		handlers = NewHandlerRegistry()
	}
	if logger == nil {
		logger = &NoOpLogger{}
	}
	return &Builder{handlers: handlers, logger: logger}
}

// Build enumerates the source, validates every discovered descriptor and
// assembles a fresh snapshot. A broken descriptor is logged and skipped; the
// build only fails when the source itself cannot be enumerated, in which case
// the caller keeps serving the previously published snapshot.
//
// Collisions on (method, full-path) resolve last-write-wins, with a warning
// naming both origins so a shadowed capability is never silent.
func (b *Builder) Build(ctx context.Context, source Source) (*Snapshot, error) {
	categories, err := source.Categories(ctx)
	if err != nil {
		return nil, NewGatewayError("registry.Build", "source", err)
	}

	routes := make(map[routeKey]*Route)
	entries := make([]CatalogEntry, 0)
	entryIndex := make(map[routeKey]int)
	stats := BuildStats{}

	for _, category := range categories {
		raws, err := source.Descriptors(ctx, category)
		if err != nil {
			return nil, NewGatewayError("registry.Build", "source", err)
		}

		for _, raw := range raws {
			stats.Discovered++

			desc, err := ValidateDescriptor(raw, b.handlers)
			if err != nil {
				stats.Rejected++
				b.logger.Error("Descriptor rejected", map[string]interface{}{
					"origin":   raw.Origin,
					"category": category,
					"error":    err,
				})
				continue
			}

			fullPath := collapseSlashes(ResolveCategoryPrefix(desc.Category) + desc.Path)
			key := routeKey{method: desc.Method, path: fullPath}

			if prev, exists := routes[key]; exists {
				stats.Collisions++
				b.logger.Warn("Route collision, later descriptor wins", map[string]interface{}{
					"method":     desc.Method,
					"path":       fullPath,
					"shadowed":   prev.Descriptor.Origin,
					"registered": desc.Origin,
				})
			} else {
				stats.Registered++
			}

			routes[key] = &Route{Descriptor: desc, Handler: desc.Handler}

			entry := CatalogEntry{
				Name:        desc.Name,
				Description: desc.Description,
				Category:    desc.Category,
				Method:      desc.Method,
				Endpoint:    APIPrefix + fullPath,
				Parameters:  desc.Params,
				Example:     desc.Example,
			}
			if idx, exists := entryIndex[key]; exists {
				entries[idx] = entry
			} else {
				entryIndex[key] = len(entries)
				entries = append(entries, entry)
			}

			b.logger.Info("Registered capability", map[string]interface{}{
				"name":     desc.Name,
				"method":   desc.Method,
				"endpoint": APIPrefix + fullPath,
				"category": desc.Category,
			})
		}
	}

	snapshot := &Snapshot{
		Table:   &RouteTable{routes: routes},
		Catalog: &Catalog{Entries: entries},
		Stats:   stats,
		BuiltAt: time.Now(),
	}

	b.logger.Info("Registry build completed", map[string]interface{}{
		"discovered": stats.Discovered,
		"registered": stats.Registered,
		"rejected":   stats.Rejected,
		"collisions": stats.Collisions,
		"summary":    fmt.Sprintf("%d/%d", stats.Registered, stats.Discovered),
	})

	return snapshot, nil
}
