// Package ingest applies entity change events to the cell index.
package ingest

import (
	"context"
	"fmt"

	"github.com/geodesio/cellcover/internal/core/model"
)

// Event is one entity change from the ingest topic. Deletes carry the
// coordinate too so the cell can be recomputed without a lookup.
type Event struct {
	Op      string  `json:"op"` // "upsert" or "delete"
	ID      string  `json:"id"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Payload string  `json:"payload,omitempty"`
	Version int64   `json:"version"`
}

// CellResolver maps a point to its indexing cell for an engine.
type CellResolver interface {
	CellFor(engine string, p model.GeoPoint) (cell string, precision int, err error)
}

// Store is the index-mutation slice of the redis store.
type Store interface {
	UpsertEntity(ctx context.Context, engine string, precision int, cell string, e model.Entity) error
	DeleteEntity(ctx context.Context, engine string, precision int, cell, id string) error
}

// Indexer writes one event into the cell index of every configured engine.
type Indexer struct {
	resolver CellResolver
	store    Store
	engines  []string
}

func NewIndexer(resolver CellResolver, store Store, engines []string) *Indexer {
	return &Indexer{resolver: resolver, store: store, engines: engines}
}

func (ix *Indexer) Apply(ctx context.Context, ev Event) error {
	p, err := model.NewGeoPoint(ev.Lat, ev.Lng)
	if err != nil {
		return fmt.Errorf("event %q: %w", ev.ID, err)
	}
	e := model.Entity{ID: ev.ID, Lat: ev.Lat, Lng: ev.Lng, Payload: ev.Payload, Version: ev.Version}

	for _, engine := range ix.engines {
		cell, prec, err := ix.resolver.CellFor(engine, p)
		if err != nil {
			return fmt.Errorf("resolve cell for %q on %s: %w", ev.ID, engine, err)
		}
		switch ev.Op {
		case "upsert":
			err = ix.store.UpsertEntity(ctx, engine, prec, cell, e)
		case "delete":
			err = ix.store.DeleteEntity(ctx, engine, prec, cell, ev.ID)
		default:
			return fmt.Errorf("event %q: unknown op %q", ev.ID, ev.Op)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
