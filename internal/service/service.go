// Package service wires the covering engines, cache and store behind the
// HTTP handlers. It owns engine selection, precision defaults and the
// cache-then-search flow.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/geodesio/cellcover/internal/cache"
	"github.com/geodesio/cellcover/internal/cache/keys"
	"github.com/geodesio/cellcover/internal/core/config"
	"github.com/geodesio/cellcover/internal/core/model"
	"github.com/geodesio/cellcover/internal/core/observability"
	"github.com/geodesio/cellcover/internal/cover"
	"github.com/geodesio/cellcover/internal/geo"
	"github.com/geodesio/cellcover/internal/h3grid"
	"github.com/geodesio/cellcover/internal/hexgrid"
	"github.com/geodesio/cellcover/internal/logger"
	"github.com/geodesio/cellcover/internal/precision"
	"github.com/geodesio/cellcover/internal/quadgrid"
)

var (
	ErrUnknownEngine = errors.New("unknown engine")
	ErrStoreDisabled = errors.New("entity store is not enabled")
)

// EntityStore is the slice of the redis store the service needs; nil when
// the deployment runs without one.
type EntityStore interface {
	EntitiesInCells(ctx context.Context, engine string, precision int, cells []string) ([]model.Entity, error)
}

// bounded is implemented by engines that can report cell boundaries.
type bounded interface {
	Bounds(cell string) ([]model.GeoPoint, error)
}

type Service struct {
	engines       map[string]cover.Grid
	defaults      map[string]int
	defaultEngine string

	maxCells      int
	polarLatLimit float64

	cache        *cache.CoveringCache
	store        EntityStore
	storeTimeout time.Duration

	log *zerolog.Logger
}

func New(cfg config.Config, log *zerolog.Logger) *Service {
	engines := map[string]cover.Grid{
		hexgrid.EngineName:  hexgrid.NewGrid(),
		quadgrid.EngineName: quadgrid.NewGrid(),
		h3grid.EngineName:   h3grid.NewGrid(),
	}
	defaults := map[string]int{
		hexgrid.EngineName:  cfg.HexRes,
		quadgrid.EngineName: cfg.QuadLevel,
		h3grid.EngineName:   cfg.H3Res,
	}
	defaultEngine := cfg.Engine
	if _, ok := engines[defaultEngine]; !ok {
		log.Warn().Str("engine", defaultEngine).Msg("unknown default engine, using hex")
		defaultEngine = hexgrid.EngineName
	}

	s := &Service{
		engines:       engines,
		defaults:      defaults,
		defaultEngine: defaultEngine,
		maxCells:      cfg.MaxCells,
		polarLatLimit: cfg.PolarLatLimit,
		storeTimeout:  cfg.StoreOpTimeout,
		log:           log,
	}
	if cfg.CacheEnabled {
		s.cache = cache.New(cfg.CacheSize)
	}
	return s
}

// WithStore attaches an entity store; Nearby fails without one.
func (s *Service) WithStore(store EntityStore) *Service {
	s.store = store
	return s
}

// Engines lists the registered engine names in stable order.
func (s *Service) Engines() []string {
	names := make([]string, 0, len(s.engines))
	for name := range s.engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultEngine returns the engine used when a query names none.
func (s *Service) DefaultEngine() string { return s.defaultEngine }

func (s *Service) grid(engine string) (cover.Grid, error) {
	name := strings.ToLower(engine)
	if name == "" {
		name = s.defaultEngine
	}
	g, ok := s.engines[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (have %s)", ErrUnknownEngine, engine, strings.Join(s.Engines(), ", "))
	}
	return g, nil
}

// resolvePrecision fills a query's precision: the configured default for the
// engine, or the budget-driven pick when the query asks for auto (-1) on a
// radial search.
func (s *Service) resolvePrecision(g cover.Grid, q model.CoveringQuery) int {
	if q.Precision >= 0 {
		return q.Precision
	}
	radius := q.Area.Radius
	if q.Area.Box != nil {
		radius = geo.Distance(q.Area.Center, q.Area.Box.NE)
	}
	if radius > 0 {
		return precision.Select(g, radius, s.coveringCap(q.MaxCells))
	}
	return s.defaults[g.Name()]
}

func (s *Service) coveringCap(maxCells int) int {
	if maxCells > 0 {
		return maxCells
	}
	if s.maxCells > 0 {
		return s.maxCells
	}
	return cover.DefaultMaxCells
}

// Covering answers a covering query, consulting the LRU before running the
// ring search.
func (s *Service) Covering(ctx context.Context, q model.CoveringQuery) (model.CoveringResult, error) {
	g, err := s.grid(q.Engine)
	if err != nil {
		return model.CoveringResult{}, err
	}
	prec := s.resolvePrecision(g, q)
	maxCells := s.coveringCap(q.MaxCells)

	key := keys.Covering(g.Name(), prec, q.Area, maxCells)
	if res, ok := s.cache.Get(key); ok {
		return res, nil
	}

	start := time.Now()
	res, err := cover.Covering(ctx, g, q.Area, prec, cover.Options{
		MaxCells:      maxCells,
		PolarLatLimit: s.polarLatLimit,
	})
	if err != nil {
		return model.CoveringResult{}, err
	}
	observability.ObserveCovering(g.Name(), len(res.Cells), res.Rings, time.Since(start).Seconds())
	logger.FromContext(ctx, s.log).Debug().
		Str("engine", g.Name()).
		Int("precision", prec).
		Int("cells", len(res.Cells)).
		Int("rings", res.Rings).
		Bool("truncated", res.Truncated).
		Msg("covering computed")

	s.cache.Add(key, res)
	return res, nil
}

// EncodeResult describes one point's cell at one precision.
type EncodeResult struct {
	Engine     string           `json:"engine"`
	Cell       string           `json:"cell"`
	Precision  int              `json:"precision"`
	Center     model.GeoPoint   `json:"center"`
	EdgeM      float64          `json:"edge_m"`
	Boundary   []model.GeoPoint `json:"boundary,omitempty"`
	IsPentagon bool             `json:"is_pentagon,omitempty"`
}

// Encode maps a point to its containing cell.
func (s *Service) Encode(ctx context.Context, engine string, p model.GeoPoint, prec int) (EncodeResult, error) {
	g, err := s.grid(engine)
	if err != nil {
		return EncodeResult{}, err
	}
	if prec < 0 {
		prec = s.defaults[g.Name()]
	}
	minP, maxP := g.PrecisionRange()
	if prec < minP || prec > maxP {
		return EncodeResult{}, fmt.Errorf("%w: precision %d out of range [%d,%d] for engine %s", model.ErrInvalidInput, prec, minP, maxP, g.Name())
	}

	cell, err := g.CellContaining(p, prec)
	if err != nil {
		return EncodeResult{}, fmt.Errorf("encode %s: %w", p, err)
	}
	center, err := g.Center(cell)
	if err != nil {
		return EncodeResult{}, fmt.Errorf("center of %s: %w", cell, err)
	}

	out := EncodeResult{
		Engine:    g.Name(),
		Cell:      cell,
		Precision: prec,
		Center:    center,
		EdgeM:     g.EdgeLengthMeters(prec),
	}
	if b, ok := g.(bounded); ok {
		boundary, err := b.Bounds(cell)
		if err == nil {
			out.Boundary = boundary
			out.IsPentagon = len(boundary) == 5
		}
	}
	return out, nil
}

// NearbyResult pairs entities with the covering that selected them.
type NearbyResult struct {
	Entities []model.Entity       `json:"entities"`
	Covering model.CoveringResult `json:"covering"`
}

// Nearby runs a covering then fetches every entity indexed under its cells,
// ordered by distance from the search center.
func (s *Service) Nearby(ctx context.Context, q model.CoveringQuery) (NearbyResult, error) {
	if s.store == nil {
		return NearbyResult{}, ErrStoreDisabled
	}
	res, err := s.Covering(ctx, q)
	if err != nil {
		return NearbyResult{}, err
	}

	cells := make([]string, len(res.Cells))
	for i, cd := range res.Cells {
		cells[i] = cd.Cell
	}

	sctx := ctx
	if s.storeTimeout > 0 {
		var cancel context.CancelFunc
		sctx, cancel = context.WithTimeout(ctx, s.storeTimeout)
		defer cancel()
	}
	entities, err := s.store.EntitiesInCells(sctx, res.Engine, res.Precision, cells)
	if err != nil {
		return NearbyResult{}, fmt.Errorf("entities in covering: %w", err)
	}

	sort.SliceStable(entities, func(a, b int) bool {
		da := geo.Distance(q.Area.Center, model.GeoPoint{Lat: entities[a].Lat, Lng: entities[a].Lng})
		db := geo.Distance(q.Area.Center, model.GeoPoint{Lat: entities[b].Lat, Lng: entities[b].Lng})
		return da < db
	})
	return NearbyResult{Entities: entities, Covering: res}, nil
}

// CellFor returns the cell containing a point for the given engine at its
// default precision; the ingest runner indexes entities with it.
func (s *Service) CellFor(engine string, p model.GeoPoint) (cell string, prec int, err error) {
	g, err := s.grid(engine)
	if err != nil {
		return "", 0, err
	}
	prec = s.defaults[g.Name()]
	cell, err = g.CellContaining(p, prec)
	return cell, prec, err
}
