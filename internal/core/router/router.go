// Package router validates query parameters and dispatches to the service.
package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/geodesio/cellcover/internal/core/model"
	"github.com/geodesio/cellcover/internal/core/observability"
	"github.com/geodesio/cellcover/internal/service"
)

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// HandleCovering serves GET /covering.
func HandleCovering(logger *zerolog.Logger, svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}

		q, err := ParseCoveringQuery(r)
		if err != nil {
			writeError(sw, http.StatusBadRequest, err)
			observability.ObserveHTTP(r.Method, "/covering", sw.code, time.Since(start).Seconds())
			return
		}

		res, err := svc.Covering(r.Context(), q)
		if err != nil {
			writeServiceError(sw, logger, err)
			observability.ObserveHTTP(r.Method, "/covering", sw.code, time.Since(start).Seconds())
			return
		}
		writeJSON(sw, res)
		observability.ObserveHTTP(r.Method, "/covering", sw.code, time.Since(start).Seconds())
	}
}

// HandleEncode serves GET /encode.
func HandleEncode(logger *zerolog.Logger, svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}

		p, err := parsePoint(r)
		if err != nil {
			writeError(sw, http.StatusBadRequest, err)
			observability.ObserveHTTP(r.Method, "/encode", sw.code, time.Since(start).Seconds())
			return
		}
		prec, err := parsePrecision(r)
		if err != nil {
			writeError(sw, http.StatusBadRequest, err)
			observability.ObserveHTTP(r.Method, "/encode", sw.code, time.Since(start).Seconds())
			return
		}
		engine := strings.TrimSpace(r.URL.Query().Get("engine"))

		res, err := svc.Encode(r.Context(), engine, p, prec)
		if err != nil {
			writeServiceError(sw, logger, err)
			observability.ObserveHTTP(r.Method, "/encode", sw.code, time.Since(start).Seconds())
			return
		}
		writeJSON(sw, res)
		observability.ObserveHTTP(r.Method, "/encode", sw.code, time.Since(start).Seconds())
	}
}

// HandleNearby serves GET /nearby.
func HandleNearby(logger *zerolog.Logger, svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}

		q, err := ParseCoveringQuery(r)
		if err != nil {
			writeError(sw, http.StatusBadRequest, err)
			observability.ObserveHTTP(r.Method, "/nearby", sw.code, time.Since(start).Seconds())
			return
		}

		res, err := svc.Nearby(r.Context(), q)
		if err != nil {
			writeServiceError(sw, logger, err)
			observability.ObserveHTTP(r.Method, "/nearby", sw.code, time.Since(start).Seconds())
			return
		}
		writeJSON(sw, res)
		observability.ObserveHTTP(r.Method, "/nearby", sw.code, time.Since(start).Seconds())
	}
}

// ParseCoveringQuery validates the covering parameters: either lat, lng and
// radius_m, or bbox=west,south,east,north. Optional: engine, precision,
// max_cells.
func ParseCoveringQuery(r *http.Request) (model.CoveringQuery, error) {
	qs := r.URL.Query()

	rawBBox := strings.TrimSpace(qs.Get("bbox"))
	rawRadius := strings.TrimSpace(qs.Get("radius_m"))

	var area model.SearchArea
	switch {
	case rawBBox != "":
		if rawRadius != "" {
			return model.CoveringQuery{}, errors.New("bbox and radius_m are mutually exclusive")
		}
		box, err := parseBBox(rawBBox)
		if err != nil {
			return model.CoveringQuery{}, fmt.Errorf("invalid bbox: %w", err)
		}
		area = model.Rect(box)
	case rawRadius != "":
		center, err := parsePoint(r)
		if err != nil {
			return model.CoveringQuery{}, err
		}
		radius, err := parseFloat(rawRadius)
		if err != nil {
			return model.CoveringQuery{}, fmt.Errorf("radius_m: %w", err)
		}
		area, err = model.Circle(center, radius)
		if err != nil {
			return model.CoveringQuery{}, err
		}
	default:
		return model.CoveringQuery{}, errors.New("missing search area: provide lat, lng and radius_m, or bbox=west,south,east,north")
	}

	prec, err := parsePrecision(r)
	if err != nil {
		return model.CoveringQuery{}, err
	}

	maxCells := 0
	if raw := strings.TrimSpace(qs.Get("max_cells")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return model.CoveringQuery{}, fmt.Errorf("max_cells must be a positive integer, got %q", raw)
		}
		maxCells = n
	}

	return model.CoveringQuery{
		Engine:    strings.TrimSpace(qs.Get("engine")),
		Area:      area,
		Precision: prec,
		MaxCells:  maxCells,
	}, nil
}

func parsePoint(r *http.Request) (model.GeoPoint, error) {
	qs := r.URL.Query()
	rawLat := strings.TrimSpace(qs.Get("lat"))
	rawLng := strings.TrimSpace(qs.Get("lng"))
	if rawLat == "" || rawLng == "" {
		return model.GeoPoint{}, errors.New("missing required parameters: lat, lng")
	}
	lat, err := parseFloat(rawLat)
	if err != nil {
		return model.GeoPoint{}, fmt.Errorf("lat: %w", err)
	}
	lng, err := parseFloat(rawLng)
	if err != nil {
		return model.GeoPoint{}, fmt.Errorf("lng: %w", err)
	}
	return model.NewGeoPoint(lat, lng)
}

// parsePrecision returns -1 when the parameter is absent, which asks the
// service to pick.
func parsePrecision(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("precision"))
	if raw == "" {
		return -1, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("precision must be a non-negative integer, got %q", raw)
	}
	return n, nil
}

func parseBBox(raw string) (model.BBox, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return model.BBox{}, errors.New("expected 4 comma-separated values: west,south,east,north")
	}
	west, err := parseFloat(parts[0])
	if err != nil {
		return model.BBox{}, fmt.Errorf("west: %w", err)
	}
	south, err := parseFloat(parts[1])
	if err != nil {
		return model.BBox{}, fmt.Errorf("south: %w", err)
	}
	east, err := parseFloat(parts[2])
	if err != nil {
		return model.BBox{}, fmt.Errorf("east: %w", err)
	}
	north, err := parseFloat(parts[3])
	if err != nil {
		return model.BBox{}, fmt.Errorf("north: %w", err)
	}

	sw, err := model.NewGeoPoint(south, west)
	if err != nil {
		return model.BBox{}, err
	}
	ne, err := model.NewGeoPoint(north, east)
	if err != nil {
		return model.BBox{}, err
	}
	return model.NewBBox(sw, ne)
}

func parseFloat(v string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, fmt.Errorf("parse float: %w", err)
	}
	return f, nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func writeServiceError(w *statusWriter, logger *zerolog.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrUnknownEngine):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, service.ErrStoreDisabled):
		writeError(w, http.StatusServiceUnavailable, err)
	case errors.Is(err, model.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err)
	default:
		logger.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, errors.New("internal server error"))
	}
}
