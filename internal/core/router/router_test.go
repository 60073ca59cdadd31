package router

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/geodesio/cellcover/internal/core/config"
	"github.com/geodesio/cellcover/internal/core/model"
	"github.com/geodesio/cellcover/internal/service"
)

func newTestService() *service.Service {
	log := zerolog.New(io.Discard)
	cfg := config.Config{
		Engine:       "hex",
		HexRes:       9,
		QuadLevel:    16,
		H3Res:        9,
		MaxCells:     100,
		CacheEnabled: true,
		CacheSize:    64,
	}
	return service.New(cfg, &log)
}

func TestParseCoveringQuery_Circle(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/covering?lat=37.77&lng=-122.41&radius_m=5000&precision=8&max_cells=50&engine=hex", nil)
	q, err := ParseCoveringQuery(r)
	if err != nil {
		t.Fatalf("ParseCoveringQuery: %v", err)
	}
	if q.Area.Radius != 5000 || q.Area.Box != nil {
		t.Fatalf("area=%+v", q.Area)
	}
	if q.Precision != 8 || q.MaxCells != 50 || q.Engine != "hex" {
		t.Fatalf("query=%+v", q)
	}
}

func TestParseCoveringQuery_BBox(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/covering?bbox=-122.5,37.6,-122.3,37.9", nil)
	q, err := ParseCoveringQuery(r)
	if err != nil {
		t.Fatalf("ParseCoveringQuery: %v", err)
	}
	if q.Area.Box == nil {
		t.Fatal("bbox not parsed")
	}
	if q.Area.Box.SW.Lng != -122.5 || q.Area.Box.NE.Lat != 37.9 {
		t.Fatalf("box=%+v", q.Area.Box)
	}
	if q.Precision != -1 {
		t.Fatalf("precision=%d want -1 for auto", q.Precision)
	}
}

func TestParseCoveringQuery_Errors(t *testing.T) {
	cases := []struct {
		name string
		url  string
	}{
		{"no_area", "/covering"},
		{"both_areas", "/covering?lat=1&lng=2&radius_m=100&bbox=0,0,1,1"},
		{"radius_without_point", "/covering?radius_m=100"},
		{"negative_radius", "/covering?lat=1&lng=2&radius_m=-5"},
		{"bad_lat", "/covering?lat=99&lng=2&radius_m=100"},
		{"bbox_three_parts", "/covering?bbox=0,0,1"},
		{"bbox_inverted", "/covering?bbox=0,5,1,1"},
		{"bad_precision", "/covering?lat=1&lng=2&radius_m=100&precision=-2"},
		{"bad_max_cells", "/covering?lat=1&lng=2&radius_m=100&max_cells=zero"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, tc.url, nil)
			if _, err := ParseCoveringQuery(r); err == nil {
				t.Fatalf("%s accepted", tc.url)
			}
		})
	}
}

func TestParseCoveringQuery_AntimeridianBBox(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/covering?bbox=179,-19,-179,-17", nil)
	q, err := ParseCoveringQuery(r)
	if err != nil {
		t.Fatalf("ParseCoveringQuery: %v", err)
	}
	if !q.Area.Box.WrapsAntimeridian() {
		t.Fatalf("wrap not detected: %+v", q.Area.Box)
	}
}

func TestHandleCovering_OK(t *testing.T) {
	log := zerolog.New(io.Discard)
	h := HandleCovering(&log, newTestService())

	r := httptest.NewRequest(http.MethodGet, "/covering?lat=37.77&lng=-122.41&radius_m=5000", nil)
	w := httptest.NewRecorder()
	h(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var res model.CoveringResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if res.Engine != "hex" || len(res.Cells) == 0 {
		t.Fatalf("result=%+v", res)
	}
}

func TestHandleCovering_BadRequest(t *testing.T) {
	log := zerolog.New(io.Discard)
	h := HandleCovering(&log, newTestService())

	r := httptest.NewRequest(http.MethodGet, "/covering?lat=999&lng=0&radius_m=100", nil)
	w := httptest.NewRecorder()
	h(w, r)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d want 400", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("error body not json: %v", err)
	}
	if body["error"] == "" {
		t.Fatal("error message missing")
	}
}

func TestHandleCovering_UnknownEngine(t *testing.T) {
	log := zerolog.New(io.Discard)
	h := HandleCovering(&log, newTestService())

	r := httptest.NewRequest(http.MethodGet, "/covering?lat=1&lng=2&radius_m=100&engine=geohash", nil)
	w := httptest.NewRecorder()
	h(w, r)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d want 400", w.Code)
	}
}

func TestHandleEncode_OK(t *testing.T) {
	log := zerolog.New(io.Discard)
	h := HandleEncode(&log, newTestService())

	r := httptest.NewRequest(http.MethodGet, "/encode?lat=37.77&lng=-122.41&precision=9", nil)
	w := httptest.NewRecorder()
	h(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var res service.EncodeResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if res.Cell == "" || res.Precision != 9 {
		t.Fatalf("result=%+v", res)
	}
}

func TestHandleEncode_PrecisionOutOfRange(t *testing.T) {
	// Engine-level range errors are caller mistakes: 400, not 500, and the
	// classification must not depend on message wording.
	log := zerolog.New(io.Discard)
	h := HandleEncode(&log, newTestService())

	r := httptest.NewRequest(http.MethodGet, "/encode?lat=37.77&lng=-122.41&precision=99", nil)
	w := httptest.NewRecorder()
	h(w, r)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d want 400 body=%s", w.Code, w.Body.String())
	}
}

func TestHandleEncode_MissingPoint(t *testing.T) {
	log := zerolog.New(io.Discard)
	h := HandleEncode(&log, newTestService())

	r := httptest.NewRequest(http.MethodGet, "/encode?precision=9", nil)
	w := httptest.NewRecorder()
	h(w, r)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d want 400", w.Code)
	}
}

func TestHandleNearby_StoreDisabled(t *testing.T) {
	log := zerolog.New(io.Discard)
	h := HandleNearby(&log, newTestService())

	r := httptest.NewRequest(http.MethodGet, "/nearby?lat=37.77&lng=-122.41&radius_m=5000", nil)
	w := httptest.NewRecorder()
	h(w, r)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d want 503", w.Code)
	}
}
