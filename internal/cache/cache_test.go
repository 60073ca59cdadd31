package cache

import (
	"fmt"
	"testing"

	"github.com/geodesio/cellcover/internal/core/model"
)

func TestGetAdd_RoundTrip(t *testing.T) {
	c := New(8)
	res := model.CoveringResult{
		Cells:     []model.CellDistance{{Cell: "abc", Distance: 12.5}},
		Precision: 9,
		Engine:    "hex",
		Rings:     3,
	}
	if _, ok := c.Get("k"); ok {
		t.Fatal("unexpected hit on empty cache")
	}
	c.Add("k", res)
	got, ok := c.Get("k")
	if !ok {
		t.Fatal("expected hit after Add")
	}
	if got.Engine != "hex" || len(got.Cells) != 1 || got.Cells[0].Cell != "abc" {
		t.Fatalf("unexpected cached value: %+v", got)
	}
}

func TestEviction_RespectsCapacity(t *testing.T) {
	c := New(4)
	for i := 0; i < 10; i++ {
		c.Add(fmt.Sprintf("k%d", i), model.CoveringResult{Precision: i})
	}
	if c.Len() > 4 {
		t.Fatalf("Len=%d exceeds capacity 4", c.Len())
	}
	if _, ok := c.Get("k9"); !ok {
		t.Fatal("most recent entry evicted")
	}
}

func TestNilCache_IsSafe(t *testing.T) {
	var c *CoveringCache
	if _, ok := c.Get("k"); ok {
		t.Fatal("nil cache returned a hit")
	}
	c.Add("k", model.CoveringResult{})
	if c.Len() != 0 {
		t.Fatal("nil cache has nonzero length")
	}
	c.Purge()
}

func TestNonPositiveSize_FallsBackToDefault(t *testing.T) {
	c := New(0)
	c.Add("k", model.CoveringResult{Engine: "hex"})
	if _, ok := c.Get("k"); !ok {
		t.Fatal("cache with default size dropped entry")
	}
}
