package config

import (
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg := FromEnv()
	if cfg.Addr != ":8090" {
		t.Fatalf("Addr=%q", cfg.Addr)
	}
	if cfg.Engine != "hex" {
		t.Fatalf("Engine=%q", cfg.Engine)
	}
	if cfg.HexRes != 9 || cfg.QuadLevel != 16 || cfg.H3Res != 9 {
		t.Fatalf("default precisions: %d %d %d", cfg.HexRes, cfg.QuadLevel, cfg.H3Res)
	}
	if cfg.MaxCells != 100 {
		t.Fatalf("MaxCells=%d", cfg.MaxCells)
	}
	if cfg.StoreEnabled || cfg.Ingest.Enabled {
		t.Fatal("store and ingest should default to disabled")
	}
	if !cfg.CacheEnabled || cfg.CacheSize != 4096 {
		t.Fatalf("cache defaults: %v %d", cfg.CacheEnabled, cfg.CacheSize)
	}
	if cfg.StoreOpTimeout != 250*time.Millisecond {
		t.Fatalf("StoreOpTimeout=%s", cfg.StoreOpTimeout)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("ENGINE", "Quad")
	t.Setenv("HEX_RES", "12")
	t.Setenv("MAX_CELLS", "250")
	t.Setenv("STORE_ENABLED", "yes")
	t.Setenv("STORE_OP_TIMEOUT", "1s")
	t.Setenv("POLAR_LAT_LIMIT", "80")

	cfg := FromEnv()
	if cfg.Engine != "quad" {
		t.Fatalf("Engine=%q want quad", cfg.Engine)
	}
	if cfg.HexRes != 12 {
		t.Fatalf("HexRes=%d", cfg.HexRes)
	}
	if cfg.MaxCells != 250 {
		t.Fatalf("MaxCells=%d", cfg.MaxCells)
	}
	if !cfg.StoreEnabled {
		t.Fatal("STORE_ENABLED=yes not honored")
	}
	if cfg.StoreOpTimeout != time.Second {
		t.Fatalf("StoreOpTimeout=%s", cfg.StoreOpTimeout)
	}
	if cfg.PolarLatLimit != 80 {
		t.Fatalf("PolarLatLimit=%f", cfg.PolarLatLimit)
	}
}

func TestFromEnv_ClampsPrecisions(t *testing.T) {
	t.Setenv("HEX_RES", "99")
	t.Setenv("QUAD_LEVEL", "-3")
	cfg := FromEnv()
	if cfg.HexRes != 15 {
		t.Fatalf("HexRes=%d want 15", cfg.HexRes)
	}
	if cfg.QuadLevel != 0 {
		t.Fatalf("QuadLevel=%d want 0", cfg.QuadLevel)
	}
}

func TestFromEnv_BadValuesFallBack(t *testing.T) {
	t.Setenv("MAX_CELLS", "lots")
	t.Setenv("STORE_OP_TIMEOUT", "soon")
	cfg := FromEnv()
	if cfg.MaxCells != 100 {
		t.Fatalf("MaxCells=%d want default 100", cfg.MaxCells)
	}
	if cfg.StoreOpTimeout != 250*time.Millisecond {
		t.Fatalf("StoreOpTimeout=%s want default", cfg.StoreOpTimeout)
	}
}
