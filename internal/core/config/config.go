package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type IngestCfg struct {
	Enabled bool
	Brokers string
	Topic   string
	GroupID string
}

type Config struct {
	Addr     string
	LogLevel string

	// Engine is the default covering engine: hex, quad or h3. Requests may
	// override it per query.
	Engine string

	// Default precision per engine, clamped to each engine's range.
	HexRes    int
	QuadLevel int
	H3Res     int

	MaxCells      int
	PolarLatLimit float64

	RedisAddr      string
	StoreEnabled   bool
	StoreOpTimeout time.Duration

	CacheEnabled bool
	CacheSize    int

	Ingest IngestCfg
}

func FromEnv() Config {
	return Config{
		Addr:     getenv("ADDR", ":8090"),
		LogLevel: getenv("LOG_LEVEL", "info"),

		Engine:    strings.ToLower(getenv("ENGINE", "hex")),
		HexRes:    clamp(getint("HEX_RES", 9), 0, 15),
		QuadLevel: clamp(getint("QUAD_LEVEL", 16), 0, 30),
		H3Res:     clamp(getint("H3_RES", 9), 0, 15),

		MaxCells:      getint("MAX_CELLS", 100),
		PolarLatLimit: getfloat("POLAR_LAT_LIMIT", 85),

		RedisAddr:      getenv("REDIS_ADDR", "localhost:6379"),
		StoreEnabled:   getbool("STORE_ENABLED", false),
		StoreOpTimeout: getduration("STORE_OP_TIMEOUT", 250*time.Millisecond),

		CacheEnabled: getbool("CACHE_ENABLED", true),
		CacheSize:    getint("CACHE_SIZE", 4096),

		Ingest: IngestCfg{
			Enabled: getbool("INGEST_ENABLED", false),
			Brokers: getenv("KAFKA_BROKERS", "localhost:9092"),
			Topic:   getenv("KAFKA_TOPIC", "cell-entities"),
			GroupID: getenv("KAFKA_GROUP_ID", "cellcover-ingest"),
		},
	}
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
