package config

import (
	_ "embed"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var seedYAML []byte

type Config struct {
	Database DatabaseConfig
	Encoder  EncoderConfig
	Matcher  MatcherConfig
	Evidence EvidenceConfig
	Portal   PortalConfig
	Campus   CampusSeed
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type EncoderConfig struct {
	URL string // face encoder sidecar, defaults to http://localhost:8000
	Dim int    // embedding dimension, defaults to 128
}

type MatcherConfig struct {
	Threshold      float64       // max L2 distance accepted as a verified match
	CommandTimeout time.Duration // encode + storage budget for a single command
	UseIndex       bool          // keep an in-memory HNSW index over enrolled identities
}

type EvidenceConfig struct {
	Dir     string // directory for capture images (default ./static/cache)
	MaxSize int    // longest edge of stored evidence in pixels (default 1280)
}

type PortalConfig struct {
	DSN string // MySQL DSN of the school portal (e.g., portal:portal@tcp(portal:3306)/portal)
}

// CampusSeed holds the department and college code tables loaded into the
// database on startup. Codes are what the capture front-end sends; ids are
// what the biodata rows reference.
type CampusSeed struct {
	Departments []CampusUnit `yaml:"departments"`
	Colleges    []CampusUnit `yaml:"colleges"`
}

type CampusUnit struct {
	Code string `yaml:"code"`
	Name string `yaml:"name"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envDuration reads an environment variable and parses it as a duration.
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

func Load() *Config {
	var campus CampusSeed
	if err := yaml.Unmarshal(seedYAML, &campus); err != nil {
		// Embedded file, so this can only happen if the file is broken at build time.
		panic("failed to unmarshal embedded seed.yaml: " + err.Error())
	}

	return &Config{
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Encoder: EncoderConfig{
			URL: envDefault("ENCODER_URL", "http://localhost:8000"),
			Dim: envInt("ENCODER_DIM", 128),
		},
		Matcher: MatcherConfig{
			Threshold:      envFloat("MATCH_THRESHOLD", 0.65),
			CommandTimeout: envDuration("COMMAND_TIMEOUT", 10*time.Second),
			UseIndex:       os.Getenv("MATCH_INDEX") != "off",
		},
		Evidence: EvidenceConfig{
			Dir:     envDefault("EVIDENCE_DIR", "./static/cache"),
			MaxSize: envInt("EVIDENCE_MAX_SIZE", 1280),
		},
		Portal: PortalConfig{
			DSN: os.Getenv("PORTAL_DATABASE_URL"),
		},
		Campus: campus,
	}
}

func envDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
