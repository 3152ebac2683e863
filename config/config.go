package config

import (
	"errors"
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Backend kinds selectable as the primary source.
const (
	BackendSheets = "sheets"
	BackendMongo  = "mongo"
	BackendSQLite = "sqlite"
	BackendLocal  = "local"
)

type Config struct {
	Backend        string
	SheetsURL      string
	MongoURI       string
	MongoDB        string
	SQLitePath     string
	LocalStorePath string

	CacheFreshFor     time.Duration
	CacheRefreshAfter time.Duration
	RequestTimeout    time.Duration

	Debug bool
}

// ParseFlags reads configuration from flags, with defaults taken from the
// environment (a .env file is honored if present).
func ParseFlags() (cfg Config, err error) {
	godotenv.Load()

	flag.StringVar(&cfg.Backend, "backend", envOr("SURVEY_BACKEND", BackendSheets), "primary backend: sheets|mongo|sqlite|local")
	flag.StringVar(&cfg.SheetsURL, "sheets-url", os.Getenv("SURVEY_SHEETS_URL"), "spreadsheet web-app endpoint URL")
	flag.StringVar(&cfg.MongoURI, "mongo-uri", os.Getenv("SURVEY_MONGO_URI"), "MongoDB connection URI")
	flag.StringVar(&cfg.MongoDB, "mongo-db", envOr("SURVEY_MONGO_DB", "loyalty"), "MongoDB database name")
	flag.StringVar(&cfg.SQLitePath, "sqlite-path", envOr("SURVEY_SQLITE_PATH", "surveys.sqlite"), "path to SQLite3 DB file")
	flag.StringVar(&cfg.LocalStorePath, "local-store", envOr("SURVEY_LOCAL_STORE", "localstore.json"), "path to local-store blob, empty for in-memory")

	flag.DurationVar(&cfg.CacheFreshFor, "cache-fresh", 5*time.Minute, "survey listing freshness window")
	flag.DurationVar(&cfg.CacheRefreshAfter, "cache-refresh-after", time.Minute, "age at which a cache hit triggers a background refresh")
	flag.DurationVar(&cfg.RequestTimeout, "request-timeout", 10*time.Second, "timeout per backend attempt")

	flag.BoolVar(&cfg.Debug, "debug", false, "log at DEBUG level")
	flag.Parse()

	err = cfg.validate()
	return
}

func (cfg Config) validate() error {
	switch cfg.Backend {
	case BackendSheets:
		if cfg.SheetsURL == "" {
			return errors.New("missing parameter -sheets-url")
		}
	case BackendMongo:
		if cfg.MongoURI == "" {
			return errors.New("missing parameter -mongo-uri")
		}
	case BackendSQLite, BackendLocal:
		// path defaults are enough
	default:
		return errors.New("unknown backend kind " + cfg.Backend)
	}

	if cfg.CacheRefreshAfter >= cfg.CacheFreshFor {
		return errors.New("-cache-refresh-after must be below -cache-fresh")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
