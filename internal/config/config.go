package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"cot-sentiment/internal/logger"
)

const (
	SourceNasdaq   = "nasdaq"
	SourceParquet  = "parquet"
	SourcePostgres = "postgres"
)

type Config struct {
	DataSource      string
	NasdaqAPIKey    string
	NasdaqURL       string
	ParquetDir      string
	DatabaseURL     string
	RedisURL        string
	CacheTTLMins    int
	CommoditiesPath string

	Windows       []int
	Horizons      []int
	SplitRatio    float64
	Classifier    string
	LogRegC       float64
	TrimMode      string
	TrendFeatures bool

	XGBRounds       int
	XGBLearningRate float64
	XGBMaxDepth     int

	Port       int
	APIKey     string
	JobSymbols []string
	JobWeekday time.Weekday
	JobHourUTC int
}

func Load() *Config {
	log := logger.Component("config")

	cfg := &Config{
		NasdaqAPIKey:    os.Getenv("NASDAQ_DATA_LINK_API_KEY"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        strings.TrimSpace(os.Getenv("REDIS_URL")),
		CommoditiesPath: strings.TrimSpace(os.Getenv("COT_COMMODITIES_PATH")),
		APIKey:          os.Getenv("API_KEY"),
	}

	cfg.DataSource = strings.ToLower(strings.TrimSpace(os.Getenv("COT_DATA_SOURCE")))
	switch cfg.DataSource {
	case "":
		cfg.DataSource = SourceNasdaq
	case SourceNasdaq, SourceParquet, SourcePostgres:
	default:
		log.Warnf("unsupported COT_DATA_SOURCE=%q, defaulting to %s", cfg.DataSource, SourceNasdaq)
		cfg.DataSource = SourceNasdaq
	}
	if cfg.DataSource == SourceNasdaq && cfg.NasdaqAPIKey == "" {
		log.Warn("NASDAQ_DATA_LINK_API_KEY not set, requests are anonymous and heavily rate limited")
	}
	if cfg.DataSource == SourcePostgres && cfg.DatabaseURL == "" {
		log.Warn("COT_DATA_SOURCE=postgres but DATABASE_URL not set")
	}
	if cfg.RedisURL == "" {
		log.Info("REDIS_URL not set, series cache disabled")
	}

	cfg.NasdaqURL = strings.TrimRight(strings.TrimSpace(os.Getenv("NASDAQ_DATA_LINK_URL")), "/")
	if cfg.NasdaqURL == "" {
		cfg.NasdaqURL = "https://data.nasdaq.com/api/v3"
	}

	cfg.ParquetDir = strings.TrimSpace(os.Getenv("COT_PARQUET_DIR"))
	if cfg.ParquetDir == "" {
		cfg.ParquetDir = "data"
	}

	cfg.CacheTTLMins = 720
	if v := strings.TrimSpace(os.Getenv("COT_CACHE_TTL_MINS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CacheTTLMins = n
		}
	}

	cfg.Windows = []int{26, 52}
	if v := strings.TrimSpace(os.Getenv("COT_WINDOWS")); v != "" {
		if list, ok := ParseIntList(v); ok {
			cfg.Windows = list
		} else {
			log.Warnf("invalid COT_WINDOWS=%q, defaulting to 26,52", v)
		}
	}

	cfg.Horizons = []int{2, 4, 6, 8, 12}
	if v := strings.TrimSpace(os.Getenv("COT_HORIZONS")); v != "" {
		if list, ok := ParseIntList(v); ok {
			cfg.Horizons = list
		} else {
			log.Warnf("invalid COT_HORIZONS=%q, defaulting to 2,4,6,8,12", v)
		}
	}

	cfg.SplitRatio = 0.8
	if v := strings.TrimSpace(os.Getenv("COT_SPLIT_RATIO")); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil && n > 0 && n < 1 {
			cfg.SplitRatio = n
		}
	}

	cfg.Classifier = strings.ToLower(strings.TrimSpace(os.Getenv("COT_CLASSIFIER")))
	if cfg.Classifier == "" {
		cfg.Classifier = "logreg"
	}
	if cfg.Classifier != "logreg" && cfg.Classifier != "xgboost" {
		log.Warnf("unsupported COT_CLASSIFIER=%q, defaulting to logreg", cfg.Classifier)
		cfg.Classifier = "logreg"
	}

	cfg.LogRegC = 1.0
	if v := strings.TrimSpace(os.Getenv("COT_LOGREG_C")); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil && n > 0 {
			cfg.LogRegC = n
		}
	}

	cfg.XGBRounds = 40
	if v := strings.TrimSpace(os.Getenv("COT_XGB_ROUNDS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.XGBRounds = n
		} else {
			log.Warnf("invalid COT_XGB_ROUNDS=%q, defaulting to 40", v)
		}
	}

	cfg.XGBMaxDepth = 4
	if v := strings.TrimSpace(os.Getenv("COT_XGB_MAX_DEPTH")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.XGBMaxDepth = n
		} else {
			log.Warnf("invalid COT_XGB_MAX_DEPTH=%q, defaulting to 4", v)
		}
	}

	cfg.XGBLearningRate = 0.08
	if v := strings.TrimSpace(os.Getenv("COT_XGB_LEARNING_RATE")); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil && n > 0 && n <= 1 {
			cfg.XGBLearningRate = n
		} else {
			log.Warnf("invalid COT_XGB_LEARNING_RATE=%q, defaulting to 0.08", v)
		}
	}

	cfg.TrimMode = strings.ToLower(strings.TrimSpace(os.Getenv("COT_TRIM_MODE")))
	if cfg.TrimMode == "" {
		cfg.TrimMode = "global"
	}
	if cfg.TrimMode != "global" && cfg.TrimMode != "per-horizon" {
		log.Warnf("unsupported COT_TRIM_MODE=%q, defaulting to global", cfg.TrimMode)
		cfg.TrimMode = "global"
	}

	cfg.TrendFeatures = strings.EqualFold(strings.TrimSpace(os.Getenv("COT_TREND_FEATURES")), "true")

	cfg.Port = 8080
	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n < 65536 {
			cfg.Port = n
		}
	}

	for _, s := range strings.Split(os.Getenv("COT_JOB_SYMBOLS"), ",") {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			cfg.JobSymbols = append(cfg.JobSymbols, s)
		}
	}

	cfg.JobWeekday = time.Saturday
	if v := strings.TrimSpace(os.Getenv("COT_JOB_WEEKDAY")); v != "" {
		if d, ok := ParseWeekday(v); ok {
			cfg.JobWeekday = d
		} else {
			log.Warnf("invalid COT_JOB_WEEKDAY=%q, defaulting to Saturday", v)
		}
	}

	cfg.JobHourUTC = 6
	if v := strings.TrimSpace(os.Getenv("COT_JOB_HOUR_UTC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 && n <= 23 {
			cfg.JobHourUTC = n
		}
	}

	return cfg
}

// ParseIntList parses "26, 52" into positive integers.
func ParseIntList(raw string) ([]int, bool) {
	parts := strings.Split(raw, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil || n <= 0 {
			return nil, false
		}
		out = append(out, n)
	}
	return out, len(out) > 0
}

func ParseWeekday(raw string) (time.Weekday, bool) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if raw == name || raw == name[:3] {
			return d, true
		}
	}
	return time.Sunday, false
}
