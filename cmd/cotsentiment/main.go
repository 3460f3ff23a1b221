package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cot-sentiment/internal/cache"
	"cot-sentiment/internal/commodity"
	"cot-sentiment/internal/config"
	"cot-sentiment/internal/db"
	"cot-sentiment/internal/logger"
	"cot-sentiment/internal/ml/evaluation"
	"cot-sentiment/internal/ml/features"
	"cot-sentiment/internal/ml/models/xgboost"
	"cot-sentiment/internal/provider"
	"cot-sentiment/internal/repository"
	"cot-sentiment/internal/service"
	"cot-sentiment/pkg/tracing"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"
)

var version = "dev"

var (
	loadEnvFunc         = godotenv.Load
	loadConfigFunc      = config.Load
	initTracerFunc      = tracing.InitTracer
	initPostgresFunc    = db.InitPostgres
	initRedisFunc       = cache.InitRedis
	loadRegistryFunc    = commodity.Load
	newNasdaqSourceFunc = func(tracer trace.Tracer, cfg *config.Config) service.SeriesSource {
		return provider.NewNasdaqProvider(tracer, cfg.NasdaqURL, cfg.NasdaqAPIKey)
	}
	setupSignalNotify = signal.Notify
)

var stdout io.Writer = os.Stdout

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type options struct {
	source        string
	windows       string
	horizons      string
	splitRatio    float64
	classifier    string
	logRegC       float64
	xgbRounds     int
	xgbDepth      int
	xgbRate       float64
	trim          string
	trendFeatures bool
	output        string
	coefficients  bool
	target        string
	port          int
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:          "cotsentiment",
		Short:        "Commitment of Traders sentiment features and horizon evaluation",
		Version:      version,
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.source, "source", "", "Data source: nasdaq, parquet or postgres")
	pf.StringVar(&opts.windows, "windows", "", "Comma-separated rolling index windows in weeks")
	pf.StringVar(&opts.horizons, "horizons", "", "Comma-separated label horizons in weeks")
	pf.Float64Var(&opts.splitRatio, "split", 0, "Chronological train share in (0,1)")
	pf.StringVar(&opts.classifier, "classifier", "", "Classifier: logreg or xgboost")
	pf.Float64Var(&opts.logRegC, "c", 0, "Inverse L2 regularization strength for logreg")
	pf.IntVar(&opts.xgbRounds, "xgb-rounds", 0, "Boosting rounds for xgboost")
	pf.IntVar(&opts.xgbDepth, "xgb-max-depth", 0, "Maximum tree depth for xgboost")
	pf.Float64Var(&opts.xgbRate, "xgb-learning-rate", 0, "Learning rate for xgboost in (0,1]")
	pf.StringVar(&opts.trim, "trim", "", "Tail trim mode: global or per-horizon")
	pf.BoolVar(&opts.trendFeatures, "trend-features", false, "Add price/open-interest trend flags to the features")

	root.AddCommand(
		newRunCmd(opts),
		newServeCmd(opts),
		newSyncCmd(opts),
		newCommoditiesCmd(opts),
	)
	return root
}

func newRunCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run SYMBOL...",
		Short: "Build features and evaluate every horizon for the given commodities",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			rt, err := setup(ctx, cmd, opts)
			if err != nil {
				return err
			}
			defer rt.Close()

			src, err := rt.source(ctx)
			if err != nil {
				return err
			}
			pipeline, err := rt.pipeline(src)
			if err != nil {
				return err
			}
			for _, symbol := range args {
				rep, err := pipeline.Run(ctx, symbol)
				if err != nil {
					return fmt.Errorf("%s: %w", strings.ToUpper(symbol), err)
				}
				if err := writeReport(rep, opts); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.output, "output", "o", "table", "Output format: table or json")
	cmd.Flags().BoolVar(&opts.coefficients, "coefficients", false, "Print fitted logreg coefficients after the table")
	return cmd
}

func newCommoditiesCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "commodities",
		Short: "List the commodity registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = loadEnvFunc()
			cfg := loadConfigFunc()
			registry, err := loadRegistryFunc(cfg.CommoditiesPath)
			if err != nil {
				return err
			}
			return writeCommodities(registry.List(), opts.output)
		},
	}
	cmd.Flags().StringVarP(&opts.output, "output", "o", "table", "Output format: table or json")
	return cmd
}

func newSyncCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync SYMBOL...",
		Short: "Copy commodity series from Nasdaq Data Link into a local source",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			rt, err := setup(ctx, cmd, opts)
			if err != nil {
				return err
			}
			defer rt.Close()

			sink, err := rt.sink(ctx, opts.target)
			if err != nil {
				return err
			}
			svc := service.NewSyncService(rt.tracer, newNasdaqSourceFunc(rt.tracer, rt.cfg), sink, rt.registry)
			for _, symbol := range args {
				results, err := svc.Sync(ctx, symbol)
				if err != nil {
					return fmt.Errorf("%s: %w", strings.ToUpper(symbol), err)
				}
				for _, res := range results {
					fmt.Fprintf(stdout, "%s: %d rows, %d cells -> %s\n", res.Dataset, res.Rows, res.Cells, opts.target)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.target, "target", config.SourceParquet, "Sync target: parquet or postgres")
	return cmd
}

// runtime holds what every command shares once config, logging and tracing
// are set up.
type runtime struct {
	cfg      *config.Config
	tracer   trace.Tracer
	registry *commodity.Registry
	log      *logrus.Entry
	closers  []func()
}

func setup(ctx context.Context, cmd *cobra.Command, opts *options) (*runtime, error) {
	_ = loadEnvFunc()
	cfg := loadConfigFunc()
	if err := applyOverrides(cmd, cfg, opts); err != nil {
		return nil, err
	}
	if err := logger.Standard().Configure(logger.OptionsFromEnv()); err != nil {
		return nil, err
	}

	tp, tracer, err := initTracerFunc(ctx, tracing.OptionsFromEnv(version))
	if err != nil {
		return nil, fmt.Errorf("initialize tracer: %w", err)
	}
	rt := &runtime{
		cfg:    cfg,
		tracer: tracer,
		log:    logger.Component("main"),
	}
	rt.closers = append(rt.closers, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			rt.log.WithError(err).Warn("error shutting down tracer provider")
		}
	})

	registry, err := loadRegistryFunc(cfg.CommoditiesPath)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.registry = registry
	return rt, nil
}

func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	rt.closers = nil
}

// applyOverrides copies explicitly set flags over the environment config.
func applyOverrides(cmd *cobra.Command, cfg *config.Config, opts *options) error {
	changed := cmd.Flags().Changed
	if changed("source") {
		switch s := strings.ToLower(opts.source); s {
		case config.SourceNasdaq, config.SourceParquet, config.SourcePostgres:
			cfg.DataSource = s
		default:
			return fmt.Errorf("unsupported --source %q", opts.source)
		}
	}
	if changed("windows") {
		list, ok := config.ParseIntList(opts.windows)
		if !ok {
			return fmt.Errorf("invalid --windows %q", opts.windows)
		}
		cfg.Windows = list
	}
	if changed("horizons") {
		list, ok := config.ParseIntList(opts.horizons)
		if !ok {
			return fmt.Errorf("invalid --horizons %q", opts.horizons)
		}
		cfg.Horizons = list
	}
	if changed("split") {
		if opts.splitRatio <= 0 || opts.splitRatio >= 1 {
			return fmt.Errorf("--split must be in (0,1), got %v", opts.splitRatio)
		}
		cfg.SplitRatio = opts.splitRatio
	}
	if changed("classifier") {
		cfg.Classifier = strings.ToLower(opts.classifier)
	}
	if changed("c") {
		if opts.logRegC <= 0 {
			return fmt.Errorf("--c must be positive, got %v", opts.logRegC)
		}
		cfg.LogRegC = opts.logRegC
	}
	if changed("xgb-rounds") {
		if opts.xgbRounds <= 0 {
			return fmt.Errorf("--xgb-rounds must be positive, got %d", opts.xgbRounds)
		}
		cfg.XGBRounds = opts.xgbRounds
	}
	if changed("xgb-max-depth") {
		if opts.xgbDepth <= 0 {
			return fmt.Errorf("--xgb-max-depth must be positive, got %d", opts.xgbDepth)
		}
		cfg.XGBMaxDepth = opts.xgbDepth
	}
	if changed("xgb-learning-rate") {
		if opts.xgbRate <= 0 || opts.xgbRate > 1 {
			return fmt.Errorf("--xgb-learning-rate must be in (0,1], got %v", opts.xgbRate)
		}
		cfg.XGBLearningRate = opts.xgbRate
	}
	if changed("trim") {
		if _, err := features.ParseTrimMode(opts.trim); err != nil {
			return err
		}
		cfg.TrimMode = opts.trim
	}
	if changed("trend-features") {
		cfg.TrendFeatures = opts.trendFeatures
	}
	if changed("port") {
		if opts.port <= 0 || opts.port > 65535 {
			return fmt.Errorf("invalid --port %d", opts.port)
		}
		cfg.Port = opts.port
	}
	return nil
}

// source builds the configured SeriesSource behind the Redis cache.
func (rt *runtime) source(ctx context.Context) (service.SeriesSource, error) {
	var src service.SeriesSource
	switch rt.cfg.DataSource {
	case config.SourceParquet:
		src = provider.NewParquetSource(rt.tracer, rt.cfg.ParquetDir)
	case config.SourcePostgres:
		repo, err := rt.repository(ctx)
		if err != nil {
			return nil, err
		}
		src = repo
	default:
		src = newNasdaqSourceFunc(rt.tracer, rt.cfg)
	}

	var redisClient service.RedisClient
	if rt.cfg.RedisURL != "" {
		client, err := initRedisFunc(ctx, rt.cfg.RedisURL)
		if err != nil {
			rt.log.WithError(err).Warn("series cache disabled")
		} else {
			redisClient = client
			rt.closers = append(rt.closers, func() { client.Close() })
		}
	}
	ttl := time.Duration(rt.cfg.CacheTTLMins) * time.Minute
	return service.NewSourceService(rt.tracer, src, redisClient, ttl), nil
}

func (rt *runtime) sink(ctx context.Context, target string) (service.SeriesSink, error) {
	switch strings.ToLower(target) {
	case config.SourceParquet:
		return provider.NewParquetSource(rt.tracer, rt.cfg.ParquetDir), nil
	case config.SourcePostgres:
		return rt.repository(ctx)
	default:
		return nil, fmt.Errorf("unsupported --target %q", target)
	}
}

func (rt *runtime) repository(ctx context.Context) (*repository.SeriesRepository, error) {
	pool, err := initPostgresFunc(ctx, rt.cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, pool.Close)
	repo := repository.NewSeriesRepository(pool, rt.tracer)
	if err := repo.RunMigrations(ctx); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return repo, nil
}

func (rt *runtime) pipeline(src service.SeriesSource) (*service.PipelineService, error) {
	trainer, err := evaluation.NewTrainer(rt.cfg.Classifier, evaluation.TrainerOptions{
		C: rt.cfg.LogRegC,
		XGBoost: xgboost.Options{
			Rounds:       rt.cfg.XGBRounds,
			LearningRate: rt.cfg.XGBLearningRate,
			MaxDepth:     rt.cfg.XGBMaxDepth,
		},
	})
	if err != nil {
		return nil, err
	}
	trim, err := features.ParseTrimMode(rt.cfg.TrimMode)
	if err != nil {
		return nil, err
	}
	evaluator := evaluation.NewService(rt.tracer, trainer, evaluation.Config{SplitRatio: rt.cfg.SplitRatio})
	return service.NewPipelineService(rt.tracer, src, rt.registry, evaluator, features.Config{
		Windows:       rt.cfg.Windows,
		Horizons:      rt.cfg.Horizons,
		TrendFeatures: rt.cfg.TrendFeatures,
		Trim:          trim,
	}), nil
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-quit:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(quit)
	}()
	return ctx, cancel
}
