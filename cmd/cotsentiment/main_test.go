package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"cot-sentiment/internal/config"
	"cot-sentiment/internal/domain"
	"cot-sentiment/internal/job"
	"cot-sentiment/internal/service"
	"cot-sentiment/pkg/tracing"

	"github.com/gin-gonic/gin"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

type fakeNasdaq struct {
	series map[string]domain.Series
	calls  int
}

func (f *fakeNasdaq) FetchSeries(ctx context.Context, dataset string, start *time.Time) (domain.Series, error) {
	f.calls++
	s, ok := f.series[dataset]
	if !ok {
		return nil, domain.ErrDataUnavailable
	}
	return s, nil
}

// goldSeries builds n weekly COT rows and weekday prices for gold.
func goldSeries(n int) map[string]domain.Series {
	start := time.Date(2020, 1, 7, 0, 0, 0, 0, time.UTC)
	positioning := make(domain.Series, 0, n)
	for i := 0; i < n; i++ {
		x := float64(i)
		positioning = append(positioning, domain.Observation{
			Date: start.AddDate(0, 0, 7*i),
			Fields: map[string]float64{
				domain.FieldOpenInterest:        50000 + 3000*math.Sin(x/3) + 100*x,
				domain.FieldProducerLongs:       20000 + 2500*math.Cos(x/4),
				domain.FieldProducerShorts:      25000 + 1500*math.Sin(x/5),
				domain.FieldNonReportableLongs:  8000 + 900*math.Sin(x/2.5),
				domain.FieldNonReportableShorts: 7000 + 600*math.Cos(x/3.5),
			},
		})
	}
	prices := make(domain.Series, 0, 7*n)
	for d := 0; d < 7*n; d++ {
		if d%7 == 5 || d%7 == 6 {
			continue
		}
		x := float64(d)
		prices = append(prices, domain.Observation{
			Date:   start.AddDate(0, 0, d),
			Fields: map[string]float64{"Last": 1500 + 80*math.Sin(x/9) + 0.4*x},
		})
	}
	return map[string]domain.Series{
		"CFTC/GC_FO_ALL": positioning,
		"CHRIS/CME_GC1":  prices,
	}
}

func testConfig(dir string) *config.Config {
	return &config.Config{
		DataSource:   config.SourceNasdaq,
		NasdaqURL:    "https://data.nasdaq.com/api/v3",
		ParquetDir:   dir,
		CacheTTLMins: 60,
		Windows:      []int{26, 52},
		Horizons:     []int{2, 4, 6, 8, 12},
		SplitRatio:   0.8,
		Classifier:   "logreg",
		LogRegC:      1,
		TrimMode:     "global",
		Port:         8080,
		JobWeekday:   time.Saturday,
		JobHourUTC:   6,
	}
}

func stubDeps(t *testing.T, cfg *config.Config, nasdaq *fakeNasdaq) *bytes.Buffer {
	t.Helper()
	t.Setenv("LOG_FILE", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_FORMAT", "")

	origLoadEnv := loadEnvFunc
	origLoadConfig := loadConfigFunc
	origInitTracer := initTracerFunc
	origNasdaq := newNasdaqSourceFunc
	origSetupSignal := setupSignalNotify
	origStdout := stdout
	t.Cleanup(func() {
		loadEnvFunc = origLoadEnv
		loadConfigFunc = origLoadConfig
		initTracerFunc = origInitTracer
		newNasdaqSourceFunc = origNasdaq
		setupSignalNotify = origSetupSignal
		stdout = origStdout
	})

	loadEnvFunc = func(...string) error { return nil }
	loadConfigFunc = func() *config.Config {
		c := *cfg
		return &c
	}
	initTracerFunc = func(ctx context.Context, opts tracing.Options) (*sdktrace.TracerProvider, trace.Tracer, error) {
		tp := sdktrace.NewTracerProvider()
		return tp, tp.Tracer("test"), nil
	}
	newNasdaqSourceFunc = func(trace.Tracer, *config.Config) service.SeriesSource { return nasdaq }
	setupSignalNotify = func(c chan<- os.Signal, sig ...os.Signal) {}

	buf := &bytes.Buffer{}
	stdout = buf
	return buf
}

func execute(args ...string) error {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	return root.Execute()
}

func TestRunCommandJSON(t *testing.T) {
	nasdaq := &fakeNasdaq{series: goldSeries(80)}
	out := stubDeps(t, testConfig(t.TempDir()), nasdaq)

	if err := execute("run", "gc", "--windows", "4,8", "--horizons", "1,2", "-o", "json"); err != nil {
		t.Fatalf("run: %v", err)
	}
	var rep domain.RunReport
	if err := json.Unmarshal(out.Bytes(), &rep); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out.String())
	}
	if rep.Symbol != "GC" || len(rep.Windows) != 2 || rep.Windows[1] != 8 {
		t.Fatalf("unexpected report header %+v", rep)
	}
	if rep.Rows != 80-7-2 {
		t.Fatalf("expected %d rows, got %d", 80-7-2, rep.Rows)
	}
	if len(rep.Results) != 2 || rep.Succeeded() != 2 {
		t.Fatalf("expected two evaluated horizons, got %+v", rep.Results)
	}
	if nasdaq.calls != 2 {
		t.Fatalf("expected one fetch per dataset, got %d", nasdaq.calls)
	}
}

func TestRunCommandTableWithCoefficients(t *testing.T) {
	out := stubDeps(t, testConfig(t.TempDir()), &fakeNasdaq{series: goldSeries(80)})

	if err := execute("run", "GC", "--windows", "4,8", "--horizons", "2", "--trend-features", "--coefficients"); err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, want := range []string{"Gold (GC)", "horizon 2", "intercept", "price_up_oi_up"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("expected %q in output:\n%s", want, out.String())
		}
	}
}

func TestRunCommandXGBoostFlags(t *testing.T) {
	out := stubDeps(t, testConfig(t.TempDir()), &fakeNasdaq{series: goldSeries(80)})

	err := execute("run", "GC", "--classifier", "xgboost", "--xgb-rounds", "10", "--xgb-max-depth", "3",
		"--xgb-learning-rate", "0.2", "--windows", "4,8", "--horizons", "1,2", "-o", "json")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	var rep domain.RunReport
	if err := json.Unmarshal(out.Bytes(), &rep); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out.String())
	}
	if rep.Classifier != "xgboost" || len(rep.Results) != 2 {
		t.Fatalf("unexpected xgboost report %+v", rep)
	}
	for _, r := range rep.Results {
		if r.Coefficients != nil {
			t.Fatalf("horizon %d: xgboost has no coefficients, got %v", r.Horizon, r.Coefficients)
		}
	}
}

func TestRunCommandRejectsBadInput(t *testing.T) {
	stubDeps(t, testConfig(t.TempDir()), &fakeNasdaq{series: goldSeries(80)})

	cases := [][]string{
		{"run", "GC", "--split", "1.5"},
		{"run", "GC", "--trim", "sideways"},
		{"run", "GC", "--classifier", "svm"},
		{"run", "GC", "--classifier", "xgboost", "--xgb-rounds", "0"},
		{"run", "GC", "--classifier", "xgboost", "--xgb-max-depth", "-1"},
		{"run", "GC", "--classifier", "xgboost", "--xgb-learning-rate", "2"},
		{"run", "GC", "--windows", "4,x"},
		{"run", "GC", "--source", "s3"},
		{"run"},
	}
	for _, args := range cases {
		if err := execute(args...); err == nil {
			t.Fatalf("%v: expected error", args)
		}
	}

	err := execute("run", "ZZ")
	if !errors.Is(err, service.ErrUnknownCommodity) {
		t.Fatalf("expected ErrUnknownCommodity, got %v", err)
	}
}

func TestCommoditiesCommand(t *testing.T) {
	out := stubDeps(t, testConfig(t.TempDir()), &fakeNasdaq{})

	if err := execute("commodities", "-o", "json"); err != nil {
		t.Fatalf("commodities: %v", err)
	}
	var list []domain.Commodity
	if err := json.Unmarshal(out.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 3 || list[0].Symbol != "GC" {
		t.Fatalf("unexpected commodities %+v", list)
	}
}

func TestSyncThenRunFromParquet(t *testing.T) {
	dir := t.TempDir()
	nasdaq := &fakeNasdaq{series: goldSeries(80)}
	out := stubDeps(t, testConfig(dir), nasdaq)

	if err := execute("sync", "GC", "--target", "parquet"); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if !strings.Contains(out.String(), "CFTC/GC_FO_ALL: 80 rows") {
		t.Fatalf("unexpected sync output:\n%s", out.String())
	}
	fetched := nasdaq.calls

	out.Reset()
	if err := execute("run", "GC", "--source", "parquet", "--windows", "4,8", "--horizons", "1,2", "-o", "json"); err != nil {
		t.Fatalf("run from parquet: %v", err)
	}
	if nasdaq.calls != fetched {
		t.Fatal("run from parquet should not call the vendor API")
	}
	var rep domain.RunReport
	if err := json.Unmarshal(out.Bytes(), &rep); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if rep.Rows != 80-7-2 {
		t.Fatalf("expected %d rows, got %d", 80-7-2, rep.Rows)
	}

	if err := execute("sync", "GC", "--target", "kafka"); err == nil {
		t.Fatal("expected error for unknown sync target")
	}
}

func TestServeCommand(t *testing.T) {
	gin.SetMode(gin.TestMode)
	stubDeps(t, testConfig(t.TempDir()), &fakeNasdaq{series: goldSeries(80)})

	origRouter := newRouterFunc
	origStartJob := startJobFunc
	origWait := waitForSignalFunc
	origStart := startHTTPServerFunc
	origShutdown := shutdownHTTPServerFunc
	t.Cleanup(func() {
		newRouterFunc = origRouter
		startJobFunc = origStartJob
		waitForSignalFunc = origWait
		startHTTPServerFunc = origStart
		shutdownHTTPServerFunc = origShutdown
	})

	var addr string
	var healthCode, listCode, swaggerCode int
	started := make(chan struct{})
	shutdown := false
	newRouterFunc = func(...gin.OptionFunc) *gin.Engine { return gin.New() }
	startJobFunc = func(*job.EvaluationJob, context.Context) {}
	startHTTPServerFunc = func(srv *http.Server) error {
		addr = srv.Addr
		w := httptest.NewRecorder()
		srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		healthCode = w.Code
		w = httptest.NewRecorder()
		srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/commodities", nil))
		listCode = w.Code
		w = httptest.NewRecorder()
		srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
		swaggerCode = w.Code
		close(started)
		return http.ErrServerClosed
	}
	waitForSignalFunc = func(<-chan os.Signal) { <-started }
	shutdownHTTPServerFunc = func(*http.Server, context.Context) error {
		shutdown = true
		return nil
	}

	if err := execute("serve", "--port", "9090"); err != nil {
		t.Fatalf("serve: %v", err)
	}
	if addr != ":9090" {
		t.Fatalf("expected :9090, got %s", addr)
	}
	if healthCode != http.StatusOK || listCode != http.StatusOK || swaggerCode != http.StatusOK {
		t.Fatalf("unexpected status codes health=%d list=%d swagger=%d", healthCode, listCode, swaggerCode)
	}
	if !shutdown {
		t.Fatal("expected graceful shutdown")
	}
}
