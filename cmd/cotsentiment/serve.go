package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"syscall"
	"time"

	_ "cot-sentiment/docs"
	"cot-sentiment/internal/handler"
	"cot-sentiment/internal/job"
	"cot-sentiment/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

var (
	newRouterFunc          = gin.Default
	startJobFunc           = func(j *job.EvaluationJob, ctx context.Context) { go j.Start(ctx) }
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

func newServeCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and the weekly evaluation job",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			rt, err := setup(ctx, cmd, opts)
			if err != nil {
				return err
			}
			defer rt.Close()
			return serve(ctx, cancel, rt)
		},
	}
	cmd.Flags().IntVar(&opts.port, "port", 0, "HTTP listen port (overrides PORT)")
	return cmd
}

// @title           COT Sentiment API
// @version         1.0
// @description     Commitment of Traders sentiment features and per-horizon evaluation.

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey  ApiKeyAuth
// @in                          header
// @name                        X-API-Key
func serve(ctx context.Context, cancel context.CancelFunc, rt *runtime) error {
	src, err := rt.source(ctx)
	if err != nil {
		return err
	}
	pipeline, err := rt.pipeline(src)
	if err != nil {
		return err
	}

	evalJob := job.NewEvaluationJob(rt.tracer, pipeline, rt.cfg.JobSymbols, rt.cfg.JobWeekday, rt.cfg.JobHourUTC)
	startJobFunc(evalJob, ctx)

	r := newRouterFunc()
	r.Use(otelgin.Middleware(tracing.ServiceName))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	handler.New(rt.tracer, pipeline).RegisterRoutes(r, rt.cfg.APIKey)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", rt.cfg.Port),
		Handler: r,
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()
	rt.log.WithField("addr", srv.Addr).Info("http server listening")

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	signalled := make(chan struct{})
	go func() {
		waitForSignalFunc(quit)
		close(signalled)
	}()

	select {
	case err := <-serverErr:
		cancel()
		return fmt.Errorf("listen: %w", err)
	case <-signalled:
	}
	rt.log.Info("shutting down server")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	rt.log.Info("server exiting")
	return nil
}
