package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/linskybing/zeera/internal/api/routes"
	"github.com/linskybing/zeera/internal/application"
	"github.com/linskybing/zeera/internal/config"
	"github.com/linskybing/zeera/internal/config/db"
	"github.com/linskybing/zeera/internal/cron"
	"github.com/linskybing/zeera/internal/events"
	"github.com/linskybing/zeera/internal/ratelimit"
	"github.com/linskybing/zeera/internal/repository"
	"github.com/linskybing/zeera/internal/storage"
	"github.com/linskybing/zeera/internal/telemetry"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	shutdownTimeout = 10 * time.Second
	janitorInterval = time.Minute
	sessionCleanup  = time.Hour
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (default)",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("port", "", "Listen port (overrides SERVER_PORT)")
	_ = viper.BindPFlag("server_port", serveCmd.Flags().Lookup("port"))
	rootCmd.Flags().AddFlagSet(serveCmd.Flags())
}

func runServe(cmd *cobra.Command, args []string) error {
	if config.IsProduction && (config.JwtSecret == "defaultsecret" || config.RefreshTokenSecret == "defaultrefreshsecret") {
		return errors.New("JWT_SECRET and REFRESH_TOKEN_SECRET must be set in production")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Init(ctx, config.OtelExporter, "zeera")
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			slog.Warn("tracer shutdown", "error", err)
		}
	}()

	if err := db.Init(ctx); err != nil {
		return err
	}
	if err := db.Migrate(db.DB); err != nil {
		return err
	}

	blobs, err := newBlobStore(ctx)
	if err != nil {
		return err
	}

	hub := events.NewHub()
	sinks := events.Multi{hub}
	kafka := events.NewKafkaPublisher(config.KafkaBrokers, config.KafkaTopic)
	if kafka.Enabled() {
		sinks = append(sinks, kafka)
		slog.Info("publishing issue events to kafka", "topic", config.KafkaTopic)
	}
	dispatcher := events.NewDispatcher(sinks)
	dispatchDone := make(chan struct{})
	go func() {
		defer close(dispatchDone)
		dispatcher.Run(ctx)
	}()

	repos := repository.NewRepositories(db.DB)
	services := application.New(repos, dispatcher, blobs)
	if _, err := services.User.EnsureDefaultAdmin(ctx, config.DefaultAdminName, config.DefaultAdminEmail, config.DefaultAdminPassword); err != nil {
		slog.Error("seed default admin", "error", err)
	}
	cron.StartSessionCleanup(ctx, services.User, sessionCleanup)

	general := ratelimit.NewStore(ratelimit.GeneralLimit, ratelimit.Window)
	auth := ratelimit.NewStore(ratelimit.AuthLimit, ratelimit.Window)
	go general.RunJanitor(ctx, janitorInterval)
	go auth.RunJanitor(ctx, janitorInterval)

	if !config.IsDevelopment {
		gin.SetMode(gin.ReleaseMode)
	}
	router := routes.NewRouter(routes.Deps{
		Services:       services,
		Repos:          repos,
		Hub:            hub,
		GeneralLimiter: general,
		AuthLimiter:    auth,
	})

	srv := &http.Server{
		Addr:              ":" + config.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		slog.Info("starting API server", "addr", srv.Addr, "env", config.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			stop()
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown", "error", err)
	}
	<-dispatchDone
	if err := kafka.Close(); err != nil {
		slog.Warn("kafka writer close", "error", err)
	}
	return nil
}

// newBlobStore picks MinIO when an endpoint is configured and local disk otherwise.
func newBlobStore(ctx context.Context) (storage.BlobStore, error) {
	if config.MinioEndpoint != "" {
		store, err := storage.NewMinioStore(ctx, config.MinioEndpoint, config.MinioAccessKey, config.MinioSecretKey, config.MinioBucket, config.MinioUseSSL)
		if err != nil {
			return nil, fmt.Errorf("minio: %w", err)
		}
		slog.Info("attachments stored in minio", "endpoint", config.MinioEndpoint, "bucket", config.MinioBucket)
		return store, nil
	}
	store, err := storage.NewDiskStore(config.UploadDir)
	if err != nil {
		return nil, fmt.Errorf("upload dir: %w", err)
	}
	slog.Info("attachments stored on disk", "dir", config.UploadDir)
	return store, nil
}
