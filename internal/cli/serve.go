package cli

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
	"github.com/ppiankov/claimlens/internal/events"
	"github.com/ppiankov/claimlens/internal/metrics"
	"github.com/ppiankov/claimlens/internal/pipeline"
	"github.com/ppiankov/claimlens/internal/server"
	"github.com/ppiankov/claimlens/internal/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve starts the HTTP API:
  POST   /analyze               analyze a video (body: {"url", "locale", "maxClaims", "refresh"})
  GET    /saved-reports         list saved reports (?limit=&offset=)
  GET    /saved-reports/:id     fetch one saved report
  DELETE /saved-reports/:id     delete a saved report
  GET    /health                liveness
  GET    /metrics               Prometheus metrics

Example:
  claimlens serve --addr :8080
  CLAIMLENS_STORE_DRIVER=postgres DATABASE_URL=postgres://... claimlens serve`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (default :8080)")
	serveCmd.Flags().Bool("debug", false, "return raw error messages in 500 responses")

	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("server.debug", serveCmd.Flags().Lookup("debug"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := appConfig
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	m := metrics.New()

	p, closeCache, err := pipeline.NewFromConfig(ctx, cfg, m)
	if err != nil {
		return err
	}
	defer func() { _ = closeCache() }()

	st, closeStore, err := store.New(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()

	pub, err := events.New(cfg.Events)
	if err != nil {
		return err
	}
	defer func() { _ = pub.Close() }()

	srv := server.New(p, st, pub,
		server.WithDebug(cfg.Server.Debug),
		server.WithCORS(cfg.Server.CORSAllowOrigins),
		server.WithMetrics(m),
	)

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	fmt.Fprintln(os.Stderr, banner)
	fmt.Fprintf(os.Stderr, "  ClaimLens %s listening on %s\n", Version, cfg.Server.Addr)
	fmt.Fprintf(os.Stderr, "  LLM: %s/%s  store: %s  search: %v\n",
		cfg.LLM.Provider, cfg.LLM.ModelPrimary, cfg.Store.Driver, cfg.Search.Enabled)
	fmt.Fprintln(os.Stderr, banner)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("[Server] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
