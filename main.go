package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/codingric/moneyman/ledger/config"
	"github.com/codingric/moneyman/ledger/controllers"
	"github.com/codingric/moneyman/ledger/models"
	"github.com/codingric/moneyman/ledger/session"
	"github.com/codingric/moneyman/ledger/tracing"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gopkg.in/alecthomas/kingpin.v2"
)

var (
	app           = kingpin.New("ledger", "Session scoped transaction ledger")
	config_path   = app.Flag("config", "Config file").Short('c').String()
	database_path = app.Flag("database", "Database DSN").Short('d').String()
	verbose       = app.Flag("verbose", "Verbosity").Short('v').Bool()
	port          = app.Flag("port", "Port").Short('p').String()

	serveCmd    = app.Command("serve", "Run the HTTP server").Default()
	migrateCmd  = app.Command("migrate", "Create the transactions table")
	rollbackCmd = app.Command("rollback", "Drop the transactions table")
)

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	cfg, err := configure()
	if err != nil {
		log.Fatal().Err(err).Msg("Config error")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, command, cfg); err != nil {
		log.Fatal().Err(err).Msg("Fatal")
	}
}

func configure() (*config.Config, error) {
	zerolog.DurationFieldUnit = time.Millisecond
	cfg, err := config.Load(*config_path)
	if err != nil {
		return nil, err
	}

	if *database_path != "" {
		cfg.Database.DSN = *database_path
	}
	if *port != "" {
		cfg.Server.Port = *port
	}

	zerolog.SetGlobalLevel(cfg.Level())
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	}
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	return cfg, nil
}

func run(ctx context.Context, command string, cfg *config.Config) error {
	shutdown, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer shutdown(context.Background())

	store, err := models.Connect(models.Options{
		Client:  cfg.Database.Client,
		DSN:     cfg.Database.DSN,
		Debug:   *verbose,
		Tracing: cfg.Tracing.Enabled(),
	})
	if err != nil {
		return err
	}
	defer store.Close()

	switch command {
	case migrateCmd.FullCommand():
		log.Info().Msg("Migrating")
		return store.Migrate(ctx)
	case rollbackCmd.FullCommand():
		log.Info().Msg("Rolling back")
		return store.Rollback(ctx)
	}

	if err := store.Migrate(ctx); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: setupServer(store, cfg),
	}

	errs := make(chan error, 1)
	go func() {
		log.Info().Msgf("Server running on port %s", cfg.Server.Port)
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(sctx)
}

func setupServer(store *models.Store, cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.Tracing.Enabled() {
		r.Use(otelgin.Middleware(tracing.ServiceName))
	}
	r.Use(controllers.Logger())

	// Routes
	r.GET("/healthz/ready", controllers.Ready(store))
	h := controllers.NewTransactions(store, session.NewResolver())
	h.SecureCookie = cfg.Server.SecureCookie
	h.Register(r)

	return r
}
