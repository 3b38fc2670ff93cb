package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	otelgorm "gorm.io/plugin/opentelemetry/tracing"
)

const (
	ClientSQLite   = "sqlite"
	ClientPostgres = "postgres"
)

type Options struct {
	Client string
	DSN    string
	Debug  bool
	// Tracing registers the OpenTelemetry gorm plugin.
	Tracing bool
}

type zerologger struct {
	Logger *zerolog.Logger
	Level  logger.LogLevel
}

func (z zerologger) LogMode(l logger.LogLevel) logger.Interface { z.Level = l; return z }
func (z zerologger) Info(c context.Context, m string, x ...interface{}) {
	z.Logger.Info().Msgf(m, x...)
}
func (z zerologger) Warn(c context.Context, m string, x ...interface{}) {
	z.Logger.Warn().Msgf(m, x...)
}
func (z zerologger) Error(c context.Context, m string, x ...interface{}) {
	z.Logger.Error().Msgf(m, x...)
}
func (z zerologger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if z.Level == logger.Silent {
		return
	}
	s, r := fc()
	verb := strings.ToLower(strings.Split(s, " ")[0])
	e := z.Logger.Trace()
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		e = z.Logger.Error().Err(err)
	}
	e.Int64("rows", r).Dur("duration_ms", time.Since(begin)).Str("verb", verb).Msg(s)
}

func dialector(o Options) (gorm.Dialector, error) {
	switch o.Client {
	case "", ClientSQLite:
		return sqlite.Open(o.DSN), nil
	case ClientPostgres, "pg":
		return postgres.Open(o.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported database client %q", o.Client)
	}
}

// Connect opens the store described by o. The returned Store owns the
// connection pool and must be closed by the caller.
func Connect(o Options) (*Store, error) {
	d, err := dialector(o)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(d, &gorm.Config{
		Logger: zerologger{Logger: &log.Logger, Level: logger.Info},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if o.Tracing {
		if err := db.Use(otelgorm.NewPlugin()); err != nil {
			return nil, fmt.Errorf("failed to register tracing plugin: %w", err)
		}
	}

	// every :memory: connection is its own database
	if o.DSN == ":memory:" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if o.Debug {
		db = db.Debug()
	}
	log.Info().Str("client", d.Name()).Msg("Database connected")

	return NewStore(db), nil
}
