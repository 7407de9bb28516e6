package datasource

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/harunnryd/calltime/pkg/errorsx"
	"github.com/harunnryd/calltime/pkg/redact"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Config struct {
	Name           string        `mapstructure:"name"`
	DSN            string        `mapstructure:"dsn"`
	MaxConns       int32         `mapstructure:"max_conns"`
	MinConns       int32         `mapstructure:"min_conns"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DSN) == "" {
		return errorsx.Newf(errorsx.ReasonDataSourceConfig, "datasource.dsn is required")
	}
	if c.MaxConns < 0 || c.MinConns < 0 {
		return errorsx.Newf(errorsx.ReasonDataSourceConfig, "datasource connection limits must not be negative")
	}
	if c.MaxConns > 0 && c.MinConns > c.MaxConns {
		return errorsx.Newf(errorsx.ReasonDataSourceConfig, "datasource.min_conns (%d) exceeds max_conns (%d)", c.MinConns, c.MaxConns)
	}
	return nil
}

// PoolConfig turns cfg into a pgx pool configuration without connecting.
func PoolConfig(cfg Config) (*pgxpool.Config, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, errorsx.Newf(errorsx.ReasonDataSourceConfig, "parse dsn: %s", redact.Text(err.Error()))
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}
	if cfg.ConnectTimeout > 0 {
		pc.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}
	return pc, nil
}

// Open builds a pgx pool. Connections are established lazily by pgx.
func Open(ctx context.Context, cfg Config, log *slog.Logger) (*pgxpool.Pool, error) {
	if log == nil {
		log = slog.Default()
	}
	pc, err := PoolConfig(cfg)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, errorsx.Wrapf(err, errorsx.ReasonDataSourceOpen, "open datasource %q", cfg.Name)
	}
	log.Info("datasource opened",
		"name", cfg.Name,
		"host", pc.ConnConfig.Host,
		"database", pc.ConnConfig.Database,
		"max_conns", pc.MaxConns,
	)
	return pool, nil
}
