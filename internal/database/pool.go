// Package database construye la configuración del pool de conexiones a
// partir del dominio database del snapshot de configuración.
//
// El acceso a datos en sí vive en otros subsistemas: acá solo se traduce
// configuración a un pool listo para usar.
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/gridload/gridload/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNoDatabaseURL indica que el snapshot no declara database.url.
var ErrNoDatabaseURL = errors.New("database: database.url is not configured")

// PoolConfig construye un *pgxpool.Config desde las propiedades del dominio
// database del snapshot actual.
func PoolConfig(props *config.Properties) (*pgxpool.Config, error) {
	url := props.Get(config.PropDatabaseURL)
	if url == "" {
		return nil, ErrNoDatabaseURL
	}
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("database: parse url: %w", err)
	}
	if user := props.Get(config.PropDatabaseUsername); user != "" {
		cfg.ConnConfig.User = user
	}
	if pass := props.Get(config.PropDatabasePassword); pass != "" {
		cfg.ConnConfig.Password = pass
	}
	if max := props.GetInt(config.PropDatabaseMaxConns); max > 0 {
		cfg.MaxConns = int32(max)
	}
	if lifetime := props.GetDuration(config.PropDatabaseConnMaxLifetime); lifetime > 0 {
		cfg.MaxConnLifetime = lifetime
	}
	return cfg, nil
}

// Connect crea el pool y verifica la conexión con un ping.
func Connect(ctx context.Context, props *config.Properties) (*pgxpool.Pool, error) {
	cfg, err := PoolConfig(props)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("database: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database: ping: %w", err)
	}
	return pool, nil
}
