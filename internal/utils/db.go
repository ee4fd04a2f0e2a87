package utils

import (
	"database/sql"

	"map-puzzle/internal/config"

	_ "github.com/lib/pq"
)

func OpenPostgres(dsn string, maxOpen, maxIdle int) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	return db, nil
}

func BuildPostgresDSN(c config.PostgresConfig) string {
	dsn := "postgres://" + c.User
	if c.Password != "" {
		dsn += ":" + c.Password
	}
	dsn += "@" + c.Host + ":" + c.Port + "/" + c.DB + "?sslmode=" + c.SSLMode
	return dsn
}

// OpenPostgresFromConfig：未启用时返回 (nil, nil)
func OpenPostgresFromConfig(c config.PostgresConfig) (*sql.DB, error) {
	if !c.Enabled {
		return nil, nil
	}
	return OpenPostgres(BuildPostgresDSN(c), c.MaxOpenConns, c.MaxIdleConns)
}
