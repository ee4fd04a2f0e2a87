package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"map-puzzle/internal/config"
)

func TestBuildPostgresDSN(t *testing.T) {
	c := config.Default().Postgres
	assert.Equal(t, "postgres://postgres@localhost:5432/mappuzzle?sslmode=disable", BuildPostgresDSN(c))
	c.Password = "pw"
	assert.Equal(t, "postgres://postgres:pw@localhost:5432/mappuzzle?sslmode=disable", BuildPostgresDSN(c))
}

func TestDisabledClientsAreNil(t *testing.T) {
	assert.Nil(t, OpenRedisFromConfig(config.RedisConfig{}))
	db, err := OpenPostgresFromConfig(config.PostgresConfig{})
	assert.NoError(t, err)
	assert.Nil(t, db)
}

func TestOpenMinio(t *testing.T) {
	_, err := OpenMinio(config.ObjectConfig{})
	assert.Error(t, err)
	cl, err := OpenMinio(config.ObjectConfig{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"})
	require.NoError(t, err)
	assert.NotNil(t, cl)
}

func TestEnsureSelfSignedCert(t *testing.T) {
	dir := t.TempDir()
	cert := dir + "/certs/server.crt"
	key := dir + "/certs/server.key"
	require.NoError(t, EnsureSelfSignedCert(cert, key, "map-puzzle"))
	cfg, err := ServerTLSConfig(cert, key)
	require.NoError(t, err)
	assert.Len(t, cfg.Certificates, 1)
	require.NoError(t, EnsureSelfSignedCert(cert, key, "map-puzzle"))
}
