package migrations

import (
	"io"
	"testing"

	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-events/internal/logger"
)

func TestEmbeddedMigrations_AreSequential(t *testing.T) {
	src, err := iofs.New(embedded, "sql")
	require.NoError(t, err)
	defer src.Close()

	version, err := src.First()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	var versions []uint
	for {
		versions = append(versions, version)
		_, _, err := src.ReadDown(version)
		require.NoError(t, err, "version %d has no down migration", version)
		next, err := src.Next(version)
		if err != nil {
			break
		}
		version = next
	}
	assert.Equal(t, []uint{1, 2, 3}, versions)
}

func TestEmbeddedMigrations_Contents(t *testing.T) {
	src, err := iofs.New(embedded, "sql")
	require.NoError(t, err)
	defer src.Close()

	r, _, err := src.ReadUp(3)
	require.NoError(t, err)
	body, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Contains(t, string(body), "UNIQUE (event_id, user_id)")
	assert.Contains(t, string(body), "ON DELETE CASCADE")
}

func TestRunMigrations_DisabledIsNoop(t *testing.T) {
	runner := NewRunner(nil, MigrateOptions{AutoMigrate: false}, logger.NewWithWriter(io.Discard))
	assert.NoError(t, runner.RunMigrations())
	assert.NoError(t, runner.Close())
}
