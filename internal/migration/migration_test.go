package migration

import (
	"errors"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceListsEveryTable(t *testing.T) {
	for _, dialect := range []string{"postgres", "mysql"} {
		t.Run(dialect, func(t *testing.T) {
			src, err := Source(dialect)
			require.NoError(t, err)
			defer src.Close()

			var tables []string
			version, err := src.First()
			require.NoError(t, err)
			for {
				r, identifier, err := src.ReadUp(version)
				require.NoError(t, err)
				body, err := io.ReadAll(r)
				require.NoError(t, err)
				_ = r.Close()
				assert.Contains(t, string(body), "CREATE TABLE IF NOT EXISTS")
				tables = append(tables, identifier)

				_, _, err = src.ReadDown(version)
				require.NoError(t, err, "version %d has no down migration", version)

				version, err = src.Next(version)
				if errors.Is(err, os.ErrNotExist) {
					break
				}
				require.NoError(t, err)
			}
			assert.Equal(t, []string{"create_orders", "create_clients", "create_company_profiles"}, tables)
		})
	}
}

func TestSourceRejectsUnknownDialect(t *testing.T) {
	_, err := Source("sqlite")
	assert.ErrorIs(t, err, ErrUnsupportedDialect)
}

func TestRunMigrationsRequiresHandle(t *testing.T) {
	assert.Error(t, RunMigrations(nil, "postgres"))
}
