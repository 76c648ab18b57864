package main

import (
	"github.com/smallbiznis/docrender/internal/cache"
	"github.com/smallbiznis/docrender/internal/config"
	"github.com/smallbiznis/docrender/internal/document"
	"github.com/smallbiznis/docrender/internal/media"
	"github.com/smallbiznis/docrender/internal/migration"
	"github.com/smallbiznis/docrender/internal/observability"
	"github.com/smallbiznis/docrender/internal/ratelimit"
	"github.com/smallbiznis/docrender/internal/server"
	"github.com/smallbiznis/docrender/internal/source"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP document service",
	Long: `Start the HTTP service. Configuration comes from the environment (and an
optional .env file); document settings come from documents.yml and are
reloaded when the file changes.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := fx.New(serveOptions()...)
		if err := app.Err(); err != nil {
			return err
		}
		app.Run()
		return nil
	},
}

func serveOptions() []fx.Option {
	return []fx.Option{
		config.Module,
		observability.Module,
		cache.Module,
		media.Module,
		source.Module,
		migration.Module,
		ratelimit.Module,
		document.Module,
		server.Module,
	}
}
