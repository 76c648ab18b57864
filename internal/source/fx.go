package source

import (
	"github.com/smallbiznis/docrender/internal/config"
	"github.com/smallbiznis/docrender/pkg/db"
	"go.uber.org/fx"
)

var Module = fx.Module("source",
	fx.Provide(
		func(cfg config.Config) db.Config { return db.FromAppConfig(cfg) },
		db.Open,
		NewStore,
	),
)
