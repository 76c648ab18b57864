package migration

import (
	"github.com/smallbiznis/docrender/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB  *gorm.DB `optional:"true"`
	Cfg config.Config
	Log *zap.Logger
}

var Module = fx.Module("migrations",
	fx.Invoke(func(p Params) error {
		if !p.Cfg.DBMigrate || p.DB == nil {
			return nil
		}
		sqlDB, err := p.DB.DB()
		if err != nil {
			return err
		}
		if err := RunMigrations(sqlDB, p.Cfg.DBType); err != nil {
			return err
		}
		p.Log.Info("order schema migrated", zap.String("dialect", p.Cfg.DBType))
		return nil
	}),
)
