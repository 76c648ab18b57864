package media

import (
	"path/filepath"

	"github.com/smallbiznis/docrender/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("media",
	fx.Provide(provideStore),
)

func provideStore(cfg config.Config, log *zap.Logger) (*Store, error) {
	root, err := filepath.Abs(cfg.MediaRoot)
	if err != nil {
		return nil, err
	}
	return NewStore(NewOsFs(root), root, cfg.MediaPublicPrefix, log), nil
}
