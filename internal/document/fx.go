package document

import (
	"context"

	"github.com/bwmarrin/snowflake"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/docrender/internal/cache"
	"github.com/smallbiznis/docrender/internal/clock"
	"github.com/smallbiznis/docrender/internal/config"
	"github.com/smallbiznis/docrender/internal/document/canvas"
	"github.com/smallbiznis/docrender/internal/document/domain"
	docimage "github.com/smallbiznis/docrender/internal/document/image"
	"github.com/smallbiznis/docrender/internal/document/service"
	"github.com/smallbiznis/docrender/internal/media"
	"github.com/smallbiznis/docrender/internal/observability/logger"
	"github.com/smallbiznis/docrender/internal/observability/metrics"
	"github.com/spf13/afero"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("document",
	clock.Module,
	fx.Provide(
		provideSnowflake,
		provideSettings,
		provideFonts,
		provideLogoSource,
		provideErrorLogger,
		service.New,
	),
)

func provideSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}

func provideSettings(holder *config.DocumentsConfigHolder) service.SettingsSource {
	return holder
}

// provideFonts loads the TrueType fonts once; a missing font stops startup.
func provideFonts(holder *config.DocumentsConfigHolder, log *zap.Logger) (canvas.FontSet, error) {
	cfg := holder.Get()
	fonts, err := canvas.LoadFonts(afero.NewOsFs(), cfg.FontRegular, cfg.FontBold)
	if err != nil {
		return canvas.FontSet{}, err
	}
	log.Named("document.fonts").Info("fonts loaded",
		zap.String("regular", cfg.FontRegular),
		zap.String("bold", cfg.FontBold),
	)
	return fonts, nil
}

type logoParams struct {
	fx.In

	Store   *media.Store
	Holder  *config.DocumentsConfigHolder
	Log     *zap.Logger
	Redis   *redis.Client    `optional:"true"`
	Metrics *metrics.Metrics `optional:"true"`
}

func provideLogoSource(p logoParams) docimage.Source {
	cfg := p.Holder.Get()
	opts := []docimage.Option{
		docimage.WithFetchObserver(func(ctx context.Context, source string, ok bool) {
			p.Metrics.RecordLogoFetch(ctx, source, ok)
		}),
	}
	if p.Redis != nil {
		opts = append(opts, docimage.WithCache(docimage.NewRedisCache(p.Redis)))
	} else {
		opts = append(opts, docimage.WithCache(cache.NewImageCache()))
	}
	return docimage.NewLoader(p.Store.Fs(), docimage.Config{
		MediaPrefix:  p.Store.PublicPrefix(),
		FetchTimeout: cfg.LogoFetchTimeout,
		CacheTTL:     cfg.LogoCacheTTL,
	}, p.Log, opts...)
}

func provideErrorLogger(l *logger.ErrorLogger) domain.ErrorLogger {
	return l
}
