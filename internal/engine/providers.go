package engine

import (
	"log/slog"

	"danmu/internal/config"
	"danmu/internal/logging"
	"danmu/internal/provider"
	"danmu/internal/provider/bilibili"
	"danmu/internal/provider/dandan"
	"danmu/internal/provider/fixture"
	"danmu/internal/services"
)

// BuildRegistry constructs the adapters enabled in cfg.
func BuildRegistry(cfg *config.Config, logger *slog.Logger) (*provider.Registry, error) {
	logger = logging.NewComponentLogger(logger, "providers")
	registry, err := provider.NewRegistry()
	if err != nil {
		return nil, err
	}
	timeout := cfg.RequestTimeout()
	for _, name := range cfg.Providers.Enabled {
		var (
			p   provider.Provider
			err error
		)
		switch name {
		case dandan.Name:
			p, err = dandan.New(cfg.Providers.Dandan.BaseURL,
				dandan.WithTimeout(timeout),
				dandan.WithCredentials(cfg.Providers.Dandan.AppID, cfg.Providers.Dandan.AppSecret),
			)
		case bilibili.Name:
			p, err = bilibili.New(cfg.Providers.Bilibili.BaseURL, cfg.Providers.Bilibili.CommentURL,
				bilibili.WithTimeout(timeout),
				bilibili.WithCookie(cfg.Providers.Bilibili.Cookie),
			)
		case fixture.Name:
			p, err = fixture.Load(fixture.Name, cfg.Providers.Fixture.Dir)
		default:
			return nil, services.Wrap(services.ErrConfiguration, "providers", "build", "unknown provider "+name, nil)
		}
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "providers", "build", name, err)
		}
		if err := registry.Register(p); err != nil {
			return nil, err
		}
		logger.Debug("provider enabled", logging.String(logging.FieldProvider, name))
	}
	return registry, nil
}
