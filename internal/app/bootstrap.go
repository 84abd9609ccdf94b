package app

import (
	"log/slog"
	"strings"

	"smart_basket/internal/infra"
	"smart_basket/internal/infra/feed"
	"smart_basket/internal/infra/storage"
)

const lastSessionKey = "last_session"

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	ConfigPath string
	Config     *infra.Config
	Storage    *storage.Storage // nil unless storage.enabled
	Metrics    *infra.Metrics
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap(configPath string) *Bootstrap {
	return &Bootstrap{ConfigPath: configPath, Metrics: infra.GlobalMetrics}
}

// Initialize performs core system initialization (config, logger, DB)
func (b *Bootstrap) Initialize() error {
	slog.Info("🚀 Bootstrapping SmartBasket...")

	// 1. Load Config
	cfg, err := infra.LoadConfig(b.ConfigPath)
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger
	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)

	// 3. Initialize Storage (DB)
	if cfg.Storage.Enabled {
		store, err := storage.NewStorage(cfg.Storage.Path)
		if err != nil {
			return err
		}
		b.Storage = store
		slog.Info("✅ Receipt archive initialized")
	}

	return nil
}

// ResolveSession picks the feed session id: an explicit override wins,
// then the launch URL's id parameter, then the configured id.
func (b *Bootstrap) ResolveSession(launchURL, override string) string {
	session := strings.TrimSpace(override)
	switch {
	case session != "":
	case launchURL != "":
		session = feed.SessionFromURL(launchURL)
	default:
		session = b.Config.Feed.SessionID
	}

	if b.Storage != nil {
		if prev, err := b.Storage.LoadConfigMap(); err == nil && prev[lastSessionKey] != "" && prev[lastSessionKey] != session {
			slog.Info("Session changed since last run", slog.String("previous", prev[lastSessionKey]), slog.String("session", session))
		}
		if err := b.Storage.SaveConfig(lastSessionKey, session); err != nil {
			slog.Warn("Failed to remember session", slog.Any("error", err))
		}
	}
	return session
}

// Close releases bootstrap resources.
func (b *Bootstrap) Close() {
	if b.Storage != nil {
		if err := b.Storage.Close(); err != nil {
			slog.Warn("Failed to close storage", slog.Any("error", err))
		}
	}
}
