// Package extension provides the Forge extension adapter for Raise.
//
// It implements the forge.Extension interface to integrate a Raise
// campaign into a Forge application with automatic dependency discovery,
// DI registration, and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.raise" or "raise" keys.
package extension

import (
	"context"
	"errors"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	raise "github.com/xraph/raise"
	"github.com/xraph/raise/store"
	"github.com/xraph/raise/store/memory"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "raise"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Capped fundraising and token vesting engine"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts Raise as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config       Config
	engine       *raise.Campaign
	store        store.Store
	campaignOpts []raise.Option
}

// New creates a new Raise Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying Campaign instance.
// This is nil until Register is called.
func (e *Extension) Engine() *raise.Campaign { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the campaign engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	// Use memory store if no store was provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}

	eng := raise.New(e.store, e.campaignOpts...)
	e.engine = eng

	return vessel.Provide(fapp.Container(), func() (*raise.Campaign, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("raise: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("raise: store not initialized")
	}
	return e.store.Ping(ctx)
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("raise: configuration is required but not found in config files; " +
				"ensure 'extensions.raise' or 'raise' key exists in your config")
		}

		e.config = programmaticConfig
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("raise: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.raise" first (namespaced pattern).
	if cm.IsSet("extensions.raise") {
		if err := cm.Bind("extensions.raise", &cfg); err == nil {
			e.Logger().Debug("raise: loaded config from file",
				forge.F("key", "extensions.raise"),
			)
			return cfg, true
		}
		e.Logger().Warn("raise: failed to bind extensions.raise config",
			forge.F("error", "bind failed"),
		)
	}

	// Try legacy "raise" key.
	if cm.IsSet("raise") {
		if err := cm.Bind("raise", &cfg); err == nil {
			e.Logger().Debug("raise: loaded config from file",
				forge.F("key", "raise"),
			)
			return cfg, true
		}
		e.Logger().Warn("raise: failed to bind raise config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence; programmatic flags fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}
	return yamlConfig
}
