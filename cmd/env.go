package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/ProReality/ClassiCubeLauncher/config"
	"github.com/ProReality/ClassiCubeLauncher/layout"
	"github.com/ProReality/ClassiCubeLauncher/updates"
	"github.com/ProReality/ClassiCubeLauncher/updates_api"
)

// env is what a command needs once the flags are parsed
type env struct {
	resolver *layout.Resolver
	config   config.Config
	logger   *log.Logger
}

func (o *rootOptions) resolver() *layout.Resolver {
	if o.launcherDir != "" {
		return layout.NewResolver(layout.WithLauncherDir(o.launcherDir))
	}
	return layout.NewResolver()
}

// configFile is the file the config commands edit
func (o *rootOptions) configFile(resolver *layout.Resolver) (string, error) {
	if o.configPath != "" {
		return o.configPath, nil
	}
	dir, err := resolver.LauncherDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, config.FileName), nil
}

func (o *rootOptions) env(cmd *cobra.Command) (*env, error) {
	resolver := o.resolver()

	cfg, err := config.NewLoader(o.configPath, resolver.LauncherDir).Load()
	if err != nil {
		return nil, updates_api.ConfigError("load config", o.configPath, err)
	}

	levelName := o.logLevel
	if levelName == "" {
		levelName = cfg.LogLevel()
	}
	level, err := log.ParseLevel(levelName)
	if err != nil {
		return nil, updates_api.ConfigError("parse log level", "", fmt.Errorf("%q: %w", levelName, err))
	}

	logger := log.NewWithOptions(cmd.ErrOrStderr(), log.Options{
		Prefix:          "updater",
		Level:           level,
		ReportTimestamp: true,
	})
	logger.Debug("Configuration resolved", "config", cfg)

	return &env{resolver: resolver, config: cfg, logger: logger}, nil
}

func (e *env) service() updates.UpdateService {
	return updates.NewUpdateService(e.config,
		updates.WithResolver(e.resolver),
		updates.WithLogger(e.logger),
	)
}
