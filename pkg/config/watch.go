package config

import (
	"fmt"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/marmos91/gfs/internal/logger"
)

// Watch reloads the configuration file whenever it changes on disk and
// hands each valid result to onChange. Invalid edits are logged and
// skipped. Watching stops when the process exits.
func Watch(configPath string, onChange func(*Config)) error {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("no configuration file to watch")
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := decode(v)
		if err != nil {
			logger.Warn("Ignoring invalid configuration change", logger.KeyConfigFile, e.Name, logger.Err(err))
			return
		}
		logger.Info("Configuration reloaded", logger.KeyConfigFile, e.Name)
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}

// ApplyLogging pushes the logging section to the process logger. Used at
// startup and on reload.
func ApplyLogging(cfg LoggingConfig) error {
	return logger.Init(logger.Config{
		Level:  cfg.Level,
		Format: cfg.Format,
		Output: cfg.Output,
	})
}
