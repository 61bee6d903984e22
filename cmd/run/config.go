package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/wasm-loader/loader"
)

const (
	envPrefix = "WASMLOADER"

	keyConfig           = "config"
	keyLogLevel         = "log-level"
	keyCacheDir         = "cache-dir"
	keyMemoryLimitPages = "memory-limit-pages"
	keyTimeout          = "timeout"
)

type configuration struct {
	logger *zap.Logger

	cfgFile          string
	logLevel         string
	cacheDir         string
	timeout          time.Duration
	memoryLimitPages uint32
}

func (c *configuration) addFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVar(&c.cfgFile, keyConfig, "", "config file (yaml, toml or json)")
	f.StringVar(&c.logLevel, keyLogLevel, "warn", "loader log level (debug, info, warn, error)")
	f.StringVar(&c.cacheDir, keyCacheDir, "", "directory for the compilation cache")
	f.Uint32Var(&c.memoryLimitPages, keyMemoryLimitPages, 0, "maximum memory per instance in 64KiB pages")
	f.DurationVar(&c.timeout, keyTimeout, 30*time.Second, "timeout for fetching remote modules")
}

// initialize reads the config file and WASMLOADER_* environment variables
// into flags that were not set on the command line.
func (c *configuration) initialize(cmd *cobra.Command) error {
	v := viper.New()
	if c.cfgFile != "" {
		v.SetConfigFile(c.cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file: %w", err)
		}
	}
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if err := bindFlags(cmd, v); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}

	level, err := zapcore.ParseLevel(c.logLevel)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", keyLogLevel, err)
	}
	zc := zap.NewDevelopmentConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.DisableStacktrace = true
	if c.logger, err = zc.Build(); err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	loader.SetLogger(c.logger)
	return nil
}

// bindFlags applies viper values to every flag the user did not set.
func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	var errs []error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Name == keyConfig {
			return
		}
		// env vars cannot contain dashes: --cache-dir reads WASMLOADER_CACHE_DIR
		if strings.Contains(f.Name, "-") {
			env := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
			if err := v.BindEnv(f.Name, env); err != nil {
				errs = append(errs, fmt.Errorf("binding env to flag %q: %w", f.Name, err))
				return
			}
		}
		if !f.Changed && v.IsSet(f.Name) {
			if err := cmd.Flags().Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name))); err != nil {
				errs = append(errs, fmt.Errorf("setting flag %q value: %w", f.Name, err))
			}
		}
	})
	return errors.Join(errs...)
}

func (c *configuration) newLoader(ctx context.Context) (*loader.Loader, error) {
	cfg := loader.DefaultConfig()
	cfg.Logger = c.logger
	cfg.CompilationCacheDir = c.cacheDir
	cfg.MemoryLimitPages = c.memoryLimitPages
	cfg.HTTPTimeout = c.timeout
	cfg.CloseOnContextDone = true
	return loader.New(ctx, &cfg)
}
