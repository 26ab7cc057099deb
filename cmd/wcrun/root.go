package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/wasm-component/engine"
	"github.com/wippyai/wasm-component/linker"
	"github.com/wippyai/wasm-component/runtime"
)

// Version is set via -ldflags.
var Version = "dev"

const envPrefix = "WCRUN"

// settings is the resolved CLI configuration.
type settings struct {
	LogLevel         string `mapstructure:"log-level"`
	CacheDir         string `mapstructure:"cache-dir"`
	MemoryLimitPages uint32 `mapstructure:"memory-limit-pages"`
	MaxStringLength  uint32 `mapstructure:"max-string-length"`
}

func (s *settings) runtimeConfig() *runtime.Config {
	return &runtime.Config{
		Engine: engine.Config{
			MemoryLimitPages:    s.MemoryLimitPages,
			CompilationCacheDir: s.CacheDir,
			CloseOnContextDone:  true,
		},
		Linker: linker.Options{
			MaxStringLength: s.MaxStringLength,
		},
	}
}

// app carries state shared by every subcommand.
type app struct {
	v        *viper.Viper
	log      *zap.Logger
	settings settings
	cfgFile  string
}

func newApp() *app {
	return &app{v: viper.New(), log: zap.NewNop()}
}

func newRootCmd() *cobra.Command {
	return newApp().command()
}

func (a *app) command() *cobra.Command {
	root := &cobra.Command{
		Use:           "wcrun",
		Short:         "Inspect and run WebAssembly components",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Long: `wcrun loads a WebAssembly component (or a core module), lists its
imports and exports, and calls exported functions.

Configuration is read from flags, WCRUN_* environment variables
(WCRUN_LOG_LEVEL, WCRUN_MAX_STRING_LENGTH, ...) and an optional
config file in any format viper understands.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (yaml, toml or json)")
	flags.String("log-level", "warn", "log level: debug, info, warn, error")
	flags.String("cache-dir", "", "directory for the wazero compilation cache")
	flags.Uint32("memory-limit-pages", 0, "maximum linear memory pages per instance (0 = wazero default)")
	flags.Uint32("max-string-length", 0, "maximum byte length of a lowered string (0 = 2^31-1)")

	root.AddCommand(newInspectCmd(a))
	root.AddCommand(newCallCmd(a))
	root.AddCommand(newInteractiveCmd(a))
	return root
}

// init layers config file, environment and flags into a.settings and
// installs the logger.
func (a *app) init(cmd *cobra.Command) error {
	v := a.v
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}
	if a.cfgFile != "" {
		v.SetConfigFile(a.cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", a.cfgFile, err)
		}
	}
	if err := v.Unmarshal(&a.settings); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}

	log, err := newLogger(a.settings.LogLevel)
	if err != nil {
		return err
	}
	a.log = log
	engine.SetLogger(log.Named("engine"))
	linker.SetLogger(log.Named("linker"))
	runtime.SetLogger(log.Named("runtime"))
	return nil
}

// newLogger builds a development logger for debug and a production logger
// otherwise, writing to stderr.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	cfg := zap.NewProductionConfig()
	if lvl == zapcore.DebugLevel {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}

// open reads path and loads it into a new runtime. The caller closes the
// runtime.
func (a *app) open(ctx context.Context, path string) (*runtime.Runtime, any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read file: %w", err)
	}

	rt, err := runtime.New(ctx, a.settings.runtimeConfig())
	if err != nil {
		return nil, nil, fmt.Errorf("create runtime: %w", err)
	}
	loaded, err := rt.Load(ctx, data)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, nil, fmt.Errorf("load %s: %w", path, err)
	}
	a.log.Debug("loaded", zap.String("path", path), zap.Int("size", len(data)))
	return rt, loaded, nil
}
