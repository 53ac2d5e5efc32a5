// Package cmd holds the process lifecycle shared by the binaries: config
// lookup, bootstrap, signal handling and the bot runtime.
package cmd

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pixil98/go-errors"

	coreconfig "github.com/m3rciful/animbot/core/config"
	"github.com/m3rciful/animbot/core/logger"
	coretelegram "github.com/m3rciful/animbot/core/telegram"
)

const defaultConfigEnv = "CONFIG_PATH"

// ConfigCarrier exposes the core configuration of a loaded config file.
type ConfigCarrier interface {
	CoreConfig() *coreconfig.Config
}

// TelegramApp builds the options the bot runtime starts from.
type TelegramApp interface {
	TelegramRunOptions() (coretelegram.RunOptions, error)
}

// Options plugs the binary specific steps into Run. LoadConfig and Bootstrap
// are required; the rest default to the real logger and bot runtime.
type Options struct {
	ConfigEnvVar      string
	DefaultConfigPath string

	LoadConfig func(path string) (ConfigCarrier, error)
	Bootstrap  func(ctx context.Context, cfg ConfigCarrier) (TelegramApp, error)

	ShutdownLogger func() error
	RunTelegram    func(ctx context.Context, opts coretelegram.RunOptions) error
	// Context is the parent of the signal context; nil means Background.
	Context context.Context
}

func (o Options) validate() error {
	el := errors.NewErrorList()
	if o.LoadConfig == nil {
		el.Add(fmt.Errorf("cmd: LoadConfig is required"))
	}
	if o.Bootstrap == nil {
		el.Add(fmt.Errorf("cmd: Bootstrap is required"))
	}
	return el.Err()
}

func (o Options) withDefaults() Options {
	if o.ShutdownLogger == nil {
		o.ShutdownLogger = logger.Shutdown
	}
	if o.RunTelegram == nil {
		o.RunTelegram = coretelegram.RunTelegram
	}
	if o.Context == nil {
		o.Context = context.Background()
	}
	return o
}

// ConfigPath returns $envVar (CONFIG_PATH when empty) or, if unset, fallback.
func ConfigPath(envVar, fallback string) (string, error) {
	if envVar == "" {
		envVar = defaultConfigEnv
	}
	if p := os.Getenv(envVar); p != "" {
		return p, nil
	}
	if fallback == "" {
		return "", fmt.Errorf("cmd: no config path in $%s and no default", envVar)
	}
	return fallback, nil
}

// Run loads the config, bootstraps the app and blocks in the bot runtime
// until SIGINT, SIGTERM or the parent context ends.
func Run(opts Options) error {
	if err := opts.validate(); err != nil {
		return err
	}
	opts = opts.withDefaults()

	path, err := ConfigPath(opts.ConfigEnvVar, opts.DefaultConfigPath)
	if err != nil {
		return err
	}
	cfg, err := opts.LoadConfig(path)
	switch {
	case err != nil:
		return fmt.Errorf("cmd: load config %s: %w", path, err)
	case cfg == nil || cfg.CoreConfig() == nil:
		return fmt.Errorf("cmd: config %s has no core section", path)
	}

	ctx, stop := signal.NotifyContext(opts.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	began := time.Now()
	app, err := opts.Bootstrap(ctx, cfg)
	if err != nil {
		return fmt.Errorf("cmd: bootstrap: %w", err)
	}
	defer func() {
		if err := opts.ShutdownLogger(); err != nil {
			log.Printf("cmd: flush logs: %v", err)
		}
	}()

	runOpts, err := app.TelegramRunOptions()
	if err != nil {
		return fmt.Errorf("cmd: telegram options: %w", err)
	}
	announceLifecycle(&runOpts, began)
	return opts.RunTelegram(ctx, runOpts)
}

// announceLifecycle logs "ready" after the app's own OnStart and "shutdown"
// before its OnStop.
func announceLifecycle(ro *coretelegram.RunOptions, began time.Time) {
	onStart, onStop := ro.OnStart, ro.OnStop
	ro.OnStart = func(ctx context.Context, rt coretelegram.Runtime) error {
		if onStart != nil {
			if err := onStart(ctx, rt); err != nil {
				return err
			}
		}
		logger.Info(ctx, "app", "ready", slog.Duration("startup_duration", time.Since(began)))
		return nil
	}
	ro.OnStop = func(ctx context.Context, rt coretelegram.Runtime) error {
		logger.Info(ctx, "app", "shutdown")
		if onStop == nil {
			return nil
		}
		return onStop(ctx, rt)
	}
}
