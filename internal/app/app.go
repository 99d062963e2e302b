package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"deskshell/internal/config"
	"deskshell/internal/core"
	"deskshell/internal/modules/files"
	"deskshell/internal/modules/greeting"
	"deskshell/internal/modules/host"
	"deskshell/internal/modules/selftest"
	"deskshell/internal/modules/sqldb"
	"deskshell/internal/transports/stdio"
	"deskshell/internal/transports/web"
)

// App агрегирует зависимости ядра.
type App struct {
	registry   *core.Registry
	Transports *core.TransportManager
	Config     config.Config
	Logger     *slog.Logger

	closers []io.Closer
}

// Options позволяют подменить окружение в тестах.
type Options struct {
	Env    host.Environment
	Stdin  io.Reader
	Stdout io.Writer
}

// NewApp строит приложение: модули, реестр команд и транспорты.
func NewApp(ctx context.Context, cfg config.Config, lg *slog.Logger, opts Options) (*App, error) {
	if lg == nil {
		lg = slog.Default()
	}
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}

	db := sqldb.New(cfg.App.DataDir, nil)
	providers := []core.CommandProvider{
		host.New(opts.Env, cfg.App.Version),
		&greeting.Module{},
		selftest.New(selftest.Config{
			AsyncDelay: time.Duration(cfg.SelfTest.AsyncDelayMS) * time.Millisecond,
			NetworkDelay: selftest.UniformDelay(
				time.Duration(cfg.SelfTest.NetworkMinDelayMS)*time.Millisecond,
				time.Duration(cfg.SelfTest.NetworkMaxDelayMS)*time.Millisecond,
			),
			MemoryBytes: cfg.SelfTest.MemoryBytes,
			TempDir:     cfg.SelfTest.TempDir,
		}),
		files.New(os.FileMode(cfg.Files.Perm)),
		db,
	}

	r, err := core.NewRegistry(ctx, providers, core.WithLogger(lg.With("component", "dispatcher")))
	if err != nil {
		return nil, fmt.Errorf("register commands: %w", err)
	}

	transports := core.NewTransportManager()
	if cfg.Web.Enabled {
		webAdapter := web.NewAdapter(r, lg, web.Config{
			ListenAddr:         cfg.Web.ListenAddr,
			ReadTimeout:        time.Duration(cfg.Web.ReadTimeoutMS) * time.Millisecond,
			WriteTimeout:       time.Duration(cfg.Web.WriteTimeoutMS) * time.Millisecond,
			RequestTimeout:     time.Duration(cfg.Web.RequestTimeoutMS) * time.Millisecond,
			ShutdownTimeout:    time.Duration(cfg.Web.ShutdownTimeoutS) * time.Second,
			MaxRequestBody:     cfg.Web.MaxBodyBytes,
			CORSAllowedOrigins: cfg.Web.AllowedOrigins,
			RateLimit:          cfg.Web.RateLimit,
			RateWindow:         time.Duration(cfg.Web.RateWindowMS) * time.Millisecond,
		})
		if err := transports.Register(webAdapter); err != nil {
			return nil, fmt.Errorf("register web transport: %w", err)
		}
	}
	if cfg.Stdio.Enabled {
		if err := transports.Register(stdio.NewAdapter(r, lg, opts.Stdin, opts.Stdout, cfg.Stdio.MaxLineBytes)); err != nil {
			return nil, fmt.Errorf("register stdio transport: %w", err)
		}
	}

	lg.Info("commands registered", "providers", r.Providers(), "commands", len(r.Commands()))

	return &App{
		registry:   r,
		Transports: transports,
		Config:     cfg,
		Logger:     lg,
		closers:    []io.Closer{db},
	}, nil
}

// Registry возвращает таблицу команд.
func (a *App) Registry() *core.Registry { return a.registry }

// Close высвобождает ресурсы модулей.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Serve запускает транспорты и блокируется до отмены контекста.
func (a *App) Serve(ctx context.Context) error {
	if err := a.Transports.StartAll(ctx); err != nil {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.Transports.StopAll(stopCtx)
		return fmt.Errorf("start transports: %w", err)
	}
	a.Logger.Info("serving", "transports", a.Transports.Names())
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.Transports.StopAll(stopCtx); err != nil {
			a.Logger.Warn("stop transports", "err", err)
		}
	}()

	<-ctx.Done()
	a.Logger.Info("shutting down")
	if errors.Is(ctx.Err(), context.Canceled) {
		return nil
	}
	return ctx.Err()
}
