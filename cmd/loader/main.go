package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/JonMunkholm/recordstore/internal/config"
	"github.com/JonMunkholm/recordstore/internal/loader"
	"github.com/JonMunkholm/recordstore/internal/logging"
	"github.com/JonMunkholm/recordstore/internal/worker"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Debug("configuration loaded", "config", cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("loader failed", "error", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	mode := loader.StrictLines
	if cfg.Import.SkipMalformed {
		mode = loader.SkipMalformed
	}

	openCtx, cancel := context.WithTimeout(ctx, cfg.Database.ConnectTimeout)
	w, err := worker.Open(openCtx, cfg.Database.URL, worker.Options{
		Store:    cfg.Store.Options(),
		LoadMode: mode,
	})
	cancel()
	if err != nil {
		return err
	}
	defer func() {
		if err := w.Close(context.Background()); err != nil {
			slog.Warn("failed to close stores", "error", err)
		}
	}()

	// Log which database we connected to
	if u, err := url.Parse(cfg.Database.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}

	if cfg.Import.ResetFirst {
		res, err := w.ResetAll(ctx)
		if err != nil {
			return err
		}
		slog.Info("tables reset",
			"persons", res.Persons,
			"localities", res.Localities,
			"departments", res.Departments,
		)
	}

	if path := cfg.Import.LocalityFile; path != "" {
		if err := importOne(ctx, cfg, "localities", path, cfg.Import.LocalityCharset, w.ImportLocalities); err != nil {
			return err
		}
	}
	if path := cfg.Import.DepartmentFile; path != "" {
		if err := importOne(ctx, cfg, "departments", path, cfg.Import.DepartmentCharset, w.ImportDepartments); err != nil {
			return err
		}
	}

	persons, err := w.CountPersons(ctx)
	if err != nil {
		return err
	}
	localities, err := w.CountLocalities(ctx)
	if err != nil {
		return err
	}
	departments, err := w.CountDepartments(ctx)
	if err != nil {
		return err
	}

	slog.Info("record counts",
		"persons", persons,
		"localities", localities,
		"departments", departments,
	)
	return nil
}

type importFunc func(ctx context.Context, path, charset string) (int, error)

func importOne(ctx context.Context, cfg *config.Config, kind, path, charset string, fn importFunc) error {
	ctx, cancel := context.WithTimeout(ctx, cfg.Import.Timeout)
	defer cancel()

	n, err := fn(ctx, path, charset)
	if err != nil {
		return err
	}
	if n == worker.NothingImported {
		slog.Warn("import file held no usable line", "kind", kind, "file", path)
		return nil
	}
	slog.Info("file imported", "kind", kind, "file", path, "rows", n)
	return nil
}
