package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"daylist/internal/config"
	"daylist/internal/datekey"
	"daylist/internal/logging"
	"daylist/internal/notify"
	"daylist/internal/storage"
	"daylist/internal/tasks"
)

type globalFlags struct {
	configPath string
	logLevel   string
}

// app is everything a command needs, opened from the config file.
type app struct {
	cfg     config.Config
	kv      storage.KV
	svc     *tasks.Service
	logger  *log.Logger
	closers []io.Closer
}

// openApp loads config and storage. When logToFile is set the logger writes
// to the configured log file instead of stderr.
func openApp(g *globalFlags, logToFile bool) (*app, error) {
	path := g.configPath
	if path == "" {
		path = config.ResolveConfigPath()
	}
	cfg, err := config.LoadOrCreate(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	level := cfg.LogLevel
	if g.logLevel != "" {
		level = g.logLevel
	}

	a := &app{cfg: cfg}
	if logToFile {
		logger, closer, err := logging.OpenFile(cfg.LogPath, level)
		if err != nil {
			return nil, err
		}
		a.logger = logger
		a.closers = append(a.closers, closer)
	} else {
		a.logger = logging.New(os.Stderr, level)
	}

	kv, err := storage.OpenBackend(cfg.Backend, cfg.DBPath)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	a.kv = kv
	a.closers = append(a.closers, kv)
	a.logger.Debug("opened storage", "backend", cfg.Backend, "path", cfg.DBPath, "key", cfg.StorageKey)
	logLastWrite(a.logger, kv, cfg.StorageKey)

	repo := tasks.NewRepository(kv, cfg.StorageKey, a.logger)
	a.svc = tasks.NewService(repo, a.logger)
	return a, nil
}

// logLastWrite notes when the task document was last saved, on backends that
// track it.
func logLastWrite(logger *log.Logger, kv storage.KV, key string) {
	sq, ok := kv.(*storage.SQLite)
	if !ok {
		return
	}
	at, ok, err := sq.UpdatedAt(key)
	switch {
	case err != nil:
		logger.Warn("read last write time", "key", key, "err", err)
	case ok:
		logger.Debug("tasks last written", "key", key, "at", at.Local().Format(time.DateTime))
	}
}

func (a *app) poller(opts ...notify.Option) *notify.Poller {
	opts = append([]notify.Option{notify.WithInterval(a.cfg.Interval())}, opts...)
	return notify.New(a.svc, a.logger, opts...)
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// parseDate accepts a YYYY-MM-DD key or today/tomorrow/yesterday.
func parseDate(v string, now time.Time) (time.Time, error) {
	today := datekey.Today(now)
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "today":
		return today, nil
	case "tomorrow":
		return datekey.AddDays(today, 1), nil
	case "yesterday":
		return datekey.AddDays(today, -1), nil
	}
	return datekey.Parse(strings.TrimSpace(v), now.Location())
}
