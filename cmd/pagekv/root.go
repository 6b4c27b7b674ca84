package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/huynhanx03/pagekv/pkg/kv"
	"github.com/huynhanx03/pagekv/pkg/logger"
	"github.com/huynhanx03/pagekv/pkg/settings"
)

const quietLogLevel = "warn"

type rootFlags struct {
	config   string
	path     string
	kind     string
	pageSize int
	cache    int
	minItems int
	create   bool
	logLevel string
}

func newRootCmd() *cobra.Command {
	f := &rootFlags{}
	cmd := &cobra.Command{
		Use:           "pagekv",
		Short:         "Inspect and edit pagekv database files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&f.config, "config", "c", "", "YAML config file")
	pf.StringVarP(&f.path, "db", "d", "", "database file (overrides the config)")
	pf.StringVar(&f.kind, "kind", "", "index kind for a new file: btree or hash")
	pf.IntVar(&f.pageSize, "page-size", 0, "page size for a new file")
	pf.IntVar(&f.cache, "cache", 0, "page cache size for a new file")
	pf.IntVar(&f.minItems, "min-items", 0, "minimum items per page for a new file")
	pf.BoolVar(&f.create, "create", false, "create the file when it does not exist")
	pf.StringVar(&f.logLevel, "log-level", "", "log level")

	cmd.AddCommand(
		newPutCmd(f),
		newGetCmd(f),
		newDelCmd(f),
		newDumpCmd(f),
		newStatsCmd(f),
	)
	return cmd
}

// settings merges the config file, when given, with the command-line overrides.
func (f *rootFlags) settings() (*settings.Config, error) {
	cfg := &settings.Config{}
	if f.config != "" {
		loaded, err := settings.Read(f.config)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if f.path != "" {
		cfg.Store.Path = f.path
	}
	if f.kind != "" {
		cfg.Store.Kind = f.kind
	}
	if f.pageSize != 0 {
		cfg.Store.PageSize = f.pageSize
	}
	if f.cache != 0 {
		cfg.Store.CacheSize = f.cache
	}
	if f.minItems != 0 {
		cfg.Store.MinItems = f.minItems
	}
	if f.create {
		cfg.Store.Create = true
	}
	if f.logLevel != "" {
		cfg.Logger.LogLevel = f.logLevel
	}
	if cfg.Logger.LogLevel == "" {
		// keep stdout for command output
		cfg.Logger.LogLevel = quietLogLevel
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// withDB opens the database for the duration of fn.
func (f *rootFlags) withDB(fn func(db *kv.DB) error) (err error) {
	cfg, err := f.settings()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	db, err := kv.OpenConfig(cfg.Store, kv.WithLogger(log))
	if err != nil {
		log.Error("open failed", zap.String("path", cfg.Store.Path), zap.Error(err))
		return err
	}
	defer func() {
		if cerr := db.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(db)
}
