package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Brahmamvp/brahma-transparency-engine-sub001/internal/config"
	"github.com/Brahmamvp/brahma-transparency-engine-sub001/internal/engine"
	"github.com/Brahmamvp/brahma-transparency-engine-sub001/internal/logging"
	"github.com/Brahmamvp/brahma-transparency-engine-sub001/internal/store"
)

// app carries state shared by every command of one invocation.
type app struct {
	cfgPath string
	dbPath  string
	backend string
	jsonOut bool

	eng       *engine.Engine
	namespace string
	keys      func(prefix string) ([]string, error)
	closers   []func() error
}

// NewRootCmd builds the acf command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "acf",
		Short:         "Adaptive continuity memory for a reflective assistant",
		Long:          "acf keeps topic memories, consent decisions and an audit trail on this device, and gates every memory write behind dignity checks and consent.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgPath, "config", "", "Config file (.toml, .yaml or .yml)")
	pf.StringVar(&a.dbPath, "db", "", "SQLite database path (overrides config and ACF_DB)")
	pf.StringVar(&a.backend, "backend", "", "Storage backend: sqlite, redis or memory")
	pf.BoolVar(&a.jsonOut, "json", false, "Print results as JSON")

	root.AddCommand(
		newVersionCmd(),
		newPrepareCmd(a),
		newFinalizeCmd(a),
		newMemoryCmd(a),
		newConsentCmd(a),
		newAuditCmd(a),
		newSignalCmd(a),
		newTrajectoryCmd(a),
		newMetricsCmd(a),
		newKeysCmd(a),
	)
	return root
}

// Execute runs the root command against os.Args.
func Execute() error {
	root := NewRootCmd()
	err := root.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "acf: %v\n", err)
	}
	return err
}

// run opens the engine, calls fn and releases the store whatever fn returns.
func (a *app) run(fn func(*engine.Engine) error) (err error) {
	eng, err := a.engine()
	defer func() {
		if cerr := a.close(); err == nil {
			err = cerr
		}
	}()
	if err != nil {
		return err
	}
	return fn(eng)
}

// engine opens the configured store and builds the engine on first use.
func (a *app) engine() (*engine.Engine, error) {
	if a.eng != nil {
		return a.eng, nil
	}

	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return nil, err
	}
	if a.dbPath != "" {
		cfg.Database.Path = a.dbPath
	}
	if a.backend != "" {
		cfg.Database.Backend = a.backend
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error { return logging.Sync(log) })

	kv, err := a.openKV(cfg.Database)
	if err != nil {
		return nil, err
	}
	a.namespace = cfg.Database.Namespace
	log.Debug("cli: store opened",
		zap.String("backend", cfg.Database.Backend),
		zap.String("namespace", cfg.Database.Namespace))

	a.eng = engine.New(store.Namespaced(kv, cfg.Database.Namespace),
		engine.WithLogger(log),
		engine.WithSettings(settingsFrom(cfg)),
	)
	return a.eng, nil
}

// openKV opens the backend named by cfg.
func (a *app) openKV(cfg config.DatabaseConfig) (store.KV, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		m := store.NewMapKV()
		a.keys = func(prefix string) ([]string, error) {
			var out []string
			for _, k := range m.Keys() {
				if strings.HasPrefix(k, prefix) {
					out = append(out, k)
				}
			}
			return out, nil
		}
		return m, nil

	case config.BackendRedis:
		r, err := store.NewRedisKV(store.RedisOptions{URL: cfg.RedisURL})
		if err != nil {
			return nil, fmt.Errorf("open redis: %w", err)
		}
		a.closers = append(a.closers, r.Close)
		return r, nil

	default:
		dbPath := cfg.Path
		if dbPath == "" {
			var err error
			dbPath, err = store.DefaultDBPath()
			if err != nil {
				return nil, fmt.Errorf("resolve db path: %w", err)
			}
		}
		db, err := store.Open(dbPath)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		a.keys = db.Keys
		return db, nil
	}
}

func (a *app) close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	a.eng = nil
	a.keys = nil
	return first
}

func settingsFrom(cfg config.Config) engine.Settings {
	return engine.Settings{
		MemoryCap:       cfg.Memory.Cap,
		FleetingHorizon: cfg.Memory.FleetingHorizon.Duration(),
		QueryLimit:      cfg.Memory.QueryLimit,
		PrepareLimit:    cfg.Memory.PrepareLimit,
		DriftPeriodDays: cfg.Consent.DriftPeriodDays,
		AuditCap:        cfg.Audit.Cap,
		Window:          cfg.Trajectory.Window,
		TrendWindow:     cfg.Trajectory.TrendWindow,
		SignalCap:       cfg.Trajectory.SignalCap,
	}
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
