package cli

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/diffable/internal/config"
	"github.com/roach88/diffable/internal/durable"
	"github.com/roach88/diffable/internal/ir"
	"github.com/roach88/diffable/internal/kvstore"
	"github.com/roach88/diffable/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	Database   string
	Backend    string
	Driver     string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the diffable CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "diffable",
		Short: "Inspect and edit durable object graphs",
		Long: `diffable persists in-memory object graphs as an append-only change log
compacted by snapshots. This tool lists, shows, edits and verifies the
states stored in a diffable database.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
		Version:       fmt.Sprintf("%s (format %s)", ir.LibraryVersion, ir.FormatVersion),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output (debug logging)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to config file")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "database file (sqlite) or directory (badger)")
	cmd.PersistentFlags().StringVar(&opts.Backend, "backend", "", "storage backend (sqlite|badger)")
	cmd.PersistentFlags().StringVar(&opts.Driver, "driver", "", "sqlite driver (sqlite3|sqlite)")

	cmd.AddCommand(NewStatesCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewInspectCommand(opts))
	cmd.AddCommand(NewSetCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewSnapshotCommand(opts))
	cmd.AddCommand(NewVerifyCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// session is an open backend plus the configuration it was opened with.
type session struct {
	cfg     config.Config
	backend store.Backend
	logger  *slog.Logger
	out     *OutputFormatter
}

func (s *session) Close() error {
	return s.backend.Close()
}

// state returns the durable state name with the configured policy.
// A non-empty policy overrides the configuration.
func (s *session) state(name, policy string) (*durable.State, error) {
	p := s.cfg.Policy()
	if policy != "" {
		parsed, err := durable.ParsePolicy(policy)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "invalid --policy", err)
		}
		p = parsed
	}
	return durable.New(s.backend, name, durable.WithPolicy(p), durable.WithLogger(s.logger)), nil
}

// loadConfig reads the config file (if any) and applies flag overrides.
func (o *RootOptions) loadConfig() (config.Config, error) {
	cfg := config.Default()
	if o.ConfigPath != "" {
		loaded, err := config.Load(o.ConfigPath)
		if err != nil {
			return config.Config{}, WrapExitError(ExitCommandError, "failed to load config", err)
		}
		cfg = loaded
	}
	if o.Database != "" {
		cfg.Database = o.Database
	}
	if o.Backend != "" {
		cfg.Backend = o.Backend
	}
	if o.Driver != "" {
		cfg.Driver = o.Driver
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	return cfg, nil
}

// open loads the configuration and opens the backend it names.
func (o *RootOptions) open(cmd *cobra.Command) (*session, error) {
	if !isValidFormat(o.Format) {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", o.Format, ValidFormats))
	}
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}

	level := cfg.Level()
	if o.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	backend, err := openBackend(cfg, logger)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	logger.Debug("opened database", "backend", cfg.Backend, "path", cfg.Database)

	return &session{
		cfg:     cfg,
		backend: backend,
		logger:  logger,
		out:     &OutputFormatter{Format: o.Format, Writer: cmd.OutOrStdout()},
	}, nil
}

func openBackend(cfg config.Config, logger *slog.Logger) (store.Backend, error) {
	switch cfg.Backend {
	case config.BackendBadger:
		kcfg := kvstore.DefaultConfig(cfg.Database)
		kcfg.Logger = logger
		return kvstore.Open(kcfg)
	default:
		return store.Open(cfg.Database, store.WithDriver(cfg.Driver))
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
