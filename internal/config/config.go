// Package config loads the diffable CLI configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/roach88/diffable/internal/durable"
)

// Backends.
const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
)

// Config is the on-disk configuration.
//
// Example:
//
//	database: ./diffable.db
//	backend: sqlite
//	driver: sqlite3
//	snapshot_policy: every:10
//	log_level: info
type Config struct {
	// Database is the SQLite file, or the Badger directory.
	Database string `yaml:"database" validate:"required"`

	Backend string `yaml:"backend" validate:"oneof=sqlite badger"`

	// Driver selects the SQLite driver. Ignored by the Badger backend.
	Driver string `yaml:"driver" validate:"omitempty,oneof=sqlite3 sqlite"`

	SnapshotPolicy string `yaml:"snapshot_policy" validate:"policy"`

	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("policy", validatePolicy)
}

// validatePolicy accepts any string ParsePolicy accepts.
func validatePolicy(fl validator.FieldLevel) bool {
	_, err := durable.ParsePolicy(fl.Field().String())
	return err == nil
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Database:       "diffable.db",
		Backend:        BackendSQLite,
		Driver:         "sqlite3",
		SnapshotPolicy: durable.DefaultPolicy.String(),
		LogLevel:       "info",
	}
}

// Load reads path over Default. Unknown keys are rejected so typos do not
// silently fall back to defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every field.
func (c Config) Validate() error {
	err := validate.Struct(c)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: invalid value %q (%s)", yamlName(fe.Field()), fmt.Sprint(fe.Value()), fe.Tag()))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func yamlName(field string) string {
	switch field {
	case "SnapshotPolicy":
		return "snapshot_policy"
	case "LogLevel":
		return "log_level"
	default:
		return strings.ToLower(field)
	}
}

// Policy returns the parsed snapshot policy. Call after Validate.
func (c Config) Policy() durable.Policy {
	p, err := durable.ParsePolicy(c.SnapshotPolicy)
	if err != nil {
		return durable.DefaultPolicy
	}
	return p
}

// Level returns the slog level for LogLevel.
func (c Config) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}
