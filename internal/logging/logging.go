// Package logging builds the module's single *zap.Logger and hands out
// named sub-loggers to each component via constructor injection. The
// teacher's own internal/logging is a stdlib-log category singleton, but
// its cmd/nerd entry point actually builds and threads a *zap.Logger
// (zap.NewProductionConfig() in PersistentPreRunE); this package generalizes
// that cmd-level idiom into a reusable constructor instead of a global.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config controls the root logger's output shape and verbosity.
type Config struct {
	// Development renders human-readable, colorized console output instead
	// of JSON; intended for `exampleforge generate --verbose` on a TTY.
	Development bool
	// Level is one of "debug", "info", "warn", "error".
	Level string
}

// New builds the root logger for one process invocation. Callers derive
// per-component loggers from it with Named; nothing in this module reaches
// for a package-level global logger.
func New(cfg Config) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}

	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err == nil {
			zcfg.Level = zap.NewAtomicLevelAt(level)
		}
	}

	return zcfg.Build()
}

// Named returns a child logger scoped to one pipeline component, mirroring
// the teacher's per-category logger split (schema, examples, llm, agent,
// constraints, orchestrator, adapters) but as an explicit value instead of a
// registry lookup.
func Named(root *zap.Logger, component string) *zap.Logger {
	return root.Named(component)
}
