// Package logging provides category-scoped loggers for docjudge, built on
// zap. Logging is silent until Init is called; every package logs through
// its category so one noisy subsystem can be followed in isolation.
package logging

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category names a subsystem for log filtering.
type Category string

const (
	CategoryEngine  Category = "engine"  // scheduler, aggregation
	CategoryOracle  Category = "oracle"  // LLM calls, retries
	CategoryRules   Category = "rules"   // rule loading
	CategoryDocs    Category = "docs"    // document discovery, watch events
	CategoryReport  Category = "report"  // rendering, output files
	CategoryHistory Category = "history" // run history store
)

var (
	mu      sync.RWMutex
	root    *zap.SugaredLogger
	loggers = make(map[Category]*zap.SugaredLogger)
)

// Init configures the process-wide logger. level is one of debug, info,
// warn, error; an empty or unknown level means info. When file is non-empty
// logs are appended there instead of stderr. Safe to call once at startup.
func Init(level, file string) error {
	var lvl zapcore.Level
	switch level {
	case "debug":
		lvl = zapcore.DebugLevel
	case "", "info":
		lvl = zapcore.InfoLevel
	case "warn", "warning":
		lvl = zapcore.WarnLevel
	case "error":
		lvl = zapcore.ErrorLevel
	default:
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.DisableStacktrace = true
	if file != "" {
		cfg.OutputPaths = []string{file}
		cfg.ErrorOutputPaths = []string{file}
	} else {
		cfg.OutputPaths = []string{"stderr"}
		cfg.ErrorOutputPaths = []string{"stderr"}
	}

	logger, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()
	root = logger.Sugar()
	loggers = make(map[Category]*zap.SugaredLogger)
	return nil
}

// Get returns the logger for a category. Before Init it returns a no-op
// logger, so library code never needs a nil check.
func Get(category Category) *zap.SugaredLogger {
	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	r := root
	mu.RUnlock()

	if r == nil {
		return zap.NewNop().Sugar()
	}

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}
	l := r.With("cat", string(category))
	loggers[category] = l
	return l
}

// Sync flushes buffered log entries. Call at shutdown.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	if root != nil {
		_ = root.Sync()
	}
}

// Convenience helpers in the usual call pattern: logging.Engine("..."),
// logging.OracleDebug("...").

func Engine(format string, args ...interface{}) { Get(CategoryEngine).Infof(format, args...) }

func EngineDebug(format string, args ...interface{}) { Get(CategoryEngine).Debugf(format, args...) }

func EngineWarn(format string, args ...interface{}) { Get(CategoryEngine).Warnf(format, args...) }

func Oracle(format string, args ...interface{}) { Get(CategoryOracle).Infof(format, args...) }

func OracleDebug(format string, args ...interface{}) { Get(CategoryOracle).Debugf(format, args...) }

func OracleWarn(format string, args ...interface{}) { Get(CategoryOracle).Warnf(format, args...) }

func OracleError(format string, args ...interface{}) { Get(CategoryOracle).Errorf(format, args...) }

func Rules(format string, args ...interface{}) { Get(CategoryRules).Infof(format, args...) }

func Docs(format string, args ...interface{}) { Get(CategoryDocs).Infof(format, args...) }

func DocsDebug(format string, args ...interface{}) { Get(CategoryDocs).Debugf(format, args...) }

func Report(format string, args ...interface{}) { Get(CategoryReport).Infof(format, args...) }

func History(format string, args ...interface{}) { Get(CategoryHistory).Infof(format, args...) }
