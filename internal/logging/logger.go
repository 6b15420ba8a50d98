// Package logging provides config-driven categorized logging for StoryAI.
// Every category writes through a single zap core into a rotating log file.
// Logging is controlled by logging.debug_mode in the config file - when
// false, every logger is a no-op and nothing touches the disk.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Category represents a log category/subsystem
type Category string

const (
	CategoryBoot      Category = "boot"      // Boot sequence and startup
	CategorySession   Category = "session"   // Terminal session lifecycle
	CategoryCommands  Category = "commands"  // Command dispatch and handlers
	CategoryStore     Category = "store"     // Story persistence
	CategoryWallet    Category = "wallet"    // Wallet and balance oracle
	CategoryAI        Category = "ai"        // Line generation
	CategoryConfig    Category = "config"    // Config loading and hot reload
	CategoryTransport Category = "transport" // WebSocket terminal transport
)

// Categories lists every known category in a stable order.
func Categories() []Category {
	return []Category{
		CategoryBoot, CategorySession, CategoryCommands, CategoryStore,
		CategoryWallet, CategoryAI, CategoryConfig, CategoryTransport,
	}
}

// Config mirrors config.LoggingConfig to avoid an import cycle.
type Config struct {
	DebugMode  bool
	Level      string
	File       string // log file path; rotated by size
	MaxSizeMB  int
	MaxBackups int
	JSONFormat bool
	Categories map[string]bool // nil enables every category
}

// Logger is a category-scoped printf-style logger.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	mu      sync.RWMutex
	cfg     Config
	base    *zap.Logger
	sink    *lumberjack.Logger
	loggers = make(map[Category]*Logger)
)

// Initialize builds the shared core from cfg. With debug mode off it only
// records the config and every logger stays a no-op.
func Initialize(c Config) error {
	CloseAll()
	if !c.DebugMode {
		mu.Lock()
		cfg = c
		mu.Unlock()
		return nil
	}
	if c.File == "" {
		return fmt.Errorf("logging: file path required when debug_mode is enabled")
	}
	if err := os.MkdirAll(filepath.Dir(c.File), 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	rot := &lumberjack.Logger{
		Filename:   c.File,
		MaxSize:    positiveOr(c.MaxSizeMB, 15),
		MaxBackups: positiveOr(c.MaxBackups, 3),
		MaxAge:     28,
		Compress:   true,
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder
	if c.JSONFormat {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		enc = zapcore.NewConsoleEncoder(encCfg)
	}
	core := zapcore.NewCore(enc, zapcore.AddSync(rot), zap.NewAtomicLevelAt(ParseLevel(c.Level)))

	mu.Lock()
	cfg = c
	base = zap.New(core)
	sink = rot
	mu.Unlock()

	boot := Get(CategoryBoot)
	boot.Info("=== StoryAI Logging System Initialized ===")
	boot.Info("Log file: %s", c.File)
	boot.Info("Log level: %s", ParseLevel(c.Level))
	if len(c.Categories) == 0 {
		boot.Info("All categories enabled (no category filter)")
	}
	return nil
}

// UseCore installs an already-built core, bypassing the file sink. Debug mode
// is forced on. Tests use it with zaptest/observer.
func UseCore(core zapcore.Core, c Config) {
	CloseAll()
	c.DebugMode = true
	mu.Lock()
	cfg = c
	base = zap.New(core)
	mu.Unlock()
}

// ParseLevel maps a config string onto a zap level, defaulting to info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// IsDebugMode returns whether debug logging is enabled
func IsDebugMode() bool {
	mu.RLock()
	defer mu.RUnlock()
	return cfg.DebugMode
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	if !cfg.DebugMode || base == nil {
		return false
	}
	enabled, exists := cfg.Categories[string(category)]
	return !exists || enabled
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if debug mode is disabled or category is disabled.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) {
		return &Logger{category: category}
	}

	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}
	if base == nil {
		return &Logger{category: category}
	}
	l := &Logger{
		category: category,
		sugar:    base.Named(string(category)).Sugar(),
	}
	loggers[category] = l
	return l
}

// Zap returns the underlying structured logger for callers that want typed
// fields. It is a no-op logger when the category is disabled.
func (l *Logger) Zap() *zap.Logger {
	if l.sugar == nil {
		return zap.NewNop()
	}
	return l.sugar.Desugar()
}

func (l *Logger) Debug(format string, args ...interface{}) {
	if l.sugar != nil {
		l.sugar.Debugf(format, args...)
	}
}

func (l *Logger) Info(format string, args ...interface{}) {
	if l.sugar != nil {
		l.sugar.Infof(format, args...)
	}
}

func (l *Logger) Warn(format string, args ...interface{}) {
	if l.sugar != nil {
		l.sugar.Warnf(format, args...)
	}
}

// Error logs an error message (always logged if the category is enabled)
func (l *Logger) Error(format string, args ...interface{}) {
	if l.sugar != nil {
		l.sugar.Errorf(format, args...)
	}
}

// With returns a child logger carrying key/value context, e.g. a session id.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	if l.sugar == nil {
		return l
	}
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

// CloseAll flushes and closes the sink (call at shutdown)
func CloseAll() {
	mu.Lock()
	defer mu.Unlock()
	if base != nil {
		_ = base.Sync()
	}
	if sink != nil {
		_ = sink.Close()
	}
	base = nil
	sink = nil
	loggers = make(map[Category]*Logger)
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

// =============================================================================
// CONVENIENCE FUNCTIONS - Quick logging without getting a logger first
// These are no-ops if the category is disabled
// =============================================================================

// Boot logs to the boot category
func Boot(format string, args ...interface{}) { Get(CategoryBoot).Info(format, args...) }

// BootDebug logs debug to the boot category
func BootDebug(format string, args ...interface{}) { Get(CategoryBoot).Debug(format, args...) }

// Session logs to the session category
func Session(format string, args ...interface{}) { Get(CategorySession).Info(format, args...) }

// SessionDebug logs debug to the session category
func SessionDebug(format string, args ...interface{}) { Get(CategorySession).Debug(format, args...) }

// Commands logs to the commands category
func Commands(format string, args ...interface{}) { Get(CategoryCommands).Info(format, args...) }

// CommandsDebug logs debug to the commands category
func CommandsDebug(format string, args ...interface{}) {
	Get(CategoryCommands).Debug(format, args...)
}

// Store logs to the store category
func Store(format string, args ...interface{}) { Get(CategoryStore).Info(format, args...) }

// StoreDebug logs debug to the store category
func StoreDebug(format string, args ...interface{}) { Get(CategoryStore).Debug(format, args...) }

// StoreError logs an error to the store category
func StoreError(format string, args ...interface{}) { Get(CategoryStore).Error(format, args...) }

// Wallet logs to the wallet category
func Wallet(format string, args ...interface{}) { Get(CategoryWallet).Info(format, args...) }

// WalletDebug logs debug to the wallet category
func WalletDebug(format string, args ...interface{}) { Get(CategoryWallet).Debug(format, args...) }

// AI logs to the ai category
func AI(format string, args ...interface{}) { Get(CategoryAI).Info(format, args...) }

// AIDebug logs debug to the ai category
func AIDebug(format string, args ...interface{}) { Get(CategoryAI).Debug(format, args...) }

// AIError logs an error to the ai category
func AIError(format string, args ...interface{}) { Get(CategoryAI).Error(format, args...) }

// ConfigInfo logs to the config category
func ConfigInfo(format string, args ...interface{}) { Get(CategoryConfig).Info(format, args...) }

// ConfigDebug logs debug to the config category
func ConfigDebug(format string, args ...interface{}) { Get(CategoryConfig).Debug(format, args...) }

// ConfigWarn logs a warning to the config category
func ConfigWarn(format string, args ...interface{}) { Get(CategoryConfig).Warn(format, args...) }

// Transport logs to the transport category
func Transport(format string, args ...interface{}) { Get(CategoryTransport).Info(format, args...) }

// TransportDebug logs debug to the transport category
func TransportDebug(format string, args ...interface{}) {
	Get(CategoryTransport).Debug(format, args...)
}

// TransportWarn logs a warning to the transport category
func TransportWarn(format string, args ...interface{}) {
	Get(CategoryTransport).Warn(format, args...)
}

// =============================================================================
// TIMING HELPERS - For performance logging
// =============================================================================

// Timer helps measure operation duration
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, op: operation, start: time.Now()}
}

// Stop ends the timer and logs the duration
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithThreshold logs warning if duration exceeds threshold
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s took %v (threshold: %v)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}
