package cyaml

import (
	"log/slog"
	"unsafe"
)

// ConfigFlag is a bitset of caller-selectable behaviors (spec §6.1).
type ConfigFlag uint8

const (
	// IgnoreUnknownKeys consumes and discards unrecognised mapping keys
	// instead of failing with InvalidKey.
	IgnoreUnknownKeys ConfigFlag = 1 << iota
	// CaseInsensitive compares mapping keys and enum/flag names case
	// insensitively unless a schema node overrides it.
	CaseInsensitive
	// NoAlias rejects any YAML alias event immediately.
	NoAlias
	// IgnoredKeyWarning logs a warning (instead of staying silent) whenever
	// IgnoreUnknownKeys causes a key to be skipped.
	IgnoredKeyWarning
	// Extended is accepted in Flags, but neither the drivers nor
	// Schema.Validate consult it: setting it changes no behavior.
	Extended
)

func (f ConfigFlag) has(bit ConfigFlag) bool { return f&bit != 0 }

// LogLevel mirrors the five levels of spec.md §6.1.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelNotice
	LevelWarning
	LevelError
)

// slogLevel maps a cyaml LogLevel onto an slog.Level. slog has no built-in
// Notice level, so it is placed two steps above Info, matching syslog's
// ordering of notice between info and warning.
func (l LogLevel) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelNotice:
		return slog.LevelInfo + 2
	case LevelWarning:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// Validator is called after a scalar, mapping, bitfield or sequence value
// has been written into dst, letting the caller reject values the schema's
// static constraints (min/max, length, enum membership) can't express.
// For save it is called before the value is read back out for emission.
type Validator func(ctx any, schema *Schema, dst unsafe.Pointer) error

// Config carries the options every driver (Load, Save, Copy, Free) shares.
type Config struct {
	// Logger receives structured records for warnings and the error
	// backtrace (§4.4.4, §7). A nil Logger disables logging entirely.
	Logger *slog.Logger
	// LogLevel is the minimum level that reaches Logger.
	LogLevel LogLevel
	// Flags selects the behaviors in ConfigFlag.
	Flags ConfigFlag
	// ValidationCtx is passed back to every Validator callback untouched.
	ValidationCtx any
}

// Option configures a Config via functional options, the style the wider
// pack's CLI-fronted libraries (e.g. MacroPower-x's log package) use for
// their construction helpers.
type Option func(*Config)

// NewConfig builds a Config from Options, defaulting to no logger, no flags,
// and LevelWarning as the threshold were a logger later attached.
func NewConfig(opts ...Option) *Config {
	cfg := &Config{LogLevel: LevelWarning}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func WithLogger(logger *slog.Logger, level LogLevel) Option {
	return func(c *Config) {
		c.Logger = logger
		c.LogLevel = level
	}
}

func WithFlags(flags ConfigFlag) Option {
	return func(c *Config) { c.Flags = flags }
}

func WithValidationContext(ctx any) Option {
	return func(c *Config) { c.ValidationCtx = ctx }
}

func (c *Config) log(level LogLevel, msg string, args ...any) {
	if c == nil || c.Logger == nil || level < c.LogLevel {
		return
	}
	c.Logger.Log(nil, level.slogLevel(), msg, args...)
}

func (c *Config) logBacktrace(level LogLevel, backtrace []Frame) {
	if c == nil || c.Logger == nil || level < c.LogLevel {
		return
	}
	for i := len(backtrace) - 1; i >= 0; i-- {
		f := backtrace[i]
		c.Logger.Log(nil, level.slogLevel(), "cyaml traversal frame",
			"kind", f.Kind,
			"field", f.Field,
			"index", f.Index,
			"line", f.Line,
			"column", f.Column,
		)
	}
}
