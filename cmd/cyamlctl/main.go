// Package main provides cyamlctl, a command line tool that loads a YAML
// document against the bundled ServerConfig demonstration schema, validates
// it, and re-emits it — defaulted and normalised — as YAML.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/tlsa/go-cyaml"
	"github.com/tlsa/go-cyaml/examples"
)

type flags struct {
	logLevel  string
	logFormat string
	output    string
	strict    bool
}

func (f *flags) registerFlags(fs *pflag.FlagSet) {
	fs.StringVar(&f.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	fs.StringVar(&f.logFormat, "log-format", "text", "log format: text, json")
	fs.StringVarP(&f.output, "output", "o", "-", "output path, or - for stdout")
	fs.BoolVar(&f.strict, "strict", false, "reject unrecognised mapping keys instead of ignoring them")
}

func (f *flags) level() (cyaml.LogLevel, error) {
	switch f.logLevel {
	case "debug":
		return cyaml.LevelDebug, nil
	case "info":
		return cyaml.LevelInfo, nil
	case "warn", "warning":
		return cyaml.LevelWarning, nil
	case "error":
		return cyaml.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", f.logLevel)
}

// slogLevel mirrors Config's own level mapping (config.go keeps it
// unexported since only the engine's logging path needs it); cyamlctl needs
// its own copy to size an slog.HandlerOptions before a Config exists.
func slogLevel(l cyaml.LogLevel) slog.Level {
	switch l {
	case cyaml.LevelDebug:
		return slog.LevelDebug
	case cyaml.LevelInfo:
		return slog.LevelInfo
	case cyaml.LevelWarning:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

func (f *flags) handler(w io.Writer, lvl cyaml.LogLevel) slog.Handler {
	opts := &slog.HandlerOptions{AddSource: true, Level: slogLevel(lvl)}
	if f.logFormat == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

func main() {
	f := &flags{}

	rootCmd := &cobra.Command{
		Use:   "cyamlctl [flags] <file.yaml|->",
		Short: "Load and re-emit a YAML document against the bundled ServerConfig schema",
		Long: `cyamlctl loads a YAML document (from a file argument, or stdin when
omitted or given as "-"), validates it against the bundled ServerConfig
demonstration schema covering every binder schema kind, and re-emits it —
with defaults applied and unknown keys handled per --strict — as YAML.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(_ *cobra.Command, args []string) error {
			return run(f, args)
		},
	}
	f.registerFlags(rootCmd.Flags())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "cyamlctl: %v\n", err)
		os.Exit(1)
	}
}

func run(f *flags, args []string) error {
	lvl, err := f.level()
	if err != nil {
		return err
	}
	logger := slog.New(f.handler(os.Stderr, lvl))

	path := "-"
	if len(args) > 0 {
		path = args[0]
	}

	var data []byte
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	cfgFlags := cyaml.ConfigFlag(0)
	if !f.strict {
		cfgFlags |= cyaml.IgnoreUnknownKeys | cyaml.IgnoredKeyWarning
	}

	binder := cyaml.NewBinder[examples.ServerConfig](examples.Schema(),
		cyaml.WithLogger(logger, lvl),
		cyaml.WithFlags(cfgFlags),
	)

	cfg, err := binder.Load(data, nil)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}

	out, err := binder.Save(cfg, nil)
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}

	if f.output == "" || f.output == "-" {
		_, err = os.Stdout.Write(out)
	} else {
		err = os.WriteFile(f.output, out, 0o644)
	}
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	if err := binder.Free(cfg, nil); err != nil {
		logger.Warn("free failed", "err", err)
	}
	return nil
}
