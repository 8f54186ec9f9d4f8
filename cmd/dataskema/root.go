package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/reoring/dataskema"
	"github.com/reoring/dataskema/datasworn"
	"github.com/reoring/dataskema/i18n"
	"github.com/reoring/dataskema/internal/config"
	"github.com/reoring/dataskema/internal/logging"
	"github.com/reoring/dataskema/schema"
	"github.com/reoring/dataskema/schema/jtd"
)

// app carries state shared by every subcommand after PersistentPreRunE.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	cfg        config.Config
	schemaPath string
	logLevel   string
	logFormat  string
	patterns   string
	lang       string

	log   zerolog.Logger
	codec *dataskema.Codec
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr, log: zerolog.Nop()}
	cmd := &cobra.Command{
		Use:           "dataskema",
		Short:         "Decode, encode and validate Datasworn documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	f := cmd.PersistentFlags()
	f.StringVar(&a.schemaPath, "schema", "", "JTD schema file (JSON or YAML); default is the embedded Datasworn set")
	f.StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	f.StringVar(&a.logFormat, "log-format", "", "log format (console, json)")
	f.StringVar(&a.patterns, "patterns", "", "identifier pattern policy on decode (defer, enforce)")
	f.StringVar(&a.lang, "lang", "", "issue message language (en, ja)")

	cmd.AddCommand(newDecodeCmd(a), newValidateCmd(a), newTypesCmd(a), newJSONSchemaCmd(a))
	return cmd
}

// setup merges env and flags, then builds the logger and codec.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("schema") {
		cfg.Schema = a.schemaPath
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = a.logFormat
	}
	if flags.Changed("patterns") {
		cfg.Patterns = a.patterns
	}
	if flags.Changed("lang") {
		cfg.Lang = a.lang
	}
	if _, err := cfg.PatternPolicy(); err != nil {
		return err
	}
	a.cfg = cfg

	a.log, err = logging.New(a.stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	drv, err := cfg.Driver()
	if err != nil {
		return err
	}
	dataskema.SetJSONDriver(drv)
	i18n.SetLanguage(cfg.Lang)

	reg, err := a.registry()
	if err != nil {
		return err
	}
	a.codec, err = dataskema.NewCodec(reg)
	if err != nil {
		return err
	}
	a.log.Debug().
		Str("schema", schemaLabel(cfg.Schema)).
		Int("definitions", len(reg.Names())).
		Str("driver", drv.Name()).
		Msg("registry loaded")
	return nil
}

func (a *app) registry() (*schema.Registry, error) {
	if a.cfg.Schema == "" {
		return datasworn.Load()
	}
	data, err := os.ReadFile(a.cfg.Schema)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	reg, err := jtd.Load(data)
	if err != nil {
		return nil, fmt.Errorf("load schema %s: %w", a.cfg.Schema, err)
	}
	return reg, nil
}

func schemaLabel(path string) string {
	if path == "" {
		return "embedded"
	}
	return path
}

// readInput reads the named file, or stdin for "" and "-".
func (a *app) readInput(name string) ([]byte, error) {
	if name == "" || name == "-" {
		return io.ReadAll(a.stdin)
	}
	return os.ReadFile(name)
}

// source picks the token source from the file extension or --yaml.
func source(name string, data []byte, yaml bool) dataskema.Source {
	ext := strings.ToLower(filepath.Ext(name))
	if yaml || ext == ".yaml" || ext == ".yml" {
		return dataskema.YAMLBytes(data)
	}
	return dataskema.JSONBytes(data)
}

func (a *app) decodeOptions(strict, failFast bool) []dataskema.Option {
	policy, _ := a.cfg.PatternPolicy()
	opts := []dataskema.Option{
		dataskema.WithPatterns(policy),
		dataskema.WithStrictness(dataskema.Strictness{OnDuplicateKey: dataskema.Warn}),
		dataskema.WithWarnings(func(it dataskema.Issue) {
			a.log.Warn().Str("path", it.Path).Str("code", it.Code).Msg(it.Message)
		}),
	}
	if strict {
		opts = append(opts, dataskema.WithUnknownPolicy(dataskema.UnknownStrict))
	}
	if failFast {
		opts = append(opts, dataskema.FailFast())
	}
	return opts
}

// printIssues writes one line per issue and returns an error summarizing them.
func (a *app) printIssues(err error) error {
	iss, ok := dataskema.AsIssues(err)
	if !ok {
		return err
	}
	for _, it := range iss {
		line := fmt.Sprintf("%s\t%s\t%s", it.Path, it.Code, it.Message)
		if it.Hint != "" {
			line += " (" + it.Hint + ")"
		}
		fmt.Fprintln(a.stdout, line)
	}
	return fmt.Errorf("%d issue(s)", len(iss))
}
