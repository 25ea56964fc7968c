package main

import (
	"fmt"
	"io"
	"os"

	"github.com/danmuck/exireq/internal/config"
	"github.com/danmuck/exireq/internal/extract"
	"github.com/danmuck/exireq/internal/logging"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// usageError marks bad invocations (exit 2) as opposed to failed runs.
type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

type flags struct {
	configPath      string
	inputPath       string
	clampPolicy     string
	v2gtp           bool
	logLevel        string
	metricsTextfile string
}

type app struct {
	stdin  io.Reader
	stdout io.Writer
	logger zerolog.Logger
	flags  flags
}

func newRootCmd(stdin io.Reader, stdout io.Writer, logger zerolog.Logger) *cobra.Command {
	a := &app{stdin: stdin, stdout: stdout, logger: logger}

	root := &cobra.Command{
		Use:   "exireq",
		Short: "Encode CertificateInstallationReq XML into a base64 wire record",
		Long: `exireq reads a V2G_Message carrying a CertificateInstallationReq,
validates every field against the fixed record layout, encodes the record,
and prints it as one base64 line. Diagnostics go to stderr.

Without a subcommand it behaves like "exireq encode".`,
		Args:          noArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          a.runEncode,
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err: err}
	})

	pf := root.PersistentFlags()
	pf.StringVarP(&a.flags.configPath, "config", "c", "", "config file (.toml, .yaml, .yml)")
	pf.StringVarP(&a.flags.inputPath, "input", "i", "", "read from this file instead of stdin")
	pf.BoolVar(&a.flags.v2gtp, "v2gtp", false, "prefix the encoded record with a V2GTP header")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "trace|debug|info|warn|error|off")

	encodeFlags := func(cmd *cobra.Command) {
		cmd.Flags().StringVar(&a.flags.clampPolicy, "clamp-policy", "", "clamp|reject oversized lists")
		cmd.Flags().StringVar(&a.flags.metricsTextfile, "metrics-textfile", "", "write run metrics to this file")
	}
	encodeFlags(root)

	encode := &cobra.Command{
		Use:   "encode",
		Short: "Encode request XML into one base64 line",
		Args:  noArgs,
		RunE:  a.runEncode,
	}
	encodeFlags(encode)

	decode := &cobra.Command{
		Use:   "decode",
		Short: "Decode a base64 line back into a YAML record dump",
		Args:  noArgs,
		RunE:  a.runDecode,
	}

	root.AddCommand(encode, decode)
	return root
}

func noArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.NoArgs(cmd, args); err != nil {
		return usageError{err: err}
	}
	return nil
}

// resolve builds the run configuration: defaults, then the config file, then
// flags that were set explicitly.
func (a *app) resolve(cmd *cobra.Command) (config.Config, error) {
	if a.flags.logLevel != "" {
		lvl, ok := logging.ParseLevel(a.flags.logLevel)
		if !ok {
			return config.Config{}, usageError{err: fmt.Errorf("unknown log level %q", a.flags.logLevel)}
		}
		logging.SetLevel(a.flags.logLevel)
		a.logger = a.logger.Level(lvl)
	}

	cfg := config.Default()
	if a.flags.configPath != "" {
		loaded, err := config.Load(a.flags.configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	if cmd.Flags().Changed("clamp-policy") {
		policy, err := extract.ParsePolicy(a.flags.clampPolicy)
		if err != nil {
			return config.Config{}, usageError{err: err}
		}
		cfg.ClampPolicy = policy
	}
	if cmd.Flags().Changed("v2gtp") {
		cfg.Output.V2GTP = a.flags.v2gtp
	}
	if cmd.Flags().Changed("metrics-textfile") {
		cfg.Metrics.Textfile = a.flags.metricsTextfile
	}
	return cfg, nil
}

// openInput returns the input stream and its closer.
func (a *app) openInput() (io.Reader, func(), error) {
	if a.flags.inputPath == "" || a.flags.inputPath == "-" {
		return a.stdin, func() {}, nil
	}
	f, err := os.Open(a.flags.inputPath)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}
