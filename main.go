package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/alecthomas/kong"

	"github.com/mcncl/jsondelta/internal/config"
	"github.com/mcncl/jsondelta/internal/engine"
	"github.com/mcncl/jsondelta/internal/errors"
	"github.com/mcncl/jsondelta/internal/formatter"
	"github.com/mcncl/jsondelta/internal/logging"
	"github.com/mcncl/jsondelta/internal/models"
	"github.com/mcncl/jsondelta/internal/parser"
	"github.com/mcncl/jsondelta/internal/recordset"
	"github.com/mcncl/jsondelta/internal/scheduler"
)

// Version information
const (
	Version = "0.1.0"
)

// Exit codes
const (
	exitSame  = 0
	exitDiff  = 1
	exitError = 2
)

// CLI defines the command-line interface
type CLI struct {
	Left  string `arg:"" help:"Left JSON document. Use - for stdin."`
	Right string `arg:"" help:"Right JSON document. Use - for stdin."`

	Ignore     []string `help:"Field names dropped at any depth before comparing." short:"x" sep:","`
	Nested     []string `help:"Fields holding JSON text to compare as structure." short:"n" sep:","`
	UniqueKeys string   `help:"Align arrays by key, as path:key pairs separated by commas." short:"u" name:"unique-keys"`
	Config     string   `help:"Config file. Defaults to the nearest .jsondelta.yml, .yaml or .toml." short:"c" type:"path"`
	NFC        bool     `help:"Apply Unicode NFC normalization to strings." name:"nfc"`
	BatchSize  int      `help:"Records produced between pauses." name:"batch-size"`

	Format string `help:"Output format: text, json or yaml." short:"f"`
	Color  string `help:"Color text output: auto, always or never."`
	Stats  bool   `help:"Print a summary line on stderr."`

	Path     string   `help:"Only show differences at or below this path." short:"p"`
	KeyValue []string `help:"Only show records whose unique key at --path has one of these values." name:"key-value" sep:","`
	Search   string   `help:"Only show records whose path or values contain this text." short:"s"`

	Debug   bool             `help:"Enable debug logging." short:"d"`
	Version kong.VersionFlag `help:"Show version information." short:"v"`
}

func main() {
	var cli CLI
	parser := kong.Must(&cli,
		kong.Name("jsondelta"),
		kong.Description("Compare two JSON documents structurally"),
		kong.UsageOnError(),
		kong.Vars{"version": "jsondelta version " + Version},
	)

	if _, err := parser.Parse(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintf(os.Stderr, "\nFor help, run: jsondelta --help\n")
		os.Exit(exitError)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := execute(ctx, &cli, os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// execute runs a comparison and maps the outcome to an exit code.
func execute(ctx context.Context, cli *CLI, stdin io.Reader, stdout, stderr io.Writer) int {
	differs, err := run(ctx, cli, stdin, stdout, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "%s\n", errors.UserFriendlyError(err))
		return exitError
	}
	if differs {
		return exitDiff
	}
	return exitSame
}

// run executes the main program logic and reports whether any difference
// survived filtering.
func run(ctx context.Context, cli *CLI, stdin io.Reader, stdout, stderr io.Writer) (bool, error) {
	cfg, err := config.LoadConfigWithCLI(cli.Config, overrides(cli))
	if err != nil {
		return false, err
	}

	level := logging.LevelFromString(cfg.Logging.Level)
	if cli.Debug {
		level = slog.LevelDebug
	}
	logger := logging.NewLogger(stderr, level, cfg.Logging.Format)

	// 1. Read both documents
	req, err := readDocuments(cli.Left, cli.Right, stdin)
	if err != nil {
		return false, err
	}
	req.Ignore = cfg.Ignore
	req.Nested = cfg.Nested
	req.UniqueKeys = &cfg.UniqueKeys

	// 2. Compare
	pause, err := cfg.Pause()
	if err != nil {
		return false, err
	}
	eng := engine.New(engine.Config{
		Batch:      scheduler.Config{BatchSize: cfg.BatchSize, Pause: pause},
		UnicodeNFC: cfg.UnicodeNFC,
	}, logger)

	result, err := eng.Compare(ctx, req)
	if err != nil {
		return false, err
	}
	logger.Debug("comparison finished", "records", len(result.Records))

	// 3. Narrow the records
	records, err := narrow(result.Records, cli, cfg)
	if err != nil {
		return false, err
	}

	// 4. Output the result
	color := useColor(cfg.Output.Color, stdout)
	f, err := formatter.NewFormatter(cfg.Output.Format, color)
	if err != nil {
		return false, err
	}
	if err := f.Format(stdout, records); err != nil {
		return false, err
	}
	if cfg.Output.Stats {
		fmt.Fprintln(stderr, formatter.FormatStats(result.Stats, useColor(cfg.Output.Color, stderr)))
	}

	return len(records) > 0, nil
}

func overrides(cli *CLI) config.Overrides {
	o := config.Overrides{
		Ignore:     cli.Ignore,
		Nested:     cli.Nested,
		UniqueKeys: cli.UniqueKeys,
		BatchSize:  cli.BatchSize,
		Format:     cli.Format,
		Color:      cli.Color,
	}
	if cli.NFC {
		o.UnicodeNFC = &cli.NFC
	}
	if cli.Stats {
		o.Stats = &cli.Stats
	}
	if cli.Debug {
		o.LogLevel = "debug"
	}
	return o
}

// readDocuments loads both sides. At most one side may come from stdin.
func readDocuments(left, right string, stdin io.Reader) (engine.Request, error) {
	if left == parser.StdinPath && right == parser.StdinPath {
		return engine.Request{}, errors.NewInputError("only one document can be read from stdin", errors.ErrInvalidFilePath)
	}

	l, err := parser.Load(left, stdin)
	if err != nil {
		return engine.Request{}, err
	}
	r, err := parser.Load(right, stdin)
	if err != nil {
		return engine.Request{}, err
	}
	return engine.Request{Left: l, Right: r}, nil
}

// narrow applies the --path, --key-value and --search filters in that order.
func narrow(records []models.Record, cli *CLI, cfg *config.Config) ([]models.Record, error) {
	records = recordset.Filter(records, cli.Path)

	if len(cli.KeyValue) > 0 {
		scope, ok := recordset.KeyScope(&cfg.UniqueKeys, cli.Path)
		if !ok {
			return nil, errors.NewConfigError(
				fmt.Sprintf("--key-value needs a unique key covering path %q", cli.Path), nil)
		}
		records = recordset.WithKeyValues(records, scope, cli.KeyValue)
	}

	return recordset.Search(records, cli.Search), nil
}

// useColor resolves the color mode for w. auto colors terminals unless
// NO_COLOR is set.
func useColor(mode string, w io.Writer) bool {
	switch mode {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
