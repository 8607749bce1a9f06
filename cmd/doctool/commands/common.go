package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/doctool/internal/config"
	"git.home.luguber.info/inful/doctool/internal/frontend"
	"git.home.luguber.info/inful/doctool/internal/frontend/clang"
	"git.home.luguber.info/inful/doctool/internal/logfields"
	"git.home.luguber.info/inful/doctool/internal/metrics"
	"git.home.luguber.info/inful/doctool/internal/parsecache"
	"git.home.luguber.info/inful/doctool/internal/report"
)

// LogLevelEnv overrides the log level when -v is not given.
const LogLevelEnv = "DOCTOOL_LOG_LEVEL"

// Global carries state shared by all subcommands.
type Global struct {
	Logger *slog.Logger
	// Out receives the human-readable command output.
	Out io.Writer
	// FrontEnd replaces the clang front end when set.
	FrontEnd frontend.FrontEnd
}

// CLI definition & global flags.
type CLI struct {
	Config      string           `short:"c" help:"Configuration file path (.yaml or .plist)" default:"doctool.yaml"`
	Verbose     bool             `short:"v" help:"Enable verbose logging"`
	MetricsFile string           `name:"metrics-file" help:"Write Prometheus metrics in text format to this file when the command ends"`
	Version     kong.VersionFlag `name:"version" help:"Show version and exit"`

	Generate GenerateCmd `cmd:"" help:"Generate HTML and docset output from the configured sources"`
	Init     InitCmd     `cmd:"" help:"Write an example configuration file"`
	Watch    WatchCmd    `cmd:"" help:"Regenerate whenever sources or the configuration change"`
	Verify   VerifyCmd   `cmd:"" help:"Check internal links of generated output"`
	Cache    CacheCmd    `cmd:"" help:"Inspect or clear the parse cache"`

	recorder *metrics.PrometheusRecorder
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply(g *Global) error {
	if g.Logger == nil {
		g.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: ParseLogLevel(c.Verbose)}))
	}
	slog.SetDefault(g.Logger)
	if g.Out == nil {
		g.Out = os.Stdout
	}
	return nil
}

// ParseLogLevel returns debug for -v, otherwise the level named in DOCTOOL_LOG_LEVEL, otherwise info.
func ParseLogLevel(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	switch strings.ToLower(strings.TrimSpace(os.Getenv(LogLevelEnv))) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Recorder returns the metrics recorder for this invocation: a Prometheus recorder when
// metrics are exported, a no-op otherwise.
func (c *CLI) Recorder(export bool) metrics.Recorder {
	if c.recorder == nil && !export && c.MetricsFile == "" {
		return metrics.NoopRecorder{}
	}
	if c.recorder == nil {
		c.recorder = metrics.NewPrometheusRecorder(nil)
	}
	return c.recorder
}

// FlushMetrics writes the metrics text file when --metrics-file was given.
func (c *CLI) FlushMetrics(logger *slog.Logger) {
	if c.MetricsFile == "" || c.recorder == nil {
		return
	}
	if err := c.recorder.WriteTextfile(c.MetricsFile); err != nil {
		logger.Warn("Cannot write metrics file", logfields.Path(c.MetricsFile), logfields.Error(err))
	}
}

// frontEnd returns the injected front end or clang at the configured path.
func (g *Global) frontEnd(cfg *config.Configuration) frontend.FrontEnd {
	if g.FrontEnd != nil {
		return g.FrontEnd
	}
	return clang.New(cfg.ClangPath, g.Logger)
}

// openCache opens the configured parse cache. A cache that cannot be opened is not fatal:
// the run continues with an in-memory cache and the returned issue goes on the report.
func openCache(cfg *config.Configuration, disabled bool, logger *slog.Logger) (*parsecache.Cache, []report.Issue) {
	backend := cfg.CacheBackend
	if disabled {
		backend = parsecache.BackendNone
	}
	cache, err := parsecache.Open(backend, cfg.CachePath, logger)
	if err == nil {
		return cache, nil
	}
	logger.Warn("Parse cache unavailable, continuing without persistence", logfields.Error(err))
	cache, merr := parsecache.New(nil, 0, logger)
	if merr != nil {
		return nil, nil
	}
	return cache, []report.Issue{{
		Code:     report.IssueCacheUnavailable,
		Stage:    report.StageParse,
		Severity: report.SeverityWarning,
		Subject:  cfg.CachePath,
		Message:  err.Error(),
	}}
}

// ExitError ends the process with Code without further error output.
type ExitError struct {
	Code int
	Msg  string
}

func (e *ExitError) Error() string { return e.Msg }

func printReport(w io.Writer, rep *report.Report) {
	if rep == nil {
		return
	}
	_, _ = fmt.Fprintln(w, rep.Summary())
	if details := rep.Details(); details != "" {
		_, _ = fmt.Fprint(w, details)
	}
}

// strictResult turns a run with recorded issues into exit status 3.
func strictResult(strict bool, rep *report.Report) error {
	if !strict || rep == nil || !rep.HasFailures() {
		return nil
	}
	return &ExitError{Code: 3, Msg: fmt.Sprintf("strict mode: run finished with outcome %s", rep.Outcome)}
}
