// Package main provides the weave CLI entrypoint.
package main

import (
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/corrinfell/weave/src/config"
	"github.com/corrinfell/weave/src/result"
	"github.com/corrinfell/weave/src/session"
)

// cliFlags holds parsed command-line flags.
type cliFlags struct {
	concurrency int
	rateLimit   float64
	retries     int
	retryDelay  time.Duration
	userAgent   string
	depth       int
	outputJSON  bool
	outputCSV   bool
	outputFile  string
	pollEvery   time.Duration
}

// parseFlags parses command-line flags and returns the parsed values.
func parseFlags() *cliFlags {
	opts := &cliFlags{}
	flag.IntVar(&opts.concurrency, "concurrency", 10, "number of concurrent workers")
	flag.Float64Var(&opts.rateLimit, "rate-limit", 5, "requests per second per domain")
	flag.IntVar(&opts.retries, "retries", 3, "number of retries for transient errors")
	flag.DurationVar(&opts.retryDelay, "retry-delay", time.Second, "base delay between retries")
	flag.StringVar(&opts.userAgent, "user-agent", "weave/1.0 (+https://github.com/corrinfell/weave)", "user agent string")

	// Depth control
	flag.IntVar(&opts.depth, "d", 3, "maximum crawl depth")
	flag.IntVar(&opts.depth, "depth", 3, "maximum crawl depth")

	// Output format
	flag.BoolVar(&opts.outputJSON, "j", false, "output results as JSON")
	flag.BoolVar(&opts.outputJSON, "json", false, "output results as JSON")
	flag.BoolVar(&opts.outputCSV, "c", false, "output results as CSV")
	flag.BoolVar(&opts.outputCSV, "csv", false, "output results as CSV")
	flag.StringVar(&opts.outputFile, "o", "", "write JSON/CSV output to file")
	flag.StringVar(&opts.outputFile, "output", "", "write JSON/CSV output to file")

	flag.DurationVar(&opts.pollEvery, "poll-interval", 250*time.Millisecond, "status poll interval")

	flag.Parse()
	return opts
}

// validateFlags validates flag combinations and returns an error if invalid.
func validateFlags(opts *cliFlags) error {
	if opts.outputJSON && opts.outputCSV {
		return fmt.Errorf("--json and --csv are mutually exclusive")
	}
	return nil
}

// buildPolicyConfig creates a config.PolicyConfig from flags and the seed URL.
func buildPolicyConfig(opts *cliFlags, rawURL string) config.PolicyConfig {
	cfg := config.Default(rawURL)
	cfg.MaxConcurrentRequests = opts.concurrency
	cfg.MaxCrawlDepth = opts.depth
	cfg.UserAgent = opts.userAgent
	cfg.DefaultRateLimit = config.RateLimit{MaxRequestsPerSecond: opts.rateLimit, WindowMS: 1000}
	cfg.Retry.MaxRetries = opts.retries
	cfg.Retry.BaseDelay = opts.retryDelay
	return cfg
}

// runToCompletion starts a session and blocks until it reaches a terminal
// phase, polling Status at the configured interval.
func runToCompletion(mgr *session.Manager, cfg config.PolicyConfig, pollEvery time.Duration) (string, session.Status, error) {
	id, err := mgr.Start(cfg)
	if err != nil {
		return "", session.Status{}, fmt.Errorf("start session: %w", err)
	}

	for {
		st, err := mgr.Status(id)
		if err != nil {
			return id, session.Status{}, fmt.Errorf("status: %w", err)
		}
		if st.Phase == session.PhaseCompleted || st.Phase == session.PhaseFailed {
			return id, st, nil
		}
		time.Sleep(pollEvery)
	}
}

// writeStructuredOutput writes JSON/CSV output for a completed session's
// page records to stdout or the configured output file.
func writeStructuredOutput(opts *cliFlags, st session.Status) error {
	rows := result.RowsFromRecords(st.LatestResults)

	var writer io.Writer = os.Stdout
	if opts.outputFile != "" {
		outFile, err := os.Create(opts.outputFile)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer func() {
			if cerr := outFile.Close(); cerr != nil {
				fmt.Fprintf(os.Stderr, "Error closing output file: %v\n", cerr)
			}
		}()
		writer = outFile
	}

	// Default to JSON if -o specified without format.
	useJSON := opts.outputJSON || (!opts.outputCSV && opts.outputFile != "")
	if useJSON {
		return result.WriteJSON(writer, rows)
	}
	return result.WriteCSV(writer, rows)
}

func main() {
	opts := parseFlags()

	if err := validateFlags(opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: weave [flags] <url>")
		fmt.Fprintln(os.Stderr, "Flags:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	rawURL := flag.Arg(0)
	parsedURL, err := url.Parse(rawURL)
	if err != nil || (parsedURL.Scheme != "http" && parsedURL.Scheme != "https") {
		fmt.Fprintf(os.Stderr, "Invalid URL: %s\nURL must start with http:// or https://\n", rawURL)
		os.Exit(1)
	}

	log, _ := zap.NewProduction()
	defer log.Sync() //nolint:errcheck

	cfg := buildPolicyConfig(opts, rawURL)

	mgr := session.NewManager(nil, log)
	id, st, err := runToCompletion(mgr, cfg, opts.pollEvery)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer mgr.Forget(id) //nolint:errcheck

	result.PrintSummary(os.Stdout, id, st)

	if opts.outputJSON || opts.outputCSV || opts.outputFile != "" {
		if err := writeStructuredOutput(opts, st); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	if st.Phase == session.PhaseFailed || st.Counters.Failed > 0 {
		os.Exit(1)
	}
}
