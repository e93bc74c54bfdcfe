// Package main provides a command-line tool that lists the devices and
// clients of a Meraki organization's networks, attributes each one to its
// site and exports the result as a console table and optional CSV file.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"Get-Meraki-Devices/pkg/filters"
	"Get-Meraki-Devices/pkg/inventory"
	"Get-Meraki-Devices/pkg/logger"
	"Get-Meraki-Devices/pkg/meraki"
	"Get-Meraki-Devices/pkg/output"
	"Get-Meraki-Devices/pkg/sites"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

// Config holds all configuration options from environment variables and command-line flags.
type Config struct {
	APIKey     string        // Meraki Dashboard API key
	OrgID      string        // Organization whose networks are listed
	BaseURL    string        // Meraki API base URL
	MaxRetries int           // 429 retries per request
	LogFile    string        // Path to log file
	LogLevel   string        // Log level: DEBUG, INFO, WARNING, ERROR
	Timeout    time.Duration // Whole-run timeout, 0 for none
	CSVPath    string        // CSV output path, empty for none
	YAMLPath   string        // Full-record YAML output path, empty for none
	NoTable    bool          // Skip the console table
	Options    inventory.Options
	Help       bool
	Version    bool
}

// Version information injected at build time via ldflags.
// Build with: go build -ldflags "-X main.Version=1.0.0 -X main.Commit=<git-sha> -X main.BuildTime=<timestamp>"
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = "go1.23"
)

const programName = "Get-Meraki-Devices"

func main() {
	_ = godotenv.Load()

	cfg, err := parseConfig(os.Args[1:], os.Getenv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n\n", err)
		printUsage(os.Stderr)
		os.Exit(2)
	}

	if cfg.Help {
		printUsage(os.Stdout)
		return
	}
	if cfg.Version {
		printVersion(os.Stdout)
		return
	}

	log := logger.New(cfg.LogFile, logger.ParseLogLevel(cfg.LogLevel))

	if cfg.APIKey == "" {
		exitWithError(log, "MERAKI_API_KEY is required in .env or environment")
	}
	if cfg.OrgID == "" {
		exitWithError(log, "organization id is required: set MERAKI_ORG_ID or pass --org-id")
	}

	ctx := context.Background()
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	client := meraki.NewClient(cfg.APIKey, cfg.BaseURL, cfg.MaxRetries)
	if err := run(ctx, cfg, client, os.Stdin, os.Stdout, log); err != nil {
		exitWithError(log, err.Error())
	}
}

// parseConfig reads flags from args and fills the rest from the environment.
func parseConfig(args []string, getenv func(string) string) (Config, error) {
	var cfg Config
	var serials, productTypes string

	fs := pflag.NewFlagSet(programName, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.IntVar(&cfg.Options.Network, "network", 0, "Select the network by number from the listing")
	fs.StringVar(&serials, "serials", "", "Comma-separated list of device serials to look up")
	fs.BoolVar(&cfg.Options.All, "all", false, "Extract all devices in the selected network")
	fs.BoolVar(&cfg.Options.Clients, "clients", false, "Extract all clients of the selected network")
	fs.StringVar(&productTypes, "product-type", "", "Only keep devices of these product types (switch,wireless,appliance,...)")
	fs.StringVar(&cfg.CSVPath, "csv", "", "Write the results to this CSV file")
	fs.StringVar(&cfg.YAMLPath, "yaml", "", "Write every field of every record to this YAML file")
	fs.BoolVar(&cfg.NoTable, "no-table", false, "Do not print the console table")
	fs.StringVar(&cfg.OrgID, "org-id", "", "Organization id (default from MERAKI_ORG_ID)")
	fs.DurationVar(&cfg.Timeout, "timeout", 0, "Abort the run after this long (e.g. 2m); 0 waits forever")
	logFile := fs.String("log-file", "", "Log file path")
	logLevel := fs.String("log-level", "", "Log level: DEBUG, INFO, WARNING, ERROR")
	fs.BoolVarP(&cfg.Help, "help", "h", false, "Show help")
	fs.BoolVar(&cfg.Version, "version", false, "Show version and exit")

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	if fs.NArg() > 0 {
		return cfg, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	cfg.Options.Serials = inventory.ParseSerials(serials)
	cfg.Options.ProductTypes = filters.ParseTypes(productTypes)
	cfg.APIKey = strings.TrimSpace(getenv("MERAKI_API_KEY"))
	cfg.OrgID = strings.TrimSpace(firstNonEmpty(cfg.OrgID, getenv("MERAKI_ORG_ID"), getenv("ORG_ID"), getenv("ORD_ID")))
	cfg.BaseURL = strings.TrimSpace(firstNonEmpty(getenv("MERAKI_BASE_URL"), meraki.DefaultBaseURL))
	cfg.LogFile = strings.TrimSpace(firstNonEmpty(*logFile, getenv("LOG_FILE"), programName+".log"))
	cfg.LogLevel = strings.TrimSpace(firstNonEmpty(*logLevel, getenv("LOG_LEVEL"), "INFO"))

	if v := strings.TrimSpace(getenv("MERAKI_MAX_RETRIES")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("MERAKI_MAX_RETRIES must be a number: %w", err)
		}
		cfg.MaxRetries = n
	}
	return cfg, nil
}

// run lists the directory, collects the records and writes every requested output.
func run(ctx context.Context, cfg Config, api inventory.API, in io.Reader, out io.Writer, log *logger.Logger) error {
	dir, err := sites.Build(ctx, api, cfg.OrgID)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Networks in organization %s:\n", cfg.OrgID)
	dir.Print(out)

	runner := inventory.NewRunner(api, dir, log.Named("inventory"))
	res, err := runner.Run(ctx, cfg.Options, inventory.PromptNetwork(in, out))
	if err != nil {
		return err
	}
	log.Infof("Collected %d %s (%d fetches skipped)", len(res.Records), res.Mode, res.Skipped)

	if !cfg.NoTable {
		output.WriteTable(out, res.Records, res.Projection, res.Fallback)
	}
	if err := output.PersistCSV(cfg.CSVPath, res.Records, res.Projection, res.Fallback); err != nil {
		return err
	}
	if cfg.CSVPath != "" {
		fmt.Fprintf(out, "Details written to: %s\n", cfg.CSVPath)
	}
	if err := output.PersistYAML(cfg.YAMLPath, res.Records); err != nil {
		return err
	}
	if cfg.YAMLPath != "" {
		fmt.Fprintf(out, "Full records written to: %s\n", cfg.YAMLPath)
	}
	return nil
}

// firstNonEmpty returns the first non-empty string from the provided values.
// Returns empty string if all values are empty or contain only whitespace.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// exitWithError logs an error message and exits the program with status code 1.
// If log is nil, the error is written to stderr instead.
func exitWithError(log *logger.Logger, msg string) {
	if log != nil {
		log.Errorf("%s", msg)
	} else {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", msg)
	}
	os.Exit(1)
}

// printUsage writes help text including flags, environment variables and examples.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, programName+" - Meraki device and client export")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  "+programName+" [--network N] [--serials S1,S2] [--all | --clients] [--csv file.csv]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  --network <n>               Network number from the listing (prompted when needed)")
	fmt.Fprintln(w, "  --serials <s1,s2,...>       Look up these device serials")
	fmt.Fprintln(w, "  --all                       Extract all devices in the selected network")
	fmt.Fprintln(w, "  --clients                   Extract all clients of the selected network")
	fmt.Fprintln(w, "  --product-type <t1,t2>      Only keep devices of these product types")
	fmt.Fprintln(w, "  --csv <path>                Write the results to a CSV file")
	fmt.Fprintln(w, "  --yaml <path>               Write every field of every record to a YAML file")
	fmt.Fprintln(w, "  --no-table                  Do not print the console table")
	fmt.Fprintln(w, "  --org-id <id>               Organization id (default from .env)")
	fmt.Fprintln(w, "  --timeout <duration>        Abort the run after this long, e.g. 2m")
	fmt.Fprintln(w, "  --log-file <filename>       Log file path (default from .env)")
	fmt.Fprintln(w, "  --log-level <DEBUG|INFO|WARNING|ERROR>  Log level (default from .env)")
	fmt.Fprintln(w, "  --version                   Show version and exit")
	fmt.Fprintln(w, "  --help                      Show this help")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  MERAKI_API_KEY       Meraki Dashboard API key (required)")
	fmt.Fprintln(w, "  MERAKI_ORG_ID        Organization id (ORG_ID and ORD_ID are also read)")
	fmt.Fprintln(w, "  MERAKI_BASE_URL      API base URL (default "+meraki.DefaultBaseURL+")")
	fmt.Fprintln(w, "  MERAKI_MAX_RETRIES   Retries on HTTP 429 (default 6)")
	fmt.Fprintln(w, "  LOG_FILE             Log file path (default "+programName+".log)")
	fmt.Fprintln(w, "  LOG_LEVEL            DEBUG | INFO | WARNING | ERROR (default INFO)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Examples:")
	fmt.Fprintln(w, "  "+programName+" --network 3 --all --csv devices.csv")
	fmt.Fprintln(w, "  "+programName+" --network 3 --clients --csv clients.csv")
	fmt.Fprintln(w, "  "+programName+" --serials Q2XX-AAAA-BBBB,Q2XX-CCCC-DDDD")
	fmt.Fprintln(w, "  "+programName+" --network 2 --product-type switch")
}

// printVersion writes version and build information.
func printVersion(w io.Writer) {
	fmt.Fprintf(w, "%s version %s\n", programName, Version)
	fmt.Fprintf(w, "  Commit:     %s\n", Commit)
	fmt.Fprintf(w, "  Build Time: %s\n", BuildTime)
	fmt.Fprintf(w, "  Go Version: %s\n", GoVersion)
}
