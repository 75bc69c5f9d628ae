package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/deployconf/internal/application"
	"github.com/eugenenazirov/deployconf/internal/chaincheck"
	"github.com/eugenenazirov/deployconf/internal/config"
	"github.com/eugenenazirov/deployconf/internal/logging"
	"github.com/eugenenazirov/deployconf/internal/render"
	"github.com/eugenenazirov/deployconf/internal/resolver"
)

var signalNotify = signal.Notify

var errCheckFailed = errors.New("configuration check failed")

func main() {
	if err := run(os.Args[1:], os.Stdout, resolver.FromOS()); err != nil {
		fmt.Fprintf(os.Stderr, "deployconf: %v\n", err)
		os.Exit(1)
	}
}

// run parses args, resolves the record from base plus any dotenv files and
// executes the selected command. base is the only environment read.
func run(args []string, stdout io.Writer, base resolver.Environment) error {
	kingpinApp := kingpin.New("deployconf", "Resolves Lisk Sepolia deployment settings for the contract toolkit")
	configFile := kingpinApp.Flag("config", "Path to YAML configuration file for the service settings").String()
	envFiles := kingpinApp.Flag("env-file", "Dotenv file to load; repeatable, process variables win").Default(".env").Strings()
	logLevel := kingpinApp.Flag("log-level", "Log level (debug, info, warn, error)").String()

	printCmd := kingpinApp.Command("print", "Print the resolved configuration").Default()
	format := printCmd.Flag("format", "Output format").Default(string(render.FormatHardhat)).Enum(render.FormatNames()...)
	reveal := printCmd.Flag("reveal", "Write private keys and API keys verbatim").Bool()
	output := printCmd.Flag("output", "Write to this file instead of stdout").Short('o').String()

	checkCmd := kingpinApp.Command("check", "Inspect the resolved configuration and optionally probe the RPC endpoint")
	live := checkCmd.Flag("live", "Query the RPC endpoint and compare its chain ID").Bool()
	probeTimeout := checkCmd.Flag("probe-timeout", "Timeout for the live probe").Duration()
	jsonOut := checkCmd.Flag("json", "Output in JSON format").Bool()

	serveCmd := kingpinApp.Command("serve", "Serve the resolved configuration over HTTP")
	port := serveCmd.Flag("port", "HTTP port exposed by the service").String()
	rateLimitRPSFlag := serveCmd.Flag("rate-limit-rps", "Requests per second allowed (set 0 to disable)").Default("-1").Float64()
	rateLimitBurstFlag := serveCmd.Flag("rate-limit-burst", "Burst capacity for rate limiter (set 0 to disable)").Default("-1").Int()

	command, err := kingpinApp.Parse(args)
	if err != nil {
		return err
	}

	env, loaded, err := resolver.LoadFiles(base, *envFiles...)
	if err != nil {
		return fmt.Errorf("load environment: %w", err)
	}

	overrides := &config.CLIOverrides{
		ConfigFile: *configFile,
	}
	if *logLevel != "" {
		overrides.LogLevel = logLevel
	}
	if *port != "" {
		overrides.Port = port
	}
	if *rateLimitRPSFlag >= 0 {
		overrides.RateLimitRPS = rateLimitRPSFlag
	}
	if *rateLimitBurstFlag >= 0 {
		overrides.RateLimitBurst = rateLimitBurstFlag
	}
	if *probeTimeout > 0 {
		overrides.ProbeTimeout = probeTimeout
	}

	cfg, err := config.Load(overrides, env.Lookup)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	rec := resolver.Resolve(env)
	logger.Debug("configuration resolved",
		zap.Strings("env_files", loaded),
		zap.String("network", rec.NetworkName),
		zap.String("rpc_url", rec.RPCURL),
		zap.Int("accounts", len(rec.AccountKeys)),
	)
	for _, key := range resolver.Unconsumed(env) {
		logger.Debug("environment variable set but unused", zap.String("key", key))
	}

	switch command {
	case printCmd.FullCommand():
		return printRecord(stdout, rec, render.Format(*format), *reveal, *output)
	case checkCmd.FullCommand():
		return check(context.Background(), stdout, rec, env, cfg, *live, *jsonOut)
	case serveCmd.FullCommand():
		return serve(stdout, application.New(cfg, rec, env, logger), cfg.ShutdownGracePeriod, logger)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func printRecord(stdout io.Writer, rec resolver.Record, format render.Format, reveal bool, output string) error {
	var buf bytes.Buffer
	if err := render.Render(&buf, rec, format, render.Options{Reveal: reveal}); err != nil {
		return err
	}

	if output == "" {
		_, err := stdout.Write(buf.Bytes())
		return err
	}
	if err := os.WriteFile(output, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}
	return nil
}

type checkResult struct {
	Findings []chaincheck.Finding `json:"findings"`
	Report   *chaincheck.Report   `json:"report,omitempty"`
	Error    string               `json:"error,omitempty"`
}

func check(ctx context.Context, stdout io.Writer, rec resolver.Record, env resolver.Environment, cfg config.Config, live, jsonOut bool) error {
	result := checkResult{Findings: chaincheck.Inspect(rec, env)}
	if result.Findings == nil {
		result.Findings = []chaincheck.Finding{}
	}

	var probeErr error
	if live {
		report, err := chaincheck.NewProber(cfg.ProbeTimeout).Probe(ctx, rec)
		if report.ReportedChainID != "" {
			result.Report = &report
		}
		if err != nil {
			probeErr = err
			result.Error = err.Error()
		}
	}

	if jsonOut {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	} else {
		printCheck(stdout, result)
	}

	switch {
	case probeErr != nil:
		return fmt.Errorf("%w: %w", errCheckFailed, probeErr)
	case chaincheck.HasErrors(result.Findings):
		return errCheckFailed
	}
	return nil
}

func printCheck(stdout io.Writer, result checkResult) {
	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SEVERITY\tFIELD\tMESSAGE")
	for _, f := range result.Findings {
		fmt.Fprintf(w, "%s\t%s\t%s\n", f.Severity, f.Field, f.Message)
	}
	_ = w.Flush()

	if r := result.Report; r != nil {
		fmt.Fprintf(stdout, "\nrpc:        %s\n", r.RPCURL)
		fmt.Fprintf(stdout, "chain id:   %s (expected %d)\n", r.ReportedChainID, r.ExpectedChainID)
		fmt.Fprintf(stdout, "block:      %d\n", r.LatestBlock)
		fmt.Fprintf(stdout, "latency:    %dms\n", r.LatencyMs)
		for _, a := range r.Accounts {
			if a.Error != "" {
				fmt.Fprintf(stdout, "account:    %s\n", a.Error)
				continue
			}
			fmt.Fprintf(stdout, "account:    %s balance %s wei\n", a.Address, a.BalanceWei)
		}
	}
	if result.Error != "" {
		fmt.Fprintf(stdout, "error:      %s\n", result.Error)
	}
}

// serve runs app until SIGINT or SIGTERM arrives, then drains in-flight
// requests for at most grace.
func serve(stdout io.Writer, app *application.App, grace time.Duration, logger *zap.Logger) error {
	if err := app.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	fmt.Fprintf(stdout, "serving %s configuration on http://%s\n", app.Record().NetworkName, app.Addr())

	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	sig := <-quit
	logger.Info("shutting down server", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	return app.Shutdown(ctx)
}
