// Package main is the entry point for the SES forwarder.
//
// By default it runs as an AWS Lambda handler for SES receipt events. With
// -dry-run it instead reads a raw message from stdin, resolves the
// recipients given as arguments, and prints the rewritten copy without
// sending anything.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/mailwheel/ses-forwarder/internal/config"
	"github.com/mailwheel/ses-forwarder/internal/forward"
	"github.com/mailwheel/ses-forwarder/internal/rules"
	"github.com/mailwheel/ses-forwarder/internal/store"
	sestransmit "github.com/mailwheel/ses-forwarder/internal/transmit/ses"
	"github.com/mailwheel/ses-forwarder/internal/transmit/stdout"
)

func main() {
	configPath := flag.String("config", "", "path to YAML configuration file (optional)")
	dryRun := flag.Bool("dry-run", false, "read a raw message from stdin and print the rewritten copy instead of sending")
	flag.Parse()

	// Load configuration
	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging
	setupLogger(cfg.Logging.Level)

	// Build the rule table once; it is immutable afterwards.
	table, err := cfg.Validate()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	if *dryRun {
		if err := runDryRun(cfg, table, flag.Args()); err != nil {
			slog.Error("dry run failed", "error", err)
			os.Exit(1)
		}
		return
	}

	ctx := context.Background()

	if !cfg.S3Configured() {
		slog.Error("S3_BUCKET and S3_REGION (or AWS_REGION) are required")
		os.Exit(1)
	}

	st, err := store.NewS3(ctx, store.S3Options{
		Region:        cfg.S3.Region,
		Bucket:        cfg.S3.Bucket,
		KeyPrefix:     cfg.S3.KeyPrefix,
		ArchivePrefix: cfg.S3.ArchivePrefix,
	})
	if err != nil {
		slog.Error("failed to create S3 store", "error", err)
		os.Exit(1)
	}

	tx, err := sestransmit.New(ctx, sestransmit.Options{
		Region:          cfg.SES.Region,
		AccessKeyID:     cfg.SES.AccessKeyID,
		SecretAccessKey: cfg.SES.SecretAccessKey,
	})
	if err != nil {
		slog.Error("failed to create SES transmitter", "error", err)
		os.Exit(1)
	}

	fwd := forward.New(forwardOptions(cfg), table, st, tx, slog.Default())

	slog.Info("starting ses-forwarder",
		"bucket", cfg.S3.Bucket,
		"key_prefix", cfg.S3.KeyPrefix,
		"rules", table.Len(),
		"transmitter", tx.Name(),
	)

	lambda.Start(func(ctx context.Context, ev events.SimpleEmailEvent) error {
		outcome, err := fwd.Forward(ctx, ev)
		if err != nil {
			return err
		}
		slog.Info("pipeline finished", "outcome", outcome.String())
		return nil
	})
}

// runDryRun pushes a message read from stdin through the real pipeline,
// with the stored-message fetch and the outbound send replaced by stdin
// and stdout.
func runDryRun(cfg *config.Config, table rules.Table, recipients []string) error {
	if len(recipients) == 0 {
		return fmt.Errorf("at least one recipient argument is required")
	}

	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fmt.Errorf("failed to read message from stdin: %w", err)
	}

	fwd := forward.New(forwardOptions(cfg), table, staticStore{body: string(raw)}, stdout.New(), slog.Default())

	ev := events.SimpleEmailEvent{
		Records: []events.SimpleEmailRecord{
			{
				EventSource:  "aws:ses",
				EventVersion: "1.0",
				SES: events.SimpleEmailService{
					Mail:    events.SimpleEmailMessage{MessageID: "dry-run"},
					Receipt: events.SimpleEmailReceipt{Recipients: recipients},
				},
			},
		},
	}

	outcome, err := fwd.Forward(context.Background(), ev)
	if err != nil {
		return err
	}

	slog.Info("dry run finished", "outcome", outcome.String())
	return nil
}

// staticStore serves a fixed message body regardless of id, standing in
// for S3 during dry runs.
type staticStore struct {
	body string
}

func (s staticStore) FetchBody(context.Context, string) (string, error) {
	return s.body, nil
}

func forwardOptions(cfg *config.Config) forward.Options {
	return forward.Options{
		SenderAddress:       cfg.Forward.SenderAddress,
		SubjectPrefix:       cfg.Forward.SubjectPrefix,
		ForwardTo:           cfg.Forward.ForwardTo,
		AllowPlusAddressing: cfg.Forward.AllowPlusAddressing,
	}
}

// loadConfig loads configuration from the specified path (YAML + env override)
// or from environment variables only if no path is given.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// setupLogger configures the global slog logger with JSON output and the
// specified log level.
func setupLogger(level string) {
	var logLevel slog.Level

	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}
