package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/marcelsud/telephony-gateway/config"
	"github.com/marcelsud/telephony-gateway/internal/bootstrap"
	"github.com/marcelsud/telephony-gateway/ringcentral"
)

// ClientFactory builds the platform client used by the platform commands
type ClientFactory func(ctx context.Context) (*ringcentral.Client, error)

var verbose bool

// NewRootCommand builds the command tree around newClient
func NewRootCommand(newClient ClientFactory) *cobra.Command {
	root := &cobra.Command{
		Use:           filepath.Base(os.Args[0]),
		Short:         "Admin CLI for the telephony gateway",
		Long:          "Manage webhook subscriptions and issue platform calls through the resilient executor.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log retries and circuit changes to stderr")

	root.AddCommand(newSubscriptionsCommand(newClient))
	root.AddCommand(newCallCommand(newClient))
	root.AddCommand(newEventsCommand())
	return root
}

// Execute runs the CLI against the platform configured in the environment
func Execute() error {
	return NewRootCommand(configuredClient).Execute()
}

func configuredClient(ctx context.Context) (*ringcentral.Client, error) {
	cfg, err := config.GetConfig()
	if err != nil {
		return nil, err
	}
	logger := zerolog.Nop()
	if verbose {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	client, _, err := bootstrap.NewPlatform(ctx, cfg, logger, nil)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
