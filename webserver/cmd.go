package webserver

import (
	"log/slog"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/walletchat/walletchat/chat"
	"github.com/walletchat/walletchat/configuration"
	"github.com/walletchat/walletchat/internal/llm"
	"github.com/walletchat/walletchat/store"
)

const configFilepath = "~/.walletchat/config.json"

// NewServeCmd instantiates and returns the serve command.
func NewServeCmd() *cobra.Command {
	var opts struct {
		Config string
		Port   int
	}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat assistant API",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
			slog.SetDefault(logger)

			// A missing API credential is fatal here; no request is served.
			config, err := configuration.Parse(opts.Config)
			if err != nil {
				return errors.Wrap(err, "parsing configuration")
			}

			s, err := store.New(config.Database.Driver, config.Database.DSN)
			if err != nil {
				return errors.Wrap(err, "opening store")
			}
			defer s.Close()

			client := llm.NewOpenAIClient(
				config.OpenaiAPIKey,
				config.OpenaiAPIHost,
				config.Model,
				config.Temperature,
				time.Duration(config.RequestTimeout)*time.Second,
			)
			service := chat.NewService(client, s, logger)

			port := opts.Port
			if port == 0 {
				port = config.Server.Port
			}
			return New(s, service, logger).Start(port)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", configFilepath, "path to the configuration file")
	cmd.Flags().IntVarP(&opts.Port, "port", "p", 0, "override the configured port")
	return cmd
}
