package cli

import (
	"fmt"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/spf13/cobra"

	"github.com/picklr-io/domainctl/internal/app"
	"github.com/picklr-io/domainctl/internal/config"
	"github.com/picklr-io/domainctl/internal/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a handler inside the Lambda runtime",
	Long: `Start the Lambda runtime loop for one handler. This is the command the
function's bootstrap runs; the handler is taken from --handler or
DOMAINCTL_HANDLER.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, kind, err := loadConfig()
	if err != nil {
		return err
	}

	handler, err := app.NewHandler(cmd.Context(), cfg, kind, nil)
	if err != nil {
		return err
	}

	logging.Info("starting lambda runtime", "handler", kind, "version", Version)
	lambda.StartWithOptions(handler.Handle, lambda.WithContext(cmd.Context()))
	return nil
}

// loadConfig reads the environment, applies the --handler override and
// initializes logging.
func loadConfig() (*config.Config, string, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, "", err
	}
	logging.Init(cfg.LogLevel, cfg.LogFormat)

	kind := cfg.Handler
	if handlerFlag != "" {
		kind = handlerFlag
	}
	if err := config.ValidateHandler(kind); err != nil {
		return nil, "", fmt.Errorf("invalid handler: %w", err)
	}
	return cfg, kind, nil
}
