package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/picklr-io/domainctl/internal/app"
	"github.com/picklr-io/domainctl/internal/resource"
)

var (
	invokeEventFile string
	invokeDryRun    bool
)

var invokeCmd = &cobra.Command{
	Use:   "invoke",
	Short: "Process a single custom resource event locally",
	Long: `Run one CloudFormation custom resource event through a handler against the
real AWS APIs. With --dry-run the terminal response is printed instead of
being sent to the event's ResponseURL.

The event is read from --event, or from stdin when --event is "-".`,
	Args: cobra.NoArgs,
	RunE: runInvoke,
}

func init() {
	invokeCmd.Flags().StringVarP(&invokeEventFile, "event", "e", "-", "Path to the event JSON document")
	invokeCmd.Flags().BoolVar(&invokeDryRun, "dry-run", false, "Print the response instead of delivering it")
}

func runInvoke(cmd *cobra.Command, args []string) error {
	cfg, kind, err := loadConfig()
	if err != nil {
		return err
	}

	ev, err := readEvent(cmd.InOrStdin(), invokeEventFile)
	if err != nil {
		return err
	}

	var deliverer resource.Deliverer
	if invokeDryRun {
		deliverer = &printDeliverer{out: cmd.OutOrStdout()}
	}

	handler, err := app.NewHandler(cmd.Context(), cfg, kind, deliverer)
	if err != nil {
		return err
	}
	return handler.Handle(cmd.Context(), ev)
}

// readEvent decodes an event from path, or from stdin when path is "-".
func readEvent(stdin io.Reader, path string) (resource.Event, error) {
	var ev resource.Event

	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return ev, fmt.Errorf("failed to open event file: %w", err)
		}
		defer f.Close()
		r = f
	}

	if err := json.NewDecoder(r).Decode(&ev); err != nil {
		return ev, fmt.Errorf("failed to decode event: %w", err)
	}
	if ev.RequestType == "" {
		return ev, fmt.Errorf("event has no RequestType")
	}
	return ev, nil
}
