package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/picklr-io/domainctl/internal/resource"
)

const (
	colorReset = "\033[0m"
	colorRed   = "\033[31m"
	colorGreen = "\033[32m"
)

// colorize returns code unless colors are disabled.
func colorize(code string) string {
	if noColor {
		return ""
	}
	return code
}

// printDeliverer writes responses to out instead of the callback URL.
type printDeliverer struct {
	out io.Writer
}

func (p *printDeliverer) Deliver(_ context.Context, url string, resp resource.Response) error {
	body, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}

	color := colorGreen
	if resp.Status() == resource.StatusFailed {
		color = colorRed
	}
	fmt.Fprintf(p.out, "%s%s%s %s\n", colorize(color), resp.Status(), colorize(colorReset), resp.PhysicalResourceID())
	if url != "" {
		fmt.Fprintf(p.out, "(not sent to %s)\n", url)
	}
	fmt.Fprintln(p.out, string(body))
	return nil
}
