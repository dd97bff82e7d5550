// Package callback delivers terminal responses to CloudFormation's
// pre-signed response URL.
package callback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/picklr-io/domainctl/internal/logging"
	"github.com/picklr-io/domainctl/internal/resource"
)

// maxAckBody bounds how much of the acknowledgement is read into the log.
const maxAckBody = 64 << 10

// Reporter PUTs responses to the callback URL. It never retries: a missing
// reply surfaces as a timeout on the CloudFormation side.
type Reporter struct {
	client *http.Client
}

// New returns a Reporter whose requests time out after timeout.
func New(timeout time.Duration) *Reporter {
	return &Reporter{client: &http.Client{Timeout: timeout}}
}

// NewWithClient returns a Reporter using client.
func NewWithClient(client *http.Client) *Reporter {
	return &Reporter{client: client}
}

// Deliver sends resp to url. The pre-signed S3 URL is signed without a
// content type, so the header is sent empty.
func (r *Reporter) Deliver(ctx context.Context, url string, resp resource.Response) error {
	if url == "" {
		return fmt.Errorf("event has no response URL")
	}

	body, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	logging.Info("sending response", "request_id", resp.RequestID(), "body", string(body))

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build callback request: %w", err)
	}
	req.Header.Set("Content-Type", "")
	req.ContentLength = int64(len(body))

	res, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send response: %w", err)
	}
	defer res.Body.Close()

	ack, err := io.ReadAll(io.LimitReader(res.Body, maxAckBody))
	if err != nil {
		return fmt.Errorf("failed to read callback acknowledgement: %w", err)
	}
	logging.Info("callback acknowledged", "request_id", resp.RequestID(), "status_code", res.StatusCode, "body", string(ack))

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("callback rejected response: %s", res.Status)
	}
	return nil
}
