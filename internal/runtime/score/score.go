// Package score calls the remote model service and turns every feature
// record into exactly one scored record. Failures degrade to a sentinel
// prediction instead of dropping the record, so error rates stay observable
// in the sink.
package score

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/petalops/irisflow/internal/runtime/ingest"
	"github.com/petalops/irisflow/internal/runtime/jsoncodec"
)

// ErrorLabel marks records whose scoring attempt failed. The record is still
// written to the sink with this label so failures are auditable.
const ErrorLabel = "ERROR"

// DefaultTimeout bounds a scoring request when no override is configured.
const DefaultTimeout = 30 * time.Second

// maxResponseBody caps how much of a scoring response is read into memory.
const maxResponseBody = 1 << 20

// ScoredRecord is a FeatureRecord plus the prediction outcome. Exactly one
// ScoredRecord exists per FeatureRecord, success or not.
type ScoredRecord struct {
	ingest.FeatureRecord
	Prediction     string   `json:"prediction"`
	Confidence     *float64 `json:"prediction_confidence"`
	ProcessingTime float64  `json:"processing_time"`
	ModelEndpoint  string   `json:"model_endpoint"`
}

// Failed reports whether this record carries the error sentinel.
func (r ScoredRecord) Failed() bool {
	return r.Prediction == ErrorLabel
}

// Instance is the per-sample request shape expected by the scoring service.
type Instance struct {
	SepalLengthCm float64 `json:"SepalLengthCm"`
	SepalWidthCm  float64 `json:"SepalWidthCm"`
	PetalLengthCm float64 `json:"PetalLengthCm"`
	PetalWidthCm  float64 `json:"PetalWidthCm"`
}

type predictRequest struct {
	Instances []Instance `json:"instances"`
}

func instanceFromRecord(rec ingest.FeatureRecord) Instance {
	return Instance{
		SepalLengthCm: rec.SepalLength,
		SepalWidthCm:  rec.SepalWidth,
		PetalLengthCm: rec.PetalLength,
		PetalWidthCm:  rec.PetalWidth,
	}
}

// Client scores feature records against a remote model service. A Client is
// safe for concurrent use; it holds no per-record state.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option customises a Client.
type Option func(*Client)

// WithTimeout overrides the default 30s request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithHTTPClient substitutes the underlying HTTP client. The caller keeps
// responsibility for its timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// NewClient returns a scoring client for the given base URL, for example
// "http://iris-scorer:8080".
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("scoring client requires a base URL")
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Endpoint returns the base URL this client scores against.
func (c *Client) Endpoint() string {
	return c.baseURL
}

// Score invokes the scoring service for one record. It is a total function:
// every call returns a ScoredRecord, degraded to the ERROR sentinel when the
// endpoint is unreachable, times out, answers non-2xx, or answers with an
// uninterpretable body. Wall-clock duration is recorded either way.
func (c *Client) Score(ctx context.Context, rec ingest.FeatureRecord) ScoredRecord {
	start := time.Now()
	scored := ScoredRecord{FeatureRecord: rec}

	payload, err := jsoncodec.Marshal(predictRequest{Instances: []Instance{instanceFromRecord(rec)}})
	if err != nil {
		return c.degrade(scored, start, fmt.Errorf("encode request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(payload))
	if err != nil {
		return c.degrade(scored, start, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return c.degrade(scored, start, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return c.degrade(scored, start, fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.degrade(scored, start, fmt.Errorf("scoring endpoint returned %s: %s", resp.Status, truncate(body, 256)))
	}

	prediction, err := decodeResponse(body)
	if err != nil {
		return c.degrade(scored, start, err)
	}
	label, confidence, err := prediction.Normalize()
	if err != nil {
		return c.degrade(scored, start, err)
	}

	scored.Prediction = label
	scored.Confidence = confidence
	scored.ModelEndpoint = c.baseURL
	scored.ProcessingTime = time.Since(start).Seconds()
	return scored
}

func (c *Client) degrade(scored ScoredRecord, start time.Time, err error) ScoredRecord {
	scored.Prediction = ErrorLabel
	scored.Confidence = nil
	scored.ModelEndpoint = "ERROR: " + err.Error()
	scored.ProcessingTime = time.Since(start).Seconds()
	return scored
}

// Healthy probes the scoring service health endpoint. A nil error means the
// service answered 200.
func (c *Client) Healthy(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("scoring endpoint unreachable: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBody))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("scoring endpoint unhealthy: %s", resp.Status)
	}
	return nil
}

func truncate(body []byte, limit int) string {
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
