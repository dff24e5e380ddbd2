// Package dvla provides a client for the DVLA Vehicle Enquiry Service (or a
// compatible vehicle-data provider).
package dvla

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ashdownmotors/garage-platform/internal/observability/metrics"
	"github.com/ashdownmotors/garage-platform/internal/registration"
	"github.com/ashdownmotors/garage-platform/pkg/logging"
)

const unknownValue = "Unknown"

// VehicleDetails is the mapped lookup result. String fields the provider omits
// are set to "Unknown"; numeric fields stay nil when truly unknown because
// zero is a meaningful capacity/year downstream. Immutable once constructed.
type VehicleDetails struct {
	RegistrationNumber string `json:"registrationNumber"`
	Make               string `json:"make"`
	Model              string `json:"model"`
	Colour             string `json:"colour"`
	FuelType           string `json:"fuelType"`
	EngineCapacityCC   *int   `json:"engineCapacityCc,omitempty"`
	YearOfManufacture  *int   `json:"yearOfManufacture,omitempty"`
	TaxStatus          string `json:"taxStatus"`
	MOTStatus          string `json:"motStatus"`
}

// vesResponse mirrors the subset of the provider payload we consume.
type vesResponse struct {
	RegistrationNumber string `json:"registrationNumber"`
	Make               string `json:"make"`
	Model              string `json:"model"`
	Colour             string `json:"colour"`
	FuelType           string `json:"fuelType"`
	EngineCapacity     *int   `json:"engineCapacity"`
	YearOfManufacture  *int   `json:"yearOfManufacture"`
	TaxStatus          string `json:"taxStatus"`
	MotStatus          string `json:"motStatus"`
}

// Client calls the vehicle-data provider. One outbound call per Lookup, no
// retries and no caching.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *logging.Logger
	tracer     trace.Tracer
	metrics    *metrics.BookingMetrics
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *logging.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTimeout sets the transport-level timeout. A timeout surfaces as a
// transport error so the intake session never waits on a dead upstream.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithMetrics enables lookup counters and latency histograms.
func WithMetrics(m *metrics.BookingMetrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient creates a vehicle lookup client.
func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logging.Default(),
		tracer: otel.Tracer("garage.internal.dvla"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup fetches vehicle details for a registration. The registration is
// normalized before being sent; the normalized value is the sole payload
// field.
func (c *Client) Lookup(ctx context.Context, reg string) (*VehicleDetails, error) {
	start := time.Now()
	details, err := c.doLookup(ctx, reg)
	c.metrics.ObserveLookup(lookupResult(err), time.Since(start).Seconds())
	return details, err
}

func lookupResult(err error) string {
	if err == nil {
		return "found"
	}
	var le *LookupError
	if errors.As(err, &le) {
		return string(le.Kind)
	}
	return "error"
}

func (c *Client) doLookup(ctx context.Context, reg string) (*VehicleDetails, error) {
	ctx, span := c.tracer.Start(ctx, "dvla.lookup")
	defer span.End()

	normalized := registration.Normalize(reg)
	span.SetAttributes(attribute.String("garage.registration", normalized))

	payload, err := json.Marshal(map[string]string{"registrationNumber": normalized})
	if err != nil {
		return nil, fmt.Errorf("dvla: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("dvla: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		c.logger.Error("dvla: transport failure", "registration", normalized, "error", err)
		return nil, &LookupError{Kind: KindTransport, Message: "request failed", cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		span.RecordError(err)
		return nil, &LookupError{Kind: KindTransport, Message: "read response", cause: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.classify(resp.StatusCode, body, normalized)
	}

	var ves vesResponse
	if err := json.Unmarshal(body, &ves); err != nil {
		span.RecordError(err)
		c.logger.Error("dvla: unparseable response body", "registration", normalized, "error", err)
		return nil, &LookupError{Kind: KindUpstream, Status: resp.StatusCode, Message: "unparseable response body", cause: err}
	}

	details := mapDetails(normalized, ves)
	c.logger.Info("dvla: lookup succeeded",
		"registration", normalized,
		"make", details.Make,
	)
	return details, nil
}

func (c *Client) classify(status int, body []byte, reg string) error {
	msg := upstreamMessage(body)
	le := &LookupError{Status: status, Message: msg}
	switch status {
	case http.StatusNotFound:
		le.Kind = KindNotFound
		if le.Message == "" {
			le.Message = "no vehicle found"
		}
	case http.StatusBadRequest:
		le.Kind = KindInvalidFormat
		if le.Message == "" {
			le.Message = "registration rejected by provider"
		}
	case http.StatusTooManyRequests:
		le.Kind = KindRateLimited
		if le.Message == "" {
			le.Message = "rate limited"
		}
	default:
		le.Kind = KindUpstream
		if le.Message == "" {
			le.Message = "unexpected provider response"
		}
	}
	c.logger.Warn("dvla: lookup failed",
		"registration", reg,
		"status", status,
		"kind", string(le.Kind),
	)
	return le
}

// upstreamMessage pulls a human message out of the provider's error body when
// one exists. The VES error shape nests messages under "errors".
func upstreamMessage(body []byte) string {
	var envelope struct {
		Message string `json:"message"`
		Errors  []struct {
			Detail string `json:"detail"`
			Title  string `json:"title"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	if envelope.Message != "" {
		return envelope.Message
	}
	for _, e := range envelope.Errors {
		if e.Detail != "" {
			return e.Detail
		}
		if e.Title != "" {
			return e.Title
		}
	}
	return ""
}

func mapDetails(normalized string, ves vesResponse) *VehicleDetails {
	return &VehicleDetails{
		RegistrationNumber: normalized,
		Make:               orUnknown(ves.Make),
		Model:              orUnknown(ves.Model),
		Colour:             orUnknown(ves.Colour),
		FuelType:           orUnknown(ves.FuelType),
		EngineCapacityCC:   ves.EngineCapacity,
		YearOfManufacture:  ves.YearOfManufacture,
		TaxStatus:          orUnknown(ves.TaxStatus),
		MOTStatus:          orUnknown(ves.MotStatus),
	}
}

func orUnknown(s string) string {
	if s == "" {
		return unknownValue
	}
	return s
}
