package paystack

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/flexprice/paysync/internal/config"
	ierr "github.com/flexprice/paysync/internal/errors"
	"github.com/flexprice/paysync/internal/httpclient"
	"github.com/flexprice/paysync/internal/logger"
	"github.com/flexprice/paysync/internal/sentry"
	"github.com/flexprice/paysync/internal/types"
)

// PaystackClient defines the gateway operations used by the payment flows
type PaystackClient interface {
	// InitializeTransaction registers a payment with the gateway and returns
	// the hosted checkout URL
	InitializeTransaction(ctx context.Context, req InitializeTransactionRequest) (*InitializeTransactionResult, error)
	// FetchTransactionStatus asks the gateway for the current state of a
	// transaction. It never mutates anything on either side.
	FetchTransactionStatus(ctx context.Context, reference string) (*types.TransactionOutcome, error)
}

// Client talks to the Paystack REST API
type Client struct {
	cfg        config.GatewayConfig
	httpClient httpclient.Client
	sentry     *sentry.Service
	logger     *logger.Logger
}

// NewClient creates a new Paystack client
func NewClient(
	cfg *config.Configuration,
	httpClient httpclient.Client,
	sentry *sentry.Service,
	logger *logger.Logger,
) PaystackClient {
	return &Client{
		cfg:        cfg.Gateway,
		httpClient: httpClient,
		sentry:     sentry,
		logger:     logger,
	}
}

// InitializeTransaction calls POST /transaction/initialize
func (c *Client) InitializeTransaction(ctx context.Context, req InitializeTransactionRequest) (*InitializeTransactionResult, error) {
	if req.CallbackURL == "" {
		req.CallbackURL = c.cfg.CallbackURL
	}

	span, ctx := c.sentry.StartGatewaySpan(ctx, "initialize", map[string]interface{}{
		"reference": req.Reference,
		"currency":  req.Currency,
	})
	defer sentry.FinishSpan(span)

	c.logger.Infow("initializing transaction with paystack",
		"reference", req.Reference,
		"amount_minor", req.AmountMinor,
		"currency", req.Currency)

	data, err := c.makeRequest(ctx, http.MethodPost, "/transaction/initialize", req)
	if err != nil {
		return nil, c.classify(err, req.Reference, false)
	}

	var result InitializeTransactionResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Invalid response from payment gateway").
			WithReportableDetails(map[string]interface{}{"reference": req.Reference}).
			Mark(ierr.ErrGatewayUnavailable)
	}
	if result.AuthorizationURL == "" {
		return nil, ierr.NewError("gateway returned no authorization url").
			WithHint("Payment gateway did not return a checkout link").
			WithReportableDetails(map[string]interface{}{"reference": req.Reference}).
			Mark(ierr.ErrGatewayRejected)
	}

	c.logger.Infow("initialized transaction with paystack",
		"reference", req.Reference,
		"access_code", result.AccessCode)

	return &result, nil
}

// FetchTransactionStatus calls GET /transaction/verify/:reference
func (c *Client) FetchTransactionStatus(ctx context.Context, reference string) (*types.TransactionOutcome, error) {
	span, ctx := c.sentry.StartGatewaySpan(ctx, "verify", map[string]interface{}{
		"reference": reference,
	})
	defer sentry.FinishSpan(span)

	data, err := c.makeRequest(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil)
	if err != nil {
		return nil, c.classify(err, reference, true)
	}

	var txn TransactionData
	if err := json.Unmarshal(data, &txn); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Invalid response from payment gateway").
			WithReportableDetails(map[string]interface{}{"reference": reference}).
			Mark(ierr.ErrGatewayUnavailable)
	}

	outcome := txn.ToOutcome(data)

	c.logger.Debugw("fetched transaction status from paystack",
		"reference", reference,
		"gateway_status", txn.Status,
		"status", outcome.Status)

	return outcome, nil
}

// gatewayError carries a response the gateway answered with status=false
type gatewayError struct {
	statusCode int
	message    string
}

func (e *gatewayError) Error() string {
	return fmt.Sprintf("paystack: %s (http %d)", e.message, e.statusCode)
}

// makeRequest sends the request under the configured timeout and returns the
// data field of a successful envelope
func (c *Client) makeRequest(ctx context.Context, method, endpoint string, body interface{}) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var jsonBody []byte
	if body != nil {
		var err error
		jsonBody, err = json.Marshal(body)
		if err != nil {
			return nil, ierr.WithError(err).
				WithHint("Invalid request data").
				Mark(ierr.ErrValidation)
		}
	}

	resp, err := c.httpClient.Send(ctx, &httpclient.Request{
		Method: method,
		URL:    strings.TrimRight(c.cfg.BaseURL, "/") + endpoint,
		Headers: map[string]string{
			"Authorization": "Bearer " + c.cfg.SecretKey,
			"Accept":        "application/json",
		},
		Body: jsonBody,
	})
	if err != nil {
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return nil, &gatewayError{statusCode: resp.StatusCode, message: "unreadable response"}
	}
	if !env.Status {
		return nil, &gatewayError{statusCode: resp.StatusCode, message: env.Message}
	}

	return env.Data, nil
}

// classify maps a transport or gateway failure onto the gateway error taxonomy
func (c *Client) classify(err error, reference string, lookup bool) error {
	var (
		statusCode int
		message    string
	)

	var gwErr *gatewayError
	if httpErr, ok := httpclient.IsHTTPError(err); ok {
		statusCode = httpErr.StatusCode
		var env envelope
		if json.Unmarshal(httpErr.Response, &env) == nil {
			message = env.Message
		}
	} else if ierr.As(err, &gwErr) {
		statusCode = gwErr.statusCode
		message = gwErr.message
	} else {
		c.logger.Errorw("paystack request failed",
			"reference", reference,
			"error", err)
		return ierr.WithError(err).
			WithHint("Payment gateway is unavailable, please retry").
			WithReportableDetails(map[string]interface{}{"reference": reference}).
			Mark(ierr.ErrGatewayUnavailable)
	}

	details := map[string]interface{}{
		"reference":   reference,
		"status_code": statusCode,
		"message":     message,
	}

	switch {
	case lookup && (statusCode == http.StatusNotFound || strings.Contains(strings.ToLower(message), "not found")):
		return ierr.NewError("transaction not found at gateway").
			WithHint("The gateway has no transaction with this reference yet").
			WithReportableDetails(details).
			Mark(ierr.ErrTransactionNotFound)
	case statusCode >= http.StatusInternalServerError, statusCode == http.StatusTooManyRequests:
		c.logger.Errorw("paystack returned server error",
			"reference", reference,
			"status_code", statusCode,
			"message", message)
		return ierr.NewError("payment gateway unavailable").
			WithHint("Payment gateway is unavailable, please retry").
			WithReportableDetails(details).
			Mark(ierr.ErrGatewayUnavailable)
	default:
		c.logger.Warnw("paystack rejected request",
			"reference", reference,
			"status_code", statusCode,
			"message", message)
		return ierr.NewErrorf("payment gateway rejected request: %s", message).
			WithHint("Payment gateway rejected the request").
			WithReportableDetails(details).
			Mark(ierr.ErrGatewayRejected)
	}
}
