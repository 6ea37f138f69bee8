package qualia

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-order-ingest/backoff"
	"github.com/goliatone/go-order-ingest/core"
)

const (
	requestTimeout       = 30 * time.Second
	rateLimitJitter      = 2 * time.Second
	networkJitter        = time.Second
	maxResponseBodyBytes = 4 << 20
)

// HTTPDoer is the subset of http.Client the marketplace client needs.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the Qualia vendor API: a REST order download endpoint
// plus a GraphQL surface for queries and mutations. Every call runs under
// bounded exponential backoff.
type Client struct {
	config  core.MarketplaceConfig
	http    HTTPDoer
	logger  core.Logger
	metrics core.MetricsRecorder
	policy  backoff.Policy
}

type Option func(*Client)

func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.http = doer
		}
	}
}

func WithLogger(logger core.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithMetrics(metrics core.MetricsRecorder) Option {
	return func(c *Client) {
		if metrics != nil {
			c.metrics = metrics
		}
	}
}

func WithBackoffPolicy(policy backoff.Policy) Option {
	return func(c *Client) {
		c.policy = policy
	}
}

func New(config core.MarketplaceConfig, opts ...Option) *Client {
	_, logger := glog.Resolve("qualia", nil, nil)
	client := &Client{
		config:  config,
		http:    &http.Client{Timeout: requestTimeout},
		logger:  logger,
		metrics: core.NopMetricsRecorder{},
		policy:  backoff.Policy{MaxRetries: config.MaxRetries},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// DownloadOrder fetches the raw order payload from the REST endpoint. The
// body comes back verbatim so the caller can store it unchanged.
func (c *Client) DownloadOrder(ctx context.Context, orderID string) ([]byte, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, core.NewError("order id is required", goerrors.CategoryBadInput, nil)
	}
	url := strings.TrimRight(c.config.BaseURL, "/") + "/orders/" + orderID

	var payload []byte
	err := c.policy.Run(ctx, func(ctx context.Context, attempt int) (backoff.Attempt, error) {
		c.logger.Debug("downloading order", "order_id", orderID, "attempt", attempt+1)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Attempt{Outcome: backoff.Abort}, core.WrapError(err, goerrors.CategoryInternal, "build download request", map[string]any{"order_id": orderID})
		}
		c.applyHeaders(req)

		resp, err := c.http.Do(req)
		if err != nil {
			return backoff.Attempt{Outcome: backoff.Retry, JitterMax: networkJitter},
				core.WrapError(err, goerrors.CategoryExternal, "download order", map[string]any{"order_id": orderID})
		}
		body, readErr := readBody(resp)
		if readErr != nil {
			return backoff.Attempt{Outcome: backoff.Retry, JitterMax: networkJitter},
				core.WrapError(readErr, goerrors.CategoryExternal, "read download response", map[string]any{"order_id": orderID})
		}
		if verdict, err := c.classifyStatus(resp.StatusCode, body, orderID, false); err != nil || verdict.Outcome != backoff.Done {
			return verdict, err
		}
		payload = body
		c.metrics.IncCounter(ctx, "qualia_download_success", 1, map[string]string{"order_id": orderID})
		return backoff.Attempt{Outcome: backoff.Done}, nil
	})
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// OrderEnvelope is the GetOrder query result: the order plus any tasks the
// vendor still expects the fulfiller to complete.
type OrderEnvelope struct {
	Order            core.RawOrder   `json:"order"`
	OutstandingTasks json.RawMessage `json:"outstanding_tasks,omitempty"`
}

// GetOrder fetches one order through the GraphQL surface.
func (c *Client) GetOrder(ctx context.Context, orderID string) (OrderEnvelope, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return OrderEnvelope{}, core.NewError("order id is required", goerrors.CategoryBadInput, nil)
	}
	data, err := c.executeGraphQL(ctx, getOrderQuery, map[string]any{"input": orderID}, orderID, false)
	if err != nil {
		return OrderEnvelope{}, err
	}
	var decoded struct {
		Order OrderEnvelope `json:"order"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return OrderEnvelope{}, core.WrapError(err, goerrors.CategoryExternal, "decode order response", map[string]any{"order_id": orderID})
	}
	return decoded.Order, nil
}

// OrdersFilter narrows the orders list query. Zero values are omitted from
// the wire input.
type OrdersFilter struct {
	Status      string `json:"status,omitempty"`
	CustomerID  string `json:"customer_id,omitempty"`
	OrderNumber string `json:"order_number,omitempty"`
	Limit       int    `json:"limit,omitempty"`
	Offset      int    `json:"offset,omitempty"`
}

// GetOrders lists orders through the GraphQL surface.
func (c *Client) GetOrders(ctx context.Context, filter OrdersFilter) ([]core.RawOrder, error) {
	data, err := c.executeGraphQL(ctx, getOrdersQuery, map[string]any{"input": filter}, "", false)
	if err != nil {
		return nil, err
	}
	var decoded struct {
		Orders struct {
			Orders []core.RawOrder `json:"orders"`
		} `json:"orders"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, core.WrapError(err, goerrors.CategoryExternal, "decode orders response", nil)
	}
	return decoded.Orders.Orders, nil
}

// GetMessages lists vendor messages across orders.
func (c *Client) GetMessages(ctx context.Context) (json.RawMessage, error) {
	return c.executeGraphQL(ctx, getMessagesQuery, nil, "", false)
}

// AcceptOrder accepts an open order.
func (c *Client) AcceptOrder(ctx context.Context, orderID string) (json.RawMessage, error) {
	return c.mutate(ctx, acceptOrderMutation, orderID, map[string]any{"order_id": orderID})
}

// DeclineOrder declines an open order. The reason is optional.
func (c *Client) DeclineOrder(ctx context.Context, orderID string, reason string) (json.RawMessage, error) {
	input := map[string]any{"order_id": orderID}
	if strings.TrimSpace(reason) != "" {
		input["decline_reason"] = reason
	}
	return c.mutate(ctx, declineOrderMutation, orderID, input)
}

// CancelOrder cancels an accepted order. The reason is optional.
func (c *Client) CancelOrder(ctx context.Context, orderID string, reason string) (json.RawMessage, error) {
	input := map[string]any{"order_id": orderID}
	if strings.TrimSpace(reason) != "" {
		input["cancellation_reason"] = reason
	}
	return c.mutate(ctx, cancelOrderMutation, orderID, input)
}

// SubmitOrder submits completed work product for an order.
func (c *Client) SubmitOrder(ctx context.Context, orderID string) (json.RawMessage, error) {
	return c.mutate(ctx, submitOrderMutation, orderID, map[string]any{"order_id": orderID})
}

// SendMessage posts a message on the order thread.
func (c *Client) SendMessage(ctx context.Context, orderID string, text string, attachments []File) (json.RawMessage, error) {
	input := map[string]any{"order_id": orderID, "text": text}
	if len(attachments) > 0 {
		input["attachments"] = attachments
	}
	return c.mutate(ctx, sendMessageMutation, orderID, input)
}

// File is an upload payload for AddFiles and message attachments.
type File struct {
	Name      string `json:"name"`
	Base64    string `json:"base_64"`
	IsPrimary bool   `json:"is_primary,omitempty"`
}

// AddFiles attaches documents to an order.
func (c *Client) AddFiles(ctx context.Context, orderID string, files []File) (json.RawMessage, error) {
	if len(files) == 0 {
		return nil, core.NewError("at least one file is required", goerrors.CategoryBadInput, map[string]any{"order_id": orderID})
	}
	return c.mutate(ctx, addFilesMutation, orderID, map[string]any{"order_id": orderID, "files": files})
}

// RemoveFiles detaches documents from an order.
func (c *Client) RemoveFiles(ctx context.Context, orderID string, fileIDs []string) (json.RawMessage, error) {
	if len(fileIDs) == 0 {
		return nil, core.NewError("at least one file id is required", goerrors.CategoryBadInput, map[string]any{"order_id": orderID})
	}
	return c.mutate(ctx, removeFilesMutation, orderID, map[string]any{"order_id": orderID, "file_ids": fileIDs})
}

// FulfillTitleSearch submits the title search form for an order.
func (c *Client) FulfillTitleSearch(ctx context.Context, orderID string, form map[string]any) (json.RawMessage, error) {
	if len(form) == 0 {
		return nil, core.NewError("title search form is required", goerrors.CategoryBadInput, map[string]any{"order_id": orderID})
	}
	return c.mutate(ctx, fulfillTitleSearchMutation, orderID, map[string]any{"order_id": orderID, "form": form})
}

func (c *Client) mutate(ctx context.Context, mutation string, orderID string, input map[string]any) (json.RawMessage, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, core.NewError("order id is required", goerrors.CategoryBadInput, nil)
	}
	return c.executeGraphQL(ctx, mutation, map[string]any{"input": input}, orderID, true)
}

// executeGraphQL posts one GraphQL document and returns the data object.
// A response carrying an errors array is terminal: the remote accepted the
// request and rejected its content, so retrying it cannot change anything.
func (c *Client) executeGraphQL(ctx context.Context, query string, variables map[string]any, orderID string, mutation bool) (json.RawMessage, error) {
	payload := map[string]any{"query": query}
	if variables != nil {
		payload["variables"] = variables
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, core.WrapError(err, goerrors.CategoryInternal, "marshal graphql payload", map[string]any{"order_id": orderID})
	}

	var data json.RawMessage
	err = c.policy.Run(ctx, func(ctx context.Context, attempt int) (backoff.Attempt, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.GraphQLURL, bytes.NewReader(body))
		if err != nil {
			return backoff.Attempt{Outcome: backoff.Abort}, core.WrapError(err, goerrors.CategoryInternal, "build graphql request", map[string]any{"order_id": orderID})
		}
		c.applyHeaders(req)

		resp, err := c.http.Do(req)
		if err != nil {
			return backoff.Attempt{Outcome: backoff.Retry, JitterMax: networkJitter},
				core.WrapError(err, goerrors.CategoryExternal, "graphql request", map[string]any{"order_id": orderID})
		}
		respBody, readErr := readBody(resp)
		if readErr != nil {
			return backoff.Attempt{Outcome: backoff.Retry, JitterMax: networkJitter},
				core.WrapError(readErr, goerrors.CategoryExternal, "read graphql response", map[string]any{"order_id": orderID})
		}
		if verdict, err := c.classifyStatus(resp.StatusCode, respBody, orderID, mutation); err != nil || verdict.Outcome != backoff.Done {
			return verdict, err
		}

		var envelope struct {
			Data   json.RawMessage `json:"data"`
			Errors []struct {
				Message string `json:"message"`
			} `json:"errors"`
		}
		if err := json.Unmarshal(respBody, &envelope); err != nil {
			return backoff.Attempt{Outcome: backoff.Retry, JitterMax: networkJitter},
				core.WrapError(err, goerrors.CategoryExternal, "decode graphql envelope", map[string]any{"order_id": orderID})
		}
		if len(envelope.Errors) > 0 {
			messages := make([]string, 0, len(envelope.Errors))
			for _, e := range envelope.Errors {
				messages = append(messages, e.Message)
			}
			c.logger.Error("graphql errors", "order_id", orderID, "errors", messages)
			return backoff.Attempt{Outcome: backoff.Abort}, goerrors.New(
				fmt.Sprintf("graphql errors: %s", strings.Join(messages, "; ")),
				goerrors.CategoryExternal).
				WithCode(http.StatusUnprocessableEntity).
				WithTextCode(core.OrderErrorRemotePermanent).
				WithMetadata(map[string]any{"order_id": orderID, "errors": messages})
		}
		data = envelope.Data
		return backoff.Attempt{Outcome: backoff.Done}, nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// classifyStatus maps an HTTP status to a retry verdict. 429 retries with
// extra jitter, 401/403/404 are permanent, and mutations also treat 400 as
// permanent because replaying a rejected mutation cannot succeed.
func (c *Client) classifyStatus(status int, body []byte, orderID string, mutation bool) (backoff.Attempt, error) {
	switch {
	case status >= 200 && status < 300:
		return backoff.Attempt{Outcome: backoff.Done}, nil
	case status == http.StatusTooManyRequests:
		c.logger.Warn("rate limited", "order_id", orderID, "status", status)
		return backoff.Attempt{Outcome: backoff.Retry, JitterMax: rateLimitJitter},
			goerrors.New("rate limited", goerrors.CategoryRateLimit).
				WithCode(status).
				WithTextCode(core.OrderErrorRateLimited).
				WithMetadata(map[string]any{"order_id": orderID})
	case status == http.StatusUnauthorized, status == http.StatusForbidden, status == http.StatusNotFound,
		mutation && status == http.StatusBadRequest:
		c.logger.Error("permanent remote error", "order_id", orderID, "status", status)
		return backoff.Attempt{Outcome: backoff.Abort}, goerrors.New(
			fmt.Sprintf("permanent error %d: %s", status, truncate(body, 512)),
			goerrors.CategoryExternal).
			WithCode(status).
			WithTextCode(core.OrderErrorRemotePermanent).
			WithMetadata(map[string]any{"order_id": orderID, "status": status})
	default:
		c.logger.Warn("transient remote error", "order_id", orderID, "status", status)
		return backoff.Attempt{Outcome: backoff.Retry},
			goerrors.New(fmt.Sprintf("remote error %d", status), goerrors.CategoryExternal).
				WithCode(status).
				WithTextCode(core.OrderErrorRemoteFailure).
				WithMetadata(map[string]any{"order_id": orderID, "status": status})
	}
}

func (c *Client) applyHeaders(req *http.Request) {
	if strings.TrimSpace(c.config.Credential) != "" {
		req.Header.Set("Authorization", "Basic "+c.config.Credential)
	}
	req.Header.Set("Content-Type", "application/json")
}

func readBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
}

func truncate(body []byte, limit int) string {
	text := strings.TrimSpace(string(body))
	if len(text) > limit {
		return text[:limit]
	}
	return text
}
