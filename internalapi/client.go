// Package internalapi submits transformed orders to the internal
// order-intake API.
package internalapi

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

	"github.com/goliatone/go-order-ingest/core"
	"github.com/goliatone/go-order-ingest/transform"
)

const requestTimeout = 30 * time.Second

// HTTPDoer is the subset of http.Client the intake client needs.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client posts transformed orders to the intake endpoint with a bearer
// token. 200 and 201 are the only accepted responses; anything else is a
// downstream rejection the caller records against the order.
type Client struct {
	config core.InternalAPIConfig
	http   HTTPDoer
	logger core.Logger
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

func New(config core.InternalAPIConfig, opts ...Option) *Client {
	_, logger := glog.Resolve("internalapi", nil, nil)
	client := &Client{
		config: config,
		http:   &http.Client{Timeout: requestTimeout},
		logger: logger,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// SubmitOrder posts one transformed order. It returns the response status
// code on success so callers can record it with the order metadata.
func (c *Client) SubmitOrder(ctx context.Context, order transform.InternalOrder) (int, error) {
	if strings.TrimSpace(c.config.URL) == "" {
		return 0, core.NewError("internal api url is not configured", goerrors.CategoryBadInput, nil)
	}
	body, err := json.Marshal(order)
	if err != nil {
		return 0, core.WrapError(err, goerrors.CategoryInternal, "marshal intake order", map[string]any{"external_order_id": order.ExternalOrderID})
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.URL, bytes.NewReader(body))
	if err != nil {
		return 0, core.WrapError(err, goerrors.CategoryInternal, "build intake request", map[string]any{"external_order_id": order.ExternalOrderID})
	}
	req.Header.Set("Content-Type", "application/json")
	if strings.TrimSpace(c.config.Token) != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, core.WrapError(err, goerrors.CategoryExternal, "submit order to intake api", map[string]any{"external_order_id": order.ExternalOrderID})
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
		c.logger.Info("order accepted by intake api",
			"external_order_id", order.ExternalOrderID,
			"status", resp.StatusCode)
		return resp.StatusCode, nil
	}

	c.logger.Error("intake api rejected order",
		"external_order_id", order.ExternalOrderID,
		"status", resp.StatusCode,
		"response", strings.TrimSpace(string(respBody)))
	return resp.StatusCode, goerrors.New(
		fmt.Sprintf("intake api error: %d - %s", resp.StatusCode, strings.TrimSpace(string(respBody))),
		goerrors.CategoryExternal).
		WithCode(resp.StatusCode).
		WithTextCode(core.OrderErrorDownstreamRejected).
		WithMetadata(map[string]any{
			"external_order_id": order.ExternalOrderID,
			"status":            resp.StatusCode,
		})
}
