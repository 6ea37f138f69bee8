package qualia

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-order-ingest/backoff"
	"github.com/goliatone/go-order-ingest/core"
)

type scriptedResponse struct {
	status int
	body   string
	err    error
}

type scriptedDoer struct {
	responses []scriptedResponse
	requests  []*http.Request
}

func (d *scriptedDoer) Do(req *http.Request) (*http.Response, error) {
	d.requests = append(d.requests, req)
	if len(d.responses) == 0 {
		return nil, errors.New("scripted doer exhausted")
	}
	next := d.responses[0]
	d.responses = d.responses[1:]
	if next.err != nil {
		return nil, next.err
	}
	return &http.Response{
		StatusCode: next.status,
		Body:       io.NopCloser(strings.NewReader(next.body)),
		Header:     http.Header{},
	}, nil
}

func testPolicy() backoff.Policy {
	return backoff.Policy{
		MaxRetries: 5,
		Sleep:      func(context.Context, time.Duration) error { return nil },
		Rand:       func() float64 { return 0 },
	}
}

func newTestClient(doer *scriptedDoer) *Client {
	return New(core.MarketplaceConfig{
		BaseURL:    "https://api.example.com/v1",
		GraphQLURL: "https://marketplace.example.com/graphql",
		Credential: "dGVzdDp0ZXN0",
		MaxRetries: 5,
	}, WithHTTPClient(doer), WithBackoffPolicy(testPolicy()))
}

func TestDownloadOrder_Success(t *testing.T) {
	doer := &scriptedDoer{responses: []scriptedResponse{
		{status: 200, body: `{"order_number":"QO-1","vertical":"title"}`},
	}}
	client := newTestClient(doer)

	body, err := client.DownloadOrder(context.Background(), "QO-1")
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if !strings.Contains(string(body), "QO-1") {
		t.Fatalf("expected raw body returned, got %s", body)
	}

	req := doer.requests[0]
	if req.Method != http.MethodGet {
		t.Fatalf("expected GET, got %s", req.Method)
	}
	if req.URL.String() != "https://api.example.com/v1/orders/QO-1" {
		t.Fatalf("unexpected url %s", req.URL)
	}
	if got := req.Header.Get("Authorization"); got != "Basic dGVzdDp0ZXN0" {
		t.Fatalf("expected basic auth header, got %q", got)
	}
}

func TestDownloadOrder_RecoversFromRateLimiting(t *testing.T) {
	doer := &scriptedDoer{responses: []scriptedResponse{
		{status: 429}, {status: 429}, {status: 429}, {status: 429}, {status: 429},
		{status: 200, body: `{"order_number":"QO-1"}`},
	}}
	client := newTestClient(doer)

	body, err := client.DownloadOrder(context.Background(), "QO-1")
	if err != nil {
		t.Fatalf("expected success after five 429s, got: %v", err)
	}
	if len(body) == 0 {
		t.Fatalf("expected payload body")
	}
	if len(doer.requests) != 6 {
		t.Fatalf("expected 6 attempts, got %d", len(doer.requests))
	}
}

func TestDownloadOrder_NotFoundAbortsImmediately(t *testing.T) {
	doer := &scriptedDoer{responses: []scriptedResponse{
		{status: 404, body: `{"error":"no such order"}`},
	}}
	client := newTestClient(doer)

	_, err := client.DownloadOrder(context.Background(), "QO-missing")
	if err == nil {
		t.Fatalf("expected permanent error")
	}
	if !core.IsPermanent(err) {
		t.Fatalf("expected permanent envelope, got: %v", err)
	}
	if len(doer.requests) != 1 {
		t.Fatalf("404 must not be retried, got %d attempts", len(doer.requests))
	}
}

func TestDownloadOrder_RetriesExhausted(t *testing.T) {
	responses := make([]scriptedResponse, 6)
	for i := range responses {
		responses[i] = scriptedResponse{status: 429}
	}
	doer := &scriptedDoer{responses: responses}
	client := newTestClient(doer)

	_, err := client.DownloadOrder(context.Background(), "QO-1")
	if !core.IsRetriesExhausted(err) {
		t.Fatalf("expected retries-exhausted envelope, got: %v", err)
	}
	if len(doer.requests) != 6 {
		t.Fatalf("expected 6 attempts, got %d", len(doer.requests))
	}
}

func TestDownloadOrder_NetworkErrorsRetry(t *testing.T) {
	doer := &scriptedDoer{responses: []scriptedResponse{
		{err: errors.New("connection reset")},
		{status: 200, body: `{}`},
	}}
	client := newTestClient(doer)

	if _, err := client.DownloadOrder(context.Background(), "QO-1"); err != nil {
		t.Fatalf("expected recovery after network error, got: %v", err)
	}
	if len(doer.requests) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(doer.requests))
	}
}

func TestGetOrder_DecodesEnvelope(t *testing.T) {
	doer := &scriptedDoer{responses: []scriptedResponse{
		{status: 200, body: `{"data":{"order":{"order":{"order_number":"QO-1","vertical":"title"},"outstanding_tasks":["upload_document"]}}}`},
	}}
	client := newTestClient(doer)

	envelope, err := client.GetOrder(context.Background(), "QO-1")
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if envelope.Order.OrderNumber != "QO-1" {
		t.Fatalf("unexpected order %+v", envelope.Order)
	}

	var payload struct {
		Query     string `json:"query"`
		Variables struct {
			Input string `json:"input"`
		} `json:"variables"`
	}
	body, _ := io.ReadAll(doer.requests[0].Body)
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode request: %v", err)
	}
	if payload.Variables.Input != "QO-1" {
		t.Fatalf("expected order id variable, got %q", payload.Variables.Input)
	}
	if !strings.Contains(payload.Query, "query GetOrder") {
		t.Fatalf("unexpected query document")
	}
}

func TestExecuteGraphQL_ErrorsArrayIsTerminal(t *testing.T) {
	doer := &scriptedDoer{responses: []scriptedResponse{
		{status: 200, body: `{"data":null,"errors":[{"message":"order is not open"}]}`},
	}}
	client := newTestClient(doer)

	_, err := client.AcceptOrder(context.Background(), "QO-1")
	if err == nil {
		t.Fatalf("expected terminal error")
	}
	if !core.IsPermanent(err) {
		t.Fatalf("graphql errors must not be retried, got: %v", err)
	}
	if len(doer.requests) != 1 {
		t.Fatalf("expected a single attempt, got %d", len(doer.requests))
	}
	if !strings.Contains(err.Error(), "order is not open") {
		t.Fatalf("expected remote message preserved, got: %v", err)
	}
}

func TestClassifyStatus_BadRequestPermanentForMutationsOnly(t *testing.T) {
	mutationDoer := &scriptedDoer{responses: []scriptedResponse{
		{status: 400, body: `{"error":"bad input"}`},
	}}
	client := newTestClient(mutationDoer)
	_, err := client.SubmitOrder(context.Background(), "QO-1")
	if !core.IsPermanent(err) {
		t.Fatalf("expected 400 permanent for mutations, got: %v", err)
	}
	if len(mutationDoer.requests) != 1 {
		t.Fatalf("mutation 400 must not be retried")
	}

	queryDoer := &scriptedDoer{responses: []scriptedResponse{
		{status: 400},
		{status: 200, body: `{"data":{"orders":{"orders":[]}}}`},
	}}
	client = newTestClient(queryDoer)
	if _, err := client.GetOrders(context.Background(), OrdersFilter{}); err != nil {
		t.Fatalf("expected query 400 to be retried, got: %v", err)
	}
	if len(queryDoer.requests) != 2 {
		t.Fatalf("expected 2 attempts for query 400, got %d", len(queryDoer.requests))
	}
}

func TestMutationInputShapes(t *testing.T) {
	doer := &scriptedDoer{responses: []scriptedResponse{
		{status: 200, body: `{"data":{"cancelOrder":{"status":"cancelled"}}}`},
	}}
	client := newTestClient(doer)

	if _, err := client.CancelOrder(context.Background(), "QO-1", "duplicate order"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	var payload struct {
		Variables struct {
			Input map[string]any `json:"input"`
		} `json:"variables"`
	}
	body, _ := io.ReadAll(doer.requests[0].Body)
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode request: %v", err)
	}
	if payload.Variables.Input["order_id"] != "QO-1" {
		t.Fatalf("expected order_id in input, got %v", payload.Variables.Input)
	}
	if payload.Variables.Input["cancellation_reason"] != "duplicate order" {
		t.Fatalf("expected cancellation_reason in input, got %v", payload.Variables.Input)
	}
}

func TestMutationValidation(t *testing.T) {
	client := newTestClient(&scriptedDoer{})
	if _, err := client.AddFiles(context.Background(), "QO-1", nil); err == nil {
		t.Fatalf("expected add files without files to fail")
	}
	if _, err := client.RemoveFiles(context.Background(), "QO-1", nil); err == nil {
		t.Fatalf("expected remove files without ids to fail")
	}
	if _, err := client.FulfillTitleSearch(context.Background(), "QO-1", nil); err == nil {
		t.Fatalf("expected title search without form to fail")
	}
	if _, err := client.AcceptOrder(context.Background(), " "); err == nil {
		t.Fatalf("expected blank order id to fail")
	}
}
