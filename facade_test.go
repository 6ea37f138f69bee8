package orderingest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-order-ingest/core"
	"github.com/goliatone/go-order-ingest/query"
	"github.com/goliatone/go-order-ingest/transform"
)

type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(req *http.Request) (*http.Response, error) {
	return f(req)
}

func httpResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{},
	}
}

const rawOrderPayload = `{
	"_id": "abc123",
	"order_number": "QO-1",
	"vertical": "title",
	"product_type": "full_search",
	"customer_name": "First American",
	"due_date": "2026-09-01",
	"properties": [{"state": "CA", "address_1": "123 Main St", "city": "Fresno"}]
}`

func marketplaceDownloadDoer(t *testing.T, orderID string, payload string) doerFunc {
	t.Helper()
	return func(req *http.Request) (*http.Response, error) {
		if req.Method == http.MethodGet && strings.HasSuffix(req.URL.Path, "/orders/"+orderID) {
			return httpResponse(http.StatusOK, payload), nil
		}
		t.Errorf("unexpected marketplace request: %s %s", req.Method, req.URL)
		return httpResponse(http.StatusInternalServerError, `{}`), nil
	}
}

type intakeStub struct {
	mu     sync.Mutex
	status int
	bodies [][]byte
}

func (s *intakeStub) Do(req *http.Request) (*http.Response, error) {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.bodies = append(s.bodies, body)
	status := s.status
	s.mu.Unlock()
	return httpResponse(status, `{"id":"internal-1"}`), nil
}

func (s *intakeStub) setStatus(status int) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

func (s *intakeStub) submitted() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.bodies...)
}

func testRuntimeConfig() core.Config {
	return core.Config{
		Marketplace: core.MarketplaceConfig{
			BaseURL:    "https://marketplace.test/v1",
			GraphQLURL: "https://marketplace.test/graphql",
			Credential: "vendor-token",
		},
		InternalAPI: core.InternalAPIConfig{
			URL:   "https://intake.test/orders",
			Token: "intake-token",
		},
		Webhook: core.WebhookConfig{Username: "qualia", Password: "hook-secret"},
	}
}

func postNotification(t *testing.T, p *Pipeline, orderID string) *httptest.ResponseRecorder {
	t.Helper()
	body := `{"order_id":"` + orderID + `","notification_type":"order.created","timestamp":"2026-08-29T10:00:00Z"}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/qualia", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth("qualia", "hook-secret")
	rec := httptest.NewRecorder()
	p.WebhookHandler().ServeHTTP(rec, req)
	return rec
}

func TestPipelineEndToEnd(t *testing.T) {
	ctx := context.Background()
	intake := &intakeStub{status: http.StatusCreated}

	p, err := New(testRuntimeConfig(),
		WithMarketplaceHTTPClient(marketplaceDownloadDoer(t, "QO-1", rawOrderPayload)),
		WithIntakeHTTPClient(intake),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	rec := postNotification(t, p, "QO-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("webhook status = %d, want %d (%s)", rec.Code, http.StatusOK, rec.Body.String())
	}
	if got := p.DownloadQueue().Len(); got != 1 {
		t.Fatalf("download queue length = %d, want 1", got)
	}

	if err := p.Drain(ctx); err != nil {
		t.Fatalf("Drain: %v", err)
	}

	record, err := p.MetadataStore().Get(ctx, "QO-1")
	if err != nil {
		t.Fatalf("Get record: %v", err)
	}
	if record.Status != core.StatusProcessed {
		t.Fatalf("status = %q, want %q", record.Status, core.StatusProcessed)
	}
	if record.APIStatusCode != http.StatusCreated {
		t.Fatalf("api status = %d, want %d", record.APIStatusCode, http.StatusCreated)
	}
	if record.Checksum == "" || record.ObjectKey == "" {
		t.Fatalf("record missing claim check fields: %+v", record)
	}
	if record.ProcessedAt == nil || record.DownloadedAt == nil {
		t.Fatalf("record missing stage timestamps: %+v", record)
	}
	if record.Error != "" {
		t.Fatalf("record carries error %q after success", record.Error)
	}

	submitted := intake.submitted()
	if len(submitted) != 1 {
		t.Fatalf("intake received %d submissions, want 1", len(submitted))
	}
	var internal transform.InternalOrder
	if err := json.Unmarshal(submitted[0], &internal); err != nil {
		t.Fatalf("decode intake body: %v", err)
	}
	if internal.ExternalOrderID != "QO-1" {
		t.Fatalf("externalOrderId = %q, want QO-1", internal.ExternalOrderID)
	}
	if internal.ProductCategory != "TITLE" {
		t.Fatalf("productCategory = %q, want TITLE", internal.ProductCategory)
	}
	if internal.State.StateCode != "CA" || internal.State.StateName != "California" {
		t.Fatalf("state = %+v, want CA/California", internal.State)
	}
	if internal.Source != transform.SourceQualiaMarketplace {
		t.Fatalf("source = %q", internal.Source)
	}

	if p.DownloadQueue().Len() != 0 || p.ProcessQueue().Len() != 0 {
		t.Fatalf("queues not drained: downloads=%d processes=%d",
			p.DownloadQueue().Len(), p.ProcessQueue().Len())
	}
}

func TestPipelineIntakeRejectionThenRetry(t *testing.T) {
	ctx := context.Background()
	intake := &intakeStub{status: http.StatusInternalServerError}

	p, err := New(testRuntimeConfig(),
		WithMarketplaceHTTPClient(marketplaceDownloadDoer(t, "QO-9", rawOrderPayload)),
		WithIntakeHTTPClient(intake),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	if rec := postNotification(t, p, "QO-9"); rec.Code != http.StatusOK {
		t.Fatalf("webhook status = %d (%s)", rec.Code, rec.Body.String())
	}
	if processed, err := p.RunDownloadOnce(ctx); err != nil || !processed {
		t.Fatalf("RunDownloadOnce = (%v, %v), want (true, nil)", processed, err)
	}

	processed, err := p.RunProcessOnce(ctx)
	if !processed || err == nil {
		t.Fatalf("RunProcessOnce = (%v, %v), want processed with error", processed, err)
	}

	record, err := p.MetadataStore().Get(ctx, "QO-9")
	if err != nil {
		t.Fatalf("Get record: %v", err)
	}
	if record.Status != core.StatusFailed {
		t.Fatalf("status = %q, want %q", record.Status, core.StatusFailed)
	}
	if record.Error == "" || record.FailedAt == nil {
		t.Fatalf("failed record missing error details: %+v", record)
	}

	// The message was redelivered with a backoff delay. Skip past it and
	// let the intake recover.
	intake.setStatus(http.StatusCreated)
	p.ProcessQueue().Now = func() time.Time {
		return time.Now().UTC().Add(5 * time.Minute)
	}

	processed, err = p.RunProcessOnce(ctx)
	if err != nil || !processed {
		t.Fatalf("RunProcessOnce retry = (%v, %v), want (true, nil)", processed, err)
	}

	record, err = p.MetadataStore().Get(ctx, "QO-9")
	if err != nil {
		t.Fatalf("Get record: %v", err)
	}
	if record.Status != core.StatusProcessed {
		t.Fatalf("status after retry = %q, want %q", record.Status, core.StatusProcessed)
	}
	if record.Error != "" {
		t.Fatalf("error not cleared after success: %q", record.Error)
	}
}

func TestPipelineQueriesReadLocalState(t *testing.T) {
	ctx := context.Background()
	intake := &intakeStub{status: http.StatusCreated}

	p, err := New(testRuntimeConfig(),
		WithMarketplaceHTTPClient(marketplaceDownloadDoer(t, "QO-2", rawOrderPayload)),
		WithIntakeHTTPClient(intake),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	if rec := postNotification(t, p, "QO-2"); rec.Code != http.StatusOK {
		t.Fatalf("webhook status = %d", rec.Code)
	}
	if err := p.Drain(ctx); err != nil {
		t.Fatalf("Drain: %v", err)
	}

	queries := p.Queries()
	record, err := queries.GetOrderRecord.Query(ctx, query.GetOrderRecordMessage{OrderID: "QO-2"})
	if err != nil {
		t.Fatalf("GetOrderRecord: %v", err)
	}
	if record.Status != core.StatusProcessed {
		t.Fatalf("status = %q, want %q", record.Status, core.StatusProcessed)
	}

	if queries.ListOrderRecords == nil {
		t.Fatal("ListOrderRecords not wired for the default store")
	}
	records, err := queries.ListOrderRecords.Query(ctx, query.ListOrderRecordsMessage{})
	if err != nil {
		t.Fatalf("ListOrderRecords: %v", err)
	}
	if len(records) != 1 || records[0].OrderID != "QO-2" {
		t.Fatalf("records = %+v, want one QO-2 record", records)
	}
}

func TestPipelineConfigResolution(t *testing.T) {
	provider := core.NewCfgxConfigProvider(core.StaticRawConfigLoader{Values: map[string]any{
		"service_name": "order-ingest-qa",
		"stage":        "qa",
		"marketplace": map[string]any{
			"base_url":    "https://qa.marketplace.test/v1",
			"graphql_url": "https://qa.marketplace.test/graphql",
		},
	}})

	p, err := New(core.Config{Stage: "prod"}, WithConfigProvider(provider))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	if p.ServiceName() != "order-ingest-qa" {
		t.Fatalf("service name = %q", p.ServiceName())
	}
	if p.Stage() != "prod" {
		t.Fatalf("stage = %q, want runtime override to win", p.Stage())
	}
	if got := p.Config().Marketplace.BaseURL; got != "https://qa.marketplace.test/v1" {
		t.Fatalf("marketplace base url = %q", got)
	}
}

func TestPipelineCloseRunsClosersInReverse(t *testing.T) {
	var order []string
	p, err := New(testRuntimeConfig(),
		WithCloser(func() error { order = append(order, "first"); return nil }),
		WithCloser(func() error { order = append(order, "second"); return nil }),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if len(order) != 2 || order[0] != "second" || order[1] != "first" {
		t.Fatalf("closer order = %v", order)
	}
}

func TestPipelineNilReceivers(t *testing.T) {
	var p *Pipeline
	if p.WebhookHandler() != nil {
		t.Fatal("nil pipeline returned a webhook handler")
	}
	if p.ServiceName() != "" {
		t.Fatal("nil pipeline reported a service name")
	}
	if err := p.Close(); err != nil {
		t.Fatalf("nil Close: %v", err)
	}
	if _, err := p.RunDownloadOnce(context.Background()); err == nil {
		t.Fatal("expected error from nil RunDownloadOnce")
	}
}