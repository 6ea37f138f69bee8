package command

import (
	"context"
	"encoding/json"
	"testing"

	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-order-ingest/qualia"
)

type stubMarketplaceService struct {
	acceptFn             func(ctx context.Context, orderID string) (json.RawMessage, error)
	declineFn            func(ctx context.Context, orderID string, reason string) (json.RawMessage, error)
	cancelFn             func(ctx context.Context, orderID string, reason string) (json.RawMessage, error)
	submitFn             func(ctx context.Context, orderID string) (json.RawMessage, error)
	sendMessageFn        func(ctx context.Context, orderID string, text string, attachments []qualia.File) (json.RawMessage, error)
	addFilesFn           func(ctx context.Context, orderID string, files []qualia.File) (json.RawMessage, error)
	removeFilesFn        func(ctx context.Context, orderID string, fileIDs []string) (json.RawMessage, error)
	fulfillTitleSearchFn func(ctx context.Context, orderID string, form map[string]any) (json.RawMessage, error)
}

func (s stubMarketplaceService) AcceptOrder(ctx context.Context, orderID string) (json.RawMessage, error) {
	return s.acceptFn(ctx, orderID)
}

func (s stubMarketplaceService) DeclineOrder(ctx context.Context, orderID string, reason string) (json.RawMessage, error) {
	return s.declineFn(ctx, orderID, reason)
}

func (s stubMarketplaceService) CancelOrder(ctx context.Context, orderID string, reason string) (json.RawMessage, error) {
	return s.cancelFn(ctx, orderID, reason)
}

func (s stubMarketplaceService) SubmitOrder(ctx context.Context, orderID string) (json.RawMessage, error) {
	return s.submitFn(ctx, orderID)
}

func (s stubMarketplaceService) SendMessage(ctx context.Context, orderID string, text string, attachments []qualia.File) (json.RawMessage, error) {
	return s.sendMessageFn(ctx, orderID, text, attachments)
}

func (s stubMarketplaceService) AddFiles(ctx context.Context, orderID string, files []qualia.File) (json.RawMessage, error) {
	return s.addFilesFn(ctx, orderID, files)
}

func (s stubMarketplaceService) RemoveFiles(ctx context.Context, orderID string, fileIDs []string) (json.RawMessage, error) {
	return s.removeFilesFn(ctx, orderID, fileIDs)
}

func (s stubMarketplaceService) FulfillTitleSearch(ctx context.Context, orderID string, form map[string]any) (json.RawMessage, error) {
	return s.fulfillTitleSearchFn(ctx, orderID, form)
}

func TestAcceptOrderCommand_ExecuteDelegatesAndStoresResult(t *testing.T) {
	expected := json.RawMessage(`{"accept_order":{"order":{"status":"ACCEPTED"}}}`)
	called := false

	svc := stubMarketplaceService{
		acceptFn: func(_ context.Context, orderID string) (json.RawMessage, error) {
			called = true
			if orderID != "QO-1" {
				t.Fatalf("expected order QO-1, got %q", orderID)
			}
			return expected, nil
		},
	}

	cmd := NewAcceptOrderCommand(svc)
	collector := gocmd.NewResult[json.RawMessage]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	if err := cmd.Execute(ctx, AcceptOrderMessage{OrderID: "QO-1"}); err != nil {
		t.Fatalf("execute accept: %v", err)
	}
	if !called {
		t.Fatalf("expected accept service invocation")
	}
	result, ok := collector.Load()
	if !ok {
		t.Fatalf("expected result to be stored")
	}
	if string(result) != string(expected) {
		t.Fatalf("unexpected result: %s", result)
	}
}

func TestMutationCommands_DelegateToService(t *testing.T) {
	t.Run("decline", func(t *testing.T) {
		called := false
		svc := stubMarketplaceService{
			declineFn: func(_ context.Context, orderID string, reason string) (json.RawMessage, error) {
				called = true
				if orderID != "QO-2" || reason != "out of coverage area" {
					t.Fatalf("unexpected decline payload: %q %q", orderID, reason)
				}
				return json.RawMessage(`{}`), nil
			},
		}
		cmd := NewDeclineOrderCommand(svc)
		if err := cmd.Execute(context.Background(), DeclineOrderMessage{OrderID: "QO-2", Reason: "out of coverage area"}); err != nil {
			t.Fatalf("execute decline: %v", err)
		}
		if !called {
			t.Fatalf("expected decline invocation")
		}
	})

	t.Run("cancel", func(t *testing.T) {
		called := false
		svc := stubMarketplaceService{
			cancelFn: func(_ context.Context, orderID string, reason string) (json.RawMessage, error) {
				called = true
				if orderID != "QO-3" || reason != "duplicate order" {
					t.Fatalf("unexpected cancel payload: %q %q", orderID, reason)
				}
				return json.RawMessage(`{}`), nil
			},
		}
		cmd := NewCancelOrderCommand(svc)
		if err := cmd.Execute(context.Background(), CancelOrderMessage{OrderID: "QO-3", Reason: "duplicate order"}); err != nil {
			t.Fatalf("execute cancel: %v", err)
		}
		if !called {
			t.Fatalf("expected cancel invocation")
		}
	})

	t.Run("submit", func(t *testing.T) {
		called := false
		svc := stubMarketplaceService{
			submitFn: func(_ context.Context, orderID string) (json.RawMessage, error) {
				called = true
				return json.RawMessage(`{}`), nil
			},
		}
		cmd := NewSubmitOrderCommand(svc)
		if err := cmd.Execute(context.Background(), SubmitOrderMessage{OrderID: "QO-4"}); err != nil {
			t.Fatalf("execute submit: %v", err)
		}
		if !called {
			t.Fatalf("expected submit invocation")
		}
	})

	t.Run("send message with attachment", func(t *testing.T) {
		called := false
		svc := stubMarketplaceService{
			sendMessageFn: func(_ context.Context, orderID string, text string, attachments []qualia.File) (json.RawMessage, error) {
				called = true
				if text != "title commitment attached" {
					t.Fatalf("unexpected text %q", text)
				}
				if len(attachments) != 1 || attachments[0].Name != "commitment.pdf" {
					t.Fatalf("unexpected attachments: %#v", attachments)
				}
				return json.RawMessage(`{}`), nil
			},
		}
		cmd := NewSendMessageCommand(svc)
		err := cmd.Execute(context.Background(), SendMessageMessage{
			OrderID:     "QO-5",
			Text:        "title commitment attached",
			Attachments: []qualia.File{{Name: "commitment.pdf", Base64: "ZGF0YQ=="}},
		})
		if err != nil {
			t.Fatalf("execute send message: %v", err)
		}
		if !called {
			t.Fatalf("expected send message invocation")
		}
	})

	t.Run("file commands", func(t *testing.T) {
		calledAdd := false
		calledRemove := false
		svc := stubMarketplaceService{
			addFilesFn: func(_ context.Context, orderID string, files []qualia.File) (json.RawMessage, error) {
				calledAdd = true
				if len(files) != 1 {
					t.Fatalf("expected one file, got %d", len(files))
				}
				return json.RawMessage(`{}`), nil
			},
			removeFilesFn: func(_ context.Context, orderID string, fileIDs []string) (json.RawMessage, error) {
				calledRemove = true
				if len(fileIDs) != 2 {
					t.Fatalf("expected two file ids, got %d", len(fileIDs))
				}
				return json.RawMessage(`{}`), nil
			},
		}
		addCmd := NewAddFilesCommand(svc)
		if err := addCmd.Execute(context.Background(), AddFilesMessage{
			OrderID: "QO-6",
			Files:   []qualia.File{{Name: "report.pdf", Base64: "ZGF0YQ==", IsPrimary: true}},
		}); err != nil {
			t.Fatalf("execute add files: %v", err)
		}
		removeCmd := NewRemoveFilesCommand(svc)
		if err := removeCmd.Execute(context.Background(), RemoveFilesMessage{
			OrderID: "QO-6",
			FileIDs: []string{"file_1", "file_2"},
		}); err != nil {
			t.Fatalf("execute remove files: %v", err)
		}
		if !calledAdd || !calledRemove {
			t.Fatalf("expected both file commands to be invoked")
		}
	})

	t.Run("fulfill title search", func(t *testing.T) {
		called := false
		svc := stubMarketplaceService{
			fulfillTitleSearchFn: func(_ context.Context, orderID string, form map[string]any) (json.RawMessage, error) {
				called = true
				if form["effective_date"] != "2026-08-15" {
					t.Fatalf("unexpected form: %#v", form)
				}
				return json.RawMessage(`{}`), nil
			},
		}
		cmd := NewFulfillTitleSearchCommand(svc)
		err := cmd.Execute(context.Background(), FulfillTitleSearchMessage{
			OrderID: "QO-7",
			Form:    map[string]any{"effective_date": "2026-08-15"},
		})
		if err != nil {
			t.Fatalf("execute fulfill title search: %v", err)
		}
		if !called {
			t.Fatalf("expected fulfill invocation")
		}
	})
}

func TestMessageValidation(t *testing.T) {
	cases := []struct {
		name string
		err  error
	}{
		{"accept missing order", AcceptOrderMessage{}.Validate()},
		{"decline missing reason", DeclineOrderMessage{OrderID: "QO-1"}.Validate()},
		{"cancel missing reason", CancelOrderMessage{OrderID: "QO-1"}.Validate()},
		{"send message missing text", SendMessageMessage{OrderID: "QO-1"}.Validate()},
		{"add files empty", AddFilesMessage{OrderID: "QO-1"}.Validate()},
		{"add files blank name", AddFilesMessage{OrderID: "QO-1", Files: []qualia.File{{Base64: "ZGF0YQ=="}}}.Validate()},
		{"remove files empty", RemoveFilesMessage{OrderID: "QO-1"}.Validate()},
		{"title search empty form", FulfillTitleSearchMessage{OrderID: "QO-1"}.Validate()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}

	valid := []error{
		AcceptOrderMessage{OrderID: "QO-1"}.Validate(),
		DeclineOrderMessage{OrderID: "QO-1", Reason: "no capacity"}.Validate(),
		SendMessageMessage{OrderID: "QO-1", Text: "hello"}.Validate(),
	}
	for i, err := range valid {
		if err != nil {
			t.Fatalf("expected valid message %d, got %v", i, err)
		}
	}
}
