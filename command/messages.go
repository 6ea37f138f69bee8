// Package command exposes the marketplace order mutations as typed
// go-command messages so callers dispatch AcceptOrder and friends the same
// way they dispatch any other command in the system.
package command

import (
	"strings"

	"github.com/goliatone/go-order-ingest/qualia"
)

const (
	TypeAcceptOrder        = "orders.command.accept"
	TypeDeclineOrder       = "orders.command.decline"
	TypeCancelOrder        = "orders.command.cancel"
	TypeSubmitOrder        = "orders.command.submit"
	TypeSendMessage        = "orders.command.message.send"
	TypeAddFiles           = "orders.command.files.add"
	TypeRemoveFiles        = "orders.command.files.remove"
	TypeFulfillTitleSearch = "orders.command.title_search.fulfill"
)

type AcceptOrderMessage struct {
	OrderID string
}

func (AcceptOrderMessage) Type() string { return TypeAcceptOrder }

func (m AcceptOrderMessage) Validate() error {
	return validateOrderID(m.OrderID)
}

type DeclineOrderMessage struct {
	OrderID string
	Reason  string
}

func (DeclineOrderMessage) Type() string { return TypeDeclineOrder }

func (m DeclineOrderMessage) Validate() error {
	if err := validateOrderID(m.OrderID); err != nil {
		return err
	}
	if strings.TrimSpace(m.Reason) == "" {
		return commandValidationError("reason", "decline reason is required")
	}
	return nil
}

type CancelOrderMessage struct {
	OrderID string
	Reason  string
}

func (CancelOrderMessage) Type() string { return TypeCancelOrder }

func (m CancelOrderMessage) Validate() error {
	if err := validateOrderID(m.OrderID); err != nil {
		return err
	}
	if strings.TrimSpace(m.Reason) == "" {
		return commandValidationError("reason", "cancellation reason is required")
	}
	return nil
}

type SubmitOrderMessage struct {
	OrderID string
}

func (SubmitOrderMessage) Type() string { return TypeSubmitOrder }

func (m SubmitOrderMessage) Validate() error {
	return validateOrderID(m.OrderID)
}

type SendMessageMessage struct {
	OrderID     string
	Text        string
	Attachments []qualia.File
}

func (SendMessageMessage) Type() string { return TypeSendMessage }

func (m SendMessageMessage) Validate() error {
	if err := validateOrderID(m.OrderID); err != nil {
		return err
	}
	if strings.TrimSpace(m.Text) == "" {
		return commandValidationError("text", "message text is required")
	}
	return validateFiles(m.Attachments, false)
}

type AddFilesMessage struct {
	OrderID string
	Files   []qualia.File
}

func (AddFilesMessage) Type() string { return TypeAddFiles }

func (m AddFilesMessage) Validate() error {
	if err := validateOrderID(m.OrderID); err != nil {
		return err
	}
	return validateFiles(m.Files, true)
}

type RemoveFilesMessage struct {
	OrderID string
	FileIDs []string
}

func (RemoveFilesMessage) Type() string { return TypeRemoveFiles }

func (m RemoveFilesMessage) Validate() error {
	if err := validateOrderID(m.OrderID); err != nil {
		return err
	}
	if len(m.FileIDs) == 0 {
		return commandValidationError("file_ids", "at least one file id is required")
	}
	for _, fileID := range m.FileIDs {
		if strings.TrimSpace(fileID) == "" {
			return commandValidationError("file_ids", "file ids cannot be blank")
		}
	}
	return nil
}

type FulfillTitleSearchMessage struct {
	OrderID string
	Form    map[string]any
}

func (FulfillTitleSearchMessage) Type() string { return TypeFulfillTitleSearch }

func (m FulfillTitleSearchMessage) Validate() error {
	if err := validateOrderID(m.OrderID); err != nil {
		return err
	}
	if len(m.Form) == 0 {
		return commandValidationError("form", "title search form data is required")
	}
	return nil
}

func validateOrderID(orderID string) error {
	if strings.TrimSpace(orderID) == "" {
		return commandValidationError("order_id", "order id is required")
	}
	return nil
}

func validateFiles(files []qualia.File, required bool) error {
	if len(files) == 0 {
		if required {
			return commandValidationError("files", "at least one file is required")
		}
		return nil
	}
	for _, file := range files {
		if strings.TrimSpace(file.Name) == "" {
			return commandValidationError("files", "file name is required")
		}
		if strings.TrimSpace(file.Base64) == "" {
			return commandValidationError("files", "file content is required")
		}
	}
	return nil
}
