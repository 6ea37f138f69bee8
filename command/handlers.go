package command

import (
	"context"
	"encoding/json"

	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-order-ingest/qualia"
)

// MarketplaceService is the subset of the marketplace client the commands
// need. Results come back as the raw GraphQL payload so callers can inspect
// the returned order status details.
type MarketplaceService interface {
	AcceptOrder(ctx context.Context, orderID string) (json.RawMessage, error)
	DeclineOrder(ctx context.Context, orderID string, reason string) (json.RawMessage, error)
	CancelOrder(ctx context.Context, orderID string, reason string) (json.RawMessage, error)
	SubmitOrder(ctx context.Context, orderID string) (json.RawMessage, error)
	SendMessage(ctx context.Context, orderID string, text string, attachments []qualia.File) (json.RawMessage, error)
	AddFiles(ctx context.Context, orderID string, files []qualia.File) (json.RawMessage, error)
	RemoveFiles(ctx context.Context, orderID string, fileIDs []string) (json.RawMessage, error)
	FulfillTitleSearch(ctx context.Context, orderID string, form map[string]any) (json.RawMessage, error)
}

type AcceptOrderCommand struct {
	service MarketplaceService
}

func NewAcceptOrderCommand(service MarketplaceService) *AcceptOrderCommand {
	return &AcceptOrderCommand{service: service}
}

func (c *AcceptOrderCommand) Execute(ctx context.Context, msg AcceptOrderMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: marketplace service is required")
	}
	out, err := c.service.AcceptOrder(ctx, msg.OrderID)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type DeclineOrderCommand struct {
	service MarketplaceService
}

func NewDeclineOrderCommand(service MarketplaceService) *DeclineOrderCommand {
	return &DeclineOrderCommand{service: service}
}

func (c *DeclineOrderCommand) Execute(ctx context.Context, msg DeclineOrderMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: marketplace service is required")
	}
	out, err := c.service.DeclineOrder(ctx, msg.OrderID, msg.Reason)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type CancelOrderCommand struct {
	service MarketplaceService
}

func NewCancelOrderCommand(service MarketplaceService) *CancelOrderCommand {
	return &CancelOrderCommand{service: service}
}

func (c *CancelOrderCommand) Execute(ctx context.Context, msg CancelOrderMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: marketplace service is required")
	}
	out, err := c.service.CancelOrder(ctx, msg.OrderID, msg.Reason)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type SubmitOrderCommand struct {
	service MarketplaceService
}

func NewSubmitOrderCommand(service MarketplaceService) *SubmitOrderCommand {
	return &SubmitOrderCommand{service: service}
}

func (c *SubmitOrderCommand) Execute(ctx context.Context, msg SubmitOrderMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: marketplace service is required")
	}
	out, err := c.service.SubmitOrder(ctx, msg.OrderID)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type SendMessageCommand struct {
	service MarketplaceService
}

func NewSendMessageCommand(service MarketplaceService) *SendMessageCommand {
	return &SendMessageCommand{service: service}
}

func (c *SendMessageCommand) Execute(ctx context.Context, msg SendMessageMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: marketplace service is required")
	}
	out, err := c.service.SendMessage(ctx, msg.OrderID, msg.Text, msg.Attachments)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type AddFilesCommand struct {
	service MarketplaceService
}

func NewAddFilesCommand(service MarketplaceService) *AddFilesCommand {
	return &AddFilesCommand{service: service}
}

func (c *AddFilesCommand) Execute(ctx context.Context, msg AddFilesMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: marketplace service is required")
	}
	out, err := c.service.AddFiles(ctx, msg.OrderID, msg.Files)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type RemoveFilesCommand struct {
	service MarketplaceService
}

func NewRemoveFilesCommand(service MarketplaceService) *RemoveFilesCommand {
	return &RemoveFilesCommand{service: service}
}

func (c *RemoveFilesCommand) Execute(ctx context.Context, msg RemoveFilesMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: marketplace service is required")
	}
	out, err := c.service.RemoveFiles(ctx, msg.OrderID, msg.FileIDs)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type FulfillTitleSearchCommand struct {
	service MarketplaceService
}

func NewFulfillTitleSearchCommand(service MarketplaceService) *FulfillTitleSearchCommand {
	return &FulfillTitleSearchCommand{service: service}
}

func (c *FulfillTitleSearchCommand) Execute(ctx context.Context, msg FulfillTitleSearchMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: marketplace service is required")
	}
	out, err := c.service.FulfillTitleSearch(ctx, msg.OrderID, msg.Form)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
