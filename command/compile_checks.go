package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[AcceptOrderMessage]        = (*AcceptOrderCommand)(nil)
	_ gocmd.Commander[DeclineOrderMessage]       = (*DeclineOrderCommand)(nil)
	_ gocmd.Commander[CancelOrderMessage]        = (*CancelOrderCommand)(nil)
	_ gocmd.Commander[SubmitOrderMessage]        = (*SubmitOrderCommand)(nil)
	_ gocmd.Commander[SendMessageMessage]        = (*SendMessageCommand)(nil)
	_ gocmd.Commander[AddFilesMessage]           = (*AddFilesCommand)(nil)
	_ gocmd.Commander[RemoveFilesMessage]        = (*RemoveFilesCommand)(nil)
	_ gocmd.Commander[FulfillTitleSearchMessage] = (*FulfillTitleSearchCommand)(nil)
)
