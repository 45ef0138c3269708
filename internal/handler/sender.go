// ABOUTME: Narrow collaborator interfaces handlers depend on, so they can be
// ABOUTME: tested without a real platform client or agent adapter.

package handler

import (
	"context"

	"github.com/csgw/gateway/internal/model"
)

// Sender delivers a text reply to the event's sender on behalf of an
// account. Satisfied by *platform.Client.
type Sender interface {
	SendMessage(ctx context.Context, acct *model.Account, toUID, text string) error
}

// Replier produces an AI-generated reply for an event. Satisfied by
// *agentbot.Adapter.
type Replier interface {
	Reply(ctx context.Context, acct *model.Account, event *model.Event) (string, error)
}

// Transferrer hands a conversation off to a human customer-service seat.
// Satisfied by *platform.Client.
type Transferrer interface {
	AssignCsList(ctx context.Context, acct *model.Account) ([]string, error)
	TransferConversation(ctx context.Context, acct *model.Account, toUID, csUID string) error
}
