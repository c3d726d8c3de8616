// Package channel connects messaging providers to the dialogue engine. The
// provider webhooks carry no dialogue state, so the relay plays the caller's
// part: it stores the state each turn returns and echoes it on the next one.
package channel

import (
	"context"
	"errors"

	"github.com/hackgods/salon-booking-assistant/internal/dialogue"
	"github.com/hackgods/salon-booking-assistant/internal/session"
)

const (
	WhatsAppName = "whatsapp"
	MSG91Name    = "msg91"
)

var ErrUnsupportedPayload = errors.New("unsupported webhook payload")

// Inbound is one customer message normalized from a provider payload.
type Inbound struct {
	Channel   string
	Sender    string
	MessageID string
	Text      string
	Button    string
}

// Outbound is a reply addressed to a sender on the same channel.
type Outbound struct {
	To      string
	Text    string
	Buttons []dialogue.Button
}

type Sender interface {
	Send(ctx context.Context, msg Outbound) error
}

// Turner runs one dialogue turn. *dialogue.Engine implements it.
type Turner interface {
	Handle(ctx context.Context, req dialogue.Request) dialogue.Response
}

type StateStore interface {
	Load(ctx context.Context, channel, sender string) (session.State, error)
	Save(ctx context.Context, channel, sender string, st session.State) error
}

type Locker interface {
	WithKeyLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

type Deduper interface {
	FirstSeen(ctx context.Context, channel, messageID string) (bool, error)
	Forget(ctx context.Context, channel, messageID string) error
}

var _ Turner = (*dialogue.Engine)(nil)
