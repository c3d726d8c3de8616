package channel

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hackgods/salon-booking-assistant/internal/dialogue"
)

// Relay runs inbound provider messages through the dialogue engine and sends
// the reply back on the channel the message came from.
type Relay struct {
	engine  Turner
	states  StateStore
	locker  Locker
	dedupe  Deduper
	senders map[string]Sender
	logger  *zap.Logger
}

func NewRelay(engine Turner, states StateStore, locker Locker, dedupe Deduper, logger *zap.Logger) *Relay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{
		engine:  engine,
		states:  states,
		locker:  locker,
		dedupe:  dedupe,
		senders: make(map[string]Sender),
		logger:  logger,
	}
}

// Register sets the outbound client for a channel name.
func (r *Relay) Register(channel string, s Sender) {
	r.senders[channel] = s
}

// Deliver processes one inbound message. An error means nothing was done and
// the provider may retry. A reply that fails to send is logged only: the
// turn's state and any booking change are already committed.
func (r *Relay) Deliver(ctx context.Context, in Inbound) error {
	if in.MessageID != "" {
		first, err := r.dedupe.FirstSeen(ctx, in.Channel, in.MessageID)
		if err != nil {
			return err
		}
		if !first {
			r.logger.Info("duplicate webhook delivery ignored",
				zap.String("channel", in.Channel),
				zap.String("message_id", in.MessageID),
			)
			return nil
		}
	}

	err := r.locker.WithKeyLock(ctx, in.Channel+":"+in.Sender, func(ctx context.Context) error {
		return r.turn(ctx, in)
	})
	if err != nil {
		if in.MessageID != "" {
			if ferr := r.dedupe.Forget(ctx, in.Channel, in.MessageID); ferr != nil {
				r.logger.Warn("failed to release message id", zap.String("message_id", in.MessageID), zap.Error(ferr))
			}
		}
		return fmt.Errorf("deliver %s message: %w", in.Channel, err)
	}
	return nil
}

func (r *Relay) turn(ctx context.Context, in Inbound) error {
	st, err := r.states.Load(ctx, in.Channel, in.Sender)
	if err != nil {
		return err
	}

	resp := r.engine.Handle(ctx, dialogue.Request{
		Text:        in.Text,
		Button:      in.Button,
		Step:        st.Step,
		Phone:       st.Phone,
		TempBooking: st.Draft,
		Version:     st.Version,
	})

	if err := r.states.Save(ctx, in.Channel, in.Sender, resp.State()); err != nil {
		r.logger.Error("failed to save conversation state",
			zap.String("channel", in.Channel),
			zap.String("sender", in.Sender),
			zap.Error(err),
		)
	}

	sender, ok := r.senders[in.Channel]
	if !ok {
		r.logger.Error("no sender registered for channel", zap.String("channel", in.Channel))
		return nil
	}
	out := Outbound{To: in.Sender, Text: resp.Reply, Buttons: resp.Buttons}
	if err := sender.Send(ctx, out); err != nil {
		r.logger.Warn("failed to deliver reply",
			zap.String("channel", in.Channel),
			zap.String("sender", in.Sender),
			zap.String("next_step", string(resp.NextStep)),
			zap.Error(err),
		)
	}
	return nil
}
