package notify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// LinkBuilder produces a signed portal action link for a request/client pair.
// Injected from main so this package stays unaware of how links are signed.
type LinkBuilder func(requestID, clientID string) (string, error)

// Dispatcher sends transition notifications after the commit. A delivery
// failure is logged and swallowed: the transition already happened and must
// not be reported as failed because an email bounced.
type Dispatcher struct {
	Sender  Sender
	Links   LinkBuilder
	Ops     string // inbox for administrator-facing notices
	Timeout time.Duration
	Log     *zap.Logger
}

func NewDispatcher(sender Sender, links LinkBuilder, opsAddr string, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		Sender:  sender,
		Links:   links,
		Ops:     opsAddr,
		Timeout: 10 * time.Second,
		Log:     log,
	}
}

// NotifyClient emails the request's client, appending a signed decision link
// when one can be built.
func (d *Dispatcher) NotifyClient(requestID, clientID, clientEmail, subject, body string) {
	if d == nil || d.Sender == nil {
		return
	}
	if d.Links != nil {
		if link, err := d.Links(requestID, clientID); err == nil && link != "" {
			body = fmt.Sprintf("%s\n\n%s", body, link)
		} else if err != nil {
			d.Log.Warn("build portal link", zap.Error(err))
		}
	}
	d.deliver(clientEmail, subject, body)
}

// NotifyOps emails the administrators' inbox.
func (d *Dispatcher) NotifyOps(subject, body string) {
	if d == nil || d.Sender == nil || d.Ops == "" {
		return
	}
	d.deliver(d.Ops, subject, body)
}

func (d *Dispatcher) deliver(to, subject, body string) {
	ctx, cancel := context.WithTimeout(context.Background(), d.Timeout)
	defer cancel()

	if err := d.Sender.Send(ctx, to, subject, body); err != nil {
		// At-least-once is acceptable; a failed notification never unwinds
		// the committed transition.
		d.Log.Warn("notification delivery failed",
			zap.String("subject", subject),
			zap.Error(err),
		)
	}
}
