package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
)

type fakeSender struct {
	to      string
	subject string
	body    string
	calls   int
	err     error
}

func (f *fakeSender) Send(ctx context.Context, to, subject, body string) error {
	f.calls++
	f.to, f.subject, f.body = to, subject, body
	return f.err
}

func TestNotifyClient_AppendsLink(t *testing.T) {
	sender := &fakeSender{}
	d := NewDispatcher(sender, func(requestID, clientID string) (string, error) {
		return "https://portal.example.test/portal/tok-" + requestID, nil
	}, "ops@example.test", zap.NewNop())

	d.NotifyClient("req-1", "client-1", "cliente@example.test", "Data proposta", "Foi proposta uma data.")

	if sender.calls != 1 {
		t.Fatalf("expected 1 delivery, got %d", sender.calls)
	}
	if sender.to != "cliente@example.test" {
		t.Fatalf("unexpected recipient %q", sender.to)
	}
	if !strings.Contains(sender.body, "https://portal.example.test/portal/tok-req-1") {
		t.Fatalf("body missing portal link: %q", sender.body)
	}
}

func TestNotifyClient_LinkFailureStillDelivers(t *testing.T) {
	sender := &fakeSender{}
	d := NewDispatcher(sender, func(requestID, clientID string) (string, error) {
		return "", errors.New("signer unavailable")
	}, "", zap.NewNop())

	d.NotifyClient("req-1", "client-1", "cliente@example.test", "Data proposta", "corpo")

	if sender.calls != 1 {
		t.Fatalf("expected delivery despite link failure, got %d calls", sender.calls)
	}
	if strings.Contains(sender.body, "portal") {
		t.Fatalf("body should not contain a link: %q", sender.body)
	}
}

func TestDeliveryFailureIsSwallowed(t *testing.T) {
	sender := &fakeSender{err: errors.New("smtp: connection refused")}
	d := NewDispatcher(sender, nil, "ops@example.test", zap.NewNop())

	// Must not panic or surface the error to the caller.
	d.NotifyClient("req-1", "client-1", "cliente@example.test", "Assunto", "corpo")
	d.NotifyOps("Assunto", "corpo")

	if sender.calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", sender.calls)
	}
}

func TestNilDispatcherIsSafe(t *testing.T) {
	var d *Dispatcher
	d.NotifyClient("req-1", "client-1", "a@b", "s", "b")
	d.NotifyOps("s", "b")
}

func TestNotifyOps_SkippedWithoutInbox(t *testing.T) {
	sender := &fakeSender{}
	d := NewDispatcher(sender, nil, "", zap.NewNop())
	d.NotifyOps("Assunto", "corpo")
	if sender.calls != 0 {
		t.Fatalf("expected no delivery without an ops inbox")
	}
}
