package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
)

type recordingSender struct {
	name   string
	titles []string
	err    error
}

func (r *recordingSender) Send(_ context.Context, title, _ string) error {
	if r.err != nil {
		return r.err
	}
	r.titles = append(r.titles, title)
	return nil
}

func (r *recordingSender) Name() string { return r.name }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotifyFiltersByEvent(t *testing.T) {
	s := &recordingSender{name: "test"}
	n := NewNotifier([]Sender{s}, []string{"absorption.entry"}, testLogger())

	if err := n.Notify(context.Background(), "order.placed", "placed", "body"); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(s.titles) != 0 {
		t.Fatalf("filtered event was delivered: %v", s.titles)
	}

	if err := n.Notify(context.Background(), "absorption.entry", "entry", "body"); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(s.titles) != 1 || s.titles[0] != "entry" {
		t.Fatalf("expected one delivery of %q, got %v", "entry", s.titles)
	}
}

func TestNotifyEmptyFilterAllowsAll(t *testing.T) {
	s := &recordingSender{name: "test"}
	n := NewNotifier([]Sender{s}, nil, testLogger())

	if err := n.Notify(context.Background(), "anything", "t", "m"); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(s.titles) != 1 {
		t.Fatalf("expected delivery, got %v", s.titles)
	}
}

func TestDispatchContinuesPastFailedSender(t *testing.T) {
	bad := &recordingSender{name: "bad", err: errors.New("boom")}
	good := &recordingSender{name: "good"}
	n := NewNotifier([]Sender{bad, good}, nil, testLogger())

	err := n.NotifyAll(context.Background(), "t", "m")
	if err == nil {
		t.Fatal("expected combined error from failing sender")
	}
	if len(good.titles) != 1 {
		t.Fatalf("healthy sender skipped after failure: %v", good.titles)
	}
}

func TestNotifyNoSenders(t *testing.T) {
	n := NewNotifier(nil, nil, testLogger())
	if err := n.NotifyAll(context.Background(), "t", "m"); err != nil {
		t.Fatalf("NotifyAll with no senders: %v", err)
	}
}
