package services

import (
	"context"
	"errors"
	"testing"

	"findash/internal/amqp"
	"findash/internal/core"
	"findash/internal/ledger/memory"
)

type recordingPublisher struct {
	events []string
	fail   bool
	closed bool
}

func (p *recordingPublisher) PublishTransactionEvent(_ context.Context, id int64, action string) error {
	if p.fail {
		return errors.New("bus down")
	}
	p.events = append(p.events, action)
	return nil
}

func (p *recordingPublisher) Close() error {
	p.closed = true
	return nil
}

func validTx() core.Transaction {
	return core.Transaction{
		Amount:      core.Money{Cents: 5000},
		Description: "Lunch",
		Category:    core.Food,
		Type:        core.TypeExpense,
	}
}

func TestCreatePublishesEvent(t *testing.T) {
	pub := &recordingPublisher{}
	svc := New(memory.New(), pub, nil)
	ctx := context.Background()

	created, err := svc.CreateTransaction(ctx, validTx())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == 0 {
		t.Fatalf("expected assigned id")
	}
	if len(pub.events) != 1 || pub.events[0] != amqp.ActionCreated {
		t.Fatalf("expected created event, got %v", pub.events)
	}

	if err := svc.DeleteTransaction(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(pub.events) != 2 || pub.events[1] != amqp.ActionDeleted {
		t.Fatalf("expected deleted event, got %v", pub.events)
	}
}

func TestPublishFailureDoesNotFailRequest(t *testing.T) {
	pub := &recordingPublisher{fail: true}
	svc := New(memory.New(), pub, nil)

	created, err := svc.CreateTransaction(context.Background(), validTx())
	if err != nil {
		t.Fatalf("create should succeed despite publish failure, got %v", err)
	}

	// the transaction really is stored
	if _, err := svc.GetTransaction(context.Background(), created.ID); err != nil {
		t.Fatalf("get: %v", err)
	}
}

func TestNilPublisher(t *testing.T) {
	svc := New(memory.New(), nil, nil)
	if _, err := svc.CreateTransaction(context.Background(), validTx()); err != nil {
		t.Fatalf("create with nil publisher: %v", err)
	}
	if err := svc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestValidationErrorPropagates(t *testing.T) {
	pub := &recordingPublisher{}
	svc := New(memory.New(), pub, nil)

	bad := validTx()
	bad.Amount = core.Money{Cents: 0}
	_, err := svc.CreateTransaction(context.Background(), bad)
	var verr *core.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(pub.events) != 0 {
		t.Fatalf("no event for failed create, got %v", pub.events)
	}
}

func TestCloseReleasesResources(t *testing.T) {
	pub := &recordingPublisher{}
	cleaned := false
	svc := New(memory.New(), pub, func() error {
		cleaned = true
		return nil
	})
	if err := svc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !pub.closed || !cleaned {
		t.Fatalf("expected publisher closed and cleanup run")
	}
}
