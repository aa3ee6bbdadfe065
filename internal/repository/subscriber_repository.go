package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"subscriptions-go/internal/models"
	"subscriptions-go/internal/telemetry"
)

const tracerName = "subscriber-repository"

// SubscriberRepository stores validated subscribers. Insert makes exactly one
// attempt and reports failures as *PersistenceError.
type SubscriberRepository interface {
	Insert(ctx context.Context, subscriber models.NewSubscriber) error
}

type InMemorySubscriberRepository struct {
	mu            sync.RWMutex
	subscriptions map[uuid.UUID]*models.Subscription
	order         []uuid.UUID
	tracer        trace.Tracer
}

func NewInMemorySubscriberRepository(tp trace.TracerProvider) *InMemorySubscriberRepository {
	return &InMemorySubscriberRepository{
		subscriptions: make(map[uuid.UUID]*models.Subscription),
		tracer:        tp.Tracer(tracerName),
	}
}

func (r *InMemorySubscriberRepository) Insert(ctx context.Context, subscriber models.NewSubscriber) error {
	subscription := models.NewSubscription(subscriber)

	_, span := startInsertSpan(ctx, r.tracer, subscription, "memory")
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.subscriptions[subscription.ID]; exists {
		err := &PersistenceError{Op: "insert subscription", Err: fmt.Errorf("subscription %s already exists", subscription.ID)}
		recordFailure(span, err)
		return err
	}

	r.subscriptions[subscription.ID] = subscription
	r.order = append(r.order, subscription.ID)
	recordSuccess(span)
	return nil
}

// All returns stored subscriptions in insertion order.
func (r *InMemorySubscriberRepository) All() []models.Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Subscription, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.subscriptions[id])
	}
	return out
}

func startInsertSpan(ctx context.Context, tracer trace.Tracer, subscription *models.Subscription, system string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "subscriber.repository.insert",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			telemetry.AttrSubscriberID.String(subscription.ID.String()),
			telemetry.AttrSubscriberEmail.String(subscription.Email),
			telemetry.AttrOperation.String("database.write"),
			attributeDBSystem.String(system),
		))
}
