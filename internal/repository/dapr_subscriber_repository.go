package repository

import (
	"context"
	"encoding/json"
	"fmt"

	dapr "github.com/dapr/go-sdk/client"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"subscriptions-go/internal/models"
)

// DaprSubscriberRepository stores each subscription as a JSON document keyed
// by its id in a Dapr state store.
type DaprSubscriberRepository struct {
	client    dapr.Client
	tracer    trace.Tracer
	storeName string
}

func NewDaprSubscriberRepository(client dapr.Client, storeName string, tp trace.TracerProvider) *DaprSubscriberRepository {
	return &DaprSubscriberRepository{
		client:    client,
		tracer:    tp.Tracer("dapr.repository"),
		storeName: storeName,
	}
}

func (r *DaprSubscriberRepository) Insert(ctx context.Context, subscriber models.NewSubscriber) error {
	subscription := models.NewSubscription(subscriber)

	ctx, span := startInsertSpan(ctx, r.tracer, subscription, "dapr")
	defer span.End()
	span.SetAttributes(attribute.String("dapr.store", r.storeName))

	data, err := json.Marshal(subscription)
	if err != nil {
		perr := &PersistenceError{Op: "marshal subscription", Err: err}
		recordFailure(span, perr)
		return perr
	}

	if err := r.client.SaveState(ctx, r.storeName, subscription.ID.String(), data, nil); err != nil {
		perr := &PersistenceError{Op: "save subscription to dapr state store", Err: fmt.Errorf("store %s: %w", r.storeName, err)}
		recordFailure(span, perr)
		return perr
	}

	recordSuccess(span)
	return nil
}
