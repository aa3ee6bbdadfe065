package repository

import (
	"context"
	"database/sql"

	"go.opentelemetry.io/otel/trace"

	"subscriptions-go/internal/models"
)

const insertSubscriptionSQL = `
	INSERT INTO subscriptions (id, email, name, subscribed_at)
	VALUES ($1, $2, $3, $4)
`

// PostgresSubscriberRepository writes to the subscriptions table through a
// shared pool. The pool handles its own concurrency.
type PostgresSubscriberRepository struct {
	db     *sql.DB
	tracer trace.Tracer
}

func NewPostgresSubscriberRepository(db *sql.DB, tp trace.TracerProvider) *PostgresSubscriberRepository {
	return &PostgresSubscriberRepository{
		db:     db,
		tracer: tp.Tracer(tracerName),
	}
}

func (r *PostgresSubscriberRepository) Insert(ctx context.Context, subscriber models.NewSubscriber) error {
	subscription := models.NewSubscription(subscriber)

	ctx, span := startInsertSpan(ctx, r.tracer, subscription, "postgresql")
	defer span.End()

	_, err := r.db.ExecContext(ctx, insertSubscriptionSQL,
		subscription.ID,
		subscription.Email,
		subscription.Name,
		subscription.SubscribedAt,
	)
	if err != nil {
		perr := &PersistenceError{Op: "insert subscription", Err: err}
		recordFailure(span, perr)
		return perr
	}

	recordSuccess(span)
	return nil
}
