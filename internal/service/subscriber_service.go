package service

import (
	"context"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"subscriptions-go/internal/logging"
	"subscriptions-go/internal/models"
	"subscriptions-go/internal/repository"
	"subscriptions-go/internal/telemetry"
)

// SaveSpanName names the child span covering the database write.
const SaveSpanName = "Saving new subscriber details in the database"

type SubscriberService struct {
	repo   repository.SubscriberRepository
	logger *logging.ContextLogger
	tracer trace.Tracer
}

func NewSubscriberService(repo repository.SubscriberRepository, logger *logging.ContextLogger, tp trace.TracerProvider) *SubscriberService {
	return &SubscriberService{
		repo:   repo,
		logger: logger,
		tracer: tp.Tracer("subscriber-service"),
	}
}

// Subscribe persists a validated subscriber in a single attempt.
func (s *SubscriberService) Subscribe(ctx context.Context, subscriber models.NewSubscriber) error {
	ctx, span := s.tracer.Start(ctx, SaveSpanName,
		trace.WithAttributes(
			telemetry.AttrSubscriberEmail.String(subscriber.Email.String()),
			telemetry.AttrSubscriberName.String(subscriber.Name.String()),
		))
	defer span.End()

	s.logger.DebugWithTracing(ctx, "Saving new subscriber details in the database", logrus.Fields{
		"subscriber_email": subscriber.Email.String(),
	})

	if err := s.repo.Insert(ctx, subscriber); err != nil {
		s.logger.ErrorWithTracing(ctx, "Failed to execute query", err, logrus.Fields{
			"subscriber_email": subscriber.Email.String(),
		})
		span.RecordError(err)
		return err
	}

	s.logger.InfoWithTracing(ctx, "New subscriber details have been saved", logrus.Fields{
		"subscriber_email": subscriber.Email.String(),
	})
	span.SetAttributes(attribute.Bool("success", true))

	return nil
}
