package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"subscriptions-go/internal/logging"
	"subscriptions-go/internal/models"
	"subscriptions-go/internal/service"
	"subscriptions-go/internal/telemetry"
)

// SubscribeSpanName names the span that covers one subscription request from
// validation through the response.
const SubscribeSpanName = "Adding a new subscriber"

type SubscriberHandler struct {
	service *service.SubscriberService
	logger  *logging.ContextLogger
	tracer  trace.Tracer
}

func NewSubscriberHandler(service *service.SubscriberService, logger *logging.ContextLogger, tp trace.TracerProvider) *SubscriberHandler {
	return &SubscriberHandler{
		service: service,
		logger:  logger,
		tracer:  tp.Tracer("subscriber-handler"),
	}
}

// Subscribe handles POST /subscriptions: decode, validate, persist, respond.
// Every failure ends the request with a bare status code.
func (h *SubscriberHandler) Subscribe(c *gin.Context) {
	var form models.SubscriptionForm
	if err := c.ShouldBindWith(&form, binding.FormPost); err != nil {
		h.logger.WarnWithTracing(c.Request.Context(), "Rejected malformed subscription form", logrus.Fields{
			"endpoint": "POST /subscriptions",
			"error":    err.Error(),
		})
		c.Status(http.StatusBadRequest)
		return
	}

	attrs := []attribute.KeyValue{
		telemetry.AttrSubscriberEmail.String(form.Email),
		telemetry.AttrSubscriberName.String(form.Name),
	}
	if requestID, ok := telemetry.RequestIDFromContext(c.Request.Context()); ok {
		attrs = append(attrs, telemetry.AttrRequestID.String(requestID))
	}
	ctx, span := h.tracer.Start(c.Request.Context(), SubscribeSpanName, trace.WithAttributes(attrs...))
	defer span.End()

	subscriber, err := models.ParseNewSubscriber(form)
	if err != nil {
		var verr *models.ValidationError
		fields := logrus.Fields{"endpoint": "POST /subscriptions"}
		if errors.As(err, &verr) {
			fields["field"] = verr.Field
			fields["reason"] = verr.Reason
		}
		h.logger.WarnWithTracing(ctx, "Rejected invalid subscriber", fields)
		span.SetAttributes(attribute.Bool("success", false))
		c.Status(http.StatusBadRequest)
		return
	}

	if err := h.service.Subscribe(ctx, subscriber); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to save subscriber")
		c.Status(http.StatusInternalServerError)
		return
	}

	span.SetAttributes(attribute.Bool("success", true))
	c.Status(http.StatusOK)
}

// HealthCheck never touches the store.
func HealthCheck(c *gin.Context) {
	c.Status(http.StatusOK)
}
