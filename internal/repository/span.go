package repository

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const attributeDBSystem = attribute.Key("db.system")

func recordSuccess(span trace.Span) {
	span.SetAttributes(attribute.Bool("success", true))
}

func recordFailure(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, "insert failed")
	span.SetAttributes(attribute.Bool("success", false))
}
