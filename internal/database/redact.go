package database

import (
	"net/url"
	"strings"

	"subscriptions-go/internal/config"
)

// redact strips the DSN and its password out of driver errors, which may
// echo the URL they were given.
func redact(err error, dsn config.Secret) error {
	if err == nil {
		return nil
	}

	msg := err.Error()
	cleaned := msg
	for _, secret := range sensitiveParts(dsn.Expose()) {
		cleaned = strings.ReplaceAll(cleaned, secret, "[REDACTED]")
	}
	if cleaned == msg {
		return err
	}
	return &redactedError{msg: cleaned, err: err}
}

// redactedError prints the scrubbed message but keeps the original in the
// chain for errors.Is and errors.As.
type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string {
	return e.msg
}

func (e *redactedError) Unwrap() error {
	return e.err
}

// sensitiveParts lists the DSN itself, then its password in escaped and
// unescaped form, longest first.
func sensitiveParts(dsn string) []string {
	if dsn == "" {
		return nil
	}
	parts := []string{dsn}

	rest, ok := strings.CutPrefix(dsn, "postgres://")
	if !ok {
		return parts
	}
	userinfo, _, ok := strings.Cut(rest, "@")
	if !ok {
		return parts
	}
	_, escaped, ok := strings.Cut(userinfo, ":")
	if !ok || escaped == "" {
		return parts
	}
	parts = append(parts, escaped)
	if unescaped, err := url.PathUnescape(escaped); err == nil && unescaped != escaped {
		parts = append(parts, unescaped)
	}
	return parts
}
