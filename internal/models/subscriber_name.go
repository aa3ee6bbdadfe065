package models

import (
	"strings"
	"unicode/utf8"

	"github.com/rivo/uniseg"
)

const (
	maxNameGraphemes    = 256
	forbiddenCharacters = `/()"<>\{}`
)

// SubscriberName is a name that passed ParseSubscriberName.
type SubscriberName struct {
	value string
}

// ParseSubscriberName rejects names that are not valid UTF-8, are blank, are
// longer than 256 user-perceived characters, or contain any of
// / ( ) " < > \ { }. The original string, whitespace included, is kept on
// success.
func ParseSubscriberName(raw string) (SubscriberName, error) {
	if !utf8.ValidString(raw) {
		return SubscriberName{}, &ValidationError{Field: "name", Reason: "not valid UTF-8"}
	}
	if strings.TrimSpace(raw) == "" {
		return SubscriberName{}, &ValidationError{Field: "name", Reason: "empty or whitespace only"}
	}
	if uniseg.GraphemeClusterCount(raw) > maxNameGraphemes {
		return SubscriberName{}, &ValidationError{Field: "name", Reason: "longer than 256 characters"}
	}
	if strings.ContainsAny(raw, forbiddenCharacters) {
		return SubscriberName{}, &ValidationError{Field: "name", Reason: "contains a forbidden character"}
	}
	return SubscriberName{value: raw}, nil
}

func (n SubscriberName) String() string {
	return n.value
}
