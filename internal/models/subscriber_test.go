package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSubscriberEmail(t *testing.T) {
	valid := []string{"ursula_le_guin@gmail.com", "a.b+c@example.co.uk"}
	for _, raw := range valid {
		email, err := ParseSubscriberEmail(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, raw, email.String())
	}

	invalid := []string{"", "ursuladomain.com", "@domain.com", "ursula@", "ursula le guin@gmail.com", "ursula\xff@gmail.com"}
	for _, raw := range invalid {
		_, err := ParseSubscriberEmail(raw)
		assert.Error(t, err, "expected %q to be rejected", raw)
	}
}

func TestParseNewSubscriber(t *testing.T) {
	subscriber, err := ParseNewSubscriber(SubscriptionForm{
		Email: "ursula_le_guin@gmail.com",
		Name:  "le guin",
	})
	require.NoError(t, err)
	assert.Equal(t, "ursula_le_guin@gmail.com", subscriber.Email.String())
	assert.Equal(t, "le guin", subscriber.Name.String())
}

func TestParseNewSubscriber_ShortCircuitsOnName(t *testing.T) {
	_, err := ParseNewSubscriber(SubscriptionForm{Email: "not-an-email", Name: ""})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "name", verr.Field)
}

func TestParseNewSubscriber_RejectsInvalidUTF8(t *testing.T) {
	_, err := ParseNewSubscriber(SubscriptionForm{Email: "ursula_le_guin@gmail.com", Name: "le\xff\xfeguin"})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "name", verr.Field)
	assert.NotContains(t, err.Error(), "\xff")
}

func TestParseNewSubscriber_RejectsEmail(t *testing.T) {
	_, err := ParseNewSubscriber(SubscriptionForm{Email: "not-an-email", Name: "le guin"})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "email", verr.Field)
}

func TestNewSubscription(t *testing.T) {
	subscriber, err := ParseNewSubscriber(SubscriptionForm{Email: "a@example.com", Name: "A"})
	require.NoError(t, err)

	first := NewSubscription(subscriber)
	second := NewSubscription(subscriber)

	assert.NotEqual(t, uuid.Nil, first.ID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, "a@example.com", first.Email)
	assert.Equal(t, "A", first.Name)
	assert.False(t, first.SubscribedAt.IsZero())
}
