package models

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionForm is the untrusted body of POST /subscriptions.
type SubscriptionForm struct {
	Email string `form:"email" binding:"required"`
	Name  string `form:"name" binding:"required"`
}

// NewSubscriber is the only shape the repositories accept.
type NewSubscriber struct {
	Email SubscriberEmail
	Name  SubscriberName
}

// ParseNewSubscriber validates the name and then the email, returning the
// first failure.
func ParseNewSubscriber(form SubscriptionForm) (NewSubscriber, error) {
	name, err := ParseSubscriberName(form.Name)
	if err != nil {
		return NewSubscriber{}, err
	}
	email, err := ParseSubscriberEmail(form.Email)
	if err != nil {
		return NewSubscriber{}, err
	}
	return NewSubscriber{Email: email, Name: name}, nil
}

// Subscription is a persisted row of the subscriptions table.
type Subscription struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	SubscribedAt time.Time `json:"subscribed_at"`
}

func NewSubscription(subscriber NewSubscriber) *Subscription {
	return &Subscription{
		ID:           uuid.New(),
		Email:        subscriber.Email.String(),
		Name:         subscriber.Name.String(),
		SubscribedAt: time.Now().UTC(),
	}
}
