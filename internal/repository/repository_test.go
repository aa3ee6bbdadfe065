package repository

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	dapr "github.com/dapr/go-sdk/client"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace"

	"subscriptions-go/internal/models"
	"subscriptions-go/internal/telemetry"
)

func newTestTracing(t *testing.T) (*telemetry.SpanRecorder, *trace.TracerProvider) {
	t.Helper()
	recorder := telemetry.NewSpanRecorder()
	tp := telemetry.InitTestTracing("repository-test", "test", recorder)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return recorder, tp
}

func mustSubscriber(t *testing.T, email, name string) models.NewSubscriber {
	t.Helper()
	subscriber, err := models.ParseNewSubscriber(models.SubscriptionForm{Email: email, Name: name})
	require.NoError(t, err)
	return subscriber
}

var insertPattern = regexp.QuoteMeta("INSERT INTO subscriptions (id, email, name, subscribed_at)")

func TestPostgresSubscriberRepository_Insert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	recorder, tp := newTestTracing(t)
	repo := NewPostgresSubscriberRepository(db, tp)

	mock.ExpectExec(insertPattern).
		WithArgs(sqlmock.AnyArg(), "ursula_le_guin@gmail.com", "le guin", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.Insert(context.Background(), mustSubscriber(t, "ursula_le_guin@gmail.com", "le guin"))
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	writes := recorder.SpansWithOperation("database.write")
	require.Len(t, writes, 1)
	id, ok := telemetry.SpanAttribute(writes[0], telemetry.AttrSubscriberID)
	require.True(t, ok)
	_, err = uuid.Parse(id.AsString())
	assert.NoError(t, err)
}

func TestPostgresSubscriberRepository_InsertFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	recorder, tp := newTestTracing(t)
	repo := NewPostgresSubscriberRepository(db, tp)

	driverErr := errors.New("pq: relation \"subscriptions\" does not exist")
	mock.ExpectExec(insertPattern).WillReturnError(driverErr)

	err = repo.Insert(context.Background(), mustSubscriber(t, "a@example.com", "A"))

	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.ErrorIs(t, err, driverErr)
	assert.Equal(t, "insert subscription", perr.Op)
	require.NoError(t, mock.ExpectationsWereMet())

	spans := recorder.SpansNamed("subscriber.repository.insert")
	require.Len(t, spans, 1)
	assert.NotEmpty(t, spans[0].Events(), "expected the error to be recorded on the span")
}

func TestPostgresSubscriberRepository_GeneratesFreshIDs(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	recorder, tp := newTestTracing(t)
	repo := NewPostgresSubscriberRepository(db, tp)
	subscriber := mustSubscriber(t, "a@example.com", "A")

	for i := 0; i < 2; i++ {
		mock.ExpectExec(insertPattern).WillReturnResult(sqlmock.NewResult(0, 1))
		require.NoError(t, repo.Insert(context.Background(), subscriber))
	}

	spans := recorder.SpansNamed("subscriber.repository.insert")
	require.Len(t, spans, 2)
	first, _ := telemetry.SpanAttribute(spans[0], telemetry.AttrSubscriberID)
	second, _ := telemetry.SpanAttribute(spans[1], telemetry.AttrSubscriberID)
	assert.NotEqual(t, first.AsString(), second.AsString())
}

func TestInMemorySubscriberRepository(t *testing.T) {
	_, tp := newTestTracing(t)
	repo := NewInMemorySubscriberRepository(tp)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, repo.Insert(context.Background(), mustSubscriber(t, "dup@example.com", "Dup")))
		}()
	}
	wg.Wait()

	all := repo.All()
	require.Len(t, all, 20)
	for _, s := range all {
		assert.Equal(t, "dup@example.com", s.Email)
		assert.Equal(t, "Dup", s.Name)
	}
}

type fakeDaprClient struct {
	dapr.Client

	mu    sync.Mutex
	saved map[string][]byte
	err   error
}

func (f *fakeDaprClient) SaveState(ctx context.Context, storeName, key string, data []byte, meta map[string]string, so ...dapr.StateOption) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved[storeName+"/"+key] = data
	return nil
}

func TestDaprSubscriberRepository_Insert(t *testing.T) {
	_, tp := newTestTracing(t)
	client := &fakeDaprClient{saved: map[string][]byte{}}
	repo := NewDaprSubscriberRepository(client, "statestore", tp)

	require.NoError(t, repo.Insert(context.Background(), mustSubscriber(t, "ursula@example.com", "Ursula")))
	require.Len(t, client.saved, 1)

	for key, data := range client.saved {
		var stored models.Subscription
		require.NoError(t, json.Unmarshal(data, &stored))
		assert.Equal(t, "statestore/"+stored.ID.String(), key)
		assert.Equal(t, "ursula@example.com", stored.Email)
		assert.Equal(t, "Ursula", stored.Name)
	}
}

func TestDaprSubscriberRepository_InsertFailure(t *testing.T) {
	_, tp := newTestTracing(t)
	client := &fakeDaprClient{saved: map[string][]byte{}, err: errors.New("sidecar unavailable")}
	repo := NewDaprSubscriberRepository(client, "statestore", tp)

	err := repo.Insert(context.Background(), mustSubscriber(t, "ursula@example.com", "Ursula"))

	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, err.Error(), "sidecar unavailable")
}
