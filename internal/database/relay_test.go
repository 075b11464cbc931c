package database

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRedisClient struct {
	mock.Mock
}

func (m *mockRedisClient) XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd {
	args := m.Called(ctx, a)
	cmd := redis.NewStringCmd(ctx)
	if err := args.Error(0); err != nil {
		cmd.SetErr(err)
	} else {
		cmd.SetVal("1-0")
	}
	return cmd
}

func (m *mockRedisClient) Close() error {
	return m.Called().Error(0)
}

type mockOutboxReader struct {
	mock.Mock
}

func (m *mockOutboxReader) GetPending(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*OutboxEvent), args.Error(1)
}

func (m *mockOutboxReader) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockOutboxReader) MarkFailed(ctx context.Context, id uuid.UUID, processErr error) error {
	return m.Called(ctx, id, processErr).Error(0)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func priceRecordedEvent(t *testing.T) *OutboxEvent {
	t.Helper()
	payload, err := json.Marshal(map[string]interface{}{
		"postal_code":   "87659",
		"city_name":     "Hopferau",
		"period":        "2026-09",
		"local_price":   0.38,
		"average_price": 0.38,
	})
	require.NoError(t, err)

	return &OutboxEvent{
		ID:            uuid.New(),
		AggregateType: "price_record",
		AggregateID:   "2026-09/87659",
		EventType:     "price.recorded",
		Payload:       payload,
		TargetStream:  DefaultStream,
		Status:        OutboxStatusPending,
		CreatedAt:     time.Now(),
	}
}

func TestRelayPublishesPendingEvent(t *testing.T) {
	redisMock := new(mockRedisClient)
	outboxMock := new(mockOutboxReader)
	event := priceRecordedEvent(t)

	outboxMock.On("GetPending", mock.Anything, 50).Return([]*OutboxEvent{event}, nil)
	redisMock.On("XAdd", mock.Anything, mock.MatchedBy(func(a *redis.XAddArgs) bool {
		values, ok := a.Values.(map[string]interface{})
		if !ok {
			return false
		}
		return a.Stream == DefaultStream &&
			values["event_type"] == "price.recorded" &&
			values["aggregate_id"] == "2026-09/87659" &&
			values["source"] == "energy-price-scraper"
	})).Return(nil)
	outboxMock.On("MarkProcessed", mock.Anything, event.ID).Return(nil)

	relay := NewRelay(redisMock, outboxMock, testLogger(), DefaultRelayConfig())
	err := relay.ProcessBatch(context.Background())

	require.NoError(t, err)
	redisMock.AssertExpectations(t)
	outboxMock.AssertExpectations(t)
}

func TestRelayMarksFailedOnPublishError(t *testing.T) {
	redisMock := new(mockRedisClient)
	outboxMock := new(mockOutboxReader)
	event := priceRecordedEvent(t)

	outboxMock.On("GetPending", mock.Anything, 50).Return([]*OutboxEvent{event}, nil)
	redisMock.On("XAdd", mock.Anything, mock.Anything).Return(errors.New("connection refused"))
	outboxMock.On("MarkFailed", mock.Anything, event.ID, mock.Anything).Return(nil)

	relay := NewRelay(redisMock, outboxMock, testLogger(), DefaultRelayConfig())
	err := relay.ProcessBatch(context.Background())

	require.NoError(t, err)
	outboxMock.AssertCalled(t, "MarkFailed", mock.Anything, event.ID, mock.Anything)
	outboxMock.AssertNotCalled(t, "MarkProcessed", mock.Anything, event.ID)
}

func TestRelayEmptyBatchIsNoop(t *testing.T) {
	redisMock := new(mockRedisClient)
	outboxMock := new(mockOutboxReader)

	outboxMock.On("GetPending", mock.Anything, 50).Return([]*OutboxEvent{}, nil)

	relay := NewRelay(redisMock, outboxMock, testLogger(), DefaultRelayConfig())
	err := relay.ProcessBatch(context.Background())

	require.NoError(t, err)
	redisMock.AssertNotCalled(t, "XAdd", mock.Anything, mock.Anything)
}

func TestRelayContinuesAfterSingleFailure(t *testing.T) {
	redisMock := new(mockRedisClient)
	outboxMock := new(mockOutboxReader)

	bad := priceRecordedEvent(t)
	good := priceRecordedEvent(t)
	good.AggregateID = "2026-09/80331"

	outboxMock.On("GetPending", mock.Anything, 50).Return([]*OutboxEvent{bad, good}, nil)
	redisMock.On("XAdd", mock.Anything, mock.MatchedBy(func(a *redis.XAddArgs) bool {
		values := a.Values.(map[string]interface{})
		return values["aggregate_id"] == bad.AggregateID
	})).Return(errors.New("stream full"))
	redisMock.On("XAdd", mock.Anything, mock.MatchedBy(func(a *redis.XAddArgs) bool {
		values := a.Values.(map[string]interface{})
		return values["aggregate_id"] == good.AggregateID
	})).Return(nil)
	outboxMock.On("MarkFailed", mock.Anything, bad.ID, mock.Anything).Return(nil)
	outboxMock.On("MarkProcessed", mock.Anything, good.ID).Return(nil)

	relay := NewRelay(redisMock, outboxMock, testLogger(), DefaultRelayConfig())
	err := relay.ProcessBatch(context.Background())

	require.NoError(t, err)
	redisMock.AssertExpectations(t)
	outboxMock.AssertExpectations(t)
}

func TestRelayGetPendingErrorIsReturned(t *testing.T) {
	redisMock := new(mockRedisClient)
	outboxMock := new(mockOutboxReader)

	outboxMock.On("GetPending", mock.Anything, 50).Return(nil, errors.New("db down"))

	relay := NewRelay(redisMock, outboxMock, testLogger(), DefaultRelayConfig())
	err := relay.ProcessBatch(context.Background())

	assert.Error(t, err)
}

func TestRelayRunStopsOnContextCancel(t *testing.T) {
	redisMock := new(mockRedisClient)
	outboxMock := new(mockOutboxReader)
	outboxMock.On("GetPending", mock.Anything, 50).Return([]*OutboxEvent{}, nil).Maybe()

	relay := NewRelay(redisMock, outboxMock, testLogger(), RelayConfig{
		BatchSize:    50,
		PollInterval: 10 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := relay.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
