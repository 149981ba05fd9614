package stream

import (
	"encoding/json"
	"testing"

	"github.com/RMahshie/pulsesim/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockNATSConn implements natsConn for testing
type MockNATSConn struct {
	mock.Mock
}

func (m *MockNATSConn) Publish(subject string, data []byte) error {
	args := m.Called(subject, data)
	return args.Error(0)
}

func TestNATSPublisher_Publish(t *testing.T) {
	conn := &MockNATSConn{}
	conn.On("Publish", "oximeter.events.beat_detected", mock.Anything).
		Run(func(args mock.Arguments) {
			var event models.Event
			require.NoError(t, json.Unmarshal(args.Get(1).([]byte), &event))
			assert.Equal(t, "s-1", event.SessionID)
			assert.Equal(t, 2, event.BeatsDetected)
		}).
		Return(nil).Once()

	pub := NewNATSPublisher(conn, "oximeter.events")
	pub.Publish(models.Event{Event: models.EventBeatDetected, SessionID: "s-1", BeatsDetected: 2})

	conn.AssertExpectations(t)
}

func TestNATSPublisher_PublishErrorIsDropped(t *testing.T) {
	conn := &MockNATSConn{}
	conn.On("Publish", mock.Anything, mock.Anything).Return(assert.AnError)

	pub := NewNATSPublisher(conn, "oximeter.events")
	assert.NotPanics(t, func() {
		pub.Publish(models.Event{Event: models.EventSensorData})
	})
	conn.AssertNumberOfCalls(t, "Publish", 1)
}

type countingPublisher struct {
	got []string
}

func (c *countingPublisher) Publish(event models.Event) {
	c.got = append(c.got, event.Event)
}

func TestFanout(t *testing.T) {
	a, b := &countingPublisher{}, &countingPublisher{}
	f := Fanout{a, b}

	f.Publish(models.Event{Event: models.EventMeasurementStarted})
	f.Publish(models.Event{Event: models.EventMeasurementComplete})

	want := []string{models.EventMeasurementStarted, models.EventMeasurementComplete}
	assert.Equal(t, want, a.got)
	assert.Equal(t, want, b.got)
}
