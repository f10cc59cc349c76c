package simulator

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureOutput struct {
	topics   []string
	messages [][]byte
	closed   bool
}

func (c *captureOutput) WriteMessage(topic string, msg []byte) error {
	c.topics = append(c.topics, topic)
	c.messages = append(c.messages, msg)
	return nil
}

func (c *captureOutput) Close() error {
	c.closed = true
	return nil
}

func TestStreamWritesEveryEvent(t *testing.T) {
	g := testGraph(t)
	st := storeOf(
		deliveryPackage(1, "1060 Dalton Ave S"),
		deliveryPackage(2, "1330 2100 S"),
	)
	sim := runSimulation(t, testConfig(), st, g)

	capture := &captureOutput{}
	require.NoError(t, sim.Stream(capture, false))
	require.Len(t, capture.messages, len(sim.Events))

	assert.Contains(t, capture.topics, TopicTruckDeparted)
	assert.Contains(t, capture.topics, TopicPackageDelivered)
	assert.Contains(t, capture.topics, TopicTruckReturned)

	for _, msg := range capture.messages {
		var event map[string]interface{}
		require.NoError(t, json.Unmarshal(msg, &event))
		assert.Equal(t, sim.RunID, event["runId"])
		assert.NotZero(t, event["timestamp"])
		assert.NotEmpty(t, event["eventType"])
	}
}

func TestStreamBeforeRun(t *testing.T) {
	sim, err := NewSimulator(testConfig(), storeOf(deliveryPackage(1, "1060 Dalton Ave S")), testGraph(t))
	require.NoError(t, err)

	assert.Error(t, sim.Stream(&captureOutput{}, false))
}

func TestGetSchemaKnownTopics(t *testing.T) {
	for _, topic := range []string{
		TopicTruckDeparted, TopicTruckReturned, TopicPackageDelivered, TopicAddressCorrected,
	} {
		sh, err := GetSchema(topic)
		require.NoError(t, err, topic)
		assert.NotNil(t, sh, topic)
	}

	_, err := GetSchema("nonsense_events")
	assert.Error(t, err)
}
