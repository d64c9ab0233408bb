package announce

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jake-scott/huskoll-bridge/internal/pkg/huskoll"
)

type fakeToken struct{}

func (fakeToken) Wait() bool                     { return true }
func (fakeToken) WaitTimeout(time.Duration) bool { return true }
func (fakeToken) Error() error                   { return nil }
func (fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type fakePublish struct {
	topic    string
	retained bool
	payload  []byte
}

type fakeClient struct {
	published []fakePublish
}

func (c *fakeClient) IsConnected() bool       { return true }
func (c *fakeClient) IsConnectionOpen() bool  { return true }
func (c *fakeClient) Connect() mqtt.Token     { return fakeToken{} }
func (c *fakeClient) Disconnect(quiesce uint) {}

func (c *fakeClient) Unsubscribe(topics ...string) mqtt.Token       { return fakeToken{} }
func (c *fakeClient) AddRoute(topic string, cb mqtt.MessageHandler) {}
func (c *fakeClient) OptionsReader() mqtt.ClientOptionsReader       { return mqtt.ClientOptionsReader{} }

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.published = append(c.published, fakePublish{
		topic:    topic,
		retained: retained,
		payload:  payload.([]byte),
	})
	return fakeToken{}
}

func (c *fakeClient) Subscribe(topic string, qos byte, cb mqtt.MessageHandler) mqtt.Token {
	return fakeToken{}
}

func (c *fakeClient) SubscribeMultiple(filters map[string]byte, cb mqtt.MessageHandler) mqtt.Token {
	return fakeToken{}
}

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 0 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 0 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

type recordingDevice struct {
	updates   []huskoll.UpdateParams
	setpoints []float64
}

func (d *recordingDevice) GetStatus(context.Context) (*huskoll.Status, error) {
	return &huskoll.Status{
		State: "running", Power: huskoll.PowerOn, Mode: huskoll.ModeHeat,
		Setpoint: 20, FanSpeed: huskoll.FanAuto, AmbientTemperature: 18.5,
		LastAlarm:          time.Date(2020, 1, 1, 10, 0, 0, 0, time.UTC),
		HardwareGeneration: "gen2",
	}, nil
}

func (d *recordingDevice) UpdateStatus(_ context.Context, p huskoll.UpdateParams) error {
	d.updates = append(d.updates, p)
	return nil
}

func (d *recordingDevice) SetTemp(_ context.Context, v float64, _ bool) error {
	d.setpoints = append(d.setpoints, v)
	return nil
}

func (d *recordingDevice) ChangeTemperature(context.Context, float64, bool) error { return nil }
func (d *recordingDevice) CachedStatus() *huskoll.Status                          { return nil }

func newTestAnnouncer(t *testing.T, device huskoll.Controller) *Announcer {
	t.Helper()

	a, err := New(device, Config{BaseTopic: "huskoll/hw-1234"})
	require.NoError(t, err)
	return a
}

func TestNewValidation(t *testing.T) {
	device := &recordingDevice{}

	_, err := New(device, Config{})
	assert.Error(t, err)

	_, err = New(device, Config{BaseTopic: "huskoll/x", QoS: 2})
	assert.Error(t, err)

	a, err := New(device, Config{BaseTopic: "huskoll/x"})
	require.NoError(t, err)
	assert.Equal(t, "tcp://localhost:1883", a.cfg.BrokerURL)
	assert.Equal(t, 30*time.Second, a.cfg.PublishInterval)
}

func TestOnMessagePower(t *testing.T) {
	device := &recordingDevice{}
	a := newTestAnnouncer(t, device)

	a.onMessage(nil, fakeMessage{
		topic:   "huskoll/hw-1234/set/power",
		payload: []byte(`{"value": "off"}`),
	})

	require.Len(t, device.updates, 1)
	assert.Equal(t, huskoll.PowerOff, device.updates[0].Power)
}

func TestOnMessageModeAndFan(t *testing.T) {
	device := &recordingDevice{}
	a := newTestAnnouncer(t, device)

	a.onMessage(nil, fakeMessage{
		topic:   "huskoll/hw-1234/set/mode",
		payload: []byte(`{"value": "cool"}`),
	})
	a.onMessage(nil, fakeMessage{
		topic:   "huskoll/hw-1234/set/fan",
		payload: []byte(`{"value": "medium"}`),
	})

	require.Len(t, device.updates, 2)
	assert.Equal(t, huskoll.ModeCool, device.updates[0].Mode)
	assert.Equal(t, huskoll.FanMedium, device.updates[1].FanSpeed)
}

func TestOnMessageSetpoint(t *testing.T) {
	device := &recordingDevice{}
	a := newTestAnnouncer(t, device)

	a.onMessage(nil, fakeMessage{
		topic:   "huskoll/hw-1234/set/setpoint",
		payload: []byte(`{"value": 21.5}`),
	})

	require.Len(t, device.setpoints, 1)
	assert.Equal(t, 21.5, device.setpoints[0])
}

func TestOnMessageIgnoresBadInput(t *testing.T) {
	device := &recordingDevice{}
	a := newTestAnnouncer(t, device)

	// wrong topic prefix
	a.onMessage(nil, fakeMessage{topic: "other/set/power", payload: []byte(`{"value": "on"}`)})
	// unknown field
	a.onMessage(nil, fakeMessage{topic: "huskoll/hw-1234/set/swing", payload: []byte(`{"value": "on"}`)})
	// missing value key
	a.onMessage(nil, fakeMessage{topic: "huskoll/hw-1234/set/power", payload: []byte(`{}`)})
	// invalid enum
	a.onMessage(nil, fakeMessage{topic: "huskoll/hw-1234/set/mode", payload: []byte(`{"value": "dry"}`)})

	assert.Empty(t, device.updates)
	assert.Empty(t, device.setpoints)
}

// The first status publish must not wait out a publish interval.
func TestPublishLoopAnnouncesImmediately(t *testing.T) {
	device := &recordingDevice{}
	a := newTestAnnouncer(t, device)

	client := &fakeClient{}
	a.client = client

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := a.publishLoop(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	require.Len(t, client.published, 1)
	assert.Equal(t, "huskoll/hw-1234/status", client.published[0].topic)
	assert.False(t, client.published[0].retained)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(client.published[0].payload, &decoded))
	assert.Equal(t, "on", decoded["power"])
	assert.Equal(t, 20.0, decoded["setpoint"])
}

func TestStatusDTO(t *testing.T) {
	device := &recordingDevice{}
	a := newTestAnnouncer(t, device)

	dto, err := a.fetch(context.Background())
	require.NoError(t, err)

	b, err := json.Marshal(dto)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, "on", decoded["power"])
	assert.Equal(t, "heat", decoded["mode"])
	assert.Equal(t, 20.0, decoded["setpoint"])
	assert.Equal(t, "gen2", decoded["hardware_generation"])
}
