package announce

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-openapi/strfmt"
	"github.com/pkg/errors"

	"github.com/jake-scott/huskoll-bridge/internal/pkg/huskoll"
	"github.com/jake-scott/huskoll-bridge/internal/pkg/logging"
)

/*
 * Announcer mirrors the device onto an MQTT broker for consumption by
 * home-automation hubs: the status snapshot is published on an
 * interval under <base>/status, and parameter updates are accepted on
 * <base>/set/{power,mode,fan,setpoint} with a {"value": ...} payload.
 */

type Config struct {
	BrokerURL string
	ClientID  string
	BaseTopic string

	QoS             byte
	RetainStatus    bool
	PublishInterval time.Duration

	Username string
	Password string
}

type Announcer struct {
	device huskoll.Controller
	cfg    Config

	client mqtt.Client
}

func New(device huskoll.Controller, cfg Config) (*Announcer, error) {
	if cfg.BrokerURL == "" {
		cfg.BrokerURL = "tcp://localhost:1883"
	}
	if cfg.BaseTopic == "" {
		return nil, errors.New("announce: BaseTopic is required")
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "huskoll-bridge"
	}
	if cfg.PublishInterval <= 0 {
		cfg.PublishInterval = 30 * time.Second
	}
	if cfg.QoS > 1 {
		return nil, errors.New("announce: QoS must be 0 or 1")
	}

	return &Announcer{
		device: device,
		cfg:    cfg,
	}, nil
}

// Run blocks, publishing until the context is cancelled.
func (a *Announcer) Run(ctx context.Context) error {
	opts := mqtt.NewClientOptions().
		AddBroker(a.cfg.BrokerURL).
		SetClientID(a.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(2 * time.Second)

	if a.cfg.Username != "" {
		opts.SetUsername(a.cfg.Username)
		opts.SetPassword(a.cfg.Password)
	}

	// Subscribe when connected/reconnected.
	opts.OnConnect = func(cl mqtt.Client) {
		topic := a.topic("set/+")
		token := cl.Subscribe(topic, a.cfg.QoS, a.onMessage)
		token.Wait()
		if err := token.Error(); err != nil {
			logging.Logger(ctx).WithError(err).Errorf("subscribing to %s", topic)
		}
	}

	a.client = mqtt.NewClient(opts)
	tok := a.client.Connect()
	tok.Wait()
	if err := tok.Error(); err != nil {
		return errors.Wrap(err, "mqtt connect")
	}

	return a.publishLoop(ctx)
}

func (a *Announcer) publishLoop(ctx context.Context) error {
	ticker := time.NewTicker(a.cfg.PublishInterval)
	defer ticker.Stop()

	var last statusDTO
	first := true

	publish := func() {
		dto, err := a.fetch(ctx)
		if err != nil {
			logging.Logger(ctx).WithError(err).Warn("fetching status for mqtt publish")
			return
		}

		// publish only on change
		if first || dto != last {
			a.publishStatus(dto)
			last = dto
			first = false
		}
	}

	// Announce right away; retained-state subscribers should not have
	// to wait out a full interval after connect.
	publish()

	for {
		select {
		case <-ctx.Done():
			a.client.Disconnect(250)
			return ctx.Err()

		case <-ticker.C:
			publish()
		}
	}
}

func (a *Announcer) topic(suffix string) string {
	return a.cfg.BaseTopic + "/" + suffix
}

type statusDTO struct {
	State              string          `json:"state"`
	Power              string          `json:"power"`
	Mode               string          `json:"mode"`
	Setpoint           float64         `json:"setpoint"`
	FanSpeed           string          `json:"fan_speed"`
	AmbientTemperature float64         `json:"ambient_temperature"`
	LastAlarm          strfmt.DateTime `json:"last_alarm"`
	HardwareGeneration string          `json:"hardware_generation"`
}

func makeStatusDTO(s *huskoll.Status) statusDTO {
	return statusDTO{
		State:              s.State,
		Power:              string(s.Power),
		Mode:               string(s.Mode),
		Setpoint:           s.Setpoint,
		FanSpeed:           string(s.FanSpeed),
		AmbientTemperature: s.AmbientTemperature,
		LastAlarm:          strfmt.DateTime(s.LastAlarm),
		HardwareGeneration: s.HardwareGeneration,
	}
}

func (a *Announcer) fetch(ctx context.Context) (statusDTO, error) {
	status, err := a.device.GetStatus(ctx)
	if err != nil {
		return statusDTO{}, err
	}

	return makeStatusDTO(status), nil
}

func (a *Announcer) publishStatus(dto statusDTO) {
	b, err := json.Marshal(dto)
	if err != nil {
		return
	}

	a.client.Publish(a.topic("status"), a.cfg.QoS, a.cfg.RetainStatus, b)
}

// Command payload format: {"value": ...}
type valueReq struct {
	Value *json.RawMessage `json:"value"`
}

func decodeValue(payload []byte, dst interface{}) error {
	var req valueReq
	if err := json.Unmarshal(payload, &req); err != nil {
		return err
	}
	if req.Value == nil {
		return fmt.Errorf("missing value")
	}

	return json.Unmarshal(*req.Value, dst)
}

func (a *Announcer) onMessage(_ mqtt.Client, msg mqtt.Message) {
	// topic format: <base>/set/<field>
	prefix := a.cfg.BaseTopic + "/set/"
	if !strings.HasPrefix(msg.Topic(), prefix) {
		return
	}
	field := strings.TrimPrefix(msg.Topic(), prefix)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := a.applyCommand(ctx, field, msg.Payload()); err != nil {
		logging.Logger(ctx).WithError(err).Warnf("applying mqtt command %s", field)
	}
}

func (a *Announcer) applyCommand(ctx context.Context, field string, payload []byte) error {
	switch field {
	case "power":
		var s string
		if err := decodeValue(payload, &s); err != nil {
			return err
		}
		power, err := huskoll.ParsePower(s)
		if err != nil {
			return err
		}
		return a.device.UpdateStatus(ctx, huskoll.UpdateParams{Power: power})

	case "mode":
		var s string
		if err := decodeValue(payload, &s); err != nil {
			return err
		}
		mode, err := huskoll.ParseMode(s)
		if err != nil {
			return err
		}
		return a.device.UpdateStatus(ctx, huskoll.UpdateParams{Mode: mode})

	case "fan":
		var s string
		if err := decodeValue(payload, &s); err != nil {
			return err
		}
		fan, err := huskoll.ParseFanSpeed(s)
		if err != nil {
			return err
		}
		return a.device.UpdateStatus(ctx, huskoll.UpdateParams{FanSpeed: fan})

	case "setpoint":
		var v float64
		if err := decodeValue(payload, &v); err != nil {
			return err
		}
		return a.device.SetTemp(ctx, v, false)

	default:
		return fmt.Errorf("unknown field %s", field)
	}
}
