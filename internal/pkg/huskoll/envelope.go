package huskoll

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/jake-scott/huskoll-bridge/internal/pkg/logging"
	"github.com/pkg/errors"
)

// acknowledgments arrive in mixed case
func normaliseAck(s string) string {
	return strings.ToLower(s)
}

/*
 *  The two endpoints return structurally different envelopes, so each
 *  decode produces a tagged result: a success variant, a domain-error
 *  variant (*ResponseError) or a transport variant (the original
 *  decode failure, propagated unwrapped after a diagnostic log entry).
 */

// statusEnvelope mirrors a get endpoint response.
type statusEnvelope struct {
	Error        *string   `json:"error"`
	HWGeneration string    `json:"hw_generation"`
	Status       string    `json:"status"`
	Power        Power     `json:"power"`
	Mode         Mode      `json:"mode"`
	Setpoint     flexFloat `json:"setpoint"`
	Fan          FanSpeed  `json:"fan"`
	Temperature  flexFloat `json:"temperature"`
	Alarm        string    `json:"alarm"`
}

// ackEnvelope mirrors a set endpoint response.
type ackEnvelope struct {
	Error  *string `json:"error"`
	Status *string `json:"status"`
}

func decodeStatusResponse(ctx context.Context, body []byte) (*Status, error) {
	var envelope statusEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		logging.Logger(ctx).Warnf("failed to decode response body %q as JSON; check the supplied token and hardware id", body)
		return nil, err
	}

	if envelope.Error != nil {
		return nil, newResponseErrorf("Huskoll server returned the following error: %s", *envelope.Error)
	}

	lastAlarm, err := ParseAlarmTime(envelope.Alarm)
	if err != nil {
		return nil, errors.Wrap(err, "parsing alarm timestamp")
	}

	return &Status{
		State:              envelope.Status,
		Power:              envelope.Power,
		Mode:               envelope.Mode,
		Setpoint:           float64(envelope.Setpoint),
		FanSpeed:           envelope.Fan,
		AmbientTemperature: float64(envelope.Temperature),
		LastAlarm:          lastAlarm,
		HardwareGeneration: envelope.HWGeneration,
	}, nil
}

func decodeAckResponse(ctx context.Context, body []byte) error {
	var envelope ackEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		logging.Logger(ctx).Warnf("failed to decode response body %q as JSON; check the supplied token and hardware id", body)
		return err
	}

	if envelope.Error != nil {
		return newResponseErrorf("Huskoll server returned the following error: %s", *envelope.Error)
	}

	if envelope.Status == nil {
		return newResponseErrorf(`"status" key not present in body (body: %s)`, body)
	}

	// The API docs only describe "ack"; nak shows up in practice and
	// most likely means not-acknowledged.
	switch ack := normaliseAck(*envelope.Status); ack {
	case "ack":
		return nil
	case "nak":
		return newResponseErrorf("server responded with nak (set data not acknowledged)")
	default:
		return newResponseErrorf("server responded with an unknown response: %s", ack)
	}
}
