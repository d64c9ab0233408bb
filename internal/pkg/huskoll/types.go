package huskoll

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

/*
 *  Wire values used by the Huskoll open API.  The vendor speaks
 *  lower-case strings on both the request and response side, so the
 *  enums are string backed rather than numeric.
 */

type Power string

const (
	PowerOn  Power = "on"
	PowerOff Power = "off"
)

type Mode string

const (
	ModeCool Mode = "cool"
	ModeHeat Mode = "heat"
)

type FanSpeed string

const (
	FanAuto   FanSpeed = "auto"
	FanLow    FanSpeed = "low"
	FanMedium FanSpeed = "medium"
	FanHigh   FanSpeed = "high"
)

// ParsePower converts a wire/user supplied power value
func ParsePower(s string) (Power, error) {
	switch Power(strings.ToLower(s)) {
	case PowerOn:
		return PowerOn, nil
	case PowerOff:
		return PowerOff, nil
	}

	return "", fmt.Errorf("unsupported power value: %s", s)
}

// ParseMode converts a wire/user supplied operating mode
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(s)) {
	case ModeCool:
		return ModeCool, nil
	case ModeHeat:
		return ModeHeat, nil
	}

	return "", fmt.Errorf("unsupported mode value: %s", s)
}

// ParseFanSpeed converts a wire/user supplied fan speed
func ParseFanSpeed(s string) (FanSpeed, error) {
	switch FanSpeed(strings.ToLower(s)) {
	case FanAuto:
		return FanAuto, nil
	case FanLow:
		return FanLow, nil
	case FanMedium:
		return FanMedium, nil
	case FanHigh:
		return FanHigh, nil
	}

	return "", fmt.Errorf("unsupported fan speed value: %s", s)
}

// Status is a snapshot of the device's last reported operating
// parameters.  A fresh record is produced by every successful status
// fetch; callers should treat it as a value.
type Status struct {
	State              string
	Power              Power
	Mode               Mode
	Setpoint           float64
	FanSpeed           FanSpeed
	AmbientTemperature float64
	LastAlarm          time.Time
	HardwareGeneration string
}

// Credentials are the static auth parameters that accompany every
// request.  The token can be requested from Huskoll support.
type Credentials struct {
	HardwareID string
	Token      string
}

// Values returns the form parameters common to both endpoints.
func (c Credentials) Values() map[string]string {
	return map[string]string{
		"token": c.Token,
		"hwid":  c.HardwareID,
	}
}

// The API returns setpoint and temperature sometimes as JSON numbers
// and sometimes as quoted strings.  flexFloat accepts either form.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return err
		}
		*f = flexFloat(v)
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

const alarmTimeLayout = "2006-01-02 15:04:05"

// ParseAlarmTime parses the `alarm` field of a status response.  The
// API appends something non-standard after the time definition (it
// looks like "UTC T<10"); everything from the UTC marker onwards is
// discarded.
func ParseAlarmTime(raw string) (time.Time, error) {
	stamp, _, _ := strings.Cut(raw, "UTC")
	return time.ParseInLocation(alarmTimeLayout, strings.TrimSpace(stamp), time.UTC)
}
