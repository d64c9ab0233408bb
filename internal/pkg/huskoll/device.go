package huskoll

import (
	"context"
	"math"
	"time"

	"github.com/jake-scott/huskoll-bridge/internal/pkg/logging"
)

// Supported setpoint range from the vendor API documentation.
const (
	MinSetpoint = 8
	MaxSetpoint = 32
)

// Device is a handle on one physical Huskoll unit.  It remembers the
// most recently observed status and hardware generation.
//
// A Device is meant to be driven by a single caller; it holds no lock,
// so concurrent use of the same handle is undefined.  Wrap it with
// Synchronize to share it between goroutines.
type Device struct {
	creds Credentials
	api   API

	status             *Status
	hardwareGeneration string
}

// Option configures a Device at construction time.
type Option func(*Device)

// WithAPI substitutes the transport, e.g. a fake in tests.
func WithAPI(api API) Option {
	return func(d *Device) {
		d.api = api
	}
}

// WithBaseURL points the live transport somewhere other than the
// production vendor endpoints.
func WithBaseURL(u string) Option {
	return func(d *Device) {
		d.api = d.api.WithBaseURL(u)
	}
}

// WithTimeout bounds each vendor API call.
func WithTimeout(t time.Duration) Option {
	return func(d *Device) {
		d.api = d.api.WithTimeout(t)
	}
}

func NewDevice(hardwareID, token string, opts ...Option) *Device {
	d := &Device{
		creds: Credentials{HardwareID: hardwareID, Token: token},
		api:   NewLiveClient(),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// CachedStatus returns the last observed status, or nil if the device
// has not been queried yet.
func (d *Device) CachedStatus() *Status {
	return d.status
}

// HardwareGeneration returns the vendor-assigned model/revision
// identifier from the last successful status fetch.
func (d *Device) HardwareGeneration() string {
	return d.hardwareGeneration
}

// GetStatus fetches the current status from the vendor API and
// refreshes the handle's cached status and hardware generation.
func (d *Device) GetStatus(ctx context.Context) (*Status, error) {
	status, err := d.api.FetchStatus(ctx, d.creds)
	if err != nil {
		return nil, err
	}

	d.status = status
	d.hardwareGeneration = status.HardwareGeneration
	return status, nil
}

// UpdateStatus pushes new operating parameters.  The vendor requires
// all four parameters on every update, so any unset field is filled
// from a fresh status fetch (never from the stale cache).
//
// The cached status is only mutated once the server has acknowledged
// the update; a failed or nak'd request leaves the cache untouched.
func (d *Device) UpdateStatus(ctx context.Context, params UpdateParams) error {
	if !params.complete() {
		current, err := d.GetStatus(ctx)
		if err != nil {
			return err
		}

		if params.Power == "" {
			params.Power = current.Power
		}
		if params.Mode == "" {
			params.Mode = current.Mode
		}
		if params.FanSpeed == "" {
			params.FanSpeed = current.FanSpeed
		}
		if params.Setpoint == nil {
			params.Setpoint = &current.Setpoint
		}
	}

	full := Parameters{
		Power:    params.Power,
		Mode:     params.Mode,
		FanSpeed: params.FanSpeed,
		Setpoint: *params.Setpoint,
	}

	if err := d.api.SubmitParameters(ctx, d.creds, full); err != nil {
		return err
	}

	if d.status != nil {
		d.status.Power = full.Power
		d.status.Mode = full.Mode
		d.status.FanSpeed = full.FanSpeed
		d.status.Setpoint = full.Setpoint
	}

	return nil
}

// PowerOff powers the device off, leaving the other parameters as
// currently reported.
func (d *Device) PowerOff(ctx context.Context) error {
	return d.UpdateStatus(ctx, UpdateParams{Power: PowerOff})
}

// PowerOn powers the device on.
func (d *Device) PowerOn(ctx context.Context) error {
	return d.UpdateStatus(ctx, UpdateParams{Power: PowerOn})
}

// SetCooling switches the device to cooling mode.
func (d *Device) SetCooling(ctx context.Context) error {
	return d.UpdateStatus(ctx, UpdateParams{Mode: ModeCool})
}

// SetHeating switches the device to heating mode.
func (d *Device) SetHeating(ctx context.Context) error {
	return d.UpdateStatus(ctx, UpdateParams{Mode: ModeHeat})
}

func (d *Device) FanSpeedAuto(ctx context.Context) error {
	return d.UpdateStatus(ctx, UpdateParams{FanSpeed: FanAuto})
}

func (d *Device) FanSpeedLow(ctx context.Context) error {
	return d.UpdateStatus(ctx, UpdateParams{FanSpeed: FanLow})
}

func (d *Device) FanSpeedMedium(ctx context.Context) error {
	return d.UpdateStatus(ctx, UpdateParams{FanSpeed: FanMedium})
}

func (d *Device) FanSpeedHigh(ctx context.Context) error {
	return d.UpdateStatus(ctx, UpdateParams{FanSpeed: FanHigh})
}

// SetpointRangeAdvisory logs a non-fatal warning when value falls
// outside the documented supported range [MinSetpoint, MaxSetpoint].
func SetpointRangeAdvisory(ctx context.Context, value float64) {
	if value < MinSetpoint || value > MaxSetpoint {
		logging.Logger(ctx).Warnf(
			"setpoint %g may be out of the range [%d, %d] supported by Huskoll; refer to their API documentation",
			value, MinSetpoint, MaxSetpoint)
	}
}

// SetTemp sets an absolute setpoint.  Out-of-range values produce the
// advisory log entry unless suppressed; the request goes out either
// way.
func (d *Device) SetTemp(ctx context.Context, value float64, suppressWarning bool) error {
	if !suppressWarning {
		SetpointRangeAdvisory(ctx, value)
	}

	return d.UpdateStatus(ctx, UpdateParams{Setpoint: &value})
}

// ChangeTemperature moves the setpoint relative to the cached status,
// fetching the status first only when none is cached or a refresh is
// forced.
func (d *Device) ChangeTemperature(ctx context.Context, by float64, forceRefresh bool) error {
	if d.status == nil || forceRefresh {
		if _, err := d.GetStatus(ctx); err != nil {
			return err
		}
	}

	target := d.status.Setpoint + by
	return d.UpdateStatus(ctx, UpdateParams{Setpoint: &target})
}

// IncreaseTemperature raises the setpoint by the given number of
// degrees.
func (d *Device) IncreaseTemperature(ctx context.Context, by float64, forceRefresh bool) error {
	return d.ChangeTemperature(ctx, by, forceRefresh)
}

// DecreaseTemperature lowers the setpoint by the given number of
// degrees; the sign of `by` is ignored.
func (d *Device) DecreaseTemperature(ctx context.Context, by float64, forceRefresh bool) error {
	return d.ChangeTemperature(ctx, -math.Abs(by), forceRefresh)
}
