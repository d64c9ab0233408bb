package huskoll

import (
	"context"
	"time"
)

// Parameters is a complete set of operating parameters as required by
// the set endpoint: the vendor insists on all four being present in
// every update request.
type Parameters struct {
	Power    Power
	Mode     Mode
	FanSpeed FanSpeed
	Setpoint float64
}

// UpdateParams is a partial update.  Unset fields (zero-value enums,
// nil setpoint) are filled from a fresh status fetch before the
// request is sent.
type UpdateParams struct {
	Power    Power
	Mode     Mode
	FanSpeed FanSpeed
	Setpoint *float64
}

func (p UpdateParams) complete() bool {
	return p.Power != "" && p.Mode != "" && p.FanSpeed != "" && p.Setpoint != nil
}

// API is the raw Huskoll transport: one call per vendor endpoint.
type API interface {
	WithBaseURL(u string) API
	WithTimeout(d time.Duration) API
	FetchStatus(ctx context.Context, creds Credentials) (*Status, error)
	SubmitParameters(ctx context.Context, creds Credentials, params Parameters) error
}

// Controller is the device-handle surface consumed by the bridge
// handlers, the metrics exporter and the MQTT announcer.
type Controller interface {
	GetStatus(ctx context.Context) (*Status, error)
	UpdateStatus(ctx context.Context, params UpdateParams) error
	SetTemp(ctx context.Context, value float64, suppressWarning bool) error
	ChangeTemperature(ctx context.Context, by float64, forceRefresh bool) error
	CachedStatus() *Status
}
