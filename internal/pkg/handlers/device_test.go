package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jake-scott/huskoll-bridge/internal/pkg/huskoll"
)

type mockController struct {
	mock.Mock
}

func (m *mockController) GetStatus(ctx context.Context) (*huskoll.Status, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*huskoll.Status), args.Error(1)
}

func (m *mockController) UpdateStatus(ctx context.Context, params huskoll.UpdateParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

func (m *mockController) SetTemp(ctx context.Context, value float64, suppressWarning bool) error {
	args := m.Called(ctx, value, suppressWarning)
	return args.Error(0)
}

func (m *mockController) ChangeTemperature(ctx context.Context, by float64, forceRefresh bool) error {
	args := m.Called(ctx, by, forceRefresh)
	return args.Error(0)
}

func (m *mockController) CachedStatus() *huskoll.Status {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*huskoll.Status)
}

func testStatus() *huskoll.Status {
	return &huskoll.Status{
		State:              "running",
		Power:              huskoll.PowerOn,
		Mode:               huskoll.ModeHeat,
		Setpoint:           20,
		FanSpeed:           huskoll.FanAuto,
		AmbientTemperature: 18.5,
		LastAlarm:          time.Date(2020, 1, 1, 10, 0, 0, 0, time.UTC),
		HardwareGeneration: "gen2",
	}
}

func newTestRouter(device huskoll.Controller) *mux.Router {
	h := NewDeviceHandler(device)
	r := mux.NewRouter()
	h.Register(r)
	return r
}

func doJSON(t *testing.T, router *mux.Router, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestGetStatus(t *testing.T) {
	device := new(mockController)
	device.On("GetStatus", mock.Anything).Return(testStatus(), nil)

	rec := doJSON(t, newTestRouter(device), http.MethodGet, "/device/status", "")

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "on", resp["power"])
	assert.Equal(t, "heat", resp["mode"])
	assert.Equal(t, 20.0, resp["setpoint"])
	assert.Equal(t, "auto", resp["fan_speed"])
	assert.Equal(t, 18.5, resp["ambient_temperature"])
	assert.Equal(t, "gen2", resp["hardware_generation"])
	assert.Contains(t, resp["last_alarm"], "2020-01-01T10:00:00")
}

func TestGetStatusVendorError(t *testing.T) {
	device := new(mockController)
	device.On("GetStatus", mock.Anything).
		Return(nil, &huskoll.ResponseError{Message: "Huskoll server returned the following error: bad token"})

	rec := doJSON(t, newTestRouter(device), http.MethodGet, "/device/status", "")

	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "bad token")
}

func TestUpdateParameters(t *testing.T) {
	device := new(mockController)
	device.On("UpdateStatus", mock.Anything, mock.MatchedBy(func(p huskoll.UpdateParams) bool {
		return p.Power == huskoll.PowerOn && p.Mode == huskoll.ModeCool &&
			p.FanSpeed == "" && p.Setpoint != nil && *p.Setpoint == 21.5
	})).Return(nil)
	device.On("CachedStatus").Return(testStatus())

	rec := doJSON(t, newTestRouter(device), http.MethodPost, "/device/parameters",
		`{"power": "on", "mode": "cool", "setpoint": 21.5}`)

	require.Equal(t, http.StatusOK, rec.Code)
	device.AssertExpectations(t)
}

func TestUpdateParametersEmptyBody(t *testing.T) {
	device := new(mockController)

	rec := doJSON(t, newTestRouter(device), http.MethodPost, "/device/parameters", `{}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	device.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything)
}

func TestUpdateParametersBadEnum(t *testing.T) {
	device := new(mockController)

	rec := doJSON(t, newTestRouter(device), http.MethodPost, "/device/parameters",
		`{"mode": "dry"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unsupported mode")
}

func TestSetPower(t *testing.T) {
	device := new(mockController)
	device.On("UpdateStatus", mock.Anything, huskoll.UpdateParams{Power: huskoll.PowerOff}).Return(nil)
	device.On("CachedStatus").Return(testStatus())

	rec := doJSON(t, newTestRouter(device), http.MethodPost, "/device/power", `{"power": "off"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	device.AssertExpectations(t)
}

func TestSetFanRejected(t *testing.T) {
	device := new(mockController)
	device.On("UpdateStatus", mock.Anything, huskoll.UpdateParams{FanSpeed: huskoll.FanHigh}).
		Return(&huskoll.ResponseError{Message: "server responded with nak (set data not acknowledged)"})

	rec := doJSON(t, newTestRouter(device), http.MethodPost, "/device/fan", `{"speed": "high"}`)

	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "nak")
}

func TestSetTemperature(t *testing.T) {
	device := new(mockController)
	device.On("SetTemp", mock.Anything, 24.0, true).Return(nil)
	device.On("CachedStatus").Return(testStatus())

	rec := doJSON(t, newTestRouter(device), http.MethodPost, "/device/temperature",
		`{"setpoint": 24, "suppress_range_warning": true}`)

	require.Equal(t, http.StatusOK, rec.Code)
	device.AssertExpectations(t)
}

func TestSetTemperatureMissingSetpoint(t *testing.T) {
	device := new(mockController)

	rec := doJSON(t, newTestRouter(device), http.MethodPost, "/device/temperature", `{}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChangeTemperatureDefaultsByToOne(t *testing.T) {
	device := new(mockController)
	device.On("ChangeTemperature", mock.Anything, 1.0, false).Return(nil)
	device.On("CachedStatus").Return(testStatus())

	rec := doJSON(t, newTestRouter(device), http.MethodPost, "/device/temperature/change", `{}`)

	require.Equal(t, http.StatusOK, rec.Code)
	device.AssertExpectations(t)
}

func TestChangeTemperatureDelta(t *testing.T) {
	device := new(mockController)
	device.On("ChangeTemperature", mock.Anything, -3.0, true).Return(nil)
	device.On("CachedStatus").Return(nil)

	rec := doJSON(t, newTestRouter(device), http.MethodPost, "/device/temperature/change",
		`{"by": -3, "force_refresh": true}`)

	require.Equal(t, http.StatusNoContent, rec.Code)
	device.AssertExpectations(t)
}

func TestRejectsNonJSONContentType(t *testing.T) {
	device := new(mockController)

	req := httptest.NewRequest(http.MethodPost, "/device/power", strings.NewReader("power=off"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := httptest.NewRecorder()
	newTestRouter(device).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
