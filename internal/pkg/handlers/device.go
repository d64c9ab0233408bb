package handlers

import (
	"errors"
	"net/http"

	"github.com/go-openapi/strfmt"
	"github.com/gorilla/mux"

	"github.com/jake-scott/huskoll-bridge/internal/pkg/huskoll"
	"github.com/jake-scott/huskoll-bridge/internal/pkg/logging"
)

/*
 * DeviceHandler exposes one Huskoll device over a small local REST
 * surface, so hubs and scripts on the LAN do not have to speak the
 * vendor's form-encoded API themselves.
 */

type DeviceHandler struct {
	device huskoll.Controller
}

func NewDeviceHandler(device huskoll.Controller) DeviceHandler {
	return DeviceHandler{device: device}
}

// Register attaches the device routes to the router.
func (h *DeviceHandler) Register(r *mux.Router) {
	r.HandleFunc("/device/status", h.handleGetStatus).Methods(http.MethodGet)
	r.HandleFunc("/device/parameters", h.handleUpdateParameters).Methods(http.MethodPost)
	r.HandleFunc("/device/power", h.handleSetPower).Methods(http.MethodPost)
	r.HandleFunc("/device/mode", h.handleSetMode).Methods(http.MethodPost)
	r.HandleFunc("/device/fan", h.handleSetFan).Methods(http.MethodPost)
	r.HandleFunc("/device/temperature", h.handleSetTemperature).Methods(http.MethodPost)
	r.HandleFunc("/device/temperature/change", h.handleChangeTemperature).Methods(http.MethodPost)
}

type statusResponse struct {
	State              string          `json:"state"`
	Power              string          `json:"power"`
	Mode               string          `json:"mode"`
	Setpoint           float64         `json:"setpoint"`
	FanSpeed           string          `json:"fan_speed"`
	AmbientTemperature float64         `json:"ambient_temperature"`
	LastAlarm          strfmt.DateTime `json:"last_alarm"`
	HardwareGeneration string          `json:"hardware_generation"`
}

func newStatusResponse(s *huskoll.Status) statusResponse {
	return statusResponse{
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

// Map a device error onto an HTTP status.  Vendor rejections and
// malformed vendor payloads are both down-stream failures from the
// bridge's point of view; the former carry the vendor's message.
func (h *DeviceHandler) sendAPIErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	logging.Logger(r.Context()).WithError(err).Error("querying Huskoll API")

	var respErr *huskoll.ResponseError
	if errors.As(err, &respErr) {
		sendJSONError(w, r, http.StatusBadGateway, respErr.Message)
		return
	}

	sendJSONError(w, r, http.StatusBadGateway, "down-stream API error")
}

func (h *DeviceHandler) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.device.GetStatus(r.Context())
	if err != nil {
		h.sendAPIErrorResponse(w, r, err)
		return
	}

	sendJSONResponse(w, r, newStatusResponse(status))
}

type updateRequest struct {
	Power    *string  `json:"power"`
	Mode     *string  `json:"mode"`
	Fan      *string  `json:"fan"`
	Setpoint *float64 `json:"setpoint"`
}

func (req updateRequest) toParams() (huskoll.UpdateParams, error) {
	var params huskoll.UpdateParams
	var err error

	if req.Power != nil {
		if params.Power, err = huskoll.ParsePower(*req.Power); err != nil {
			return params, err
		}
	}
	if req.Mode != nil {
		if params.Mode, err = huskoll.ParseMode(*req.Mode); err != nil {
			return params, err
		}
	}
	if req.Fan != nil {
		if params.FanSpeed, err = huskoll.ParseFanSpeed(*req.Fan); err != nil {
			return params, err
		}
	}
	params.Setpoint = req.Setpoint

	return params, nil
}

func (h *DeviceHandler) handleUpdateParameters(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		logging.Logger(r.Context()).WithError(err).Error("decoding JSON")
		sendJSONError(w, r, http.StatusBadRequest, "unable to parse JSON")
		return
	}

	if req.Power == nil && req.Mode == nil && req.Fan == nil && req.Setpoint == nil {
		sendJSONError(w, r, http.StatusBadRequest, "at least one of power, mode, fan, setpoint is required")
		return
	}

	params, err := req.toParams()
	if err != nil {
		sendJSONError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.device.UpdateStatus(r.Context(), params); err != nil {
		h.sendAPIErrorResponse(w, r, err)
		return
	}

	h.sendUpdatedStatus(w, r)
}

// After a successful update the cached status mirrors the
// acknowledged parameters; return it so callers see what they set.
func (h *DeviceHandler) sendUpdatedStatus(w http.ResponseWriter, r *http.Request) {
	if cached := h.device.CachedStatus(); cached != nil {
		sendJSONResponse(w, r, newStatusResponse(cached))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *DeviceHandler) handleSetPower(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Power string `json:"power"`
	}
	if err := decodeJSONBody(w, r, &req); err != nil {
		sendJSONError(w, r, http.StatusBadRequest, "unable to parse JSON")
		return
	}

	power, err := huskoll.ParsePower(req.Power)
	if err != nil {
		sendJSONError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.device.UpdateStatus(r.Context(), huskoll.UpdateParams{Power: power}); err != nil {
		h.sendAPIErrorResponse(w, r, err)
		return
	}

	h.sendUpdatedStatus(w, r)
}

func (h *DeviceHandler) handleSetMode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode string `json:"mode"`
	}
	if err := decodeJSONBody(w, r, &req); err != nil {
		sendJSONError(w, r, http.StatusBadRequest, "unable to parse JSON")
		return
	}

	mode, err := huskoll.ParseMode(req.Mode)
	if err != nil {
		sendJSONError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.device.UpdateStatus(r.Context(), huskoll.UpdateParams{Mode: mode}); err != nil {
		h.sendAPIErrorResponse(w, r, err)
		return
	}

	h.sendUpdatedStatus(w, r)
}

func (h *DeviceHandler) handleSetFan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Speed string `json:"speed"`
	}
	if err := decodeJSONBody(w, r, &req); err != nil {
		sendJSONError(w, r, http.StatusBadRequest, "unable to parse JSON")
		return
	}

	fan, err := huskoll.ParseFanSpeed(req.Speed)
	if err != nil {
		sendJSONError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.device.UpdateStatus(r.Context(), huskoll.UpdateParams{FanSpeed: fan}); err != nil {
		h.sendAPIErrorResponse(w, r, err)
		return
	}

	h.sendUpdatedStatus(w, r)
}

func (h *DeviceHandler) handleSetTemperature(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Setpoint             *float64 `json:"setpoint"`
		SuppressRangeWarning bool     `json:"suppress_range_warning"`
	}
	if err := decodeJSONBody(w, r, &req); err != nil {
		sendJSONError(w, r, http.StatusBadRequest, "unable to parse JSON")
		return
	}

	if req.Setpoint == nil {
		sendJSONError(w, r, http.StatusBadRequest, "setpoint is required")
		return
	}

	if err := h.device.SetTemp(r.Context(), *req.Setpoint, req.SuppressRangeWarning); err != nil {
		h.sendAPIErrorResponse(w, r, err)
		return
	}

	h.sendUpdatedStatus(w, r)
}

func (h *DeviceHandler) handleChangeTemperature(w http.ResponseWriter, r *http.Request) {
	req := struct {
		By           float64 `json:"by"`
		ForceRefresh bool    `json:"force_refresh"`
	}{By: 1}

	if err := decodeJSONBody(w, r, &req); err != nil {
		sendJSONError(w, r, http.StatusBadRequest, "unable to parse JSON")
		return
	}

	if err := h.device.ChangeTemperature(r.Context(), req.By, req.ForceRefresh); err != nil {
		h.sendAPIErrorResponse(w, r, err)
		return
	}

	h.sendUpdatedStatus(w, r)
}
