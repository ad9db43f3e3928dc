package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hubforge/homehub/internal/device"
)

// actionRequest is the body of POST /api/v1/devices/{name}.
type actionRequest struct {
	Action string `json:"action"`
	Msg    any    `json:"msg,omitempty"`
}

// handleListDevices returns the configured device names.
func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.Names())
}

// handleGetDevice returns the full state document of one device.
// Loading an HTTP-class device refreshes it best-effort first, so the
// response reflects live state when the device is reachable.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	inst, err := s.registry.LoadOne(r.Context(), name)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		s.logger.Error("loading device failed", "device", name, "error", err)
		writeInternalError(w, "loading device failed")
		return
	}

	writeJSON(w, http.StatusOK, inst.State())
}

// handleDeviceAction dispatches one action against a device.
//
// Responses: 404 unknown device, 400 missing or disallowed action (the
// body enumerates the allowed set) or failed validation, 200 with the
// dispatch result otherwise. Transport failures are a failed result,
// not an HTTP error.
func (s *Server) handleDeviceAction(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	inst, err := s.registry.LoadOne(r.Context(), name)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		s.logger.Error("loading device failed", "device", name, "error", err)
		writeInternalError(w, "loading device failed")
		return
	}

	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "malformed payload")
		return
	}
	if req.Action == "" {
		writeActionError(w, "action is required", inst.Actions())
		return
	}

	result, err := inst.Dispatch(r.Context(), req.Action, coerceMsg(req.Msg))
	if err != nil {
		var unknown *device.UnknownActionError
		switch {
		case errors.As(err, &unknown):
			writeActionError(w, "action not allowed", unknown.Allowed)
		case errors.Is(err, device.ErrValidation):
			writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
		default:
			s.logger.Error("dispatch failed", "device", name, "action", req.Action, "error", err)
			writeInternalError(w, "dispatch failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// coerceMsg opportunistically converts a string msg to an integer when
// its representation parses cleanly, so clients can send "42" for
// slider actions. Anything else passes through as-is.
func coerceMsg(msg any) any {
	if s, ok := msg.(string); ok {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return msg
}
