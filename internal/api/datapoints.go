package api

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-dpt/internal/bridges/knx"
	"github.com/nerrad567/gray-logic-dpt/internal/datapoint"
)

// bindingRequest is the request body for PUT /datapoints/{ga}.
type bindingRequest struct {
	DPT         string `json:"dpt"`
	Name        string `json:"name"`
	Measurement string `json:"measurement"`
}

// writeRequest is the request body for POST /datapoints/{ga}/write.
type writeRequest struct {
	Value any `json:"value"`

	// DPT overrides the bound type. Required for unbound addresses.
	DPT string `json:"dpt,omitempty"`
}

// groupAddressParam joins the three route segments into "main/middle/sub".
func groupAddressParam(r *http.Request) string {
	return chi.URLParam(r, "main") + "/" + chi.URLParam(r, "middle") + "/" + chi.URLParam(r, "sub")
}

// handleListDatapoints returns all bindings with their last values.
func (s *Server) handleListDatapoints(w http.ResponseWriter, r *http.Request) {
	bindings, err := s.bindings.List(r.Context())
	if err != nil {
		s.logger.Error("listing datapoints failed", "error", err)
		writeInternalError(w, "failed to list datapoints")
		return
	}
	if bindings == nil {
		bindings = []datapoint.Binding{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"datapoints": bindings,
		"count":      len(bindings),
	})
}

// handleGetDatapoint returns one binding.
func (s *Server) handleGetDatapoint(w http.ResponseWriter, r *http.Request) {
	ga := groupAddressParam(r)

	b, err := s.bindings.Get(r.Context(), ga)
	if err != nil {
		if errors.Is(err, datapoint.ErrNotFound) {
			writeNotFound(w, "datapoint not found: "+ga)
			return
		}
		s.logger.Error("getting datapoint failed", "group_address", ga, "error", err)
		writeInternalError(w, "failed to get datapoint")
		return
	}

	writeJSON(w, http.StatusOK, b)
}

// handlePutDatapoint creates or replaces a binding and reloads the bridge.
func (s *Server) handlePutDatapoint(w http.ResponseWriter, r *http.Request) {
	var req bindingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	b := &datapoint.Binding{
		GroupAddress: groupAddressParam(r),
		DPT:          req.DPT,
		Name:         strings.TrimSpace(req.Name),
		Measurement:  strings.TrimSpace(req.Measurement),
	}
	if err := b.Validate(s.registry); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
		return
	}

	if err := s.bindings.Upsert(r.Context(), b); err != nil {
		s.logger.Error("saving datapoint failed", "group_address", b.GroupAddress, "error", err)
		writeInternalError(w, "failed to save datapoint")
		return
	}
	s.reloadBridge(r)

	stored, err := s.bindings.Get(r.Context(), b.GroupAddress)
	if err != nil {
		stored = b
	}
	s.logger.Info("datapoint bound", "group_address", b.GroupAddress, "dpt", b.DPT)
	writeJSON(w, http.StatusOK, stored)
}

// handleDeleteDatapoint removes a binding and reloads the bridge.
func (s *Server) handleDeleteDatapoint(w http.ResponseWriter, r *http.Request) {
	ga := groupAddressParam(r)

	if err := s.bindings.Delete(r.Context(), ga); err != nil {
		if errors.Is(err, datapoint.ErrNotFound) {
			writeNotFound(w, "datapoint not found: "+ga)
			return
		}
		s.logger.Error("deleting datapoint failed", "group_address", ga, "error", err)
		writeInternalError(w, "failed to delete datapoint")
		return
	}
	s.reloadBridge(r)

	s.logger.Info("datapoint unbound", "group_address", ga)
	w.WriteHeader(http.StatusNoContent)
}

// handleReloadBindings reloads the bridge's binding table from the store.
func (s *Server) handleReloadBindings(w http.ResponseWriter, r *http.Request) {
	if s.bridge == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "bridge not running")
		return
	}
	if err := s.bridge.ReloadBindings(r.Context()); err != nil {
		s.logger.Error("reloading bindings failed", "error", err)
		writeInternalError(w, "failed to reload bindings")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bindings": s.bridge.BindingCount()})
}

// handleWriteDatapoint encodes a value and sends a group write.
func (s *Server) handleWriteDatapoint(w http.ResponseWriter, r *http.Request) {
	ga, ok := s.bridgeAddress(w, r)
	if !ok {
		return
	}

	var req writeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Value == nil {
		writeBadRequest(w, "value is required")
		return
	}

	data, id, err := s.bridge.Write(ga, req.Value, req.DPT)
	if err != nil {
		writeBridgeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"address": ga.String(),
		"dpt":     id,
		"raw":     strings.ToUpper(hex.EncodeToString(data)),
		"status":  "accepted",
	})
}

// handleReadDatapoint sends a group read. The answer arrives as a state.
func (s *Server) handleReadDatapoint(w http.ResponseWriter, r *http.Request) {
	ga, ok := s.bridgeAddress(w, r)
	if !ok {
		return
	}

	if err := s.bridge.Read(ga); err != nil {
		writeBridgeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"address": ga.String(),
		"status":  "accepted",
	})
}

// bridgeAddress checks the bridge is available and parses the route address.
func (s *Server) bridgeAddress(w http.ResponseWriter, r *http.Request) (knx.GroupAddress, bool) {
	if s.bridge == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "bridge not running")
		return knx.GroupAddress{}, false
	}
	ga, err := knx.ParseGroupAddress(groupAddressParam(r))
	if err != nil {
		writeBadRequest(w, err.Error())
		return knx.GroupAddress{}, false
	}
	return ga, true
}

// reloadBridge refreshes the bridge after a binding change. Failure is
// logged; the stored binding is already committed.
func (s *Server) reloadBridge(r *http.Request) {
	if s.bridge == nil {
		return
	}
	if err := s.bridge.ReloadBindings(r.Context()); err != nil {
		s.logger.Warn("bridge reload after binding change failed", "error", err)
	}
}
