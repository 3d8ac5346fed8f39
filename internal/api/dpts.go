package api

import (
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-dpt/internal/dpt"
)

// dptResponse describes a registered datapoint main type.
type dptResponse struct {
	ID          string                 `json:"id"`
	Main        int                    `json:"main"`
	BitLength   int                    `json:"bit_length"`
	ByteLength  int                    `json:"byte_length"`
	Kind        string                 `json:"kind"`
	Family      string                 `json:"family"`
	Signedness  string                 `json:"signedness"`
	Bounds      dpt.Range              `json:"bounds"`
	Description string                 `json:"description,omitempty"`
	Subtypes    map[string]dpt.Subtype `json:"subtypes,omitempty"`

	// Resolved is set by GET /dpts/{id} when the identifier names a subtype.
	Resolved *dpt.Subtype `json:"resolved,omitempty"`
}

// encodeRequest is the request body for POST /dpts/{id}/encode.
type encodeRequest struct {
	Value any `json:"value"`
}

// decodeRequest is the request body for POST /dpts/{id}/decode.
type decodeRequest struct {
	// Data is the wire bytes as hex, e.g. "0C33".
	Data string `json:"data"`
}

// codecResponse is returned by the encode and decode endpoints.
type codecResponse struct {
	DPT   string `json:"dpt"`
	Value any    `json:"value"`
	Data  string `json:"data"`
	Unit  string `json:"unit,omitempty"`
}

func newDPTResponse(d dpt.Descriptor) dptResponse {
	return dptResponse{
		ID:          d.ID,
		Main:        d.Main,
		BitLength:   d.BitLength,
		ByteLength:  d.ByteLength(),
		Kind:        d.Kind.String(),
		Family:      d.Family.String(),
		Signedness:  d.Signedness.String(),
		Bounds:      d.Bounds(),
		Description: d.Description,
		Subtypes:    d.Subtypes,
	}
}

// handleListDPTs returns every registered main type, ordered by number.
func (s *Server) handleListDPTs(w http.ResponseWriter, _ *http.Request) {
	ids := s.registry.IDs()
	dpts := make([]dptResponse, 0, len(ids))
	for _, id := range ids {
		d, ok := s.registry.Lookup(id)
		if !ok {
			continue
		}
		dpts = append(dpts, newDPTResponse(d))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"dpts":  dpts,
		"count": len(dpts),
	})
}

// handleGetDPT resolves an identifier such as "9", "DPT9" or "9.001".
func (s *Server) handleGetDPT(w http.ResponseWriter, r *http.Request) {
	h, ok := s.resolveDPT(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	resp := newDPTResponse(h.Descriptor)
	resp.Resolved = h.Subtype
	writeJSON(w, http.StatusOK, resp)
}

// handleEncode encodes a JSON value without touching the bus.
func (s *Server) handleEncode(w http.ResponseWriter, r *http.Request) {
	h, ok := s.resolveDPT(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req encodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Value == nil {
		writeBadRequest(w, "value is required")
		return
	}

	data, err := h.Encode(req.Value)
	if err != nil {
		writeCodecError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, codecResponse{
		DPT:   h.String(),
		Value: req.Value,
		Data:  strings.ToUpper(hex.EncodeToString(data)),
		Unit:  h.Unit(),
	})
}

// handleDecode decodes hex wire bytes into a value.
func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	h, ok := s.resolveDPT(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req decodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	data, err := hex.DecodeString(strings.TrimSpace(req.Data))
	if err != nil {
		writeBadRequest(w, "data must be hex encoded")
		return
	}

	value, err := h.Decode(data)
	if err != nil {
		writeCodecError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, codecResponse{
		DPT:   h.String(),
		Value: value,
		Data:  strings.ToUpper(hex.EncodeToString(data)),
		Unit:  h.Unit(),
	})
}

// resolveDPT resolves id or writes the error response.
func (s *Server) resolveDPT(w http.ResponseWriter, id string) (*dpt.Handle, bool) {
	h, err := s.registry.Resolve(id)
	if err != nil {
		writeResolveError(w, err)
		return nil, false
	}
	return h, true
}
