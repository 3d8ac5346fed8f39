package knx

import (
	"sync/atomic"

	"github.com/nerrad567/gray-logic-dpt/internal/dpt"
)

// Stats counts bridge activity. The zero value is ready to use and all
// methods are safe for concurrent use.
//
// A Stats can be created before the bridge so that the codec registry's
// diagnostic hook can feed it:
//
//	stats := &knx.Stats{}
//	reg := dpt.NewStandardRegistry(dpt.WithDiagnostics(stats.RecordDiagnostic))
type Stats struct {
	telegramsRx  atomic.Uint64
	telegramsTx  atomic.Uint64
	unbound      atomic.Uint64
	decodeErrors atomic.Uint64
	encodeErrors atomic.Uint64
	diagnostics  atomic.Uint64
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	TelegramsRx  uint64 `json:"telegrams_rx"`
	TelegramsTx  uint64 `json:"telegrams_tx"`
	Unbound      uint64 `json:"unbound"`
	DecodeErrors uint64 `json:"decode_errors"`
	EncodeErrors uint64 `json:"encode_errors"`
	Diagnostics  uint64 `json:"diagnostics"`
}

// RecordDiagnostic counts an out-of-range value reported by the codecs.
func (s *Stats) RecordDiagnostic(dpt.Diagnostic) {
	s.diagnostics.Add(1)
}

// Snapshot returns the current counter values.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		TelegramsRx:  s.telegramsRx.Load(),
		TelegramsTx:  s.telegramsTx.Load(),
		Unbound:      s.unbound.Load(),
		DecodeErrors: s.decodeErrors.Load(),
		EncodeErrors: s.encodeErrors.Load(),
		Diagnostics:  s.diagnostics.Load(),
	}
}

// Counters returns the snapshot keyed by field name, for metrics writers.
func (s StatsSnapshot) Counters() map[string]int64 {
	return map[string]int64{
		"telegrams_rx":  int64(s.TelegramsRx),  //nolint:gosec // counters stay far below 2^63
		"telegrams_tx":  int64(s.TelegramsTx),  //nolint:gosec // counters stay far below 2^63
		"unbound":       int64(s.Unbound),      //nolint:gosec // counters stay far below 2^63
		"decode_errors": int64(s.DecodeErrors), //nolint:gosec // counters stay far below 2^63
		"encode_errors": int64(s.EncodeErrors), //nolint:gosec // counters stay far below 2^63
		"diagnostics":   int64(s.Diagnostics),  //nolint:gosec // counters stay far below 2^63
	}
}
