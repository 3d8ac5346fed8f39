// Package dpt encodes and decodes KNX datapoint types (DPTs).
//
// A datapoint type is identified as "DPT<main>[.<sub>]" (the "DPT" prefix
// is optional and case-insensitive, so "9.001", "DPT9.001" and "dpt9" all
// resolve). Each main type is described by a Descriptor held in a Registry;
// resolving an identifier returns a Handle, a private copy of the descriptor
// bound to the named subtype and to the codec for the descriptor's Family.
//
// Usage:
//
//	h, err := dpt.Resolve("9.001")
//	if err != nil {
//	    return err
//	}
//	b, err := h.Encode(21.5)                // []byte{0x0C, 0x33}
//	v, err := h.Decode([]byte{0x0C, 0x33}) // 21.5
//
// # Families
//
//   - FamilyBoolean (DPT1): one byte, bit 0.
//   - FamilyControl (DPT3): Control{Direction, Magnitude} packed as d<<3 | m.
//   - FamilyCharacter (DPT4): one Latin-1 character.
//   - FamilyFloat16 (DPT9): 2-byte KNX float, 0.01 * M * 2^E.
//   - FamilyGeneric: big-endian integers of up to 6 bytes, optionally
//     remapped linearly onto a subtype's scalar range (e.g. DPT5.001 percent).
//
// # Range handling
//
// Values outside a type's range are handled by the registry's RangePolicy.
// The default, RangeLenient, encodes them anyway and reports a Diagnostic to
// the callback installed with WithDiagnostics. RangeClamp and RangeReject
// clamp or fail instead.
//
// # Thread Safety
//
// Registry reads are lock-free and safe for concurrent use. Codecs are pure
// functions; a Handle may be shared between goroutines as long as callers
// do not mutate it.
package dpt
