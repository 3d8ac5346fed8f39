package dpt

import (
	"bytes"
	"errors"
	"math"
	"testing"
)

func mustResolve(t *testing.T, r *Registry, id string) *Handle {
	t.Helper()
	h, err := r.Resolve(id)
	if err != nil {
		t.Fatalf("Resolve(%q): %v", id, err)
	}
	return h
}

// ─── DPT1 (Boolean) ─────────────────────────────────────────────

func TestEncodeDPT1(t *testing.T) {
	tests := []struct {
		name  string
		value bool
		want  []byte
	}{
		{"true", true, []byte{0x01}},
		{"false", false, []byte{0x00}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EncodeDPT1(tt.value)
			if !bytes.Equal(got, tt.want) {
				t.Errorf("EncodeDPT1(%v) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestDecodeDPT1(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		want    bool
		wantErr bool
	}{
		{"0x01 is true", []byte{0x01}, true, false},
		{"0x00 is false", []byte{0x00}, false, false},
		{"only bit 0 counts (0xFE)", []byte{0xFE}, false, false},
		{"only bit 0 counts (0x03)", []byte{0x03}, true, false},
		{"empty", []byte{}, false, true},
		{"two bytes", []byte{0x00, 0x01}, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeDPT1(tt.data)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidBufferLength) {
					t.Errorf("DecodeDPT1(%v) error = %v, want ErrInvalidBufferLength", tt.data, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeDPT1(%v) unexpected error: %v", tt.data, err)
			}
			if got != tt.want {
				t.Errorf("DecodeDPT1(%v) = %v, want %v", tt.data, got, tt.want)
			}
		})
	}
}

func TestBooleanCodecValues(t *testing.T) {
	h := mustResolve(t, NewStandardRegistry(), "1.001")

	tests := []struct {
		name  string
		value any
		want  byte
	}{
		{"bool true", true, 0x01},
		{"bool false", false, 0x00},
		{"int 1", 1, 0x01},
		{"int 0", 0, 0x00},
		{"non-zero float", 0.5, 0x01},
		{"negative", -3, 0x01},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := h.Encode(tt.value)
			if err != nil {
				t.Fatalf("Encode(%v) unexpected error: %v", tt.value, err)
			}
			if len(got) != 1 || got[0] != tt.want {
				t.Errorf("Encode(%v) = %v, want [%#x]", tt.value, got, tt.want)
			}
		})
	}

	if _, err := h.Encode("on"); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("Encode(\"on\") error = %v, want ErrInvalidValue", err)
	}
}

// ─── DPT3 (4-bit Control) ───────────────────────────────────────

func TestEncodeDPT3(t *testing.T) {
	tests := []struct {
		name    string
		value   Control
		want    byte
		wantErr bool
	}{
		{"increase step 1 (100%)", Control{Direction: 1, Magnitude: 1}, 0x09, false},
		{"increase step 3", Control{Direction: 1, Magnitude: 3}, 0x0B, false},
		{"decrease step 7", Control{Direction: 0, Magnitude: 7}, 0x07, false},
		{"stop", Control{Direction: 0, Magnitude: 0}, 0x00, false},
		{"magnitude masked to 3 bits", Control{Direction: 1, Magnitude: 9}, 0x09, false},
		{"direction 2 rejected", Control{Direction: 2, Magnitude: 1}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeDPT3(tt.value)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidValue) {
					t.Errorf("EncodeDPT3(%+v) error = %v, want ErrInvalidValue", tt.value, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("EncodeDPT3(%+v) unexpected error: %v", tt.value, err)
			}
			if len(got) != 1 || got[0] != tt.want {
				t.Errorf("EncodeDPT3(%+v) = %v, want [%#x]", tt.value, got, tt.want)
			}
		})
	}
}

func TestDecodeDPT3(t *testing.T) {
	tests := []struct {
		name string
		data byte
		want Control
	}{
		{"0x0B", 0x0B, Control{Direction: 1, Magnitude: 3}},
		{"0x07", 0x07, Control{Direction: 0, Magnitude: 7}},
		{"upper nibble ignored", 0xFB, Control{Direction: 1, Magnitude: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeDPT3([]byte{tt.data})
			if err != nil {
				t.Fatalf("DecodeDPT3(%#x) unexpected error: %v", tt.data, err)
			}
			if got != tt.want {
				t.Errorf("DecodeDPT3(%#x) = %+v, want %+v", tt.data, got, tt.want)
			}
		})
	}

	if _, err := DecodeDPT3([]byte{0x01, 0x02}); !errors.Is(err, ErrInvalidBufferLength) {
		t.Errorf("DecodeDPT3(2 bytes) error = %v, want ErrInvalidBufferLength", err)
	}
}

func TestControlCodecValues(t *testing.T) {
	h := mustResolve(t, NewStandardRegistry(), "3.007")

	tests := []struct {
		name    string
		value   any
		want    byte
		wantErr bool
	}{
		{"struct", Control{Direction: 1, Magnitude: 5}, 0x0D, false},
		{"pointer", &Control{Direction: 0, Magnitude: 2}, 0x02, false},
		{"map", map[string]any{"direction": 1.0, "magnitude": 5.0}, 0x0D, false},
		{"legacy keys", map[string]any{"decr_incr": 1, "data": 3}, 0x0B, false},
		{"bool direction", map[string]any{"direction": true, "magnitude": 1}, 0x09, false},
		{"map magnitude masked", map[string]any{"direction": 0, "magnitude": 9}, 0x01, false},
		{"map direction out of range", map[string]any{"direction": 3, "magnitude": 1}, 0, true},
		{"map missing magnitude", map[string]any{"direction": 1}, 0, true},
		{"map fractional magnitude", map[string]any{"direction": 1, "magnitude": 1.5}, 0, true},
		{"nil pointer", (*Control)(nil), 0, true},
		{"wrong type", 5, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := h.Encode(tt.value)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidValue) {
					t.Errorf("Encode(%v) error = %v, want ErrInvalidValue", tt.value, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Encode(%v) unexpected error: %v", tt.value, err)
			}
			if len(got) != 1 || got[0] != tt.want {
				t.Errorf("Encode(%v) = %v, want [%#x]", tt.value, got, tt.want)
			}
		})
	}

	v, err := h.Decode([]byte{0x0D})
	if err != nil {
		t.Fatal(err)
	}
	if v != (Control{Direction: 1, Magnitude: 5}) {
		t.Errorf("Decode(0x0D) = %+v", v)
	}
}

// ─── DPT4 (8-bit Character) ─────────────────────────────────────

func TestCharacterCodec(t *testing.T) {
	h := mustResolve(t, NewStandardRegistry(), "4.002")

	tests := []struct {
		name    string
		value   any
		want    byte
		wantErr error
	}{
		{"ascii", "A", 0x41, nil},
		{"only first character", "Hello", 0x48, nil},
		{"latin-1", "é", 0xE9, nil},
		{"highest latin-1", "ÿ", 0xFF, nil},
		{"rune", 'z', 0x7A, nil},
		{"byte", byte(0x20), 0x20, nil},
		{"U+0100", "Ā", 0, ErrUnsupportedCharacter},
		{"emoji", "😀", 0, ErrUnsupportedCharacter},
		{"empty", "", 0, ErrInvalidValue},
		{"number", 65, 0, ErrInvalidValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := h.Encode(tt.value)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Encode(%v) error = %v, want %v", tt.value, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Encode(%v) unexpected error: %v", tt.value, err)
			}
			if len(got) != 1 || got[0] != tt.want {
				t.Errorf("Encode(%v) = %v, want [%#x]", tt.value, got, tt.want)
			}
		})
	}
}

func TestDecodeDPT4(t *testing.T) {
	for c := 0; c <= 0xFF; c++ {
		s, err := DecodeDPT4([]byte{byte(c)})
		if err != nil {
			t.Fatalf("DecodeDPT4(%#x) unexpected error: %v", c, err)
		}
		b, err := EncodeDPT4(s)
		if err != nil {
			t.Fatalf("EncodeDPT4(%q) unexpected error: %v", s, err)
		}
		if b[0] != byte(c) {
			t.Errorf("round trip %#x -> %q -> %#x", c, s, b[0])
		}
	}

	if _, err := DecodeDPT4(nil); !errors.Is(err, ErrInvalidBufferLength) {
		t.Errorf("DecodeDPT4(nil) error = %v, want ErrInvalidBufferLength", err)
	}
}

// ─── DPT9 (2-byte Float) ────────────────────────────────────────

func TestEncodeDPT9(t *testing.T) {
	tests := []struct {
		name    string
		value   float64
		mode    FloatMode
		want    []byte
		wantErr error
	}{
		{"zero", 0, FloatCorrected, []byte{0x00, 0x00}, nil},
		{"20.5 corrected", 20.5, FloatCorrected, []byte{0x0C, 0x01}, nil},
		{"21.5 corrected", 21.5, FloatCorrected, []byte{0x0C, 0x33}, nil},
		{"40.96 takes smallest fitting exponent", 40.96, FloatCorrected, []byte{0x14, 0x00}, nil},
		{"-1", -1, FloatCorrected, []byte{0x87, 0x9C}, nil},
		{"-1 compat", -1, FloatCompat, []byte{0x87, 0x9C}, nil},
		{"10 corrected", 10, FloatCorrected, []byte{0x03, 0xE8}, nil},
		{"10 compat", 10, FloatCompat, []byte{0x03, 0xE8}, nil},
		{"0.01", 0.01, FloatCorrected, []byte{0x00, 0x01}, nil},
		{"1.237 corrected rounds", 1.237, FloatCorrected, []byte{0x00, 0x7C}, nil},
		{"1.237 compat truncates", 1.237, FloatCompat, []byte{0x00, 0x7B}, nil},
		{"tiny negative is positive zero", -0.001, FloatCorrected, []byte{0x00, 0x00}, nil},
		{"20.5 compat has no exponent", 20.5, FloatCompat, nil, ErrNoSuitableExponent},
		{"20.46 compat fits", 20.46, FloatCompat, []byte{0x07, 0xFE}, nil},
		{"670000", 670000, FloatCorrected, []byte{0x7F, 0xFD}, nil},
		{"670760 excluded", 670760, FloatCorrected, nil, ErrNoSuitableExponent},
		{"-671088.64 excluded", -671088.64, FloatCorrected, nil, ErrNoSuitableExponent},
		{"NaN", math.NaN(), FloatCorrected, nil, ErrNonFiniteValue},
		{"+Inf", math.Inf(1), FloatCorrected, nil, ErrNonFiniteValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeDPT9(tt.value, tt.mode)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("EncodeDPT9(%v, %s) error = %v, want %v", tt.value, tt.mode, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("EncodeDPT9(%v, %s) unexpected error: %v", tt.value, tt.mode, err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("EncodeDPT9(%v, %s) = % X, want % X", tt.value, tt.mode, got, tt.want)
			}
		})
	}
}

func TestDecodeDPT9(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want float64
	}{
		{"zero", []byte{0x00, 0x00}, 0},
		{"20.5", []byte{0x0C, 0x01}, 20.5},
		{"21.5", []byte{0x0C, 0x33}, 21.5},
		{"-1", []byte{0x87, 0x9C}, -1},
		{"0.01", []byte{0x00, 0x01}, 0.01},
		{"largest", []byte{0x7F, 0xFF}, 670760.96},
		{"smallest", []byte{0xF8, 0x00}, -671088.64},
		{"21.0 from 0x0C1A", []byte{0x0C, 0x1A}, 21},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeDPT9(tt.data)
			if err != nil {
				t.Fatalf("DecodeDPT9(% X) unexpected error: %v", tt.data, err)
			}
			if got != tt.want {
				t.Errorf("DecodeDPT9(% X) = %v, want %v", tt.data, got, tt.want)
			}
		})
	}

	for _, data := range [][]byte{nil, {0x0C}, {0x0C, 0x01, 0x00}} {
		if _, err := DecodeDPT9(data); !errors.Is(err, ErrInvalidBufferLength) {
			t.Errorf("DecodeDPT9(% X) error = %v, want ErrInvalidBufferLength", data, err)
		}
	}
}

func TestDPT9RoundTrip(t *testing.T) {
	values := []float64{-273, -20.5, -0.5, 0.01, 1, 20.5, 21.3, 100, 1000, 30000, -30000, 670000}
	for _, v := range values {
		b, err := EncodeDPT9(v, FloatCorrected)
		if err != nil {
			t.Fatalf("EncodeDPT9(%v) unexpected error: %v", v, err)
		}
		got, err := DecodeDPT9(b)
		if err != nil {
			t.Fatalf("DecodeDPT9(% X) unexpected error: %v", b, err)
		}
		tolerance := math.Max(0.01, math.Abs(v)*0.001)
		if math.Abs(got-v) > tolerance {
			t.Errorf("round trip %v -> % X -> %v (tolerance %v)", v, b, got, tolerance)
		}
	}
}

func TestFloatCodecRangePolicy(t *testing.T) {
	var diags []Diagnostic
	lenient := NewStandardRegistry(WithDiagnostics(func(d Diagnostic) { diags = append(diags, d) }))

	h := mustResolve(t, lenient, "9.001")
	if _, err := h.Encode(-300); err != nil {
		t.Fatalf("lenient Encode(-300) error: %v", err)
	}
	if len(diags) != 1 {
		t.Fatalf("got %d diagnostics, want 1", len(diags))
	}
	if diags[0].TypeID != "DPT9" || diags[0].SubtypeCode != "001" || diags[0].Value != -300 {
		t.Errorf("diagnostic = %+v", diags[0])
	}
	if diags[0].Bounds != (Range{Min: -273, Max: 670760}) {
		t.Errorf("diagnostic bounds = %v", diags[0].Bounds)
	}

	clamp := mustResolve(t, NewStandardRegistry(WithRangePolicy(RangeClamp)), "9.001")
	b, err := clamp.Encode(-300.0)
	if err != nil {
		t.Fatalf("clamp Encode(-300) error: %v", err)
	}
	v, _ := DecodeDPT9(b)
	if math.Abs(v-(-273)) > 0.1 {
		t.Errorf("clamped value decodes to %v, want about -273", v)
	}

	reject := mustResolve(t, NewStandardRegistry(WithRangePolicy(RangeReject)), "9.001")
	if _, err := reject.Encode(-300.0); !errors.Is(err, ErrValueOutOfRange) {
		t.Errorf("reject Encode(-300) error = %v, want ErrValueOutOfRange", err)
	}
	if _, err := reject.Encode(21.5); err != nil {
		t.Errorf("reject Encode(21.5) unexpected error: %v", err)
	}
}

func TestFloatCodecMode(t *testing.T) {
	compat := mustResolve(t, NewStandardRegistry(WithFloatMode(FloatCompat)), "9")
	if _, err := compat.Encode(20.5); !errors.Is(err, ErrNoSuitableExponent) {
		t.Errorf("compat Encode(20.5) error = %v, want ErrNoSuitableExponent", err)
	}

	corrected := mustResolve(t, NewStandardRegistry(), "9")
	b, err := corrected.Encode(20.5)
	if err != nil {
		t.Fatalf("corrected Encode(20.5) error: %v", err)
	}
	v, err := corrected.Decode(b)
	if err != nil {
		t.Fatal(err)
	}
	if f, ok := v.(float64); !ok || math.Abs(f-20.5) > 0.1 {
		t.Errorf("Decode(Encode(20.5)) = %v", v)
	}

	if _, err := corrected.Encode("warm"); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("Encode(\"warm\") error = %v, want ErrInvalidValue", err)
	}
}
