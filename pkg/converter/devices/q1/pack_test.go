package q1

import (
	"bytes"
	"math/rand"
	"testing"
)

func TestPackedSize(t *testing.T) {
	tests := []struct {
		raw, packed int
	}{
		{0, 0},
		{1, 2},
		{6, 7},
		{7, 8},
		{8, 10},
		{42, 48},
		{212, 243},
		{217, 248},
	}

	for _, tt := range tests {
		if got := PackedSize(tt.raw); got != tt.packed {
			t.Errorf("PackedSize(%d) = %d, want %d", tt.raw, got, tt.packed)
		}
		if got := UnpackedSize(tt.packed); got != tt.raw {
			t.Errorf("UnpackedSize(%d) = %d, want %d", tt.packed, got, tt.raw)
		}
	}
}

func TestPack7to8(t *testing.T) {
	raw := []byte{0x80, 0x01, 0xFF, 0x7F, 0x00, 0x90, 0x3C, 0x81}
	want := []byte{
		0x25, 0x00, 0x01, 0x7F, 0x7F, 0x00, 0x10, 0x3C,
		0x01, 0x01,
	}

	got := Pack7to8(raw)
	if !bytes.Equal(got, want) {
		t.Errorf("Pack7to8() = % X, want % X", got, want)
	}
	for i, b := range got {
		if b&0x80 != 0 {
			t.Errorf("packed byte %d = 0x%02X has its high bit set", i, b)
		}
	}
	if back := Unpack8to7(got); !bytes.Equal(back, raw) {
		t.Errorf("Unpack8to7() = % X, want % X", back, raw)
	}
}

func TestPackRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for n := 0; n < 300; n++ {
		raw := make([]byte, n)
		for i := range raw {
			b := byte(rng.Intn(256))
			for b == Sentinel {
				b = byte(rng.Intn(256))
			}
			raw[i] = b
		}

		packed := Pack7to8(raw)
		if len(packed) != PackedSize(n) {
			t.Fatalf("len(Pack7to8(%d bytes)) = %d, want %d", n, len(packed), PackedSize(n))
		}
		if back := Unpack8to7(packed); !bytes.Equal(back, raw) {
			t.Fatalf("round trip of %d bytes failed", n)
		}
	}
}

func TestPackStopsAtSentinel(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
		want []byte
	}{
		{
			name: "single sentinel",
			raw:  []byte{0x01, 0xFE, 0x02, 0x03},
			want: []byte{0x01, 0xFE},
		},
		{
			name: "doubled sentinel in one group",
			raw:  []byte{0x01, 0x02, 0xFE, 0xFE, 0x05},
			want: []byte{0x01, 0x02, 0xFE, 0xFE},
		},
		{
			name: "doubled sentinel across groups",
			raw:  []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0xFE, 0xFE, 0x07},
			want: []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0xFE},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Unpack8to7(Pack7to8(tt.raw))
			if !bytes.Equal(got, tt.want) {
				t.Errorf("Unpack8to7(Pack7to8(% X)) = % X, want % X", tt.raw, got, tt.want)
			}
		})
	}
}

func TestChecksum(t *testing.T) {
	if got := checksum([]byte{0x7F, 0x7F, 0x03}); got != 0x01 {
		t.Errorf("checksum() = 0x%02X, want 0x01", got)
	}
	if got := checksum(nil); got != 0 {
		t.Errorf("checksum(nil) = 0x%02X, want 0", got)
	}
}
