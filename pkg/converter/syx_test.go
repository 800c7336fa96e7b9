package converter

import (
	"testing"
)

func TestSplitSysEx(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		want    int
		wantErr bool
	}{
		{"single", []byte{0xF0, 0x41, 0x00, 0xF7}, 1, false},
		{"two", []byte{0xF0, 0x41, 0xF7, 0xF0, 0x41, 0xF7}, 2, false},
		{"too short", []byte{0xF0}, 0, true},
		{"no start", []byte{0x41, 0xF7}, 0, true},
		{"unterminated", []byte{0xF0, 0x41, 0x00}, 0, true},
		{"nested start", []byte{0xF0, 0x41, 0xF0, 0xF7}, 0, true},
		{"garbage between", []byte{0xF0, 0xF7, 0x00, 0xF0, 0xF7}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs, err := SplitSysEx(tt.data)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SplitSysEx() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(msgs) != tt.want {
				t.Errorf("SplitSysEx() = %d messages, want %d", len(msgs), tt.want)
			}
		})
	}
}

func TestJoinSysEx(t *testing.T) {
	data := []byte{0xF0, 0x41, 0x01, 0xF7, 0xF0, 0x41, 0x02, 0xF7}
	msgs, err := SplitSysEx(data)
	if err != nil {
		t.Fatal(err)
	}
	if got := JoinSysEx(msgs); string(got) != string(data) {
		t.Errorf("JoinSysEx() = % X, want % X", got, data)
	}
}

func TestValidateSyx(t *testing.T) {
	s := NewSyxConverter(nil)

	if err := s.ValidateSyx([]byte{0xF0, 0x41, 0x7F, 0xF7}); err != nil {
		t.Errorf("ValidateSyx() error = %v", err)
	}
	if err := s.ValidateSyx([]byte{0xF0, 0x41, 0x80, 0xF7}); err == nil {
		t.Error("ValidateSyx() should reject 8-bit data")
	}
	if _, err := s.ParseSyx([]byte{0xF0, 0xF7}); err == nil {
		t.Error("ParseSyx() without a device should fail")
	}
}

func TestExtractManufacturerID(t *testing.T) {
	id, err := ExtractManufacturerID([]byte{0xF0, 0x41, 0x57, 0x70, 0xF7})
	if err != nil || len(id) != 1 || id[0] != 0x41 {
		t.Errorf("ExtractManufacturerID() = % X, %v; want 41", id, err)
	}

	id, err = ExtractManufacturerID([]byte{0xF0, 0x00, 0x20, 0x32, 0x01, 0xF7})
	if err != nil || len(id) != 3 {
		t.Errorf("ExtractManufacturerID() extended = % X, %v", id, err)
	}
}

func TestIsRolandSyx(t *testing.T) {
	if !IsRolandSyx([]byte{0xF0, 0x41, 0x57, 0x70, 0x00, 0xF7}) {
		t.Error("IsRolandSyx() = false for a Roland message")
	}
	if IsRolandSyx([]byte{0xF0, 0x00, 0x20, 0x32, 0x00, 0xF7}) {
		t.Error("IsRolandSyx() = true for a Behringer message")
	}
}

func TestValidateQ1(t *testing.T) {
	good := append([]byte{0xFD, 'F', 'Q', '1'}, make([]byte, 38)...)
	if err := ValidateQ1(good); err != nil {
		t.Errorf("ValidateQ1() error = %v", err)
	}
	if err := ValidateQ1(good[:10]); err == nil {
		t.Error("ValidateQ1() should reject short data")
	}
	bad := append([]byte{0xFD, 'F', 'Q', '2'}, make([]byte, 38)...)
	if err := ValidateQ1(bad); err == nil {
		t.Error("ValidateQ1() should reject a bad signature")
	}
}
