package q1

// Sentinel marks the end of a block's raw content
const Sentinel = 0xFE

// PackedSize returns the 7-bit packed size of n raw bytes.
//
//	212 -> 243
//	 42 ->  48
func PackedSize(n int) int {
	rem := n % 7
	if rem != 0 {
		rem++
	}
	return 8*(n/7) + rem
}

// UnpackedSize returns the raw size of m packed bytes.
//
//	243 -> 212
//	 48 ->  42
func UnpackedSize(m int) int {
	rem := m % 8
	if rem != 0 {
		rem--
	}
	return 7*(m/8) + rem
}

// Pack7to8 packs raw into 7-bit safe groups: one mask byte, whose bit j
// holds the high bit of data byte j, followed by up to seven data bytes with
// the high bit cleared.
//
// Packing stops after the first Sentinel byte. Further Sentinel bytes that
// immediately follow it inside the same group are still packed as data, so
// a doubled FE FE end-of-block mark survives when it does not straddle a
// group boundary.
func Pack7to8(raw []byte) []byte {
	out := make([]byte, 0, PackedSize(len(raw)))
	ended := false

	i := 0
	for i < len(raw) && !ended {
		maskAt := len(out)
		out = append(out, 0)

		var mask byte
		for j := 0; j < 7 && i < len(raw); j++ {
			b := raw[i]
			if ended {
				if b != Sentinel {
					break
				}
			} else if b == Sentinel {
				ended = true
			}
			if b&0x80 != 0 {
				mask |= 1 << j
			}
			out = append(out, b&0x7F)
			i++
		}
		out[maskAt] = mask
	}
	return out
}

// Unpack8to7 reverses Pack7to8, restoring each data byte's high bit from its
// group's mask byte. A trailing mask byte with no data yields nothing.
func Unpack8to7(packed []byte) []byte {
	out := make([]byte, 0, UnpackedSize(len(packed)))

	i := 0
	for i < len(packed) {
		mask := packed[i]
		i++
		for j := 0; j < 7 && i < len(packed); j++ {
			out = append(out, packed[i]&0x7F|((mask>>j)&0x01)<<7)
			i++
		}
	}
	return out
}

// checksum is the 7-bit masked sum of the packed payload bytes
func checksum(packed []byte) byte {
	var sum byte
	for _, b := range packed {
		sum += b
	}
	return sum & 0x7F
}
