package tsdemux

// clockBase is a 33-bit 90kHz clock sample, as carried by both the PCR
// field of an adaptation field and the PTS/DTS fields of a PES optional
// header. Only the base is kept; it is scaled to milliseconds by division
// by 90.
type clockBase uint64

// milliseconds converts a 90kHz clock sample to milliseconds.
func (c clockBase) milliseconds() int64 {
	return int64(c) / 90
}

// parsePCR decodes a 5-byte (42-bit, base+reserved+extension truncated to
// what's relevant here) PCR field into a 33-bit base. The 9-bit 27MHz
// extension is not read; it has no consumer in this core.
func parsePCR(b []byte) clockBase {
	return clockBase((uint64(b[0])<<25 |
		uint64(b[1])<<17 |
		uint64(b[2])<<9 |
		uint64(b[3])<<1 |
		uint64(b[4])>>7) & 0x1ffffffff)
}

// parsePTSOrDTS decodes a 33-bit PTS/DTS value from 5 bytes: byte0 bits
// 3..1 are bits 32..30, byte1..2 form bits 29..15 after stripping the
// marker bit, byte3..4 form bits 14..0 after stripping the marker bit.
func parsePTSOrDTS(b []byte) clockBase {
	hi := uint64(b[0]&0x0e) << 29
	mid := (uint64(b[1])<<8 | uint64(b[2])) >> 1 << 15
	lo := (uint64(b[3])<<8 | uint64(b[4])) >> 1
	return clockBase(hi | mid | lo)
}
