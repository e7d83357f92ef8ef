package tsdemux

import "errors"

// Sentinel errors naming low level packet conditions. The packet framer does
// not return either of them: a lost sync byte is handled by resynchronizing,
// and a source that runs out (mid-resync or mid-packet) ends the read with
// io.EOF. Other conditions described by the error handling design
// (continuity mismatches, bad PSI CRCs, malformed descriptors, PES start
// code mismatch, ...) are recoverable and are logged, and dropped packets
// are counted by CorruptedPackets, instead of being returned as Go errors.
var (
	// ErrPacketStartSyncByte names a packet that does not start with the
	// sync byte.
	ErrPacketStartSyncByte = errors.New("tsdemux: packet must start with a sync byte")

	// ErrPacketTooShort names a packet for which the byte source produced
	// fewer than 188 bytes; NewReaderByteSource reports that case as io.EOF.
	ErrPacketTooShort = errors.New("tsdemux: packet is shorter than 188 bytes")
)
