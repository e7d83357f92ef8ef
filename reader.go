package tsdemux

import (
	"errors"
	"fmt"
)

// ErrCorruptedPacket names the condition the CorruptedPackets counter
// tracks: a packet dropped because its transport error indicator is set,
// its adaptation_field_control is the reserved value, or its adaptation
// field length does not fit inside the packet. The framer counts and skips
// such packets; it neither returns this error from NextPacket nor passes it
// to the event handler.
var ErrCorruptedPacket = errors.New("tsdemux: corrupted packet discarded")

// continuityState is per-PID continuity-counter bookkeeping. The null PID
// (0x1fff) never gets one: stuffing packets do not participate in
// continuity.
type continuityState struct {
	counter uint8
	primed  bool
}

// packetFramer pulls fixed 188-byte packets off a ByteSource, resynchronizes
// on sync-byte loss, strips the adaptation field, tracks per-PID continuity
// and the latest PCR per carrying PID (not keyed by program), and hands
// payload bytes to whatever PIDReader is
// registered for that PID.
type packetFramer struct {
	src        ByteSource
	dispatcher *pidDispatcher

	continuity map[uint16]*continuityState
	pcr        map[uint16]clockBase // PID -> latest PCR seen on that PID

	corruptedPackets int
	resyncs          int

	buf [packetSize]byte
}

func newPacketFramer(src ByteSource, d *pidDispatcher) *packetFramer {
	return &packetFramer{
		src:        src,
		dispatcher: d,
		continuity: make(map[uint16]*continuityState),
		pcr:        make(map[uint16]clockBase),
	}
}

// latestPCR returns the most recent PCR value observed on pid, if any.
func (f *packetFramer) latestPCR(pid uint16) (clockBase, bool) {
	c, ok := f.pcr[pid]
	return c, ok
}

// next reads, resynchronizes onto, and decodes a single packet, dispatching
// its payload to the registered PIDReader if any. It returns io.EOF once
// the source is exhausted. Corrupted packets are counted and skipped rather
// than returned as an error, since one bad packet must never stop the
// stream from being read.
func (f *packetFramer) next() error {
	if err := f.readSynced(); err != nil {
		return err
	}

	h := parsePacketHeader(f.buf[:4])
	logVerbosef("tsdemux: packet PID %d pusi=%v afc=%d cc=%d", h.PID, h.PayloadUnitStartIndicator, h.AdaptationFieldControl, h.ContinuityCounter)

	if h.TransportErrorIndicator {
		f.corruptedPackets++
		return nil
	}

	payload := f.buf[4:packetSize]
	var pcr clockBase
	var hasPCR bool

	switch h.AdaptationFieldControl {
	case adaptationFieldControlReserved:
		f.corruptedPackets++
		return nil
	case adaptationFieldControlAdaptationOnly:
		af, ok := f.parseAdaptationFieldSafe(payload, h.AdaptationFieldControl)
		if !ok {
			f.corruptedPackets++
			return nil
		}
		if af.HasPCR {
			pcr, hasPCR = af.PCR, true
		}
		payload = nil
	case adaptationFieldControlAdaptationAndPayload:
		af, ok := f.parseAdaptationFieldSafe(payload, h.AdaptationFieldControl)
		if !ok {
			f.corruptedPackets++
			return nil
		}
		if af.HasPCR {
			pcr, hasPCR = af.PCR, true
		}
		payload = payload[1+af.Length:]
	case adaptationFieldControlPayloadOnly:
		// payload is the full remainder, nothing to strip
	}

	if hasPCR {
		f.pcr[h.PID] = pcr
	}

	if h.PID == nullPID {
		return nil
	}

	discontinuity := f.trackContinuity(h)

	r, ok := f.dispatcher.get(h.PID)
	if !ok {
		return nil
	}
	if err := r.ReadPacketPayload(payload, h.PayloadUnitStartIndicator, h.TransportScramblingControl, discontinuity); err != nil {
		return fmt.Errorf("tsdemux: reading payload for PID %d: %w", h.PID, err)
	}
	return nil
}

// parseAdaptationFieldSafe bounds-checks the declared adaptation field
// length against the 184 bytes available after the header, and against the
// "length == 183 requires control 10" rule, before decoding it.
func (f *packetFramer) parseAdaptationFieldSafe(payload []byte, afc uint8) (adaptationField, bool) {
	if len(payload) == 0 {
		return adaptationField{}, false
	}
	length := int(payload[0])
	if length > 183 {
		return adaptationField{}, false
	}
	if length == 183 && afc != adaptationFieldControlAdaptationOnly {
		return adaptationField{}, false
	}
	if 1+length > len(payload) {
		return adaptationField{}, false
	}
	return parseAdaptationField(payload), true
}

// trackContinuity updates the per-PID continuity counter and reports
// whether this packet is discontinuous with the last one seen on its PID.
// Packets without payload are neither checked nor allowed to move the
// stored counter. On a packet with payload, a counter equal to the previous
// one (a duplicate packet) is not flagged; any other jump is.
func (f *packetFramer) trackContinuity(h packetHeader) bool {
	st, ok := f.continuity[h.PID]
	if !ok {
		st = &continuityState{}
		f.continuity[h.PID] = st
	}

	hasPayload := h.AdaptationFieldControl == adaptationFieldControlPayloadOnly ||
		h.AdaptationFieldControl == adaptationFieldControlAdaptationAndPayload

	discontinuity := false
	if st.primed && hasPayload {
		expected := (st.counter + 1) & 0xf
		if h.ContinuityCounter != expected && h.ContinuityCounter != st.counter {
			discontinuity = true
			logger.Warnf("tsdemux: continuity mismatch on PID %d: expected %d, got %d", h.PID, expected, h.ContinuityCounter)
		}
	}

	if hasPayload {
		st.counter = h.ContinuityCounter
		st.primed = true
	}
	return discontinuity
}

// readSynced fills f.buf with the next packet, resynchronizing byte by byte
// when the expected sync byte is missing.
func (f *packetFramer) readSynced() error {
	if _, err := f.src.ReadFull(f.buf[:]); err != nil {
		return err
	}
	if f.buf[0] == syncByte {
		return nil
	}
	return f.resync()
}

// resync looks for the next sync byte by sliding the window one byte at a
// time. It gives up only when the source runs out of bytes.
func (f *packetFramer) resync() error {
	f.resyncs++
	logger.Warnf("tsdemux: sync byte lost, resynchronizing")
	for {
		idx := -1
		for i := 1; i < packetSize; i++ {
			if f.buf[i] == syncByte {
				idx = i
				break
			}
		}
		if idx == -1 {
			if _, err := f.src.ReadFull(f.buf[:]); err != nil {
				return err
			}
			continue
		}

		copy(f.buf[:packetSize-idx], f.buf[idx:])
		if _, err := f.src.ReadFull(f.buf[packetSize-idx:]); err != nil {
			return err
		}
		if f.buf[0] == syncByte {
			return nil
		}
	}
}
