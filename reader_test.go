package tsdemux

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingReader struct {
	calls []struct {
		pusi          bool
		scrambling    uint8
		discontinuity bool
		payload       []byte
	}
}

func (r *recordingReader) ReadPacketPayload(payload []byte, pusi bool, scrambling uint8, discontinuity bool) error {
	cp := make([]byte, len(payload))
	copy(cp, payload)
	r.calls = append(r.calls, struct {
		pusi          bool
		scrambling    uint8
		discontinuity bool
		payload       []byte
	}{pusi, scrambling, discontinuity, cp})
	return nil
}

func payloadOnlyPacket(pid uint16, cc uint8, pusi bool, payload []byte) []byte {
	b := make([]byte, packetSize)
	b[0] = syncByte
	b[1] = byte(pid >> 8 & 0x1f)
	if pusi {
		b[1] |= 0x40
	}
	b[2] = byte(pid)
	b[3] = 0x10 | (cc & 0xf) // payload only
	copy(b[4:], payload)
	return b
}

func TestPacketFramer_dispatchesPayload(t *testing.T) {
	rr := &recordingReader{}
	d := newPIDDispatcher()
	d.register(0x100, rr)

	var buf bytes.Buffer
	buf.Write(payloadOnlyPacket(0x100, 0, true, []byte("hello")))

	f := newPacketFramer(NewReaderByteSource(&buf), d)
	assert.NoError(t, f.next())
	assert.Len(t, rr.calls, 1)
	assert.True(t, rr.calls[0].pusi)
	assert.False(t, rr.calls[0].discontinuity)
	assert.Equal(t, byte('h'), rr.calls[0].payload[0])
}

func TestPacketFramer_resyncsOnLostSync(t *testing.T) {
	rr := &recordingReader{}
	d := newPIDDispatcher()
	d.register(0x100, rr)

	good := payloadOnlyPacket(0x100, 0, true, []byte("ok"))
	var buf bytes.Buffer
	buf.WriteByte(0xff) // garbage byte before the real packet
	buf.WriteByte(0xff)
	buf.Write(good)

	f := newPacketFramer(NewReaderByteSource(&buf), d)
	assert.NoError(t, f.next())
	assert.Equal(t, 1, f.resyncs)
	assert.Len(t, rr.calls, 1)
}

func TestPacketFramer_eofPropagates(t *testing.T) {
	d := newPIDDispatcher()
	f := newPacketFramer(NewReaderByteSource(bytes.NewReader(nil)), d)
	assert.ErrorIs(t, f.next(), io.EOF)
}

func TestPacketFramer_nullPIDDiscardedSilently(t *testing.T) {
	rr := &recordingReader{}
	d := newPIDDispatcher()
	d.register(nullPID, rr)

	var buf bytes.Buffer
	buf.Write(payloadOnlyPacket(nullPID, 0, false, []byte("stuffing")))

	f := newPacketFramer(NewReaderByteSource(&buf), d)
	assert.NoError(t, f.next())
	assert.Empty(t, rr.calls)
}

func TestPacketFramer_discontinuityDetected(t *testing.T) {
	rr := &recordingReader{}
	d := newPIDDispatcher()
	d.register(0x100, rr)

	var buf bytes.Buffer
	buf.Write(payloadOnlyPacket(0x100, 0, true, []byte("a")))
	buf.Write(payloadOnlyPacket(0x100, 5, true, []byte("b"))) // should be 1, jumped to 5

	f := newPacketFramer(NewReaderByteSource(&buf), d)
	assert.NoError(t, f.next())
	assert.NoError(t, f.next())
	assert.Len(t, rr.calls, 2)
	assert.False(t, rr.calls[0].discontinuity)
	assert.True(t, rr.calls[1].discontinuity)
}

func TestPacketFramer_transportErrorIndicatorCounted(t *testing.T) {
	rr := &recordingReader{}
	d := newPIDDispatcher()
	d.register(0x100, rr)

	b := payloadOnlyPacket(0x100, 0, true, []byte("x"))
	b[1] |= 0x80 // set transport error indicator

	var buf bytes.Buffer
	buf.Write(b)

	f := newPacketFramer(NewReaderByteSource(&buf), d)
	assert.NoError(t, f.next())
	assert.Equal(t, 1, f.corruptedPackets)
	assert.Empty(t, rr.calls)
}

func TestPacketFramer_capturesPCR(t *testing.T) {
	d := newPIDDispatcher()

	base := uint64(90000)
	pcrBytes := make([]byte, 5)
	pcrBytes[0] = byte(base >> 25)
	pcrBytes[1] = byte(base >> 17)
	pcrBytes[2] = byte(base >> 9)
	pcrBytes[3] = byte(base >> 1)
	pcrBytes[4] = byte((base & 0x1) << 7)

	af := append([]byte{7, 0x10}, pcrBytes...)
	b := make([]byte, packetSize)
	b[0] = syncByte
	b[1] = 0x01
	b[2] = 0x00
	b[3] = 0x20 // adaptation field only
	copy(b[4:], af)

	var buf bytes.Buffer
	buf.Write(b)

	f := newPacketFramer(NewReaderByteSource(&buf), d)
	assert.NoError(t, f.next())
	pcr, ok := f.latestPCR(0x100)
	assert.True(t, ok)
	assert.Equal(t, int64(1000), pcr.milliseconds())
}
