package tsdemux

import (
	"context"
	"errors"
	"io"

	"github.com/asticode/go-astikit"
)

// patPID is the fixed PID the Program Association Table is always carried
// on.
const patPID = 0x00

// Demuxer is the top-level orchestrator: it wires the packet framer to the
// PID dispatcher, seeds the PAT reader on PID 0, and drives a synchronous,
// single-threaded read loop. It owns no goroutines; Run and NextPacket
// both execute entirely on the calling goroutine, returning control to the
// caller between packets.
type Demuxer struct {
	framer     *packetFramer
	dispatcher *pidDispatcher
	pat        *patReader
	events     EventHandler
}

// DemuxerOption configures a Demuxer at construction time.
type DemuxerOption func(*Demuxer)

// DemuxerOptEventHandler installs the consumer callback surface. Without
// this option, a NoopEventHandler is used and PAT/PMT diffs are silently
// discarded.
func DemuxerOptEventHandler(h EventHandler) DemuxerOption {
	return func(d *Demuxer) { d.events = h }
}

// DemuxerOptLogger routes this package's diagnostic output (resyncs,
// dropped sections, CRC failures) to l instead of discarding it.
func DemuxerOptLogger(l astikit.StdLogger) DemuxerOption {
	return func(*Demuxer) { SetLogger(l) }
}

// DemuxerOptVerbose enables packet-by-packet trace logging.
func DemuxerOptVerbose(v bool) DemuxerOption {
	return func(*Demuxer) { SetVerbose(v) }
}

// NewDemuxer constructs a Demuxer reading 188-byte packets from src. PID 0
// is pre-registered with a PAT reader; every other reader (PMT, then ES)
// comes into existence as a side effect of table diffs.
func NewDemuxer(src ByteSource, opts ...DemuxerOption) *Demuxer {
	d := &Demuxer{
		dispatcher: newPIDDispatcher(),
		events:     NoopEventHandler{},
	}
	for _, opt := range opts {
		opt(d)
	}

	d.pat = newPATReader(d.dispatcher, d.events)
	d.dispatcher.register(patPID, d.pat)
	d.framer = newPacketFramer(src, d.dispatcher)

	return d
}

// RegisterPESConsumer installs a PES reader for pid, wired to consumer.
// Consumers call this from OnStreamAdded once they decide to decode an ES.
func (d *Demuxer) RegisterPESConsumer(pid uint16, consumer PESConsumer) {
	d.dispatcher.register(pid, newPESReader(pid, consumer))
}

// UnregisterPID removes whatever reader is installed on pid, if any.
func (d *Demuxer) UnregisterPID(pid uint16) {
	d.dispatcher.unregister(pid)
}

// LatestPCR returns the most recent PCR, in milliseconds, observed on pid.
func (d *Demuxer) LatestPCR(pid uint16) (int64, bool) {
	c, ok := d.framer.latestPCR(pid)
	if !ok {
		return 0, false
	}
	return c.milliseconds(), true
}

// CorruptedPackets reports the running count of packets dropped for
// transport errors, the reserved adaptation_field_control value, or
// malformed adaptation fields.
func (d *Demuxer) CorruptedPackets() int { return d.framer.corruptedPackets }

// Resyncs reports how many times the framer had to search for a lost sync
// byte.
func (d *Demuxer) Resyncs() int { return d.framer.resyncs }

// ProgramDescriptors returns the raw program-level descriptor bytes from
// programID's most recently completed PMT version. The second return value
// is false if programID is not currently known.
func (d *Demuxer) ProgramDescriptors(programID uint16) ([]byte, bool) {
	pmt, ok := d.pat.pmtReaderFor(programID)
	if !ok {
		return nil, false
	}
	return pmt.ProgramDescriptors(), true
}

// NextPacket reads, decodes and dispatches exactly one TS packet. It
// returns io.EOF once the byte source is exhausted, or ctx.Err() if ctx is
// already done.
func (d *Demuxer) NextPacket(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.framer.next()
}

// Run drains the byte source packet by packet until end-of-stream or ctx
// is cancelled. There is no other cancellation primitive: ctx is purely
// cooperative, checked between packets.
func (d *Demuxer) Run(ctx context.Context) error {
	for {
		if err := d.NextPacket(ctx); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}
