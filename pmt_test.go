package tsdemux

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// esEntry builds one PMT ES entry (stream_type, PID, descriptor block).
func esEntry(streamType uint8, pid uint16, descriptors []byte) []byte {
	b := []byte{
		streamType,
		0xe0 | byte(pid>>8&0x1f), byte(pid),
		0xf0 | byte(len(descriptors)>>8&0x0f), byte(len(descriptors)),
	}
	return append(b, descriptors...)
}

func languageDescriptorBytes(code string, audioType uint8) []byte {
	return append([]byte{DescriptorTagLanguage, 4}, append([]byte(code), audioType)...)
}

func pmtPayload(pcrPID uint16, esEntries ...[]byte) []byte {
	payload := []byte{
		0xe0 | byte(pcrPID>>8&0x1f), byte(pcrPID),
		0xf0, 0x00, // program_info_length = 0
	}
	for _, e := range esEntries {
		payload = append(payload, e...)
	}
	return payload
}

func TestPMTReader_decodesPCRAndStream(t *testing.T) {
	events := &recordingEvents{}
	d := newPIDDispatcher()
	pmt := newPMTReader(1, d, events)

	entry := esEntry(0x1b, 0x201, languageDescriptorBytes("eng", 0))
	section := buildSection(pmtTableID, 1, 0, 0, 0, pmtPayload(0x200, entry))
	assert.NoError(t, pmt.ReadPacketPayload(withPointerField(section), true, 0, false))

	assert.Equal(t, []uint16{0x200}, events.pcrPIDChanged)
	assert.Equal(t, []uint16{0x201}, events.streamAdded)

	es := pmt.streams[0x201]
	assert.Equal(t, MediaKindVideo, es.MediaKind)
	assert.Equal(t, []string{"eng"}, es.Languages)
}

func TestPMTReader_extIDMismatchSkipsSection(t *testing.T) {
	events := &recordingEvents{}
	d := newPIDDispatcher()
	pmt := newPMTReader(1, d, events)

	section := buildSection(pmtTableID, 2 /* wrong program */, 0, 0, 0, pmtPayload(0x200))
	assert.NoError(t, pmt.ReadPacketPayload(withPointerField(section), true, 0, false))

	assert.Empty(t, events.pcrPIDChanged)
}

func TestPMTReader_streamRemovedOnVersionChange(t *testing.T) {
	events := &recordingEvents{}
	d := newPIDDispatcher()
	pmt := newPMTReader(1, d, events)

	entry := esEntry(0x1b, 0x201, nil)
	v1 := buildSection(pmtTableID, 1, 0, 0, 0, pmtPayload(0x200, entry))
	assert.NoError(t, pmt.ReadPacketPayload(withPointerField(v1), true, 0, false))

	v2 := buildSection(pmtTableID, 1, 1, 0, 0, pmtPayload(0x200))
	assert.NoError(t, pmt.ReadPacketPayload(withPointerField(v2), true, 0, false))

	assert.Equal(t, []uint16{0x201}, events.streamRemoved)
}
