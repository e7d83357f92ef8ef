package tsdemux

import (
	"reflect"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// pmtTableID is the Program Map Table's table_id.
const pmtTableID = 0x02

// pmtReader specialises psiReader to decode one program's Program Map
// Table: its PCR PID and its elementary streams with descriptors, diffed
// against the previous complete version on each table_complete.
type pmtReader struct {
	psi *psiReader

	programID uint16

	dispatcher *pidDispatcher
	events     EventHandler

	pcrPID    uint16
	pcrPIDSet bool

	pendingPCRPID  uint16
	pendingStreams map[uint16]ESRecord
	streams        map[uint16]ESRecord

	// programDescriptors holds the raw program-level descriptor bytes
	// (the block selected by program_info_length). This core does not
	// interpret them, but keeps them for callers that want the raw bytes
	// rather than discarding them outright.
	programDescriptors []byte
}

func newPMTReader(programID uint16, dispatcher *pidDispatcher, events EventHandler) *pmtReader {
	p := &pmtReader{
		programID:      programID,
		dispatcher:     dispatcher,
		events:         events,
		pendingStreams: make(map[uint16]ESRecord),
		streams:        make(map[uint16]ESRecord),
	}
	p.psi = newPSIReader(p)
	return p
}

// ReadPacketPayload implements PIDReader.
func (p *pmtReader) ReadPacketPayload(data []byte, pusi bool, scrambling uint8, discontinuity bool) error {
	return p.psi.ReadPacketPayload(data, pusi, scrambling, discontinuity)
}

// Close releases the underlying PSI reassembly buffer back to the pool.
func (p *pmtReader) Close() { p.psi.Close() }

func (p *pmtReader) expectedTableID() uint8 { return pmtTableID }

// ProgramDescriptors returns the raw program-level descriptor bytes from
// the most recently completed PMT version, or nil if none has completed
// yet.
func (p *pmtReader) ProgramDescriptors() []byte { return p.programDescriptors }

// checkSectionHeader enforces section_length <= 1021, ext_id == program_id,
// and the single-section restriction (section_number and
// last_section_number both zero).
func (p *pmtReader) checkSectionHeader(h psiSectionHeader) bool {
	if h.SectionLength > 1021 {
		return false
	}
	if h.ExtID != p.programID {
		return false
	}
	if h.SectionNumber != 0 || h.LastSectionNumber != 0 {
		logger.Warnf("tsdemux: multi-section PMT for program %d is not supported, skipping", p.programID)
		return false
	}
	return true
}

func (p *pmtReader) onNewVersion(uint8) {
	p.pendingPCRPID = 0
	p.pendingStreams = make(map[uint16]ESRecord)
}

// onSection parses the PCR PID, skips program-level descriptors, then
// walks the ES entries.
func (p *pmtReader) onSection(_ uint8, payload []byte, _ uint32) bool {
	if len(payload) < 4 {
		logger.Warnf("tsdemux: PMT section for program %d too short", p.programID)
		return false
	}

	pcrPID := uint16(payload[0]&0x1f)<<8 | uint16(payload[1])
	programInfoLength := int(uint16(payload[2]&0x0f)<<8 | uint16(payload[3]))
	pos := 4 + programInfoLength
	if pos > len(payload) {
		logger.Warnf("tsdemux: PMT program_info_length for program %d exceeds section", p.programID)
		return false
	}
	p.pendingPCRPID = pcrPID
	p.programDescriptors = append([]byte(nil), payload[4:pos]...)

	for pos+5 <= len(payload) {
		streamType := payload[pos]
		esPID := uint16(payload[pos+1]&0x1f)<<8 | uint16(payload[pos+2])
		infoLength := int(uint16(payload[pos+3]&0x0f)<<8 | uint16(payload[pos+4]))
		pos += 5

		if pos+infoLength > len(payload) {
			logger.Warnf("tsdemux: PMT ES_info_length for PID %d exceeds section", esPID)
			break
		}
		descriptors := parseESDescriptors(payload[pos : pos+infoLength])
		pos += infoLength

		p.pendingStreams[esPID] = buildESRecord(streamType, esPID, descriptors)
	}
	return true
}

// parseESDescriptors walks a tag+length+data descriptor block, dropping
// and logging any descriptor that fails to parse.
func parseESDescriptors(data []byte) []Descriptor {
	var out []Descriptor
	pos := 0
	for pos+2 <= len(data) {
		tag := data[pos]
		length := int(data[pos+1])
		pos += 2
		if pos+length > len(data) {
			logger.Warnf("tsdemux: descriptor tag 0x%02x length exceeds block, dropping remainder", tag)
			break
		}
		d, err := parseDescriptor(tag, data[pos:pos+length])
		pos += length
		if err != nil {
			logger.Warnf("tsdemux: dropping descriptor tag 0x%02x: %v", tag, err)
			continue
		}
		out = append(out, d)
	}
	return out
}

// onTableComplete fires OnPCRPIDChanged when the PCR PID moved, then diffs
// the ES map by PID, firing OnStreamAdded/OnStreamRemoved and tearing down
// the dispatcher registration of any PID this PMT no longer declares.
func (p *pmtReader) onTableComplete() {
	if !p.pcrPIDSet || p.pendingPCRPID != p.pcrPID {
		p.events.OnPCRPIDChanged(p.programID, p.pendingPCRPID)
		p.pcrPID = p.pendingPCRPID
		p.pcrPIDSet = true
	}

	added, removed, changed := diffESMap(p.streams, p.pendingStreams)

	for _, pid := range sortedESKeys(removed) {
		p.events.OnStreamRemoved(p.programID, pid, removed[pid])
		p.dispatcher.unregister(pid)
	}
	for _, pid := range sortedESKeys(changed) {
		p.events.OnStreamRemoved(p.programID, pid, changed[pid])
		p.dispatcher.unregister(pid)
		p.events.OnStreamAdded(p.programID, pid, p.pendingStreams[pid])
	}
	for _, pid := range sortedESKeys(added) {
		p.events.OnStreamAdded(p.programID, pid, added[pid])
	}

	p.streams = p.pendingStreams
}

// diffESMap compares two PID->ESRecord maps: a PID present in both with a
// different stream_type or descriptor set lands in changed holding its
// old record, so callers can fire remove-then-add.
func diffESMap(old, updated map[uint16]ESRecord) (added, removed, changed map[uint16]ESRecord) {
	added = make(map[uint16]ESRecord)
	removed = make(map[uint16]ESRecord)
	changed = make(map[uint16]ESRecord)

	for pid, oldES := range old {
		newES, ok := updated[pid]
		if !ok {
			removed[pid] = oldES
			continue
		}
		if !reflect.DeepEqual(oldES, newES) {
			changed[pid] = oldES
		}
	}
	for pid, newES := range updated {
		if _, ok := old[pid]; !ok {
			added[pid] = newES
		}
	}
	return
}

func sortedESKeys(m map[uint16]ESRecord) []uint16 {
	ks := maps.Keys(m)
	slices.Sort(ks)
	return ks
}
