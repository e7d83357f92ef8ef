package tsdemux

// patTableID is the Program Association Table's table_id.
const patTableID = 0x00

// networkProgramNumber is the reserved program_number (0) whose "PID" is
// actually the Network PID, recorded but never exposed as a program.
const networkProgramNumber = 0

// patReader specialises psiReader to decode the Program Association
// Table: a program_number -> PMT PID map, diffed against the previous
// complete version on each table_complete.
type patReader struct {
	psi *psiReader

	dispatcher *pidDispatcher
	events     EventHandler

	networkPID uint16
	pending    map[uint16]uint16 // program_number -> PMT PID, for the in-progress version
	programs   map[uint16]uint16 // program_number -> PMT PID, last complete version

	pmtReaders map[uint16]*pmtReader // program_number -> its PMT reader
}

func newPATReader(dispatcher *pidDispatcher, events EventHandler) *patReader {
	p := &patReader{
		dispatcher: dispatcher,
		events:     events,
		pending:    make(map[uint16]uint16),
		programs:   make(map[uint16]uint16),
		pmtReaders: make(map[uint16]*pmtReader),
	}
	p.psi = newPSIReader(p)
	return p
}

// pmtReaderFor returns the PMT reader tracking program, if any.
func (p *patReader) pmtReaderFor(program uint16) (*pmtReader, bool) {
	r, ok := p.pmtReaders[program]
	return r, ok
}

// ReadPacketPayload implements PIDReader.
func (p *patReader) ReadPacketPayload(data []byte, pusi bool, scrambling uint8, discontinuity bool) error {
	return p.psi.ReadPacketPayload(data, pusi, scrambling, discontinuity)
}

// Close releases the underlying PSI reassembly buffer back to the pool.
func (p *patReader) Close() { p.psi.Close() }

func (p *patReader) expectedTableID() uint8 { return patTableID }

// checkSectionHeader enforces the PAT/PMT section_length <= 1021 bound.
func (p *patReader) checkSectionHeader(h psiSectionHeader) bool {
	return h.SectionLength <= 1021
}

func (p *patReader) onNewVersion(uint8) {
	p.pending = make(map[uint16]uint16)
}

// onSection parses 4-byte (program_number, PID) tuples.
func (p *patReader) onSection(_ uint8, payload []byte, _ uint32) bool {
	if len(payload)%4 != 0 {
		logger.Warnf("tsdemux: PAT section payload length %d not a multiple of 4", len(payload))
		return false
	}
	for i := 0; i+4 <= len(payload); i += 4 {
		program := uint16(payload[i])<<8 | uint16(payload[i+1])
		pid := uint16(payload[i+2]&0x1f)<<8 | uint16(payload[i+3])
		if program == networkProgramNumber {
			p.networkPID = pid
			continue
		}
		p.pending[program] = pid
	}
	return true
}

// onTableComplete diffs the newly complete program map against the
// previous one, firing OnProgramAdded/OnProgramRemoved and registering or
// unregistering the corresponding PMT readers.
func (p *patReader) onTableComplete() {
	added, removed, changed := diffPIDMap(p.programs, p.pending)

	for _, program := range sortedUint16Keys(removed) {
		pid := removed[program]
		p.events.OnProgramRemoved(program, pid)
		p.dispatcher.unregister(pid)
		delete(p.pmtReaders, program)
	}
	for _, program := range sortedUint16Keys(changed) {
		oldPID := changed[program]
		p.events.OnProgramRemoved(program, oldPID)
		p.dispatcher.unregister(oldPID)
		delete(p.pmtReaders, program)

		newPID := p.pending[program]
		pmt := newPMTReader(program, p.dispatcher, p.events)
		p.events.OnProgramAdded(program, newPID)
		p.dispatcher.register(newPID, pmt)
		p.pmtReaders[program] = pmt
	}
	for _, program := range sortedUint16Keys(added) {
		pid := added[program]
		pmt := newPMTReader(program, p.dispatcher, p.events)
		p.events.OnProgramAdded(program, pid)
		p.dispatcher.register(pid, pmt)
		p.pmtReaders[program] = pmt
	}

	p.programs = p.pending
}
