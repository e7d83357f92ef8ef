package tsdemux

// EventHandler is the consumer callback surface fired synchronously from
// the goroutine draining the byte source. Implementations must not block;
// all calls happen inline with packet processing.
type EventHandler interface {
	// OnProgramAdded/OnProgramRemoved fire from a completed PAT diff.
	OnProgramAdded(programID uint16, pmtPID uint16)
	OnProgramRemoved(programID uint16, pmtPID uint16)

	// OnPCRPIDChanged fires when a program's PMT declares a different
	// PCR PID than its previous complete version.
	OnPCRPIDChanged(programID uint16, pcrPID uint16)

	// OnStreamAdded/OnStreamRemoved fire from a completed PMT diff.
	// Consumers wishing to decode an ES install a PIDReader on es.PID at
	// this point (e.g. via a Demuxer's RegisterPESConsumer).
	OnStreamAdded(programID uint16, pid uint16, es ESRecord)
	OnStreamRemoved(programID uint16, pid uint16, es ESRecord)
}

// NoopEventHandler implements EventHandler with no-op methods, so callers
// can embed it and override only the callbacks they care about.
type NoopEventHandler struct{}

func (NoopEventHandler) OnProgramAdded(uint16, uint16)      {}
func (NoopEventHandler) OnProgramRemoved(uint16, uint16)    {}
func (NoopEventHandler) OnPCRPIDChanged(uint16, uint16)     {}
func (NoopEventHandler) OnStreamAdded(uint16, uint16, ESRecord)   {}
func (NoopEventHandler) OnStreamRemoved(uint16, uint16, ESRecord) {}
