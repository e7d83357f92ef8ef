package main

import (
	"fmt"

	"github.com/mpegts/tsdemux"
)

// program is the CLI's flattened report of one PAT-declared program and
// its elementary streams, built from this core's diff callbacks.
type program struct {
	ID      uint16    `json:"id"`
	PMTPID  uint16    `json:"pmt_pid"`
	PCRPID  uint16    `json:"pcr_pid,omitempty"`
	Streams []*stream `json:"streams,omitempty"`
}

type stream struct {
	PID  uint16 `json:"pid"`
	Name string `json:"name"`
}

func (p *program) String() string {
	s := fmt.Sprintf("[%d] PMT PID: %d - PCR PID: %d", p.ID, p.PMTPID, p.PCRPID)
	for _, st := range p.Streams {
		s += fmt.Sprintf("\n  * [%d] %s", st.PID, st.Name)
	}
	return s
}

// programCollector implements tsdemux.EventHandler, accumulating PAT/PMT
// diffs into a flat program list for the lifetime of the run.
type programCollector struct {
	tsdemux.NoopEventHandler

	byID map[uint16]*program
}

func newProgramCollector() *programCollector {
	return &programCollector{byID: make(map[uint16]*program)}
}

func (c *programCollector) OnProgramAdded(programID, pmtPID uint16) {
	c.byID[programID] = &program{ID: programID, PMTPID: pmtPID}
}

func (c *programCollector) OnProgramRemoved(programID, _ uint16) {
	delete(c.byID, programID)
}

func (c *programCollector) OnPCRPIDChanged(programID, pcrPID uint16) {
	if p, ok := c.byID[programID]; ok {
		p.PCRPID = pcrPID
	}
}

func (c *programCollector) OnStreamAdded(programID, pid uint16, es tsdemux.ESRecord) {
	if p, ok := c.byID[programID]; ok {
		p.Streams = append(p.Streams, &stream{PID: pid, Name: es.DisplayName})
	}
}

func (c *programCollector) OnStreamRemoved(programID, pid uint16, _ tsdemux.ESRecord) {
	p, ok := c.byID[programID]
	if !ok {
		return
	}
	for i, st := range p.Streams {
		if st.PID == pid {
			p.Streams = append(p.Streams[:i], p.Streams[i+1:]...)
			break
		}
	}
}

func (c *programCollector) programs() []*program {
	out := make([]*program, 0, len(c.byID))
	for _, p := range c.byID {
		out = append(out, p)
	}
	return out
}
