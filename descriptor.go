package tsdemux

import (
	"bytes"
	"fmt"

	"github.com/icza/bitio"
)

// Descriptor tags this core understands. Any tag not listed here is
// retained verbatim as an Opaque descriptor.
const (
	DescriptorTagCA               = 0x09
	DescriptorTagLanguage         = 0x0a
	DescriptorTagStreamIdentifier = 0x52
	DescriptorTagTeletext         = 0x56
	DescriptorTagDVBSubtitle      = 0x59
	DescriptorTagAC3              = 0x6a
	DescriptorTagEAC3             = 0x7a
	DescriptorTagDTS              = 0x7b
	DescriptorTagSCTE35Cue        = 0x8a
)

// CADescriptor carries conditional-access system id and the PID carrying
// its ECM/EMM stream. This core does not descramble; it only surfaces the
// metadata.
type CADescriptor struct {
	SystemID uint16
	PID      uint16
}

// LanguageEntry is one language carried by an ISO_639_language_descriptor;
// a single descriptor may list more than one.
type LanguageEntry struct {
	Code      string // ISO 639-2 3-character code
	AudioType uint8
}

// TeletextLanguage is one entry of a teletext_descriptor.
type TeletextLanguage struct {
	Code     string
	Type     uint8
	Magazine uint8
	Page     uint8
}

// DVBSubtitleLanguage is one entry of a subtitling_descriptor.
type DVBSubtitleLanguage struct {
	Code              string
	SubtitlingType    uint8
	CompositionPageID uint16
	AncillaryPageID   uint16
}

// SCTE35CueDescriptor marks an elementary stream as carrying SCTE-35 cue
// messages; cue_stream_type selects their semantics (splice insert vs.
// all other types).
type SCTE35CueDescriptor struct {
	CueStreamType uint8
}

// Descriptor is the tagged union of every descriptor this core can
// produce, modeled as a struct of optional fields (one per known
// descriptor, plus an opaque fallback) rather than an interface.
type Descriptor struct {
	Tag uint8

	CA               *CADescriptor
	Languages        []LanguageEntry
	StreamIdentifier []byte
	Teletext         []TeletextLanguage
	DVBSubtitle      []DVBSubtitleLanguage
	SCTE35Cue        *SCTE35CueDescriptor

	// Opaque carries the raw descriptor bytes for tags this core does not
	// interpret, including AC3/EAC3/DTS (markers only - this core does not
	// decode their bitstream fields, only their presence).
	Opaque []byte
}

// parseDescriptor is a pure (tag, bytes) -> Descriptor function. It
// returns an error for descriptors that are malformed relative to their
// own declared length; callers drop the descriptor and log a warning
// rather than propagate it.
func parseDescriptor(tag uint8, data []byte) (Descriptor, error) {
	switch tag {
	case DescriptorTagCA:
		return parseCADescriptor(data)
	case DescriptorTagLanguage:
		return parseLanguageDescriptor(data)
	case DescriptorTagStreamIdentifier:
		return Descriptor{Tag: tag, StreamIdentifier: append([]byte(nil), data...)}, nil
	case DescriptorTagTeletext:
		return parseTeletextDescriptor(data)
	case DescriptorTagDVBSubtitle:
		return parseDVBSubtitleDescriptor(data)
	case DescriptorTagAC3, DescriptorTagEAC3, DescriptorTagDTS:
		return Descriptor{Tag: tag, Opaque: append([]byte(nil), data...)}, nil
	case DescriptorTagSCTE35Cue:
		return parseSCTE35CueDescriptor(data)
	default:
		return Descriptor{Tag: tag, Opaque: append([]byte(nil), data...)}, nil
	}
}

func parseCADescriptor(data []byte) (Descriptor, error) {
	r := bitio.NewCountReader(bytes.NewReader(data))
	systemID := r.TryReadBits(16)
	r.TryReadBits(3) // reserved
	pid := r.TryReadBits(13)
	if r.TryError != nil {
		return Descriptor{}, fmt.Errorf("tsdemux: parsing CA descriptor: %w", r.TryError)
	}
	return Descriptor{
		Tag: DescriptorTagCA,
		CA:  &CADescriptor{SystemID: uint16(systemID), PID: uint16(pid)},
	}, nil
}

func parseLanguageDescriptor(data []byte) (Descriptor, error) {
	if len(data)%4 != 0 {
		return Descriptor{}, fmt.Errorf("tsdemux: language descriptor length %d not a multiple of 4", len(data))
	}
	d := Descriptor{Tag: DescriptorTagLanguage}
	for i := 0; i+4 <= len(data); i += 4 {
		d.Languages = append(d.Languages, LanguageEntry{
			Code:      string(data[i : i+3]),
			AudioType: data[i+3],
		})
	}
	return d, nil
}

func parseTeletextDescriptor(data []byte) (Descriptor, error) {
	if len(data)%5 != 0 {
		return Descriptor{}, fmt.Errorf("tsdemux: teletext descriptor length %d not a multiple of 5", len(data))
	}
	d := Descriptor{Tag: DescriptorTagTeletext}
	for i := 0; i+5 <= len(data); i += 5 {
		d.Teletext = append(d.Teletext, TeletextLanguage{
			Code:     string(data[i : i+3]),
			Type:     data[i+3] >> 3 & 0x1f,
			Magazine: data[i+3] & 0x7,
			Page:     data[i+4],
		})
	}
	return d, nil
}

func parseDVBSubtitleDescriptor(data []byte) (Descriptor, error) {
	if len(data)%8 != 0 {
		return Descriptor{}, fmt.Errorf("tsdemux: DVB subtitle descriptor length %d not a multiple of 8", len(data))
	}
	d := Descriptor{Tag: DescriptorTagDVBSubtitle}
	for i := 0; i+8 <= len(data); i += 8 {
		d.DVBSubtitle = append(d.DVBSubtitle, DVBSubtitleLanguage{
			Code:              string(data[i : i+3]),
			SubtitlingType:    data[i+3],
			CompositionPageID: uint16(data[i+4])<<8 | uint16(data[i+5]),
			AncillaryPageID:   uint16(data[i+6])<<8 | uint16(data[i+7]),
		})
	}
	return d, nil
}

func parseSCTE35CueDescriptor(data []byte) (Descriptor, error) {
	if len(data) < 1 {
		return Descriptor{}, fmt.Errorf("tsdemux: SCTE-35 cue descriptor too short")
	}
	return Descriptor{
		Tag:       DescriptorTagSCTE35Cue,
		SCTE35Cue: &SCTE35CueDescriptor{CueStreamType: data[0]},
	}, nil
}
