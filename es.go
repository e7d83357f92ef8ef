package tsdemux

import (
	"fmt"
	"strings"
)

// MediaKind is the media category this core derives from an ES's
// stream_type, refined by its descriptors for the private/ambiguous types.
type MediaKind int

const (
	MediaKindUnknown MediaKind = iota
	MediaKindVideo
	MediaKindAudio
	MediaKindSubtitle
)

func (k MediaKind) String() string {
	switch k {
	case MediaKindVideo:
		return "video"
	case MediaKindAudio:
		return "audio"
	case MediaKindSubtitle:
		return "subtitle"
	default:
		return "unknown"
	}
}

// streamTypeMediaKind classifies a PMT ES entry's stream_type. Types
// 0x06/0x15/0x86 are private/ambiguous and stay unknown here; their
// real kind, if any, is resolved by ES descriptors (AC-3, DTS, DVB
// subtitle) in buildESRecord.
func streamTypeMediaKind(streamType uint8) MediaKind {
	switch streamType {
	case 0x01, 0x02, 0x10, 0x1b, 0x80:
		return MediaKindVideo
	case 0x03, 0x04, 0x0f, 0x11, 0x81, 0x83:
		return MediaKindAudio
	default:
		return MediaKindUnknown
	}
}

// langNames maps a subset of ISO 639-2 three-letter codes to a display
// name, for ES records whose language descriptor is present. Not
// exhaustive: codes outside this table display as their raw ISO code.
var langNames = map[string]string{
	"eng": "English",
	"fre": "French",
	"fra": "French",
	"ger": "German",
	"deu": "German",
	"spa": "Spanish",
	"ita": "Italian",
	"por": "Portuguese",
	"rus": "Russian",
	"chi": "Chinese",
	"zho": "Chinese",
	"jpn": "Japanese",
	"kor": "Korean",
	"ara": "Arabic",
	"dut": "Dutch",
	"nld": "Dutch",
	"swe": "Swedish",
	"nor": "Norwegian",
	"dan": "Danish",
	"fin": "Finnish",
	"pol": "Polish",
	"tur": "Turkish",
	"gre": "Greek",
	"ell": "Greek",
	"heb": "Hebrew",
	"hin": "Hindi",
	"tha": "Thai",
	"vie": "Vietnamese",
	"ukr": "Ukrainian",
	"ces": "Czech",
	"cze": "Czech",
	"hun": "Hungarian",
	"ron": "Romanian",
	"rum": "Romanian",
	"bul": "Bulgarian",
	"hrv": "Croatian",
	"srp": "Serbian",
	"und": "Undetermined",
}

func languageDisplayName(code string) string {
	if name, ok := langNames[strings.ToLower(code)]; ok {
		return name
	}
	return code
}

// ESRecord describes one elementary stream as declared by a PMT entry,
// refined by its descriptors. Immutable once built: a new PMT version
// produces a new ESRecord rather than mutating an existing one.
type ESRecord struct {
	PID        uint16
	StreamType uint8
	MediaKind  MediaKind

	// PrivateStreamType disambiguates stream_types (0x06/0x15/0x86) that
	// carry no inherent media kind: "ac-3", "e-ac-3", "dts", "dvb-subtitle"
	// or "teletext" depending on which descriptor was present, empty
	// otherwise.
	PrivateStreamType string

	// CASystemID and CAPID carry the first CA descriptor's conditional
	// access system id and ECM/EMM PID. CAPID is 0 if no CA descriptor
	// was present.
	CASystemID uint16
	CAPID      uint16

	DisplayName string
	Languages   []string

	Descriptors map[uint8]Descriptor
}

// buildESRecord constructs an ESRecord from a PMT entry's stream_type, PID
// and already-parsed descriptors, applying each descriptor's effect on
// media kind, language list and private-stream-type tag.
func buildESRecord(streamType uint8, pid uint16, descriptors []Descriptor) ESRecord {
	es := ESRecord{
		PID:         pid,
		StreamType:  streamType,
		MediaKind:   streamTypeMediaKind(streamType),
		Descriptors: make(map[uint8]Descriptor, len(descriptors)),
	}
	es.DisplayName = initialDisplayName(es.MediaKind, streamType)

	for _, d := range descriptors {
		es.Descriptors[d.Tag] = d

		switch d.Tag {
		case DescriptorTagCA:
			if d.CA == nil {
				continue
			}
			if es.CAPID != 0 {
				logger.Errorf("tsdemux: ES PID %d already has a CA PID defined: %d vs %d", pid, es.CAPID, d.CA.PID)
				continue
			}
			es.CAPID = d.CA.PID
			es.CASystemID = d.CA.SystemID
		case DescriptorTagLanguage:
			es.Languages = nil
			for _, lang := range d.Languages {
				es.Languages = append(es.Languages, lang.Code)
			}
			es.DisplayName = appendLanguageSuffix(es.DisplayName, es.Languages)
		case DescriptorTagDVBSubtitle:
			es.MediaKind = MediaKindSubtitle
			es.PrivateStreamType = "dvb-subtitle"
			for _, lang := range d.DVBSubtitle {
				es.Languages = append(es.Languages, lang.Code)
			}
			es.DisplayName = "[SRT] DVB subtitle"
		case DescriptorTagAC3, DescriptorTagEAC3, DescriptorTagDTS:
			es.MediaKind = MediaKindAudio
			switch d.Tag {
			case DescriptorTagAC3:
				es.PrivateStreamType = "ac-3"
			case DescriptorTagEAC3:
				es.PrivateStreamType = "e-ac-3"
			case DescriptorTagDTS:
				es.PrivateStreamType = "dts"
			}
			es.DisplayName = fmt.Sprintf("[AUD] AC3 or DTS (0x%02x)", d.Tag)
		case DescriptorTagTeletext:
			es.MediaKind = MediaKindSubtitle
			es.PrivateStreamType = "teletext"
			es.DisplayName = "[SRT] Teletext subtitle"
		}
	}

	return es
}

// initialDisplayName matches the prefix an ES gets from its stream_type
// alone, before any descriptor has had a chance to override it:
// "[AUD]"/"[VID]"/"[SRT]" plus a short codec name, or
// "unknown (stream_type: N)" for anything not classified.
func initialDisplayName(kind MediaKind, streamType uint8) string {
	name := streamTypeCodecName(streamType)
	switch kind {
	case MediaKindAudio:
		return "[AUD] " + name
	case MediaKindVideo:
		return "[VID] " + name
	case MediaKindSubtitle:
		return "[SRT] " + name
	default:
		return fmt.Sprintf("unknown (stream_type: %d)", streamType)
	}
}

// streamTypeCodecName gives a short codec label for the stream_types
// streamTypeMediaKind classifies; empty for anything else.
func streamTypeCodecName(streamType uint8) string {
	switch streamType {
	case 0x01:
		return "MPEG1 video"
	case 0x02, 0x80:
		return "MPEG2 video"
	case 0x03:
		return "MPEG1 audio"
	case 0x04:
		return "MPEG2 audio"
	case 0x0f:
		return "ADTS"
	case 0x10:
		return "MPEG4"
	case 0x11:
		return "AAC"
	case 0x1b:
		return "H264"
	case 0x81:
		return "AC3"
	case 0x83:
		return "PCM"
	default:
		return ""
	}
}

// appendLanguageSuffix appends " | <display name>" for the first language
// in langs to name, replicating the original parser's habit of growing the
// name with each language descriptor seen rather than rebuilding it.
func appendLanguageSuffix(name string, langs []string) string {
	if len(langs) == 0 {
		return name
	}
	return name + " | " + languageDisplayName(langs[0])
}
