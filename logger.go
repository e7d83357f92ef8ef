package tsdemux

import "github.com/asticode/go-astikit"

// Right now we use a global logger because it feels weird to inject a logger
// into every reader/parser struct in this package. The logger only exists so
// an operator can see the recoverable parse errors described by the error
// handling design (resyncs, CRC failures, dropped sections): nothing here is
// ever fatal to the byte stream.
var logger = astikit.AdaptStdLogger(nil)

// SetLogger sets the logger used by the package.
func SetLogger(l astikit.StdLogger) { logger = astikit.AdaptStdLogger(l) }

// astikit.StdLogger has no notion of a trace/verbose level below info, so we
// keep our own switch for packet-by-packet tracing, gated separately from
// info/warning/error.
var verboseLogging = false

// SetVerbose toggles verbose/trace logging.
func SetVerbose(v bool) { verboseLogging = v }

func logVerbosef(format string, args ...interface{}) {
	if verboseLogging {
		logger.Debugf(format, args...)
	}
}
