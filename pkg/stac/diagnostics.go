package stac

// SignalKind classifies a diagnostic signal.
type SignalKind string

const (
	// SignalNoConformance fires when a server advertises no conformance
	// classes at all, leaving the client unable to gate features.
	SignalNoConformance SignalKind = "no_conformance"

	// SignalDoesNotConformTo fires when a search uses a feature the
	// server does not advertise. The request is still attempted.
	SignalDoesNotConformTo SignalKind = "does_not_conform_to"

	// SignalMissingLink fires when an expected relation link is absent
	// from a landing document and a fallback path is used instead.
	SignalMissingLink SignalKind = "missing_link"

	// SignalMissingMatched fires once per search when the server omits
	// the match-count estimate from its responses.
	SignalMissingMatched SignalKind = "missing_matched"

	// SignalIgnoredResult fires when an item modifier returns a new
	// object instead of mutating its argument in place.
	SignalIgnoredResult SignalKind = "ignored_result"

	// SignalModifiedTarget fires when a request modifier rewrites the
	// request target. The original target is kept.
	SignalModifiedTarget SignalKind = "modified_target"

	// SignalContinuationCycle fires when a next link points back at the
	// page it came from. Iteration stops; this is not an error.
	SignalContinuationCycle SignalKind = "continuation_cycle"

	// SignalMethodFallback fires when a POST search receives a 405 and
	// the search falls back to GET for all subsequent requests.
	SignalMethodFallback SignalKind = "method_fallback"
)

// Signal is a non-fatal diagnostic emitted by the client. Signals report
// server quirks and usage mistakes that do not halt execution.
type Signal struct {
	Kind    SignalKind
	Message string
}

// DiagnosticSink receives diagnostic signals. Passing the sink down
// explicitly keeps warning behavior deterministic and testable; there is
// no process-global filter state.
type DiagnosticSink interface {
	Emit(signal Signal)
}

// NopSink discards all signals.
type NopSink struct{}

// Emit implements DiagnosticSink.
func (NopSink) Emit(Signal) {}

// LoggerSink forwards signals to a Logger at warn level.
type LoggerSink struct {
	Logger Logger
}

// Emit implements DiagnosticSink.
func (s LoggerSink) Emit(signal Signal) {
	if s.Logger == nil {
		return
	}

	s.Logger.Warn(signal.Message, map[string]any{"kind": string(signal.Kind)})
}

// CollectorSink records every signal it receives, in order. It is meant
// for tests and for callers that want to inspect warnings after a search.
type CollectorSink struct {
	Signals []Signal
}

// Emit implements DiagnosticSink.
func (s *CollectorSink) Emit(signal Signal) {
	s.Signals = append(s.Signals, signal)
}

// Count returns how many collected signals have the given kind.
func (s *CollectorSink) Count(kind SignalKind) int {
	n := 0

	for _, sig := range s.Signals {
		if sig.Kind == kind {
			n++
		}
	}

	return n
}
