package report

// EventKind tags the events handed off to a presentation consumer.
type EventKind int

const (
	EventLog EventKind = iota
	EventProgress
	EventFinish
)

// Event is one tagged entry in the reporting stream. Only the fields
// relevant to the Kind are populated.
type Event struct {
	Kind EventKind

	// EventLog
	Text string

	// EventProgress
	Fraction float64
	Label    string
	Elapsed  string
	ETA      string

	// EventFinish
	Success bool
	Message string
}

// ChannelReporter forwards events through an ordered, buffered channel
// so a presentation layer on another goroutine can apply them without
// sharing state with the engine. Emission order equals delivery order.
type ChannelReporter struct {
	events chan Event
}

// NewChannelReporter creates a reporter with the given channel buffer.
// The consumer is expected to drain Events promptly; a full buffer
// blocks the producing engine until space frees up.
func NewChannelReporter(buffer int) *ChannelReporter {
	return &ChannelReporter{events: make(chan Event, buffer)}
}

// Events returns the receive side of the stream.
func (r *ChannelReporter) Events() <-chan Event {
	return r.events
}

// Close closes the stream. Call only after the run's Finish event has
// been emitted; engines never close the channel themselves.
func (r *ChannelReporter) Close() {
	close(r.events)
}

func (r *ChannelReporter) Log(text string) {
	r.events <- Event{Kind: EventLog, Text: text}
}

func (r *ChannelReporter) Progress(fraction float64, label, elapsed, eta string) {
	r.events <- Event{Kind: EventProgress, Fraction: fraction, Label: label, Elapsed: elapsed, ETA: eta}
}

func (r *ChannelReporter) Finish(success bool, message string) {
	r.events <- Event{Kind: EventFinish, Success: success, Message: message}
}

var _ Reporter = (*ChannelReporter)(nil)
