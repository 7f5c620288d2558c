// Package report defines the reporting channel between the engines and
// whatever presentation layer is attached to them.
//
// Engines call through the Reporter interface unconditionally; silent
// (scheduler-triggered) runs simply attach the no-op implementation, so
// engine code never branches on whether anyone is listening.
package report

// Reporter receives the ordered event stream of a single engine run:
// free-form log lines, progress snapshots, and exactly one terminal
// Finish call.
type Reporter interface {
	// Log emits a human-readable log line.
	Log(text string)
	// Progress emits a snapshot: overall completion fraction in [0,1],
	// a phase label, and preformatted elapsed/ETA strings.
	Progress(fraction float64, label, elapsed, eta string)
	// Finish reports the terminal outcome of the run.
	Finish(success bool, message string)
}

// Nop is the silent reporter used for background runs.
type Nop struct{}

func (Nop) Log(string)                               {}
func (Nop) Progress(float64, string, string, string) {}
func (Nop) Finish(bool, string)                      {}

var _ Reporter = Nop{}
