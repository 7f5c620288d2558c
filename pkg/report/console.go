package report

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
)

// Console renders the event stream as terminal output. Progress lines
// are redrawn in place with a carriage return; log lines and the final
// outcome each get their own line.
type Console struct {
	mu           sync.Mutex
	out          io.Writer
	lineActive   bool
	successColor *color.Color
	failureColor *color.Color
	labelColor   *color.Color
}

// NewConsole creates a console reporter writing to stdout.
func NewConsole() *Console {
	return NewConsoleWriter(os.Stdout)
}

// NewConsoleWriter creates a console reporter writing to w.
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{
		out:          w,
		successColor: color.New(color.FgGreen, color.Bold),
		failureColor: color.New(color.FgRed, color.Bold),
		labelColor:   color.New(color.FgCyan),
	}
}

func (c *Console) Log(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLine()
	fmt.Fprintln(c.out, text)
}

func (c *Console) Progress(fraction float64, label, elapsed, eta string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	percent := int(fraction * 100)
	if percent > 100 {
		percent = 100
	}
	if label == "" {
		label = "Working..."
	}
	fmt.Fprintf(c.out, "\r[%3d%%] %s elapsed %s | eta %s   ", percent, c.labelColor.Sprint(label), elapsed, eta)
	c.lineActive = true
}

func (c *Console) Finish(success bool, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLine()
	if success {
		fmt.Fprintln(c.out, c.successColor.Sprint("OK"), message)
	} else {
		fmt.Fprintln(c.out, c.failureColor.Sprint("FAILED"), message)
	}
}

// clearLine terminates an in-place progress line before normal output.
func (c *Console) clearLine() {
	if c.lineActive {
		fmt.Fprintln(c.out)
		c.lineActive = false
	}
}

var _ Reporter = (*Console)(nil)
