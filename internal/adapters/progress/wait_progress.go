package progress

import (
	"fmt"
	"io"
	"time"

	"github.com/briandowns/spinner"
	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
)

// WaitProgress reports how far an operation is from its ready point while a
// command waits on it. On a terminal it drives a spinner, otherwise it prints
// one line per update.
type WaitProgress struct {
	out         io.Writer
	interactive bool
	spinner     *spinner.Spinner
	startTime   time.Time
	last        uint64
}

// NewWaitProgress creates a new wait progress reporter
func NewWaitProgress(out io.Writer, interactive bool) *WaitProgress {
	return &WaitProgress{
		out:         out,
		interactive: interactive,
		startTime:   time.Now(),
	}
}

// Update reports the current and the wanted point of id
func (w *WaitProgress) Update(id common.Hash, now, want uint64) {
	remaining := uint64(0)
	if want > now {
		remaining = want - now
	}
	msg := fmt.Sprintf("Waiting for %s: at %d, ready at %d (%d to go)", shortID(id), now, want, remaining)

	if !w.interactive {
		if now != w.last {
			fmt.Fprintln(w.out, msg)
			w.last = now
		}
		return
	}

	if w.spinner == nil {
		w.spinner = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		w.spinner.Writer = w.out
		_ = w.spinner.Color("cyan", "bold")
	}
	w.spinner.Suffix = " " + msg
	if !w.spinner.Active() {
		w.spinner.Start()
	}
}

// Done stops the spinner and prints how long the wait took
func (w *WaitProgress) Done() {
	if w.spinner != nil && w.spinner.Active() {
		w.spinner.Stop()
	}
	if w.spinner == nil && w.last == 0 {
		return
	}
	elapsed := time.Since(w.startTime).Round(time.Second)
	fmt.Fprintln(w.out, color.New(color.Faint).Sprintf("waited %s", elapsed))
}

func shortID(id common.Hash) string {
	return id.Hex()[:10] + "…"
}
