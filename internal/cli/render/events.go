package render

import (
	"fmt"
	"io"

	"github.com/trebuchet-org/govlock/internal/domain"
)

// EventsRenderer prints the events a command emitted
type EventsRenderer struct {
	out io.Writer
}

// NewEventsRenderer creates a new events renderer
func NewEventsRenderer(out io.Writer) *EventsRenderer {
	return &EventsRenderer{out: out}
}

// Render implements Renderer
func (r *EventsRenderer) Render(events []domain.GovernanceEvent) error {
	for _, e := range events {
		fmt.Fprintf(r.out, "  %s %s\n", mutedStyle.Sprint("↳"), e.String())
	}
	return nil
}
