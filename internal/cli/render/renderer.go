package render

import (
	"github.com/trebuchet-org/govlock/internal/domain"
)

// Renderer writes a command result for humans. JSON output bypasses it.
type Renderer[T any] interface {
	Render(result T) error
}

var (
	_ Renderer[*ProposalDetails]         = (*ProposalRenderer)(nil)
	_ Renderer[[]domain.GovernanceEvent] = (*EventsRenderer)(nil)
	_ Renderer[[]Holding]                = (*BalancesRenderer)(nil)
	_ Renderer[*SimulationReport]        = (*SimulationRenderer)(nil)
)
