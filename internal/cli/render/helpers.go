package render

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/holiman/uint256"
	"github.com/trebuchet-org/govlock/internal/domain/models"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	labelStyle   = color.New(color.Faint)
	headerStyle  = color.New(color.Bold, color.FgHiWhite)
	idStyle      = color.New(color.FgCyan)
	pointStyle   = color.New(color.FgYellow)
	successStyle = color.New(color.FgGreen)
	failStyle    = color.New(color.FgRed)
	mutedStyle   = color.New(color.Faint)
)

// AccountNamer turns an address into the name the user knows it by
type AccountNamer func(common.Address) string

// FormatError formats an error message with the error icon
func FormatError(message string) string {
	msg := message
	if len(msg) > 0 {
		msg = strings.ToUpper(msg[:1]) + msg[1:]
	}

	return color.New(color.FgRed).Sprintf("❌ %s", msg)
}

// FormatWarning formats a warning message with the warning icon
func FormatWarning(message string) string {
	return color.New(color.FgYellow).Sprintf("⚠️  %s", message)
}

// FormatSuccess formats a success message with the success icon
func FormatSuccess(message string) string {
	return color.New(color.FgGreen).Sprintf("✅ %s", message)
}

// StateStyle colors a proposal state by how it ended or where it is heading
func StateStyle(state models.ProposalState) *color.Color {
	switch state {
	case models.ProposalStatePending:
		return color.New(color.FgHiBlack)
	case models.ProposalStateActive:
		return color.New(color.FgCyan, color.Bold)
	case models.ProposalStateSucceeded, models.ProposalStateQueued:
		return color.New(color.FgYellow)
	case models.ProposalStateExecuted:
		return color.New(color.FgGreen)
	default:
		return color.New(color.FgRed)
	}
}

// FormatState renders a proposal state in its color
func FormatState(state models.ProposalState) string {
	return StateStyle(state).Sprint(state.String())
}

// FormatOperationState renders a timelock operation state in its color
func FormatOperationState(state models.OperationState) string {
	switch state {
	case models.OperationStateReady:
		return color.New(color.FgYellow, color.Bold).Sprint(state.String())
	case models.OperationStateDone:
		return successStyle.Sprint(state.String())
	case models.OperationStateCanceled:
		return failStyle.Sprint(state.String())
	}
	return mutedStyle.Sprint(state.String())
}

// Title turns identifiers like "for_abstain" into "For Abstain"
func Title(s string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(s, "_", " "))
}

// ShortHash abbreviates a hash for tables
func ShortHash(h common.Hash) string {
	hex := h.Hex()
	return hex[:10] + "…" + hex[len(hex)-4:]
}

// FormatUnits renders amount with the given number of decimals and
// thousands separators, trimming trailing zero decimals
func FormatUnits(amount *uint256.Int, decimals int) string {
	if amount == nil {
		return "0"
	}
	digits := amount.Dec()
	if decimals > 0 && len(digits) <= decimals {
		digits = strings.Repeat("0", decimals-len(digits)+1) + digits
	}
	whole, frac := digits, ""
	if decimals > 0 {
		whole, frac = digits[:len(digits)-decimals], strings.TrimRight(digits[len(digits)-decimals:], "0")
	}
	out := commify(whole)
	if frac != "" {
		out += "." + frac
	}
	return out
}

func commify(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
