package interactive

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/manifoldco/promptui"
	"github.com/mattn/go-isatty"
	"github.com/sahilm/fuzzy"
)

// ErrNonInteractive is returned when a choice is needed but nobody can make it
var ErrNonInteractive = errors.New("interactive selection not available")

// Selector asks the user to pick one of several candidates
type Selector struct {
	enabled bool
}

// NewSelector creates a selector. It stays disabled unless enabled is set and
// both stdin and stdout are terminals.
func NewSelector(enabled bool) *Selector {
	return &Selector{enabled: enabled && IsTerminal()}
}

// IsTerminal reports whether stdin and stdout are attached to a terminal
func IsTerminal() bool {
	return isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(os.Stdout.Fd())
}

// Enabled reports whether Select may prompt
func (s *Selector) Enabled() bool {
	return s.enabled
}

// Select shows options and returns the index of the chosen one
func (s *Selector) Select(label string, options []string) (int, error) {
	if !s.enabled {
		return -1, ErrNonInteractive
	}
	if len(options) == 0 {
		return -1, fmt.Errorf("nothing to select")
	}
	if len(options) == 1 {
		return 0, nil
	}

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "▸ {{ . | cyan }}",
		Inactive: "  {{ . | faint }}",
		Selected: "✓ {{ . | green }}",
		Help:     color.New(color.FgYellow).Sprint("Use arrow keys to navigate, / to search, Enter to select"),
	}

	prompt := promptui.Select{
		Label:     label,
		Items:     options,
		Templates: templates,
		Size:      10,
		Searcher:  fuzzySearcher(options),
	}
	index, _, err := prompt.Run()
	if err != nil {
		return -1, fmt.Errorf("selection cancelled: %w", err)
	}
	return index, nil
}

// fuzzySearcher matches substrings first, then fuzzy subsequences
func fuzzySearcher(items []string) func(input string, index int) bool {
	return func(input string, index int) bool {
		if input == "" {
			return true
		}
		input = strings.ToLower(input)
		item := strings.ToLower(items[index])
		if strings.Contains(item, input) {
			return true
		}
		return len(fuzzy.Find(input, []string{item})) > 0
	}
}
