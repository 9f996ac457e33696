package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Level is the severity of a message
type Level int

const (
	LevelError Level = iota
	LevelWarning
	LevelInfo
)

// Message is a problem report with optional suggestions and follow-up commands
type Message struct {
	Level       Level
	Problem     string
	Detail      string
	Suggestions []string
	Hints       []string
	NoColor     bool
}

// Format renders the message
//
//	✗ table not found: bazaar.prodcut
//	   Did you mean: bazaar.product?
//
//	   → reflector relations --file catalog.yml
func (m Message) Format() string {
	var b strings.Builder

	var symbol string
	var tone *color.Color
	switch m.Level {
	case LevelWarning:
		symbol, tone = "!", newColor(m.NoColor, color.FgYellow, color.Bold)
	case LevelInfo:
		symbol, tone = "i", newColor(m.NoColor, color.FgCyan, color.Bold)
	default:
		symbol, tone = "✗", newColor(m.NoColor, color.FgRed, color.Bold)
	}

	tone.Fprintf(&b, "%s %s\n", symbol, m.Problem)
	if m.Detail != "" {
		fmt.Fprintf(&b, "   %s\n", m.Detail)
	}
	if len(m.Suggestions) > 0 {
		newColor(m.NoColor, color.FgYellow).Fprintf(&b, "   Did you mean: %s?\n", strings.Join(m.Suggestions, ", "))
	}
	if len(m.Hints) > 0 {
		b.WriteString("\n")
		hint := newColor(m.NoColor, color.FgCyan)
		for _, h := range m.Hints {
			hint.Fprintf(&b, "   → %s\n", h)
		}
	}
	return b.String()
}

// Write renders the message to w
func (m Message) Write(w io.Writer) {
	fmt.Fprint(w, m.Format())
}

// Success renders a confirmation line
func Success(w io.Writer, message string, noColor bool) {
	newColor(noColor, color.FgGreen, color.Bold).Fprintf(w, "✓ %s\n", message)
}

// TableNotFound reports an unknown table name with close matches
func TableNotFound(name string, candidates []string, noColor bool) Message {
	return Message{
		Level:       LevelError,
		Problem:     "table not found: " + name,
		Suggestions: Suggest(name, candidates, 3),
		Hints:       []string{"list tables: reflector relations"},
		NoColor:     noColor,
	}
}
