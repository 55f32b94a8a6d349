package ui

import (
	"strings"

	"github.com/srodi/thrashwatch/pkg/thrashing"
)

const (
	reset       = "\033[0m"
	bold        = "\033[1m"
	outlineGray = "\033[38;5;244m"
	mint        = "\033[38;5;121m"
	seafoam     = "\033[38;5;49m"
	cobalt      = "\033[38;5;33m"
	beeYellow   = "\033[38;5;226m"
	honeyOrange = "\033[38;5;214m"
	flame       = "\033[38;5;208m"
	alarmRed    = "\033[38;5;196m"
)

// Banner renders a colored thrashwatch wordmark.
func Banner() string {
	var b strings.Builder

	letters := [][]string{
		{"████████╗", "╚══██╔══╝", "   ██║   ", "   ██║   ", "   ██║   ", "   ╚═╝   "},
		{"██╗  ██╗", "██║  ██║", "███████║", "██╔══██║", "██║  ██║", "╚═╝  ╚═╝"},
		{"██████╗ ", "██╔══██╗", "██████╔╝", "██╔══██╗", "██║  ██║", "╚═╝  ╚═╝"},
		{" █████╗ ", "██╔══██╗", "███████║", "██╔══██║", "██║  ██║", "╚═╝  ╚═╝"},
		{"███████╗", "██╔════╝", "███████╗", "╚════██║", "███████║", "╚══════╝"},
		{"██╗  ██╗", "██║  ██║", "███████║", "██╔══██║", "██║  ██║", "╚═╝  ╚═╝"},
	}
	// Calm to hot, left to right.
	gradient := []string{mint, seafoam, cobalt, beeYellow, honeyOrange, flame}
	rows := make([]string, len(letters[0]))
	for i, letter := range letters {
		color := gradient[i%len(gradient)]
		for row := 0; row < len(letter); row++ {
			rows[row] += color + letter[row] + "  "
		}
	}
	for _, line := range rows {
		b.WriteString(bold + line + reset + "\n")
	}

	b.WriteString("\n")
	b.WriteString(bold + flame + "thrashwatch" + reset + outlineGray + "  •  " + reset + "swap thrashing detector\n\n")

	return b.String()
}

// LevelBadge colors a detector level for the status line.
func LevelBadge(level thrashing.Level) string {
	color := outlineGray
	switch level {
	case thrashing.LevelNone:
		color = mint
	case thrashing.LevelSuspected:
		color = honeyOrange
	case thrashing.LevelConfirmed:
		color = alarmRed
	}
	return bold + color + strings.ToUpper(level.String()) + reset
}
