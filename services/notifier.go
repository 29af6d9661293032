package services

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

type Color string

const (
	ColorYellow Color = "yellow"
	ColorGreen  Color = "green"
	ColorRed    Color = "red"
)

// Notifier shows a short status message to the operator.
type Notifier interface {
	Notify(message string, color Color)
}

// BannerNotifier renders each message as a bordered, coloured banner.
type BannerNotifier struct {
	out      io.Writer
	renderer *lipgloss.Renderer
	mu       sync.Mutex
}

func NewBannerNotifier(out io.Writer) *BannerNotifier {
	return &BannerNotifier{
		out:      out,
		renderer: lipgloss.NewRenderer(out),
	}
}

func (b *BannerNotifier) Notify(message string, color Color) {
	c := terminalColor(color)
	style := b.renderer.NewStyle().
		Bold(true).
		Foreground(c).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(c).
		Padding(0, 2)

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := fmt.Fprintln(b.out, style.Render(message)); err != nil {
		slog.Debug("Could not write banner", "message", message, "error", err)
	}
}

// terminalColor maps a banner colour to its ANSI colour
func terminalColor(color Color) lipgloss.Color {
	switch color {
	case ColorGreen:
		return lipgloss.Color("2")
	case ColorRed:
		return lipgloss.Color("1")
	case ColorYellow:
		return lipgloss.Color("3")
	default:
		return lipgloss.Color("7")
	}
}
