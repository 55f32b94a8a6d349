package ui

import (
	"fmt"
	"strings"
	"testing"

	"github.com/srodi/thrashwatch/pkg/thrashing"
)

// TestBannerPreview prints the banner so `go test ./pkg/ui -run TestBannerPreview` shows it.
func TestBannerPreview(t *testing.T) {
	fmt.Println(Banner())
}

func TestBannerIncludesWordmark(t *testing.T) {
	banner := Banner()
	if !strings.Contains(banner, "thrashwatch") {
		t.Fatalf("banner missing thrashwatch wordmark: %q", banner)
	}
	if !strings.Contains(banner, "swap thrashing detector") {
		t.Fatalf("banner missing tagline")
	}
	lines := strings.Split(strings.TrimSpace(banner), "\n")
	if len(lines) < 7 {
		t.Fatalf("expected multi-line banner, got %d lines", len(lines))
	}
}

func TestBannerUsesGradientColors(t *testing.T) {
	banner := Banner()
	colors := []string{bold, mint, seafoam, cobalt, beeYellow, honeyOrange, flame}
	for _, color := range colors {
		if !strings.Contains(banner, color) {
			t.Fatalf("banner missing color code %q", color)
		}
	}
}

func TestLevelBadge(t *testing.T) {
	cases := []struct {
		level thrashing.Level
		color string
		text  string
	}{
		{thrashing.LevelNone, mint, "NONE"},
		{thrashing.LevelSuspected, honeyOrange, "SUSPECTED"},
		{thrashing.LevelConfirmed, alarmRed, "CONFIRMED"},
		{thrashing.Level(9), outlineGray, "LEVEL(9)"},
	}
	for _, tc := range cases {
		badge := LevelBadge(tc.level)
		if !strings.Contains(badge, tc.color) || !strings.Contains(badge, tc.text) {
			t.Fatalf("unexpected badge for %d: %q", tc.level, badge)
		}
		if !strings.HasSuffix(badge, reset) {
			t.Fatalf("badge must reset color: %q", badge)
		}
	}
}
