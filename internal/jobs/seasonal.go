package jobs

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/daggerwin/automod/internal/scheduler"
	"go.uber.org/zap"
)

// Theme is an embed colour active over a date range.
type Theme struct {
	Name  string
	Color int
	match func(month time.Month, day int) bool
}

func between(month time.Month, from, to int) func(time.Month, int) bool {
	return func(m time.Month, d int) bool {
		return m == month && d >= from && d <= to
	}
}

// DefaultTheme applies outside every seasonal range.
var DefaultTheme = Theme{Name: "Default", Color: 0x0052CF}

// Themes are checked in order; the first match wins.
var Themes = []Theme{
	{Name: "Breast Cancer Awareness", Color: 0xFF69B4, match: between(time.October, 1, 31)},
	{Name: "Remembrance Day", Color: 0xE35335, match: between(time.November, 8, 12)},
	{Name: "Christmas", Color: 0xFFFFFF, match: between(time.December, 1, 31)},
}

// ThemeFor returns the theme active at t.
func ThemeFor(t time.Time) Theme {
	month, day := t.Month(), t.Day()

	for _, theme := range Themes {
		if theme.match(month, day) {
			return theme
		}
	}

	return DefaultTheme
}

// Palette holds the current embed colour.
type Palette struct {
	color atomic.Int64
}

// NewPalette returns a palette set to the default colour.
func NewPalette() *Palette {
	p := &Palette{}
	p.color.Store(int64(DefaultTheme.Color))

	return p
}

// Color returns the current embed colour.
func (p *Palette) Color() int {
	return int(p.color.Load())
}

// Set replaces the current colour.
func (p *Palette) Set(color int) {
	p.color.Store(int64(color))
}

// NewSeasonalJob updates palette with the theme of the current date.
func NewSeasonalJob(
	palette *Palette, interval time.Duration, clock scheduler.Clock, logger *zap.Logger,
) scheduler.Job {
	logger = logger.Named("seasonal")

	return scheduler.EveryWithClock("seasonal", interval, clock, func(context.Context) error {
		theme := ThemeFor(clock.Now().UTC())

		if palette.Color() != theme.Color {
			palette.Set(theme.Color)
			logger.Info("Switched embed theme", zap.String("theme", theme.Name))
		}

		return nil
	})
}
