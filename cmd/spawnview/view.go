package main

import (
	"fmt"
	"math"

	"github.com/gdamore/tcell/v2"

	"github.com/udisondev/geospawn/internal/geo"
	"github.com/udisondev/geospawn/internal/model"
	"github.com/udisondev/geospawn/internal/spawn"
)

// project maps a position onto a w×h grid centred on origin. span is the
// width of the window in degrees. ok is false for points outside the grid.
func project(origin, p model.LocationFix, span float64, w, h int) (x, y int, ok bool) {
	if w <= 0 || h <= 0 || span <= 0 {
		return 0, 0, false
	}
	fx := (p.Longitude - origin.Longitude) / span
	fy := (p.Latitude - origin.Latitude) / span

	x = int(math.Round((fx + 0.5) * float64(w-1)))
	y = int(math.Round((0.5 - fy) * float64(h-1)))
	if x < 0 || x >= w || y < 0 || y >= h {
		return x, y, false
	}
	return x, y, true
}

// nearest returns the marker closest to origin.
func nearest(origin model.LocationFix, markers []spawn.Marker) (spawn.Marker, float64, bool) {
	best, bestDist := spawn.Marker{}, math.Inf(1)
	for _, m := range markers {
		if d := geo.Distance(origin, m.Position()); d < bestDist {
			best, bestDist = m, d
		}
	}
	return best, bestDist, !math.IsInf(bestDist, 1)
}

var categoryColors = map[string]tcell.Color{
	"fire":     tcell.ColorRed,
	"water":    tcell.ColorBlue,
	"grass":    tcell.ColorGreen,
	"electric": tcell.ColorYellow,
	"psychic":  tcell.ColorPurple,
	"poison":   tcell.ColorDarkMagenta,
	"ground":   tcell.ColorOlive,
	"rock":     tcell.ColorGray,
	"ghost":    tcell.ColorDarkSlateBlue,
	"ice":      tcell.ColorLightCyan,
}

func markerStyle(category string) tcell.Style {
	c, ok := categoryColors[category]
	if !ok {
		c = tcell.ColorWhite
	}
	return tcell.StyleDefault.Foreground(c).Bold(true)
}

func drawText(s tcell.Screen, x, y int, style tcell.Style, text string) {
	for _, r := range text {
		s.SetContent(x, y, r, nil, style)
		x++
	}
}

// render draws the snapshot and returns the keys of markers that were drawn.
func render(s tcell.Screen, snap spawn.Snapshot, span float64, status string) []string {
	s.Clear()
	w, h := s.Size()

	header := fmt.Sprintf(" spawns: %d  fetching: %v  [c]atch nearest  [q]uit ", len(snap.Markers), snap.Fetching)
	drawText(s, 0, 0, tcell.StyleDefault.Reverse(true), header)
	if status != "" {
		drawText(s, 0, h-1, tcell.StyleDefault.Foreground(tcell.ColorSilver), status)
	}

	if snap.Location == nil {
		drawText(s, 1, 2, tcell.StyleDefault, "waiting for location...")
		s.Show()
		return nil
	}

	mapH := h - 2
	origin := *snap.Location
	drawn := make([]string, 0, len(snap.Markers))
	for _, m := range snap.Markers {
		x, y, ok := project(origin, m.Position(), span, w, mapH)
		if !ok {
			continue
		}
		r := '?'
		if name := []rune(m.DisplayName); len(name) > 0 {
			r = name[0]
		}
		s.SetContent(x, y+1, r, nil, markerStyle(m.PrimaryCategory))
		drawn = append(drawn, m.Key)
	}

	if x, y, ok := project(origin, origin, span, w, mapH); ok {
		s.SetContent(x, y+1, '@', nil, tcell.StyleDefault.Foreground(tcell.ColorWhite).Reverse(true))
	}

	s.Show()
	return drawn
}
