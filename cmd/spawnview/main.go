// Terminal viewer for one device's live spawns.
//
// Usage:
//
//	go run ./cmd/spawnview -device phone -lat 37.78825 -lon -122.4324
//	go run ./cmd/spawnview -device phone            # reports the sensor unavailable
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/udisondev/geospawn/internal/model"
	"github.com/udisondev/geospawn/internal/spawn"
)

type pollResult struct {
	snap spawn.Snapshot
	err  error
}

func main() {
	server := flag.String("server", "http://127.0.0.1:8080", "geospawn base URL")
	device := flag.String("device", "spawnview", "device id")
	lat := flag.Float64("lat", 0, "latitude (omit to report no sensor)")
	lon := flag.Float64("lon", 0, "longitude")
	poll := flag.Duration("poll", time.Second, "snapshot poll interval")
	span := flag.Float64("span", spawn.DefaultSpread, "map width in degrees")
	flag.Parse()

	var fix *model.LocationFix
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "lat" || f.Name == "lon" {
			l := model.NewLocationFix(*lat, *lon)
			fix = &l
		}
	})

	if err := run(*server, *device, fix, *poll, *span); err != nil {
		fmt.Fprintln(os.Stderr, "spawnview:", err)
		os.Exit(1)
	}
}

func run(server, device string, fix *model.LocationFix, poll time.Duration, span float64) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := newAPIClient(server, device)
	if err := client.reportLocation(ctx, fix); err != nil {
		return fmt.Errorf("reporting location: %w", err)
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("creating screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("initializing screen: %w", err)
	}
	defer screen.Fini()

	// tcell owns the terminal; keep logs out of it.
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))

	events := make(chan tcell.Event, 16)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			events <- ev
		}
	}()

	snaps := make(chan pollResult, 1)
	go poller(ctx, client, poll, snaps)

	var (
		last     spawn.Snapshot
		status   string
		reported = make(map[string]bool)
	)
	for {
		select {
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC ||
					(ev.Key() == tcell.KeyRune && ev.Rune() == 'q') {
					return nil
				}
				if ev.Key() == tcell.KeyRune && ev.Rune() == 'c' {
					status = catchNearest(ctx, client, last)
				}
			case *tcell.EventResize:
				screen.Sync()
			}
			render(screen, last, span, status)

		case res := <-snaps:
			if res.err != nil {
				status = res.err.Error()
				render(screen, last, span, status)
				continue
			}
			last = res.snap
			drawn := render(screen, last, span, status)
			reportLoaded(ctx, client, last, drawn, reported)
		}
	}
}

func poller(ctx context.Context, client *apiClient, every time.Duration, out chan<- pollResult) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		snap, err := client.snapshot(ctx)
		select {
		case out <- pollResult{snap: snap, err: err}:
		case <-ctx.Done():
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// reportLoaded tells the server a marker's image is on screen, once per key.
func reportLoaded(ctx context.Context, client *apiClient, snap spawn.Snapshot, drawn []string, reported map[string]bool) {
	tracking := make(map[string]bool, len(snap.Markers))
	for _, m := range snap.Markers {
		tracking[m.Key] = m.TrackViewChanges
	}
	for _, key := range drawn {
		if reported[key] || !tracking[key] {
			continue
		}
		if err := client.imageLoaded(ctx, key); err != nil {
			continue
		}
		reported[key] = true
	}
}

func catchNearest(ctx context.Context, client *apiClient, snap spawn.Snapshot) string {
	if snap.Location == nil {
		return "no location yet"
	}
	m, dist, ok := nearest(*snap.Location, snap.Markers)
	if !ok {
		return "nothing to catch"
	}

	c, err := client.catch(ctx, m.Key)
	if err != nil {
		return fmt.Sprintf("catch failed: %v", err)
	}
	return fmt.Sprintf("caught %s (#%d) at %.0fm", c.Name, c.SpeciesID, dist)
}

