package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/abelbrown/sitrep/internal/fusion"
	"github.com/abelbrown/sitrep/internal/geo"
	"github.com/abelbrown/sitrep/internal/model"
)

func runCorrelate() {
	fs := pflag.NewFlagSet("correlate", pflag.ExitOnError)
	lon := fs.Float64("lon", 0, "longitude of the search center")
	lat := fs.Float64("lat", 0, "latitude of the search center")
	radius := fs.Float64("radius", 10, "search radius in kilometers")
	since := fs.String("since", "", "window start (RFC 3339, default 24h ago)")
	until := fs.String("until", "", "window end (RFC 3339, default now)")
	fs.Parse(os.Args[1:])

	a := openApp()
	defer a.close()

	now := time.Now().UTC()
	window := model.TimeWindow{Start: now.Add(-24 * time.Hour), End: now}
	if *since != "" {
		t, err := time.Parse(time.RFC3339, *since)
		if err != nil {
			fatal("parse --since: %v", err)
		}
		window.Start = t
	}
	if *until != "" {
		t, err := time.Parse(time.RFC3339, *until)
		if err != nil {
			fatal("parse --until: %v", err)
		}
		window.End = t
	}

	reports, err := a.store.FindCorrelated(context.Background(),
		geo.Point{Lon: *lon, Lat: *lat}, *radius, window)
	if err != nil {
		fatal("correlate: %v", err)
	}

	center := geo.Point{Lon: *lon, Lat: *lat}
	for _, r := range reports {
		dist := geo.DistanceKm(center, *r.Location)
		fmt.Printf("%s  %-8s %6.2fkm  %s  %s\n",
			r.ID, r.Type, dist, r.CollectionTime.Format(time.RFC3339), r.Title)
	}
	fmt.Printf("%d candidate(s)\n", len(reports))
}

func runFuse() {
	fs := pflag.NewFlagSet("fuse", pflag.ExitOnError)
	by := fs.String("by", "", "fusing principal id")
	fs.Parse(os.Args[1:])

	ids := fs.Args()
	if len(ids) < 2 {
		fatal("fuse requires at least two report ids")
	}

	a := openApp()
	defer a.close()

	engine := fusion.NewEngine(a.store, a.trail)
	ev, err := engine.FuseReports(context.Background(), ids, *by)
	if err != nil {
		fatal("fuse: %v", err)
	}

	fmt.Printf("event %s\n", ev.ID)
	fmt.Printf("  title:      %s\n", ev.Title)
	fmt.Printf("  confidence: %.3f\n", ev.Confidence)
	fmt.Printf("  status:     %s\n", ev.Status)
	if ev.Location != nil {
		fmt.Printf("  centroid:   %.4f,%.4f\n", ev.Location.Lon, ev.Location.Lat)
	}
}
