package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/abelbrown/sitrep/internal/geo"
	"github.com/abelbrown/sitrep/internal/intake"
	"github.com/abelbrown/sitrep/internal/model"
	"github.com/abelbrown/sitrep/internal/store"
)

func runReport() {
	fs := pflag.NewFlagSet("report", pflag.ExitOnError)
	reportType := fs.String("type", "", "report type: SOCMINT, SIGINT, or HUMINT")
	title := fs.String("title", "", "report title")
	content := fs.String("content", "", "report content (JSON)")
	lon := fs.Float64("lon", 0, "longitude")
	lat := fs.Float64("lat", 0, "latitude")
	located := fs.Bool("located", false, "attach --lon/--lat as the report location")
	collected := fs.String("collected", "", "collection time (RFC 3339)")
	classification := fs.String("classification", "", "classification label (default UNCLASSIFIED)")
	reliability := fs.String("reliability", "", "source reliability A-F")
	credibility := fs.String("credibility", "", "content credibility 1-6")
	submitter := fs.String("by", "", "submitting principal id")
	fs.Parse(os.Args[1:])

	a := openApp()
	defer a.close()

	sub := intake.Submission{
		Type:           model.ReportType(*reportType),
		Title:          *title,
		Classification: *classification,
		Reliability:    *reliability,
		Credibility:    *credibility,
	}
	if *content != "" {
		sub.Content = json.RawMessage(*content)
	}
	if *located {
		sub.Location = &geo.Point{Lon: *lon, Lat: *lat}
	}
	if *collected != "" {
		t, err := time.Parse(time.RFC3339, *collected)
		if err != nil {
			fatal("parse --collected: %v", err)
		}
		sub.CollectionTime = &t
	}

	svc := intake.NewService(a.store, a.trail)
	r, err := svc.Submit(context.Background(), sub, *submitter)
	if err != nil {
		fatal("submit report: %v", err)
	}
	fmt.Printf("submitted %s (%s) as %s\n", r.ID, r.Type, r.Status)
}

func runReports() {
	fs := pflag.NewFlagSet("reports", pflag.ExitOnError)
	reportType := fs.String("type", "", "filter by report type")
	submitter := fs.String("by", "", "filter by submitter")
	status := fs.String("status", "", "filter by status")
	limit := fs.Uint64("limit", 20, "max rows")
	offset := fs.Uint64("offset", 0, "rows to skip")
	fs.Parse(os.Args[1:])

	a := openApp()
	defer a.close()

	reports, err := a.store.ListReports(context.Background(), store.ReportFilters{
		Type:        model.ReportType(*reportType),
		SubmittedBy: *submitter,
		Status:      model.ReportStatus(*status),
		Limit:       *limit,
		Offset:      *offset,
	})
	if err != nil {
		fatal("list reports: %v", err)
	}

	for _, r := range reports {
		loc := "-"
		if r.Location != nil {
			loc = fmt.Sprintf("%.4f,%.4f", r.Location.Lon, r.Location.Lat)
		}
		fmt.Printf("%s  %-8s %-10s %-16s %s\n", r.ID, r.Type, r.Status, loc, r.Title)
	}
	fmt.Printf("%d report(s)\n", len(reports))
}
