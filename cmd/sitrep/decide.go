package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/abelbrown/sitrep/internal/decision"
	"github.com/abelbrown/sitrep/internal/model"
	"github.com/abelbrown/sitrep/internal/store"
)

func runApprove() {
	fs := pflag.NewFlagSet("approve", pflag.ExitOnError)
	by := fs.String("by", "", "approving principal id")
	notes := fs.String("notes", "", "approval notes")
	fs.Parse(os.Args[1:])

	if fs.NArg() != 1 {
		fatal("approve requires exactly one event id")
	}

	a := openApp()
	defer a.close()

	engine := decision.NewEngine(a.store, a.trail)
	dec, err := engine.ApproveEvent(context.Background(), fs.Arg(0), *by, *notes)
	if err != nil {
		fatal("approve: %v", err)
	}
	fmt.Printf("approved %s (decision %s)\n", fs.Arg(0), dec.ID)
}

func runReject() {
	fs := pflag.NewFlagSet("reject", pflag.ExitOnError)
	by := fs.String("by", "", "rejecting principal id")
	reason := fs.String("reason", "", "rejection reason (required)")
	fs.Parse(os.Args[1:])

	if fs.NArg() != 1 {
		fatal("reject requires exactly one event id")
	}

	a := openApp()
	defer a.close()

	engine := decision.NewEngine(a.store, a.trail)
	dec, err := engine.RejectEvent(context.Background(), fs.Arg(0), *by, *reason)
	if err != nil {
		fatal("reject: %v", err)
	}
	fmt.Printf("rejected %s (decision %s)\n", fs.Arg(0), dec.ID)
}

func runAsk() {
	fs := pflag.NewFlagSet("ask", pflag.ExitOnError)
	by := fs.String("by", "", "requesting principal id")
	question := fs.String("question", "", "the question (required)")
	fs.Parse(os.Args[1:])

	if fs.NArg() != 1 {
		fatal("ask requires exactly one event id")
	}

	a := openApp()
	defer a.close()

	engine := decision.NewEngine(a.store, a.trail)
	qa, dec, err := engine.RequestMoreInfo(context.Background(), fs.Arg(0), *by, *question)
	if err != nil {
		fatal("ask: %v", err)
	}
	fmt.Printf("opened thread %s (decision %s)\n", qa.ID, dec.ID)
}

func runDecisions() {
	fs := pflag.NewFlagSet("decisions", pflag.ExitOnError)
	by := fs.String("by", "", "filter by decision maker")
	decisionType := fs.String("type", "", "filter by decision type")
	eventID := fs.String("event", "", "filter by related event id")
	limit := fs.Uint64("limit", 20, "max rows")
	offset := fs.Uint64("offset", 0, "rows to skip")
	fs.Parse(os.Args[1:])

	a := openApp()
	defer a.close()

	decisions, err := a.store.ListDecisions(context.Background(), store.DecisionFilters{
		DecisionMaker:  *by,
		DecisionType:   model.DecisionType(*decisionType),
		RelatedEventID: *eventID,
		Limit:          *limit,
		Offset:         *offset,
	})
	if err != nil {
		fatal("list decisions: %v", err)
	}

	for _, d := range decisions {
		fmt.Printf("%s  %-20s %-12s %s  %s\n",
			d.ID, d.Type, d.DecisionMaker, d.CreatedAt.Format(time.RFC3339), d.Title)
	}
	fmt.Printf("%d decision(s)\n", len(decisions))
}
