// Command sitrep is the operator CLI for the fusion & decision engine.
//
// Usage:
//
//	sitrep                        Show help
//	sitrep report                 Submit a raw intelligence report
//	sitrep reports                List reports
//	sitrep correlate              Find correlated reports near a point
//	sitrep fuse                   Fuse reports into an event
//	sitrep approve <event-id>     Approve a pending event
//	sitrep reject <event-id>      Reject a pending event
//	sitrep ask <event-id>         Request more information on an event
//	sitrep decisions              List the decision log
//	sitrep audit                  Verify the audit chain
//	sitrep stats                  Store statistics
package main

import (
	"fmt"
	"os"
)

const usage = `sitrep — intelligence fusion & decision CLI

Usage:
  sitrep <command> [flags]

Commands:
  report      Submit a raw intelligence report
  reports     List reports
  correlate   Find unfused reports near a point within a time window
  fuse        Fuse two or more reports into a pending event
  approve     Approve a pending event
  reject      Reject a pending event (reason required)
  ask         Open a request-for-information thread on an event
  decisions   List the decision log
  audit       Verify the audit hash chain
  stats       Store statistics

Environment:
  SITREP_CONFIG   Config file path (default ~/.sitrep/config.yaml)
  SITREP_DB       Database path override

Run 'sitrep <command> -h' for command-specific help.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(0)
	}

	cmd := os.Args[1]
	// Strip the program name + subcommand so flag sets see only their flags
	os.Args = os.Args[1:]

	switch cmd {
	case "report":
		runReport()
	case "reports":
		runReports()
	case "correlate":
		runCorrelate()
	case "fuse":
		runFuse()
	case "approve":
		runApprove()
	case "reject":
		runReject()
	case "ask":
		runAsk()
	case "decisions":
		runDecisions()
	case "audit":
		runAudit()
	case "stats":
		runStats()
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "sitrep: unknown command %q\n\n", cmd)
		fmt.Print(usage)
		os.Exit(1)
	}
}
