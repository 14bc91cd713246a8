package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/yungbote/pathatlas-backend/internal/app"
)

// curator drives the taxonomy pipeline from the command line, for cron jobs
// and one-off maintenance without going through the HTTP surface.
func main() {
	mode := flag.String("mode", "curation", "curation | verify | sync-links")
	flag.Parse()

	a, err := app.New()
	if err != nil {
		fmt.Printf("failed to start: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	ctx := context.Background()
	switch *mode {
	case "curation":
		res, err := a.Pipeline.RunCuration(ctx)
		if err != nil {
			a.Log.Error("curation failed", "error", err)
			os.Exit(1)
		}
		printJSON(res)
	case "verify":
		_, report, err := a.Pipeline.RunVerify(ctx)
		if err != nil {
			a.Log.Error("verification failed", "error", err)
			os.Exit(1)
		}
		printJSON(report)
		if report.Verdict != "pass" {
			os.Exit(1)
		}
	case "sync-links":
		_, out, err := a.Pipeline.RunSyncLinks(ctx)
		if err != nil {
			a.Log.Error("sync-links failed", "error", err)
			os.Exit(1)
		}
		printJSON(out)
	default:
		fmt.Printf("unknown mode %q\n", *mode)
		os.Exit(2)
	}
}

func printJSON(v any) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return
	}
	fmt.Println(string(raw))
}
