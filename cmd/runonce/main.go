// runonce triggers a single archive run by hand. It shares the runner's
// lease-guarded entry point with the scheduler, so racing a scheduled run
// is safe: contended sessions surface as skips.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/yungbote/aura-archiver/internal/app"
)

func main() {
	var batchSize int
	flag.IntVar(&batchSize, "batch", 0, "maximum sessions to migrate (default: ARCHIVE_BATCH_SIZE)")
	flag.Parse()

	application, err := app.New()
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	if batchSize <= 0 {
		batchSize = application.Cfg.BatchSize
	}

	ctx, cancel := context.WithTimeout(context.Background(), application.Cfg.RunTimeout)
	defer cancel()

	summary, err := application.Runner.Run(ctx, batchSize, time.Now().UTC())
	if err != nil {
		application.Log.Error("archive run failed", "error", err)
		application.Close()
		os.Exit(1)
	}
	application.Log.Info("archive run finished",
		"scanned", summary.Scanned,
		"migrated", summary.Migrated,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
	)
}
