package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/yungbote/aura-archiver/internal/app"
)

func main() {
	application, err := app.New()
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	application.Start()
	application.Log.Info("archiver running",
		"cron", application.Cfg.CronExpr,
		"batch_size", application.Cfg.BatchSize,
		"concurrency", application.Cfg.Concurrency,
	)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	application.Log.Info("shutdown signal received, letting in-flight migrations checkpoint")
}
