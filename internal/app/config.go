package app

import (
	"time"

	"github.com/yungbote/aura-archiver/internal/archive"
	"github.com/yungbote/aura-archiver/internal/pkg/logger"
	"github.com/yungbote/aura-archiver/internal/utils"
)

type Config struct {
	Thresholds  archive.Thresholds
	BatchSize   int
	Concurrency int
	LeaseTTL    time.Duration
	RunTimeout  time.Duration
	CronExpr    string
	Environment string
	Version     string
}

func LoadConfig(log *logger.Logger) Config {
	return Config{
		Thresholds:  archive.ThresholdsFromEnv(log),
		BatchSize:   utils.GetEnvAsInt("ARCHIVE_BATCH_SIZE", 100, log),
		Concurrency: utils.GetEnvAsInt("ARCHIVE_CONCURRENCY", 4, log),
		LeaseTTL:    time.Duration(utils.GetEnvAsInt("ARCHIVE_LEASE_TTL_MINUTES", 15, log)) * time.Minute,
		RunTimeout:  time.Duration(utils.GetEnvAsInt("ARCHIVE_RUN_TIMEOUT_MINUTES", 30, log)) * time.Minute,
		CronExpr:    utils.GetEnv("ARCHIVE_CRON", "0 3 * * *", log),
		Environment: utils.GetEnv("APP_ENV", "development", log),
		Version:     utils.GetEnv("APP_VERSION", "dev", log),
	}
}
