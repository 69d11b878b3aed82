package archive

import (
	"fmt"
	"time"

	types "github.com/yungbote/aura-archiver/internal/domain"
	"github.com/yungbote/aura-archiver/internal/pkg/logger"
	"github.com/yungbote/aura-archiver/internal/utils"
)

// Thresholds are the age cutoffs driving tier classification. They are
// passed explicitly wherever classification happens; there is no global
// threshold state.
type Thresholds struct {
	ColdAfter   time.Duration
	DeepAfter   time.Duration
	DeleteAfter time.Duration
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		ColdAfter:   7 * 24 * time.Hour,
		DeepAfter:   180 * 24 * time.Hour,
		DeleteAfter: 1095 * 24 * time.Hour,
	}
}

func ThresholdsFromEnv(log *logger.Logger) Thresholds {
	def := DefaultThresholds()
	return Thresholds{
		ColdAfter:   time.Duration(utils.GetEnvAsInt("ARCHIVE_COLD_AFTER_DAYS", 7, log)) * 24 * time.Hour,
		DeepAfter:   time.Duration(utils.GetEnvAsInt("ARCHIVE_DEEP_AFTER_DAYS", 180, log)) * 24 * time.Hour,
		DeleteAfter: time.Duration(utils.GetEnvAsInt("ARCHIVE_DELETE_AFTER_DAYS", 1095, log)) * 24 * time.Hour,
	}.orDefault(def)
}

func (t Thresholds) orDefault(def Thresholds) Thresholds {
	if t.ColdAfter <= 0 {
		t.ColdAfter = def.ColdAfter
	}
	if t.DeepAfter <= 0 {
		t.DeepAfter = def.DeepAfter
	}
	if t.DeleteAfter <= 0 {
		t.DeleteAfter = def.DeleteAfter
	}
	return t
}

func (t Thresholds) Validate() error {
	if t.ColdAfter <= 0 || t.DeepAfter <= t.ColdAfter || t.DeleteAfter <= t.DeepAfter {
		return fmt.Errorf("thresholds must satisfy 0 < cold (%s) < deep (%s) < delete (%s)",
			t.ColdAfter, t.DeepAfter, t.DeleteAfter)
	}
	return nil
}

// Classify maps a session's age to its target tier. Pure: no I/O, no clock
// reads. The result never has a lower index than the current tier, so clock
// skew or an administratively bumped watermark cannot move a session
// backward.
func (t Thresholds) Classify(now, updatedAt time.Time, current types.Tier) types.Tier {
	if current == types.TierDeleted {
		return types.TierDeleted
	}

	age := now.Sub(updatedAt)
	var target types.Tier
	switch {
	case age < t.ColdAfter:
		target = types.TierHot
	case age < t.DeepAfter:
		target = types.TierCold
	case age < t.DeleteAfter:
		target = types.TierDeep
	default:
		target = types.TierDeleted
	}

	if target.Index() < current.Index() {
		return current
	}
	return target
}
