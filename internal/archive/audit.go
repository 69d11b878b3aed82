package archive

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/aura-archiver/internal/data/repos"
	types "github.com/yungbote/aura-archiver/internal/domain"
	"github.com/yungbote/aura-archiver/internal/pkg/dbctx"
	"github.com/yungbote/aura-archiver/internal/pkg/logger"
)

// Auditor appends tier-transition records. Record is fire-and-forget for
// the reversible transitions; MustRecord is the gate on the deletion path,
// where a lost audit row would mean an untraceable irreversible delete.
type Auditor struct {
	log  *logger.Logger
	repo repos.TierAuditRepo
}

func NewAuditor(repo repos.TierAuditRepo, baseLog *logger.Logger) *Auditor {
	return &Auditor{
		log:  baseLog.With("component", "Auditor"),
		repo: repo,
	}
}

func (a *Auditor) Record(ctx context.Context, sessionID uuid.UUID, from, to types.Tier, outcome string, detail map[string]interface{}) {
	if err := a.append(ctx, sessionID, from, to, outcome, detail); err != nil {
		a.log.Warn("audit append failed (migration not rolled back)",
			"session_id", sessionID,
			"from_tier", from,
			"to_tier", to,
			"outcome", outcome,
			"error", err,
		)
	}
}

func (a *Auditor) MustRecord(ctx context.Context, sessionID uuid.UUID, from, to types.Tier, outcome string, detail map[string]interface{}) error {
	return a.append(ctx, sessionID, from, to, outcome, detail)
}

func (a *Auditor) append(ctx context.Context, sessionID uuid.UUID, from, to types.Tier, outcome string, detail map[string]interface{}) error {
	rec := &types.TierAudit{
		SessionID: sessionID,
		FromTier:  from,
		ToTier:    to,
		Outcome:   outcome,
	}
	if len(detail) > 0 {
		if payload, err := json.Marshal(detail); err == nil {
			rec.Detail = datatypes.JSON(payload)
		}
	}
	return a.repo.Append(dbctx.Background(ctx), rec)
}
