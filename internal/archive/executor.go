package archive

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	redisclient "github.com/yungbote/aura-archiver/internal/clients/redis"
	"github.com/yungbote/aura-archiver/internal/data/db"
	"github.com/yungbote/aura-archiver/internal/data/repos"
	types "github.com/yungbote/aura-archiver/internal/domain"
	"github.com/yungbote/aura-archiver/internal/objectstore"
	"github.com/yungbote/aura-archiver/internal/pkg/dbctx"
	errs "github.com/yungbote/aura-archiver/internal/pkg/errors"
	"github.com/yungbote/aura-archiver/internal/pkg/logger"
)

// Executor performs the storage work of one tier transition. Each step
// follows copy -> verify -> delete: the source copy survives until the
// destination is durably confirmed, and re-runs resume off whatever
// destination artifacts already exist.
type Executor struct {
	log      *logger.Logger
	txm      db.TxManager
	sessions repos.SessionRepo
	messages repos.MessageRepo
	archived repos.ArchivedMessageRepo
	deep     repos.DeepArchiveRepo
	store    objectstore.Store
	auditor  *Auditor
	alerts   redisclient.AlertBus
	tracer   trace.Tracer
}

func NewExecutor(
	baseLog *logger.Logger,
	txm db.TxManager,
	sessionRepo repos.SessionRepo,
	messageRepo repos.MessageRepo,
	archivedRepo repos.ArchivedMessageRepo,
	deepRepo repos.DeepArchiveRepo,
	store objectstore.Store,
	auditor *Auditor,
	alerts redisclient.AlertBus,
) *Executor {
	return &Executor{
		log:      baseLog.With("component", "MigrationExecutor"),
		txm:      txm,
		sessions: sessionRepo,
		messages: messageRepo,
		archived: archivedRepo,
		deep:     deepRepo,
		store:    store,
		auditor:  auditor,
		alerts:   alerts,
		tracer:   otel.Tracer("github.com/yungbote/aura-archiver/internal/archive"),
	}
}

// ExecuteTransition moves sess one tier forward. Already-at-target is a
// no-op; anything else that doesn't match a single forward step is an
// invalid-argument error. On success sess.Tier is updated in place.
func (e *Executor) ExecuteTransition(ctx context.Context, sess *types.Session, from, to types.Tier) error {
	if sess == nil {
		return fmt.Errorf("nil session: %w", errs.ErrInvalidArgument)
	}
	if !from.Valid() || !to.Valid() || to != from.Next() {
		return fmt.Errorf("transition %s -> %s is not a single forward step: %w", from, to, errs.ErrInvalidArgument)
	}
	if sess.Tier == to {
		e.log.Debug("session already at target tier", "session_id", sess.ID, "tier", to)
		return nil
	}
	if sess.Tier != from {
		return fmt.Errorf("session %s is at tier %s, not %s: %w", sess.ID, sess.Tier, from, errs.ErrConflict)
	}

	ctx, span := e.tracer.Start(ctx, "archive.transition", trace.WithAttributes(
		attribute.String("session_id", sess.ID.String()),
		attribute.String("from_tier", from.String()),
		attribute.String("to_tier", to.String()),
	))
	defer span.End()

	var detail map[string]interface{}
	var err error
	switch from {
	case types.TierHot:
		detail, err = e.hotToCold(ctx, sess)
	case types.TierCold:
		detail, err = e.coldToDeep(ctx, sess)
	case types.TierDeep:
		detail, err = e.deepToDeleted(ctx, sess)
	}
	if err != nil {
		span.RecordError(err)
		var blocked *AuditBlockedError
		if !errors.As(err, &blocked) {
			e.auditor.Record(ctx, sess.ID, from, to, types.AuditOutcomeFailed,
				map[string]interface{}{"error": err.Error()})
		}
		return err
	}

	// The deletion path writes its success record before the physical
	// delete; everything else is audited after the fact.
	if to != types.TierDeleted {
		e.auditor.Record(ctx, sess.ID, from, to, types.AuditOutcomeSuccess, detail)
	}
	sess.Tier = to
	e.log.Info("session migrated", "session_id", sess.ID, "from_tier", from, "to_tier", to)
	return nil
}

// hotToCold copies hot rows into message_archive, verifies the copy by row
// count, and only then deletes the hot rows and flips the tier. One
// transaction, so readers see the move as atomic and a crash can never
// leave the session without a full copy.
func (e *Executor) hotToCold(ctx context.Context, sess *types.Session) (map[string]interface{}, error) {
	id := sess.ID
	var archivedRows int64
	err := e.txm.WithinTransaction(ctx, func(dbc dbctx.Context) error {
		hotCount, err := e.messages.CountBySession(dbc, id)
		if err != nil {
			return transientErr("hot row count", err)
		}
		if _, err := e.messages.CopyToArchive(dbc, id); err != nil {
			return transientErr("copy to archive", err)
		}
		archCount, err := e.archived.CountBySession(dbc, id)
		if err != nil {
			return transientErr("archive row count", err)
		}
		if archCount < hotCount {
			return &IntegrityError{
				SessionID: id,
				Reason:    fmt.Sprintf("archive holds %d rows, hot holds %d after copy", archCount, hotCount),
			}
		}
		if _, err := e.messages.DeleteBySession(dbc, id); err != nil {
			return transientErr("hot row delete", err)
		}
		archivedRows = archCount
		return e.sessions.SetTier(dbc, id, types.TierCold)
	})
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"archived_rows": archivedRows}, nil
}

// coldToDeep serializes the archived rows into a columnar object, uploads
// it under the session's deterministic key, re-downloads and verifies
// checksum and row count, then removes the archive rows and flips the tier
// in one transaction. A failed upload leaves the cold rows untouched; a
// re-run reuses an already-matching object at the same key and overwrites
// anything else.
func (e *Executor) coldToDeep(ctx context.Context, sess *types.Session) (map[string]interface{}, error) {
	id := sess.ID
	rows, err := e.archived.ListBySession(dbctx.Background(ctx), id)
	if err != nil {
		return nil, transientErr("archive row list", err)
	}

	data, checksum, err := EncodeColumnar(id, rows)
	if err != nil {
		return nil, err
	}
	key := ObjectKey(id)
	upload := true
	exists, err := e.store.Exists(ctx, key)
	if err != nil {
		return nil, transientErr("object stat", err)
	}
	if exists {
		// A prior run may have uploaded before crashing. Skip the upload
		// when the stored object already matches; anything else (stale or
		// corrupt) is overwritten.
		prior, err := e.store.Get(ctx, key)
		if err != nil && !errors.Is(err, objectstore.ErrNotFound) {
			return nil, transientErr("prior object read", err)
		}
		if err == nil && Checksum(prior) == checksum {
			upload = false
		}
	}
	if upload {
		if _, err := e.store.Put(ctx, key, data); err != nil {
			return nil, transientErr("object put", err)
		}
	}

	stored, err := e.store.Get(ctx, key)
	if err != nil {
		return nil, transientErr("object readback", err)
	}
	if got := Checksum(stored); got != checksum {
		return nil, &IntegrityError{
			SessionID: id,
			Reason:    fmt.Sprintf("checksum %s after upload, expected %s", got, checksum),
		}
	}
	decoded, err := DecodeColumnar(stored)
	if err != nil {
		return nil, &IntegrityError{SessionID: id, Reason: err.Error()}
	}
	if decoded.RowCount != len(rows) {
		return nil, &IntegrityError{
			SessionID: id,
			Reason:    fmt.Sprintf("object holds %d rows, archive holds %d", decoded.RowCount, len(rows)),
		}
	}

	err = e.txm.WithinTransaction(ctx, func(dbc dbctx.Context) error {
		if err := e.deep.Upsert(dbc, &types.DeepArchiveObject{
			SessionID: id,
			ObjectKey: key,
			Format:    types.ArchiveFormatColumnarV1,
			RowCount:  len(rows),
			Checksum:  checksum,
		}); err != nil {
			return transientErr("deep archive record", err)
		}
		if _, err := e.archived.DeleteBySession(dbc, id); err != nil {
			return transientErr("archive row delete", err)
		}
		return e.sessions.SetTier(dbc, id, types.TierDeep)
	})
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"object_key": key,
		"row_count":  len(rows),
		"checksum":   checksum,
	}, nil
}

// deepToDeleted is the only irreversible step. The audit record is written
// and confirmed before the object delete is issued; if the audit write
// fails the delete is withheld and an operator alert goes out.
func (e *Executor) deepToDeleted(ctx context.Context, sess *types.Session) (map[string]interface{}, error) {
	id := sess.ID
	obj, err := e.deep.GetBySession(dbctx.Background(ctx), id)
	if err != nil {
		return nil, transientErr("deep archive lookup", err)
	}
	key := ObjectKey(id)
	rowCount := 0
	if obj != nil {
		key = obj.ObjectKey
		rowCount = obj.RowCount
	}

	detail := map[string]interface{}{"object_key": key, "row_count": rowCount}
	if err := e.auditor.MustRecord(ctx, id, types.TierDeep, types.TierDeleted, types.AuditOutcomeSuccess, detail); err != nil {
		e.alert(ctx, sess, "audit write failed, object delete withheld")
		return nil, &AuditBlockedError{SessionID: id, Err: err}
	}

	if err := e.store.Delete(ctx, key); err != nil && !errors.Is(err, objectstore.ErrNotFound) {
		return nil, transientErr("object delete", err)
	}

	err = e.txm.WithinTransaction(ctx, func(dbc dbctx.Context) error {
		if err := e.deep.DeleteBySession(dbc, id); err != nil {
			return transientErr("deep archive cleanup", err)
		}
		if err := e.sessions.ClearResidualMetadata(dbc, id); err != nil {
			return transientErr("metadata cleanup", err)
		}
		return e.sessions.SetTier(dbc, id, types.TierDeleted)
	})
	if err != nil {
		return nil, err
	}
	return detail, nil
}

func (e *Executor) alert(ctx context.Context, sess *types.Session, reason string) {
	if e.alerts == nil {
		return
	}
	err := e.alerts.Publish(ctx, redisclient.Alert{
		SessionID: sess.ID.String(),
		FromTier:  sess.Tier.String(),
		ToTier:    sess.Tier.Next().String(),
		Reason:    reason,
		At:        time.Now().UTC(),
	})
	if err != nil {
		e.log.Warn("operator alert publish failed", "session_id", sess.ID, "error", err)
	}
}
