package archive

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/aura-archiver/internal/domain"
)

// ColumnarArchive is the deep-tier object payload: one array per message
// column, row-aligned. The encoding is deterministic for a given row set so
// a re-run uploads byte-identical data to the same key.
type ColumnarArchive struct {
	Format    string      `json:"format"`
	SessionID uuid.UUID   `json:"session_id"`
	RowCount  int         `json:"row_count"`
	IDs       []uuid.UUID `json:"ids"`
	Roles     []string    `json:"roles"`
	Contents  []string    `json:"contents"`
	CreatedAt []time.Time `json:"created_at"`
}

// ObjectKey derives the deterministic object-storage key for a session's
// deep archive. One session, one key; re-uploads overwrite.
func ObjectKey(sessionID uuid.UUID) string {
	return fmt.Sprintf("sessions/%s/archive", sessionID)
}

func EncodeColumnar(sessionID uuid.UUID, rows []*types.ArchivedMessage) ([]byte, string, error) {
	arch := ColumnarArchive{
		Format:    types.ArchiveFormatColumnarV1,
		SessionID: sessionID,
		RowCount:  len(rows),
		IDs:       make([]uuid.UUID, 0, len(rows)),
		Roles:     make([]string, 0, len(rows)),
		Contents:  make([]string, 0, len(rows)),
		CreatedAt: make([]time.Time, 0, len(rows)),
	}
	for _, row := range rows {
		arch.IDs = append(arch.IDs, row.ID)
		arch.Roles = append(arch.Roles, row.Role)
		arch.Contents = append(arch.Contents, row.Content)
		arch.CreatedAt = append(arch.CreatedAt, row.CreatedAt.UTC())
	}
	data, err := json.Marshal(arch)
	if err != nil {
		return nil, "", fmt.Errorf("encode columnar archive: %w", err)
	}
	return data, Checksum(data), nil
}

func DecodeColumnar(data []byte) (*ColumnarArchive, error) {
	var arch ColumnarArchive
	if err := json.Unmarshal(data, &arch); err != nil {
		return nil, fmt.Errorf("decode columnar archive: %w", err)
	}
	if arch.Format != types.ArchiveFormatColumnarV1 {
		return nil, fmt.Errorf("unexpected archive format %q", arch.Format)
	}
	n := arch.RowCount
	if len(arch.IDs) != n || len(arch.Roles) != n || len(arch.Contents) != n || len(arch.CreatedAt) != n {
		return nil, fmt.Errorf("column lengths do not match row_count %d", n)
	}
	return &arch, nil
}

func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
