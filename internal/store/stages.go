package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/tmarcou/curator/internal/pipeline"
)

// ErrStageNotFound is returned when a stage id does not exist.
var ErrStageNotFound = errors.New("stage not found")

// SaveStage inserts or replaces a stage record.
func (m *Manager) SaveStage(s pipeline.StageRecord) error {
	var deletedAt any
	if s.DeletedAt != nil {
		deletedAt = s.DeletedAt.Unix()
	}
	_, err := m.db.Exec(`
		INSERT INTO stages (id, name, role, next_stage_id, termination_id, group_id, created_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			role = excluded.role,
			next_stage_id = excluded.next_stage_id,
			termination_id = excluded.termination_id,
			group_id = excluded.group_id,
			deleted_at = excluded.deleted_at
	`, s.ID, s.Name, string(s.Role), emptyToNull(s.NextStageID), emptyToNull(s.TerminationID),
		s.GroupID, s.CreatedAt.Unix(), deletedAt)
	return err
}

// GetStage returns a stage by id, including soft-deleted ones.
func (m *Manager) GetStage(id string) (*pipeline.StageRecord, error) {
	row := m.db.QueryRow(`
		SELECT id, name, role, next_stage_id, termination_id, group_id, created_at, deleted_at
		FROM stages WHERE id = ?
	`, id)
	s, err := scanStage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStageNotFound
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ListStages returns every stage of a group, soft-deleted ones included so
// the resolver can decide what to skip. Ordered by creation time.
func (m *Manager) ListStages(groupID string) ([]pipeline.StageRecord, error) {
	rows, err := m.db.Query(`
		SELECT id, name, role, next_stage_id, termination_id, group_id, created_at, deleted_at
		FROM stages
		WHERE group_id = ?
		ORDER BY created_at ASC, id ASC
	`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stages []pipeline.StageRecord
	for rows.Next() {
		s, err := scanStage(rows)
		if err != nil {
			return nil, err
		}
		stages = append(stages, *s)
	}
	return stages, rows.Err()
}

// SetStagePointers partially updates only the connection pointers of a
// stage. Empty string clears a pointer.
func (m *Manager) SetStagePointers(id, nextStageID, terminationID string) error {
	res, err := m.db.Exec(`
		UPDATE stages SET next_stage_id = ?, termination_id = ? WHERE id = ?
	`, emptyToNull(nextStageID), emptyToNull(terminationID), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStageNotFound
	}
	return nil
}

// SoftDeleteStage marks a stage deleted. Stages are never hard-deleted so
// movement history stays resolvable.
func (m *Manager) SoftDeleteStage(id string, at time.Time) error {
	res, err := m.db.Exec(`
		UPDATE stages SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL
	`, at.Unix(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStageNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStage(row rowScanner) (*pipeline.StageRecord, error) {
	var s pipeline.StageRecord
	var role string
	var next, term sql.NullString
	var createdAt int64
	var deletedAt sql.NullInt64

	err := row.Scan(&s.ID, &s.Name, &role, &next, &term, &s.GroupID, &createdAt, &deletedAt)
	if err != nil {
		return nil, err
	}

	s.Role = pipeline.Role(role)
	s.NextStageID = nullString(next)
	s.TerminationID = nullString(term)
	s.CreatedAt = time.Unix(createdAt, 0).UTC()
	if ts := nullTimePtr(deletedAt); ts != nil {
		t := time.Unix(*ts, 0).UTC()
		s.DeletedAt = &t
	}
	return &s, nil
}

func emptyToNull(s string) any {
	if s == "" {
		return nil
	}
	return s
}
