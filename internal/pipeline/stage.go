// Package pipeline reconstructs an ordered pipeline topology from
// loosely-connected stage records.
package pipeline

import "time"

// Role classifies a stage's function within a pipeline.
type Role string

const (
	// RoleSource is the entry point of a chain.
	RoleSource Role = "source"
	// RoleTransient is an evaluation stage in the middle of a chain.
	RoleTransient Role = "transient"
	// RoleSink is a terminal rating bucket reached via a termination pointer.
	RoleSink Role = "sink"
	// RoleTerminal is the end of the main chain.
	RoleTerminal Role = "terminal"
)

// StageRecord is a raw stage as persisted. Connection pointers may be
// dangling or absent; the resolver is responsible for making sense of them.
type StageRecord struct {
	ID            string
	Name          string
	Role          Role
	NextStageID   string // empty if the stage has no forward pointer
	TerminationID string // empty unless a transient terminates into a sink
	GroupID       string
	CreatedAt     time.Time
	DeletedAt     *time.Time // soft delete; deleted stages are never resolved
}

// Deleted reports whether the stage has been soft-deleted.
func (s StageRecord) Deleted() bool {
	return s.DeletedAt != nil
}

// OrderedStage is a stage with its resolved placement.
//
// Position is the layout column index. For sink and terminal stages it is a
// dense 0..k-1 sequence over those roles; a transient that terminates into a
// sink shares its sink's column. Orphans carry an offset position so they
// sort after every connected stage.
type OrderedStage struct {
	StageRecord

	// SortIndex is the stage's place in the overall traversal order.
	SortIndex int
	// Position is the layout column (see type doc).
	Position int
	// TotalPositions is the number of sink/terminal columns, identical on
	// every stage of the result.
	TotalPositions int
	// Orphan marks a stage unreached by traversal from any source.
	Orphan bool
}
