package pipeline

import "sort"

// orphanOffset pushes unreached stages after every connected stage without
// perturbing connected positions.
const orphanOffset = 1000

// Resolve orders the given stage records into a positioned pipeline.
//
// Traversal starts from every source stage in CreatedAt order (ties broken
// by id) and follows NextStageID pointers. A transient with a termination
// pointer has its sink placed directly after it, not at the end of the
// forward chain. Stages unreached from any source are appended after the
// connected stages, offset so their presence never shifts connected
// positions. Soft-deleted stages are ignored entirely.
//
// Resolve is pure: it never mutates its input and yields identical output
// for identical input. Malformed pointers (dangling next, termination into
// a missing or non-sink stage) are tolerated by falling back to the absent
// behavior; use Validate to surface them.
func Resolve(stages []StageRecord) []OrderedStage {
	live := make([]StageRecord, 0, len(stages))
	for _, s := range stages {
		if !s.Deleted() {
			live = append(live, s)
		}
	}

	byID := make(map[string]StageRecord, len(live))
	for _, s := range live {
		byID[s.ID] = s
	}

	sources := make([]StageRecord, 0, 1)
	for _, s := range live {
		if s.Role == RoleSource {
			sources = append(sources, s)
		}
	}
	sort.SliceStable(sources, func(i, j int) bool {
		if !sources[i].CreatedAt.Equal(sources[j].CreatedAt) {
			return sources[i].CreatedAt.Before(sources[j].CreatedAt)
		}
		return sources[i].ID < sources[j].ID
	})

	visited := make(map[string]bool, len(live))
	order := make([]StageRecord, 0, len(live))

	// Explicit work-list instead of recursion: pointer depth is caller data
	// and must not grow the stack.
	for _, src := range sources {
		stack := []string{src.ID}
		for len(stack) > 0 {
			id := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			s, ok := byID[id]
			if !ok || visited[id] {
				continue
			}
			visited[id] = true
			order = append(order, s)

			// LIFO: push next first so the termination sink pops before it.
			if s.NextStageID != "" {
				stack = append(stack, s.NextStageID)
			}
			if s.Role == RoleTransient && s.TerminationID != "" {
				if term, ok := byID[s.TerminationID]; ok && term.Role == RoleSink {
					stack = append(stack, term.ID)
				}
			}
		}
	}

	result := make([]OrderedStage, 0, len(live))
	for i, s := range order {
		result = append(result, OrderedStage{
			StageRecord: s,
			SortIndex:   i,
			Position:    i,
		})
	}
	// Orphans in discovery (input) order.
	orphan := 0
	for _, s := range live {
		if visited[s.ID] {
			continue
		}
		result = append(result, OrderedStage{
			StageRecord: s,
			SortIndex:   len(order) + orphan,
			Position:    orphanOffset + orphan,
			Orphan:      true,
		})
		orphan++
	}

	renumberColumns(result)
	return result
}

// renumberColumns assigns the dense layout column to sink and terminal
// stages among the connected stages, makes each terminating transient share
// its sink's column, and stamps the column count on every stage.
func renumberColumns(result []OrderedStage) {
	columnBySink := make(map[string]int)
	col := 0
	for i := range result {
		s := &result[i]
		if s.Orphan {
			continue
		}
		if s.Role == RoleSink || s.Role == RoleTerminal {
			s.Position = col
			columnBySink[s.ID] = col
			col++
		}
	}
	for i := range result {
		s := &result[i]
		if s.Orphan || s.Role != RoleTransient || s.TerminationID == "" {
			continue
		}
		if c, ok := columnBySink[s.TerminationID]; ok {
			s.Position = c
		}
	}
	for i := range result {
		result[i].TotalPositions = col
	}
}
