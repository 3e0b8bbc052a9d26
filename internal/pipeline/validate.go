package pipeline

import "fmt"

// ViolationKind classifies a structural problem in a stage set.
type ViolationKind string

const (
	// ViolationDanglingNext is a forward pointer to a missing stage.
	ViolationDanglingNext ViolationKind = "dangling_next"
	// ViolationDanglingTermination is a termination pointer to a missing stage.
	ViolationDanglingTermination ViolationKind = "dangling_termination"
	// ViolationTerminationNotSink is a termination pointer to a stage that
	// is not a sink.
	ViolationTerminationNotSink ViolationKind = "termination_not_sink"
	// ViolationCycle is a forward chain that loops back on itself. Resolve
	// truncates such a chain at the repeated stage; Validate reports it.
	ViolationCycle ViolationKind = "cycle"
	// ViolationNoSource is a non-empty stage set with no source stage at
	// all, leaving every stage unreachable.
	ViolationNoSource ViolationKind = "no_source"
)

// Violation describes one structural problem found by Validate.
type Violation struct {
	Kind    ViolationKind
	StageID string
	Detail  string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: stage %s: %s", v.Kind, v.StageID, v.Detail)
}

// Validate inspects stage records for structural problems that Resolve
// tolerates silently. It never repairs anything; callers decide whether a
// reported violation warrants a repair pass.
func Validate(stages []StageRecord) []Violation {
	live := make([]StageRecord, 0, len(stages))
	byID := make(map[string]StageRecord, len(stages))
	for _, s := range stages {
		if s.Deleted() {
			continue
		}
		live = append(live, s)
		byID[s.ID] = s
	}

	var violations []Violation
	hasSource := false

	for _, s := range live {
		if s.Role == RoleSource {
			hasSource = true
		}
		if s.NextStageID != "" {
			if _, ok := byID[s.NextStageID]; !ok {
				violations = append(violations, Violation{
					Kind:    ViolationDanglingNext,
					StageID: s.ID,
					Detail:  fmt.Sprintf("next stage %s does not exist", s.NextStageID),
				})
			}
		}
		if s.TerminationID != "" {
			term, ok := byID[s.TerminationID]
			switch {
			case !ok:
				violations = append(violations, Violation{
					Kind:    ViolationDanglingTermination,
					StageID: s.ID,
					Detail:  fmt.Sprintf("termination stage %s does not exist", s.TerminationID),
				})
			case term.Role != RoleSink:
				violations = append(violations, Violation{
					Kind:    ViolationTerminationNotSink,
					StageID: s.ID,
					Detail:  fmt.Sprintf("termination stage %s has role %s", term.ID, term.Role),
				})
			}
		}
	}

	if !hasSource && len(live) > 0 {
		violations = append(violations, Violation{
			Kind:   ViolationNoSource,
			Detail: "stage set has no source stage",
		})
	}

	// Walk each forward chain with a per-chain set so a loop back into the
	// chain is distinguished from two chains merging.
	for _, s := range live {
		if s.Role != RoleSource {
			continue
		}
		seen := map[string]bool{}
		for id := s.ID; id != ""; {
			cur, ok := byID[id]
			if !ok {
				break
			}
			if seen[id] {
				violations = append(violations, Violation{
					Kind:    ViolationCycle,
					StageID: id,
					Detail:  fmt.Sprintf("forward chain from source %s revisits stage %s", s.ID, id),
				})
				break
			}
			seen[id] = true
			id = cur.NextStageID
		}
	}

	return violations
}
