package workflow

import (
	"fmt"

	"lead-board-backend/pkg/models"
)

// TransitionError 非法流转错误，处理器映射为 409
type TransitionError struct {
	From models.OpportunityStatus
	To   models.OpportunityStatus
	Why  string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move opportunity from %s to %s: %s", e.From, e.To, e.Why)
}

// CanTransition reports whether the board allows moving between the two statuses.
// The rule table is deliberately permissive: the single hard rule is that an
// assigned card can never regress to the new column. Everything else is allowed,
// including reopening done/cancelled/archived cards.
func CanTransition(from, to models.OpportunityStatus) bool {
	if from == to {
		return false
	}
	if from == models.StatusAssigned && to == models.StatusNew {
		return false
	}
	return true
}

// ValidateTransition checks the move and its preconditions.
// hasAssignee reflects the assignee after the move (current assignee, or the one
// supplied with the transition request).
func ValidateTransition(from, to models.OpportunityStatus, hasAssignee bool) error {
	if !to.IsValid() {
		return &TransitionError{From: from, To: to, Why: "unknown status"}
	}
	if from == to {
		return &TransitionError{From: from, To: to, Why: "already in that status"}
	}
	if !CanTransition(from, to) {
		return &TransitionError{From: from, To: to, Why: "assigned opportunities cannot go back to new"}
	}
	// 设为 assigned 必须有指派人；这是"指派即 status >= assigned"不变式的另一半
	if to == models.StatusAssigned && !hasAssignee {
		return &TransitionError{From: from, To: to, Why: "an assignee is required"}
	}
	return nil
}
