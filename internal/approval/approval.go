package approval

import (
	"context"

	"github.com/KadenMcCarty-Personal/Social-Media-Agent-N/internal/models"
)

// Verdict is the operator's ruling on a proposed reply. Text carries the
// reply to dispatch, which may have been edited by the operator.
type Verdict struct {
	Approved bool
	Text     string
}

// Approver gates a decision before dispatch. A rejection still produces a
// ProcessedRecord (downgraded to suppressed) so the mention is never
// re-offered.
type Approver interface {
	Review(ctx context.Context, mention models.Mention, decision models.Decision) (Verdict, error)
}

// AutoApprover approves everything; used when interactive approval is off.
type AutoApprover struct{}

func (AutoApprover) Review(ctx context.Context, mention models.Mention, decision models.Decision) (Verdict, error) {
	return Verdict{Approved: true, Text: decision.Text}, nil
}
