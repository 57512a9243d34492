package components

import (
	"fmt"

	"github.com/agentbus-ledger/internal/domain/journal"
	"github.com/agentbus-ledger/internal/ledger_engine/service"
	"github.com/shopspring/decimal"
)

// LineEditorImpl implements the LineEditor interface
type LineEditorImpl struct{}

// NewLineEditor creates a new LineEditorImpl
func NewLineEditor() service.LineEditor {
	return &LineEditorImpl{}
}

// ApplyAmounts works on a copy of j's lines. It accepts exactly one edit style:
// a symmetric amount, side amounts, or explicit per-line amounts.
func (e *LineEditorImpl) ApplyAmounts(j *journal.Journal, req service.EditRequest) (*service.LineEdit, error) {
	styles := 0
	if req.Amount != nil {
		styles++
	}
	if req.DebitAmount != nil || req.CreditAmount != nil {
		styles++
	}
	if len(req.LineAmounts) > 0 {
		styles++
	}
	if styles > 1 {
		return nil, journal.ValidationError{Message: "amount, debitAmount/creditAmount and lineAmounts cannot be combined"}
	}

	lines := make([]journal.Line, len(j.Lines))
	copy(lines, j.Lines)
	skipBalance := false

	switch {
	case req.Amount != nil:
		dr, cr, err := twoLineSides(j, lines)
		if err != nil {
			return nil, err
		}
		if err := positive("amount", *req.Amount); err != nil {
			return nil, err
		}
		lines[dr].Debit = *req.Amount
		lines[cr].Credit = *req.Amount

	case req.DebitAmount != nil || req.CreditAmount != nil:
		dr, cr, err := twoLineSides(j, lines)
		if err != nil {
			return nil, err
		}
		imbalanced := !journal.IsBalanced(lines)
		oldDebit, oldCredit := lines[dr].Debit, lines[cr].Credit

		switch {
		case req.DebitAmount != nil && req.CreditAmount != nil:
			if err := positive("debitAmount", *req.DebitAmount); err != nil {
				return nil, err
			}
			if err := positive("creditAmount", *req.CreditAmount); err != nil {
				return nil, err
			}
			lines[dr].Debit = *req.DebitAmount
			lines[cr].Credit = *req.CreditAmount
		case req.DebitAmount != nil:
			if err := positive("debitAmount", *req.DebitAmount); err != nil {
				return nil, err
			}
			lines[dr].Debit = *req.DebitAmount
			lines[cr].Credit = scaled(*req.DebitAmount, oldCredit, oldDebit)
			skipBalance = imbalanced
		default:
			if err := positive("creditAmount", *req.CreditAmount); err != nil {
				return nil, err
			}
			lines[cr].Credit = *req.CreditAmount
			lines[dr].Debit = scaled(*req.CreditAmount, oldDebit, oldCredit)
			skipBalance = imbalanced
		}

	default:
		index := make(map[int64]int, len(lines))
		for i, l := range lines {
			index[l.ID] = i
		}
		for _, la := range req.LineAmounts {
			i, ok := index[la.LineID]
			if !ok {
				return nil, journal.ValidationError{Message: fmt.Sprintf("line %d does not belong to journal #%d", la.LineID, j.ID)}
			}
			lines[i].Debit = la.Debit
			lines[i].Credit = la.Credit
		}
	}

	if skipBalance {
		for i, l := range lines {
			if err := journal.ValidateLine(i, l); err != nil {
				return nil, err
			}
		}
	} else if err := journal.ValidateLines(lines); err != nil {
		return nil, err
	}

	var changed []journal.Line
	for i, l := range lines {
		if !l.Debit.Equal(j.Lines[i].Debit) || !l.Credit.Equal(j.Lines[i].Credit) {
			changed = append(changed, l)
		}
	}
	return &service.LineEdit{Lines: lines, Changed: changed, SkipBalanceCheck: skipBalance}, nil
}

// twoLineSides returns the indexes of the only debit and only credit line
func twoLineSides(j *journal.Journal, lines []journal.Line) (debitIdx, creditIdx int, err error) {
	debits, credits := journal.SideCounts(lines)
	if len(lines) != 2 || debits != 1 || credits != 1 {
		return 0, 0, journal.ValidationError{Message: fmt.Sprintf(
			"ambiguous amount edit: journal #%d has %d lines (%d debit, %d credit), name the lines to change", j.ID, len(lines), debits, credits)}
	}
	if lines[0].IsDebit() {
		return 0, 1, nil
	}
	return 1, 0, nil
}

func positive(field string, v decimal.Decimal) error {
	if !v.IsPositive() {
		return journal.ValidationError{Message: field + " must be greater than zero"}
	}
	return nil
}

// scaled returns given * other/base rounded to cents, keeping the existing ratio between the sides
func scaled(given, other, base decimal.Decimal) decimal.Decimal {
	if base.IsZero() {
		return given
	}
	return given.Mul(other).Div(base).Round(2)
}
