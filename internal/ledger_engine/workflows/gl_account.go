package workflows

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/agentbus-ledger/internal/domain/account"
	"github.com/agentbus-ledger/internal/domain/journal"
	"github.com/agentbus-ledger/internal/domain/message"
	"github.com/agentbus-ledger/internal/ledger_engine/components"
	"github.com/agentbus-ledger/internal/ledger_engine/service"
	"github.com/shopspring/decimal"
)

const openingBalanceSource = "opening_balance"

// CreateGLAccountPayload is the payload of CREATE_GL_ACCOUNT
type CreateGLAccountPayload struct {
	Name            string           `json:"name" validate:"required,max=200"`
	AccountType     string           `json:"accountType" validate:"required"`
	Notes           string           `json:"notes"`
	StartingBalance *decimal.Decimal `json:"startingBalance"`
	BalanceDate     string           `json:"balanceDate"`
}

// GLAccountWorkflow creates chart-of-accounts entries, with an optional opening balance journal
type GLAccountWorkflow struct {
	store          message.Store
	accounts       AccountCreator
	journals       JournalWriter
	openingAccount string
	logger         *slog.Logger
	now            func() time.Time
}

func NewGLAccountWorkflow(store message.Store, accounts AccountCreator, journals JournalWriter, openingAccount string, logger *slog.Logger) *GLAccountWorkflow {
	return &GLAccountWorkflow{
		store:          store,
		accounts:       accounts,
		journals:       journals,
		openingAccount: openingAccount,
		logger:         logger,
		now:            time.Now,
	}
}

func (w *GLAccountWorkflow) Handle(ctx context.Context, msg *message.Message) error {
	logger := w.logger.With("message_id", msg.ID, "owner_user_id", msg.OwnerUserID)

	var p CreateGLAccountPayload
	if err := decodePayload(msg.Payload, &p); err != nil {
		return err
	}
	t, err := account.ParseType(p.AccountType)
	if err != nil {
		return message.NewHandlerError(message.ErrorKindValidation, err)
	}
	date, err := parseDate(p.BalanceDate, w.now())
	if err != nil {
		return err
	}

	notes := p.Notes
	if notes == "" {
		notes = components.DeriveNotes(p.Name, t)
	}

	acc, existing, err := w.accounts.CreateAccount(ctx, msg.OwnerUserID, p.Name, t, notes)
	if err != nil {
		return message.NewHandlerError(service.Classify(err), err)
	}

	resp := map[string]any{
		"accountId":   acc.ID,
		"code":        acc.Code,
		"name":        acc.Name,
		"accountType": string(acc.Type),
		"existing":    existing,
	}
	summary := fmt.Sprintf("Created %s account %s %s", acc.Type, acc.Code, acc.Name)
	if existing {
		summary = fmt.Sprintf("Account %s %s already exists", acc.Code, acc.Name)
	}

	if p.StartingBalance != nil && !p.StartingBalance.IsZero() {
		journalID, booked, err := w.bookOpeningBalance(ctx, logger, msg.OwnerUserID, acc, existing, *p.StartingBalance, date)
		if err != nil {
			// the account is already in the chart; a resend books the missing balance
			return message.NewHandlerError(service.Classify(err),
				fmt.Errorf("account %s saved but its opening balance failed: %w", acc.Code, err)).
				WithDetails(map[string]any{"accountId": acc.ID, "code": acc.Code, "existing": existing})
		}
		resp["journalId"] = journalID
		if booked {
			summary += fmt.Sprintf(" with opening balance journal #%d", journalID)
		} else {
			summary += fmt.Sprintf(", opening balance already booked in journal #%d", journalID)
		}
	}

	logger.Info("GL account workflow completed", "account_id", acc.ID, "code", acc.Code, "existing", existing)
	_, err = w.store.Respond(ctx, msg.ID, message.StatusCompleted, resp, summary)
	return err
}

// bookOpeningBalance returns the opening balance journal of acc, creating it
// unless an existing account already has one. booked reports a new journal.
func (w *GLAccountWorkflow) bookOpeningBalance(ctx context.Context, logger *slog.Logger, ownerUserID string, acc *account.Account, existing bool, balance decimal.Decimal, date time.Time) (int64, bool, error) {
	// every opening journal has a line on the equity account, so it has no lookup of its own
	if existing && !strings.EqualFold(acc.Name, w.openingAccount) {
		id, found, err := w.journals.FindBySourceAndAccount(ctx, ownerUserID, openingBalanceSource, acc.ID)
		if err != nil {
			return 0, false, err
		}
		if found {
			logger.Info("Opening balance already booked for existing account", "account_id", acc.ID, "journal_id", id)
			return id, false, nil
		}
		logger.Info("Booking missing opening balance for existing account", "account_id", acc.ID)
	}

	j, err := w.openingBalance(ctx, ownerUserID, acc, balance, date)
	if err != nil {
		return 0, false, err
	}
	return j.ID, true, nil
}

// openingBalance books balance against the opening balance equity account.
// Debit-normal accounts are debited for a positive balance; a negative balance flips the sides.
func (w *GLAccountWorkflow) openingBalance(ctx context.Context, ownerUserID string, acc *account.Account, balance decimal.Decimal, date time.Time) (*journal.Journal, error) {
	equity, _, err := w.accounts.CreateAccount(ctx, ownerUserID, w.openingAccount, account.TypeEquity,
		components.DeriveNotes(w.openingAccount, account.TypeEquity))
	if err != nil {
		return nil, err
	}
	if equity.ID == acc.ID {
		return nil, journal.ValidationError{Message: "the opening balance account cannot carry its own opening balance"}
	}

	amount := balance.Abs()
	newLine := service.LineInput{Account: acc.Code, Description: "Opening balance"}
	equityLine := service.LineInput{Account: equity.Code, Description: "Opening balance for " + acc.Name}
	if acc.Type.IsDebitNormal() == balance.IsPositive() {
		newLine.Debit, equityLine.Credit = amount, amount
	} else {
		newLine.Credit, equityLine.Debit = amount, amount
	}

	return w.journals.CreateJournal(ctx, ownerUserID, journal.Header{
		Memo:            "Opening balance for " + acc.Name,
		TransactionDate: date,
		Source:          openingBalanceSource,
	}, []service.LineInput{newLine, equityLine})
}
