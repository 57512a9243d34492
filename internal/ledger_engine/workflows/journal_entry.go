package workflows

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/agentbus-ledger/internal/domain/journal"
	"github.com/agentbus-ledger/internal/domain/message"
	"github.com/agentbus-ledger/internal/ledger_engine/service"
)

// CreateJournalEntryPayload is the payload of CREATE_JOURNAL_ENTRY
type CreateJournalEntryPayload struct {
	Memo            string              `json:"memo"`
	TransactionDate string              `json:"transactionDate"`
	JournalType     string              `json:"journalType"`
	Source          string              `json:"source"`
	Lines           []service.LineInput `json:"lines" validate:"required,min=2,dive"`
	AutoPost        bool                `json:"autoPost"`
}

// JournalEntryWorkflow books a fully formed journal entry
type JournalEntryWorkflow struct {
	store    message.Store
	journals JournalWriter
	logger   *slog.Logger
	now      func() time.Time
}

func NewJournalEntryWorkflow(store message.Store, journals JournalWriter, logger *slog.Logger) *JournalEntryWorkflow {
	return &JournalEntryWorkflow{store: store, journals: journals, logger: logger, now: time.Now}
}

func (w *JournalEntryWorkflow) Handle(ctx context.Context, msg *message.Message) error {
	logger := w.logger.With("message_id", msg.ID, "owner_user_id", msg.OwnerUserID)

	var p CreateJournalEntryPayload
	if err := decodePayload(msg.Payload, &p); err != nil {
		return err
	}
	date, err := parseDate(p.TransactionDate, w.now())
	if err != nil {
		return err
	}
	source := p.Source
	if source == "" {
		source = "agent:" + msg.Sender
	}

	j, err := w.journals.CreateJournal(ctx, msg.OwnerUserID, journal.Header{
		Memo:            p.Memo,
		TransactionDate: date,
		JournalType:     p.JournalType,
		Source:          source,
	}, p.Lines)
	if err != nil {
		if missing := service.MissingAccounts(err); len(missing) > 0 {
			// the caller needs the list to create the accounts and resend
			logger.Info("Journal entry references unknown accounts", "missing", missing)
			_, respErr := w.store.Respond(ctx, msg.ID, message.StatusFailed, map[string]any{
				"error":           err.Error(),
				"errorKind":       string(message.ErrorKindValidation),
				"missingAccounts": missing,
			}, "Journal entry references unknown accounts: "+strings.Join(missing, ", "))
			return respErr
		}
		return message.NewHandlerError(service.Classify(err), err)
	}

	posted := false
	if p.AutoPost {
		if err := w.journals.PostJournal(ctx, j.ID); err != nil {
			return message.NewHandlerError(service.Classify(err), fmt.Errorf("journal #%d created but not posted: %w", j.ID, err))
		}
		posted = true
	}

	logger.Info("Journal entry workflow completed", "journal_id", j.ID, "posted", posted)
	summary := fmt.Sprintf("Journal #%d created", j.ID)
	if posted {
		summary = fmt.Sprintf("Journal #%d created and posted", j.ID)
	}
	_, err = w.store.Respond(ctx, msg.ID, message.StatusCompleted, map[string]any{
		"journalId": j.ID,
		"posted":    posted,
	}, summary)
	return err
}
