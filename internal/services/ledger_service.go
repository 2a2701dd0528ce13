package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/dominionbank/backend/internal/audit"
	"github.com/dominionbank/backend/internal/config"
	"github.com/dominionbank/backend/internal/database"
	"github.com/dominionbank/backend/internal/models"
)

// LedgerService performs validated transfers between accounts and exposes
// balance and history reads. Every transfer commits its debit, credit,
// journal entry and cooldown as one serializable transaction; a concurrent
// operation on either account fully precedes or fully follows it.
type LedgerService struct {
	db        *sql.DB
	cfg       *config.EconomyConfig
	accounts  *AccountStore
	cooldowns *CooldownGate
	journal   *Journal
	events    *EventPublisher
	audit     *audit.Logger
	now       func() time.Time
}

func NewLedgerService(db *sql.DB, cfg *config.EconomyConfig, accounts *AccountStore, cooldowns *CooldownGate, journal *Journal, events *EventPublisher) *LedgerService {
	return &LedgerService{
		db:        db,
		cfg:       cfg,
		accounts:  accounts,
		cooldowns: cooldowns,
		journal:   journal,
		events:    events,
		audit:     audit.NewLogger(),
		now:       time.Now,
	}
}

// TransferResult carries everything the chat layer needs to confirm a
// completed transfer.
type TransferResult struct {
	EntryID             string `json:"entry_id"`
	Amount              int64  `json:"amount"`
	SenderID            int64  `json:"sender_id"`
	SenderDisplay       string `json:"sender_display"`
	SenderBalance       int64  `json:"sender_balance"`
	RecipientID         int64  `json:"recipient_id"`
	RecipientDisplay    string `json:"recipient_display"`
	RecipientBalance    int64  `json:"recipient_balance"`
	RecipientExternalID string `json:"recipient_external_id"`
}

// Transfer moves amount from the sender (by platform identity) to the
// recipient (by handle). Checks run in a fixed order and the first failure
// wins with no side effects:
//
//	amount range, sender known, cooldown, recipient known, self-transfer,
//	sufficient balance.
func (s *LedgerService) Transfer(ctx context.Context, senderExternalID, recipientHandle string, amount int64) (*TransferResult, error) {
	if amount < s.cfg.MinTransfer || amount > s.cfg.MaxTransfer {
		return nil, &EconError{
			Kind:   ErrAmountOutOfRange,
			Detail: fmt.Sprintf("amount must be between %d and %d", s.cfg.MinTransfer, s.cfg.MaxTransfer),
		}
	}

	var result *TransferResult
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		sender, err := s.accounts.ResolveExternal(ctx, tx, senderExternalID)
		if err != nil {
			return err
		}
		if sender == nil {
			return econErr(ErrSenderUnknown, "sender is not registered")
		}

		expiresAt, err := s.cooldowns.IsActive(ctx, tx, sender.ID, models.ActionTransfer)
		if err != nil {
			return err
		}
		if expiresAt != nil {
			remaining := expiresAt.Sub(s.now().UTC())
			if remaining < 0 {
				remaining = 0
			}
			return &EconError{Kind: ErrCooldownActive, CooldownRemaining: remaining}
		}

		recipient, err := s.accounts.ResolveHandle(ctx, tx, recipientHandle)
		if err != nil {
			return err
		}
		if recipient == nil {
			return econErr(ErrRecipientUnknown, fmt.Sprintf("no account with handle %s", recipientHandle))
		}

		if sender.ID == recipient.ID {
			return econErr(ErrSelfTransfer, "cannot transfer to yourself")
		}

		ok, err := s.accounts.Mutate(ctx, tx, sender.ID, -amount, s.cfg.AllowDebt)
		if err != nil {
			return err
		}
		if !ok {
			return econErr(ErrInsufficientBalance, "balance too low for this transfer")
		}

		ok, err = s.accounts.Mutate(ctx, tx, recipient.ID, amount, false)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("credit recipient %d failed", recipient.ID)
		}

		entry, err := s.journal.Append(ctx, tx, &sender.ID, &recipient.ID, amount, models.JournalKindTransfer, "")
		if err != nil {
			return err
		}

		if _, err := s.cooldowns.Set(ctx, tx, sender.ID, models.ActionTransfer, s.cfg.TransferCooldown); err != nil {
			return err
		}

		result = &TransferResult{
			EntryID:             entry.EntryID,
			Amount:              amount,
			SenderID:            sender.ID,
			SenderDisplay:       sender.Display(),
			SenderBalance:       sender.Balance - amount,
			RecipientID:         recipient.ID,
			RecipientDisplay:    recipient.Display(),
			RecipientBalance:    recipient.Balance + amount,
			RecipientExternalID: recipient.ExternalID,
		}
		return nil
	})
	if err != nil {
		if AsEconError(err) == nil {
			s.audit.LogError("TRANSFER", 0, err)
		}
		return nil, err
	}

	s.audit.LogTransfer(result.EntryID, result.SenderID, result.RecipientID, amount)
	s.events.PublishTransfer(ctx, result)
	log.Printf("[TRANSFER] %s -> %s: %d", result.SenderDisplay, result.RecipientDisplay, amount)
	return result, nil
}

// Register creates the account for a platform identity on first contact, or
// refreshes its handle and display name when it already exists. The created
// flag reports which happened.
func (s *LedgerService) Register(ctx context.Context, externalID, handle, displayName string) (*models.Account, bool, error) {
	return s.accounts.GetOrCreate(ctx, externalID, handle, displayName, s.cfg.DefaultBalance)
}

// GetAccount resolves an identity to its account. Handles are accepted with
// or without a leading @; anything else is tried as a platform identity
// first.
func (s *LedgerService) GetAccount(ctx context.Context, identity string) (*models.Account, error) {
	return s.resolveIdentity(ctx, s.db, identity)
}

// GetBalance returns the balance for an identity. Handles are accepted with
// or without a leading @; anything else is tried as a platform identity
// first.
func (s *LedgerService) GetBalance(ctx context.Context, identity string) (int64, error) {
	account, err := s.resolveIdentity(ctx, s.db, identity)
	if err != nil {
		return 0, err
	}
	return account.Balance, nil
}

// GetHistory returns the journal entries touching an identity, newest first.
func (s *LedgerService) GetHistory(ctx context.Context, identity string, limit, offset int) ([]models.JournalEntry, error) {
	if limit <= 0 || limit > s.cfg.HistoryPageLimit {
		limit = s.cfg.HistoryPageLimit
	}
	if offset < 0 {
		offset = 0
	}

	account, err := s.resolveIdentity(ctx, s.db, identity)
	if err != nil {
		return nil, err
	}
	return s.journal.History(ctx, account.ID, limit, offset)
}

// GetRanking lists accounts by balance, richest first.
func (s *LedgerService) GetRanking(ctx context.Context, limit, offset int) ([]models.Account, error) {
	if limit <= 0 || limit > s.cfg.HistoryPageLimit {
		limit = s.cfg.HistoryPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.accounts.Ranking(ctx, limit, offset)
}

func (s *LedgerService) resolveIdentity(ctx context.Context, q database.Queryer, identity string) (*models.Account, error) {
	if strings.HasPrefix(identity, "@") {
		account, err := s.accounts.ResolveHandle(ctx, q, identity)
		if err != nil {
			return nil, err
		}
		if account == nil {
			return nil, econErr(ErrSenderUnknown, fmt.Sprintf("no account for %s", identity))
		}
		return account, nil
	}

	account, err := s.accounts.ResolveExternal(ctx, q, identity)
	if err != nil {
		return nil, err
	}
	if account == nil {
		account, err = s.accounts.ResolveHandle(ctx, q, identity)
		if err != nil {
			return nil, err
		}
	}
	if account == nil {
		return nil, econErr(ErrSenderUnknown, fmt.Sprintf("no account for %s", identity))
	}
	return account, nil
}

// AdminAdjust grants currency to an account (positive delta) or removes it
// (negative delta) by moderator action. The balance change and its journal
// entry commit as one unit; removals respect the same floor as any debit.
func (s *LedgerService) AdminAdjust(ctx context.Context, identity string, delta int64, reason string) (*models.Account, error) {
	if delta == 0 {
		return nil, econErr(ErrAmountOutOfRange, "adjustment must be non-zero")
	}

	var (
		account *models.Account
		entryID string
	)
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		account, err = s.resolveIdentity(ctx, tx, identity)
		if err != nil {
			return err
		}

		ok, err := s.accounts.Mutate(ctx, tx, account.ID, delta, s.cfg.AllowDebt)
		if err != nil {
			return err
		}
		if !ok {
			return econErr(ErrInsufficientBalance, "balance too low for this removal")
		}

		kind := models.JournalKindAdminGrant
		senderID, recipientID := (*int64)(nil), &account.ID
		amount := delta
		if delta < 0 {
			kind = models.JournalKindAdminRemove
			senderID, recipientID = &account.ID, nil
			amount = -delta
		}
		entry, err := s.journal.Append(ctx, tx, senderID, recipientID, amount, kind, reason)
		if err != nil {
			return err
		}
		entryID = entry.EntryID
		account.Balance += delta
		return nil
	})
	if err != nil {
		if AsEconError(err) == nil {
			s.audit.LogError("ADMIN_ADJUST", 0, err)
		}
		return nil, err
	}

	s.audit.LogAdjustment(entryID, account.ID, delta)
	log.Printf("[ADMIN] Adjusted account %d by %d", account.ID, delta)
	return account, nil
}
