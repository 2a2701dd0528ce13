package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/dominionbank/backend/internal/models"
)

func newTestLedger(t *testing.T) (*LedgerService, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)

	cfg := testConfig()
	accounts := NewAccountStore(db, cfg)
	cooldowns := NewCooldownGate(db)
	journal := NewJournal(db)
	events := NewEventPublisher(nil)

	svc := NewLedgerService(db, cfg, accounts, cooldowns, journal, events)

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc.now = fixedClock(at)
	cooldowns.now = fixedClock(at)

	return svc, mock, func() { db.Close() }
}

func TestLedgerService_Transfer(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("successful transfer commits debit, credit, journal and cooldown", func(t *testing.T) {
		svc, mock, closeDB := newTestLedger(t)
		defer closeDB()

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM accounts WHERE external_id = \\$1").
			WithArgs("ext-1").
			WillReturnRows(accountRow(1, "ext-1", "sender", 500))
		mock.ExpectQuery("SELECT expires_at FROM cooldowns").
			WithArgs(int64(1), models.ActionTransfer, at).
			WillReturnRows(sqlmock.NewRows([]string{"expires_at"}))
		mock.ExpectQuery("SELECT (.+) FROM accounts WHERE LOWER\\(handle\\) = \\$1").
			WithArgs("rival").
			WillReturnRows(accountRow(2, "ext-2", "rival", 100))
		mock.ExpectExec("UPDATE accounts SET balance = balance \\+ \\$1").
			WithArgs(int64(-150), int64(1), int64(0)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE accounts SET balance = balance \\+ \\$1").
			WithArgs(int64(150), int64(2), int64(0)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("INSERT INTO journal_entries").
			WithArgs(sqlmock.AnyArg(), int64(1), int64(2), int64(150), models.JournalKindTransfer, "").
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), at))
		mock.ExpectExec("INSERT INTO cooldowns").
			WithArgs(int64(1), models.ActionTransfer, at.Add(5*time.Second)).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		result, err := svc.Transfer(context.Background(), "ext-1", "@Rival", 150)
		assert.NoError(t, err)
		assert.Equal(t, int64(350), result.SenderBalance)
		assert.Equal(t, int64(250), result.RecipientBalance)
		assert.Equal(t, "@sender", result.SenderDisplay)
		assert.Equal(t, "ext-2", result.RecipientExternalID)
		assert.NotEmpty(t, result.EntryID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("amount out of range is rejected before any query", func(t *testing.T) {
		svc, mock, closeDB := newTestLedger(t)
		defer closeDB()

		_, err := svc.Transfer(context.Background(), "ext-1", "rival", 0)
		ee := AsEconError(err)
		assert.NotNil(t, ee)
		assert.Equal(t, ErrAmountOutOfRange, ee.Kind)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown sender", func(t *testing.T) {
		svc, mock, closeDB := newTestLedger(t)
		defer closeDB()

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM accounts WHERE external_id = \\$1").
			WithArgs("ghost").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectRollback()

		_, err := svc.Transfer(context.Background(), "ghost", "rival", 10)
		ee := AsEconError(err)
		assert.NotNil(t, ee)
		assert.Equal(t, ErrSenderUnknown, ee.Kind)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("active cooldown wins before recipient lookup", func(t *testing.T) {
		svc, mock, closeDB := newTestLedger(t)
		defer closeDB()

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM accounts WHERE external_id = \\$1").
			WithArgs("ext-1").
			WillReturnRows(accountRow(1, "ext-1", "sender", 500))
		mock.ExpectQuery("SELECT expires_at FROM cooldowns").
			WithArgs(int64(1), models.ActionTransfer, at).
			WillReturnRows(sqlmock.NewRows([]string{"expires_at"}).AddRow(at.Add(3 * time.Second)))
		mock.ExpectRollback()

		_, err := svc.Transfer(context.Background(), "ext-1", "ghosthandle", 10)
		ee := AsEconError(err)
		assert.NotNil(t, ee)
		assert.Equal(t, ErrCooldownActive, ee.Kind)
		assert.Equal(t, 3*time.Second, ee.CooldownRemaining)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("self transfer", func(t *testing.T) {
		svc, mock, closeDB := newTestLedger(t)
		defer closeDB()

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM accounts WHERE external_id = \\$1").
			WithArgs("ext-1").
			WillReturnRows(accountRow(1, "ext-1", "sender", 500))
		mock.ExpectQuery("SELECT expires_at FROM cooldowns").
			WithArgs(int64(1), models.ActionTransfer, at).
			WillReturnRows(sqlmock.NewRows([]string{"expires_at"}))
		mock.ExpectQuery("SELECT (.+) FROM accounts WHERE LOWER\\(handle\\) = \\$1").
			WithArgs("sender").
			WillReturnRows(accountRow(1, "ext-1", "sender", 500))
		mock.ExpectRollback()

		_, err := svc.Transfer(context.Background(), "ext-1", "@sender", 10)
		ee := AsEconError(err)
		assert.NotNil(t, ee)
		assert.Equal(t, ErrSelfTransfer, ee.Kind)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insufficient balance rolls everything back", func(t *testing.T) {
		svc, mock, closeDB := newTestLedger(t)
		defer closeDB()

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM accounts WHERE external_id = \\$1").
			WithArgs("ext-1").
			WillReturnRows(accountRow(1, "ext-1", "sender", 100))
		mock.ExpectQuery("SELECT expires_at FROM cooldowns").
			WithArgs(int64(1), models.ActionTransfer, at).
			WillReturnRows(sqlmock.NewRows([]string{"expires_at"}))
		mock.ExpectQuery("SELECT (.+) FROM accounts WHERE LOWER\\(handle\\) = \\$1").
			WithArgs("rival").
			WillReturnRows(accountRow(2, "ext-2", "rival", 100))
		mock.ExpectExec("UPDATE accounts SET balance = balance \\+ \\$1").
			WithArgs(int64(-500), int64(1), int64(0)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		_, err := svc.Transfer(context.Background(), "ext-1", "rival", 500)
		ee := AsEconError(err)
		assert.NotNil(t, ee)
		assert.Equal(t, ErrInsufficientBalance, ee.Kind)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerService_GetBalance(t *testing.T) {
	svc, mock, closeDB := newTestLedger(t)
	defer closeDB()

	t.Run("handle with @ resolves by handle only", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM accounts WHERE LOWER\\(handle\\) = \\$1").
			WithArgs("sender").
			WillReturnRows(accountRow(1, "ext-1", "sender", 500))

		balance, err := svc.GetBalance(context.Background(), "@sender")
		assert.NoError(t, err)
		assert.Equal(t, int64(500), balance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("bare identity falls back to handle lookup", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM accounts WHERE external_id = \\$1").
			WithArgs("sender").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectQuery("SELECT (.+) FROM accounts WHERE LOWER\\(handle\\) = \\$1").
			WithArgs("sender").
			WillReturnRows(accountRow(1, "ext-1", "sender", 500))

		balance, err := svc.GetBalance(context.Background(), "sender")
		assert.NoError(t, err)
		assert.Equal(t, int64(500), balance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown identity", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM accounts WHERE external_id = \\$1").
			WithArgs("ghost").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectQuery("SELECT (.+) FROM accounts WHERE LOWER\\(handle\\) = \\$1").
			WithArgs("ghost").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := svc.GetBalance(context.Background(), "ghost")
		ee := AsEconError(err)
		assert.NotNil(t, ee)
		assert.Equal(t, ErrSenderUnknown, ee.Kind)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerService_GetHistory(t *testing.T) {
	svc, mock, closeDB := newTestLedger(t)
	defer closeDB()

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT (.+) FROM accounts WHERE external_id = \\$1").
		WithArgs("ext-1").
		WillReturnRows(accountRow(1, "ext-1", "sender", 500))
	mock.ExpectQuery("SELECT (.+) FROM journal_entries WHERE sender_id = \\$1 OR recipient_id = \\$1").
		WithArgs(int64(1), 50, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "entry_id", "sender_id", "recipient_id", "amount", "kind", "description", "created_at"}).
			AddRow(int64(7), "e-7", int64(1), int64(2), int64(150), models.JournalKindTransfer, "", at))

	entries, err := svc.GetHistory(context.Background(), "ext-1", 0, 0)
	assert.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, int64(150), entries[0].Amount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerService_AdminAdjust(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("grant credits and journals in one transaction", func(t *testing.T) {
		svc, mock, closeDB := newTestLedger(t)
		defer closeDB()

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM accounts WHERE external_id = \\$1").
			WithArgs("ext-1").
			WillReturnRows(accountRow(1, "ext-1", "sender", 500))
		mock.ExpectExec("UPDATE accounts SET balance = balance \\+ \\$1").
			WithArgs(int64(200), int64(1), int64(0)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("INSERT INTO journal_entries").
			WithArgs(sqlmock.AnyArg(), nil, int64(1), int64(200), models.JournalKindAdminGrant, "event prize").
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(8), at))
		mock.ExpectCommit()

		account, err := svc.AdminAdjust(context.Background(), "ext-1", 200, "event prize")
		assert.NoError(t, err)
		assert.Equal(t, int64(700), account.Balance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("removal journals with the amount positive", func(t *testing.T) {
		svc, mock, closeDB := newTestLedger(t)
		defer closeDB()

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM accounts WHERE external_id = \\$1").
			WithArgs("ext-1").
			WillReturnRows(accountRow(1, "ext-1", "sender", 500))
		mock.ExpectExec("UPDATE accounts SET balance = balance \\+ \\$1").
			WithArgs(int64(-300), int64(1), int64(0)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("INSERT INTO journal_entries").
			WithArgs(sqlmock.AnyArg(), int64(1), nil, int64(300), models.JournalKindAdminRemove, "rule violation").
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(9), at))
		mock.ExpectCommit()

		account, err := svc.AdminAdjust(context.Background(), "ext-1", -300, "rule violation")
		assert.NoError(t, err)
		assert.Equal(t, int64(200), account.Balance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("removal below the floor rolls back", func(t *testing.T) {
		svc, mock, closeDB := newTestLedger(t)
		defer closeDB()

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM accounts WHERE external_id = \\$1").
			WithArgs("ext-1").
			WillReturnRows(accountRow(1, "ext-1", "sender", 100))
		mock.ExpectExec("UPDATE accounts SET balance = balance \\+ \\$1").
			WithArgs(int64(-300), int64(1), int64(0)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		_, err := svc.AdminAdjust(context.Background(), "ext-1", -300, "rule violation")
		ee := AsEconError(err)
		assert.NotNil(t, ee)
		assert.Equal(t, ErrInsufficientBalance, ee.Kind)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("zero delta is refused without touching storage", func(t *testing.T) {
		svc, mock, closeDB := newTestLedger(t)
		defer closeDB()

		_, err := svc.AdminAdjust(context.Background(), "ext-1", 0, "noop")
		ee := AsEconError(err)
		assert.NotNil(t, ee)
		assert.Equal(t, ErrAmountOutOfRange, ee.Kind)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown identity rolls back", func(t *testing.T) {
		svc, mock, closeDB := newTestLedger(t)
		defer closeDB()

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM accounts WHERE external_id = \\$1").
			WithArgs("ghost").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectQuery("SELECT (.+) FROM accounts WHERE LOWER\\(handle\\) = \\$1").
			WithArgs("ghost").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectRollback()

		_, err := svc.AdminAdjust(context.Background(), "ghost", 50, "prize")
		ee := AsEconError(err)
		assert.NotNil(t, ee)
		assert.Equal(t, ErrSenderUnknown, ee.Kind)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
