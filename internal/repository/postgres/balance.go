package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"vledger/internal/domain"
	"vledger/pkg/errors"
)

// BalanceRepository backs the currency ledger: the currency registry and one
// balance row per (account, currency).
type BalanceRepository struct {
	db *sqlx.DB
}

func NewBalanceRepository(db *sqlx.DB) *BalanceRepository {
	return &BalanceRepository{db: db}
}

func (r *BalanceRepository) RegisterCurrency(ctx context.Context, currency domain.Currency) (bool, error) {
	query := `INSERT INTO currencies (code, created_at) VALUES ($1, NOW()) ON CONFLICT (code) DO NOTHING`
	result, err := r.db.ExecContext(ctx, query, currency)
	if err != nil {
		return false, errors.Wrap(err, "failed to register currency")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to read register result")
	}
	return rows > 0, nil
}

func (r *BalanceRepository) IsRegistered(ctx context.Context, currency domain.Currency) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM currencies WHERE code = $1)`
	err := r.db.GetContext(ctx, &exists, query, currency)
	return exists, errors.Wrap(err, "failed to check currency registration")
}

func (r *BalanceRepository) ListCurrencies(ctx context.Context) ([]domain.Currency, error) {
	var currencies []domain.Currency
	query := `SELECT code FROM currencies ORDER BY code`
	err := r.db.SelectContext(ctx, &currencies, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list currencies")
	}
	return currencies, nil
}

func (r *BalanceRepository) GetBalance(ctx context.Context, accountID uuid.UUID, currency domain.Currency) (decimal.Decimal, error) {
	var amount decimal.Decimal
	query := `SELECT amount FROM currency_balances WHERE account_id = $1 AND currency = $2`
	err := r.db.GetContext(ctx, &amount, query, accountID, currency)
	if err != nil {
		if err == sql.ErrNoRows {
			return decimal.Zero, nil
		}
		return decimal.Zero, errors.Wrap(err, "failed to get balance")
	}
	return amount, nil
}

func (r *BalanceRepository) ListBalances(ctx context.Context, accountID uuid.UUID) ([]*domain.CurrencyBalance, error) {
	var balances []*domain.CurrencyBalance
	query := `SELECT * FROM currency_balances WHERE account_id = $1 ORDER BY currency`
	err := r.db.SelectContext(ctx, &balances, query, accountID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list balances")
	}
	return balances, nil
}

func (r *BalanceRepository) Credit(ctx context.Context, accountID uuid.UUID, currency domain.Currency, amount decimal.Decimal) error {
	return credit(ctx, r.db, accountID, currency, amount)
}

func (r *BalanceRepository) Debit(ctx context.Context, accountID uuid.UUID, currency domain.Currency, amount decimal.Decimal) error {
	return debit(ctx, r.db, accountID, currency, amount)
}

// Transfer applies the debit and credit in one transaction. Both balance rows
// are locked in account-id order before any update so opposing concurrent
// transfers between the same pair cannot deadlock.
func (r *BalanceRepository) Transfer(ctx context.Context, senderID, recipientID uuid.UUID, currency domain.Currency, amount decimal.Decimal) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := ensureBalanceRow(ctx, tx, recipientID, currency); err != nil {
			return err
		}
		if err := lockBalanceRows(ctx, tx, currency, senderID, recipientID); err != nil {
			return err
		}
		if err := debit(ctx, tx, senderID, currency, amount); err != nil {
			return err
		}
		return credit(ctx, tx, recipientID, currency, amount)
	})
}

// ConvertBalances swaps one account's holdings across two currencies in one
// transaction. A zero credit (flooring loss) still commits the debit.
func (r *BalanceRepository) ConvertBalances(ctx context.Context, accountID uuid.UUID, from, to domain.Currency, debitAmount, creditAmount decimal.Decimal) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := debit(ctx, tx, accountID, from, debitAmount); err != nil {
			return err
		}
		if creditAmount.IsZero() {
			return nil
		}
		return credit(ctx, tx, accountID, to, creditAmount)
	})
}

func (r *BalanceRepository) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "failed to commit transaction")
}

// execer covers both *sqlx.DB and *sqlx.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

func credit(ctx context.Context, db execer, accountID uuid.UUID, currency domain.Currency, amount decimal.Decimal) error {
	query := `
		INSERT INTO currency_balances (account_id, currency, amount, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (account_id, currency) DO UPDATE SET
			amount = currency_balances.amount + EXCLUDED.amount,
			updated_at = NOW()
	`
	_, err := db.ExecContext(ctx, query, accountID, currency, amount)
	return errors.Wrap(err, "failed to credit balance")
}

// debit guards the balance at the row: the update only matches when the
// current amount covers the debit, so a balance can never go negative.
func debit(ctx context.Context, db execer, accountID uuid.UUID, currency domain.Currency, amount decimal.Decimal) error {
	query := `
		UPDATE currency_balances SET
			amount = amount - $1,
			updated_at = NOW()
		WHERE account_id = $2 AND currency = $3 AND amount >= $1
	`
	result, err := db.ExecContext(ctx, query, amount, accountID, currency)
	if err != nil {
		return errors.Wrap(err, "failed to debit balance")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read debit result")
	}
	if rows == 0 {
		return errors.ErrInsufficientBalance
	}
	return nil
}

func ensureBalanceRow(ctx context.Context, db execer, accountID uuid.UUID, currency domain.Currency) error {
	query := `
		INSERT INTO currency_balances (account_id, currency, amount, updated_at)
		VALUES ($1, $2, 0, NOW())
		ON CONFLICT (account_id, currency) DO NOTHING
	`
	_, err := db.ExecContext(ctx, query, accountID, currency)
	return errors.Wrap(err, "failed to ensure balance row")
}

func lockBalanceRows(ctx context.Context, tx *sqlx.Tx, currency domain.Currency, accounts ...uuid.UUID) error {
	query := `
		SELECT account_id FROM currency_balances
		WHERE currency = $1 AND account_id = ANY($2)
		ORDER BY account_id
		FOR UPDATE
	`
	ids := make([]string, len(accounts))
	for i, id := range accounts {
		ids[i] = id.String()
	}
	var locked []uuid.UUID
	err := tx.SelectContext(ctx, &locked, query, currency, pq.Array(ids))
	return errors.Wrap(err, "failed to lock balance rows")
}
