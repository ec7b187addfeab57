package wallet_service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
)

const FreeCredits = 3 // стартовые кредиты нового лида

var ErrInsufficientCredits = errors.New("insufficient credits")
var ErrWalletNotFound = errors.New("there is no wallet for this user")

// WalletService — кредитный кошелёк поверх Postgres. Простая модель
// read-modify-write: одна строка на пользователя, списание защищено
// условием в UPDATE, отрицательный баланс невозможен.
type WalletService struct {
	db *sql.DB
}

func NewWalletService(storagePath string) (*WalletService, error) {
	db, err := sql.Open("postgres", storagePath)
	if err != nil {
		return nil, err
	}
	return &WalletService{db: db}, nil
}

// NewWalletForTesting подсовывает готовое соединение (sqlmock) в тестах.
func NewWalletForTesting(db *sql.DB) *WalletService {
	return &WalletService{db: db}
}

// InitWallet создаёт кошелёк с бесплатными кредитами; повторный вызов — no-op.
func (s *WalletService) InitWallet(ctx context.Context, waID string) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO wallets (wa_id, credits, created_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (wa_id) DO NOTHING
    `, waID, FreeCredits)
	if err != nil {
		return fmt.Errorf("init wallet: %w", err)
	}
	return nil
}

func (s *WalletService) Balance(ctx context.Context, waID string) (int, error) {
	var credits int

	err := s.db.QueryRowContext(ctx, `
        SELECT credits FROM wallets WHERE wa_id = $1
    `, waID).Scan(&credits)

	if err == sql.ErrNoRows {
		return 0, ErrWalletNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("wallet balance: %w", err)
	}
	return credits, nil
}

// Debit списывает n кредитов. Условие credits >= n прямо в UPDATE, чтобы два
// конкурентных списания не увели баланс в минус.
func (s *WalletService) Debit(ctx context.Context, waID string, n int) error {
	res, err := s.db.ExecContext(ctx, `
        UPDATE wallets
        SET credits = credits - $1
        WHERE wa_id = $2
          AND credits >= $1
    `, n, waID)
	if err != nil {
		return fmt.Errorf("wallet debit: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("wallet debit rows: %w", err)
	}
	if rows == 0 {
		// либо кошелька нет, либо кредитов не хватило — различаем отдельным SELECT
		if _, err := s.Balance(ctx, waID); err != nil {
			return err
		}
		return ErrInsufficientCredits
	}
	return nil
}

// Credit зачисляет n кредитов (оплата или ручное пополнение через админку).
func (s *WalletService) Credit(ctx context.Context, waID string, n int) error {
	res, err := s.db.ExecContext(ctx, `
        UPDATE wallets
        SET credits = credits + $1
        WHERE wa_id = $2
    `, n, waID)
	if err != nil {
		return fmt.Errorf("wallet credit: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("wallet credit rows: %w", err)
	}
	if rows == 0 {
		return ErrWalletNotFound
	}
	return nil
}
