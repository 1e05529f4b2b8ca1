package store

import (
	"context"
	"fmt"
	"math"
	"strconv"

	bolt "go.etcd.io/bbolt"

	"github.com/foxzi/reachgate/internal/money"
)

// Balance returns the wallet balance
func (s *Store) Balance(ctx context.Context) (money.Amount, error) {
	var cents int64
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		cents, err = decodeInt(tx.Bucket(bucketWallet).Get(keyBalance))
		return err
	})
	if err != nil {
		return money.Zero, fmt.Errorf("failed to read balance: %w", err)
	}
	return money.FromCents(cents), nil
}

// TopUp adds amount to the wallet and returns the new balance
func (s *Store) TopUp(ctx context.Context, amount money.Amount) (money.Amount, error) {
	if amount.Cmp(money.Zero) <= 0 {
		return money.Zero, ErrInvalidAmount
	}

	var balance money.Amount
	err := s.db.Update(func(tx *bolt.Tx) error {
		wallet := tx.Bucket(bucketWallet)
		cents, err := decodeInt(wallet.Get(keyBalance))
		if err != nil {
			return err
		}
		sum, ok := money.FromCents(cents).AddChecked(amount)
		if !ok {
			return ErrWalletOverflow
		}
		balance = sum
		return wallet.Put(keyBalance, encodeInt(balance.Cents()))
	})
	if err != nil {
		return money.Zero, fmt.Errorf("failed to top up wallet: %w", err)
	}
	return balance, nil
}

// Credits returns the remaining reboost credits
func (s *Store) Credits(ctx context.Context) (int, error) {
	var credits int64
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		credits, err = decodeInt(tx.Bucket(bucketWallet).Get(keyCredits))
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to read credits: %w", err)
	}
	return int(credits), nil
}

// AddCredits adds n reboost credits and returns the new total
func (s *Store) AddCredits(ctx context.Context, n int) (int, error) {
	if n <= 0 {
		return 0, ErrInvalidAmount
	}

	var total int64
	err := s.db.Update(func(tx *bolt.Tx) error {
		wallet := tx.Bucket(bucketWallet)
		cur, err := decodeInt(wallet.Get(keyCredits))
		if err != nil {
			return err
		}
		if cur > int64(math.MaxInt)-int64(n) {
			return ErrWalletOverflow
		}
		total = cur + int64(n)
		return wallet.Put(keyCredits, encodeInt(total))
	})
	if err != nil {
		return 0, fmt.Errorf("failed to add credits: %w", err)
	}
	return int(total), nil
}

func encodeInt(v int64) []byte {
	return []byte(strconv.FormatInt(v, 10))
}

func decodeInt(b []byte) (int64, error) {
	if b == nil {
		return 0, nil
	}
	v, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt wallet value %q: %w", b, err)
	}
	return v, nil
}
