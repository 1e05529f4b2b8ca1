package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/foxzi/reachgate/internal/metrics"
	"github.com/foxzi/reachgate/internal/money"
)

var (
	bucketContacts = []byte("contacts")
	bucketPhones   = []byte("contacts_by_phone")
	bucketSegments = []byte("segments")
	bucketWallet   = []byte("wallet")

	keyBalance = []byte("balance")
	keyCredits = []byte("credits")
)

var (
	// ErrNotFound is returned when a record does not exist
	ErrNotFound = errors.New("not found")
	// ErrInvalidAmount is returned for non-positive top-ups
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrInvalidContact is returned for contacts that cannot be stored
	ErrInvalidContact = errors.New("invalid contact")
	// ErrWalletOverflow is returned when a top-up would exceed the largest amount
	ErrWalletOverflow = errors.New("wallet total out of range")
)

// WalletSeed is written to the wallet bucket the first time a store is created
type WalletSeed struct {
	Balance money.Amount
	Credits int
}

// Store keeps contacts, segments and the wallet in a single BoltDB file
type Store struct {
	db *bolt.DB
}

// Open opens or creates the database at path
func Open(path string, seed WalletSeed) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{
		Timeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketContacts, bucketPhones, bucketSegments} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}

		wallet := tx.Bucket(bucketWallet)
		if wallet != nil {
			return nil
		}
		wallet, err := tx.CreateBucket(bucketWallet)
		if err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketWallet, err)
		}
		if err := wallet.Put(keyBalance, encodeInt(seed.Balance.Cents())); err != nil {
			return err
		}
		return wallet.Put(keyCredits, encodeInt(int64(seed.Credits)))
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Stats returns record counts for the metrics collector
func (s *Store) Stats(ctx context.Context) (*metrics.StoreStats, error) {
	stats := &metrics.StoreStats{}
	err := s.db.View(func(tx *bolt.Tx) error {
		stats.Contacts = tx.Bucket(bucketContacts).Stats().KeyN
		stats.Segments = tx.Bucket(bucketSegments).Stats().KeyN
		return nil
	})
	return stats, err
}
