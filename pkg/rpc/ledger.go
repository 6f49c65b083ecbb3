package rpc

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

var bucketRequests = []byte("requests")

// Ledger records request uids that have already been dispatched, so
// at-least-once mailbox delivery never re-executes a handler.
type Ledger struct {
	db *bolt.DB
}

// OpenLedger opens (creating if needed) the dedup database in dir.
func OpenLedger(dir string) (*Ledger, error) {
	dbPath := filepath.Join(dir, "rpc.db")
	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open rpc ledger: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketRequests)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create ledger bucket: %w", err)
	}
	return &Ledger{db: db}, nil
}

// Close closes the database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// MarkSeen records uid and reports whether it was new. A false return
// means the request was already dispatched and must be skipped.
func (l *Ledger) MarkSeen(uid uuid.UUID) (bool, error) {
	var isNew bool
	err := l.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRequests)
		key := uid[:]
		if b.Get(key) != nil {
			return nil
		}
		isNew = true
		return b.Put(key, []byte(time.Now().UTC().Format(time.RFC3339)))
	})
	if err != nil {
		return false, fmt.Errorf("failed to update ledger: %w", err)
	}
	return isNew, nil
}
