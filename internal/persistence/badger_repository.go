package persistence

import (
	"bot-arena-go/internal/session"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v3"
)

var sessionKey = []byte("arena_session")

// badgerRepository keeps the session as a single JSON value in BadgerDB.
type badgerRepository struct {
	db *badger.DB
}

// NewBadgerRepository opens (or creates) the database at dbPath.
func NewBadgerRepository(dbPath string) (SessionRepository, error) {
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", dbPath, err)
	}
	return &badgerRepository{db: db}, nil
}

func (r *badgerRepository) SaveSession(s *session.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(sessionKey, data)
	})
}

func (r *badgerRepository) LoadSession() (*session.Session, error) {
	var s session.Session
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(sessionKey)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) == 0 {
				return errors.New("stored session is empty")
			}
			return json.Unmarshal(val, &s)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return &s, nil
}

func (r *badgerRepository) Close() error {
	return r.db.Close()
}
