package storage

import (
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/sitemap-scraper/pkg/log"
	"github.com/Sriram-PR/sitemap-scraper/pkg/utils"
)

const visitedKeyPrefix = "visited:" // Prefix for URL keys in DB

// BadgerStore implements VisitedStore on BadgerDB, for crawls whose visited
// set should not sit on the Go heap
type BadgerStore struct {
	db       *badger.DB
	log      *logrus.Entry
	dir      string       // Run-owned subdirectory of the state dir; empty when in-memory
	keyCount atomic.Int64 // Cached key count for O(1) Count
}

// NewBadgerStore opens a fresh Badger-backed visited set.
// An empty stateDir runs Badger fully in memory. Otherwise the database lives
// in a new "visited-*" subdirectory of stateDir, removed again on Close, so
// state never carries over between runs and nothing else in stateDir is touched.
func NewBadgerStore(stateDir string, logger *logrus.Entry) (*BadgerStore, error) {
	store := &BadgerStore{log: logger}
	badgerLogger := log.NewBadgerLogger(logger.WithField("component", "badgerdb"))

	var opts badger.Options
	if stateDir == "" {
		logger.Info("Initializing in-memory visited URL database")
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(stateDir, 0755); err != nil {
			return nil, fmt.Errorf("%w: cannot create state directory %s: %w", utils.ErrFilesystem, stateDir, err)
		}
		dir, err := os.MkdirTemp(stateDir, "visited-*")
		if err != nil {
			return nil, fmt.Errorf("%w: cannot create run directory in %s: %w", utils.ErrFilesystem, stateDir, err)
		}
		store.dir = dir
		logger.Infof("Initializing visited URL database at: %s", dir)
		opts = badger.DefaultOptions(dir)
	}
	opts = opts.
		WithLogger(badgerLogger).
		WithNumVersionsToKeep(1)

	db, err := badger.Open(opts)
	if err != nil {
		store.removeDir()
		return nil, fmt.Errorf("%w: failed to open badger database: %w", utils.ErrDatabase, err)
	}
	store.db = db
	return store, nil
}

// Dir returns the run-owned database directory, empty when in-memory
func (s *BadgerStore) Dir() string { return s.dir }

func (s *BadgerStore) removeDir() {
	if s.dir == "" {
		return
	}
	if err := os.RemoveAll(s.dir); err != nil {
		s.log.Warnf("Failed to remove state directory %s: %v", s.dir, err)
	}
}

const maxConflictRetries = 10

// dbUpdate wraps db.Update with a retry loop for BadgerDB transaction conflicts.
func (s *BadgerStore) dbUpdate(fn func(txn *badger.Txn) error) error {
	for i := range maxConflictRetries {
		err := s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		s.log.Debugf("BadgerDB transaction conflict (attempt %d/%d), retrying", i+1, maxConflictRetries)
	}
	return fmt.Errorf("%w: transaction conflict not resolved after %d retries", utils.ErrDatabase, maxConflictRetries)
}

// MarkVisited implements VisitedStore
func (s *BadgerStore) MarkVisited(key string) (bool, error) {
	if s.db == nil || s.db.IsClosed() {
		return false, fmt.Errorf("%w: visited DB not open", utils.ErrDatabase)
	}
	added := false
	dbKey := []byte(visitedKeyPrefix + key)

	err := s.dbUpdate(func(txn *badger.Txn) error {
		added = false
		_, errGet := txn.Get(dbKey)
		if errors.Is(errGet, badger.ErrKeyNotFound) {
			if errSet := txn.SetEntry(badger.NewEntry(dbKey, []byte{})); errSet != nil {
				return errSet
			}
			added = true
			return nil
		}
		return errGet // nil if the key exists
	})
	if err != nil {
		return false, fmt.Errorf("%w: marking key '%s': %w", utils.ErrDatabase, key, err)
	}
	if added {
		s.keyCount.Add(1)
	}
	return added, nil
}

// IsVisited implements VisitedStore
func (s *BadgerStore) IsVisited(key string) (bool, error) {
	if s.db == nil || s.db.IsClosed() {
		return false, fmt.Errorf("%w: visited DB not open", utils.ErrDatabase)
	}
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		_, errGet := txn.Get([]byte(visitedKeyPrefix + key))
		switch {
		case errGet == nil:
			found = true
			return nil
		case errors.Is(errGet, badger.ErrKeyNotFound):
			return nil
		default:
			return errGet
		}
	})
	if err != nil {
		return false, fmt.Errorf("%w: checking key '%s': %w", utils.ErrDatabase, key, err)
	}
	return found, nil
}

// Count implements VisitedStore
func (s *BadgerStore) Count() int {
	return int(s.keyCount.Load())
}

// Close implements VisitedStore. On-disk state is removed after closing.
func (s *BadgerStore) Close() error {
	if s.db == nil || s.db.IsClosed() {
		return nil
	}
	s.log.Debug("Closing visited DB...")
	if err := s.db.Close(); err != nil {
		s.log.Errorf("Error closing visited DB: %v", err)
		return fmt.Errorf("%w: closing visited DB: %w", utils.ErrDatabase, err)
	}
	s.removeDir()
	return nil
}
