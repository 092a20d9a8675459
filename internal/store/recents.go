package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"mars/internal/types"
)

var ErrRecentNotFound = errors.New("recent session not found")

var bucketRecentSessions = []byte("recent_sessions")

// RecentStore persists the sessions the user has opened so they can be
// reattached across client restarts.
type RecentStore interface {
	List(ctx context.Context) ([]*types.SessionRecord, error)
	Get(ctx context.Context, sessionID string) (*types.SessionRecord, bool, error)
	Upsert(ctx context.Context, record *types.SessionRecord) (*types.SessionRecord, error)
	Touch(ctx context.Context, sessionID string, openedAt time.Time) error
	Delete(ctx context.Context, sessionID string) error
	Close() error
}

type bboltRecentStore struct {
	db *bolt.DB
	mu sync.Mutex
}

// NewRecentStore opens (and if necessary creates) the recents database at
// path.
func NewRecentStore(path string) (RecentStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("recents db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketRecentSessions)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &bboltRecentStore{db: db}, nil
}

func (s *bboltRecentStore) List(ctx context.Context) ([]*types.SessionRecord, error) {
	out := make([]*types.SessionRecord, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRecentSessions)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var record types.SessionRecord
			if err := json.Unmarshal(v, &record); err != nil {
				return err
			}
			copyRecord := record
			out = append(out, &copyRecord)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastOpenedAt.After(out[j].LastOpenedAt)
	})
	return out, nil
}

func (s *bboltRecentStore) Get(ctx context.Context, sessionID string) (*types.SessionRecord, bool, error) {
	var (
		out *types.SessionRecord
		ok  bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRecentSessions)
		if b == nil {
			return nil
		}
		raw := b.Get([]byte(sessionID))
		if len(raw) == 0 {
			return nil
		}
		var record types.SessionRecord
		if err := json.Unmarshal(raw, &record); err != nil {
			return err
		}
		copyRecord := record
		out = &copyRecord
		ok = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, ok, nil
}

func (s *bboltRecentStore) Upsert(ctx context.Context, record *types.SessionRecord) (*types.SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if record == nil || record.Session == nil || strings.TrimSpace(record.Session.ID) == "" {
		return nil, errors.New("recent session requires a session id")
	}
	normalized := *record
	session := *record.Session
	normalized.Session = &session
	if normalized.LastOpenedAt.IsZero() {
		normalized.LastOpenedAt = time.Now().UTC()
	}
	raw, err := json.Marshal(&normalized)
	if err != nil {
		return nil, err
	}
	if err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRecentSessions)
		if b == nil {
			return errors.New("recent sessions bucket missing")
		}
		return b.Put([]byte(session.ID), raw)
	}); err != nil {
		return nil, err
	}
	copyRecord := normalized
	return &copyRecord, nil
}

// Touch bumps a known session's last-opened time without rewriting its
// metadata.
func (s *bboltRecentStore) Touch(ctx context.Context, sessionID string, openedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if openedAt.IsZero() {
		openedAt = time.Now().UTC()
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRecentSessions)
		if b == nil {
			return errors.New("recent sessions bucket missing")
		}
		key := []byte(sessionID)
		raw := b.Get(key)
		if len(raw) == 0 {
			return ErrRecentNotFound
		}
		var record types.SessionRecord
		if err := json.Unmarshal(raw, &record); err != nil {
			return err
		}
		record.LastOpenedAt = openedAt
		updated, err := json.Marshal(&record)
		if err != nil {
			return err
		}
		return b.Put(key, updated)
	})
}

func (s *bboltRecentStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRecentSessions)
		if b == nil {
			return errors.New("recent sessions bucket missing")
		}
		key := []byte(sessionID)
		if b.Get(key) == nil {
			return ErrRecentNotFound
		}
		return b.Delete(key)
	})
}

func (s *bboltRecentStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
