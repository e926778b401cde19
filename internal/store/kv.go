// Package store persists favorites and imported performances as JSON blobs
// in a SQLite key-value table.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	appLog "festgrid/internal/log"
	"festgrid/internal/model"
)

// Persisted keys.
const (
	KeyFavorites    = "festivalFavorites"
	KeyPerformances = "festivalPerformances"
)

// ErrNotFound is returned by Get for a missing key.
var ErrNotFound = errors.New("store: key not found")

type KVStore struct {
	db *sql.DB
}

func NewKVStore(db *sql.DB) *KVStore {
	return &KVStore{db: db}
}

func (s *KVStore) Get(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("get %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get %q: %w", key, err)
	}
	return value, nil
}

func (s *KVStore) Set(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

func (s *KVStore) Delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

// LoadFavorites returns the saved favorites. A missing or corrupt entry is
// logged and yields an empty set.
func (s *KVStore) LoadFavorites() *model.Favorites {
	raw, err := s.Get(KeyFavorites)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			appLog.Error("load favorites failed", err)
		}
		return model.NewFavorites()
	}
	favs := model.NewFavorites()
	if err := json.Unmarshal([]byte(raw), favs); err != nil {
		appLog.Error("ignoring corrupt favorites", err, "key", KeyFavorites)
		return model.NewFavorites()
	}
	return favs
}

func (s *KVStore) SaveFavorites(favs *model.Favorites) error {
	data, err := json.Marshal(favs)
	if err != nil {
		return fmt.Errorf("encode favorites: %w", err)
	}
	return s.Set(KeyFavorites, string(data))
}

// LoadPerformances returns the raw saved performance override, or nil.
// Decoding and validation belong to the dataset package.
func (s *KVStore) LoadPerformances() []byte {
	raw, err := s.Get(KeyPerformances)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			appLog.Error("load performances failed", err)
		}
		return nil
	}
	return []byte(raw)
}

func (s *KVStore) SavePerformances(perfs []model.Performance) error {
	data, err := json.Marshal(perfs)
	if err != nil {
		return fmt.Errorf("encode performances: %w", err)
	}
	return s.Set(KeyPerformances, string(data))
}
