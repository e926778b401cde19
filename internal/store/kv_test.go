package store

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"festgrid/internal/database"
	"festgrid/internal/dataset"
	"festgrid/internal/model"
)

func setupKVTestDB(t *testing.T) *KVStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewKVStore(db)
}

func TestKVSetGet(t *testing.T) {
	s := setupKVTestDB(t)

	if _, err := s.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get missing: err = %v, want ErrNotFound", err)
	}
	if err := s.Set("k", "one"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Set("k", "two"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err := s.Get("k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "two" {
		t.Errorf("value = %q, want %q", got, "two")
	}
	if err := s.Delete("k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get("k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("after delete: err = %v", err)
	}
}

func TestFavoritesRoundTrip(t *testing.T) {
	s := setupKVTestDB(t)

	if got := s.LoadFavorites(); got.Len() != 0 {
		t.Fatalf("fresh favorites = %v", got.IDs())
	}

	if err := s.SaveFavorites(model.NewFavorites("p3", "p1")); err != nil {
		t.Fatalf("save: %v", err)
	}
	raw, err := s.Get(KeyFavorites)
	if err != nil {
		t.Fatalf("get raw: %v", err)
	}
	if raw != `["p1","p3"]` {
		t.Errorf("stored = %s", raw)
	}

	got := s.LoadFavorites()
	if !reflect.DeepEqual(got.IDs(), []string{"p1", "p3"}) {
		t.Errorf("loaded = %v", got.IDs())
	}
}

func TestCorruptFavoritesDefaultToEmpty(t *testing.T) {
	s := setupKVTestDB(t)
	if err := s.Set(KeyFavorites, `{not json`); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got := s.LoadFavorites(); got.Len() != 0 {
		t.Errorf("favorites = %v, want empty", got.IDs())
	}
}

func TestPerformanceOverride(t *testing.T) {
	s := setupKVTestDB(t)
	ds, err := dataset.Default("2025-03-29", 2, time.UTC)
	if err != nil {
		t.Fatalf("dataset: %v", err)
	}

	if raw := s.LoadPerformances(); raw != nil {
		t.Fatalf("fresh override = %s", raw)
	}

	custom := []model.Performance{{
		ID: "x1", Name: "Custom", StageID: ds.Stages[0].ID,
		Date: "2025-03-29", StartTime: "12:00", EndTime: "12:30",
	}}
	if err := s.SavePerformances(custom); err != nil {
		t.Fatalf("save: %v", err)
	}
	got := ds.Override(s.LoadPerformances())
	if len(got.Performances) != 1 || got.Performances[0].ID != "x1" {
		t.Errorf("override = %+v", got.Performances)
	}

	if err := s.Set(KeyPerformances, `{"id":"x"}`); err != nil {
		t.Fatalf("set: %v", err)
	}
	got = ds.Override(s.LoadPerformances())
	if len(got.Performances) != len(ds.Performances) {
		t.Errorf("corrupt override replaced embedded list: %d performances", len(got.Performances))
	}
}
