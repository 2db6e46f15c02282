package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "sysreport.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	collected := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	id, err := s.Save(ctx, "workstation-1", "Linux", collected, `{"hostname":"workstation-1"}`)
	if err != nil {
		t.Fatal(err)
	}
	if id == "" {
		t.Fatal("empty snapshot id")
	}

	rec, err := s.Get(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Hostname != "workstation-1" || rec.Platform != "Linux" {
		t.Fatalf("record = %+v", rec)
	}
	if !rec.CollectedAt.Equal(collected) {
		t.Fatalf("collected_at = %v", rec.CollectedAt)
	}
	if rec.ReportJSON == "" {
		t.Fatal("report body not stored")
	}
}

func TestLatestAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		if _, err := s.Save(ctx, "host-a", "Linux", base.AddDate(0, 0, i), "{}"); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.Save(ctx, "host-b", "Windows", base, "{}"); err != nil {
		t.Fatal(err)
	}

	latest, err := s.Latest(ctx, "host-a")
	if err != nil {
		t.Fatal(err)
	}
	if !latest.CollectedAt.Equal(base.AddDate(0, 0, 2)) {
		t.Fatalf("latest = %v", latest.CollectedAt)
	}

	records, err := s.List(ctx, ListFilter{Hostname: "host-a"})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records", len(records))
	}
	if records[0].ReportJSON != "" {
		t.Fatal("summaries must not carry the report body")
	}

	limited, err := s.List(ctx, ListFilter{Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 2 {
		t.Fatalf("limit ignored: %d records", len(limited))
	}
}

func TestDeleteMissing(t *testing.T) {
	s := newTestStore(t)
	err := s.Delete(context.Background(), "no-such-id")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("err = %v", err)
	}
}

func TestPurge(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Save(ctx, "host", "Linux", time.Now().UTC().AddDate(0, 0, -30), "{}"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Save(ctx, "host", "Linux", time.Now().UTC(), "{}"); err != nil {
		t.Fatal(err)
	}

	n, err := s.Purge(ctx, 7*24*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("purged %d rows, want 1", n)
	}

	records, err := s.List(ctx, ListFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("%d records remain", len(records))
	}
}
