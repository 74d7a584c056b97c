package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"deepfake-guard/internal/model"
)

type repository interface {
	CreateUser(ctx context.Context, u model.UserRecord) error
	UpdateUser(ctx context.Context, u model.UserRecord) error
	UserByID(ctx context.Context, id string) (model.UserRecord, error)
	UserByEmail(ctx context.Context, email string) (model.UserRecord, error)
	UserByFederatedID(ctx context.Context, subject string) (model.UserRecord, error)
	PutToken(ctx context.Context, userID, token string) error
	UserIDForToken(ctx context.Context, token string) (string, error)
	InsertScan(ctx context.Context, scan model.ScanResult) error
	CountScans(ctx context.Context) (int, error)
	ScanByID(ctx context.Context, id string) (model.ScanResult, error)
	ScansByUser(ctx context.Context, userID string) ([]model.ScanResult, error)
	Close() error
}

func forEachBackend(t *testing.T, fn func(t *testing.T, repo repository)) {
	t.Run("memory", func(t *testing.T) {
		fn(t, New())
	})
	t.Run("sqlite", func(t *testing.T) {
		db, err := OpenSQLite(filepath.Join(t.TempDir(), "guard.db"))
		if err != nil {
			t.Fatalf("OpenSQLite: %v", err)
		}
		t.Cleanup(func() { _ = db.Close() })
		fn(t, db)
	})
}

func TestStore_UserUniqueness(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo repository) {
		ctx := context.Background()
		if err := repo.CreateUser(ctx, model.UserRecord{ID: "u1", Email: "a@x.io", Name: "A", CreatedAt: 1}); err != nil {
			t.Fatalf("CreateUser: %v", err)
		}
		err := repo.CreateUser(ctx, model.UserRecord{ID: "u2", Email: "a@x.io", Name: "B", CreatedAt: 2})
		if !errors.Is(err, model.ErrDuplicateEmail) {
			t.Fatalf("expected ErrDuplicateEmail, got %v", err)
		}

		got, err := repo.UserByEmail(ctx, "a@x.io")
		if err != nil {
			t.Fatalf("UserByEmail: %v", err)
		}
		if got.ID != "u1" || got.Name != "A" {
			t.Fatalf("unexpected user: %+v", got)
		}

		if _, err := repo.UserByID(ctx, "missing"); !errors.Is(err, model.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestStore_ConcurrentCreateSameEmail(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo repository) {
		ctx := context.Background()
		var wg sync.WaitGroup
		errs := make([]error, 8)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = repo.CreateUser(ctx, model.UserRecord{
					ID: "u" + string(rune('a'+i)), Email: "race@x.io", Name: "R", CreatedAt: 1,
				})
			}(i)
		}
		wg.Wait()

		ok := 0
		for _, err := range errs {
			if err == nil {
				ok++
			} else if !errors.Is(err, model.ErrDuplicateEmail) {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if ok != 1 {
			t.Fatalf("expected exactly one winner, got %d", ok)
		}
	})
}

func TestStore_FederatedLinking(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo repository) {
		ctx := context.Background()
		u := model.UserRecord{ID: "u1", Email: "a@x.io", Name: "A", CreatedAt: 1}
		if err := repo.CreateUser(ctx, u); err != nil {
			t.Fatalf("CreateUser: %v", err)
		}
		if _, err := repo.UserByFederatedID(ctx, "sub-1"); !errors.Is(err, model.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}

		u.FederatedID = "sub-1"
		u.Avatar = "https://example.com/a.png"
		if err := repo.UpdateUser(ctx, u); err != nil {
			t.Fatalf("UpdateUser: %v", err)
		}
		got, err := repo.UserByFederatedID(ctx, "sub-1")
		if err != nil {
			t.Fatalf("UserByFederatedID: %v", err)
		}
		if got.ID != "u1" || got.Avatar != u.Avatar {
			t.Fatalf("unexpected user: %+v", got)
		}

		if err := repo.UpdateUser(ctx, model.UserRecord{ID: "nobody", Email: "n@x.io"}); !errors.Is(err, model.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestStore_TokenReplacement(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo repository) {
		ctx := context.Background()
		if err := repo.CreateUser(ctx, model.UserRecord{ID: "u1", Email: "a@x.io", Name: "A", CreatedAt: 1}); err != nil {
			t.Fatalf("CreateUser: %v", err)
		}
		if err := repo.PutToken(ctx, "u1", "t1"); err != nil {
			t.Fatalf("PutToken: %v", err)
		}
		if err := repo.PutToken(ctx, "u1", "t2"); err != nil {
			t.Fatalf("PutToken: %v", err)
		}

		if _, err := repo.UserIDForToken(ctx, "t1"); !errors.Is(err, model.ErrNotFound) {
			t.Fatalf("expected old token dropped, got %v", err)
		}
		id, err := repo.UserIDForToken(ctx, "t2")
		if err != nil || id != "u1" {
			t.Fatalf("expected u1, got %q (%v)", id, err)
		}
	})
}

func TestStore_ScansNewestFirst(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo repository) {
		ctx := context.Background()
		base := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
		scans := []model.ScanResult{
			{ID: "s1", UserID: "u1", ContentType: model.ContentText, OriginalContent: "a", ScanDate: base.Add(-48 * time.Hour), ConfidenceScore: 10},
			{ID: "s2", UserID: "u1", ContentType: model.ContentImage, OriginalContent: "b", ScanDate: base, ConfidenceScore: 75, IsDeepfake: true,
				DetectedMarkers: []model.Marker{{Type: "blurry_areas", Description: "d", Severity: model.SeverityHigh, Location: &model.Region{X: 1, Y: 2, Width: 10, Height: 11}}}},
			{ID: "s3", UserID: "u2", ContentType: model.ContentAudio, OriginalContent: "c", ScanDate: base.Add(time.Hour), ConfidenceScore: 30},
		}
		for _, s := range scans {
			if err := repo.InsertScan(ctx, s); err != nil {
				t.Fatalf("InsertScan: %v", err)
			}
		}

		n, err := repo.CountScans(ctx)
		if err != nil || n != 3 {
			t.Fatalf("expected 3 scans, got %d (%v)", n, err)
		}

		list, err := repo.ScansByUser(ctx, "u1")
		if err != nil {
			t.Fatalf("ScansByUser: %v", err)
		}
		if len(list) != 2 || list[0].ID != "s2" || list[1].ID != "s1" {
			t.Fatalf("unexpected order: %+v", list)
		}
		loc := list[0].DetectedMarkers[0].Location
		if loc == nil || loc.Width != 10 {
			t.Fatalf("expected marker location preserved, got %+v", list[0].DetectedMarkers)
		}

		got, err := repo.ScanByID(ctx, "s3")
		if err != nil || got.UserID != "u2" {
			t.Fatalf("unexpected scan %+v (%v)", got, err)
		}
		if _, err := repo.ScanByID(ctx, "missing"); !errors.Is(err, model.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestMemory_ScanIsolation(t *testing.T) {
	s := New()
	ctx := context.Background()
	scan := model.ScanResult{ID: "s1", UserID: "u1", ContentType: model.ContentImage, ScanDate: time.Now(),
		DetectedMarkers: []model.Marker{{Type: "x", Location: &model.Region{X: 5}}}}
	if err := s.InsertScan(ctx, scan); err != nil {
		t.Fatalf("InsertScan: %v", err)
	}
	scan.DetectedMarkers[0].Location.X = 99

	got, err := s.ScanByID(ctx, "s1")
	if err != nil {
		t.Fatalf("ScanByID: %v", err)
	}
	if got.DetectedMarkers[0].Location.X != 5 {
		t.Fatalf("stored scan mutated through caller slice")
	}
}
