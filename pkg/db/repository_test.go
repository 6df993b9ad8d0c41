package db

import (
	"path/filepath"
	"testing"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestRepository_CreateAndGet(t *testing.T) {
	repo := newTestRepo(t)

	s := &Session{
		SessionKey:  "session-1",
		DevicePath:  "/dev/sdb",
		ImagePath:   "/home/user/os.iso",
		ImageSource: "local",
		Status:      StatusWriting,
	}
	if err := repo.Create(s); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	if s.ID == 0 {
		t.Fatal("expected assigned session id")
	}

	got, err := repo.GetByKey("session-1")
	if err != nil {
		t.Fatalf("failed to get session: %v", err)
	}
	if got == nil {
		t.Fatal("session not found")
	}
	if got.DevicePath != s.DevicePath || got.ImagePath != s.ImagePath || got.Status != StatusWriting {
		t.Errorf("retrieved session mismatch: got %+v, want %+v", got, s)
	}
}

func TestRepository_GetMissing(t *testing.T) {
	repo := newTestRepo(t)

	got, err := repo.GetByKey("no-such-session")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing session, got %+v", got)
	}
}

func TestRepository_UpdateStatus(t *testing.T) {
	repo := newTestRepo(t)

	s := &Session{
		SessionKey:  "session-2",
		DevicePath:  "/dev/sdb",
		ImagePath:   "/home/user/os.iso",
		ImageSource: "http",
		Status:      StatusWriting,
	}
	if err := repo.Create(s); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	if err := repo.UpdateStatus(s.ID, StatusFailed, "block copy failed"); err != nil {
		t.Fatalf("failed to update status: %v", err)
	}

	got, _ := repo.GetByKey("session-2")
	if got.Status != StatusFailed || got.ErrorMessage != "block copy failed" {
		t.Errorf("status not updated: got %+v", got)
	}
}

func TestRepository_UpdateStatusMissing(t *testing.T) {
	repo := newTestRepo(t)

	if err := repo.UpdateStatus(999, StatusSuccess, ""); err == nil {
		t.Fatal("expected error updating missing session")
	}
}

func TestRepository_List(t *testing.T) {
	repo := newTestRepo(t)

	repo.Create(&Session{SessionKey: "a", DevicePath: "/dev/sdb", ImagePath: "/a.iso", ImageSource: "local", Status: StatusSuccess})
	repo.Create(&Session{SessionKey: "b", DevicePath: "/dev/sdc", ImagePath: "/b.iso", ImageSource: "s3", SHA256: "abc", Status: StatusFailed})

	sessions, err := repo.List()
	if err != nil {
		t.Fatalf("failed to list sessions: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
}
