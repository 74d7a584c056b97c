package session

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileStorage_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")

	fs, err := OpenFileStorage(path, nil)
	if err != nil {
		t.Fatalf("OpenFileStorage: %v", err)
	}
	if err := fs.Set(KeyUser, `{"id":"u1"}`); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := fs.Set(KeyToken, "tok"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("expected mode 0600, got %o", perm)
	}

	reopened, err := OpenFileStorage(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if v, ok := reopened.Get(KeyToken); !ok || v != "tok" {
		t.Fatalf("expected token to survive reopen, got %q (%v)", v, ok)
	}

	if err := reopened.Delete(KeyUser, KeyToken); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	again, err := OpenFileStorage(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if _, ok := again.Get(KeyUser); ok {
		t.Fatalf("expected user to be deleted")
	}
}

func TestFileStorage_CorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{garbage"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	fs, err := OpenFileStorage(path, nil)
	if err != nil {
		t.Fatalf("OpenFileStorage: %v", err)
	}
	if _, ok := fs.Get(KeyUser); ok {
		t.Fatalf("expected empty storage")
	}

	st := NewController(nil, fs, Options{}).Restore()
	if st.Status != StatusAnonymous {
		t.Fatalf("expected anonymous, got %s", st.Status)
	}
}

func TestFileStorage_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	fs, err := OpenFileStorage(filepath.Join(dir, "session.json"), nil)
	if err != nil {
		t.Fatalf("OpenFileStorage: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := fs.Set(KeyToken, "t"); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the session file, got %d entries", len(entries))
	}
}

func TestFileStorage_FailedWriteKeepsEntries(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sub")
	fs, err := OpenFileStorage(filepath.Join(dir, "session.json"), nil)
	if err != nil {
		t.Fatalf("OpenFileStorage: %v", err)
	}
	if err := fs.SetAll(map[string]string{KeyUser: "alice", KeyToken: "tok-a"}); err != nil {
		t.Fatalf("SetAll: %v", err)
	}

	// a regular file where the directory was makes every write fail
	if err := os.RemoveAll(dir); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := os.WriteFile(dir, nil, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := fs.SetAll(map[string]string{KeyUser: "bob", KeyToken: "tok-b"}); err == nil {
		t.Fatalf("expected SetAll to fail")
	}
	if v, _ := fs.Get(KeyUser); v != "alice" {
		t.Fatalf("expected user alice after failed write, got %q", v)
	}
	if v, _ := fs.Get(KeyToken); v != "tok-a" {
		t.Fatalf("expected token tok-a after failed write, got %q", v)
	}
}
