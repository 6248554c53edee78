package testsupport

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"lapse/internal/volume"
)

// FakeMounter satisfies volume.Mounter with a handle rooted at a local
// directory. Set Err to simulate an unreachable volume.
type FakeMounter struct {
	Dir      string
	Err      error
	Acquires int
	Releases int
}

// NewFakeMounter returns a mounter rooted at a fresh temp directory.
func NewFakeMounter(t testing.TB) *FakeMounter {
	t.Helper()
	return &FakeMounter{Dir: t.TempDir()}
}

// Acquire hands out a handle backed by the fake's directory.
func (f *FakeMounter) Acquire(ctx context.Context) (volume.Handle, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	f.Acquires++
	return &fakeHandle{m: f}, nil
}

type fakeHandle struct {
	m        *FakeMounter
	released bool
}

func (h *fakeHandle) Root() string { return h.m.Dir }

func (h *fakeHandle) BackupDir(date string) string {
	return filepath.Join(h.m.Dir, "backups", date)
}

func (h *fakeHandle) BackupRoot() string { return filepath.Join(h.m.Dir, "backups") }

func (h *fakeHandle) QuarantineDir() string { return filepath.Join(h.m.Dir, "quarantine") }

func (h *fakeHandle) CounterFile() string { return filepath.Join(h.m.Dir, "sequence.txt") }

func (h *fakeHandle) MontageDir() string { return filepath.Join(h.m.Dir, "montages") }

func (h *fakeHandle) Release() {
	if h.released {
		return
	}
	h.released = true
	h.m.Releases++
}

// FakeRemote satisfies rclone.Client with an in-memory object map keyed by
// full remote path. Error fields let tests fail individual operations.
type FakeRemote struct {
	mu      sync.Mutex
	Objects map[string][]byte

	CopyErr error
	ListErr error
	MD5Err  error
	CatErr  error

	// CorruptMD5 forces MD5 to return a wrong digest for matching paths.
	CorruptMD5 map[string]bool
	// DropAfterCopy makes CopyTo succeed without storing the object, so a
	// later listing will not see it.
	DropAfterCopy bool

	Copies []string
}

// NewFakeRemote returns an empty in-memory remote.
func NewFakeRemote() *FakeRemote {
	return &FakeRemote{
		Objects:    make(map[string][]byte),
		CorruptMD5: make(map[string]bool),
	}
}

// Seed stores an object at the given remote path.
func (f *FakeRemote) Seed(remotePath string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Objects[remotePath] = data
}

func (f *FakeRemote) CopyTo(ctx context.Context, src, remotePath string) error {
	if f.CopyErr != nil {
		return f.CopyErr
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Copies = append(f.Copies, remotePath)
	if !f.DropAfterCopy {
		f.Objects[remotePath] = data
	}
	return nil
}

func (f *FakeRemote) List(ctx context.Context, remoteDir string) ([]string, error) {
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	prefix := strings.TrimSuffix(remoteDir, "/") + "/"
	f.mu.Lock()
	defer f.mu.Unlock()
	var names []string
	for path := range f.Objects {
		if rest, ok := strings.CutPrefix(path, prefix); ok && !strings.Contains(rest, "/") {
			names = append(names, rest)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (f *FakeRemote) MD5(ctx context.Context, remotePath string) (string, error) {
	if f.MD5Err != nil {
		return "", f.MD5Err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.Objects[remotePath]
	if !ok {
		return "", errors.New("object not found: " + remotePath)
	}
	if f.CorruptMD5[remotePath] {
		return "00000000000000000000000000000000", nil
	}
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:]), nil
}

func (f *FakeRemote) Cat(ctx context.Context, remotePath string) ([]byte, error) {
	if f.CatErr != nil {
		return nil, f.CatErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.Objects[remotePath]
	if !ok {
		return nil, errors.New("object not found: " + remotePath)
	}
	return append([]byte(nil), data...), nil
}
