package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"media-catalog/internal/cache"
	"media-catalog/internal/catalog"
	"media-catalog/internal/filesystem"
	"media-catalog/internal/hasher"
	"media-catalog/internal/mediatypes"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testRoot      = "/srv/media"
	testBaseURL   = "http://cdn.example/"
	testIndexDir  = "index"
	testSnapshot  = "/srv/media/index/media_links.json"
	testCachePath = "/srv/media/index/scanner_cache.json"
)

var baseTime = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

// countingHasher wraps the MD5 hasher and counts calls. Paths listed in
// fail return a HashFailure.
type countingHasher struct {
	inner hasher.Hasher
	calls atomic.Int64

	mu   sync.Mutex
	fail map[string]bool
}

func (h *countingHasher) HashFile(path string) (string, error) {
	h.calls.Add(1)

	h.mu.Lock()
	failing := h.fail[path]
	h.mu.Unlock()
	if failing {
		return "", &hasher.HashFailure{Path: path, Err: errors.New("input/output error")}
	}
	return h.inner.HashFile(path)
}

func (h *countingHasher) failOn(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.fail == nil {
		h.fail = make(map[string]bool)
	}
	h.fail[path] = true
}

// renameFailFs refuses renames onto paths containing match.
type renameFailFs struct {
	afero.Fs
	match string
}

func (f renameFailFs) Rename(oldname, newname string) error {
	if strings.Contains(newname, f.match) {
		return errors.New("rename refused")
	}
	return f.Fs.Rename(oldname, newname)
}

// vanishingFs lists a file during the walk but fails a later Stat on it,
// like a file deleted mid-scan.
type vanishingFs struct {
	afero.Fs
	gone string
}

func (f vanishingFs) Stat(name string) (os.FileInfo, error) {
	if name == f.gone {
		return nil, &os.PathError{Op: "stat", Path: name, Err: os.ErrNotExist}
	}
	return f.Fs.Stat(name)
}

// LstatIfPossible is what afero.Walk uses, so the walk still sees the file.
func (f vanishingFs) LstatIfPossible(name string) (os.FileInfo, bool, error) {
	fi, err := f.Fs.Stat(name)
	return fi, false, err
}

type scanFixture struct {
	fs      afero.Fs
	scanner *Scanner
	hasher  *countingHasher
	store   *catalog.Store
}

func newFixture(t *testing.T, fsys afero.Fs) *scanFixture {
	t.Helper()
	return newFixtureWithCache(t, fsys, cache.New())
}

func newFixtureWithCache(t *testing.T, fsys afero.Fs, c *cache.Cache) *scanFixture {
	t.Helper()

	store := catalog.NewStore(fsys, testSnapshot)
	s := NewScanner(fsys, ScannerConfig{
		Root:      testRoot,
		BaseURL:   testBaseURL,
		IndexDir:  testIndexDir,
		CachePath: testCachePath,
		Workers:   4,
		Retry:     filesystem.DefaultRetryConfig(),
	}, c, store)

	h := &countingHasher{inner: hasher.NewMD5(fsys, filesystem.DefaultRetryConfig())}
	s.SetHasher(h)
	s.SetClock(func() time.Time { return baseTime })

	return &scanFixture{fs: fsys, scanner: s, hasher: h, store: store}
}

func writeFile(t *testing.T, fsys afero.Fs, rel string, size int, mtime time.Time) {
	t.Helper()
	writeContent(t, fsys, rel, bytes.Repeat([]byte("x"), size), mtime)
}

func writeContent(t *testing.T, fsys afero.Fs, rel string, content []byte, mtime time.Time) {
	t.Helper()
	path := testRoot + "/" + rel
	require.NoError(t, afero.WriteFile(fsys, path, content, 0o644))
	require.NoError(t, fsys.Chtimes(path, mtime, mtime))
}

func paths(snap *catalog.Snapshot) []string {
	out := make([]string, 0, len(snap.MediaFiles))
	for _, r := range snap.MediaFiles {
		out = append(out, r.Path)
	}
	return out
}

func TestScanEndToEnd(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "a.jpg", 500, baseTime)
	writeFile(t, fsys, "b.mp4", 2000, baseTime)

	f := newFixture(t, fsys)

	res, err := f.scanner.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Snapshot.TotalFiles)
	assert.Equal(t, int64(2500), res.Snapshot.TotalSize)
	assert.Equal(t, int64(2), res.Hashed)

	onDisk, err := f.store.Load()
	require.NoError(t, err)
	assert.Equal(t, 2, onDisk.TotalFiles)
	assert.Equal(t, int64(2500), onDisk.TotalSize)
	assert.Equal(t, catalog.Version, onDisk.Version)
	assert.Equal(t, catalog.FormatTimestamp(baseTime), onDisk.LastUpdated)

	require.NoError(t, fsys.Remove(testRoot+"/a.jpg"))

	res, err = f.scanner.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Snapshot.TotalFiles)
	assert.Equal(t, int64(2000), res.Snapshot.TotalSize)
	assert.Equal(t, 1, res.Evicted)

	_, ok := f.scanner.Cache().Get("a.jpg")
	assert.False(t, ok, "deleted file must be evicted from the cache")

	persisted, err := cache.Load(fsys, testCachePath)
	require.NoError(t, err)
	assert.Equal(t, []string{"b.mp4"}, persisted.Keys())
}

func TestScanRecordFields(t *testing.T) {
	fsys := afero.NewMemMapFs()
	png := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 32)...)
	writeContent(t, fsys, "sub dir/a b.png", png, baseTime)

	f := newFixture(t, fsys)
	res, err := f.scanner.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Snapshot.MediaFiles, 1)

	r := res.Snapshot.MediaFiles[0]
	digest, err := hasher.HashReader(bytes.NewReader(png))
	require.NoError(t, err)

	assert.Equal(t, "a b.png", r.Name)
	assert.Equal(t, "/sub dir/a b.png", r.Path)
	assert.Equal(t, "http://cdn.example/sub%20dir/a%20b.png", r.URL)
	assert.Equal(t, digest, r.Digest)
	assert.Equal(t, hasher.DeriveID("sub dir/a b.png", int64(len(png)), digest), r.ID)
	assert.Equal(t, int64(len(png)), r.Size)
	assert.Equal(t, "image/png", r.MimeType)
	assert.Equal(t, mediatypes.FileTypeImage, r.Type)
	assert.True(t, r.Modified.Equal(baseTime))
}

func TestScanIsIdempotent(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "a.jpg", 500, baseTime)
	writeFile(t, fsys, "music/c.mp3", 300, baseTime)

	f := newFixture(t, fsys)
	first, err := f.scanner.Scan(context.Background())
	require.NoError(t, err)

	// A fresh scanner reading the persisted cache behaves like a new process.
	loaded, err := cache.Load(fsys, testCachePath)
	require.NoError(t, err)
	g := newFixtureWithCache(t, fsys, loaded)
	g.scanner.SetClock(func() time.Time { return baseTime.Add(time.Hour) })

	second, err := g.scanner.Scan(context.Background())
	require.NoError(t, err)

	firstJSON, err := json.Marshal(first.Snapshot.MediaFiles)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second.Snapshot.MediaFiles)
	require.NoError(t, err)
	assert.JSONEq(t, string(firstJSON), string(secondJSON))
	assert.NotEqual(t, first.Snapshot.LastUpdated, second.Snapshot.LastUpdated)
}

func TestScanSkipsHashingUnchangedFiles(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "a.jpg", 500, baseTime)
	writeFile(t, fsys, "b.mp4", 2000, baseTime)
	writeFile(t, fsys, "deep/er/c.flac", 10, baseTime)

	f := newFixture(t, fsys)
	_, err := f.scanner.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), f.hasher.calls.Load())

	res, err := f.scanner.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), f.hasher.calls.Load(), "unchanged files must not be rehashed")
	assert.Equal(t, int64(3), res.CacheHits)
	assert.Equal(t, int64(0), res.Hashed)
}

func TestScanDetectsChanges(t *testing.T) {
	tests := []struct {
		name   string
		modify func(t *testing.T, fsys afero.Fs)
	}{
		{
			name: "size change",
			modify: func(t *testing.T, fsys afero.Fs) {
				writeFile(t, fsys, "a.jpg", 501, baseTime)
			},
		},
		{
			name: "mtime change with same size",
			modify: func(t *testing.T, fsys afero.Fs) {
				writeContent(t, fsys, "a.jpg", bytes.Repeat([]byte("y"), 500), baseTime.Add(time.Second))
			},
		},
		{
			name: "sub-second mtime change",
			modify: func(t *testing.T, fsys afero.Fs) {
				writeContent(t, fsys, "a.jpg", bytes.Repeat([]byte("y"), 500), baseTime.Add(time.Millisecond))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := afero.NewMemMapFs()
			writeFile(t, fsys, "a.jpg", 500, baseTime)

			f := newFixture(t, fsys)
			first, err := f.scanner.Scan(context.Background())
			require.NoError(t, err)

			tt.modify(t, fsys)

			second, err := f.scanner.Scan(context.Background())
			require.NoError(t, err)
			assert.Equal(t, int64(2), f.hasher.calls.Load())
			assert.NotEqual(t, first.Snapshot.MediaFiles[0].Digest, second.Snapshot.MediaFiles[0].Digest)
			assert.NotEqual(t, first.Snapshot.MediaFiles[0].ID, second.Snapshot.MediaFiles[0].ID)
		})
	}
}

func TestScanMissesEditWithSameFingerprint(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "a.jpg", 500, baseTime)

	f := newFixture(t, fsys)
	first, err := f.scanner.Scan(context.Background())
	require.NoError(t, err)

	// Same size, same mtime, different bytes.
	writeContent(t, fsys, "a.jpg", bytes.Repeat([]byte("z"), 500), baseTime)

	second, err := f.scanner.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), f.hasher.calls.Load())
	assert.Equal(t, first.Snapshot.MediaFiles[0].Digest, second.Snapshot.MediaFiles[0].Digest,
		"a stat fingerprint cannot see this edit")
}

func TestScanEligibilityAndExclusions(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "photo.JPG", 10, baseTime)
	writeFile(t, fsys, "notes.txt", 10, baseTime)
	writeFile(t, fsys, "noext", 10, baseTime)
	writeFile(t, fsys, ".hidden.jpg", 10, baseTime)
	writeFile(t, fsys, ".git/inside.jpg", 10, baseTime)
	writeFile(t, fsys, "index/own.jpg", 10, baseTime)
	writeFile(t, fsys, "albums/index/nested.jpg", 10, baseTime)
	writeFile(t, fsys, "albums/song.ogg", 10, baseTime)

	f := newFixture(t, fsys)
	res, err := f.scanner.Scan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"/albums/index/nested.jpg",
		"/albums/song.ogg",
		"/photo.JPG",
	}, paths(res.Snapshot))
	assert.Equal(t, int64(3), res.Eligible)

	_, ok := f.scanner.Cache().Get("notes.txt")
	assert.False(t, ok, "ineligible files never touch the cache")
}

func TestScanCustomAllowlist(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "a.jpg", 10, baseTime)
	writeFile(t, fsys, "b.heic", 10, baseTime)

	f := newFixture(t, fsys)
	f.scanner.SetClassifier(mediatypes.NewClassifier([]string{".HEIC"}))

	res, err := f.scanner.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"/b.heic"}, paths(res.Snapshot))
}

func TestScanSnifferDecidesType(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "clip.ogg", 10, baseTime)

	f := newFixture(t, fsys)
	f.scanner.SetSniffer(mediatypes.SnifferFunc(func([]byte) string { return "video/ogg" }))

	res, err := f.scanner.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Snapshot.MediaFiles, 1)
	assert.Equal(t, mediatypes.FileTypeVideo, res.Snapshot.MediaFiles[0].Type)
	assert.Equal(t, "video/ogg", res.Snapshot.MediaFiles[0].MimeType)
}

func TestScanHashFailureSkipsOnlyThatFile(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "good.jpg", 100, baseTime)
	writeFile(t, fsys, "bad.jpg", 200, baseTime)

	f := newFixture(t, fsys)
	f.hasher.failOn(testRoot + "/bad.jpg")

	res, err := f.scanner.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"/good.jpg"}, paths(res.Snapshot))
	assert.Equal(t, int64(1), res.HashFailures)
	assert.Equal(t, int64(0), res.ReadFailures)
	assert.Equal(t, int64(1), res.Failures())

	_, ok := f.scanner.Cache().Get("bad.jpg")
	assert.False(t, ok)
}

func TestScanHashFailureDropsPreviouslyCachedFile(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "a.jpg", 100, baseTime)

	f := newFixture(t, fsys)
	_, err := f.scanner.Scan(context.Background())
	require.NoError(t, err)

	writeFile(t, fsys, "a.jpg", 150, baseTime)
	f.hasher.failOn(testRoot + "/a.jpg")

	res, err := f.scanner.Scan(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Snapshot.MediaFiles)
	assert.Equal(t, 0, f.scanner.Cache().Len())
}

func TestScanReadFailureSkipsVanishedFile(t *testing.T) {
	base := afero.NewMemMapFs()
	writeFile(t, base, "stays.jpg", 100, baseTime)
	writeFile(t, base, "gone.jpg", 100, baseTime)

	f := newFixture(t, vanishingFs{Fs: base, gone: testRoot + "/gone.jpg"})

	res, err := f.scanner.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"/stays.jpg"}, paths(res.Snapshot))
	assert.Equal(t, int64(1), res.ReadFailures)
}

func TestScanSnapshotWriteFailureIsFatal(t *testing.T) {
	base := afero.NewMemMapFs()
	writeFile(t, base, "a.jpg", 100, baseTime)
	require.NoError(t, afero.WriteFile(base, testSnapshot, []byte(`{"previous":true}`), 0o644))

	f := newFixture(t, renameFailFs{Fs: base, match: "media_links"})

	res, err := f.scanner.Scan(context.Background())
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, catalog.IsSnapshotWriteError(err))

	got, err := afero.ReadFile(base, testSnapshot)
	require.NoError(t, err)
	assert.Equal(t, `{"previous":true}`, string(got), "previous snapshot must stay in place")

	exists, err := afero.Exists(base, testCachePath)
	require.NoError(t, err)
	assert.False(t, exists, "cache is not persisted after a failed snapshot write")
}

func TestScanCachePersistFailureIsNotFatal(t *testing.T) {
	base := afero.NewMemMapFs()
	writeFile(t, base, "a.jpg", 100, baseTime)

	f := newFixture(t, renameFailFs{Fs: base, match: "scanner_cache"})

	res, err := f.scanner.Scan(context.Background())
	require.NoError(t, err)
	require.Error(t, res.CachePersistErr)
	var persistErr *cache.PersistError
	assert.ErrorAs(t, res.CachePersistErr, &persistErr)

	snap, err := f.store.Load()
	require.NoError(t, err)
	assert.Equal(t, 1, snap.TotalFiles)
}

func TestScanStartsColdFromCorruptCache(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "a.jpg", 100, baseTime)
	require.NoError(t, afero.WriteFile(fsys, testCachePath, []byte("{not json"), 0o644))

	loaded, err := cache.Load(fsys, testCachePath)
	require.Error(t, err)
	assert.True(t, cache.IsCorrupt(err))

	f := newFixtureWithCache(t, fsys, loaded)
	res, err := f.scanner.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Hashed)

	repaired, err := cache.Load(fsys, testCachePath)
	require.NoError(t, err)
	assert.Equal(t, 1, repaired.Len())
}

func TestScanCancelledWritesNothing(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "a.jpg", 100, baseTime)

	c := cache.New()
	c.Store("old.jpg", cache.Fingerprint{Size: 1, MTime: 1}, catalog.FileRecord{Path: "/old.jpg"})
	f := newFixtureWithCache(t, fsys, c)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := f.scanner.Scan(ctx)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.Canceled)

	exists, err := afero.Exists(fsys, testSnapshot)
	require.NoError(t, err)
	assert.False(t, exists)

	_, ok := c.Get("old.jpg")
	assert.True(t, ok, "a cancelled scan evicts nothing")
}

func TestScanMissingRootFails(t *testing.T) {
	f := newFixture(t, afero.NewMemMapFs())

	_, err := f.scanner.Scan(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "media root")
}

func TestScanEmptyTree(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, fsys.MkdirAll(testRoot, 0o755))

	f := newFixture(t, fsys)
	res, err := f.scanner.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Snapshot.TotalFiles)

	data, err := afero.ReadFile(fsys, testSnapshot)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"media_files": []`)
}

func TestScanResultSortedByPath(t *testing.T) {
	fsys := afero.NewMemMapFs()
	for _, name := range []string{"z.jpg", "m/b.png", "a.gif", "m/a.png", "c.webp"} {
		writeFile(t, fsys, name, 5, baseTime)
	}

	f := newFixture(t, fsys)
	res, err := f.scanner.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"/a.gif", "/c.webp", "/m/a.png", "/m/b.png", "/z.jpg"}, paths(res.Snapshot))
	assert.Equal(t, int64(5), f.scanner.Processed())
}

func TestIsReadFailure(t *testing.T) {
	err := &ReadFailure{Path: "a.jpg", Op: "stat", Err: os.ErrNotExist}
	assert.True(t, IsReadFailure(err))
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Equal(t, "stat a.jpg: file does not exist", err.Error())
	assert.False(t, IsReadFailure(errors.New("other")))
}
