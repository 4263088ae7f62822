package download

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"posterpress/internal/models"
)

type fakeCounts struct {
	count    int64
	getErr   error
	setErr   error
	setCalls []int64
}

func (f *fakeCounts) DownloadCount(_ context.Context, _ int64) (int64, error) {
	if f.getErr != nil {
		return 0, f.getErr
	}
	return f.count, nil
}

func (f *fakeCounts) SetDownloadCount(_ context.Context, id int64, count int64) (*models.Poster, error) {
	if f.setErr != nil {
		return nil, f.setErr
	}
	f.setCalls = append(f.setCalls, count)
	f.count = count
	return &models.Poster{ID: id, Title: "Diwali", DownloadCount: count}, nil
}

type fakePatcher struct {
	patches []models.Poster
}

func (f *fakePatcher) Patch(p models.Poster) { f.patches = append(f.patches, p) }

func assetServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// TestDownloadSuccess: count 3 becomes exactly 4 in the store and the
// catalog, and the asset bytes reach the writer.
func TestDownloadSuccess(t *testing.T) {
	srv := assetServer(t, http.StatusOK, "poster-bytes")
	counts := &fakeCounts{count: 3}
	patcher := &fakePatcher{}
	d := New(counts, patcher, srv.Client())

	var buf bytes.Buffer
	if err := d.Download(context.Background(), 1, srv.URL, &buf); err != nil {
		t.Fatalf("Download: %v", err)
	}

	if len(counts.setCalls) != 1 || counts.setCalls[0] != 4 {
		t.Errorf("set calls = %v, want [4]", counts.setCalls)
	}
	if len(patcher.patches) != 1 || patcher.patches[0].DownloadCount != 4 {
		t.Errorf("patches = %+v, want one with count 4", patcher.patches)
	}
	if buf.String() != "poster-bytes" {
		t.Errorf("body = %q", buf.String())
	}
	if d.CooldownRemaining(1) <= 0 {
		t.Error("cooldown not held after successful download")
	}
}

// TestDownloadCooldownHoldsAfterSuccess: a completed download keeps the
// poster locked, so an immediate second request is refused and does not
// touch the counter again. The lock lapses once the window passes.
func TestDownloadCooldownHoldsAfterSuccess(t *testing.T) {
	srv := assetServer(t, http.StatusOK, "poster-bytes")
	counts := &fakeCounts{count: 3}
	d := New(counts, &fakePatcher{}, srv.Client())

	var buf bytes.Buffer
	if err := d.Download(context.Background(), 1, srv.URL, &buf); err != nil {
		t.Fatalf("first Download: %v", err)
	}

	buf.Reset()
	err := d.Download(context.Background(), 1, srv.URL, &buf)
	var cerr *CooldownError
	if !errors.As(err, &cerr) {
		t.Fatalf("second Download err = %v, want CooldownError", err)
	}
	if cerr.Remaining <= 0 || cerr.Remaining > DefaultCooldown {
		t.Errorf("remaining = %v", cerr.Remaining)
	}
	if buf.Len() != 0 {
		t.Error("bytes written despite active cooldown")
	}
	if got := counts.setCalls; len(got) != 1 || got[0] != 4 {
		t.Errorf("set calls = %v, want [4]", got)
	}

	// After the window passes the poster is downloadable again.
	d.now = func() time.Time { return time.Now().Add(DefaultCooldown + time.Second) }
	buf.Reset()
	if err := d.Download(context.Background(), 1, srv.URL, &buf); err != nil {
		t.Errorf("download after window: %v", err)
	}
	if got := counts.setCalls; len(got) != 2 || got[1] != 5 {
		t.Errorf("set calls = %v, want [4 5]", got)
	}
}

// TestDownloadCountFetchFailure: the save is gated on the counter, so a
// failed count fetch writes nothing and patches nothing.
func TestDownloadCountFetchFailure(t *testing.T) {
	srv := assetServer(t, http.StatusOK, "poster-bytes")
	counts := &fakeCounts{count: 3, getErr: errors.New("backend down")}
	patcher := &fakePatcher{}
	d := New(counts, patcher, srv.Client())

	var buf bytes.Buffer
	err := d.Download(context.Background(), 1, srv.URL, &buf)
	if err == nil || !strings.Contains(err.Error(), "backend down") {
		t.Fatalf("err = %v", err)
	}
	if buf.Len() != 0 {
		t.Error("bytes written despite counter failure")
	}
	if len(patcher.patches) != 0 {
		t.Error("catalog patched despite counter failure")
	}
	if d.CooldownRemaining(1) != 0 {
		t.Error("cooldown not cleared on failure")
	}
}

func TestDownloadCountUpdateFailure(t *testing.T) {
	srv := assetServer(t, http.StatusOK, "poster-bytes")
	counts := &fakeCounts{count: 3, setErr: errors.New("write refused")}
	patcher := &fakePatcher{}
	d := New(counts, patcher, srv.Client())

	var buf bytes.Buffer
	if err := d.Download(context.Background(), 1, srv.URL, &buf); err == nil {
		t.Fatal("expected error")
	}
	if buf.Len() != 0 || len(patcher.patches) != 0 {
		t.Error("save or patch happened despite failed count update")
	}
	if counts.count != 3 {
		t.Errorf("count = %d, want 3", counts.count)
	}
}

// TestDownloadFetchFailure: a non-200 asset response is ErrFetchFailed
// and writes nothing.
func TestDownloadFetchFailure(t *testing.T) {
	srv := assetServer(t, http.StatusNotFound, "gone")
	counts := &fakeCounts{count: 3}
	d := New(counts, &fakePatcher{}, srv.Client())

	var buf bytes.Buffer
	err := d.Download(context.Background(), 1, srv.URL, &buf)
	if !errors.Is(err, ErrFetchFailed) {
		t.Fatalf("err = %v, want ErrFetchFailed", err)
	}
	if buf.Len() != 0 {
		t.Error("bytes written despite fetch failure")
	}
}

func TestDownloadCooldownBlocks(t *testing.T) {
	srv := assetServer(t, http.StatusOK, "x")
	d := New(&fakeCounts{}, &fakePatcher{}, srv.Client())

	if _, ok := d.beginCooldown(1); !ok {
		t.Fatal("first cooldown refused")
	}

	var buf bytes.Buffer
	err := d.Download(context.Background(), 1, srv.URL, &buf)
	var cerr *CooldownError
	if !errors.As(err, &cerr) {
		t.Fatalf("err = %v, want CooldownError", err)
	}
	if cerr.Remaining <= 0 || cerr.Remaining > DefaultCooldown {
		t.Errorf("remaining = %v", cerr.Remaining)
	}

	// Other posters are not locked by poster 1's cooldown.
	if err := d.Download(context.Background(), 2, srv.URL, &buf); err != nil {
		t.Errorf("unrelated poster blocked: %v", err)
	}

	// After the lock expires the poster is downloadable again.
	d.now = func() time.Time { return time.Now().Add(DefaultCooldown + time.Second) }
	buf.Reset()
	if err := d.Download(context.Background(), 1, srv.URL, &buf); err != nil {
		t.Errorf("expired cooldown still blocking: %v", err)
	}
}

func TestCooldownRemaining(t *testing.T) {
	d := New(&fakeCounts{}, nil, nil)

	if d.CooldownRemaining(1) != 0 {
		t.Error("idle poster reports cooldown")
	}
	d.beginCooldown(1)
	if r := d.CooldownRemaining(1); r <= 0 || r > DefaultCooldown {
		t.Errorf("remaining = %v", r)
	}
	d.clearCooldown(1)
	if d.CooldownRemaining(1) != 0 {
		t.Error("cleared poster reports cooldown")
	}
}
