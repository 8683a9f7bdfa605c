package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vbauerster/mpb/v7/decor"
	"go.uber.org/zap/zaptest"
)

func TestDownloadWritesChunksInOrder(t *testing.T) {
	chunks := makeChunks(4096, 4096, 1337)
	body := &chunkBody{chunks: chunks, failAt: -1}
	reporter := &recordingReporter{}
	dest := filepath.Join(t.TempDir(), ServerJarName)

	d := NewDownloader(chunkClient(body, 9529), "", zaptest.NewLogger(t), reporter)
	require.True(t, d.Download(context.Background(), "http://example.test/server.jar", dest))

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, bytes.Join(chunks, nil), got)
	assert.Len(t, got, 9529)
	assert.True(t, body.closed)

	assert.Equal(t, []int64{9529}, reporter.started)
	require.Len(t, reporter.updates, 3)
	assert.Equal(t, int64(4096), reporter.updates[0].Written)
	assert.Equal(t, int64(8192), reporter.updates[1].Written)
	assert.Equal(t, int64(9529), reporter.updates[2].Written)
	for _, u := range reporter.updates {
		assert.Equal(t, int64(9529), u.Total)
	}
	assert.Equal(t, []bool{true}, reporter.done)
}

func TestDownloadFailsMidStream(t *testing.T) {
	chunks := makeChunks(4096, 4096, 1337)
	body := &chunkBody{chunks: chunks, failAt: 1, err: errors.New("connection reset by peer")}
	reporter := &recordingReporter{}
	dest := filepath.Join(t.TempDir(), ServerJarName)

	d := NewDownloader(chunkClient(body, 9529), "", zaptest.NewLogger(t), reporter)
	err := d.Fetch(context.Background(), "http://example.test/server.jar", dest)
	require.Error(t, err)
	kind, _ := FailureKindOf(err)
	assert.Equal(t, FailureConnectivity, kind)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, chunks[0], got, "only the first chunk reached the file")
	assert.Equal(t, []bool{false}, reporter.done)

	body = &chunkBody{chunks: chunks, failAt: 1, err: errors.New("connection reset by peer")}
	d = NewDownloader(chunkClient(body, 9529), "", zaptest.NewLogger(t), nil)
	assert.False(t, d.Download(context.Background(), "http://example.test/server.jar", dest))
}

func TestDownloadRequiresContentLength(t *testing.T) {
	dir := t.TempDir()
	reporter := &recordingReporter{}

	dest := filepath.Join(dir, ServerJarName)
	body := &chunkBody{chunks: makeChunks(10), failAt: -1}
	d := NewDownloader(chunkClient(body, -1), "", zaptest.NewLogger(t), reporter)

	err := d.Fetch(context.Background(), "http://example.test/server.jar", dest)
	assert.ErrorIs(t, err, ErrNoContentLength)
	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr), "no file may be created")
	assert.Empty(t, reporter.started)
	assert.Empty(t, reporter.done)

	require.NoError(t, os.WriteFile(dest, []byte("previous jar"), 0644))
	body = &chunkBody{chunks: makeChunks(10), failAt: -1}
	d = NewDownloader(chunkClient(body, -1), "", zaptest.NewLogger(t), reporter)
	assert.False(t, d.Download(context.Background(), "http://example.test/server.jar", dest))

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "previous jar", string(got), "existing file must not be truncated")
}

func TestDownloadHTTPErrorCreatesNoFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"Build not found."}`))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), ServerJarName)
	d := NewDownloader(srv.Client(), "", zaptest.NewLogger(t), nil)

	err := d.Fetch(context.Background(), srv.URL+"/server.jar", dest)
	require.Error(t, err)
	kind, _ := FailureKindOf(err)
	assert.Equal(t, FailureProtocol, kind)
	assert.ErrorContains(t, err, "Build not found.")

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
}

func TestDownloadConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL + "/server.jar"
	srv.Close()

	dest := filepath.Join(t.TempDir(), ServerJarName)
	d := NewDownloader(nil, "", zaptest.NewLogger(t), nil)
	assert.False(t, d.Download(context.Background(), url, dest))

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
}

func TestDownloadMissingDirectory(t *testing.T) {
	body := &chunkBody{chunks: makeChunks(10), failAt: -1}
	d := NewDownloader(chunkClient(body, 10), "", zaptest.NewLogger(t), nil)

	err := d.Fetch(context.Background(), "http://example.test/server.jar", filepath.Join(t.TempDir(), "missing", ServerJarName))
	kind, _ := FailureKindOf(err)
	assert.Equal(t, FailureIO, kind)
}

type failingCloseFile struct {
	bytes.Buffer
}

func (f *failingCloseFile) Close() error {
	return errors.New("no space left on device")
}

func TestDownloadCloseFailureReportsFailure(t *testing.T) {
	body := &chunkBody{chunks: makeChunks(10), failAt: -1}
	reporter := &recordingReporter{}
	file := &failingCloseFile{}

	d := NewDownloader(chunkClient(body, 10), "", zaptest.NewLogger(t), reporter)
	d.create = func(name string) (io.WriteCloser, error) { return file, nil }

	err := d.Fetch(context.Background(), "http://example.test/server.jar", ServerJarName)
	kind, _ := FailureKindOf(err)
	assert.Equal(t, FailureIO, kind)
	assert.ErrorContains(t, err, "no space left on device")
	assert.Equal(t, 10, file.Len())
	assert.Equal(t, []bool{false}, reporter.done)
}

func TestDownloadShortBody(t *testing.T) {
	body := &chunkBody{chunks: makeChunks(100), failAt: -1}
	d := NewDownloader(chunkClient(body, 200), "", zaptest.NewLogger(t), nil)

	err := d.Fetch(context.Background(), "http://example.test/server.jar", filepath.Join(t.TempDir(), ServerJarName))
	assert.ErrorContains(t, err, "size mismatch")
}

func TestDownloadOverHTTP(t *testing.T) {
	payload := bytes.Repeat([]byte("vizir"), 20000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "server.jar", time.Time{}, bytes.NewReader(payload))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), ServerJarName)
	reporter := &recordingReporter{}
	d := NewDownloader(srv.Client(), "", zaptest.NewLogger(t), reporter)
	require.True(t, d.Download(context.Background(), srv.URL+"/server.jar", dest))

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
	require.NotEmpty(t, reporter.updates)
	assert.Equal(t, int64(len(payload)), reporter.updates[len(reporter.updates)-1].Written)
}

func TestTransferProgress(t *testing.T) {
	p := TransferProgress{Total: 1000, Written: 250, Elapsed: 10 * time.Second}
	assert.InDelta(t, 25.0, p.Percent(), 0.001)
	assert.Equal(t, 30*time.Second, p.ETA())

	assert.Zero(t, TransferProgress{Total: 1000}.ETA())
	assert.Zero(t, TransferProgress{Total: 1000, Written: 1000, Elapsed: time.Second}.ETA())
	assert.Zero(t, TransferProgress{}.Percent())
}

func TestProgressBarLifecycle(t *testing.T) {
	var out bytes.Buffer
	bar := NewProgressBar(&out, ServerJarName)

	bar.Start(9529)
	bar.Update(TransferProgress{Total: 9529, Written: 4096})
	bar.Update(TransferProgress{Total: 9529, Written: 9529})
	bar.Done(true)
	assert.Equal(t, int64(9529), bar.Last().Written)

	bar.Start(100)
	bar.Update(TransferProgress{Total: 100, Written: 10})
	bar.Done(false)

	bar.Start(1000)
	bar.Update(TransferProgress{Total: 1000, Written: 250, Elapsed: 10 * time.Second})
	assert.Equal(t, "10s", bar.elapsed(decor.Statistics{}))
	assert.Equal(t, "25.0%", bar.percent(decor.Statistics{}))
	assert.Equal(t, "ETA 30s", bar.eta(decor.Statistics{}))
	bar.Done(false)

	// Done without Start is a no-op.
	NewProgressBar(&out, ServerJarName).Done(true)
	assert.Contains(t, out.String(), ServerJarName)
}
