package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
)

const chunkSize = 32 * 1024

var ErrNoContentLength = errors.New("response has no Content-Length")

// TransferProgress is the byte accounting of a single download.
type TransferProgress struct {
	Total   int64
	Written int64
	Elapsed time.Duration
}

func (p TransferProgress) Percent() float64 {
	if p.Total <= 0 {
		return 0
	}
	return float64(p.Written) / float64(p.Total) * 100
}

// ETA extrapolates the average rate so far. It is zero until the first byte
// arrives and once the transfer is complete.
func (p TransferProgress) ETA() time.Duration {
	if p.Written <= 0 || p.Written >= p.Total {
		return 0
	}
	remaining := p.Total - p.Written
	return time.Duration(float64(p.Elapsed) * float64(remaining) / float64(p.Written))
}

// ProgressReporter receives the progress of a download. Start is called once
// the total is known, Update after every chunk is written, and Done exactly
// once after Start.
type ProgressReporter interface {
	Start(total int64)
	Update(p TransferProgress)
	Done(ok bool)
}

type nopReporter struct{}

func (nopReporter) Start(int64)             {}
func (nopReporter) Update(TransferProgress) {}
func (nopReporter) Done(bool)               {}

type Downloader struct {
	client    *http.Client
	userAgent string
	logger    *zap.Logger
	progress  ProgressReporter
	now       func() time.Time
	create    func(name string) (io.WriteCloser, error)
}

func createFile(name string) (io.WriteCloser, error) {
	return os.Create(name)
}

func NewDownloader(client *http.Client, userAgent string, logger *zap.Logger, progress ProgressReporter) *Downloader {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if progress == nil {
		progress = nopReporter{}
	}
	return &Downloader{
		client:    client,
		userAgent: userAgent,
		logger:    logger,
		progress:  progress,
		now:       time.Now,
		create:    createFile,
	}
}

// Fetch streams url into dest. The file is only created once the response is
// known to be usable; after that, bytes written before a failure stay on disk.
func (d *Downloader) Fetch(ctx context.Context, url string, dest string) (err error) {
	req, err := newGetRequest(ctx, url, d.userAgent)
	if err != nil {
		return &FetchError{Kind: FailureConnectivity, URL: url, Err: err}
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return &FetchError{Kind: FailureConnectivity, URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return protocolError(url, resp)
	}
	if resp.ContentLength < 0 {
		return &FetchError{Kind: FailureProtocol, URL: url, Status: resp.StatusCode, Err: ErrNoContentLength}
	}

	f, err := d.create(dest)
	if err != nil {
		return &FetchError{Kind: FailureIO, URL: url, Err: fmt.Errorf("failed to create file: %w", err)}
	}

	progress := TransferProgress{Total: resp.ContentLength}
	started := d.now()
	d.progress.Start(progress.Total)
	// Registered first so it runs after the close and sees its error.
	defer func() {
		d.progress.Done(err == nil)
	}()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = &FetchError{Kind: FailureIO, URL: url, Err: fmt.Errorf("failed to close file: %w", cerr)}
		}
	}()

	buf := make([]byte, chunkSize)
	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := f.Write(buf[:n]); werr != nil {
				return &FetchError{Kind: FailureIO, URL: url, Err: fmt.Errorf("failed to write to file: %w", werr)}
			}
			progress.Written += int64(n)
			progress.Elapsed = d.now().Sub(started)
			d.progress.Update(progress)
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return &FetchError{Kind: FailureConnectivity, URL: url, Err: fmt.Errorf("error during file download: %w", rerr)}
		}
	}

	if progress.Written != progress.Total {
		return &FetchError{Kind: FailureProtocol, URL: url, Err: fmt.Errorf("download size mismatch: expected %d, got %d", progress.Total, progress.Written)}
	}
	return nil
}

// Download is Fetch collapsed to a boolean; the reason is logged.
func (d *Downloader) Download(ctx context.Context, url string, dest string) bool {
	d.logger.Debug("Downloading", zap.String("url", url), zap.String("dest", dest))
	if err := d.Fetch(ctx, url, dest); err != nil {
		fields := []zap.Field{zap.String("url", url), zap.String("dest", dest), zap.Error(err)}
		if kind, ok := FailureKindOf(err); ok {
			fields = append(fields, zap.Stringer("kind", kind))
		}
		d.logger.Error("Download failed", fields...)
		return false
	}
	return true
}
