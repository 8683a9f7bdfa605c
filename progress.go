package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/vbauerster/mpb/v7"
	"github.com/vbauerster/mpb/v7/decor"
)

// ProgressBar renders download progress on the console. Elapsed time,
// percentage and ETA come from the TransferProgress the downloader reports.
type ProgressBar struct {
	out  io.Writer
	name string
	p    *mpb.Progress
	bar  *mpb.Bar

	mu   sync.Mutex
	last TransferProgress
}

func NewProgressBar(out io.Writer, name string) *ProgressBar {
	return &ProgressBar{out: out, name: name}
}

func (b *ProgressBar) Start(total int64) {
	b.setLast(TransferProgress{Total: total})
	b.p = mpb.New(
		mpb.WithOutput(b.out),
		mpb.WithWidth(40),
		mpb.WithRefreshRate(180*time.Millisecond),
	)
	b.bar = b.p.AddBar(total,
		mpb.PrependDecorators(
			decor.Name(b.name, decor.WC{W: len(b.name) + 1, C: decor.DidentRight}),
			decor.Any(b.elapsed, decor.WC{W: 6}),
		),
		mpb.AppendDecorators(
			decor.CountersKibiByte("% .2f / % .2f"),
			decor.Any(b.percent, decor.WC{W: 8}),
			decor.OnComplete(decor.Any(b.eta), "done"),
		),
	)
}

func (b *ProgressBar) Update(p TransferProgress) {
	if b.bar == nil {
		return
	}
	b.setLast(p)
	b.bar.SetCurrent(p.Written)
}

func (b *ProgressBar) Done(ok bool) {
	if b.bar == nil {
		return
	}
	if ok {
		// Marks the bar complete even for an empty body.
		b.bar.SetTotal(-1, true)
	} else {
		b.bar.Abort(false)
	}
	b.p.Wait()
	b.p, b.bar = nil, nil
}

// Last returns the most recent progress seen by the bar.
func (b *ProgressBar) Last() TransferProgress {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last
}

func (b *ProgressBar) setLast(p TransferProgress) {
	b.mu.Lock()
	b.last = p
	b.mu.Unlock()
}

func (b *ProgressBar) elapsed(decor.Statistics) string {
	return b.Last().Elapsed.Round(time.Second).String()
}

func (b *ProgressBar) percent(decor.Statistics) string {
	return fmt.Sprintf("%.1f%%", b.Last().Percent())
}

func (b *ProgressBar) eta(decor.Statistics) string {
	return "ETA " + b.Last().ETA().Round(time.Second).String()
}
