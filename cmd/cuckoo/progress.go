package main

import (
	"io"
	"sync"

	"github.com/cheggaaa/pb/v3"
)

// progressBar renders download progress on a terminal. The bar starts with
// the first chunk so commands without a body never draw one.
type progressBar struct {
	mu  sync.Mutex
	out io.Writer
	bar *pb.ProgressBar
}

func newProgressBar(out io.Writer) *progressBar {
	return &progressBar{out: out}
}

// update matches client.ProgressFunc. total is -1 when the server sent no
// Content-Length.
func (p *progressBar) update(_ string, written, total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar == nil {
		p.bar = pb.New64(max(total, 0))
		p.bar.Set(pb.Bytes, true)
		p.bar.SetWriter(p.out)
		p.bar.Start()
	}
	if total > 0 {
		p.bar.SetTotal(total)
	}
	p.bar.SetCurrent(written)
}

// finish stops the bar, if one was drawn, and resets it for the next download.
func (p *progressBar) finish() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar != nil {
		p.bar.Finish()
		p.bar = nil
	}
}
