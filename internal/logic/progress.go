package logic

import (
	"fmt"
	"io"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/idelchi/volpack/pkg/archive"
)

// progressStep is the percentage between two printed progress lines.
const progressStep = 5

// meter prints a progress line each time another progressStep percent is done.
type meter struct {
	mu   sync.Mutex
	w    io.Writer
	verb string
	last int
}

func newMeter(w io.Writer, verb string) *meter {
	return &meter{w: w, verb: verb, last: -progressStep}
}

func (m *meter) update(done, total uint64, name string) {
	percent := 100
	if total > 0 {
		percent = int(done * 100 / total)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if percent < m.last+progressStep && percent != 100 || percent == m.last {
		return
	}

	m.last = percent

	line := fmt.Sprintf("%s %3d%% %s / %s", m.verb, percent, humanize.IBytes(done), humanize.IBytes(total))
	if name != "" {
		line += " " + name
	}

	fmt.Fprintln(m.w, line)
}

func (e Env) createProgress() archive.ProgressFunc {
	if e.Cfg.Quiet {
		return nil
	}

	m := newMeter(e.Stderr, "Compressing")

	return func(processed, total, _, _ uint64, name string) {
		m.update(processed, total, name)
	}
}

func (e Env) extractProgress(verb string) archive.BytesProgressFunc {
	if e.Cfg.Quiet {
		return nil
	}

	m := newMeter(e.Stderr, verb)

	return func(completed, total uint64) {
		m.update(completed, total, "")
	}
}
