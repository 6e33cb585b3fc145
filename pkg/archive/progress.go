package archive

// ProgressFunc receives creation progress at chunk granularity: bytes read
// across the operation, the total to read, bytes read of the current file,
// its size, and its archive name. processed never decreases or exceeds total.
// It runs on the pipeline's critical path and must return quickly.
type ProgressFunc func(processed, total, fileProcessed, fileTotal uint64, name string)

// BytesProgressFunc receives extraction progress after each decoded block.
type BytesProgressFunc func(completed, total uint64)

// tracker aggregates creation progress. It is used from one goroutine.
type tracker struct {
	fn        ProgressFunc
	processed uint64
	total     uint64
	file      uint64
	fileTotal uint64
	name      string
	reported  bool
	last      uint64
}

func (t *tracker) begin(name string, size uint64) {
	t.name = name
	t.file = 0
	t.fileTotal = size

	if size == 0 {
		t.report()
	}
}

func (t *tracker) add(n int) {
	t.processed += uint64(n) //nolint:gosec // n is a non-negative read count
	t.file += uint64(n)      //nolint:gosec // n is a non-negative read count

	t.report()
}

func (t *tracker) report() {
	if t.fn == nil {
		return
	}

	t.last = min(t.processed, t.total)
	t.reported = true

	t.fn(t.last, t.total, t.file, t.fileTotal, t.name)
}

// done reports completion once unless the last report already reached total,
// so every successful run ends with processed == total.
func (t *tracker) done() {
	if t.reported && t.last == t.total {
		return
	}

	t.processed = t.total
	t.report()
}
