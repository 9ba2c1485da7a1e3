package grid

// scanBlock is the base block size of the hierarchical prefix scan.
// Each level scans blocks of scanBlock<<1 elements, and two auxiliary
// levels bound the supported cell count at scanBlock**3.
const scanBlock = 512

// Runner executes fn for every index in [0, n), possibly concurrently.
// The blocked scan uses it to fan block work out to a worker pool; the
// sequential backend passes Serial.
type Runner func(n int, fn func(i int))

// Serial runs fn for each index in order on the calling goroutine.
func Serial(n int, fn func(i int)) {
	for i := 0; i < n; i++ {
		fn(i)
	}
}

// ScanSerial computes the exclusive prefix sum of the cell counts in a
// single pass. Reference implementation for the sequential backend.
func (g *Grid) ScanSerial() {
	sum := int32(0)
	for c, cnt := range g.Counts {
		g.Offsets[c] = sum
		sum += cnt
	}
	g.Offsets[len(g.Counts)] = sum
}

// ScanBlocked computes the same exclusive prefix sum hierarchically:
// block-local scans, a scan of the per-block totals (itself blocked),
// a serial scan of the second-level totals, then fix-up passes adding
// the scanned totals back down. Produces offsets identical to
// ScanSerial; only the schedule differs.
func (g *Grid) ScanBlocked(run Runner) {
	if run == nil {
		run = Serial
	}
	bs := scanBlock << 1
	n1 := len(g.Counts)
	n2 := len(g.aux1)
	n3 := len(g.aux2)

	// level 1: scan within each block, collect block totals
	run(n2, func(b int) {
		lo := b * bs
		hi := lo + bs
		if hi > n1 {
			hi = n1
		}
		sum := int32(0)
		for c := lo; c < hi; c++ {
			g.Offsets[c] = sum
			sum += g.Counts[c]
		}
		g.aux1[b] = sum
	})

	// level 2: scan the block totals, again in blocks
	run(n3, func(b int) {
		lo := b * bs
		hi := lo + bs
		if hi > n2 {
			hi = n2
		}
		sum := int32(0)
		for c := lo; c < hi; c++ {
			g.scan1[c] = sum
			sum += g.aux1[c]
		}
		g.aux2[b] = sum
	})

	// level 3: small enough for a single serial pass (bounded at NewGrid)
	sum := int32(0)
	for c := 0; c < n3; c++ {
		g.scan2[c] = sum
		sum += g.aux2[c]
	}
	total := sum

	// fix-up level 2 with level 3 results
	run(n3, func(b int) {
		add := g.scan2[b]
		if add == 0 {
			return
		}
		lo := b * bs
		hi := lo + bs
		if hi > n2 {
			hi = n2
		}
		for c := lo; c < hi; c++ {
			g.scan1[c] += add
		}
	})

	// fix-up level 1 with level 2 results
	run(n2, func(b int) {
		add := g.scan1[b]
		if add == 0 {
			return
		}
		lo := b * bs
		hi := lo + bs
		if hi > n1 {
			hi = n1
		}
		for c := lo; c < hi; c++ {
			g.Offsets[c] += add
		}
	})

	g.Offsets[n1] = total
}
