package changes

import "slices"

// Run is a stretch of the tracked text. A negative Length marks a deletion:
// the run covers -Length bytes ending where text was removed.
type Run struct {
	Length  int
	Changed bool
}

// Span returns the number of bytes the run covers.
func (r Run) Span() int {
	if r.Length < 0 {
		return -r.Length
	}
	return r.Length
}

// ledger partitions the tracked text into runs, in order.
type ledger []Run

func (l ledger) span() int {
	n := 0
	for _, r := range l {
		n += r.Span()
	}
	return n
}

// split makes offset a run boundary and returns the index of the run that
// starts there, or len(l) when offset is at or past the end.
func (l *ledger) split(offset int) int {
	pos := 0
	for i, r := range *l {
		if pos == offset {
			return i
		}
		n := r.Span()
		if offset < pos+n {
			head := offset - pos
			sign := 1
			if r.Length < 0 {
				sign = -1
			}
			l.replace(i, i+1,
				Run{Length: sign * head, Changed: r.Changed},
				Run{Length: sign * (n - head), Changed: r.Changed},
			)
			return i + 1
		}
		pos += n
	}
	return len(*l)
}

// replace swaps runs [i, j) for runs.
func (l *ledger) replace(i, j int, runs ...Run) {
	*l = slices.Replace(*l, i, j, runs...)
}

// merge joins neighbours with the same flag and drops empty unchanged runs.
// Empty changed runs stay: they mark a deletion with nothing left around it.
func (l *ledger) merge() {
	out := (*l)[:0]
	for _, r := range *l {
		if !r.Changed && r.Length == 0 {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Changed == r.Changed {
			prev := out[n-1]
			span := prev.Span() + r.Span()
			if prev.Length < 0 || r.Length < 0 {
				span = -span
			}
			out[n-1].Length = span
			continue
		}
		out = append(out, r)
	}
	*l = out
}

// apply records that the r bytes at offset were replaced by k bytes.
//
// Growing edits leave a changed run over the inserted text. Shrinking edits
// leave a deletion run over the inserted text plus up to r-k bytes taken
// from the unchanged run before it, so the removed amount stays visible
// while the runs still add up to the new length.
func (l *ledger) apply(offset, r, k int) {
	total := l.span()
	start := min(max(offset, 0), total)
	end := min(max(offset+r, start), total)
	r = end - start

	i := l.split(start)
	j := l.split(end)
	if k >= r {
		l.replace(i, j, Run{Length: k, Changed: true})
		l.merge()
		return
	}

	d := 0
	if i > 0 && !(*l)[i-1].Changed {
		d = min(r-k, (*l)[i-1].Length)
		(*l)[i-1].Length -= d
	}
	l.replace(i, j, Run{Length: -(d + k), Changed: true})
	l.merge()
}
