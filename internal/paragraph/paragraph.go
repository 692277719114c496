// Package paragraph splits text into analysis units separated by blank
// lines.
package paragraph

import (
	"github.com/kianmeng/textLSP/internal/text"
)

// At returns the paragraph of src containing offset. A paragraph starts
// after a blank line ("\n\n") or at the buffer start and ends with the line
// break before the next blank line, or at the buffer end. While the span is
// shorter than minLength it is extended into the following paragraphs.
func At(src string, offset, minLength int) (text.Interval, bool) {
	if offset < 0 || offset >= len(src) {
		return text.Interval{}, false
	}

	start := offset
	for !startsParagraph(src, start) {
		start--
	}

	// A blank line is a paragraph of its own.
	blank := start > 0 && src[start] == '\n' && src[start-1] == '\n'

	end := offset
	for {
		for !blank && !endsParagraph(src, end) {
			end++
		}
		if end+1-start >= minLength || end >= len(src)-1 {
			break
		}
		end++
		blank = false
	}
	return text.Interval{Start: start, Length: end + 1 - start}, true
}

// startsParagraph reports whether a paragraph may start at i.
func startsParagraph(src string, i int) bool {
	switch {
	case i == 0:
		return true
	case i == 1:
		return src[0] == '\n'
	case src[i-1] == '\n' && src[i-2] == '\n':
		return true
	}
	return src[i] == '\n' && src[i-1] == '\n'
}

// endsParagraph reports whether the byte at i closes a paragraph.
func endsParagraph(src string, i int) bool {
	if i >= len(src)-1 {
		return true
	}
	return src[i] == '\n' && src[i+1] == '\n'
}

// InRange collects the distinct paragraphs of src overlapping rng, sweeping
// from its start and jumping past each paragraph found.
func InRange(src string, conv *text.Converter, rng text.Range) []text.Interval {
	return InSpan(src, conv.OffsetAtClamped(rng.Start), conv.OffsetAtClamped(rng.End))
}

// InSpan is InRange over the offsets [start, end). An empty span still
// yields the paragraph at start.
func InSpan(src string, start, end int) []text.Interval {
	end = max(end, start+1)

	var out []text.Interval
	seen := make(map[text.Interval]struct{})
	for offset := start; offset < end; {
		p, ok := At(src, offset, 0)
		if !ok {
			break
		}
		if _, dup := seen[p]; !dup {
			seen[p] = struct{}{}
			out = append(out, p)
		}
		offset = p.End()
	}
	return out
}
