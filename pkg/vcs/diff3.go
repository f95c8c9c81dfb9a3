package vcs

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

const (
	markerOurs   = "<<<<<<< "
	markerSep    = "=======\n"
	markerTheirs = ">>>>>>> "
)

// hunk replaces base lines [start, end) with lines.
type hunk struct {
	start, end int
	lines      []string
}

// splitLines splits text into lines, each keeping its trailing newline.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.SplitAfter(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// lineHunks returns the edits turning base into other, in base order.
func lineHunks(base, other string) []hunk {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0

	a, b, lineArray := dmp.DiffLinesToRunes(base, other)
	diffs := dmp.DiffCharsToLines(dmp.DiffMainRunes(a, b, false), lineArray)

	var (
		hunks []hunk
		cur   *hunk
		pos   int
	)
	flush := func() {
		if cur != nil {
			hunks = append(hunks, *cur)
			cur = nil
		}
	}

	for _, d := range diffs {
		lines := splitLines(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			flush()
			pos += len(lines)
		case diffmatchpatch.DiffDelete:
			if cur == nil {
				cur = &hunk{start: pos, end: pos}
			}
			pos += len(lines)
			cur.end = pos
		case diffmatchpatch.DiffInsert:
			if cur == nil {
				cur = &hunk{start: pos, end: pos}
			}
			cur.lines = append(cur.lines, lines...)
		}
	}
	flush()
	return hunks
}

// overlaps reports whether h touches the base range [start, end). Two
// insertions at the same point overlap.
func overlaps(h hunk, start, end int) bool {
	return h.start < end && start < h.end || h.start == start || (h.start == h.end && h.start == end && start == end)
}

// applyHunks rewrites base[start:end] with hs, which must lie inside the range.
func applyHunks(base []string, start, end int, hs []hunk) []string {
	var out []string
	p := start
	for _, h := range hs {
		out = append(out, base[p:h.start]...)
		out = append(out, h.lines...)
		p = h.end
	}
	return append(out, base[p:end]...)
}

// merge3 merges ours and theirs line by line against base. Regions changed
// identically on both sides are taken once; regions changed differently are
// emitted between conflict markers and reported through conflict.
func merge3(base, ours, theirs, oursLabel, theirsLabel string) (merged string, conflict bool) {
	baseLines := splitLines(base)
	oh := lineHunks(base, ours)
	th := lineHunks(base, theirs)

	var (
		out  []string
		pos  int
		i, j int
	)

	for i < len(oh) || j < len(th) {
		// Seed the region with the earliest hunk from either side.
		var start, end int
		switch {
		case j >= len(th) || (i < len(oh) && oh[i].start <= th[j].start):
			start, end = oh[i].start, oh[i].end
		default:
			start, end = th[j].start, th[j].end
		}

		// Grow the region until no hunk from either side touches it.
		oi, tj := i, j
		for {
			grown := false
			for oi < len(oh) && overlaps(oh[oi], start, end) {
				if oh[oi].end > end {
					end = oh[oi].end
				}
				oi++
				grown = true
			}
			for tj < len(th) && overlaps(th[tj], start, end) {
				if th[tj].end > end {
					end = th[tj].end
				}
				tj++
				grown = true
			}
			if !grown {
				break
			}
		}

		out = append(out, baseLines[pos:start]...)
		oursPart, theirsPart := oh[i:oi], th[j:tj]

		switch {
		case len(theirsPart) == 0:
			out = append(out, applyHunks(baseLines, start, end, oursPart)...)
		case len(oursPart) == 0:
			out = append(out, applyHunks(baseLines, start, end, theirsPart)...)
		default:
			oursText := applyHunks(baseLines, start, end, oursPart)
			theirsText := applyHunks(baseLines, start, end, theirsPart)
			if strings.Join(oursText, "") == strings.Join(theirsText, "") {
				out = append(out, oursText...)
				break
			}
			conflict = true
			out = append(out, markerOurs+oursLabel+"\n")
			out = append(out, terminated(oursText)...)
			out = append(out, markerSep)
			out = append(out, terminated(theirsText)...)
			out = append(out, markerTheirs+theirsLabel+"\n")
		}

		pos, i, j = end, oi, tj
	}

	out = append(out, baseLines[pos:]...)
	return strings.Join(out, ""), conflict
}

// terminated makes sure the last line ends in a newline so a marker can follow.
func terminated(lines []string) []string {
	if len(lines) == 0 || strings.HasSuffix(lines[len(lines)-1], "\n") {
		return lines
	}
	out := append([]string(nil), lines...)
	out[len(out)-1] += "\n"
	return out
}
