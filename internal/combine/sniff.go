package combine

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Delimiter sniffing is a best-effort heuristic, not a guarantee. It is
// reliable when sampled lines have a dominant, consistent split count for the
// true delimiter; a file whose fields are saturated with other candidate
// characters can still fool it.

// sniffScore ranks a candidate delimiter by the frequency of its modal field
// count, then by the field count itself. Compared lexicographically.
type sniffScore struct {
	modeFreq  int // how many sampled lines split into the modal field count
	modeCount int // the modal field count
}

func (s sniffScore) greater(o sniffScore) bool {
	if s.modeFreq != o.modeFreq {
		return s.modeFreq > o.modeFreq
	}
	return s.modeCount > o.modeCount
}

// SniffDelimiter infers the field delimiter of path from its first
// sampleRows lines.
func SniffDelimiter(path string, sampleRows int) (rune, error) {
	lines, err := readHeadLines(path, sampleRows)
	if err != nil {
		return 0, err
	}
	return sniffLines(lines), nil
}

// sniffLines folds the fixed candidate set into a single winner. A candidate
// replaces the incumbent only under strict score comparison, so on ties the
// earlier candidate in sniffCandidates wins.
func sniffLines(lines []string) rune {
	var (
		best      rune
		bestScore = sniffScore{modeFreq: -1, modeCount: -1}
	)
	for _, delim := range sniffCandidates {
		score, ok := scoreCandidate(lines, delim)
		if !ok {
			continue
		}
		if score.greater(bestScore) {
			best, bestScore = delim, score
		}
	}
	if best == 0 {
		return fallbackSniff(lines)
	}
	return best
}

// scoreCandidate builds the field-count frequency distribution of delim over
// the non-blank sampled lines. Frequencies tie-break toward the field count
// seen first, mirroring insertion order.
func scoreCandidate(lines []string, delim rune) (sniffScore, bool) {
	freq := make(map[int]int)
	var order []int

	for _, ln := range lines {
		ln = strings.TrimSpace(ln)
		if ln == "" {
			continue
		}
		n := strings.Count(ln, string(delim)) + 1
		if _, seen := freq[n]; !seen {
			order = append(order, n)
		}
		freq[n]++
	}
	if len(order) == 0 {
		return sniffScore{}, false
	}

	mode := order[0]
	for _, n := range order[1:] {
		if freq[n] > freq[mode] {
			mode = n
		}
	}
	return sniffScore{modeFreq: freq[mode], modeCount: mode}, true
}

// fallbackSniff handles samples where no candidate could be scored (every
// line blank). It counts raw candidate occurrences across the sample and
// picks the most frequent under strict comparison; failing that, comma.
// This is the documented best-effort floor of the heuristic.
func fallbackSniff(lines []string) rune {
	sample := strings.Join(lines, "\n")

	best := rune(0)
	bestN := 0
	for _, delim := range sniffCandidates {
		if n := strings.Count(sample, string(delim)); n > bestN {
			best, bestN = delim, n
		}
	}
	if best == 0 {
		return ','
	}
	return best
}

// readHeadLines returns up to n raw lines from the start of path. Blank
// lines are kept; scoring skips them so that the sample window matches what
// was actually read.
func readHeadLines(path string, n int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lines := make([]string, 0, n)
	for len(lines) < n && sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("sample %s: %w", path, err)
	}
	return lines, nil
}
