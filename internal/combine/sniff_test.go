package combine

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestSniffDelimiter_AllCandidates verifies that a file written purely with
// one supported delimiter sniffs back to that delimiter, for every
// candidate.
func TestSniffDelimiter_AllCandidates(t *testing.T) {
	t.Parallel()

	for _, delim := range sniffCandidates {
		delim := delim
		d := string(delim)
		t.Run(DelimName(delim), func(t *testing.T) {
			t.Parallel()

			var b strings.Builder
			b.WriteString(strings.Join([]string{"id", "name", "score", "note"}, d) + "\n")
			for i := 0; i < 20; i++ {
				b.WriteString(strings.Join([]string{
					fmt.Sprintf("%d", i), "n", "1.5", "ok",
				}, d) + "\n")
			}

			path := filepath.Join(t.TempDir(), "in.txt")
			if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
				t.Fatal(err)
			}

			got, err := SniffDelimiter(path, 50)
			if err != nil {
				t.Fatalf("SniffDelimiter: %v", err)
			}
			if got != delim {
				t.Fatalf("sniffed %q, want %q", got, delim)
			}
		})
	}
}

// TestSniffLines_DominantSplitWins verifies that a delimiter-like character
// appearing inside fields does not win as long as the true delimiter has a
// higher consistent field count.
func TestSniffLines_DominantSplitWins(t *testing.T) {
	t.Parallel()

	lines := []string{
		"id,name,note",
		"1,ann,a|b",
		"2,bo,c|d",
		"3,cy,e|f",
	}
	if got := sniffLines(lines); got != ',' {
		t.Fatalf("sniffed %q, want comma", got)
	}
}

// TestSniffLines_TieBreak verifies that on equal scores the earlier
// candidate in the fixed iteration order wins, since replacement happens
// only under strictly greater comparison.
func TestSniffLines_TieBreak(t *testing.T) {
	t.Parallel()

	// Comma and tab both split every line into 3 fields: identical scores.
	lines := []string{
		"a,b\tc x,y\tz",
		"1,2\t3 4,5\t6",
	}
	if got := sniffLines(lines); got != ',' {
		t.Fatalf("sniffed %q, want comma (tie-break)", got)
	}
}

// TestSniffLines_BlankSampleFallsBack verifies the documented best-effort
// floor: with nothing to score, the sniffer defaults to comma.
func TestSniffLines_BlankSampleFallsBack(t *testing.T) {
	t.Parallel()

	if got := sniffLines([]string{"", "   ", "\t"}); got != ',' {
		t.Fatalf("sniffed %q, want comma fallback", got)
	}
	if got := sniffLines(nil); got != ',' {
		t.Fatalf("sniffed %q, want comma fallback for empty sample", got)
	}
}

// TestScoreCandidate_ModePrefersFirstSeen verifies that equal-frequency
// field counts resolve to the one seen first in the sample.
func TestScoreCandidate_ModePrefersFirstSeen(t *testing.T) {
	t.Parallel()

	score, ok := scoreCandidate([]string{"a,b,c", "a,b"}, ',')
	if !ok {
		t.Fatal("expected a score")
	}
	if score.modeFreq != 1 || score.modeCount != 3 {
		t.Fatalf("unexpected score: %+v", score)
	}
}

// TestSniffScore_Ordering pins the lexicographic comparison.
func TestSniffScore_Ordering(t *testing.T) {
	t.Parallel()

	cases := []struct {
		a, b sniffScore
		want bool
	}{
		{sniffScore{2, 1}, sniffScore{1, 9}, true},  // frequency dominates
		{sniffScore{2, 3}, sniffScore{2, 2}, true},  // field count breaks ties
		{sniffScore{2, 2}, sniffScore{2, 2}, false}, // equal is not greater
		{sniffScore{1, 9}, sniffScore{2, 1}, false},
	}
	for _, c := range cases {
		if got := c.a.greater(c.b); got != c.want {
			t.Fatalf("%+v.greater(%+v) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

// TestSniffLines_TabFileWithBlankLines verifies blank lines in the sample
// are skipped rather than diluting the score.
func TestSniffLines_TabFileWithBlankLines(t *testing.T) {
	t.Parallel()

	lines := []string{"", "id\tname", "", "1\tann", "2\tbo", "   "}
	if got := sniffLines(lines); got != '\t' {
		t.Fatalf("sniffed %q, want tab", got)
	}
}
