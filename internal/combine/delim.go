// Package combine implements the core combination engine: input discovery,
// delimiter sniffing, header reconciliation, optional delimiter
// normalization, and the streaming multi-file merge.
package combine

import (
	"fmt"
	"sort"
	"strings"
)

// Supported delimiters are named, not arbitrary. The sniff candidate set is
// exactly this set, in this order; the order is the sniffer's tie-break.
var sniffCandidates = []rune{',', '\t', ';', '|'}

var delimByName = map[string]rune{
	"comma":     ',',
	"tab":       '\t',
	"semicolon": ';',
	"pipe":      '|',
}

// ParseDelim maps a delimiter name (comma, tab, semicolon, pipe) to its rune.
func ParseDelim(name string) (rune, error) {
	d, ok := delimByName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("unknown delimiter %q (supported: %s)", name, strings.Join(DelimNames(), ", "))
	}
	return d, nil
}

// DelimName returns the canonical name for a supported delimiter rune, or a
// quoted fallback for anything else.
func DelimName(d rune) string {
	for name, r := range delimByName {
		if r == d {
			return name
		}
	}
	return fmt.Sprintf("%q", d)
}

// DelimNames lists the supported delimiter names in a stable order.
func DelimNames() []string {
	names := make([]string, 0, len(delimByName))
	for name := range delimByName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
