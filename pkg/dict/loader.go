package dict

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Load parses the Sphinx-style pronunciation dictionary text format from r:
//
//	WORD PH1 PH2 PH3
//	WORD(2) PH1 PH4
//	<sil> SIL
//
// A word spelled WORD(N) for N > 1 is an alternate pronunciation of WORD;
// entries whose word is wrapped in angle brackets (e.g. <sil>) are treated
// as fillers. Phones are compared case-sensitively against the given
// PhoneSet's canonical spellings.
func Load(r io.Reader, phones *PhoneSet) (*MemDict, error) {
	d := NewMemDict(phones)
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, fmt.Errorf("dict: line %d: expected a word and at least one phone", lineNo)
		}
		word := stripAltSuffix(fields[0])
		filler := strings.HasPrefix(word, "<") && strings.HasSuffix(word, ">")
		d.AddWord(word, fields[1:], filler)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("dict: scan: %w", err)
	}
	return d, nil
}

// LoadFile opens path and parses it with [Load].
func LoadFile(path string, phones *PhoneSet) (*MemDict, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dict: open %s: %w", path, err)
	}
	defer f.Close()
	d, err := Load(f, phones)
	if err != nil {
		return nil, fmt.Errorf("dict: %s: %w", path, err)
	}
	return d, nil
}

// stripAltSuffix removes a trailing "(N)" alternate-pronunciation marker,
// e.g. "READ(2)" -> "READ".
func stripAltSuffix(word string) string {
	i := strings.LastIndexByte(word, '(')
	if i <= 0 || !strings.HasSuffix(word, ")") {
		return word
	}
	return word[:i]
}
