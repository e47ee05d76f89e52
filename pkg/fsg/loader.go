package fsg

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Load parses the Sphinx-style text FSG format from r:
//
//	FSG_BEGIN <name>
//	NUM_STATES <n>
//	START_STATE <s>
//	FINAL_STATE <f>
//	TRANSITION <from> <to> <prob> [<word>]
//	...
//	FSG_END
//
// A TRANSITION line without a trailing word is a null (epsilon) arc. prob is
// a linear probability in (0, 1]. Load finalizes the returned Graph, so its
// null-transition closure is ready to query immediately.
func Load(r io.Reader) (*Graph, error) {
	sc := bufio.NewScanner(r)
	var g *Graph
	var nState int
	var start, final State = -1, -1
	haveStart, haveFinal, haveNState := false, false, false
	lineNo := 0

	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "FSG_BEGIN":
			if g != nil {
				return nil, fmt.Errorf("fsg: line %d: nested FSG_BEGIN", lineNo)
			}
			name := "unnamed"
			if len(fields) > 1 {
				name = fields[1]
			}
			g = NewGraph(name, 0, 0, 0)
		case "NUM_STATES":
			if len(fields) != 2 {
				return nil, fmt.Errorf("fsg: line %d: NUM_STATES wants 1 argument", lineNo)
			}
			n, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, fmt.Errorf("fsg: line %d: bad NUM_STATES: %w", lineNo, err)
			}
			nState = n
			haveNState = true
		case "START_STATE":
			s, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, fmt.Errorf("fsg: line %d: bad START_STATE: %w", lineNo, err)
			}
			start = State(s)
			haveStart = true
		case "FINAL_STATE":
			f, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, fmt.Errorf("fsg: line %d: bad FINAL_STATE: %w", lineNo, err)
			}
			final = State(f)
			haveFinal = true
		case "TRANSITION":
			if g == nil {
				return nil, fmt.Errorf("fsg: line %d: TRANSITION before FSG_BEGIN", lineNo)
			}
			if len(fields) < 4 {
				return nil, fmt.Errorf("fsg: line %d: TRANSITION wants at least 3 arguments", lineNo)
			}
			from, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, fmt.Errorf("fsg: line %d: bad from-state: %w", lineNo, err)
			}
			to, err := strconv.Atoi(fields[2])
			if err != nil {
				return nil, fmt.Errorf("fsg: line %d: bad to-state: %w", lineNo, err)
			}
			prob, err := strconv.ParseFloat(fields[3], 64)
			if err != nil {
				return nil, fmt.Errorf("fsg: line %d: bad probability: %w", lineNo, err)
			}
			lp := linearToLog(prob)
			if len(fields) >= 5 {
				word := strings.Join(fields[4:], " ")
				g.AddArc(State(from), State(to), g.WordAdd(word), lp)
			} else {
				g.AddNullArc(State(from), State(to), lp)
			}
		case "FSG_END":
			if g == nil {
				return nil, fmt.Errorf("fsg: line %d: FSG_END without FSG_BEGIN", lineNo)
			}
			if !haveNState || !haveStart || !haveFinal {
				return nil, fmt.Errorf("fsg: line %d: FSG_END before NUM_STATES/START_STATE/FINAL_STATE", lineNo)
			}
			g.nState = nState
			g.start = start
			g.final = final
			g.Finalize()
			return g, nil
		default:
			return nil, fmt.Errorf("fsg: line %d: unrecognized keyword %q", lineNo, fields[0])
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("fsg: scan: %w", err)
	}
	return nil, fmt.Errorf("fsg: unexpected EOF: missing FSG_END")
}

// LoadFile opens path and parses it with [Load].
func LoadFile(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("fsg: open %s: %w", path, err)
	}
	defer f.Close()
	g, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("fsg: %s: %w", path, err)
	}
	return g, nil
}
