package acoustic

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/larkhollow/lexara/pkg/types"
)

// FileFeed is a batch [Model] reading one senone-score frame per line from
// a simple whitespace-separated text format:
//
//	<senone0> <senone1> ... <senoneN-1>
//
// Each value is a fixed-point log-probability (see [pkg/types.LogProb]).
// FileFeed always reports [Model.CompAllSen] true: the whole vector is
// already materialized per frame, so there is no cost to scoring every
// senone regardless of the decoder's active set.
type FileFeed struct {
	frames [][]types.LogProb
}

// LoadFileFeed parses r into a FileFeed.
func LoadFileFeed(r io.Reader) (*FileFeed, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	var frames [][]types.LogProb
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		frame := make([]types.LogProb, len(fields))
		for i, f := range fields {
			v, err := strconv.Atoi(f)
			if err != nil {
				return nil, fmt.Errorf("acoustic: line %d: bad senone score %q: %w", lineNo, f, err)
			}
			frame[i] = types.LogProb(v)
		}
		frames = append(frames, frame)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("acoustic: scan: %w", err)
	}
	return &FileFeed{frames: frames}, nil
}

// LoadFileFeedPath opens path and parses it with [LoadFileFeed].
func LoadFileFeedPath(path string) (*FileFeed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("acoustic: open %s: %w", path, err)
	}
	defer f.Close()
	feed, err := LoadFileFeed(f)
	if err != nil {
		return nil, fmt.Errorf("acoustic: %s: %w", path, err)
	}
	return feed, nil
}

func (f *FileFeed) NFeatFrame() int  { return len(f.frames) }
func (f *FileFeed) CompAllSen() bool { return true }

func (f *FileFeed) Score(frame types.FrameIdx) ([]types.LogProb, SenoneID, types.LogProb, error) {
	if frame < 0 || int(frame) >= len(f.frames) {
		return nil, 0, types.WorstScore, fmt.Errorf("acoustic: frame %d out of range [0,%d)", frame, len(f.frames))
	}
	scores := f.frames[frame]
	best := types.WorstScore
	var bestSen SenoneID
	for i, s := range scores {
		if s > best {
			best = s
			bestSen = SenoneID(i)
		}
	}
	return scores, bestSen, best, nil
}

func (f *FileFeed) ActivateHMM(types.PhoneID) {}
func (f *FileFeed) ClearActive()              {}

var _ Model = (*FileFeed)(nil)
