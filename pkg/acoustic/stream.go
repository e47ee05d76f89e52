package acoustic

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/coder/websocket"

	"github.com/larkhollow/lexara/pkg/types"
)

// frameMsg is the wire format of one streamed frame: a JSON array of
// fixed-point senone log-probabilities, sent in frame order.
type frameMsg struct {
	Scores []int32 `json:"scores"`
}

// StreamFeed is a [Model] fed by a remote scorer pushing senone-score
// frames over a websocket connection, one JSON message per frame, in
// order. It buffers every frame received so far so [Model.Score] can be
// called for any frame index the decoder has already stepped past.
//
// Like [FileFeed], StreamFeed always reports [Model.CompAllSen] true — the
// remote scorer computes the full vector regardless of what the decoder's
// active set needs.
type StreamFeed struct {
	conn *websocket.Conn

	mu      sync.Mutex
	frames  [][]types.LogProb
	closed  bool
	readErr error

	done chan struct{}
}

// DialStreamFeed opens a websocket connection to url and starts reading
// frames in the background until the connection closes or ctx is
// cancelled. Call [StreamFeed.Close] when decoding finishes to release the
// connection.
func DialStreamFeed(ctx context.Context, url string) (*StreamFeed, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("acoustic: dial %s: %w", url, err)
	}
	f := &StreamFeed{conn: conn, done: make(chan struct{})}
	go f.readLoop(ctx)
	return f, nil
}

func (f *StreamFeed) readLoop(ctx context.Context) {
	defer close(f.done)
	for {
		_, data, err := f.conn.Read(ctx)
		if err != nil {
			f.mu.Lock()
			if !f.closed {
				f.readErr = err
			}
			f.mu.Unlock()
			return
		}
		var msg frameMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("acoustic: dropping malformed frame message", "error", err)
			continue
		}
		scores := make([]types.LogProb, len(msg.Scores))
		for i, s := range msg.Scores {
			scores[i] = types.LogProb(s)
		}
		f.mu.Lock()
		f.frames = append(f.frames, scores)
		f.mu.Unlock()
	}
}

func (f *StreamFeed) NFeatFrame() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

func (f *StreamFeed) CompAllSen() bool { return true }

func (f *StreamFeed) Score(frame types.FrameIdx) ([]types.LogProb, SenoneID, types.LogProb, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if frame < 0 || int(frame) >= len(f.frames) {
		if f.readErr != nil {
			return nil, 0, types.WorstScore, fmt.Errorf("acoustic: stream closed: %w", f.readErr)
		}
		return nil, 0, types.WorstScore, fmt.Errorf("acoustic: frame %d not yet available", frame)
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

func (f *StreamFeed) ActivateHMM(types.PhoneID) {}
func (f *StreamFeed) ClearActive()              {}

// Close closes the underlying websocket connection and stops the read
// loop. Safe to call more than once.
func (f *StreamFeed) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	err := f.conn.Close(websocket.StatusNormalClosure, "decoding finished")
	<-f.done
	return err
}

var _ Model = (*StreamFeed)(nil)
