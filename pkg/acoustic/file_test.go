package acoustic

import (
	"strings"
	"testing"

	"github.com/larkhollow/lexara/pkg/types"
)

func TestLoadFileFeed(t *testing.T) {
	src := "100 200 50\n# comment\n\n300 10 10\n"
	feed, err := LoadFileFeed(strings.NewReader(src))
	if err != nil {
		t.Fatalf("LoadFileFeed: %v", err)
	}
	if feed.NFeatFrame() != 2 {
		t.Fatalf("NFeatFrame() = %d, want 2", feed.NFeatFrame())
	}

	scores, bestSen, best, err := feed.Score(0)
	if err != nil {
		t.Fatalf("Score(0): %v", err)
	}
	if len(scores) != 3 || best != 200 || bestSen != 1 {
		t.Fatalf("Score(0) = %v, %d, %d; want [.. 200 ..], sen 1, best 200", scores, bestSen, best)
	}

	if _, _, _, err := feed.Score(2); err == nil {
		t.Fatalf("Score(2) should fail: only 2 frames loaded")
	}
}

func TestLoadFileFeedBadValue(t *testing.T) {
	if _, err := LoadFileFeed(strings.NewReader("1 notanumber 3\n")); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestFileFeedCompAllSen(t *testing.T) {
	feed, err := LoadFileFeed(strings.NewReader("1 2 3\n"))
	if err != nil {
		t.Fatalf("LoadFileFeed: %v", err)
	}
	if !feed.CompAllSen() {
		t.Fatalf("FileFeed.CompAllSen() = false, want true")
	}
	feed.ClearActive()
	feed.ActivateHMM(types.PhoneID(0))
}
