package dict

import (
	"testing"

	"github.com/larkhollow/lexara/pkg/types"
)

func TestMemDict_AddWordAndLookup(t *testing.T) {
	d := NewMemDict(NewPhoneSet())
	id := d.AddWord("CAT", []string{"K", "AE", "T"}, false)

	if got := d.ToID("CAT"); got != id {
		t.Fatalf("expected ToID to return %d, got %d", id, got)
	}
	if d.WordStr(id) != "CAT" {
		t.Fatalf("expected WordStr to round-trip, got %q", d.WordStr(id))
	}
	if d.PronLen(id) != 3 {
		t.Fatalf("expected a 3-phone pronunciation, got %d", d.PronLen(id))
	}
	if d.ToID("DOG") != types.NoWord {
		t.Fatal("expected unknown word to resolve to NoWord")
	}
}

func TestMemDict_AlternatePronunciationChain(t *testing.T) {
	d := NewMemDict(NewPhoneSet())
	first := d.AddWord("READ", []string{"R", "IY", "D"}, false)
	second := d.AddWord("READ", []string{"R", "EH", "D"}, false)

	if d.BaseWID(first) != first || d.BaseWID(second) != first {
		t.Fatalf("expected both variants to share base %d, got %d and %d", first, d.BaseWID(first), d.BaseWID(second))
	}
	if d.NextAlt(first) != second {
		t.Fatalf("expected first variant's NextAlt to be %d, got %d", second, d.NextAlt(first))
	}
	if d.NextAlt(second) != types.NoWord {
		t.Fatal("expected the last variant's NextAlt to be NoWord")
	}
	// ToID always resolves to the base (first-listed) variant.
	if d.ToID("READ") != first {
		t.Fatalf("expected ToID to return the base variant %d, got %d", first, d.ToID("READ"))
	}
}

func TestMemDict_FillerFlag(t *testing.T) {
	d := NewMemDict(NewPhoneSet())
	sil := d.AddWord("<sil>", []string{"SIL"}, true)
	word := d.AddWord("HELLO", []string{"HH", "AH", "L", "OW"}, false)

	if !d.IsFiller(sil) {
		t.Fatal("expected <sil> to be marked as a filler")
	}
	if d.IsFiller(word) {
		t.Fatal("expected HELLO to not be marked as a filler")
	}
}

func TestMemDict_SharesPhoneSet(t *testing.T) {
	ps := NewPhoneSet()
	d := NewMemDict(ps)
	d.AddWord("CAT", []string{"K", "AE", "T"}, false)
	if ps.N() != 3 {
		t.Fatalf("expected 3 distinct phones interned, got %d", ps.N())
	}
	d.AddWord("BAT", []string{"B", "AE", "T"}, false)
	if ps.N() != 4 {
		t.Fatalf("expected 4 distinct phones after adding BAT (reusing AE, T), got %d", ps.N())
	}
}

var _ Dictionary = (*MemDict)(nil)
