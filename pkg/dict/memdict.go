package dict

import "github.com/larkhollow/lexara/pkg/types"

type entry struct {
	word    string
	pron    []types.PhoneID
	base    types.WordID
	nextAlt types.WordID
	filler  bool
}

// MemDict is the in-memory reference [Dictionary]: entries held in a
// straightforward id2str/str2id pair, alternate pronunciations threaded
// through a nextAlt/base chain the way fsg's word vocabulary interns
// strings — pronunciations are simply attached to each entry.
type MemDict struct {
	phones *PhoneSet
	words  []entry
	byWord map[string][]types.WordID // base word -> all variant ids, in order
}

// NewMemDict returns an empty dictionary sharing phone id assignment
// with phones (pass a fresh [NewPhoneSet] if none exists yet).
func NewMemDict(phones *PhoneSet) *MemDict {
	return &MemDict{
		phones: phones,
		byWord: make(map[string][]types.WordID),
	}
}

// Phones returns the PhoneSet backing this dictionary's pronunciations.
func (d *MemDict) Phones() *PhoneSet { return d.phones }

// AddWord adds word with the given phone-string pronunciation, returning
// its WordID. A second call with the same word adds an alternate
// pronunciation, threaded onto the first entry's NextAlt chain (mirroring
// -fsgusealtpron expansion in the reference decoder).
func (d *MemDict) AddWord(word string, pron []string, filler bool) types.WordID {
	phoneIDs := make([]types.PhoneID, len(pron))
	for i, p := range pron {
		phoneIDs[i] = d.phones.Intern(p)
	}

	id := types.WordID(len(d.words))
	variants := d.byWord[word]
	base := id
	if len(variants) > 0 {
		base = variants[0]
	}
	d.words = append(d.words, entry{
		word:    word,
		pron:    phoneIDs,
		base:    base,
		nextAlt: types.NoWord,
		filler:  filler,
	})
	if len(variants) > 0 {
		prev := variants[len(variants)-1]
		d.words[prev].nextAlt = id
	}
	d.byWord[word] = append(variants, id)
	return id
}

func (d *MemDict) ToID(str string) types.WordID {
	variants, ok := d.byWord[str]
	if !ok || len(variants) == 0 {
		return types.NoWord
	}
	return variants[0]
}

func (d *MemDict) WordStr(wid types.WordID) string {
	if wid == types.NoWord || int(wid) >= len(d.words) {
		return ""
	}
	return d.words[wid].word
}

func (d *MemDict) PronLen(wid types.WordID) int {
	if wid == types.NoWord || int(wid) >= len(d.words) {
		return 0
	}
	return len(d.words[wid].pron)
}

func (d *MemDict) Pron(wid types.WordID) []types.PhoneID {
	if wid == types.NoWord || int(wid) >= len(d.words) {
		return nil
	}
	return d.words[wid].pron
}

func (d *MemDict) NextAlt(wid types.WordID) types.WordID {
	if wid == types.NoWord || int(wid) >= len(d.words) {
		return types.NoWord
	}
	return d.words[wid].nextAlt
}

func (d *MemDict) BaseWID(wid types.WordID) types.WordID {
	if wid == types.NoWord || int(wid) >= len(d.words) {
		return types.NoWord
	}
	return d.words[wid].base
}

func (d *MemDict) NWords() int { return len(d.words) }

func (d *MemDict) IsFiller(wid types.WordID) bool {
	if wid == types.NoWord || int(wid) >= len(d.words) {
		return false
	}
	return d.words[wid].filler
}

var _ Dictionary = (*MemDict)(nil)
