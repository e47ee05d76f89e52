package dict

import "github.com/larkhollow/lexara/pkg/types"

// PhoneSet interns context-independent phone strings into dense
// types.PhoneID values, giving the lextree builder and the decoder's
// [pkg/types.ContextSet] bitsets a stable, zero-based numbering.
type PhoneSet struct {
	id2str []string
	str2id map[string]types.PhoneID
}

// NewPhoneSet returns an empty PhoneSet.
func NewPhoneSet() *PhoneSet {
	return &PhoneSet{str2id: make(map[string]types.PhoneID)}
}

// Intern returns str's PhoneID, assigning a new one if str is unseen.
func (p *PhoneSet) Intern(str string) types.PhoneID {
	if id, ok := p.str2id[str]; ok {
		return id
	}
	id := types.PhoneID(len(p.id2str))
	p.id2str = append(p.id2str, str)
	p.str2id[str] = id
	return id
}

// ID returns str's PhoneID, or types.NoPhone if str was never interned.
func (p *PhoneSet) ID(str string) types.PhoneID {
	if id, ok := p.str2id[str]; ok {
		return id
	}
	return types.NoPhone
}

// Str returns the phone string for id, or "" if out of range.
func (p *PhoneSet) Str(id types.PhoneID) string {
	if id < 0 || int(id) >= len(p.id2str) {
		return ""
	}
	return p.id2str[id]
}

// N returns the number of distinct phones interned, i.e. the size a
// [pkg/types.ContextSet] over this PhoneSet must be allocated with.
func (p *PhoneSet) N() int { return len(p.id2str) }
