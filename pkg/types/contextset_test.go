package types

import "testing"

func TestContextSet_SetHas(t *testing.T) {
	cs := NewContextSet(40)
	if cs.Has(3) {
		t.Fatal("expected empty set to have no members")
	}
	cs.Set(3)
	cs.Set(39)
	if !cs.Has(3) || !cs.Has(39) {
		t.Fatal("expected set bits to be members")
	}
	if cs.Has(4) {
		t.Fatal("expected unset bit to not be a member")
	}
}

func TestContextSet_SetAll(t *testing.T) {
	cs := NewContextSet(10)
	cs.SetAll()
	for p := PhoneID(0); p < 10; p++ {
		if !cs.Has(p) {
			t.Fatalf("phone %d expected to be a member after SetAll", p)
		}
	}
}

func TestContextSet_OutOfRangeIgnored(t *testing.T) {
	cs := NewContextSet(4)
	cs.Set(-1)
	cs.Set(100)
	if cs.Has(-1) || cs.Has(100) {
		t.Fatal("out of range ids must never test as members")
	}
}

func TestContextSet_Clone(t *testing.T) {
	cs := NewContextSet(8)
	cs.Set(2)
	clone := cs.Clone()
	clone.Set(5)
	if cs.Has(5) {
		t.Fatal("mutating the clone must not affect the original")
	}
	if !clone.Has(2) {
		t.Fatal("clone must retain bits from the original")
	}
}
