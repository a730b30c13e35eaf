package kinds

import (
	"github.com/silex-im/silex/pkg/nostr/kind"
)

// T is a list of kind.T.
type T []kind.T

// ToArray converts to the generic number list for canonical JSON
// serialization.
func (k T) ToArray() (a []int) {
	a = make([]int, len(k))
	for i := range k {
		a[i] = k[i].ToInt()
	}
	return
}

// Contains returns true if the provided element is found in the list.
func (k T) Contains(s kind.T) bool {
	for i := range k {
		if k[i] == s {
			return true
		}
	}
	return false
}

// Equals checks that the provided list matches exactly.
func (k T) Equals(k1 T) bool {
	if len(k) != len(k1) {
		return false
	}
	for i := range k {
		if k[i] != k1[i] {
			return false
		}
	}
	return true
}

// Clone makes a new list with the same members.
func (k T) Clone() (c T) {
	c = make(T, len(k))
	copy(c, k)
	return
}
