package bridge

import "reflect"

// sameIdentity reports whether a and b are the same comparable value.
// Values of non-comparable dynamic types (func-backed streams, for example)
// never match, so callers treat them as changed.
func sameIdentity(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}
