package precise

import "golang.org/x/exp/constraints"

// Unsigned helper arithmetic for timestamp and block-count math in tests,
// where silent wraparound would corrupt assertions.

// CheckedAdd returns a+b and whether the sum wrapped around.
func CheckedAdd[V constraints.Unsigned](a, b V) (sum V, ok bool) {
	sum = a + b
	return sum, sum >= a
}

// CheckedSub returns a-b and whether the difference stayed non-negative.
func CheckedSub[V constraints.Unsigned](a, b V) (diff V, ok bool) {
	diff = a - b
	return diff, diff <= a
}

// AddCap adds two unsigned values, capping the result at the type maximum.
func AddCap[V constraints.Unsigned](a, b V) V {
	if sum, ok := CheckedAdd(a, b); ok {
		return sum
	}
	return ^V(0)
}

// SubFloor subtracts b from a, flooring the result at zero.
func SubFloor[V constraints.Unsigned](a, b V) V {
	if diff, ok := CheckedSub(a, b); ok {
		return diff
	}
	return 0
}
