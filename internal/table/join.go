package table

import "fmt"

// JoinOneToOne inner-joins left and right on a key that must be unique on
// both sides. Every left row must find exactly one right row, so the result
// always has len(left) rows in left order. Anything else is reported as
// upstream corruption, never deduplicated or dropped.
func JoinOneToOne[L, R any, K comparable, O any](
	stage string,
	left []L,
	right []R,
	leftKey func(L) K,
	rightKey func(R) K,
	merge func(L, R) O,
) ([]O, error) {
	byKey, err := IndexUnique(stage, "right", right, rightKey)
	if err != nil {
		return nil, err
	}
	if len(right) != len(left) {
		return nil, &CardinalityError{Stage: stage, Want: len(left), Got: len(right)}
	}

	seen := make(map[K]struct{}, len(left))
	out := make([]O, 0, len(left))
	for _, l := range left {
		k := leftKey(l)
		if _, dup := seen[k]; dup {
			return nil, &DuplicateKeyError{Stage: stage, Side: "left", Key: fmt.Sprint(k)}
		}
		seen[k] = struct{}{}

		r, ok := byKey[k]
		if !ok {
			return nil, &CardinalityError{Stage: stage, Want: len(left), Got: len(out), Key: fmt.Sprint(k)}
		}
		out = append(out, merge(l, r))
	}
	return out, nil
}

// Broadcast attaches a right row to every left row sharing its key. Left keys
// may repeat (one right row fans out to many left rows); right keys must be
// unique. A left row whose key function reports ok=false is passed to merge
// with found=false instead of being dropped. A keyed left row with no right
// partner is a cardinality violation.
func Broadcast[L, R any, K comparable, O any](
	stage string,
	left []L,
	right []R,
	leftKey func(L) (K, bool),
	rightKey func(R) K,
	merge func(l L, r R, found bool) O,
) ([]O, error) {
	byKey, err := IndexUnique(stage, "right", right, rightKey)
	if err != nil {
		return nil, err
	}

	out := make([]O, 0, len(left))
	for _, l := range left {
		k, keyed := leftKey(l)
		if !keyed {
			var zero R
			out = append(out, merge(l, zero, false))
			continue
		}
		r, ok := byKey[k]
		if !ok {
			return nil, &CardinalityError{Stage: stage, Want: len(left), Got: len(out), Key: fmt.Sprint(k)}
		}
		out = append(out, merge(l, r, true))
	}
	return out, nil
}

// IndexUnique builds a key index, failing on the first repeated key.
func IndexUnique[T any, K comparable](stage, side string, rows []T, key func(T) K) (map[K]T, error) {
	idx := make(map[K]T, len(rows))
	for _, row := range rows {
		k := key(row)
		if _, dup := idx[k]; dup {
			return nil, &DuplicateKeyError{Stage: stage, Side: side, Key: fmt.Sprint(k)}
		}
		idx[k] = row
	}
	return idx, nil
}
