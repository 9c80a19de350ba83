package observe

import "github.com/roach88/diffable/internal/ir"

// Diff computes the minimal ordered list of atomic changes that turns
// before into after.
//
// Objects are compared key by key in canonical key order: a key only in
// before is a REMOVE, a key only in after is an ADD, a key in both recurses.
// Arrays are compared by position: the common prefix recurses, trailing
// elements only in after are ADDs in ascending index order, trailing
// elements only in before are REMOVEs in descending index order so that
// applying the changes sequentially never shifts a pending index.
//
// When a value's kind changes (object to primitive, string to array, ...)
// the whole location is reported as a single UPDATE. Int and Float are one
// kind here: a number is only updated when its value differs. The returned
// values are deep copies that share nothing with before or after.
func Diff(before, after ir.Value) []ir.AtomicChange {
	var changes []ir.AtomicChange
	diffAt(ir.Root, before, after, &changes)
	return changes
}

func diffAt(path ir.Path, before, after ir.Value, out *[]ir.AtomicChange) {
	if kind(before) != kind(after) {
		*out = append(*out, ir.NewUpdate(path, ir.Clone(after), ir.Clone(before)))
		return
	}

	switch b := before.(type) {
	case ir.Object:
		diffObject(path, b, after.(ir.Object), out)
	case ir.Array:
		diffArray(path, b, after.(ir.Array), out)
	default:
		if !ir.Equal(before, after) {
			*out = append(*out, ir.NewUpdate(path, after, before))
		}
	}
}

func diffObject(path ir.Path, before, after ir.Object, out *[]ir.AtomicChange) {
	keys := make(ir.Object, len(before)+len(after))
	for k := range before {
		keys[k] = nil
	}
	for k := range after {
		keys[k] = nil
	}

	for _, k := range keys.SortedKeys() {
		oldVal, inBefore := before[k]
		newVal, inAfter := after[k]
		child := path.Child(k)

		switch {
		case inBefore && !inAfter:
			*out = append(*out, ir.NewRemove(child, ir.Clone(oldVal)))
		case !inBefore && inAfter:
			*out = append(*out, ir.NewAdd(child, ir.Clone(newVal)))
		default:
			diffAt(child, oldVal, newVal, out)
		}
	}
}

func diffArray(path ir.Path, before, after ir.Array, out *[]ir.AtomicChange) {
	common := min(len(before), len(after))
	for i := 0; i < common; i++ {
		diffAt(path.Elem(i), before[i], after[i], out)
	}
	for i := common; i < len(after); i++ {
		*out = append(*out, ir.NewAdd(path.Elem(i), ir.Clone(after[i])))
	}
	for i := len(before) - 1; i >= common; i-- {
		*out = append(*out, ir.NewRemove(path.Elem(i), ir.Clone(before[i])))
	}
}

func kind(v ir.Value) ir.Kind {
	if k := ir.KindOf(v); k != ir.KindFloat {
		return k
	}
	return ir.KindInt
}
