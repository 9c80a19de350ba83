package observe

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/diffable/internal/ir"
)

// Errors returned by Handle writes.
var (
	ErrNoContainer     = errors.New("observe: container does not exist")
	ErrNotObject       = errors.New("observe: value is not an object")
	ErrNotArray        = errors.New("observe: value is not an array")
	ErrIndexOutOfRange = errors.New("observe: index out of range")
	ErrRootNotObject   = errors.New("observe: root must remain an object")
	ErrAbsentValue     = errors.New("observe: value must not be nil")
	ErrReentrantWrite  = errors.New("observe: write from inside an update callback")
)

// UpdateFunc receives the ordered changes of one logical write and the
// resulting root value. The root is the live value: callbacks may read or
// serialize it but must not modify or retain it.
//
// A non-nil error rolls the write back, unless it is a *PostCommitError.
type UpdateFunc func(changes []ir.AtomicChange, value ir.Object) error

// PostCommitError reports a failure that happened after the changes were
// durably recorded. The handle keeps the new value and returns the error.
type PostCommitError struct {
	Err error
}

func (e *PostCommitError) Error() string {
	return fmt.Sprintf("after commit: %v", e.Err)
}

func (e *PostCommitError) Unwrap() error {
	return e.Err
}

// tracker is shared by a root handle and every nested handle derived from
// it, so that one logical write always produces exactly one batch.
type tracker struct {
	root     ir.Object
	onUpdate UpdateFunc
	writing  bool
}

// Handle is a live view of one location in an observed object graph.
//
// Reads return deep copies, so the graph can only change through handle
// writes. Nested handles (Field, Index, At) are created lazily and address
// their location by path; they resolve it against the current root on every
// access and share the root's callback and capture boundary.
//
// Handle is not safe for concurrent use. Callers serialize writes per state.
type Handle struct {
	t    *tracker
	path ir.Path
}

// Wrap takes a normalized copy of root and returns a handle to it.
// A nil root is treated as an empty object. onUpdate may be nil.
func Wrap(root ir.Object, onUpdate UpdateFunc) *Handle {
	if root == nil {
		root = ir.Object{}
	}
	return &Handle{
		t: &tracker{
			root:     ir.Normalize(root).(ir.Object),
			onUpdate: onUpdate,
		},
		path: ir.Root,
	}
}

// Path returns the location this handle addresses.
func (h *Handle) Path() ir.Path {
	return h.path
}

// Root returns a handle to the root of the graph.
func (h *Handle) Root() *Handle {
	return &Handle{t: h.t, path: ir.Root}
}

// Field returns a handle to key inside the object at h.
func (h *Handle) Field(key string) *Handle {
	return &Handle{t: h.t, path: h.path.Child(key)}
}

// Index returns a handle to element i inside the array at h.
func (h *Handle) Index(i int) *Handle {
	return &Handle{t: h.t, path: h.path.Elem(i)}
}

// At returns a handle to path relative to h.
func (h *Handle) At(path ir.Path) *Handle {
	full := make(ir.Path, 0, len(h.path)+len(path))
	full = append(full, h.path...)
	full = append(full, path...)
	return &Handle{t: h.t, path: full}
}

func (h *Handle) resolve() (ir.Value, bool) {
	return ir.Lookup(h.t.root, h.path)
}

// Exists reports whether the location currently holds a value.
func (h *Handle) Exists() bool {
	_, ok := h.resolve()
	return ok
}

// Value returns a deep copy of the value at h, or nil if absent.
func (h *Handle) Value() ir.Value {
	v, ok := h.resolve()
	if !ok {
		return nil
	}
	return ir.Clone(v)
}

// Object returns a deep copy of the object at h.
func (h *Handle) Object() (ir.Object, bool) {
	v, ok := h.resolve()
	if !ok {
		return nil, false
	}
	obj, ok := v.(ir.Object)
	if !ok {
		return nil, false
	}
	return ir.CloneObject(obj), true
}

// Get returns a deep copy of key inside the object at h.
func (h *Handle) Get(key string) (ir.Value, bool) {
	v := h.Field(key).Value()
	return v, v != nil
}

// Len returns the number of elements or keys at h, or 0 for scalars.
func (h *Handle) Len() int {
	v, _ := h.resolve()
	switch c := v.(type) {
	case ir.Object:
		return len(c)
	case ir.Array:
		return len(c)
	default:
		return 0
	}
}

// Keys returns the object keys at h in canonical order.
func (h *Handle) Keys() []string {
	v, _ := h.resolve()
	obj, ok := v.(ir.Object)
	if !ok {
		return nil
	}
	return obj.SortedKeys()
}

// Decode unmarshals the value at h into a Go value via canonical JSON.
func (h *Handle) Decode(into any) error {
	v, ok := h.resolve()
	if !ok {
		return fmt.Errorf("decode %s: %w", h.path, ErrNoContainer)
	}
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Errorf("decode %s: %w", h.path, err)
	}
	return json.Unmarshal(data, into)
}

// Set writes key inside the object at h.
func (h *Handle) Set(key string, v ir.Value) error {
	if v == nil {
		return ErrAbsentValue
	}
	v = ir.Normalize(v)
	return h.t.write(func(root ir.Object) (ir.Object, error) {
		obj, err := objectAt(root, h.path)
		if err != nil {
			return nil, err
		}
		obj[key] = v
		return root, nil
	})
}

// Delete removes key from the object at h. Deleting a missing key is a no-op.
func (h *Handle) Delete(key string) error {
	return h.t.write(func(root ir.Object) (ir.Object, error) {
		obj, err := objectAt(root, h.path)
		if err != nil {
			return nil, err
		}
		delete(obj, key)
		return root, nil
	})
}

// SetIndex replaces element i of the array at h.
func (h *Handle) SetIndex(i int, v ir.Value) error {
	if v == nil {
		return ErrAbsentValue
	}
	v = ir.Normalize(v)
	return h.t.write(func(root ir.Object) (ir.Object, error) {
		arr, err := arrayAt(root, h.path)
		if err != nil {
			return nil, err
		}
		if i < 0 || i >= len(arr) {
			return nil, fmt.Errorf("%w: %s[%d] (len %d)", ErrIndexOutOfRange, h.path, i, len(arr))
		}
		arr[i] = v
		return root, nil
	})
}

// Append adds elements to the end of the array at h.
func (h *Handle) Append(vs ...ir.Value) error {
	items := make(ir.Array, 0, len(vs))
	for _, v := range vs {
		if v == nil {
			return ErrAbsentValue
		}
		items = append(items, ir.Normalize(v))
	}
	return h.t.write(func(root ir.Object) (ir.Object, error) {
		arr, err := arrayAt(root, h.path)
		if err != nil {
			return nil, err
		}
		grown := make(ir.Array, 0, len(arr)+len(items))
		grown = append(grown, arr...)
		grown = append(grown, items...)
		return assign(root, h.path, grown)
	})
}

// RemoveIndex deletes element i of the array at h, shifting later elements.
func (h *Handle) RemoveIndex(i int) error {
	return h.t.write(func(root ir.Object) (ir.Object, error) {
		arr, err := arrayAt(root, h.path)
		if err != nil {
			return nil, err
		}
		if i < 0 || i >= len(arr) {
			return nil, fmt.Errorf("%w: %s[%d] (len %d)", ErrIndexOutOfRange, h.path, i, len(arr))
		}
		shrunk := make(ir.Array, 0, len(arr)-1)
		shrunk = append(shrunk, arr[:i]...)
		shrunk = append(shrunk, arr[i+1:]...)
		return assign(root, h.path, shrunk)
	})
}

// Replace writes v at h's own location. The parent container must exist.
func (h *Handle) Replace(v ir.Value) error {
	if v == nil {
		return ErrAbsentValue
	}
	v = ir.Normalize(v)
	return h.t.write(func(root ir.Object) (ir.Object, error) {
		return assign(root, h.path, v)
	})
}

// Update runs fn on a copy of the value at h (nil if absent) and writes the
// result back as one logical write. A nil result deletes the location.
func (h *Handle) Update(fn func(cur ir.Value) (ir.Value, error)) error {
	return h.t.write(func(root ir.Object) (ir.Object, error) {
		var cur ir.Value
		if v, ok := ir.Lookup(root, h.path); ok {
			cur = ir.Clone(v)
		}
		next, err := fn(cur)
		if err != nil {
			return nil, err
		}
		if next == nil {
			return remove(root, h.path)
		}
		return assign(root, h.path, ir.Normalize(next))
	})
}

func objectAt(root ir.Object, path ir.Path) (ir.Object, error) {
	v, ok := ir.Lookup(root, path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoContainer, path)
	}
	obj, ok := v.(ir.Object)
	if !ok {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotObject, path, ir.TypeName(v))
	}
	return obj, nil
}

func arrayAt(root ir.Object, path ir.Path) (ir.Array, error) {
	v, ok := ir.Lookup(root, path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoContainer, path)
	}
	arr, ok := v.(ir.Array)
	if !ok {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotArray, path, ir.TypeName(v))
	}
	return arr, nil
}

// write is the single capture boundary for every handle sharing t:
// copy, mutate, diff, and notify once.
func (t *tracker) write(mutate func(root ir.Object) (ir.Object, error)) error {
	if t.writing {
		return ErrReentrantWrite
	}
	t.writing = true
	defer func() { t.writing = false }()

	before := ir.CloneObject(t.root)
	next, err := mutate(t.root)
	if err != nil {
		t.root = before
		return err
	}
	t.root = next

	changes := Diff(before, t.root)
	if len(changes) == 0 || t.onUpdate == nil {
		return nil
	}

	if err := t.onUpdate(changes, t.root); err != nil {
		var post *PostCommitError
		if !errors.As(err, &post) {
			t.root = before
		}
		return err
	}
	return nil
}

// assign stores v at path inside root and returns the (possibly new) root.
func assign(root ir.Object, path ir.Path, v ir.Value) (ir.Object, error) {
	last, ok := path.Last()
	if !ok {
		obj, isObj := v.(ir.Object)
		if !isObj {
			return nil, ErrRootNotObject
		}
		return obj, nil
	}

	parent, ok := ir.Lookup(root, path.Parent())
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoContainer, path.Parent())
	}
	switch p := parent.(type) {
	case ir.Object:
		if last.IsIndex {
			return nil, fmt.Errorf("%w: %s", ErrNotArray, path.Parent())
		}
		p[last.Key] = v
	case ir.Array:
		if !last.IsIndex {
			return nil, fmt.Errorf("%w: %s", ErrNotObject, path.Parent())
		}
		if last.Index < 0 || last.Index >= len(p) {
			return nil, fmt.Errorf("%w: %s", ErrIndexOutOfRange, path)
		}
		p[last.Index] = v
	default:
		return nil, fmt.Errorf("%w: %s is %s", ErrNoContainer, path.Parent(), ir.TypeName(parent))
	}
	return root, nil
}

// remove deletes the location at path inside root.
func remove(root ir.Object, path ir.Path) (ir.Object, error) {
	last, ok := path.Last()
	if !ok {
		return nil, ErrRootNotObject
	}
	if !last.IsIndex {
		obj, err := objectAt(root, path.Parent())
		if err != nil {
			return nil, err
		}
		delete(obj, last.Key)
		return root, nil
	}
	arr, err := arrayAt(root, path.Parent())
	if err != nil {
		return nil, err
	}
	if last.Index < 0 || last.Index >= len(arr) {
		return nil, fmt.Errorf("%w: %s", ErrIndexOutOfRange, path)
	}
	shrunk := make(ir.Array, 0, len(arr)-1)
	shrunk = append(shrunk, arr[:last.Index]...)
	shrunk = append(shrunk, arr[last.Index+1:]...)
	return assign(root, path.Parent(), shrunk)
}
