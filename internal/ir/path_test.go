package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathString(t *testing.T) {
	tests := []struct {
		path Path
		want string
	}{
		{Root, "$"},
		{Root.Child("a"), "$.a"},
		{Root.Child("a").Child("b"), "$.a.b"},
		{Root.Child("items").Elem(2), "$.items[2]"},
		{Root.Child("a.b"), "$['a.b']"},
		{Root.Child("it's"), `$['it\'s']`},
		{Root.Child(`back\slash`), `$['back\\slash']`},
		{Root.Child(""), "$['']"},
		{Root.Child("1st"), "$['1st']"},
		{Root.Child("grid").Elem(0).Elem(1), "$.grid[0][1]"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.path.String())

			parsed, err := ParsePath(tt.want)
			require.NoError(t, err)
			assert.True(t, tt.path.Equal(parsed), "parsed %v", parsed)
		})
	}
}

func TestParsePathErrors(t *testing.T) {
	bad := []string{
		"",
		"a.b",
		"$.",
		"$..a",
		"$[",
		"$[x]",
		"$[-1]",
		"$[01]",
		"$['open",
		"$['a'",
		"$a",
	}
	for _, s := range bad {
		t.Run(s, func(t *testing.T) {
			_, err := ParsePath(s)
			assert.Error(t, err)
		})
	}
}

func TestPathKeyAndParent(t *testing.T) {
	p := MustParsePath("$.items[3]")
	assert.Equal(t, "3", p.Key())
	assert.Equal(t, "$.items", p.Parent().String())
	assert.Equal(t, "$", Root.Key())
	assert.Equal(t, "$", Root.Parent().String())
}

func TestPathChildDoesNotAlias(t *testing.T) {
	base := Root.Child("a")
	x := base.Child("x")
	y := base.Child("y")
	assert.Equal(t, "$.a.x", x.String())
	assert.Equal(t, "$.a.y", y.String())
}

func TestPathText(t *testing.T) {
	var p Path
	require.NoError(t, p.UnmarshalText([]byte("$.a[1]")))
	text, err := p.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "$.a[1]", string(text))
}

func TestParseOperation(t *testing.T) {
	for _, s := range []string{"ADD", "UPDATE", "REMOVE"} {
		op, err := ParseOperation(s)
		require.NoError(t, err)
		assert.Equal(t, Operation(s), op)
	}
	_, err := ParseOperation("snapshot")
	assert.Error(t, err)
}

func TestAtomicChangeValidate(t *testing.T) {
	p := MustParsePath("$.a")
	assert.NoError(t, NewAdd(p, Int(1)).Validate())
	assert.NoError(t, NewUpdate(p, Int(2), Int(1)).Validate())
	assert.NoError(t, NewRemove(p, Int(2)).Validate())

	assert.Error(t, AtomicChange{Op: OpAdd, Path: p}.Validate())
	assert.Error(t, AtomicChange{Op: OpRemove, Path: p, Value: Int(1)}.Validate())
	assert.Error(t, AtomicChange{Op: OpUpdate, Path: Root, Value: Int(1)}.Validate())
	assert.Error(t, AtomicChange{Op: "MOVE", Path: p}.Validate())
}

func TestAtomicChangeString(t *testing.T) {
	c := NewUpdate(MustParsePath("$.a.b"), Int(2), Int(1))
	assert.Equal(t, "UPDATE $.a.b 1 -> 2", c.String())
	assert.Equal(t, "b", c.Key)
	assert.Equal(t, "Number", c.ValueType)

	assert.Equal(t, `ADD $.s "x"`, NewAdd(MustParsePath("$.s"), String("x")).String())
	assert.Equal(t, "REMOVE $.s true", NewRemove(MustParsePath("$.s"), Bool(true)).String())
}

func TestLookup(t *testing.T) {
	root := Object{
		"a":     Object{"b": Int(1)},
		"items": Array{String("x"), Object{"y": Null{}}},
	}

	v, ok := Lookup(root, MustParsePath("$.a.b"))
	require.True(t, ok)
	assert.Equal(t, Int(1), v)

	v, ok = Lookup(root, MustParsePath("$.items[1].y"))
	require.True(t, ok)
	assert.Equal(t, Null{}, v)

	v, ok = Lookup(root, Root)
	require.True(t, ok)
	assert.True(t, Equal(root, v))

	for _, p := range []string{"$.missing", "$.a.b.c", "$.items[2]", "$.items.x", "$.a[0]"} {
		_, ok := Lookup(root, MustParsePath(p))
		assert.False(t, ok, p)
	}
}
