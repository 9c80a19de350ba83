package durable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicy_ShouldSnapshot(t *testing.T) {
	tests := []struct {
		name   string
		policy Policy
		maxID  int64
		want   bool
	}{
		{"never", Never(), 10, false},
		{"every change", EveryChange(), 1, true},
		{"every change later", EveryChange(), 7, true},
		{"every 2 at 2", EveryN(2), 2, true},
		{"every 2 at 3", EveryN(2), 3, false},
		{"every 1", EveryN(1), 5, true},
		{"every 10 at 0", EveryN(10), 0, false},
		{"zero value is default", Policy{}, 10, true},
		{"zero value is default off", Policy{}, 9, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.policy.ShouldSnapshot(tt.maxID))
		})
	}
}

func TestEveryN_PanicsOnNonPositive(t *testing.T) {
	assert.Panics(t, func() { EveryN(0) })
	assert.Panics(t, func() { EveryN(-3) })
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in   string
		want Policy
	}{
		{"never", Never()},
		{"every-change", EveryChange()},
		{"every:1", EveryN(1)},
		{"every:25", EveryN(25)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePolicy(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.in, got.String())
		})
	}
}

func TestParsePolicy_Invalid(t *testing.T) {
	for _, in := range []string{"", "always", "every:", "every:0", "every:-1", "every:x", "every:1.5"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParsePolicy(in)
			assert.Error(t, err)
		})
	}
}

func TestPolicy_Text(t *testing.T) {
	text, err := DefaultPolicy.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "every:10", string(text))

	var p Policy
	require.NoError(t, p.UnmarshalText([]byte("every-change")))
	assert.Equal(t, EveryChange(), p)

	assert.Error(t, p.UnmarshalText([]byte("sometimes")))
	assert.Equal(t, EveryChange(), p, "failed unmarshal leaves the policy unchanged")
}
