package durable

import (
	"fmt"
	"strconv"
	"strings"
)

type policyKind int

const (
	policyNever policyKind = iota + 1
	policyEveryChange
	policyEveryN
)

// Policy decides when a snapshot is materialized after an append.
// The zero Policy behaves like DefaultPolicy.
type Policy struct {
	kind policyKind
	n    int64
}

// DefaultPolicy snapshots every 10 changes.
var DefaultPolicy = EveryN(10)

// Never disables snapshots. Resume always replays the whole log.
func Never() Policy { return Policy{kind: policyNever} }

// EveryChange snapshots after every append.
func EveryChange() Policy { return Policy{kind: policyEveryChange} }

// EveryN snapshots when the highest change id of the state is an exact
// multiple of n. Panics if n < 1.
func EveryN(n int64) Policy {
	if n < 1 {
		panic(fmt.Sprintf("durable: EveryN(%d): n must be positive", n))
	}
	return Policy{kind: policyEveryN, n: n}
}

func (p Policy) resolved() Policy {
	if p.kind == 0 {
		return DefaultPolicy
	}
	return p
}

// ShouldSnapshot reports whether a snapshot is due once the log of the
// state ends at maxID.
func (p Policy) ShouldSnapshot(maxID int64) bool {
	p = p.resolved()
	switch p.kind {
	case policyEveryChange:
		return true
	case policyEveryN:
		return maxID > 0 && maxID%p.n == 0
	default:
		return false
	}
}

// String returns the textual form accepted by ParsePolicy.
func (p Policy) String() string {
	p = p.resolved()
	switch p.kind {
	case policyNever:
		return "never"
	case policyEveryChange:
		return "every-change"
	default:
		return "every:" + strconv.FormatInt(p.n, 10)
	}
}

// ParsePolicy parses "never", "every-change" or "every:N".
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "never":
		return Never(), nil
	case "every-change":
		return EveryChange(), nil
	}
	rest, ok := strings.CutPrefix(s, "every:")
	if !ok {
		return Policy{}, fmt.Errorf("invalid snapshot policy %q: want never, every-change or every:N", s)
	}
	n, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || n < 1 {
		return Policy{}, fmt.Errorf("invalid snapshot policy %q: N must be a positive integer", s)
	}
	return EveryN(n), nil
}

// MarshalText implements encoding.TextMarshaler.
func (p Policy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Policy) UnmarshalText(text []byte) error {
	parsed, err := ParsePolicy(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
