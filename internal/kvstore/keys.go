package kvstore

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var (
	seqKey     = []byte("seq")
	snapSeqKey = []byte("snapseq")
)

const (
	statePrefix    = "state/"
	changePrefix   = "change/"
	snapshotPrefix = "snapshot/"
)

func escapeState(state string) string {
	return url.PathEscape(state)
}

func stateKey(state string) []byte {
	return []byte(statePrefix + escapeState(state))
}

func changeStatePrefix(state string) []byte {
	return []byte(changePrefix + escapeState(state) + "/")
}

func changeKey(state string, id int64) []byte {
	return []byte(fmt.Sprintf("%s%s/%020d", changePrefix, escapeState(state), id))
}

func snapshotStatePrefix(state string) []byte {
	return []byte(snapshotPrefix + escapeState(state) + "/")
}

// snapshotKey orders snapshots by creation time, then id. Times before the
// unix epoch sort as the epoch.
func snapshotKey(state string, createdAt time.Time, id int64) []byte {
	created := createdAt.UnixNano()
	if createdAt.IsZero() || created < 0 {
		created = 0
	}
	return []byte(fmt.Sprintf("%s%s/%020d/%020d", snapshotPrefix, escapeState(state), created, id))
}

// parseID returns the trailing zero-padded id of a change or snapshot key.
func parseID(key []byte) (int64, error) {
	s := string(key)
	i := strings.LastIndexByte(s, '/')
	if i < 0 {
		return 0, fmt.Errorf("malformed key %q", s)
	}
	id, err := strconv.ParseInt(s[i+1:], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed key %q: %w", s, err)
	}
	return id, nil
}

// stateFromKey returns the unescaped state name of a registry key.
func stateFromKey(key []byte) (string, error) {
	name, err := url.PathUnescape(strings.TrimPrefix(string(key), statePrefix))
	if err != nil {
		return "", fmt.Errorf("malformed state key %q: %w", key, err)
	}
	return name, nil
}
