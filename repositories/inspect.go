package repositories

import (
	"fmt"
	"strings"
	"time"
)

// Record is a human readable view of one stored value, used by the debug
// inspector and the admin tool.
type Record struct {
	Kind   string
	Detail string
}

// Describe decodes a raw key/value pair whatever the record it belongs to.
func Describe(key string, val []byte) (Record, error) {
	kind, _, _ := strings.Cut(key, ":")
	switch kind {
	case "msg":
		m, err := decodeMessage(val)
		if err != nil {
			return Record{Kind: "MESSAGE"}, err
		}
		return Record{Kind: "MESSAGE", Detail: fmt.Sprintf("%s (%s): %s", m.AuthorName, m.AuthorID, m.Body)}, nil
	case "member":
		p, err := decodeParticipant(val)
		if err != nil {
			return Record{Kind: "MEMBER"}, err
		}
		return Record{Kind: "MEMBER", Detail: fmt.Sprintf("%s joined %s", p.DisplayName, p.JoinedAt.Format(time.RFC3339))}, nil
	case "joined":
		return Record{Kind: "JOINED"}, nil
	case "read":
		ns, err := decodeUint(val)
		if err != nil {
			return Record{Kind: "READ_MARKER"}, err
		}
		return Record{Kind: "READ_MARKER", Detail: time.Unix(0, int64(ns)).UTC().Format(time.RFC3339Nano)}, nil
	case "credver":
		version, err := decodeUint(val)
		if err != nil {
			return Record{Kind: "CREDENTIAL"}, err
		}
		return Record{Kind: "CREDENTIAL", Detail: fmt.Sprintf("version %d", version)}, nil
	default:
		return Record{Kind: "UNKNOWN", Detail: fmt.Sprintf("%d bytes", len(val))}, nil
	}
}
