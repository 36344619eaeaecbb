package utils

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"
)

// RunCursor is the keyset-pagination cursor used by GET /jobs (the only
// paginated listing): an opaque base64 JSON blob carrying the sort key
// (the job's updatedAt) plus a tie-break id, generalized from the teacher's per-resource EventCursor/
// JobCursor pair into one shape every listing reuses.
type RunCursor struct {
	SortAt time.Time `json:"sortAt"`
	ID     string    `json:"id"`
}

func EncodeRunCursor(sortAt time.Time, id string) (string, error) {
	b, err := json.Marshal(RunCursor{SortAt: sortAt, ID: id})
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func DecodeRunCursor(cursor string) (RunCursor, error) {
	if cursor == "" {
		return RunCursor{}, errors.New("empty cursor")
	}

	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return RunCursor{}, err
	}

	var c RunCursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return RunCursor{}, err
	}
	if c.ID == "" || c.SortAt.IsZero() {
		return RunCursor{}, errors.New("invalid cursor payload")
	}
	return c, nil
}
