// Package normalize implements the pure key/value/confidence cleanup and
// repository/file tag diffing from spec §4.5 steps 7-8. Kept dependency-
// free and heavily unit tested per §8's round-trip and boundary laws —
// no suitable third-party library in the retrieved corpus does
// string-normalization or set-diff work like this, so these functions are
// hand-written against the standard library only.
package normalize

import (
	"math"
	"regexp"
	"strings"

	"github.com/benediktbwimmer/tagging-service/internal/domain/tagging"
	"github.com/benediktbwimmer/tagging-service/internal/modelclient"
)

var nonAlnumRun = regexp.MustCompile(`[^a-z0-9]+`)

// Key lowercases s, collapses runs of non-alphanumeric characters to a
// single underscore, and trims leading/trailing underscores.
func Key(s string) string {
	lower := strings.ToLower(s)
	collapsed := nonAlnumRun.ReplaceAllString(lower, "_")
	return strings.Trim(collapsed, "_")
}

// Value lowercases and trims s; unlike Key it is not otherwise transformed.
func Value(s string) string {
	return strings.TrimSpace(strings.ToLower(s))
}

// Confidence clamps to [0,1]; NaN becomes absent (nil).
func Confidence(c *float64) *float64 {
	if c == nil {
		return nil
	}
	v := *c
	if math.IsNaN(v) {
		return nil
	}
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return &v
}

// Tags normalizes a flat list of raw model tags: key/value cleanup,
// confidence clamping, dropping empty key/value entries, and
// deduplicating by (key,value). Idempotent: Tags(Tags(x)) == Tags(x).
func Tags(raw []modelclient.RawTag) []tagging.TagPayload {
	seen := make(map[string]struct{}, len(raw))
	out := make([]tagging.TagPayload, 0, len(raw))

	for _, t := range raw {
		key := Key(t.Key)
		value := Value(t.Value)
		if key == "" || value == "" {
			continue
		}

		dedupKey := key + ":" + value
		if _, ok := seen[dedupKey]; ok {
			continue
		}
		seen[dedupKey] = struct{}{}

		out = append(out, tagging.TagPayload{
			Key:        key,
			Value:      value,
			Confidence: Confidence(t.Confidence),
		})
	}
	return out
}

// FileTags normalizes per-file tag lists and drops any file whose tag
// list becomes empty after normalization.
func FileTags(raw []modelclient.RawFileTags) []tagging.FileTagPayload {
	out := make([]tagging.FileTagPayload, 0, len(raw))
	for _, f := range raw {
		tags := Tags(f.Tags)
		if len(tags) == 0 {
			continue
		}
		out = append(out, tagging.FileTagPayload{Path: f.Path, Tags: tags})
	}
	return out
}
