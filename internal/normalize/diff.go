package normalize

import "github.com/benediktbwimmer/tagging-service/internal/domain/tagging"

// RepoDiff is the set of repository-tag writes to apply after comparing
// freshly-normalized tags against the service's own previously-applied
// tags. Existing tags sourced by anything other than this service are
// left untouched (spec §4.5 step 8): they are neither in Apply nor Remove.
type RepoDiff struct {
	Apply  []tagging.TagPayload
	Remove []tagging.TagPayload
}

// ExistingTag describes one of the repository's previously-applied tags,
// as read back from the catalog's tags[] field.
type ExistingTag struct {
	Key    string
	Value  string
	Source *string
}

const serviceSource = "tagging-service"

func pairKey(key, value string) string { return key + ":" + value }

// DiffRepository computes apply = newTags, remove = (ownTags \ newTags)
// where ownTags is existing filtered to source absent or ==
// "tagging-service", keyed on (key,value). Sound per §8: Apply always
// equals newTags exactly, and Remove is always a subset of
// existing-owned-minus-new.
func DiffRepository(newTags []tagging.TagPayload, existing []ExistingTag) RepoDiff {
	newSet := make(map[string]struct{}, len(newTags))
	for _, t := range newTags {
		newSet[pairKey(t.Key, t.Value)] = struct{}{}
	}

	var remove []tagging.TagPayload
	for _, e := range existing {
		if e.Source != nil && *e.Source != serviceSource {
			continue
		}
		if _, stillWanted := newSet[pairKey(e.Key, e.Value)]; stillWanted {
			continue
		}
		remove = append(remove, tagging.TagPayload{Key: e.Key, Value: e.Value})
	}

	return RepoDiff{Apply: newTags, Remove: remove}
}

// DiffFiles always applies every (normalized) file tag and never removes:
// the file-explorer does not return prior tag state for diffing.
func DiffFiles(newFileTags []tagging.FileTagPayload) []tagging.FileTagPayload {
	return newFileTags
}
