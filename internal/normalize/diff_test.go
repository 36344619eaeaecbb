package normalize

import (
	"testing"

	"github.com/benediktbwimmer/tagging-service/internal/domain/tagging"
	"github.com/stretchr/testify/require"
)

func strptr(s string) *string { return &s }

func TestDiffRepositoryAppliesNewAndRemovesStaleOwnTags(t *testing.T) {
	newTags := []tagging.TagPayload{
		{Key: "language", Value: "go"},
		{Key: "framework", Value: "gin"},
	}
	existing := []ExistingTag{
		{Key: "language", Value: "go", Source: strptr("tagging-service")},    // still wanted: kept, not removed
		{Key: "language", Value: "python", Source: strptr("tagging-service")}, // stale own tag: removed
		{Key: "license", Value: "mit", Source: strptr("manual")},             // foreign source: untouched
		{Key: "topic", Value: "cli", Source: nil},                            // nil source treated as own
	}

	diff := DiffRepository(newTags, existing)

	require.Equal(t, newTags, diff.Apply)
	require.ElementsMatch(t, []tagging.TagPayload{
		{Key: "language", Value: "python"},
		{Key: "topic", Value: "cli"},
	}, diff.Remove)
}

func TestDiffRepositoryNoExistingTags(t *testing.T) {
	newTags := []tagging.TagPayload{{Key: "language", Value: "go"}}
	diff := DiffRepository(newTags, nil)
	require.Equal(t, newTags, diff.Apply)
	require.Empty(t, diff.Remove)
}

func TestDiffRepositoryEmptyNewRemovesAllOwnTags(t *testing.T) {
	existing := []ExistingTag{
		{Key: "language", Value: "go", Source: strptr("tagging-service")},
		{Key: "license", Value: "mit", Source: strptr("manual")},
	}
	diff := DiffRepository(nil, existing)
	require.Empty(t, diff.Apply)
	require.Equal(t, []tagging.TagPayload{{Key: "language", Value: "go"}}, diff.Remove)
}

func TestDiffFilesAlwaysAppliesNeverRemoves(t *testing.T) {
	fileTags := []tagging.FileTagPayload{
		{Path: "main.go", Tags: []tagging.TagPayload{{Key: "entrypoint", Value: "true"}}},
	}
	require.Equal(t, fileTags, DiffFiles(fileTags))
}
