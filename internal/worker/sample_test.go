package worker

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/benediktbwimmer/tagging-service/internal/fileexplorerclient"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
}

func TestSampleFromLocalWalkCollectsFilesAndSkipsDotGit(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "main.go"), "package main")
	writeFile(t, filepath.Join(root, ".git", "HEAD"), "ref: refs/heads/main")
	writeFile(t, filepath.Join(root, "node_modules", "pkg", "index.js"), "module.exports = {}")

	out := sampleFromLocalWalk(root)

	var paths []string
	for _, f := range out {
		paths = append(paths, f.Path)
	}
	require.Contains(t, paths, "main.go")
	for _, p := range paths {
		require.False(t, strings.HasPrefix(p, ".git"))
		require.False(t, strings.HasPrefix(p, "node_modules"))
	}
}

func TestSampleFromLocalWalkCapsAtMaxSampledFiles(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < maxSampledFiles+10; i++ {
		writeFile(t, filepath.Join(root, "f"+string(rune('a'+i%26))+".txt"), "x")
	}

	out := sampleFromLocalWalk(root)
	require.LessOrEqual(t, len(out), maxSampledFiles)
}

func TestReadSnippetReturnsEmptyForMissingFile(t *testing.T) {
	require.Equal(t, "", readSnippet(filepath.Join(t.TempDir(), "missing.txt")))
}

func TestReadSnippetReadsSmallFileInFull(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "small.txt")
	writeFile(t, path, "hello world")

	require.Equal(t, "hello world", readSnippet(path))
}

func TestReadSnippetTruncatesLargeFile(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "big.txt")
	writeFile(t, path, strings.Repeat("a", largeFileCutoff+1))

	out := readSnippet(path)
	require.True(t, strings.HasSuffix(out, "..."))
	require.LessOrEqual(t, len(out), maxSnippetBytes+len("\n..."))
}

func TestTruncateSnippetLeavesShortStringUnchanged(t *testing.T) {
	require.Equal(t, "short", truncateSnippet("short"))
}

func TestTruncateSnippetAppendsEllipsisWhenOverLimit(t *testing.T) {
	s := strings.Repeat("b", maxSnippetBytes+10)
	out := truncateSnippet(s)
	require.True(t, strings.HasSuffix(out, "..."))
	require.Less(t, len(out), len(s))
}

func TestSampleFromCandidatesPrefersInlinePreview(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "on-disk.txt"), "disk contents")
	preview := "preview contents"

	candidates := []fileexplorerclient.Candidate{
		{Path: "on-disk.txt", Preview: &preview},
	}

	out := sampleFromCandidates(candidates, root)
	require.Len(t, out, 1)
	require.Equal(t, "preview contents", out[0].Snippet)
}

func TestSampleFromCandidatesFallsBackToDiskWhenPreviewMissing(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "on-disk.txt"), "disk contents")

	candidates := []fileexplorerclient.Candidate{
		{Path: "on-disk.txt"},
	}

	out := sampleFromCandidates(candidates, root)
	require.Len(t, out, 1)
	require.Equal(t, "disk contents", out[0].Snippet)
}

func TestSampleFromCandidatesCapsAtMaxSampledFiles(t *testing.T) {
	root := t.TempDir()
	candidates := make([]fileexplorerclient.Candidate, maxSampledFiles+5)
	for i := range candidates {
		candidates[i] = fileexplorerclient.Candidate{Path: "file.txt"}
	}

	out := sampleFromCandidates(candidates, root)
	require.Len(t, out, maxSampledFiles)
}
