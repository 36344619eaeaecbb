package worker

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/benediktbwimmer/tagging-service/internal/fileexplorerclient"
)

const (
	maxSampledFiles  = 20
	maxSnippetBytes  = 800
	largeFileReadCap = 2000
	largeFileCutoff  = 200_000
)

var skippedDirNames = map[string]struct{}{
	".git":         {},
	"node_modules": {},
	"dist":         {},
	"build":        {},
	"out":          {},
	"venv":         {},
}

type sampledFile struct {
	Path    string
	Snippet string
}

// sampleFiles implements §4.5 step 4: ask the file-explorer for
// candidates, falling back to a local checkout walk (advisory: the
// explorer's own failure is logged and suppressed, never fails the
// pipeline) when that call errors.
func sampleFiles(ctx context.Context, fe *fileexplorerclient.Client, repositoryID, checkoutDir string) []sampledFile {
	if fe != nil {
		candidates, err := fe.Search(ctx, repositoryID, maxSampledFiles)
		if err != nil {
			log.Printf("worker: file-explorer search failed repo=%s, falling back to local walk: %v", repositoryID, err)
		} else {
			return sampleFromCandidates(candidates, checkoutDir)
		}
	}
	return sampleFromLocalWalk(checkoutDir)
}

func sampleFromCandidates(candidates []fileexplorerclient.Candidate, checkoutDir string) []sampledFile {
	out := make([]sampledFile, 0, len(candidates))
	for _, c := range candidates {
		if len(out) >= maxSampledFiles {
			break
		}
		snippet := ""
		if c.Preview != nil && *c.Preview != "" {
			snippet = truncateSnippet(*c.Preview)
		} else {
			snippet = readSnippet(filepath.Join(checkoutDir, c.Path))
		}
		out = append(out, sampledFile{Path: c.Path, Snippet: snippet})
	}
	return out
}

// sampleFromLocalWalk walks checkoutDir depth-first in stack-pop order,
// skipping the directories named in skippedDirNames, collecting up to
// maxSampledFiles paths.
func sampleFromLocalWalk(checkoutDir string) []sampledFile {
	var out []sampledFile
	type stackEntry struct{ path string }
	stack := []stackEntry{{path: checkoutDir}}

	for len(stack) > 0 && len(out) < maxSampledFiles {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := os.ReadDir(top.path)
		if err != nil {
			continue
		}

		for i := len(entries) - 1; i >= 0; i-- {
			e := entries[i]
			full := filepath.Join(top.path, e.Name())
			if e.IsDir() {
				if _, skip := skippedDirNames[e.Name()]; skip {
					continue
				}
				stack = append(stack, stackEntry{path: full})
				continue
			}
			if len(out) >= maxSampledFiles {
				break
			}
			rel, err := filepath.Rel(checkoutDir, full)
			if err != nil {
				rel = full
			}
			out = append(out, sampledFile{Path: rel, Snippet: readSnippet(full)})
		}
	}
	return out
}

// readSnippet reads up to maxSnippetBytes from path; files larger than
// largeFileCutoff have only their first largeFileReadCap bytes read.
// Unreadable files yield an empty snippet rather than failing sampling.
func readSnippet(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return ""
	}

	readCap := int64(maxSnippetBytes)
	if info.Size() > largeFileCutoff {
		readCap = largeFileReadCap
	}

	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	buf := make([]byte, readCap)
	n, err := f.Read(buf)
	if n == 0 && err != nil {
		return ""
	}
	return truncateSnippet(string(buf[:n]))
}

func truncateSnippet(s string) string {
	if len(s) <= maxSnippetBytes {
		return s
	}
	return strings.TrimRight(s[:maxSnippetBytes], "\n") + "\n..."
}
