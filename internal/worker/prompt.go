package worker

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/benediktbwimmer/tagging-service/internal/cache"
	"github.com/benediktbwimmer/tagging-service/internal/catalogclient"
)

// templateCache holds template bodies keyed by absolute path, process-wide
// and filled on first use. Reuses the teacher's TTL-based cache.Cache with
// a 24h TTL rather than a bare sync.Once map, since it already gives safe
// concurrent Get/Set and a Clear hook. Entries expire after 24h, and the
// next use then reads the template from disk again.
var templateCache = cache.New(24 * time.Hour)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_]+)\s*\}\}`)

const readmeClipLimit = 4000

func loadTemplate(path string) (string, error) {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	if v, ok := templateCache.Get(path); ok {
		return v.(string), nil
	}

	body, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("prompt: read template %s: %w", path, err)
	}

	tmpl := string(body)
	templateCache.Set(path, tmpl)
	return tmpl, nil
}

// renderTemplate substitutes every {{placeholder}} in tmpl with
// values[placeholder]; an unmatched placeholder becomes the empty string.
func renderTemplate(tmpl string, values map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(tmpl, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		return values[name]
	})
}

func repositorySummary(repo catalogclient.Repository) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", repo.Name)
	if repo.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", repo.Description)
	}
	if repo.DefaultBranch != "" {
		fmt.Fprintf(&b, "Default branch: %s\n", repo.DefaultBranch)
	}
	fmt.Fprintf(&b, "Repository URL: %s\n", repo.URL())
	return b.String()
}

func existingTagsBulletList(tags []catalogclient.Tag) string {
	if len(tags) == 0 {
		return "No existing tags."
	}
	var b strings.Builder
	for _, t := range tags {
		fmt.Fprintf(&b, "- %s: %s\n", t.Key, t.Value)
	}
	return b.String()
}

func clipReadme(readme string) string {
	if readme == "" {
		return "README not available."
	}
	if len(readme) > readmeClipLimit {
		return readme[:readmeClipLimit]
	}
	return readme
}

func fileSummaries(files []sampledFile) string {
	var b strings.Builder
	for _, f := range files {
		fmt.Fprintf(&b, "## %s\n%s\n", f.Path, f.Snippet)
	}
	return b.String()
}

// buildPrompt assembles the rendered prompt per §4.5 step 5.
func buildPrompt(templatePath string, repo catalogclient.Repository, files []sampledFile) (string, error) {
	tmpl, err := loadTemplate(templatePath)
	if err != nil {
		return "", err
	}

	values := map[string]string{
		"repository_summary": repositorySummary(repo),
		"existing_tags":       existingTagsBulletList(repo.Tags),
		"readme":              clipReadme(repo.Readme),
		"file_summaries":      fileSummaries(files),
	}
	return renderTemplate(tmpl, values), nil
}
