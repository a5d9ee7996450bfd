// ABOUTME: Operator help pages written in markdown and embedded in the binary
// ABOUTME: Converted to HTML once with goldmark when the admin starts

package webadmin

import (
	"bytes"
	"embed"
	"html/template"
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

//go:embed docs/help/*.md
var helpDocsFS embed.FS

const defaultHelpPage = "getting-started"

// helpOrder puts topics in reading order; unknown topics sort last by slug.
var helpOrder = map[string]int{
	"getting-started": 1,
	"products":        2,
	"images":          3,
	"troubleshooting": 4,
}

// helpPage is one rendered help topic
type helpPage struct {
	Slug    string
	Title   string
	Content template.HTML
}

// helpPages holds every topic, rendered
type helpPages struct {
	bySlug map[string]*helpPage
	order  []*helpPage
}

// loadHelpPages reads and converts the embedded topics. A topic that fails to
// convert is replaced by an error note instead of failing startup.
func loadHelpPages() *helpPages {
	logger := slog.Default().With("component", "admin")
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	pages := &helpPages{bySlug: make(map[string]*helpPage)}

	entries, err := helpDocsFS.ReadDir("docs/help")
	if err != nil {
		logger.Error("failed to read help docs", "error", err)
		return pages
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		slug := strings.TrimSuffix(entry.Name(), ".md")

		src, err := helpDocsFS.ReadFile(path.Join("docs/help", entry.Name()))
		if err != nil {
			logger.Error("failed to read help topic", "topic", slug, "error", err)
			continue
		}

		var buf bytes.Buffer
		if err := md.Convert(src, &buf); err != nil {
			logger.Error("failed to convert markdown", "topic", slug, "error", err)
			buf.Reset()
			buf.WriteString("<p>Failed to render help content.</p>")
		}

		p := &helpPage{
			Slug:    slug,
			Title:   formatHelpTitle(slug),
			Content: template.HTML(buf.String()),
		}
		pages.bySlug[slug] = p
		pages.order = append(pages.order, p)
	}

	sort.Slice(pages.order, func(i, j int) bool {
		oi, oj := topicRank(pages.order[i].Slug), topicRank(pages.order[j].Slug)
		if oi != oj {
			return oi < oj
		}
		return pages.order[i].Slug < pages.order[j].Slug
	})
	return pages
}

func topicRank(slug string) int {
	if n, ok := helpOrder[slug]; ok {
		return n
	}
	return 100
}

func (h *helpPages) get(slug string) (*helpPage, bool) {
	p, ok := h.bySlug[slug]
	return p, ok
}

func (h *helpPages) list() []*helpPage {
	return h.order
}

// formatHelpTitle converts a slug to a display title
func formatHelpTitle(slug string) string {
	words := strings.Split(slug, "-")
	for i, word := range words {
		if word != "" {
			words[i] = strings.ToUpper(word[:1]) + word[1:]
		}
	}
	return strings.Join(words, " ")
}
