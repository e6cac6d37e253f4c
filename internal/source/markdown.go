package source

import (
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"go.abhg.dev/goldmark/toc"
)

var markdown = goldmark.New(
	goldmark.WithParserOptions(
		parser.WithAutoHeadingID(),
	),
)

// markdownTitle returns the text of the first top-level heading, or "" if the
// document has no headings.
func markdownTitle(source []byte) string {
	doc := markdown.Parser().Parse(text.NewReader(source))

	tree, err := toc.Inspect(doc, source,
		toc.MinDepth(1),
		toc.Compact(true), // Promote H2 when there is no H1
	)
	if err != nil || len(tree.Items) == 0 {
		return ""
	}
	return string(tree.Items[0].Title)
}
