package interpreter

import (
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"

	"github.com/use-agent/scrapeflow/cleaner"
)

// renderer holds the reusable, goroutine-safe Markdown converter the scrape
// built-ins share when a caller asks for markdown output: it builds exactly
// one converter and reuses it across every request rather than
// constructing one per call.
type renderer struct {
	md *converter.Converter
}

func newRenderer() *renderer {
	return &renderer{md: cleaner.NewMarkdownConverter()}
}

// toMarkdown runs the two-stage pipeline for whole-document scraping: a
// main-content extractor pulls the article out of the surrounding page,
// then html-to-markdown renders it, with an optional reference-style
// citation rewrite.
//
// ExtractMode selects the first stage: "pruning" scores every top-level
// body block and keeps the ones that clear a content-density threshold,
// useful for pages (list/index pages especially) where no single container
// holds "the article"; anything else, including the empty default, uses
// go-readability's single-best-candidate extraction.
func (r *renderer) toMarkdown(rawHTML, sourceURL string, args ScrapeArgs) (string, error) {
	if len(args.IncludeTags) > 0 || len(args.ExcludeTags) > 0 {
		rawHTML = cleaner.FilterContent(rawHTML, args.IncludeTags, args.ExcludeTags)
	}

	var content string
	if args.ExtractMode == "pruning" {
		pruned, err := cleaner.PruneContent(rawHTML)
		if err != nil {
			content = rawHTML
		} else {
			content = pruned
		}
	} else {
		article, _ := cleaner.ExtractContent(rawHTML, sourceURL)
		content = article.Content
	}

	md, err := cleaner.ToMarkdown(r.md, content, sourceURL)
	if err != nil {
		return "", err
	}
	if args.Citations {
		md = cleaner.ConvertToCitations(md)
	}
	return md, nil
}
