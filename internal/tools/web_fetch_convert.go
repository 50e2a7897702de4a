package tools

import (
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
)

// Readability hands back cleaned article HTML; htmlToMarkdown converts
// it for the default extract mode, falling back to a tag strip when the
// converter rejects the input.
func htmlToMarkdown(html string) string {
	converter := md.NewConverter("", true, nil)
	markdown, err := converter.ConvertString(html)
	if err != nil {
		return normalizeWhitespace(stripHTMLTags(html))
	}
	return strings.TrimSpace(markdown)
}

var (
	reScript  = regexp.MustCompile(`(?is)<script[\s\S]*?</script>`)
	reStyle   = regexp.MustCompile(`(?is)<style[\s\S]*?</style>`)
	reComment = regexp.MustCompile(`<!--[\s\S]*?-->`)
	reTag     = regexp.MustCompile(`<[^>]+>`)
	reMultiSP = regexp.MustCompile(`[ \t]{2,}`)
)

// stripHTMLTags is the plain-text path: drop script/style/comment
// blocks, then every remaining tag.
func stripHTMLTags(html string) string {
	s := reScript.ReplaceAllString(html, "")
	s = reStyle.ReplaceAllString(s, "")
	s = reComment.ReplaceAllString(s, "")
	s = reTag.ReplaceAllString(s, "")
	return decodeHTMLEntities(s)
}

// normalizeWhitespace collapses blank runs in extracted plain text.
func normalizeWhitespace(text string) string {
	s := reMultiSP.ReplaceAllString(text, " ")
	lines := strings.Split(s, "\n")
	var clean []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			clean = append(clean, line)
		}
	}
	return strings.Join(clean, "\n")
}

// decodeHTMLEntities handles common HTML entities.
func decodeHTMLEntities(s string) string {
	replacer := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&apos;", "'",
		"&nbsp;", " ",
		"&mdash;", "—",
		"&ndash;", "–",
		"&hellip;", "...",
	)
	return replacer.Replace(s)
}
