package parser

import (
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// HTMLParser converts HTML email bodies to markdown-flavoured plain text
type HTMLParser struct {
	whitespaceRegex *regexp.Regexp
	newlineRegex    *regexp.Regexp
	invisibleRegex  *regexp.Regexp
}

// NewHTMLParser creates a new HTML parser
func NewHTMLParser() *HTMLParser {
	return &HTMLParser{
		whitespaceRegex: regexp.MustCompile(`[^\S\n]+`),
		newlineRegex:    regexp.MustCompile(`\n{3,}`),
		// Remove invisible Unicode characters (zero-width spaces, etc.)
		invisibleRegex: regexp.MustCompile(`[\x{200B}-\x{200D}\x{FEFF}\x{00AD}\x{034F}\x{061C}\x{115F}\x{1160}\x{17B4}\x{17B5}\x{180E}\x{2060}-\x{2064}\x{206A}-\x{206F}\x{FE00}-\x{FE0F}\x{FFF0}-\x{FFF8}]+`),
	}
}

// Parse converts HTML to markdown text. Images are dropped, links become
// [text](href), headings keep their level and emphasis is preserved.
func (p *HTMLParser) Parse(body string) (string, error) {
	if strings.TrimSpace(body) == "" {
		return "", nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return "", err
	}

	doc.Find("script, style, head, meta, link, img").Remove()

	doc.Find("b, strong").Each(func(i int, s *goquery.Selection) {
		wrapInline(s, "**")
	})
	doc.Find("i, em").Each(func(i int, s *goquery.Selection) {
		wrapInline(s, "_")
	})

	doc.Find("a[href]").Each(func(i int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		text := strings.TrimSpace(s.Text())
		switch {
		case text == "":
			s.Remove()
		case href == "" || href == text || strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "#"):
			s.ReplaceWithHtml(html.EscapeString(text))
		default:
			s.ReplaceWithHtml(html.EscapeString("[" + text + "](" + href + ")"))
		}
	})

	for level, sel := range []string{"h1", "h2", "h3", "h4", "h5", "h6"} {
		marker := strings.Repeat("#", level+1) + " "
		doc.Find(sel).Each(func(i int, s *goquery.Selection) {
			s.PrependHtml("\n\n" + marker)
			s.AppendHtml("\n\n")
		})
	}

	doc.Find("li").Each(func(i int, s *goquery.Selection) {
		s.PrependHtml("\n- ")
	})
	doc.Find("br").ReplaceWithHtml("\n")

	// Paragraph-level blocks get a blank line, the rest a line break
	doc.Find("p, blockquote, table").Each(func(i int, s *goquery.Selection) {
		s.PrependHtml("\n\n")
		s.AppendHtml("\n\n")
	})
	doc.Find("div, tr, ul, ol").Each(func(i int, s *goquery.Selection) {
		s.PrependHtml("\n")
	})
	doc.Find("td, th").Each(func(i int, s *goquery.Selection) {
		s.AppendHtml(" ")
	})

	text := doc.Text()

	// Remove invisible Unicode characters first
	text = p.invisibleRegex.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "\u00a0", " ")

	// Clean up whitespace (but preserve newlines)
	text = p.whitespaceRegex.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")

	// Normalize newlines (max 2 consecutive)
	text = p.newlineRegex.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text), nil
}

// wrapInline surrounds non-empty inline text with a markdown marker
func wrapInline(s *goquery.Selection, marker string) {
	if strings.TrimSpace(s.Text()) == "" {
		return
	}
	s.PrependHtml(marker)
	s.AppendHtml(marker)
}
