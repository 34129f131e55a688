package classifier

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	headingRe    = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	hrRe         = regexp.MustCompile(`^(-{3,}|\*{3,}|_{3,})\s*$`)
	quoteRe      = regexp.MustCompile(`^>\s?(.*)$`)
	ulItemRe     = regexp.MustCompile(`^[-*]\s+(.*)$`)
	olItemRe     = regexp.MustCompile(`^\d+\.\s+(.*)$`)
	boldRe       = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	italicRe     = regexp.MustCompile(`\*([^*]+)\*`)
	linkRe       = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	inlineCodeRe = regexp.MustCompile("`([^`]+)`")
	fenceOpenRe  = regexp.MustCompile("^```")
)

var markupHintRe = regexp.MustCompile("(?m)" +
	`^#{1,6}\s|^[-*]\s|^\d+\.\s|^>\s?|^(-{3,}|\*{3,})\s*$|^` + "```" + `|\*\*[^*]+\*\*|\[[^\]]+\]\([^)]+\)|` + "`[^`]+`")

// HasMarkup reports whether the text contains any of the lightweight
// markup constructs TransformMarkup understands. Plain prose is stored
// verbatim instead of being wrapped in paragraph tags.
func HasMarkup(src string) bool {
	return markupHintRe.MatchString(src)
}

// TransformMarkup converts lightweight markup into simple structural HTML.
// The conversion is line oriented and deterministic: headings, horizontal
// rules, blockquotes, ordered and unordered lists, fenced code blocks, and
// the inline spans (bold, italics, links, code). The caller keeps the
// original text; this function never mutates its input.
func TransformMarkup(src string) string {
	lines := strings.Split(src, "\n")
	var out []string

	var listTag string // "ul" or "ol" while inside a list run
	inFence := false
	var fence []string

	closeList := func() {
		if listTag != "" {
			out = append(out, "</"+listTag+">")
			listTag = ""
		}
	}

	for _, line := range lines {
		if inFence {
			if fenceOpenRe.MatchString(line) {
				out = append(out, "<pre><code>"+strings.Join(fence, "\n")+"</code></pre>")
				fence = nil
				inFence = false
			} else {
				fence = append(fence, escapeHTML(line))
			}
			continue
		}

		switch {
		case fenceOpenRe.MatchString(line):
			closeList()
			inFence = true

		case hrRe.MatchString(line):
			closeList()
			out = append(out, "<hr>")

		case headingRe.MatchString(line):
			closeList()
			m := headingRe.FindStringSubmatch(line)
			level := len(m[1])
			out = append(out, fmt.Sprintf("<h%d>%s</h%d>", level, inline(m[2]), level))

		case quoteRe.MatchString(line):
			closeList()
			m := quoteRe.FindStringSubmatch(line)
			out = append(out, "<blockquote>"+inline(m[1])+"</blockquote>")

		case ulItemRe.MatchString(line):
			if listTag != "ul" {
				closeList()
				out = append(out, "<ul>")
				listTag = "ul"
			}
			m := ulItemRe.FindStringSubmatch(line)
			out = append(out, "<li>"+inline(m[1])+"</li>")

		case olItemRe.MatchString(line):
			if listTag != "ol" {
				closeList()
				out = append(out, "<ol>")
				listTag = "ol"
			}
			m := olItemRe.FindStringSubmatch(line)
			out = append(out, "<li>"+inline(m[1])+"</li>")

		case strings.TrimSpace(line) == "":
			closeList()
			out = append(out, "")

		default:
			closeList()
			out = append(out, "<p>"+inline(line)+"</p>")
		}
	}

	// Unterminated fence: emit what was collected.
	if inFence {
		out = append(out, "<pre><code>"+strings.Join(fence, "\n")+"</code></pre>")
	}
	closeList()

	return strings.Join(out, "\n")
}

// inline applies the span-level transforms. Code spans run first so their
// contents are not re-interpreted as emphasis.
func inline(s string) string {
	s = inlineCodeRe.ReplaceAllString(s, "<code>$1</code>")
	s = boldRe.ReplaceAllString(s, "<strong>$1</strong>")
	s = italicRe.ReplaceAllString(s, "<em>$1</em>")
	s = linkRe.ReplaceAllString(s, `<a href="$2">$1</a>`)
	return s
}

func escapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}
