package migrate

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var floatPattern = regexp.MustCompile(`(?is)float\s*:\s*(right|left)`)

// imageTag is the byte span of a matched <img> tag within the scanned text.
type imageTag struct {
	start int
	end   int
	src   string
	align Alignment
}

// scanImageTags returns, in order, every <img> tag whose src starts with "/"
// or with baseURI followed by "/". Spans are byte offsets into text.
func scanImageTags(text, baseURI string) []imageTag {
	var tags []imageTag

	z := html.NewTokenizer(strings.NewReader(text))
	offset := 0
	for {
		tt := z.Next()
		// Raw must be measured before TagName/TagAttr touch the buffer.
		start := offset
		offset += len(z.Raw())

		switch tt {
		case html.ErrorToken:
			return tags
		case html.StartTagToken, html.SelfClosingTagToken:
			// Tags inside script, noscript, iframe, textarea and the like
			// are scanned too, as is everything after an unclosed one.
			z.NextIsNotRawText()
			name, hasAttr := z.TagName()
			if string(name) != "img" || !hasAttr {
				continue
			}
			src, style, ok := imageAttrs(z)
			if !ok || !matchesSource(src, baseURI) {
				continue
			}
			tags = append(tags, imageTag{
				start: start,
				end:   offset,
				src:   src,
				align: alignmentOf(style),
			})
		}
	}
}

func imageAttrs(z *html.Tokenizer) (src, style string, hasSrc bool) {
	for {
		key, val, more := z.TagAttr()
		switch string(key) {
		case "src":
			if !hasSrc {
				src, hasSrc = string(val), true
			}
		case "style":
			style = string(val)
		}
		if !more {
			return src, style, hasSrc
		}
	}
}

func matchesSource(src, baseURI string) bool {
	if strings.HasPrefix(src, "/") {
		return true
	}
	if baseURI == "" || len(src) < len(baseURI) {
		return false
	}
	if !strings.EqualFold(src[:len(baseURI)], baseURI) {
		return false
	}
	return strings.HasPrefix(src[len(baseURI):], "/")
}

func alignmentOf(style string) Alignment {
	m := floatPattern.FindStringSubmatch(style)
	if m == nil {
		return AlignNone
	}
	return Alignment(strings.ToLower(m[1]))
}
