package translator

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	horizontalSpaceRe = regexp.MustCompile(`[ \t]+`)
	blankLinesRe      = regexp.MustCompile(`\n{3,}`)
	lineEndings       = strings.NewReplacer("\r\n", "\n", "\r", "\n")
)

// Normalize canonicalizes user input before it is chunked and translated.
func Normalize(text string) string {
	text = norm.NFKC.String(text)
	text = lineEndings.Replace(text)
	text = horizontalSpaceRe.ReplaceAllString(text, " ")
	text = blankLinesRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
