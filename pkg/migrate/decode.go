package migrate

import "html"

// DecodeEntities converts HTML entities (named and numeric, single and double
// quotes included) to their literal characters.
func DecodeEntities(value string) string {
	return html.UnescapeString(value)
}
