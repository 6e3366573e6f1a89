package usage

import "strings"

// DefaultFieldName names a usage whose field could not be determined.
const DefaultFieldName = "Image"

// KeySeparator joins the parts of a usage key.
const KeySeparator = "."

// BuildKey returns "<content type>[.<component>...].<field>" with components
// outermost first. lookup resolves component titles; an empty result falls
// back to the component uid.
func BuildKey(chain []ComponentRef, contentTypeTitle, fieldName string, lookup func(uid string) string) string {
	parts := make([]string, 0, len(chain)+2)
	parts = append(parts, contentTypeTitle)
	for _, c := range chain {
		title := ""
		if lookup != nil {
			title = lookup(c.UID)
		}
		if title == "" {
			title = c.UID
		}
		parts = append(parts, title)
	}
	parts = append(parts, fieldName)
	return strings.Join(parts, KeySeparator)
}
