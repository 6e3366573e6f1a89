package contentstack

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tendant/simple-alt-pipeline/pkg/pipeline"
)

// Dimension is the pixel size of an image asset.
type Dimension struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Asset is a management API asset.
type Asset struct {
	UID         string     `json:"uid"`
	URL         string     `json:"url"`
	Filename    string     `json:"filename"`
	Title       string     `json:"title"`
	ContentType string     `json:"content_type"`
	Description string     `json:"description"`
	Tags        Tags       `json:"tags"`
	Dimension   *Dimension `json:"dimension,omitempty"`
}

// HasTag reports whether the asset carries tag.
func (a *Asset) HasTag(tag string) bool {
	for _, t := range a.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// ToImage converts the asset into a pipeline image for locale.
func (a *Asset) ToImage(locale pipeline.Locale) pipeline.Image {
	img := pipeline.Image{
		UID:         a.UID,
		URL:         a.URL,
		Filename:    a.Filename,
		Title:       a.Title,
		ContentType: a.ContentType,
		Description: a.Description,
		Tags:        []string(a.Tags),
		Locale:      locale.Code,
		LocaleName:  locale.Name,
		Status:      pipeline.StatusActive,
	}
	if a.Dimension != nil {
		img.Width = a.Dimension.Width
		img.Height = a.Dimension.Height
	}
	return img
}

// Tags accepts both plain strings and {"uid": ...} objects.
type Tags []string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Tags) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*t = nil
		return nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to decode tags: %w", err)
	}

	tags := make(Tags, 0, len(raw))
	for _, r := range raw {
		var s string
		if err := json.Unmarshal(r, &s); err == nil {
			tags = append(tags, s)
			continue
		}
		var obj struct {
			UID string `json:"uid"`
		}
		if err := json.Unmarshal(r, &obj); err != nil {
			return fmt.Errorf("failed to decode tag %s: %w", string(r), err)
		}
		if obj.UID != "" {
			tags = append(tags, obj.UID)
		}
	}
	*t = tags
	return nil
}

// AssetPage is one page of an asset listing.
type AssetPage struct {
	Assets []Asset `json:"assets"`
	Count  int     `json:"count"`
}

type referenceRecord struct {
	ContentTypeUID    string `json:"content_type_uid"`
	AltContentTypeUID string `json:"_content_type_uid"`
	EntryUID          string `json:"entry_uid"`
	UID               string `json:"uid"`
	Locale            string `json:"locale"`
}

func (r referenceRecord) toReference() pipeline.Reference {
	ref := pipeline.Reference{
		ContentTypeUID: r.ContentTypeUID,
		EntryUID:       r.EntryUID,
		Locale:         r.Locale,
	}
	if ref.ContentTypeUID == "" {
		ref.ContentTypeUID = r.AltContentTypeUID
	}
	if ref.EntryUID == "" {
		ref.EntryUID = r.UID
	}
	return ref
}

// parseReferences accepts a bare array, {"references": [...]} or {"items": [...]}.
func parseReferences(data []byte) ([]pipeline.Reference, error) {
	var records []referenceRecord

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("failed to decode references: %w", err)
		}
	} else {
		var wrapped struct {
			References []referenceRecord `json:"references"`
			Items      []referenceRecord `json:"items"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, fmt.Errorf("failed to decode references: %w", err)
		}
		records = wrapped.References
		if records == nil {
			records = wrapped.Items
		}
	}

	refs := make([]pipeline.Reference, 0, len(records))
	for _, r := range records {
		refs = append(refs, r.toReference())
	}
	return refs, nil
}

// entryTitleFields are tried in order when naming an entry.
var entryTitleFields = []string{"title", "name", "entryTitle", "entry_title"}

// IsBlank reports whether a description is empty or whitespace.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
