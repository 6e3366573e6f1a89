package usage

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/tendant/simple-alt-pipeline/pkg/pipeline"
)

// BuildKeyGroups indexes images by usage key. Groups are sorted by key in
// collation order and list each image (uid and locale) once, in input order.
// ImageCount is the number of distinct images in the group.
func BuildKeyGroups(images []pipeline.Image) []pipeline.KeyGroup {
	groups := make(map[string]*pipeline.KeyGroup)
	members := make(map[string]map[string]struct{})

	for _, img := range images {
		imageID := img.UID + "|" + img.Locale
		for _, u := range img.Usages {
			g, ok := groups[u.Key]
			if !ok {
				g = &pipeline.KeyGroup{
					Key:                u.Key,
					ContentTypeUID:     u.ContentTypeUID,
					ContentTypeTitle:   u.ContentTypeTitle,
					ComponentHierarchy: u.ComponentHierarchy,
					FieldName:          u.FieldName,
					Images:             []pipeline.ImageRef{},
				}
				groups[u.Key] = g
				members[u.Key] = make(map[string]struct{})
			}
			if _, dup := members[u.Key][imageID]; dup {
				continue
			}
			members[u.Key][imageID] = struct{}{}
			g.Images = append(g.Images, pipeline.ImageRef{
				UID:      img.UID,
				Filename: img.Filename,
				URL:      img.URL,
				Locale:   img.Locale,
			})
			g.ImageCount = len(g.Images)
		}
	}

	out := make([]pipeline.KeyGroup, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	SortKeyGroups(out)
	return out
}

// SortKeyGroups orders groups by key using root-locale collation.
func SortKeyGroups(groups []pipeline.KeyGroup) {
	c := collate.New(language.Und)
	sort.SliceStable(groups, func(i, j int) bool {
		return c.CompareString(groups[i].Key, groups[j].Key) < 0
	})
}

// Keys returns the keys of groups in their current order.
func Keys(groups []pipeline.KeyGroup) []string {
	keys := make([]string, len(groups))
	for i, g := range groups {
		keys[i] = g.Key
	}
	return keys
}

// FilterByKeys keeps images with at least one usage whose key is selected.
// Images without usages are dropped unless includeUnused is set. No selected
// keys keeps no used image.
func FilterByKeys(images []pipeline.Image, keys []string, includeUnused bool) []pipeline.Image {
	selected := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		selected[k] = struct{}{}
	}

	out := make([]pipeline.Image, 0, len(images))
	for _, img := range images {
		if len(img.Usages) == 0 {
			if includeUnused {
				out = append(out, img)
			}
			continue
		}
		for _, u := range img.Usages {
			if _, ok := selected[u.Key]; ok {
				out = append(out, img)
				break
			}
		}
	}
	return out
}
