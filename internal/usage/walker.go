package usage

import (
	"strconv"
	"strings"

	"github.com/tendant/simple-alt-pipeline/internal/document"
)

// DefaultMaxDepth bounds how many nested containers Walk descends into.
const DefaultMaxDepth = 64

// metadataKeys are structural entry fields that never hold asset references.
var metadataKeys = map[string]struct{}{
	"uid":        {},
	"_version":   {},
	"updated_at": {},
	"created_at": {},
	"ACL":        {},
	"_owner":     {},
	"sys":        {},
}

// Step is one field name or array index of a location path.
type Step struct {
	Key     string
	Index   int
	IsIndex bool
}

func fieldStep(key string) Step { return Step{Key: key} }

func indexStep(i int) Step { return Step{Key: strconv.Itoa(i), Index: i, IsIndex: true} }

func (s Step) String() string { return s.Key }

// ComponentRef is one enclosing component of a location, outermost first.
type ComponentRef struct {
	UID       string
	FieldName string
}

// Location is one place inside an entry where the target asset is referenced.
type Location struct {
	Path       []Step
	FieldName  string
	Components []ComponentRef

	ContentTypeUID string
	EntryUID       string
	Locale         string
}

// PathString renders the path as dot-separated steps, e.g. "sections.2.image".
func (l Location) PathString() string {
	parts := make([]string, len(l.Path))
	for i, s := range l.Path {
		parts[i] = s.String()
	}
	return strings.Join(parts, ".")
}

// Walk returns every location in node that references target, in document order.
func Walk(target string, node document.Value) []Location {
	found, _ := WalkLimited(target, node, DefaultMaxDepth)
	return found
}

// WalkLimited is Walk with an explicit depth bound. Subtrees nested deeper than
// maxDepth containers are not searched and truncated is reported as true.
func WalkLimited(target string, node document.Value, maxDepth int) (found []Location, truncated bool) {
	if target == "" {
		return nil, false
	}
	w := &walker{target: target, maxDepth: maxDepth}
	w.walk(node, nil, nil, 0)
	return w.found, w.truncated
}

type walker struct {
	target    string
	maxDepth  int
	found     []Location
	truncated bool
}

func (w *walker) walk(node document.Value, path []Step, chain []ComponentRef, depth int) {
	if depth > w.maxDepth {
		w.truncated = true
		return
	}

	switch node.Kind() {
	case document.Object:
		for _, m := range node.Members() {
			if _, skip := metadataKeys[m.Key]; skip {
				continue
			}
			w.field(m.Key, fieldStep(m.Key), m.Value, path, chain, depth)
		}
	case document.Array:
		// A bare array is searched like an object keyed by index.
		for i, item := range node.Elements() {
			step := indexStep(i)
			w.field(step.Key, step, item, path, chain, depth)
		}
	}
}

func (w *walker) field(key string, step Step, value document.Value, path []Step, chain []ComponentRef, depth int) {
	fieldPath := appendStep(path, step)

	switch value.Kind() {
	case document.String:
		if s, _ := value.Str(); s == w.target {
			w.emit(fieldPath, key, chain)
		}
	case document.Array:
		for i, item := range value.Elements() {
			itemPath := appendStep(fieldPath, indexStep(i))
			switch item.Kind() {
			case document.String:
				if s, _ := item.Str(); s == w.target {
					w.emit(itemPath, key, chain)
				}
			case document.Object, document.Array:
				w.descend(item, itemPath, key, chain, depth)
			}
		}
	case document.Object:
		w.descend(value, fieldPath, key, chain, depth)
	}
}

// descend enters a container held under fieldName. Components extend the
// chain, and an object whose own identity is the target is a match by itself.
func (w *walker) descend(node document.Value, path []Step, fieldName string, chain []ComponentRef, depth int) {
	childChain := chain
	if uid, ok := componentUID(node); ok {
		childChain = appendComponent(chain, ComponentRef{UID: uid, FieldName: fieldName})
	}
	if hasIdentity(node, w.target) {
		w.emit(path, fieldName, childChain)
		return
	}
	w.walk(node, path, childChain, depth+1)
}

func (w *walker) emit(path []Step, fieldName string, chain []ComponentRef) {
	loc := Location{
		Path:       append([]Step(nil), path...),
		FieldName:  fieldName,
		Components: append([]ComponentRef{}, chain...),
	}
	w.found = append(w.found, loc)
}

// componentUID returns the type marker of a component object.
func componentUID(node document.Value) (string, bool) {
	for _, key := range []string{"_content_type_uid", "content_type_uid"} {
		if uid, ok := node.GetString(key); ok && uid != "" {
			return uid, true
		}
	}
	return "", false
}

// hasIdentity reports whether the object's uid or sys.uid equals target.
func hasIdentity(node document.Value, target string) bool {
	if uid, ok := node.GetString("uid"); ok && uid == target {
		return true
	}
	if sys, ok := node.Get("sys"); ok {
		if uid, ok := sys.GetString("uid"); ok && uid == target {
			return true
		}
	}
	return false
}

func appendStep(path []Step, s Step) []Step {
	out := make([]Step, len(path)+1)
	copy(out, path)
	out[len(path)] = s
	return out
}

func appendComponent(chain []ComponentRef, c ComponentRef) []ComponentRef {
	out := make([]ComponentRef, len(chain)+1)
	copy(out, chain)
	out[len(chain)] = c
	return out
}
