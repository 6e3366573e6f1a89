package usage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tendant/simple-alt-pipeline/internal/document"
	"github.com/tendant/simple-alt-pipeline/pkg/pipeline"
)

var errNetwork = errors.New("network unreachable")

type fatalError struct{}

func (fatalError) Error() string { return "401 unauthorized" }
func (fatalError) Fatal() bool   { return true }

// fakeCMS serves canned data and counts every call.
type fakeCMS struct {
	mu sync.Mutex

	refs         map[string][]pipeline.Reference
	refErrs      map[string]error
	entries      map[string]string // "ct/entry/locale" -> JSON
	entryErrs    map[string]error
	contentTypes map[string]string
	components   map[string]string
	infoErr      error

	refCalls       int
	entryFetches   []string
	ctFetches      map[string]int
	compFetches    map[string]int
	failFirstTitle bool
}

func newFakeCMS() *fakeCMS {
	return &fakeCMS{
		refs:         map[string][]pipeline.Reference{},
		refErrs:      map[string]error{},
		entries:      map[string]string{},
		entryErrs:    map[string]error{},
		contentTypes: map[string]string{},
		components:   map[string]string{},
		ctFetches:    map[string]int{},
		compFetches:  map[string]int{},
	}
}

func entryKey(ct, entry, locale string) string {
	return ct + "/" + entry + "/" + locale
}

func (f *fakeCMS) GetReferences(ctx context.Context, assetUID string) ([]pipeline.Reference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refCalls++
	if err := f.refErrs[assetUID]; err != nil {
		return nil, err
	}
	return f.refs[assetUID], nil
}

func (f *fakeCMS) FetchEntry(ctx context.Context, ct, entry, locale string) (document.Value, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := entryKey(ct, entry, locale)
	f.entryFetches = append(f.entryFetches, key)
	if err := f.entryErrs[key]; err != nil {
		return document.Value{}, err
	}
	raw, ok := f.entries[key]
	if !ok {
		return document.Value{}, fmt.Errorf("entry %s not found", key)
	}
	return document.Parse([]byte(raw))
}

func (f *fakeCMS) FetchContentTypeInfo(ctx context.Context, uid string) (pipeline.TypeInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ctFetches[uid]++
	return f.info(f.contentTypes, uid, f.ctFetches[uid])
}

func (f *fakeCMS) FetchComponentInfo(ctx context.Context, uid string) (pipeline.TypeInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.compFetches[uid]++
	return f.info(f.components, uid, f.compFetches[uid])
}

func (f *fakeCMS) info(titles map[string]string, uid string, attempt int) (pipeline.TypeInfo, error) {
	if f.infoErr != nil {
		return pipeline.TypeInfo{}, f.infoErr
	}
	if f.failFirstTitle && attempt == 1 {
		return pipeline.TypeInfo{}, errNetwork
	}
	title, ok := titles[uid]
	if !ok {
		return pipeline.TypeInfo{}, fmt.Errorf("type %s not found", uid)
	}
	return pipeline.TypeInfo{UID: uid, Title: title}, nil
}

func (f *fakeCMS) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entryFetches)
}
