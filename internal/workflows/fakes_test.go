package workflows

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-alt-pipeline/internal/contentstack"
	"github.com/tendant/simple-alt-pipeline/internal/document"
	"github.com/tendant/simple-alt-pipeline/internal/openai"
	"github.com/tendant/simple-alt-pipeline/internal/storage"
	"github.com/tendant/simple-alt-pipeline/pkg/pipeline"
)

type fatalError struct{}

func (fatalError) Error() string { return "401 unauthorized" }
func (fatalError) Fatal() bool   { return true }

// fakeCMS serves canned stack data and records description updates.
type fakeCMS struct {
	mu sync.Mutex

	locales      []pipeline.Locale
	assets       map[string][]contentstack.Asset // locale -> assets
	refs         map[string][]pipeline.Reference
	entries      map[string]string // "ct/entry/locale" -> JSON
	contentTypes map[string]string
	titles       map[string]string // "ct/entry/locale" -> title
	updateErrs   map[string]error

	listCalls   []int // skip values
	titleCalls  int
	updates     []string // "uid/locale=text"
	updateCalls int
}

func newFakeCMS() *fakeCMS {
	return &fakeCMS{
		assets:       map[string][]contentstack.Asset{},
		refs:         map[string][]pipeline.Reference{},
		entries:      map[string]string{},
		contentTypes: map[string]string{},
		titles:       map[string]string{},
		updateErrs:   map[string]error{},
	}
}

func (f *fakeCMS) GetLocales(ctx context.Context) ([]pipeline.Locale, error) {
	return f.locales, nil
}

func (f *fakeCMS) ListAssets(ctx context.Context, locale string, skip, limit int) (*contentstack.AssetPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls = append(f.listCalls, skip)

	all := f.assets[locale]
	end := min(skip+limit, len(all))
	page := &contentstack.AssetPage{Count: len(all), Assets: []contentstack.Asset{}}
	if skip < len(all) {
		page.Assets = all[skip:end]
	}
	return page, nil
}

func (f *fakeCMS) GetReferences(ctx context.Context, assetUID string) ([]pipeline.Reference, error) {
	return f.refs[assetUID], nil
}

func (f *fakeCMS) FetchEntry(ctx context.Context, ct, entry, locale string) (document.Value, error) {
	raw, ok := f.entries[ct+"/"+entry+"/"+locale]
	if !ok {
		return document.Value{}, fmt.Errorf("entry %s/%s not found", ct, entry)
	}
	return document.Parse([]byte(raw))
}

func (f *fakeCMS) FetchContentTypeInfo(ctx context.Context, uid string) (pipeline.TypeInfo, error) {
	title, ok := f.contentTypes[uid]
	if !ok {
		return pipeline.TypeInfo{}, errors.New("not found")
	}
	return pipeline.TypeInfo{UID: uid, Title: title}, nil
}

func (f *fakeCMS) FetchComponentInfo(ctx context.Context, uid string) (pipeline.TypeInfo, error) {
	return f.FetchContentTypeInfo(ctx, uid)
}

func (f *fakeCMS) FetchEntryTitle(ctx context.Context, ct, entry, locale string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.titleCalls++
	if t, ok := f.titles[ct+"/"+entry+"/"+locale]; ok {
		return t, nil
	}
	return entry, errors.New("not found")
}

func (f *fakeCMS) UpdateAssetDescription(ctx context.Context, uid, locale, description string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	if err := f.updateErrs[uid]; err != nil {
		return err
	}
	f.updates = append(f.updates, uid+"/"+locale+"="+description)
	return nil
}

// fakeBatchAPI keeps batches in memory and advances them one status per poll.
type fakeBatchAPI struct {
	mu sync.Mutex

	uploads  map[string][]byte // file id -> content
	batches  map[string]*openai.Batch
	statuses map[string][]string // batch id -> remaining statuses
	outputs  map[string]string   // file id -> JSONL
	failNext error

	retrieveCalls int
}

func newFakeBatchAPI() *fakeBatchAPI {
	return &fakeBatchAPI{
		uploads:  map[string][]byte{},
		batches:  map[string]*openai.Batch{},
		statuses: map[string][]string{},
		outputs:  map[string]string{},
	}
}

func (f *fakeBatchAPI) UploadBatchFile(ctx context.Context, filename string, content []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failNext; err != nil {
		f.failNext = nil
		return "", err
	}
	id := fmt.Sprintf("file-%d", len(f.uploads))
	f.uploads[id] = append([]byte(nil), content...)
	return id, nil
}

func (f *fakeBatchAPI) CreateBatch(ctx context.Context, inputFileID string) (*openai.Batch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := fmt.Sprintf("batch_%d", len(f.batches))
	b := &openai.Batch{ID: id, Status: openai.StatusValidating, InputFileID: inputFileID}
	f.batches[id] = b
	return b, nil
}

func (f *fakeBatchAPI) RetrieveBatch(ctx context.Context, batchID string) (*openai.Batch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retrieveCalls++
	b, ok := f.batches[batchID]
	if !ok {
		return nil, fmt.Errorf("batch %s not found", batchID)
	}
	if next := f.statuses[batchID]; len(next) > 0 {
		b.Status = next[0]
		f.statuses[batchID] = next[1:]
	}
	snapshot := *b
	return &snapshot, nil
}

func (f *fakeBatchAPI) DownloadFile(ctx context.Context, fileID string) ([]byte, error) {
	out, ok := f.outputs[fileID]
	if !ok {
		return nil, fmt.Errorf("file %s not found", fileID)
	}
	return []byte(out), nil
}

// fakeFetcher serves a generated PNG for every URL except the failing ones.
type fakeFetcher struct {
	fail   map[string]bool
	width  int
	height int
}

func (f *fakeFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, *storage.Metadata, error) {
	if f.fail[rawURL] {
		return nil, nil, fmt.Errorf("image %s: %w", rawURL, storage.ErrNotFound)
	}
	w, h := f.width, f.height
	if w == 0 {
		w, h = 40, 30
	}
	data := pngBytes(w, h)
	return data, &storage.Metadata{Size: int64(len(data)), ContentType: "image/png"}, nil
}

func pngBytes(w, h int) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// fakeLedger is an in-memory update ledger.
type fakeLedger struct {
	mu      sync.Mutex
	applied map[string]string
	hasErr  error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{applied: map[string]string{}}
}

func (l *fakeLedger) Has(ctx context.Context, uid, locale string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.hasErr != nil {
		return false, l.hasErr
	}
	_, ok := l.applied[uid+"/"+locale]
	return ok, nil
}

func (l *fakeLedger) Record(ctx context.Context, uid, locale, altText, runID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.applied[uid+"/"+locale] = altText
	return nil
}

func newTestStore(t *testing.T) *storage.FilesystemStorage {
	t.Helper()
	store, err := storage.NewFilesystemStorage(t.TempDir())
	require.NoError(t, err)
	return store
}

func writeArtifact(t *testing.T, store *storage.FilesystemStorage, session, name string, v interface{}) {
	t.Helper()
	s, err := store.Session(session)
	require.NoError(t, err)
	require.NoError(t, storage.WriteJSON(context.Background(), s, name, v))
}

func readArtifact(t *testing.T, store *storage.FilesystemStorage, session, name string, v interface{}) {
	t.Helper()
	s, err := store.Session(session)
	require.NoError(t, err)
	require.NoError(t, storage.ReadJSON(context.Background(), s, name, v))
}

func newWorkflowContext(job, session string) *WorkflowContext {
	return &WorkflowContext{
		Ctx:     context.Background(),
		Request: pipeline.ProcessRequest{Job: job, Session: session},
		RunID:   "run-test",
	}
}
