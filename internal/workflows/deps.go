package workflows

import (
	"context"

	"github.com/tendant/simple-alt-pipeline/internal/contentstack"
	"github.com/tendant/simple-alt-pipeline/internal/openai"
	"github.com/tendant/simple-alt-pipeline/internal/storage"
	"github.com/tendant/simple-alt-pipeline/pkg/pipeline"
)

// AssetSource lists a stack's locales and assets
type AssetSource interface {
	GetLocales(ctx context.Context) ([]pipeline.Locale, error)
	ListAssets(ctx context.Context, locale string, skip, limit int) (*contentstack.AssetPage, error)
}

// EntryTitler names entries for usage context
type EntryTitler interface {
	FetchEntryTitle(ctx context.Context, contentTypeUID, entryUID, locale string) (string, error)
}

// DescriptionUpdater writes generated ALT text back to an asset
type DescriptionUpdater interface {
	UpdateAssetDescription(ctx context.Context, assetUID, locale, description string) error
}

// BatchAPI submits and tracks LLM batches
type BatchAPI interface {
	UploadBatchFile(ctx context.Context, filename string, content []byte) (string, error)
	CreateBatch(ctx context.Context, inputFileID string) (*openai.Batch, error)
	RetrieveBatch(ctx context.Context, batchID string) (*openai.Batch, error)
	DownloadFile(ctx context.Context, fileID string) ([]byte, error)
}

// ImageFetcher downloads image bytes
type ImageFetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, *storage.Metadata, error)
}

// Ledger remembers which descriptions were already written
type Ledger interface {
	Has(ctx context.Context, assetUID, locale string) (bool, error)
	Record(ctx context.Context, assetUID, locale, altText, runID string) error
}
