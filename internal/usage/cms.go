package usage

import (
	"context"
	"errors"

	"github.com/tendant/simple-alt-pipeline/internal/document"
	"github.com/tendant/simple-alt-pipeline/pkg/pipeline"
)

// CMS is the slice of the content management API that usage analysis needs.
type CMS interface {
	// GetReferences lists the entries that reference an asset. Records may
	// lack a content type or entry uid.
	GetReferences(ctx context.Context, assetUID string) ([]pipeline.Reference, error)

	// FetchEntry returns one entry document in one locale.
	FetchEntry(ctx context.Context, contentTypeUID, entryUID, locale string) (document.Value, error)

	FetchContentTypeInfo(ctx context.Context, uid string) (pipeline.TypeInfo, error)
	FetchComponentInfo(ctx context.Context, uid string) (pipeline.TypeInfo, error)
}

// IsFatal reports whether err means the CMS client itself is unusable, such as
// rejected credentials. Fatal errors abort a run instead of degrading one image.
func IsFatal(err error) bool {
	var f interface{ Fatal() bool }
	return errors.As(err, &f) && f.Fatal()
}
