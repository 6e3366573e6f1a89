package pipeline

import "time"

// Usage status values
const (
	UsageUsed   = "used"
	UsageUnused = "unused"
)

// Image status values
const (
	StatusActive  = "active"
	StatusIgnored = "ignored"
)

// Update status values
const (
	UpdateSuccess = "success"
	UpdateFailed  = "failed"
	UpdateSkipped = "skipped"
	UpdateDryRun  = "dry_run"
)

// DefaultLocale is used when neither a reference nor its image carries a locale.
const DefaultLocale = "en-us"

// Image is a CMS asset selected for ALT text generation in one locale.
type Image struct {
	UID              string         `json:"uid"`
	URL              string         `json:"url"`
	Filename         string         `json:"filename"`
	Title            string         `json:"title,omitempty"`
	ContentType      string         `json:"contentType"`
	Description      string         `json:"description"`
	Tags             []string       `json:"tags,omitempty"`
	Locale           string         `json:"locale"`
	LocaleName       string         `json:"localeName,omitempty"`
	Width            int            `json:"width,omitempty"`
	Height           int            `json:"height,omitempty"`
	FileSize         int64          `json:"fileSize,omitempty"`
	Usages           []UsageSummary `json:"usages"`
	UsageStatus      string         `json:"usageStatus,omitempty"`
	Status           string         `json:"status,omitempty"`
	GeneratedAltText string         `json:"generatedAltText,omitempty"`
	UpdateStatus     string         `json:"updateStatus,omitempty"`
	UpdateError      string         `json:"updateError,omitempty"`
}

// ComponentSummary is one resolved level of a usage's component chain.
type ComponentSummary struct {
	UID       string `json:"uid"`
	Title     string `json:"title"`
	FieldName string `json:"fieldName"`
}

// UsageSummary is the persisted form of one usage site.
type UsageSummary struct {
	ContentTypeUID     string             `json:"contentTypeUid"`
	ContentTypeTitle   string             `json:"contentTypeTitle"`
	EntryUID           string             `json:"entryUid"`
	Locale             string             `json:"locale"`
	FieldName          string             `json:"fieldName"`
	Key                string             `json:"key"`
	ComponentHierarchy []ComponentSummary `json:"componentHierarchy"`
}

// ImageRef is the compact image form stored in a key group.
type ImageRef struct {
	UID      string `json:"uid"`
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Locale   string `json:"locale"`
}

// KeyGroup collects every image used under one usage key.
type KeyGroup struct {
	Key                string             `json:"key"`
	ContentTypeUID     string             `json:"contentTypeUid"`
	ContentTypeTitle   string             `json:"contentTypeTitle"`
	ComponentHierarchy []ComponentSummary `json:"componentHierarchy"`
	FieldName          string             `json:"fieldName"`
	ImageCount         int                `json:"imageCount"`
	Images             []ImageRef         `json:"images"`
}

// Reference is one "this entry references the asset" record.
type Reference struct {
	ContentTypeUID string `json:"contentTypeUid"`
	EntryUID       string `json:"entryUid"`
	Locale         string `json:"locale,omitempty"`
}

// TypeInfo is the {uid, title} metadata of a content type or component.
type TypeInfo struct {
	UID   string `json:"uid"`
	Title string `json:"title"`
}

// Locale is a CMS language.
type Locale struct {
	Code string `json:"code"`
	Name string `json:"name"`
	UID  string `json:"uid,omitempty"`
}

// UsageReport summarizes one batch usage analysis.
type UsageReport struct {
	ImagesAnalyzed     int `json:"imagesAnalyzed"`
	UsagesFound        int `json:"usagesFound"`
	ImagesWithoutUsage int `json:"imagesWithoutUsage"`
	Anomalies          int `json:"anomalies"`
	SkippedReferences  int `json:"skippedReferences"`
	FailedEntries      int `json:"failedEntries"`
	TruncatedEntries   int `json:"truncatedEntries"`
	DistinctKeys       int `json:"distinctKeys"`
}

// FilteredImages is the analyze_usages artifact.
type FilteredImages struct {
	TotalImages    int         `json:"totalImages"`
	FilteredImages int         `json:"filteredImages"`
	SelectedKeys   []string    `json:"selectedKeys"`
	KeyGroups      []KeyGroup  `json:"keyGroups"`
	Summary        UsageReport `json:"summary"`
	Images         []Image     `json:"images"`
}

// BatchEntry maps one submitted batch to the slice of images it covers.
type BatchEntry struct {
	BatchIndex      int    `json:"batchIndex"`
	BatchID         string `json:"batchId"`
	InputFileID     string `json:"inputFileId,omitempty"`
	RequestFile     string `json:"requestFile"`
	ImageStartIndex int    `json:"imageStartIndex"`
	ImageEndIndex   int    `json:"imageEndIndex"`
}

// ImageRequest ties a batch custom id to its image. CustomID is empty when
// the request could not be prepared; Error then says why.
type ImageRequest struct {
	CustomID string `json:"customId"`
	UID      string `json:"uid"`
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Locale   string `json:"locale"`
	Context  string `json:"context,omitempty"`
	Error    string `json:"error,omitempty"`
}

// BatchInfo is the generate_alt artifact.
type BatchInfo struct {
	Batches       []BatchEntry   `json:"batches"`
	ImageMetadata []ImageRequest `json:"imageMetadata"`
	TotalRequests int            `json:"totalRequests"`
	TotalImages   int            `json:"totalImages"`
	Model         string         `json:"model"`
	DryRun        bool           `json:"dryRun"`
	CreatedAt     time.Time      `json:"createdAt"`
}

// TokenUsage is the summed token consumption of a set of batch results.
type TokenUsage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// AltTag is the generated ALT text for one image.
type AltTag struct {
	CustomID string `json:"customId"`
	UID      string `json:"uid"`
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Locale   string `json:"locale"`
	AltText  string `json:"altText"`
	Error    string `json:"error,omitempty"`
}

// BatchState is the last observed state of one submitted batch.
type BatchState struct {
	BatchIndex int    `json:"batchIndex"`
	BatchID    string `json:"batchId"`
	Status     string `json:"status"`
	Completed  int    `json:"completed"`
	Failed     int    `json:"failed"`
	Total      int    `json:"total"`
}

// AltTags is the collect_results artifact.
type AltTags struct {
	Results     []AltTag     `json:"results"`
	Batches     []BatchState `json:"batches"`
	Successful  int          `json:"successful"`
	Failed      int          `json:"failed"`
	Usage       TokenUsage   `json:"usage"`
	CollectedAt time.Time    `json:"collectedAt"`
}

// UpdateResult is the outcome of writing one description back to the CMS.
type UpdateResult struct {
	UID     string `json:"uid"`
	Locale  string `json:"locale"`
	AltText string `json:"altText"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
}

// UpdateResults is the update_descriptions artifact.
type UpdateResults struct {
	Results   []UpdateResult `json:"results"`
	Updated   int            `json:"updated"`
	Skipped   int            `json:"skipped"`
	Failed    int            `json:"failed"`
	DryRun    bool           `json:"dryRun"`
	UpdatedAt time.Time      `json:"updatedAt"`
}
