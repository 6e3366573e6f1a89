package pipeline

// ProcessRequest represents a request to run one pipeline job for a session
type ProcessRequest struct {
	Session       string            `json:"session"`
	Job           string            `json:"job"` // discover, analyze_usages, generate_alt, collect_results, update_descriptions
	Locales       []string          `json:"locales,omitempty"`
	ContentTypes  []string          `json:"content_types,omitempty"` // MIME types kept by discover
	Keys          []string          `json:"keys,omitempty"`          // usage keys kept by analyze_usages
	IncludeUnused bool              `json:"include_unused,omitempty"`
	DryRun        bool              `json:"dry_run,omitempty"`
	Force         bool              `json:"force,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// ProcessResponse represents the response from triggering processing
type ProcessResponse struct {
	RunID   string `json:"run_id"`
	Job     string `json:"job"`
	Session string `json:"session"`
}

// RunStatus is the externally visible state of one pipeline run
type RunStatus struct {
	RunID     string                 `json:"run_id"`
	Name      string                 `json:"name,omitempty"`
	State     string                 `json:"state"`
	CreatedAt int64                  `json:"created_at,omitempty"`
	UpdatedAt int64                  `json:"updated_at,omitempty"`
	Outputs   map[string]interface{} `json:"outputs,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// JobType constants
const (
	JobDiscover           = "discover"
	JobAnalyzeUsages      = "analyze_usages"
	JobGenerateAlt        = "generate_alt"
	JobCollectResults     = "collect_results"
	JobUpdateDescriptions = "update_descriptions"
)

// Artifact names written under a session directory
const (
	ArtifactLanguages      = "languages.json"
	ArtifactImages         = "images.json"
	ArtifactFilteredImages = "filtered-images.json"
	ArtifactBatchInfo      = "batch-info.json"
	ArtifactAltTags        = "alt-tags.json"
	ArtifactResults        = "results.json"
)

// Jobs lists every job in pipeline order
var Jobs = []string{
	JobDiscover,
	JobAnalyzeUsages,
	JobGenerateAlt,
	JobCollectResults,
	JobUpdateDescriptions,
}

// AssetUsages is the response of the single image usage lookup
type AssetUsages struct {
	UID         string         `json:"uid"`
	Locale      string         `json:"locale"`
	UsageStatus string         `json:"usageStatus"`
	Keys        []string       `json:"keys"`
	Usages      []UsageSummary `json:"usages"`
}

// IsJob reports whether job names a pipeline job
func IsJob(job string) bool {
	for _, j := range Jobs {
		if j == job {
			return true
		}
	}
	return false
}
