package workflows

import (
	"github.com/tendant/simple-alt-pipeline/internal/storage"
	"github.com/tendant/simple-alt-pipeline/internal/throttle"
	"github.com/tendant/simple-alt-pipeline/internal/usage"
	"github.com/tendant/simple-alt-pipeline/pkg/pipeline"
)

// CMS is everything the pipeline needs from the content management API
type CMS interface {
	usage.CMS
	AssetSource
	EntryTitler
	DescriptionUpdater
}

// Dependencies wires the pipeline workflows
type Dependencies struct {
	CMS       CMS
	Batches   BatchAPI // nil allows dry runs only
	Images    ImageFetcher
	Ledger    Ledger // optional
	Store     *storage.FilesystemStorage
	MaxAssets int

	Analyzer usage.Options
	Generate GenerateOptions

	PollThrottle   throttle.Throttle
	UpdateThrottle throttle.Throttle
}

// RegisterPipeline registers the five pipeline workflows on runner
func RegisterPipeline(runner *WorkflowRunner, deps Dependencies) {
	runner.Register(pipeline.JobDiscover, NewDiscoverWorkflow(deps.CMS, deps.Store, deps.MaxAssets))
	runner.Register(pipeline.JobAnalyzeUsages, NewAnalyzeWorkflow(usage.NewAnalyzer(deps.CMS, deps.Analyzer), deps.Store))
	runner.Register(pipeline.JobGenerateAlt, NewGenerateWorkflow(deps.Batches, deps.CMS, NewPreviewer(deps.Images), deps.Store, deps.Generate))
	runner.Register(pipeline.JobCollectResults, NewCollectWorkflow(deps.Batches, deps.Store, deps.PollThrottle))
	runner.Register(pipeline.JobUpdateDescriptions, NewUpdateWorkflow(deps.CMS, deps.Ledger, deps.Store, deps.UpdateThrottle))
}
