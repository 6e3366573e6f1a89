package workflows

import (
	"fmt"
	"regexp"

	"github.com/tendant/simple-alt-pipeline/internal/storage"
	"github.com/tendant/simple-alt-pipeline/pkg/pipeline"
)

var sessionPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// ValidateRequest checks the fields every job needs
func ValidateRequest(req pipeline.ProcessRequest) error {
	if req.Job == "" {
		return fmt.Errorf("%w: job is required", ErrInvalidRequest)
	}
	if req.Session == "" {
		return fmt.Errorf("%w: session is required", ErrInvalidRequest)
	}
	if !sessionPattern.MatchString(req.Session) {
		return fmt.Errorf("%w: session %q must be a simple name", ErrInvalidRequest, req.Session)
	}
	return nil
}

// openSession returns the artifact store of the request's session
func openSession(root *storage.FilesystemStorage, req pipeline.ProcessRequest) (*storage.FilesystemStorage, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	store, err := root.Session(req.Session)
	if err != nil {
		return nil, fmt.Errorf("failed to open session %s: %w", req.Session, err)
	}
	return store, nil
}

// failed builds the result of a workflow that stopped on err
func failed(step string, err error) (*WorkflowResult, error) {
	err = fmt.Errorf("%s failed: %w", step, err)
	return &WorkflowResult{Success: false, Error: err.Error()}, err
}
