package dbosruntime

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound is returned when no workflow has the requested id
var ErrNotFound = errors.New("workflow not found")

// WorkflowStatusInfo is one row of the DBOS status table
type WorkflowStatusInfo struct {
	WorkflowUUID string
	Status       string
	Name         string
	Error        string
	CreatedAt    int64
	UpdatedAt    int64
}

const workflowStatusQuery = `
	SELECT workflow_uuid, status, name, COALESCE(error, ''), created_at, updated_at
	FROM dbos.workflow_status
	WHERE workflow_uuid = $1
`

// GetWorkflowStatus retrieves the status of a workflow from the DBOS status table
func (r *Runtime) GetWorkflowStatus(ctx context.Context, workflowUUID string) (*WorkflowStatusInfo, error) {
	return queryWorkflowStatus(ctx, r.db, workflowUUID)
}

func queryWorkflowStatus(ctx context.Context, db *sql.DB, workflowUUID string) (*WorkflowStatusInfo, error) {
	var info WorkflowStatusInfo
	err := db.QueryRowContext(ctx, workflowStatusQuery, workflowUUID).Scan(
		&info.WorkflowUUID,
		&info.Status,
		&info.Name,
		&info.Error,
		&info.CreatedAt,
		&info.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", workflowUUID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query workflow status: %w", err)
	}
	return &info, nil
}
