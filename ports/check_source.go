package ports

import (
	"context"

	"statadvisor/domain/assumption"
	"statadvisor/domain/core"
)

// CheckSource fetches assumption-check results computed by a statistics backend
type CheckSource interface {
	Fetch(ctx context.Context, datasetID core.DatasetID) (assumption.Checks, error)
}
