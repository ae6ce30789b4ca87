package sheets

import (
	"context"
)

// Ports for outbound adapters.
type (
	// RowWriter replaces the contents of a sheet with header followed by rows.
	RowWriter interface {
		WriteRows(ctx context.Context, sheet string, header []string, rows [][]string) (ref string, err error)
	}
)
