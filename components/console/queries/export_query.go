package queries

import (
	"context"
	"strings"

	gocommand "github.com/goliatone/go-command"

	"github.com/goliatone/go-gmarup-admin/components/console"
)

// ExportInput selects a CSV export of one collection, or the full JSON
// document when Collection is empty or "all".
type ExportInput struct {
	Collection string
}

type exportService interface {
	ExportCSV(ctx context.Context, collection console.Collection) (console.Export, error)
	ExportJSON(ctx context.Context) (console.Export, error)
}

// ExportQuery serializes in-memory collections.
type ExportQuery struct {
	service exportService
}

// NewExportQuery builds the query.
func NewExportQuery(service exportService) *ExportQuery {
	return &ExportQuery{service: service}
}

var _ gocommand.Querier[ExportInput, console.Export] = (*ExportQuery)(nil)

func (q *ExportQuery) Query(ctx context.Context, input ExportInput) (console.Export, error) {
	name := strings.TrimSpace(input.Collection)
	if name == "" || strings.EqualFold(name, "all") {
		return q.service.ExportJSON(ctx)
	}
	kind, err := console.ParseCollection(name)
	if err != nil {
		return console.Export{}, err
	}
	return q.service.ExportCSV(ctx, kind)
}
