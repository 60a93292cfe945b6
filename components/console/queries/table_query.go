package queries

import (
	"context"

	gocommand "github.com/goliatone/go-command"

	"github.com/goliatone/go-gmarup-admin/components/console"
)

// TableInput selects a collection and its filter criteria.
type TableInput struct {
	Collection string
	Criteria   console.Criteria
}

type tableService interface {
	Filter(collection console.Collection, crit console.Criteria) (console.TableView, error)
}

// TableQuery projects a filtered collection into a table view.
type TableQuery struct {
	service tableService
}

// NewTableQuery builds the query.
func NewTableQuery(service tableService) *TableQuery {
	return &TableQuery{service: service}
}

var _ gocommand.Querier[TableInput, console.TableView] = (*TableQuery)(nil)

// Query filters the in-memory collection. State is never modified.
func (q *TableQuery) Query(_ context.Context, input TableInput) (console.TableView, error) {
	kind, err := console.ParseCollection(input.Collection)
	if err != nil {
		return console.TableView{}, err
	}
	return q.service.Filter(kind, input.Criteria)
}

type statsService interface {
	Stats() console.Stats
}

// StatsQuery returns the headline counters.
type StatsQuery struct {
	service statsService
}

// NewStatsQuery builds the query.
func NewStatsQuery(service statsService) *StatsQuery {
	return &StatsQuery{service: service}
}

var _ gocommand.Querier[struct{}, console.Stats] = (*StatsQuery)(nil)

func (q *StatsQuery) Query(context.Context, struct{}) (console.Stats, error) {
	return q.service.Stats(), nil
}

type settingsFormService interface {
	SettingsForm() console.SettingsForm
}

// SettingsFormQuery projects the current settings into form fields.
type SettingsFormQuery struct {
	service settingsFormService
}

// NewSettingsFormQuery builds the query.
func NewSettingsFormQuery(service settingsFormService) *SettingsFormQuery {
	return &SettingsFormQuery{service: service}
}

var _ gocommand.Querier[struct{}, console.SettingsForm] = (*SettingsFormQuery)(nil)

func (q *SettingsFormQuery) Query(context.Context, struct{}) (console.SettingsForm, error) {
	return q.service.SettingsForm(), nil
}
