package commands

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-gmarup-admin/components/console"
)

type stubTelemetry struct {
	events []string
}

func (s *stubTelemetry) Record(_ context.Context, event string, _ map[string]any) {
	s.events = append(s.events, event)
}

type stubService struct {
	updates    []console.Patch
	deletes    []console.RecordID
	edits      int
	loadAll    int
	reloads    []console.Collection
	saved      console.Settings
	resets     int
	report     console.LoadReport
	err        error
	lastKind   console.Collection
	lastCtx    context.Context
	saveResult console.SettingsSaveResult
}

func (s *stubService) Update(ctx context.Context, kind console.Collection, _ console.RecordID, patch console.Patch) error {
	s.lastCtx, s.lastKind = ctx, kind
	s.updates = append(s.updates, patch)
	return s.err
}

func (s *stubService) Delete(_ context.Context, kind console.Collection, id console.RecordID) error {
	s.lastKind = kind
	s.deletes = append(s.deletes, id)
	return s.err
}

func (s *stubService) EditStatus(_ context.Context, kind console.Collection, _ console.RecordID) (bool, error) {
	s.lastKind = kind
	s.edits++
	return s.err == nil, s.err
}

func (s *stubService) LoadAll(context.Context) console.LoadReport {
	s.loadAll++
	return s.report
}

func (s *stubService) Reload(_ context.Context, c console.Collection) error {
	s.reloads = append(s.reloads, c)
	return s.err
}

func (s *stubService) SaveSettings(_ context.Context, settings console.Settings) (console.SettingsSaveResult, error) {
	s.saved = settings
	return s.saveResult, s.err
}

func (s *stubService) ResetTodayVisitors(context.Context) (int, error) {
	s.resets++
	return 3, s.err
}

type stubGate struct {
	password string
	logouts  int
}

func (g *stubGate) Login(_ context.Context, password string) error {
	if password != g.password {
		return console.ErrInvalidPassword
	}
	return nil
}

func (g *stubGate) Logout(context.Context) error {
	g.logouts++
	return nil
}

func TestUpdateRecordCommand(t *testing.T) {
	service := &stubService{}
	telemetry := &stubTelemetry{}
	cmd := NewUpdateRecordCommand(service, telemetry)
	notes := "called back"
	err := cmd.Execute(context.Background(), UpdateRecordInput{
		Collection: "registrations",
		ID:         "7",
		Status:     "contacted",
		Notes:      &notes,
		ActorID:    "operator",
	})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if len(service.updates) != 1 || service.updates[0].Status != "contacted" || *service.updates[0].Notes != notes {
		t.Fatalf("unexpected patch %+v", service.updates)
	}
	if service.lastKind != console.CollectionRegistrations {
		t.Fatalf("expected registrations, got %s", service.lastKind)
	}
	if len(telemetry.events) != 1 || telemetry.events[0] != "console.command.update" {
		t.Fatalf("expected update telemetry, got %v", telemetry.events)
	}
}

func TestUpdateRecordCommandValidates(t *testing.T) {
	cmd := NewUpdateRecordCommand(&stubService{}, nil)
	if err := cmd.Execute(context.Background(), UpdateRecordInput{Collection: "registrations", ID: "1"}); err == nil {
		t.Fatalf("expected error for empty patch")
	}
	if err := cmd.Execute(context.Background(), UpdateRecordInput{Collection: "registrations", Status: "new"}); err == nil {
		t.Fatalf("expected error for missing id")
	}
	err := cmd.Execute(context.Background(), UpdateRecordInput{Collection: "payments", ID: "1", Status: "new"})
	if !errors.Is(err, console.ErrUnknownCollection) {
		t.Fatalf("expected ErrUnknownCollection, got %v", err)
	}
	if err := NewUpdateRecordCommand(nil, nil).Execute(context.Background(), UpdateRecordInput{}); err == nil {
		t.Fatalf("expected error without service")
	}
}

func TestCycleStatusCommand(t *testing.T) {
	service := &stubService{}
	cmd := NewCycleStatusCommand(service, nil)
	if err := cmd.Execute(context.Background(), CycleStatusInput{Collection: "donations", ID: "DON_1"}); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if service.edits != 1 || service.lastKind != console.CollectionDonations {
		t.Fatalf("expected one donation edit, got %d %s", service.edits, service.lastKind)
	}
}

func TestDeleteRecordCommand(t *testing.T) {
	service := &stubService{}
	cmd := NewDeleteRecordCommand(service, nil)
	if err := cmd.Execute(context.Background(), DeleteRecordInput{Collection: "donations", ID: "4"}); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if len(service.deletes) != 1 || service.deletes[0] != "4" {
		t.Fatalf("expected delete of 4, got %v", service.deletes)
	}
	service.err = console.ErrRecordNotFound
	err := cmd.Execute(context.Background(), DeleteRecordInput{Collection: "donations", ID: "9"})
	if !errors.Is(err, console.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestRefreshCommand(t *testing.T) {
	service := &stubService{report: console.LoadReport{SettingsOrigin: console.SettingsFromServer}}
	telemetry := &stubTelemetry{}
	cmd := NewRefreshCommand(service, telemetry)
	if err := cmd.Execute(context.Background(), RefreshInput{}); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if service.loadAll != 1 {
		t.Fatalf("expected LoadAll call")
	}
	if err := cmd.Execute(context.Background(), RefreshInput{Collection: "analytics"}); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if len(service.reloads) != 1 || service.reloads[0] != console.CollectionAnalytics {
		t.Fatalf("expected analytics reload, got %v", service.reloads)
	}
	if len(telemetry.events) != 2 {
		t.Fatalf("expected two telemetry events, got %v", telemetry.events)
	}
}

func TestRefreshCommandReportsPartialFailure(t *testing.T) {
	offline := errors.New("offline")
	service := &stubService{report: console.LoadReport{
		Failed: []console.Collection{console.CollectionDonations},
		Errors: map[console.Collection]error{console.CollectionDonations: offline},
	}}
	err := NewRefreshCommand(service, nil).Execute(context.Background(), RefreshInput{})
	if !errors.Is(err, offline) {
		t.Fatalf("expected joined load error, got %v", err)
	}
}

func TestSaveSettingsCommand(t *testing.T) {
	service := &stubService{saveResult: console.SettingsSaveResult{SavedLocally: true}}
	cmd := NewSaveSettingsCommand(service, nil)
	if err := cmd.Execute(context.Background(), SaveSettingsInput{}); err == nil {
		t.Fatalf("expected error for empty settings")
	}
	settings := console.Settings{"site_title": "GmarUp"}
	if err := cmd.Execute(context.Background(), SaveSettingsInput{Settings: settings}); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if service.saved.String("site_title") != "GmarUp" {
		t.Fatalf("expected settings to reach the service, got %v", service.saved)
	}
}

func TestResetVisitorsCommand(t *testing.T) {
	service := &stubService{}
	telemetry := &stubTelemetry{}
	if err := NewResetVisitorsCommand(service, telemetry).Execute(context.Background(), ResetVisitorsInput{}); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if service.resets != 1 || len(telemetry.events) != 1 {
		t.Fatalf("expected one reset with telemetry")
	}
}

func TestLoginLogoutCommands(t *testing.T) {
	gate := &stubGate{password: "secret"}
	login := NewLoginCommand(gate, nil)
	if err := login.Execute(context.Background(), LoginInput{}); err == nil {
		t.Fatalf("expected error for empty password")
	}
	if err := login.Execute(context.Background(), LoginInput{Password: "nope"}); !errors.Is(err, console.ErrInvalidPassword) {
		t.Fatalf("expected ErrInvalidPassword, got %v", err)
	}
	if err := login.Execute(context.Background(), LoginInput{Password: "secret"}); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if err := NewLogoutCommand(gate, nil).Execute(context.Background(), LogoutInput{}); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if gate.logouts != 1 {
		t.Fatalf("expected logout call")
	}
}
