package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	gocommand "github.com/goliatone/go-command"

	"github.com/goliatone/go-gmarup-admin/components/console"
	"github.com/goliatone/go-gmarup-admin/components/console/commands"
	"github.com/goliatone/go-gmarup-admin/components/console/queries"
)

// Pages renders the HTML surfaces.
type Pages interface {
	RenderDashboard(ctx context.Context, w io.Writer, section console.Collection, crit console.Criteria) error
	RenderLogin(ctx context.Context, w io.Writer, failed bool) error
}

// Authorizer reports whether the request context carries a signed-in operator.
type Authorizer interface {
	Authenticated(ctx context.Context) bool
}

// Streamer pushes console events to long-lived connections.
type Streamer interface {
	ServeSSE(w http.ResponseWriter, r *http.Request)
	ServeWebSocket(w http.ResponseWriter, r *http.Request)
}

// Handlers exposes HTTP endpoints backed by shared commands and queries.
type Handlers struct {
	Update        gocommand.Commander[commands.UpdateRecordInput]
	CycleStatus   gocommand.Commander[commands.CycleStatusInput]
	Delete        gocommand.Commander[commands.DeleteRecordInput]
	Refresh       gocommand.Commander[commands.RefreshInput]
	SaveSettings  gocommand.Commander[commands.SaveSettingsInput]
	ResetVisitors gocommand.Commander[commands.ResetVisitorsInput]
	Login         gocommand.Commander[commands.LoginInput]
	Logout        gocommand.Commander[commands.LogoutInput]

	Table        gocommand.Querier[queries.TableInput, console.TableView]
	Stats        gocommand.Querier[struct{}, console.Stats]
	SettingsForm gocommand.Querier[struct{}, console.SettingsForm]
	Export       gocommand.Querier[queries.ExportInput, console.Export]

	Pages    Pages
	Auth     Authorizer
	Events   Streamer
	BasePath string
}

const operatorActor = "operator"

// HandleDashboard renders the dashboard for ?section= with the status,
// source and q filters.
func (h *Handlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	section := console.CollectionRegistrations
	if name := q.Get("section"); name != "" {
		parsed, err := console.ParseCollection(name)
		if err != nil {
			writeError(w, err)
			return
		}
		section = parsed
	}
	crit := criteriaFrom(q)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.Pages.RenderDashboard(r.Context(), w, section, crit); err != nil {
		writeError(w, err)
	}
}

func (h *Handlers) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	if h.Auth != nil && h.Auth.Authenticated(r.Context()) {
		http.Redirect(w, r, h.path("/"), http.StatusSeeOther)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	failed := r.URL.Query().Get("failed") != ""
	if failed {
		w.WriteHeader(http.StatusUnauthorized)
	}
	if err := h.Pages.RenderLogin(r.Context(), w, failed); err != nil {
		writeError(w, err)
	}
}

func (h *Handlers) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	err := h.Login.Execute(r.Context(), commands.LoginInput{Password: r.PostForm.Get("password")})
	if err != nil {
		if wantsJSON(r) {
			writeError(w, err)
			return
		}
		http.Redirect(w, r, h.path("/login?failed=1"), http.StatusSeeOther)
		return
	}
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
		return
	}
	http.Redirect(w, r, h.path("/"), http.StatusSeeOther)
}

func (h *Handlers) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.Logout.Execute(r.Context(), commands.LogoutInput{}); err != nil {
		writeError(w, err)
		return
	}
	http.Redirect(w, r, h.path("/login"), http.StatusSeeOther)
}

// HandleRecordAction serves the per-row edit and delete forms. An edit
// without status or notes advances the status one step.
func (h *Handlers) HandleRecordAction(w http.ResponseWriter, r *http.Request, collection, id, action string) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var err error
	switch console.ActionKind(action) {
	case console.ActionEdit:
		status := strings.TrimSpace(r.PostForm.Get("status"))
		var notes *string
		if r.PostForm.Has("notes") {
			value := r.PostForm.Get("notes")
			notes = &value
		}
		if status == "" && notes == nil {
			err = h.CycleStatus.Execute(r.Context(), commands.CycleStatusInput{Collection: collection, ID: id, ActorID: operatorActor})
		} else {
			err = h.Update.Execute(r.Context(), commands.UpdateRecordInput{
				Collection: collection,
				ID:         id,
				Status:     status,
				Notes:      notes,
				ActorID:    operatorActor,
			})
		}
	case console.ActionDelete:
		err = h.Delete.Execute(r.Context(), commands.DeleteRecordInput{Collection: collection, ID: id, ActorID: operatorActor})
	default:
		http.Error(w, "unknown action", http.StatusNotFound)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	http.Redirect(w, r, h.path("/?section="+url.QueryEscape(collection)), http.StatusSeeOther)
}

// HandleUpdateRecord accepts a JSON UpdateRecordInput for the record in the path.
func (h *Handlers) HandleUpdateRecord(w http.ResponseWriter, r *http.Request, collection, id string) {
	var payload commands.UpdateRecordInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	payload.Collection, payload.ID = collection, id
	if payload.ActorID == "" {
		payload.ActorID = operatorActor
	}
	if err := h.Update.Execute(r.Context(), payload); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handlers) HandleDeleteRecord(w http.ResponseWriter, r *http.Request, collection, id string) {
	input := commands.DeleteRecordInput{Collection: collection, ID: id, ActorID: operatorActor}
	if err := h.Delete.Execute(r.Context(), input); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSaveSettings reads the settings form. Toggle fields missing from the
// form are unchecked checkboxes and save as false.
func (h *Handlers) HandleSaveSettings(w http.ResponseWriter, r *http.Request) {
	var settings console.Settings
	if wantsJSONBody(r) {
		if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		form, err := h.SettingsForm.Query(r.Context(), struct{}{})
		if err != nil {
			writeError(w, err)
			return
		}
		settings = settingsFromForm(form, r.PostForm)
	}
	if err := h.SaveSettings.Execute(r.Context(), commands.SaveSettingsInput{Settings: settings, ActorID: operatorActor}); err != nil {
		writeError(w, err)
		return
	}
	if wantsJSON(r) || wantsJSONBody(r) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
		return
	}
	http.Redirect(w, r, h.path("/?section="+string(console.CollectionSettings)), http.StatusSeeOther)
}

func settingsFromForm(form console.SettingsForm, values url.Values) console.Settings {
	settings := console.Settings{}
	for _, field := range form.Fields {
		if field.Kind == console.FieldToggle {
			settings[field.Key] = values.Get(field.Key) != ""
			continue
		}
		if values.Has(field.Key) {
			settings[field.Key] = values.Get(field.Key)
		} else {
			settings[field.Key] = field.Value
		}
	}
	return settings
}

func (h *Handlers) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	input := commands.RefreshInput{Collection: r.URL.Query().Get("collection")}
	if err := h.Refresh.Execute(r.Context(), input); err != nil {
		// A partial load still refreshed what it could.
		writeJSON(w, http.StatusAccepted, map[string]any{"success": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"success": true})
}

func (h *Handlers) HandleResetVisitors(w http.ResponseWriter, r *http.Request) {
	if err := h.ResetVisitors.Execute(r.Context(), commands.ResetVisitorsInput{ActorID: operatorActor}); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handlers) HandleTable(w http.ResponseWriter, r *http.Request, collection string) {
	view, err := h.Table.Query(r.Context(), queries.TableInput{Collection: collection, Criteria: criteriaFrom(r.URL.Query())})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Stats.Query(r.Context(), struct{}{})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handlers) HandleSettingsForm(w http.ResponseWriter, r *http.Request) {
	form, err := h.SettingsForm.Query(r.Context(), struct{}{})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, form)
}

// HandleExport downloads one collection as CSV, or everything as JSON when
// collection is empty.
func (h *Handlers) HandleExport(w http.ResponseWriter, r *http.Request, collection string) {
	out, err := h.Export.Query(r.Context(), queries.ExportInput{Collection: collection})
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", out.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+out.Filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out.Data)
}

// RequireAuth sends anonymous browsers to the login page and answers 401 to
// API callers.
func (h *Handlers) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Auth != nil && h.Auth.Authenticated(r.Context()) {
			next.ServeHTTP(w, r)
			return
		}
		if wantsJSON(r) {
			writeError(w, console.ErrNotAuthenticated)
			return
		}
		http.Redirect(w, r, h.path("/login"), http.StatusSeeOther)
	})
}

func (h *Handlers) path(suffix string) string {
	return strings.TrimRight(h.BasePath, "/") + suffix
}

func criteriaFrom(q url.Values) console.Criteria {
	return console.Criteria{
		Status: q.Get("status"),
		Source: q.Get("source"),
		Text:   q.Get("q"),
	}
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.Contains(r.URL.Path, "/api/")
}

func wantsJSONBody(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, console.ErrNotAuthenticated), errors.Is(err, console.ErrInvalidPassword):
		return http.StatusUnauthorized
	case errors.Is(err, console.ErrUnknownCollection), errors.Is(err, console.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, console.ErrNothingToExport):
		return http.StatusNotFound
	case errors.Is(err, console.ErrReadOnly):
		return http.StatusMethodNotAllowed
	case errors.Is(err, console.ErrCancelled):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]any{"success": false, "error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
