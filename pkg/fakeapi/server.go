package fakeapi

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-gmarup-admin/components/console"
	"github.com/goliatone/go-gmarup-admin/pkg/backend"
	"github.com/goliatone/go-gmarup-admin/pkg/logging"
)

const timestampLayout = "2006-01-02T15:04:05.000000"

// Options configures the in-memory backend.
type Options struct {
	AdminPassword string
	PaymentURL    string
	Seed          Seed
	Logger        *zerolog.Logger
	Clock         func() time.Time
}

// Seed is the initial dataset.
type Seed struct {
	Registrations []console.Registration
	Donations     []console.Donation
	Analytics     []console.AnalyticsEvent
	Settings      map[string]string
}

// Server mimics the GmarUp backend in memory. Every consumed endpoint is
// served; failures can be injected per route.
type Server struct {
	opts   Options
	router chi.Router

	mu            sync.Mutex
	nextID        int
	registrations []console.Registration
	donations     []console.Donation
	analytics     []console.AnalyticsEvent
	settings      map[string]string
	failures      map[string]int
	requests      []string
}

// New builds a server seeded from opts.Seed.
func New(opts Options) *Server {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.PaymentURL == "" {
		opts.PaymentURL = backend.DefaultPaymentURL
	}
	s := &Server{
		opts:          opts,
		nextID:        1,
		registrations: slices.Clone(opts.Seed.Registrations),
		donations:     slices.Clone(opts.Seed.Donations),
		analytics:     slices.Clone(opts.Seed.Analytics),
		settings:      map[string]string{},
		failures:      map[string]int{},
	}
	for k, v := range opts.Seed.Settings {
		s.settings[k] = v
	}
	s.nextID = s.maxID() + 1
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	if s.opts.Logger != nil {
		r.Use(logging.RequestLogger(*s.opts.Logger))
	}
	r.Use(s.injectFailures)

	r.Route("/api", func(r chi.Router) {
		r.Get("/test", s.handleTest)
		r.Post("/register", s.handleRegister)
		r.Post("/donate", s.handleDonate)
		r.Get("/settings", s.handlePublicSettings)
		r.Route("/admin", func(r chi.Router) {
			r.Post("/", s.handleLogin)
			r.Get("/registrations", s.handleRegistrations)
			r.Get("/donations", s.handleDonations)
			r.Get("/analytics", s.handleAnalytics)
			r.Get("/settings", s.handleSettings)
			r.Post("/settings", s.handleSaveSettings)
			r.Post("/registration", s.handleRegistrationMutation)
			r.Post("/donation", s.handleDonationMutation)
			r.Post("/actions", s.handleActions)
		})
	})
	return r
}

// Fail makes method+path answer with status until Recover is called.
func (s *Server) Fail(method, path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[routeKey(method, path)] = status
}

// Recover clears an injected failure.
func (s *Server) Recover(method, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, routeKey(method, path))
}

// Requests lists "METHOD /path" for every request served, in order.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.requests)
}

// Registrations returns a copy of the stored registrations.
func (s *Server) Registrations() []console.Registration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.registrations)
}

// Donations returns a copy of the stored donations.
func (s *Server) Donations() []console.Donation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.donations)
}

// Analytics returns a copy of the stored analytics events.
func (s *Server) Analytics() []console.AnalyticsEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.analytics)
}

// Settings returns a copy of the stored settings.
func (s *Server) Settings() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.settings))
	for k, v := range s.settings {
		out[k] = v
	}
	return out
}

func (s *Server) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := routeKey(r.Method, r.URL.Path)
		s.mu.Lock()
		s.requests = append(s.requests, key)
		status, failing := s.failures[key]
		s.mu.Unlock()
		if failing {
			writeJSON(w, status, map[string]any{"success": false, "error": "injected failure"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleTest(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	regs, dons := len(s.registrations), len(s.donations)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, backend.Health{
		Success: true,
		Message: "חיבור תקין למסד הנתונים",
		Stats: backend.HealthStats{
			Registrations: regs,
			Donations:     dons,
			ServerTime:    s.timestamp(),
		},
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req backend.RegistrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "לא התקבלו נתונים")
		return
	}
	switch {
	case strings.TrimSpace(req.FullName) == "":
		writeError(w, http.StatusBadRequest, "שדה חובה חסר: fullName")
		return
	case strings.TrimSpace(req.Email) == "":
		writeError(w, http.StatusBadRequest, "שדה חובה חסר: email")
		return
	case strings.TrimSpace(req.Phone) == "":
		writeError(w, http.StatusBadRequest, "שדה חובה חסר: phone")
		return
	case !req.EmailConsent:
		writeError(w, http.StatusBadRequest, "חובה לאשר קבלת עדכונים באימייל")
		return
	}
	source := req.Source
	if source == "" {
		source = "website"
	}
	level := req.StudyLevel
	if level == "" {
		level = "לא צוין"
	}
	consent := "לא"
	if req.EmailConsent {
		consent = "כן"
	}

	s.mu.Lock()
	now := s.timestamp()
	id := s.allocID()
	s.registrations = append([]console.Registration{{
		ID:        id,
		Name:      req.FullName,
		Email:     req.Email,
		Phone:     req.Phone,
		Source:    console.Source(source),
		Status:    console.RegistrationPendingBeta,
		CreatedAt: now,
		UpdatedAt: now,
		IPAddress: r.RemoteAddr,
		UserAgent: r.UserAgent(),
		LeadScore: 75,
		Notes:     fmt.Sprintf("רמת לימוד: %s, אישור דיוור: %s", level, consent),
	}}, s.registrations...)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, backend.RegistrationResult{
		Success:        true,
		Message:        "ברוך הבא למשפחת גמראפ! ההרשמה התקבלה בהצלחה",
		RegistrationID: id,
	})
}

func (s *Server) handleDonate(w http.ResponseWriter, r *http.Request) {
	var req backend.DonationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "חסר סכום תרומה")
		return
	}
	name := req.DonorName
	if name == "" {
		name = "תורם אנונימי"
	}
	source := req.Source
	if source == "" {
		source = "website"
	}

	s.mu.Lock()
	now := s.opts.Clock()
	donationID := fmt.Sprintf("DON_%s_%s", now.Format("20060102_150405"), randomHex(3))
	s.donations = append([]console.Donation{{
		ID:          s.allocID(),
		DonationID:  donationID,
		Amount:      console.Number(req.Amount),
		DonorName:   name,
		DonorEmail:  req.DonorEmail,
		DonorPhone:  req.DonorPhone,
		Message:     req.Message,
		Source:      console.Source(source),
		Status:      console.DonationPending,
		CreatedAt:   now.Format(timestampLayout),
		IPAddress:   r.RemoteAddr,
		UserAgent:   r.UserAgent(),
		IsAnonymous: console.Flag(req.IsAnonymous),
	}}, s.donations...)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, backend.DonationResult{
		Success:    true,
		DonationID: donationID,
		PaymentURL: backend.PaymentLink(s.opts.PaymentURL, req.Amount),
		Message:    "תרומה נוצרה בהצלחה - סטטוס: ממתין לאישור תשלום",
	})
}

func (s *Server) handlePublicSettings(w http.ResponseWriter, _ *http.Request) {
	out := map[string]any{}
	for k, v := range console.DefaultPublicSettings() {
		out[k] = v
	}
	s.mu.Lock()
	for _, key := range console.PublicSettingKeys {
		if v, ok := s.settings[key]; ok {
			out[key] = v
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil || r.PostForm.Get("login") == "" {
		writeError(w, http.StatusBadRequest, "פעולה לא מוכרת")
		return
	}
	if s.opts.AdminPassword == "" || r.PostForm.Get("password") != s.opts.AdminPassword {
		writeError(w, http.StatusUnauthorized, "סיסמה שגויה")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "התחברת בהצלחה"})
}

func (s *Server) handleRegistrations(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Registrations())
}

func (s *Server) handleDonations(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Donations())
}

func (s *Server) handleAnalytics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Analytics())
}

func (s *Server) handleSettings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Settings())
}

func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body) == 0 {
		writeError(w, http.StatusBadRequest, "לא התקבלו נתונים")
		return
	}
	s.mu.Lock()
	for k := range body {
		s.settings[k] = console.Settings(body).String(k)
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "הגדרות עודכנו בהצלחה"})
}

type mutationBody struct {
	ID     console.RecordID `json:"id"`
	Action string           `json:"action"`
	Status string           `json:"status"`
	Notes  *string          `json:"notes"`
}

func (s *Server) handleRegistrationMutation(w http.ResponseWriter, r *http.Request) {
	var body mutationBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ID == "" {
		writeError(w, http.StatusBadRequest, "חסר מזהה רישום")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if body.Action == "delete" {
		s.registrations = slices.DeleteFunc(s.registrations, func(reg console.Registration) bool { return reg.ID == body.ID })
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "רישום נמחק בהצלחה"})
		return
	}
	now := s.timestamp()
	for i := range s.registrations {
		if s.registrations[i].ID != body.ID {
			continue
		}
		reg := &s.registrations[i]
		reg.Status = console.RegistrationStatus(body.Status)
		reg.Notes = ""
		if body.Notes != nil {
			reg.Notes = *body.Notes
		}
		reg.UpdatedAt = now
		reg.LastContacted = ""
		if reg.Status == console.RegistrationContacted {
			reg.LastContacted = now
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "רישום עודכן בהצלחה"})
}

func (s *Server) handleDonationMutation(w http.ResponseWriter, r *http.Request) {
	var body mutationBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ID == "" {
		writeError(w, http.StatusBadRequest, "חסר מזהה תרומה")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if body.Action == "delete" {
		s.donations = slices.DeleteFunc(s.donations, func(d console.Donation) bool { return d.ID == body.ID })
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "תרומה נמחקה בהצלחה"})
		return
	}
	now := s.timestamp()
	for i := range s.donations {
		if s.donations[i].ID != body.ID {
			continue
		}
		d := &s.donations[i]
		d.Status = console.DonationStatus(body.Status)
		d.CompletedAt = ""
		if d.Status == console.DonationCompleted {
			d.CompletedAt = now
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "תרומה עודכנה בהצלחה"})
}

func (s *Server) handleActions(w http.ResponseWriter, r *http.Request) {
	fields, err := actionFields(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "לא התקבלו נתונים")
		return
	}
	if fields["action"] != backend.ActionTrackAnalytics {
		writeError(w, http.StatusBadRequest, "פעולה לא מוכרת")
		return
	}
	category := fields["category"]
	if category == "" {
		category = "Page"
	}
	action := fields["eventAction"]
	if action == "" {
		action = "visit"
	}
	url := fields["url"]
	if url == "" {
		url = "/"
	}
	var value any = 1
	if raw, ok := fields["value"]; ok && raw != "" {
		value = raw
	}

	s.mu.Lock()
	s.analytics = append([]console.AnalyticsEvent{{
		ID:        s.allocID(),
		SessionID: fields["sessionId"],
		Category:  category,
		Action:    action,
		Label:     fields["label"],
		Value:     value,
		URL:       url,
		IPAddress: r.RemoteAddr,
		CreatedAt: s.timestamp(),
	}}, s.analytics...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Analytics tracked"})
}

// actionFields reads the admin action body as form data or JSON.
func actionFields(r *http.Request) (map[string]string, error) {
	out := map[string]string{}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
		for k := range r.PostForm {
			out[k] = r.PostForm.Get(k)
		}
		return out, nil
	}
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, err
	}
	for k := range body {
		out[k] = console.Settings(body).String(k)
	}
	return out, nil
}

func (s *Server) timestamp() string {
	return s.opts.Clock().Format(timestampLayout)
}

// allocID must be called with s.mu held.
func (s *Server) allocID() console.RecordID {
	id := s.nextID
	s.nextID++
	return console.RecordID(strconv.Itoa(id))
}

func (s *Server) maxID() int {
	highest := 0
	bump := func(id console.RecordID) {
		if n, err := strconv.Atoi(id.String()); err == nil && n > highest {
			highest = n
		}
	}
	for _, r := range s.registrations {
		bump(r.ID)
	}
	for _, d := range s.donations {
		bump(d.ID)
	}
	for _, e := range s.analytics {
		bump(e.ID)
	}
	return highest
}

func routeKey(method, path string) string {
	return strings.ToUpper(method) + " " + path
}

func randomHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return strings.Repeat("0", n*2)
	}
	return hex.EncodeToString(buf)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]any{"success": false, "error": message})
}
