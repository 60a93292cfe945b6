package console

import (
	"slices"
	"sync"
	"time"
)

// SettingsOrigin records which tier supplied the current settings.
type SettingsOrigin string

const (
	SettingsFromServer   SettingsOrigin = "server"
	SettingsFromBackup   SettingsOrigin = "backup"
	SettingsFromDefaults SettingsOrigin = "defaults"
	SettingsFromOperator SettingsOrigin = "operator"
)

// State owns the in-memory collections for one console session. Loads are
// stamped with a sequence number and a response is applied only when it is
// newer than whatever was last applied to that collection.
type State struct {
	mu             sync.RWMutex
	registrations  []Registration
	donations      []Donation
	analytics      []AnalyticsEvent
	settings       Settings
	settingsOrigin SettingsOrigin
	stats          Stats
	lastRefreshed  time.Time
	issued         uint64
	applied        map[Collection]uint64
}

// Snapshot is an immutable copy of State.
type Snapshot struct {
	Registrations  []Registration   `json:"registrations"`
	Donations      []Donation       `json:"donations"`
	Analytics      []AnalyticsEvent `json:"analytics"`
	Settings       Settings         `json:"settings"`
	SettingsOrigin SettingsOrigin   `json:"settings_origin,omitempty"`
	Stats          Stats            `json:"stats"`
	LastRefreshed  time.Time        `json:"last_refreshed,omitzero"`
}

// NewState creates an empty state.
func NewState() *State {
	return &State{
		registrations: []Registration{},
		donations:     []Donation{},
		analytics:     []AnalyticsEvent{},
		settings:      Settings{},
		applied:       make(map[Collection]uint64),
	}
}

// Begin reserves the next load sequence number.
func (s *State) Begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	return s.issued
}

// fence marks every load issued so far as stale for collection. Called after
// a confirmed mutation so an older in-flight fetch cannot undo it.
func (s *State) fence(c Collection) {
	s.applied[c] = s.issued
}

func (s *State) accept(c Collection, seq uint64) bool {
	if seq <= s.applied[c] {
		return false
	}
	s.applied[c] = seq
	return true
}

// ApplyRegistrations replaces the registrations when seq is current.
func (s *State) ApplyRegistrations(seq uint64, items []Registration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.accept(CollectionRegistrations, seq) {
		return false
	}
	s.registrations = nonNil(items)
	return true
}

// ApplyDonations replaces the donations when seq is current.
func (s *State) ApplyDonations(seq uint64, items []Donation) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.accept(CollectionDonations, seq) {
		return false
	}
	s.donations = nonNil(items)
	return true
}

// ApplyAnalytics replaces the analytics events when seq is current.
func (s *State) ApplyAnalytics(seq uint64, items []AnalyticsEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.accept(CollectionAnalytics, seq) {
		return false
	}
	s.analytics = nonNil(items)
	return true
}

// ApplySettings replaces the settings when seq is current.
func (s *State) ApplySettings(seq uint64, settings Settings, origin SettingsOrigin) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.accept(CollectionSettings, seq) {
		return false
	}
	s.settings = settings.Clone()
	s.settingsOrigin = origin
	return true
}

func (s *State) replaceSettings(settings Settings, origin SettingsOrigin) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fence(CollectionSettings)
	s.settings = settings.Clone()
	s.settingsOrigin = origin
}

func (s *State) updateRegistration(id RecordID, fn func(*Registration)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := slices.IndexFunc(s.registrations, func(r Registration) bool { return r.ID == id })
	if idx < 0 {
		return false
	}
	next := slices.Clone(s.registrations)
	fn(&next[idx])
	s.registrations = next
	s.fence(CollectionRegistrations)
	return true
}

func (s *State) removeRegistration(id RecordID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := len(s.registrations)
	next := slices.DeleteFunc(slices.Clone(s.registrations), func(r Registration) bool { return r.ID == id })
	if len(next) == before {
		return false
	}
	s.registrations = next
	s.fence(CollectionRegistrations)
	return true
}

func (s *State) updateDonation(id RecordID, fn func(*Donation)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := slices.IndexFunc(s.donations, func(d Donation) bool { return d.ID == id })
	if idx < 0 {
		return false
	}
	next := slices.Clone(s.donations)
	fn(&next[idx])
	s.donations = next
	s.fence(CollectionDonations)
	return true
}

func (s *State) removeDonation(id RecordID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := len(s.donations)
	next := slices.DeleteFunc(slices.Clone(s.donations), func(d Donation) bool { return d.ID == id })
	if len(next) == before {
		return false
	}
	s.donations = next
	s.fence(CollectionDonations)
	return true
}

func (s *State) dropAnalytics(keep func(AnalyticsEvent) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := len(s.analytics)
	next := slices.DeleteFunc(slices.Clone(s.analytics), func(e AnalyticsEvent) bool { return !keep(e) })
	s.analytics = next
	s.fence(CollectionAnalytics)
	return before - len(next)
}

// Registration looks up a registration by id.
func (s *State) Registration(id RecordID) (Registration, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.registrations {
		if r.ID == id {
			return r, true
		}
	}
	return Registration{}, false
}

// Donation looks up a donation by id.
func (s *State) Donation(id RecordID) (Donation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.donations {
		if d.ID == id {
			return d, true
		}
	}
	return Donation{}, false
}

func (s *State) setStats(stats Stats) {
	s.mu.Lock()
	s.stats = stats
	s.mu.Unlock()
}

func (s *State) markRefreshed(at time.Time) {
	s.mu.Lock()
	s.lastRefreshed = at
	s.mu.Unlock()
}

// Snapshot copies the current state. Record slices are replaced rather than
// edited in place, so sharing their backing arrays is safe.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Registrations:  s.registrations,
		Donations:      s.donations,
		Analytics:      s.analytics,
		Settings:       s.settings.Clone(),
		SettingsOrigin: s.settingsOrigin,
		Stats:          s.stats,
		LastRefreshed:  s.lastRefreshed,
	}
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
