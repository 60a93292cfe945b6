package console

import "strings"

// Supported display locales. Hebrew is the default since the site is RTL Hebrew.
const (
	LocaleHebrew  = "he"
	LocaleEnglish = "en"
)

type localized map[string]string

// ResolveLocalizedValue selects the best translation for locale and falls back
// to the supplied value. Region tags (`he-IL`) fall back to their base language.
func ResolveLocalizedValue(values map[string]string, locale, fallback string) string {
	if len(values) == 0 {
		return fallback
	}
	for _, candidate := range localeCandidates(locale) {
		for key, value := range values {
			if strings.EqualFold(key, candidate) && value != "" {
				return value
			}
		}
	}
	if value := values[LocaleHebrew]; value != "" {
		return value
	}
	return fallback
}

func localeCandidates(locale string) []string {
	locale = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(locale), "_", "-"))
	if locale == "" {
		return []string{LocaleHebrew}
	}
	out := []string{locale}
	if idx := strings.Index(locale, "-"); idx > 0 {
		out = append(out, locale[:idx])
	}
	return out
}

func (s RegistrationStatus) labels() localized {
	switch s {
	case RegistrationPendingBeta:
		return localized{"he": "ממתין לבטא", "en": "Pending beta"}
	case RegistrationContacted:
		return localized{"he": "נוצר קשר", "en": "Contacted"}
	case RegistrationCompleted:
		return localized{"he": "הושלם", "en": "Completed"}
	case RegistrationFailed:
		return localized{"he": "נכשל", "en": "Failed"}
	}
	return nil
}

// Label returns the display label; unknown values pass through verbatim.
func (s RegistrationStatus) Label(locale string) string {
	return ResolveLocalizedValue(s.labels(), locale, string(s))
}

// BadgeClass is the CSS class for the status pill.
func (s RegistrationStatus) BadgeClass() string {
	if s == "" {
		s = RegistrationPendingBeta
	}
	return "status-" + strings.ReplaceAll(string(s), "_", "-")
}

func (s DonationStatus) labels() localized {
	switch s {
	case DonationPending:
		return localized{"he": "ממתין", "en": "Pending"}
	case DonationCompleted:
		return localized{"he": "הושלם", "en": "Completed"}
	case DonationFailed:
		return localized{"he": "נכשל", "en": "Failed"}
	}
	return nil
}

// Label returns the display label; unknown values pass through verbatim.
func (s DonationStatus) Label(locale string) string {
	return ResolveLocalizedValue(s.labels(), locale, string(s))
}

// BadgeClass is the CSS class for the status pill.
func (s DonationStatus) BadgeClass() string {
	if s == "" {
		s = DonationPending
	}
	return "status-" + string(s)
}

func (s Source) labels() localized {
	switch s {
	case SourceBetaLanding:
		return localized{"he": "דף נחיתה", "en": "Landing page"}
	case SourceWhatsApp:
		return localized{"he": "ווטסאפ", "en": "WhatsApp"}
	case SourceDirect:
		return localized{"he": "ישיר", "en": "Direct"}
	case SourceGoogle:
		return localized{"he": "גוגל", "en": "Google"}
	case SourceFacebook:
		return localized{"he": "פייסבוק", "en": "Facebook"}
	case SourceOther:
		return localized{"he": "אחר", "en": "Other"}
	}
	return nil
}

// Label returns the display label; unknown values pass through verbatim.
func (s Source) Label(locale string) string {
	return ResolveLocalizedValue(s.labels(), locale, string(s))
}

func (l StudyLevel) labels() localized {
	switch l {
	case StudyLevelBeginner:
		return localized{"he": "🌱 מתחיל", "en": "🌱 Beginner"}
	case StudyLevelIntermediate:
		return localized{"he": "📚 בינוני", "en": "📚 Intermediate"}
	case StudyLevelAdvanced:
		return localized{"he": "🎓 מתקדם", "en": "🎓 Advanced"}
	}
	return nil
}

// Label returns the display label including its icon.
func (l StudyLevel) Label(locale string) string {
	return ResolveLocalizedValue(l.labels(), locale, string(l))
}

// Keywords are the substrings that classify a note, English first.
func (l StudyLevel) Keywords() []string {
	switch l {
	case StudyLevelBeginner:
		return []string{"beginner", "מתחיל"}
	case StudyLevelIntermediate:
		return []string{"intermediate", "בינוני"}
	case StudyLevelAdvanced:
		return []string{"advanced", "מתקדם"}
	}
	return nil
}

func (c Collection) labels() localized {
	switch c {
	case CollectionRegistrations:
		return localized{"he": "רישומים", "en": "Registrations"}
	case CollectionDonations:
		return localized{"he": "תרומות", "en": "Donations"}
	case CollectionAnalytics:
		return localized{"he": "אנליטיקס", "en": "Analytics"}
	case CollectionSettings:
		return localized{"he": "הגדרות", "en": "Settings"}
	}
	return nil
}

// Label returns the section title.
func (c Collection) Label(locale string) string {
	return ResolveLocalizedValue(c.labels(), locale, string(c))
}

// ClassifyStudyLevel matches level keywords inside notes. Levels are checked
// in precedence order, so a note mentioning both beginner and advanced is a
// beginner.
func ClassifyStudyLevel(notes string) StudyLevel {
	if notes == "" {
		return StudyLevelNone
	}
	lower := strings.ToLower(notes)
	for _, level := range StudyLevels {
		for _, kw := range level.Keywords() {
			if strings.Contains(lower, kw) {
				return level
			}
		}
	}
	return StudyLevelNone
}
