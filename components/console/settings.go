package console

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Known settings keys.
const (
	SettingWhatsAppLink          = "whatsapp_link"
	SettingBitPhone              = "bit_phone"
	SettingAdminEmail            = "admin_email"
	SettingSiteTitle             = "site_title"
	SettingMemorialCounterStart  = "memorial_counter_start"
	SettingDonationsCounterStart = "donations_counter_start"
	SettingAutoBackup            = "auto_backup_enabled"
	SettingEmailNotifications    = "email_notifications"
	SettingAnalyticsEnabled      = "analytics_enabled"
)

// DefaultSettings is the last-resort settings tier.
func DefaultSettings() Settings {
	return Settings{
		SettingWhatsAppLink:          "https://chat.whatsapp.com/your-group-link",
		SettingBitPhone:              "0502277660",
		SettingAdminEmail:            "admin@gmarapp.com",
		SettingSiteTitle:             "גמראפ - לימוד גמרא לכל אחד",
		SettingMemorialCounterStart:  "2500",
		SettingDonationsCounterStart: "120000",
		SettingAutoBackup:            "1",
		SettingEmailNotifications:    "1",
		SettingAnalyticsEnabled:      "1",
	}
}

// PublicSettingKeys are exposed to the landing page.
var PublicSettingKeys = []string{
	SettingWhatsAppLink,
	SettingBitPhone,
	SettingAdminEmail,
	SettingSiteTitle,
	SettingMemorialCounterStart,
}

// DefaultPublicSettings are used by the landing page when /api/settings fails.
func DefaultPublicSettings() Settings {
	return Settings{
		SettingWhatsAppLink:         "https://chat.whatsapp.com/LNmVCXvv35S9SsbWTol2qW",
		SettingBitPhone:             "0502277660",
		SettingAdminEmail:           "gmarupil@gmail.com",
		SettingSiteTitle:            "גמראפ - לימוד גמרא לכל אחד",
		SettingMemorialCounterStart: "2500",
	}
}

// SettingFieldKind drives how a setting is edited.
type SettingFieldKind string

const (
	FieldURL    SettingFieldKind = "url"
	FieldTel    SettingFieldKind = "tel"
	FieldEmail  SettingFieldKind = "email"
	FieldText   SettingFieldKind = "text"
	FieldNumber SettingFieldKind = "number"
	FieldToggle SettingFieldKind = "toggle"
)

type settingSpec struct {
	Key    string
	Kind   SettingFieldKind
	Labels localized
}

var settingSpecs = []settingSpec{
	{SettingWhatsAppLink, FieldURL, localized{"he": "קישור קבוצת וואטסאפ", "en": "WhatsApp group link"}},
	{SettingBitPhone, FieldTel, localized{"he": "מספר ביט לתרומות", "en": "Bit number for donations"}},
	{SettingAdminEmail, FieldEmail, localized{"he": "אימייל אדמין", "en": "Admin email"}},
	{SettingSiteTitle, FieldText, localized{"he": "כותרת האתר", "en": "Site title"}},
	{SettingMemorialCounterStart, FieldNumber, localized{"he": "מונה זיכרון התחלתי", "en": "Memorial counter start"}},
	{SettingDonationsCounterStart, FieldNumber, localized{"he": "מונה תרומות התחלתי", "en": "Donations counter start"}},
	{SettingAutoBackup, FieldToggle, localized{"he": "גיבוי אוטומטי", "en": "Automatic backup"}},
	{SettingEmailNotifications, FieldToggle, localized{"he": "התראות מייל", "en": "Email notifications"}},
	{SettingAnalyticsEnabled, FieldToggle, localized{"he": "אנליטיקס מופעל", "en": "Analytics enabled"}},
}

// SettingField is one editable row of the settings form.
type SettingField struct {
	Key     string           `json:"key"`
	Label   string           `json:"label"`
	Kind    SettingFieldKind `json:"kind"`
	Value   string           `json:"value"`
	Checked bool             `json:"checked,omitempty"`
}

// SettingsForm is the projection of Settings into form fields. Keys the form
// does not know are listed after the known ones, verbatim.
type SettingsForm struct {
	Title  string         `json:"title"`
	Origin SettingsOrigin `json:"origin,omitempty"`
	Fields []SettingField `json:"fields"`
}

// BuildSettingsForm projects settings into form fields.
func BuildSettingsForm(settings Settings, origin SettingsOrigin, locale string) SettingsForm {
	form := SettingsForm{Title: CollectionSettings.Label(locale), Origin: origin}
	known := make(map[string]bool, len(settingSpecs))
	for _, def := range settingSpecs {
		known[def.Key] = true
		field := SettingField{
			Key:   def.Key,
			Label: ResolveLocalizedValue(def.Labels, locale, def.Key),
			Kind:  def.Kind,
			Value: settings.String(def.Key),
		}
		if def.Kind == FieldToggle {
			field.Checked = settings.Bool(def.Key)
		}
		form.Fields = append(form.Fields, field)
	}
	for _, key := range sortedKeys(settings) {
		if known[key] {
			continue
		}
		form.Fields = append(form.Fields, SettingField{Key: key, Label: key, Kind: FieldText, Value: settings.String(key)})
	}
	return form
}

// SettingsForm returns the settings form for the current state.
func (c *Console) SettingsForm() SettingsForm {
	snap := c.state.Snapshot()
	return BuildSettingsForm(snap.Settings, snap.SettingsOrigin, c.opts.Locale)
}

// SettingsValidator checks a settings payload before it is saved.
type SettingsValidator interface {
	ValidateSettings(settings Settings) error
}

// settingsSchema constrains the known keys. Unknown keys are allowed so the
// backend can introduce new settings without a console release.
var settingsSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		SettingWhatsAppLink:          map[string]any{"type": "string", "pattern": "^(https?://.+)?$"},
		SettingBitPhone:              map[string]any{"type": "string", "pattern": `^[0-9+\- ]*$`},
		SettingAdminEmail:            map[string]any{"type": "string", "pattern": `^([^\s@]+@[^\s@]+\.[^\s@]+)?$`},
		SettingSiteTitle:             map[string]any{"type": "string", "maxLength": 200},
		SettingMemorialCounterStart:  map[string]any{"type": "string", "pattern": `^[0-9]*$`},
		SettingDonationsCounterStart: map[string]any{"type": "string", "pattern": `^[0-9]*$`},
		SettingAutoBackup:            map[string]any{"enum": []any{"0", "1", true, false}},
		SettingEmailNotifications:    map[string]any{"enum": []any{"0", "1", true, false}},
		SettingAnalyticsEnabled:      map[string]any{"enum": []any{"0", "1", true, false}},
	},
	"additionalProperties": map[string]any{"type": []any{"string", "boolean", "number"}},
}

// JSONSchemaValidator validates payloads against compiled JSON schemas.
type JSONSchemaValidator struct {
	mu       sync.RWMutex
	schemas  map[string]map[string]any
	compiled map[string]*jsonschema.Schema
}

// NewJSONSchemaValidator builds a validator preloaded with the settings schema.
func NewJSONSchemaValidator() *JSONSchemaValidator {
	return &JSONSchemaValidator{
		schemas:  map[string]map[string]any{"settings": settingsSchema},
		compiled: make(map[string]*jsonschema.Schema),
	}
}

// Register adds or replaces a named schema.
func (v *JSONSchemaValidator) Register(name string, schema map[string]any) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.schemas[name] = schema
	delete(v.compiled, name)
}

// ValidateSettings implements SettingsValidator.
func (v *JSONSchemaValidator) ValidateSettings(settings Settings) error {
	return v.Validate("settings", map[string]any(settings))
}

// Validate checks payload against the named schema.
func (v *JSONSchemaValidator) Validate(name string, payload any) error {
	schema, err := v.schemaFor(name)
	if err != nil {
		return err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("console: marshal %s payload: %w", name, err)
	}
	var normalized any
	if err := json.Unmarshal(data, &normalized); err != nil {
		return fmt.Errorf("console: normalize %s payload: %w", name, err)
	}
	if normalized == nil {
		normalized = map[string]any{}
	}
	if err := schema.Validate(normalized); err != nil {
		return fmt.Errorf("console: %s failed validation: %w", name, err)
	}
	return nil
}

func (v *JSONSchemaValidator) schemaFor(name string) (*jsonschema.Schema, error) {
	v.mu.RLock()
	schema, ok := v.compiled[name]
	raw, known := v.schemas[name]
	v.mu.RUnlock()
	if ok {
		return schema, nil
	}
	if !known {
		return nil, fmt.Errorf("console: unknown schema %s", name)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("console: marshal schema %s: %w", name, err)
	}
	compiler := jsonschema.NewCompiler()
	resource := name + ".json"
	if err := compiler.AddResource(resource, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("console: load schema %s: %w", name, err)
	}
	compiled, err := compiler.Compile(resource)
	if err != nil {
		return nil, fmt.Errorf("console: compile schema %s: %w", name, err)
	}
	v.mu.Lock()
	v.compiled[name] = compiled
	v.mu.Unlock()
	return compiled, nil
}

// SettingsSaveResult reports where settings ended up.
type SettingsSaveResult struct {
	SavedLocally  bool
	SavedRemotely bool
	RemoteError   error
}

// SaveSettings replaces the settings. The local backup is written first so an
// unreachable backend still leaves the operator's edit in place; the remote
// failure is reported as a warning, not an error.
func (c *Console) SaveSettings(ctx context.Context, settings Settings) (SettingsSaveResult, error) {
	var result SettingsSaveResult
	if err := c.opts.SettingsValidator.ValidateSettings(settings); err != nil {
		c.notify(ctx, NotificationError, msgSettingsInvalid)
		return result, err
	}
	settings = settings.Clone()
	c.state.replaceSettings(settings, SettingsFromOperator)
	if err := c.writeSettingsBackup(ctx, settings); err != nil {
		c.log(ctx, "console.settings.backup_error", map[string]any{"error": err.Error()})
	} else {
		result.SavedLocally = true
	}

	if err := c.opts.API.SaveSettings(ctx, settings); err != nil {
		result.RemoteError = err
		c.notify(ctx, NotificationWarning, msgSettingsLocalOnly)
		c.log(ctx, "console.settings.save", map[string]any{"remote": false, "error": err.Error()})
	} else {
		result.SavedRemotely = true
		c.notify(ctx, NotificationSuccess, msgSettingsSaved)
		c.log(ctx, "console.settings.save", map[string]any{"remote": true})
	}
	c.publish(ctx, Event{Type: EventSettingsSaved, Collection: CollectionSettings})
	c.emitActivity(ctx, activityEvent("settings.save", "settings", "", map[string]any{
		"saved_remotely": result.SavedRemotely,
		"keys":           len(settings),
	}))
	return result, nil
}

func (c *Console) writeSettingsBackup(ctx context.Context, settings Settings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("console: encode settings backup: %w", err)
	}
	return c.opts.LocalStore.Set(ctx, KeySettingsBackup, string(data))
}

func (c *Console) readSettingsBackup(ctx context.Context) (Settings, bool) {
	raw, ok, err := c.opts.LocalStore.Get(ctx, KeySettingsBackup)
	if err != nil {
		c.log(ctx, "console.local_store.error", map[string]any{"key": KeySettingsBackup, "error": err.Error()})
		return nil, false
	}
	if !ok || raw == "" {
		return nil, false
	}
	var settings Settings
	if err := json.Unmarshal([]byte(raw), &settings); err != nil || settings == nil {
		c.log(ctx, "console.settings.backup_corrupt", map[string]any{"error": fmt.Sprint(err)})
		return nil, false
	}
	return settings, true
}
