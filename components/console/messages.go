package console

import "fmt"

type messageKey string

const (
	msgLoadSuccess        messageKey = "load.success"
	msgLoadFailed         messageKey = "load.failed"
	msgSettingsFromBackup messageKey = "settings.backup"
	msgSettingsDefaults   messageKey = "settings.defaults"
	msgSettingsSaved      messageKey = "settings.saved"
	msgSettingsLocalOnly  messageKey = "settings.local_only"
	msgSettingsInvalid    messageKey = "settings.invalid"
	msgRegUpdated         messageKey = "registration.updated"
	msgRegUpdateFailed    messageKey = "registration.update_failed"
	msgRegDeleted         messageKey = "registration.deleted"
	msgRegDeleteFailed    messageKey = "registration.delete_failed"
	msgDonUpdated         messageKey = "donation.updated"
	msgDonUpdateFailed    messageKey = "donation.update_failed"
	msgDonDeleted         messageKey = "donation.deleted"
	msgDonDeleteFailed    messageKey = "donation.delete_failed"
	msgExportEmpty        messageKey = "export.empty"
	msgExportDone         messageKey = "export.done"
	msgExportAllDone      messageKey = "export.all_done"
	msgVisitorsReset      messageKey = "visitors.reset"
	msgVisitorsResetError messageKey = "visitors.reset_failed"
	msgLoggedIn           messageKey = "session.logged_in"
	msgLoggedOut          messageKey = "session.logged_out"
	msgLoginFailed        messageKey = "session.login_failed"
)

var catalog = map[messageKey]localized{
	msgLoadSuccess:        {"he": "נתונים עודכנו בהצלחה", "en": "Data refreshed"},
	msgLoadFailed:         {"he": "שגיאה בטעינת הנתונים: %s", "en": "Failed to load: %s"},
	msgSettingsFromBackup: {"he": "שרת לא זמין - נטענו הגדרות שמורות מקומית", "en": "Server unavailable, loaded locally saved settings"},
	msgSettingsDefaults:   {"he": "שגיאה בטעינת הגדרות מהשרת - משתמש בהגדרות ברירת מחדל", "en": "Failed to load settings, using defaults"},
	msgSettingsSaved:      {"he": "הגדרות נשמרו בהצלחה בשרת ומקומית", "en": "Settings saved on the server and locally"},
	msgSettingsLocalOnly:  {"he": "הגדרות נשמרו מקומית (שרת לא זמין)", "en": "Settings saved locally (server unavailable)"},
	msgSettingsInvalid:    {"he": "הגדרות לא תקינות", "en": "Invalid settings"},
	msgRegUpdated:         {"he": "רישום עודכן בהצלחה", "en": "Registration updated"},
	msgRegUpdateFailed:    {"he": "שגיאה בעדכון הרישום", "en": "Failed to update registration"},
	msgRegDeleted:         {"he": "רישום נמחק בהצלחה", "en": "Registration deleted"},
	msgRegDeleteFailed:    {"he": "שגיאה במחיקת הרישום", "en": "Failed to delete registration"},
	msgDonUpdated:         {"he": "תרומה עודכנה בהצלחה", "en": "Donation updated"},
	msgDonUpdateFailed:    {"he": "שגיאה בעדכון התרומה", "en": "Failed to update donation"},
	msgDonDeleted:         {"he": "תרומה נמחקה בהצלחה", "en": "Donation deleted"},
	msgDonDeleteFailed:    {"he": "שגיאה במחיקת התרומה", "en": "Failed to delete donation"},
	msgExportEmpty:        {"he": "אין נתונים לייצוא", "en": "No data to export"},
	msgExportDone:         {"he": "ייצוא %s הושלם בהצלחה", "en": "Export of %s completed"},
	msgExportAllDone:      {"he": "ייצוא מלא הושלם בהצלחה", "en": "Full export completed"},
	msgVisitorsReset:      {"he": "מונה המבקרים של היום אופס", "en": "Today's visitor counter was reset"},
	msgVisitorsResetError: {"he": "שגיאה באיפוס מונה המבקרים", "en": "Failed to reset the visitor counter"},
	msgLoggedIn:           {"he": "התחברת בהצלחה", "en": "Signed in"},
	msgLoggedOut:          {"he": "התנתקת מהמערכת", "en": "Signed out"},
	msgLoginFailed:        {"he": "סיסמה שגויה", "en": "Wrong password"},
}

func message(locale string, key messageKey, args ...any) string {
	text := ResolveLocalizedValue(catalog[key], locale, string(key))
	if len(args) == 0 {
		return text
	}
	return fmt.Sprintf(text, args...)
}
