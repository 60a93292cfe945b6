package fakeapi

import (
	"fmt"
	"time"

	"github.com/goliatone/go-gmarup-admin/components/console"
)

// DemoSeed returns a small dataset for local demos, timestamped relative to now.
func DemoSeed(now time.Time) Seed {
	at := func(d time.Duration) string { return now.Add(-d).Format(timestampLayout) }

	regs := []console.Registration{
		{ID: "1", Name: "דניאל כהן", Email: "daniel@example.com", Phone: "0521234567", Source: console.SourceWhatsApp,
			Status: console.RegistrationPendingBeta, CreatedAt: at(2 * time.Hour), LeadScore: 75,
			Notes: "רמת לימוד: מתחיל, אישור דיוור: כן"},
		{ID: "2", Name: "Sara Levi", Email: "sara@example.com", Phone: "0549876543", Source: console.SourceGoogle,
			Status: console.RegistrationContacted, CreatedAt: at(26 * time.Hour), LeadScore: 75,
			Notes: "רמת לימוד: מתקדם, אישור דיוור: כן", LastContacted: at(3 * time.Hour)},
		{ID: "3", Name: "יוסף מזרחי", Email: "yosef@example.com", Phone: "035551234", Source: console.SourceBetaLanding,
			Status: console.RegistrationCompleted, CreatedAt: at(72 * time.Hour), LeadScore: 75,
			Notes: "רמת לימוד: בינוני, אישור דיוור: לא"},
	}
	dons := []console.Donation{
		{ID: "4", DonationID: donationCode(now.Add(-5 * time.Hour)), Amount: 180, DonorName: "תורם אנונימי",
			Status: console.DonationCompleted, CreatedAt: at(5 * time.Hour), CompletedAt: at(4 * time.Hour), IsAnonymous: true},
		{ID: "5", DonationID: donationCode(now.Add(-1 * time.Hour)), Amount: 36, DonorName: "Rivka", Message: "לעילוי נשמת",
			Status: console.DonationPending, CreatedAt: at(time.Hour), Source: console.SourceDirect},
	}
	events := make([]console.AnalyticsEvent, 0, 24)
	for i := 0; i < 24; i++ {
		events = append(events, console.AnalyticsEvent{
			ID:        console.RecordID(fmt.Sprint(6 + i)),
			SessionID: fmt.Sprintf("session_demo_%d", i%7),
			Category:  "Page",
			Action:    "visit",
			Label:     "landing",
			Value:     1,
			URL:       "/",
			CreatedAt: at(time.Duration(i) * 10 * time.Minute),
		})
	}
	settings := map[string]string{}
	for k := range console.DefaultSettings() {
		settings[k] = console.DefaultSettings().String(k)
	}
	return Seed{Registrations: regs, Donations: dons, Analytics: events, Settings: settings}
}

func donationCode(t time.Time) string {
	return fmt.Sprintf("DON_%s_%s", t.Format("20060102_150405"), randomHex(3))
}
