package console

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/goliatone/go-gmarup-admin/pkg/activity"
)

// NextStatus returns the suggested status after current in the cyclic edit
// order. Unknown values suggest the first status.
func NextStatus(kind Collection, current string) string {
	switch kind {
	case CollectionRegistrations:
		return string(nextInCycle(RegistrationStatuses, RegistrationStatus(current)))
	case CollectionDonations:
		return string(nextInCycle(DonationStatuses, DonationStatus(current)))
	}
	return ""
}

func nextInCycle[T comparable](cycle []T, current T) T {
	idx := slices.Index(cycle, current)
	return cycle[(idx+1)%len(cycle)]
}

// Update sends patch to the backend and, only once the backend accepts it,
// applies the same change locally. A rejected update leaves state untouched.
func (c *Console) Update(ctx context.Context, kind Collection, id RecordID, patch Patch) error {
	switch kind {
	case CollectionRegistrations:
		return c.updateRegistration(ctx, id, patch)
	case CollectionDonations:
		return c.updateDonation(ctx, id, patch)
	case CollectionAnalytics, CollectionSettings:
		return fmt.Errorf("%w: %s", ErrReadOnly, kind)
	}
	return fmt.Errorf("%w: %q", ErrUnknownCollection, kind)
}

func (c *Console) updateRegistration(ctx context.Context, id RecordID, patch Patch) error {
	current, ok := c.state.Registration(id)
	if !ok {
		return fmt.Errorf("%w: registration %s", ErrRecordNotFound, id)
	}
	status := RegistrationStatus(strings.TrimSpace(patch.Status))
	if status == "" {
		status = current.Status
	}
	notes := current.Notes
	if patch.Notes != nil {
		notes = *patch.Notes
	}
	update := RegistrationUpdate{ID: id, Status: status, Notes: &notes}
	if err := c.opts.API.UpdateRegistration(ctx, update); err != nil {
		c.notify(ctx, NotificationError, msgRegUpdateFailed)
		c.log(ctx, "console.registration.update_failed", map[string]any{"id": id.String(), "error": err.Error()})
		return fmt.Errorf("console: update registration %s: %w", id, err)
	}
	stamp := c.isoNow()
	c.state.updateRegistration(id, func(r *Registration) {
		r.Status = status
		r.Notes = notes
		r.UpdatedAt = stamp
		if status == RegistrationContacted {
			r.LastContacted = stamp
		}
	})
	c.afterMutation(ctx, EventRecordUpdated, CollectionRegistrations, id, msgRegUpdated)
	c.emitActivity(ctx, activityEvent("registration.update", "registration", id, map[string]any{
		"status":          string(status),
		"previous_status": string(current.Status),
	}))
	return nil
}

func (c *Console) updateDonation(ctx context.Context, id RecordID, patch Patch) error {
	current, ok := c.state.Donation(id)
	if !ok {
		return fmt.Errorf("%w: donation %s", ErrRecordNotFound, id)
	}
	status := DonationStatus(strings.TrimSpace(patch.Status))
	if status == "" {
		status = current.Status
	}
	if err := c.opts.API.UpdateDonation(ctx, DonationUpdate{ID: id, Status: status}); err != nil {
		c.notify(ctx, NotificationError, msgDonUpdateFailed)
		c.log(ctx, "console.donation.update_failed", map[string]any{"id": id.String(), "error": err.Error()})
		return fmt.Errorf("console: update donation %s: %w", id, err)
	}
	stamp := c.isoNow()
	c.state.updateDonation(id, func(d *Donation) {
		d.Status = status
		if status == DonationCompleted && d.CompletedAt == "" {
			d.CompletedAt = stamp
		}
	})
	c.afterMutation(ctx, EventRecordUpdated, CollectionDonations, id, msgDonUpdated)
	c.emitActivity(ctx, activityEvent("donation.update", "donation", id, map[string]any{
		"status":          string(status),
		"previous_status": string(current.Status),
		"amount":          current.Amount.Float(),
	}))
	return nil
}

// Delete asks the Confirmer, then removes the record on the backend and, once
// accepted, locally.
func (c *Console) Delete(ctx context.Context, kind Collection, id RecordID) error {
	var exists bool
	switch kind {
	case CollectionRegistrations:
		_, exists = c.state.Registration(id)
	case CollectionDonations:
		_, exists = c.state.Donation(id)
	case CollectionAnalytics, CollectionSettings:
		return fmt.Errorf("%w: %s", ErrReadOnly, kind)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCollection, kind)
	}
	if !exists {
		return fmt.Errorf("%w: %s %s", ErrRecordNotFound, kind, id)
	}
	ok, err := c.opts.Confirmer.Confirm(ctx, c.deletePrompt(kind, id))
	if err != nil {
		return fmt.Errorf("console: confirm delete: %w", err)
	}
	if !ok {
		return ErrCancelled
	}

	if kind == CollectionRegistrations {
		if err := c.opts.API.DeleteRegistration(ctx, id); err != nil {
			c.notify(ctx, NotificationError, msgRegDeleteFailed)
			return fmt.Errorf("console: delete registration %s: %w", id, err)
		}
		c.state.removeRegistration(id)
		c.afterMutation(ctx, EventRecordDeleted, kind, id, msgRegDeleted)
		c.emitActivity(ctx, activityEvent("registration.delete", "registration", id, nil))
		return nil
	}
	if err := c.opts.API.DeleteDonation(ctx, id); err != nil {
		c.notify(ctx, NotificationError, msgDonDeleteFailed)
		return fmt.Errorf("console: delete donation %s: %w", id, err)
	}
	c.state.removeDonation(id)
	c.afterMutation(ctx, EventRecordDeleted, kind, id, msgDonDeleted)
	c.emitActivity(ctx, activityEvent("donation.delete", "donation", id, nil))
	return nil
}

// EditStatus prompts for a new status pre-filled with NextStatus and applies
// it. An empty or unchanged answer is a no-op and reports false.
func (c *Console) EditStatus(ctx context.Context, kind Collection, id RecordID) (bool, error) {
	var current string
	switch kind {
	case CollectionRegistrations:
		r, ok := c.state.Registration(id)
		if !ok {
			return false, fmt.Errorf("%w: registration %s", ErrRecordNotFound, id)
		}
		current = string(r.Status)
	case CollectionDonations:
		d, ok := c.state.Donation(id)
		if !ok {
			return false, fmt.Errorf("%w: donation %s", ErrRecordNotFound, id)
		}
		current = string(d.Status)
	case CollectionAnalytics, CollectionSettings:
		return false, fmt.Errorf("%w: %s", ErrReadOnly, kind)
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownCollection, kind)
	}
	answer, err := c.opts.Prompter.PromptStatus(ctx, kind, id, current, NextStatus(kind, current))
	if err != nil {
		return false, fmt.Errorf("console: prompt status: %w", err)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" || answer == current {
		return false, nil
	}
	if err := c.Update(ctx, kind, id, Patch{Status: answer}); err != nil {
		return false, err
	}
	return true, nil
}

// ResetTodayVisitors zeroes today's visitor counter. Today's events are
// dropped from memory only; the backend keeps them.
func (c *Console) ResetTodayVisitors(ctx context.Context) (int, error) {
	ok, err := c.opts.Confirmer.Confirm(ctx, message(c.opts.Locale, msgVisitorsReset)+"?")
	if err != nil {
		return 0, fmt.Errorf("console: confirm reset: %w", err)
	}
	if !ok {
		return 0, ErrCancelled
	}
	loc := c.opts.Location
	today := c.now().In(loc).Format(time.DateOnly)
	if err := c.opts.LocalStore.Set(ctx, KeyVisitorsResetDate, today); err != nil {
		c.notify(ctx, NotificationError, msgVisitorsResetError)
		return 0, fmt.Errorf("console: store reset date: %w", err)
	}
	if err := c.opts.LocalStore.Set(ctx, KeyVisitorsResetFlag, "true"); err != nil {
		c.notify(ctx, NotificationError, msgVisitorsResetError)
		return 0, fmt.Errorf("console: store reset flag: %w", err)
	}
	dropped := c.state.dropAnalytics(func(e AnalyticsEvent) bool {
		return !sameDay(e.CreatedAt, today, loc)
	})
	stats := c.RecomputeStats(ctx)
	c.notify(ctx, NotificationSuccess, msgVisitorsReset)
	c.publish(ctx, Event{Type: EventVisitorsReset, Collection: CollectionAnalytics, Stats: &stats})
	c.emitActivity(ctx, activityEvent("analytics.reset_today", "analytics", "", map[string]any{
		"date":    today,
		"dropped": dropped,
	}))
	return dropped, nil
}

func (c *Console) afterMutation(ctx context.Context, typ EventType, kind Collection, id RecordID, key messageKey) {
	stats := c.RecomputeStats(ctx)
	c.notify(ctx, NotificationSuccess, key)
	c.publish(ctx, Event{Type: typ, Collection: kind, RecordID: id, Stats: &stats})
	c.log(ctx, "console."+string(typ), map[string]any{"collection": string(kind), "id": id.String()})
}

func (c *Console) deletePrompt(kind Collection, id RecordID) string {
	if kind == CollectionDonations {
		return ResolveLocalizedValue(localized{
			"he": "האם אתה בטוח שברצונך למחוק תרומה זו?",
			"en": "Delete this donation?",
		}, c.opts.Locale, "") + " (" + id.String() + ")"
	}
	return ResolveLocalizedValue(localized{
		"he": "האם אתה בטוח שברצונך למחוק רישום זה?",
		"en": "Delete this registration?",
	}, c.opts.Locale, "") + " (" + id.String() + ")"
}

func (c *Console) isoNow() string {
	return c.now().UTC().Format("2006-01-02T15:04:05.000Z")
}

func activityEvent(verb, objectType string, id RecordID, meta map[string]any) activity.Event {
	return activity.Event{
		Verb:           verb,
		ObjectType:     objectType,
		ObjectID:       id.String(),
		DefinitionCode: objectType + ":" + verb,
		Metadata:       meta,
	}
}
