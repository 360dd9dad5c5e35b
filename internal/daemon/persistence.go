package daemon

import (
	"context"
	"time"

	"jobtrail/internal/logging"
	"jobtrail/internal/notifications"
	"jobtrail/internal/registry"
	"jobtrail/internal/store"
)

const persistTimeout = 5 * time.Second

// onAuthenticated binds the registry to the account's stored applications.
// Entries added before login are written through so both sides match.
func (d *Daemon) onAuthenticated(ctx context.Context, account string) (int, error) {
	userID, err := d.store.EnsureUser(ctx, account)
	if err != nil {
		return 0, err
	}
	d.userID.Store(userID)

	stored, err := d.store.UserApplications(ctx, userID)
	if err != nil {
		return 0, err
	}
	apps := make([]registry.Application, 0, len(stored))
	for _, app := range stored {
		apps = append(apps, registry.Application{
			Company:     app.Company,
			Position:    app.Position,
			Stage:       app.Stage,
			LastUpdated: app.LastUpdated,
		})
	}
	restored := d.registry.Restore(apps)

	for _, app := range d.registry.List() {
		if err := d.store.SaveApplication(ctx, userID, toStored(app)); err != nil {
			return restored, err
		}
	}
	d.logger.Info("applications restored",
		logging.String(logging.FieldEventType, "applications_restored"),
		logging.String("account", account),
		logging.Int("restored", restored),
		logging.Int("total", d.registry.Len()),
	)
	return restored, nil
}

// handleChange mirrors a registry mutation into storage and publishes the
// matching notification. It runs on the mutating goroutine.
func (d *Daemon) handleChange(change registry.Change) {
	logger := d.logger.With(
		logging.Int64(logging.FieldApplicationID, change.Application.ID),
		logging.String(logging.FieldStage, string(change.Application.Stage)),
	)
	if userID := d.userID.Load(); userID > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		var err error
		if change.Kind == registry.ChangeDeleted {
			_, err = d.store.DeleteApplication(ctx, userID, change.Application.Company, change.Application.Position)
		} else {
			err = d.store.SaveApplication(ctx, userID, toStored(change.Application))
		}
		cancel()
		if err != nil {
			logging.WarnWithContext(logger, "failed to persist application change", "persist_failed",
				logging.Error(err),
				logging.String("change", string(change.Kind)),
				logging.String(logging.FieldErrorHint, "check database permissions and free disk space"),
				logging.String(logging.FieldImpact, "the change is lost after a restart"),
			)
		}
	} else {
		logger.Debug("application change not persisted; no account connected", logging.String("change", string(change.Kind)))
	}

	event, payload, ok := changeEvent(change)
	if !ok {
		return
	}
	d.bg.Add(1)
	go func() {
		defer d.bg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := d.notifier.Publish(ctx, event, payload); err != nil {
			logger.Warn("notification failed",
				logging.String("event", string(event)),
				logging.Error(err),
				logging.String(logging.FieldEventType, "notification_failed"),
				logging.String(logging.FieldErrorHint, "check ntfy topic configuration"),
			)
		}
	}()
}

// changeEvent maps a change to a notification. Manual edits are not
// announced.
func changeEvent(change registry.Change) (notifications.Event, notifications.Payload, bool) {
	if change.Source == "manual" {
		return "", nil, false
	}
	payload := notifications.Payload{
		"company":  change.Application.Company,
		"position": change.Application.Position,
		"stage":    change.Application.Stage,
	}
	switch change.Kind {
	case registry.ChangeCreated:
		return notifications.EventApplicationAdded, payload, true
	case registry.ChangeStage:
		payload["previous"] = change.Previous
		return notifications.EventStageChanged, payload, true
	default:
		return "", nil, false
	}
}

func toStored(app registry.Application) store.Application {
	return store.Application{
		Company:     app.Company,
		Position:    app.Position,
		Stage:       app.Stage,
		LastUpdated: app.LastUpdated,
	}
}
