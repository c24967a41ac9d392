package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/austinmedina/spendingManagement/internal/common"
	"github.com/austinmedina/spendingManagement/internal/model"
	"github.com/austinmedina/spendingManagement/internal/schedule"
)

// ProcessDue fires every active recurring definition whose next date is on or
// before asOf, catching up all missed occurrences. Each fired occurrence is
// stamped with its scheduled date and deduplicated by hash, so invoking
// ProcessDue again with the same state creates nothing new. A definition
// whose schedule fails to advance is abandoned with ErrScheduleStuck logged;
// the remaining definitions still process.
//
// The commit order per occurrence is: persist transaction, then advance
// next_date. A crash between the two leaves the definition still due; the
// next pass re-materializes the same occurrence, the hash dedupe drops it,
// and the advance completes.
func (e *Engine) ProcessDue(ctx context.Context, asOf time.Time) ([]model.Transaction, error) {
	defs, err := e.storage.GetActiveRecurringDefinitions(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to load recurring definitions: %w", err)
	}

	asOfDay := schedule.Day(asOf)
	var fired []model.Transaction

	for i := range defs {
		def := &defs[i]
		txns, err := e.processDefinition(ctx, def, asOfDay)
		if err != nil {
			common.LogError(err, "Recurring definition processing aborted", common.Fields{
				"definition_id": def.ID,
				"owner":         def.Owner,
			})
			continue
		}
		fired = append(fired, txns...)
	}

	if len(fired) > 0 {
		slog.Info("Recurring processing complete",
			"definitions", len(defs),
			"fired", len(fired),
			"as_of", asOfDay.Format("2006-01-02"))
	}

	return fired, nil
}

func (e *Engine) processDefinition(ctx context.Context, def *model.RecurringDefinition, asOfDay time.Time) ([]model.Transaction, error) {
	var fired []model.Transaction

	next := schedule.Day(def.NextDate)
	for iterations := 0; !next.After(asOfDay); iterations++ {
		if iterations >= e.cfg.CatchUpLimit {
			return fired, fmt.Errorf("%w: definition %s stalled at %s after %d iterations",
				common.ErrScheduleStuck, def.ID, next.Format("2006-01-02"), iterations)
		}

		txn := def.Materialize(next)
		created, err := e.storage.SaveTransaction(ctx, &txn)
		if err != nil {
			return fired, fmt.Errorf("failed to persist occurrence %s: %w", next.Format("2006-01-02"), err)
		}
		if created {
			fired = append(fired, txn)
			e.recordRecurringDue(ctx, def, &txn)
		}

		advanced := schedule.NextOccurrence(next, def.Frequency)
		if !advanced.After(next) {
			return fired, fmt.Errorf("%w: definition %s frequency %q did not advance from %s",
				common.ErrScheduleStuck, def.ID, def.Frequency, next.Format("2006-01-02"))
		}
		if err := e.storage.UpdateRecurringNextDate(ctx, def.ID, advanced); err != nil {
			// The transaction is already persisted; the hash dedupe makes
			// the retry on the next pass harmless.
			return fired, fmt.Errorf("failed to advance next date: %w", err)
		}
		next = advanced
	}

	return fired, nil
}

// recordRecurringDue creates the recurring_due notification for a firing,
// for the owner and, when the definition is shared with a group, for every
// other member. Notification failures never block the firing itself.
func (e *Engine) recordRecurringDue(ctx context.Context, def *model.RecurringDefinition, txn *model.Transaction) {
	recipients := []string{def.Owner}
	if def.GroupID != "" {
		group, err := e.storage.GetGroup(ctx, def.GroupID)
		if err != nil {
			common.LogError(err, "Failed to load group for due notification", common.Fields{
				"definition_id": def.ID,
				"group_id":      def.GroupID,
			})
		} else {
			for _, member := range group.Members {
				if member != def.Owner {
					recipients = append(recipients, member)
				}
			}
		}
	}

	occurrence := model.DateKey(txn.Date)
	for _, recipient := range recipients {
		n := &model.Notification{
			ID:    model.NewID(),
			Owner: recipient,
			Kind:  model.KindRecurringDue,
			Title: fmt.Sprintf("Due today: %s", def.Description),
			Message: fmt.Sprintf("%s (%s) charged $%s on %s",
				def.Description, def.Frequency, txn.Amount.StringFixed(2), occurrence),
			Reference: def.ID,
			Period:    occurrence,
		}
		if err := e.storage.SaveNotification(ctx, n); err != nil {
			common.LogError(err, "Failed to save due notification", common.Fields{
				"definition_id": def.ID,
				"owner":         recipient,
			})
		}
	}
}
