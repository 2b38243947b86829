package service

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"presence-sync/core/constants"
	"presence-sync/core/errors"
	"presence-sync/core/logger"
	"presence-sync/core/scheduler"
	"presence-sync/modules/calendarsync/dto"
	"presence-sync/modules/calendarsync/entity"
	"presence-sync/modules/calendarsync/gateway"
	"presence-sync/modules/calendarsync/repository"
	"presence-sync/modules/calendarsync/task"
	linkentity "presence-sync/modules/link/entity"
	presencedto "presence-sync/modules/presence/dto"
	presencesvc "presence-sync/modules/presence/service"

	"golang.org/x/sync/errgroup"
)

// AccountSource lists the linked accounts to reconcile and resolves their
// calendar credentials.
type AccountSource interface {
	GetLinkedAccounts(ctx context.Context) ([]linkentity.LinkedAccount, error)
	GetCalendarAccountByLinkCode(ctx context.Context, linkCode string) (*linkentity.CalendarAccount, error)
}

// SyncService reconciles each linked account's calendar against the
// synced-event ledger, scheduling and cancelling presence transitions so the
// three stores converge on the calendar's current truth. Reconcile is
// idempotent: with no upstream change, a second run performs no mutations.
type SyncService interface {
	Reconcile(ctx context.Context) error
	CleanupUser(ctx context.Context, userID string) error
}

type syncService struct {
	accounts  AccountSource
	ledger    repository.SyncedEventRepository
	gateway   gateway.Gateway
	scheduler scheduler.Scheduler
	presence  presencesvc.PresenceService

	window   time.Duration
	maxDelay time.Duration
	workers  int
	now      func() time.Time

	accountLocks sync.Map // userID -> *sync.Mutex
}

func NewSyncService(
	accounts AccountSource,
	ledger repository.SyncedEventRepository,
	gw gateway.Gateway,
	sched scheduler.Scheduler,
	presence presencesvc.PresenceService,
	workers int,
) SyncService {
	if workers <= 0 {
		workers = constants.SyncWorkers
	}
	return &syncService{
		accounts:  accounts,
		ledger:    ledger,
		gateway:   gw,
		scheduler: sched,
		presence:  presence,
		window:    constants.SyncWindow,
		maxDelay:  constants.MaxScheduleDelay,
		workers:   workers,
		now:       time.Now,
	}
}

// Reconcile runs one pass over all linked accounts. Accounts are independent
// and reconcile concurrently; no failure in one account ever aborts another.
func (s *syncService) Reconcile(ctx context.Context) error {
	accs, err := s.accounts.GetLinkedAccounts(ctx)
	if err != nil {
		logger.Error("SyncService:Reconcile:GetAccountsError", "error", err)
		return errors.NewAppError(errors.ErrGetFailed, "failed to load linked accounts", err)
	}

	logger.Info("SyncService:Reconcile:Start", "accounts", len(accs))

	g := new(errgroup.Group)
	g.SetLimit(s.workers)
	for i := range accs {
		acc := accs[i]
		g.Go(func() error {
			s.reconcileAccount(ctx, &acc)
			return nil
		})
	}
	_ = g.Wait()

	logger.Info("SyncService:Reconcile:Done", "accounts", len(accs))
	return nil
}

func (s *syncService) accountLock(userID string) *sync.Mutex {
	l, _ := s.accountLocks.LoadOrStore(userID, &sync.Mutex{})
	return l.(*sync.Mutex)
}

// reconcileAccount is one fetch-diff-mutate cycle for one account. A still
// running pass for the same account causes this tick to be skipped, so two
// overlapping ticks can never both create a task for the same new event.
func (s *syncService) reconcileAccount(ctx context.Context, acc *linkentity.LinkedAccount) {
	lock := s.accountLock(acc.UserID)
	if !lock.TryLock() {
		logger.Debug("SyncService:ReconcileAccount:StillRunning", "user_id", acc.UserID)
		return
	}
	defer lock.Unlock()

	ctx, cancel := context.WithTimeout(ctx, constants.SyncAccountTimeout)
	defer cancel()

	calAcc, err := s.accounts.GetCalendarAccountByLinkCode(ctx, acc.LinkCode)
	if err != nil {
		if err == sql.ErrNoRows {
			logger.Debug("SyncService:ReconcileAccount:NoCredential", "user_id", acc.UserID)
		} else {
			logger.Warn("SyncService:ReconcileAccount:CredentialError", "user_id", acc.UserID, "error", err)
		}
		return
	}
	if calAcc.Provider != constants.ProviderGoogle {
		logger.Debug("SyncService:ReconcileAccount:UnsupportedProvider", "user_id", acc.UserID, "provider", calAcc.Provider)
		return
	}

	now := s.now()
	events, err := s.gateway.FetchEvents(ctx, calAcc, now, now.Add(s.window))
	if err != nil {
		// Transient fetch failure; the account is retried on the next tick.
		logger.Warn("SyncService:ReconcileAccount:FetchError", "user_id", acc.UserID, "error", err)
		return
	}

	rows, err := s.ledger.GetByUserID(ctx, acc.UserID)
	if err != nil {
		logger.Warn("SyncService:ReconcileAccount:LedgerError", "user_id", acc.UserID, "error", err)
		return
	}

	existing := make(map[string]*entity.SyncedEvent, len(rows))
	for i := range rows {
		existing[rows[i].EventID] = &rows[i]
	}
	seen := make(map[string]bool, len(events))

	for i := range events {
		ev := &events[i]
		if err := s.processEvent(ctx, acc.UserID, calAcc, ev, existing, seen, now); err != nil {
			logger.Warn("SyncService:ReconcileAccount:EventError",
				"user_id", acc.UserID, "event_id", ev.ID, "error", err)
		}
	}

	// Events that disappeared upstream, or fell out of the fetch window and
	// are presumed resolved.
	for i := range rows {
		row := &rows[i]
		if seen[row.EventID] {
			continue
		}
		if err := s.releaseRow(ctx, row); err != nil {
			logger.Warn("SyncService:ReconcileAccount:CleanupError",
				"user_id", acc.UserID, "event_id", row.EventID, "error", err)
		}
	}
}

func (s *syncService) processEvent(
	ctx context.Context,
	userID string,
	calAcc *linkentity.CalendarAccount,
	ev *dto.CalendarEvent,
	existing map[string]*entity.SyncedEvent,
	seen map[string]bool,
	now time.Time,
) error {
	if ev.ID == "" {
		return errors.NewAppError(errors.ErrMalformedEvent, "event missing id", nil)
	}
	// Recurring series are not tracked; only expanded single instances count.
	if len(ev.Recurrence) > 0 {
		return nil
	}
	seen[ev.ID] = true

	start, end, err := s.resolveWindow(ctx, calAcc, ev)
	if err != nil {
		return err
	}
	lastMod := parseUpdated(ev.Updated)

	row, tracked := existing[ev.ID]
	switch {
	case !tracked:
		if !end.After(now) {
			// Already over; never worth a row.
			return nil
		}
		return s.trackNewEvent(ctx, userID, ev.ID, start, end, lastMod, now)

	case s.eventChanged(row, start, end, lastMod):
		return s.applyEventChange(ctx, row, start, end, lastMod, now)

	case !end.After(now):
		// Unchanged but fully elapsed; release the row and any away state.
		return s.releaseRow(ctx, row)

	case !row.AfkActive && !start.After(now):
		// The transition task has fired (or activation was missed while we
		// were down); converge the ledger. The presence write itself is the
		// task's job and is idempotent either way.
		row.TaskID = nil
		row.AfkActive = true
		if err := s.ledger.Update(ctx, row); err != nil {
			return errors.NewAppError(errors.ErrStoreWrite, "failed to activate ledger row", err)
		}
		logger.Debug("SyncService:ProcessEvent:Activated", "user_id", userID, "event_id", ev.ID)
		return nil
	}

	return nil
}

func (s *syncService) eventChanged(row *entity.SyncedEvent, start, end time.Time, lastMod *time.Time) bool {
	if lastMod != nil && row.LastModified != nil && lastMod.After(*row.LastModified) {
		return true
	}
	return !row.StartTime.Equal(start) || !row.EndTime.Equal(end)
}

// trackNewEvent handles an event with no ledger row: schedule a transition
// for a future start, or activate immediately when the event is already
// ongoing (e.g. the engine was down when it started).
func (s *syncService) trackNewEvent(ctx context.Context, userID, eventID string, start, end time.Time, lastMod *time.Time, now time.Time) error {
	if start.After(now) {
		delay := start.Sub(now)
		if delay >= s.maxDelay {
			// Outside the schedulable horizon; a later tick picks it up.
			logger.Debug("SyncService:TrackNewEvent:BeyondHorizon", "user_id", userID, "event_id", eventID, "delay", delay)
			return nil
		}

		taskID, err := s.scheduler.Schedule(ctx, constants.TaskSetAway, task.SetAwayPayload{
			UserID:    userID,
			EventID:   eventID,
			StartTime: start,
			EndTime:   end,
		}, delay)
		if err != nil {
			return errors.NewAppError(errors.ErrTaskOp, "failed to schedule transition", err)
		}

		row := &entity.SyncedEvent{
			UserID:       userID,
			EventID:      eventID,
			TaskID:       &taskID,
			StartTime:    start,
			EndTime:      end,
			LastModified: lastMod,
			AfkActive:    false,
		}
		if err := s.ledger.Create(ctx, row); err != nil {
			// Do not leave an untracked task behind.
			if cerr := s.scheduler.Cancel(ctx, taskID); cerr != nil {
				logger.Warn("SyncService:TrackNewEvent:RollbackCancelError", "task_id", taskID, "error", cerr)
			}
			return errors.NewAppError(errors.ErrStoreWrite, "failed to create ledger row", err)
		}

		logger.Info("SyncService:TrackNewEvent:Scheduled", "user_id", userID, "event_id", eventID, "start", start)
		return nil
	}

	// Ongoing right now: apply the away record directly.
	endsAt := end
	if _, err := s.presence.Set(ctx, userID, &presencedto.AwayRecord{
		StartedAt: start,
		EndsAt:    &endsAt,
		Text:      task.BuildAwayText(start, end),
		EventID:   eventID,
	}); err != nil {
		return errors.NewAppError(errors.ErrStoreWrite, "failed to set away record", err)
	}

	row := &entity.SyncedEvent{
		UserID:       userID,
		EventID:      eventID,
		StartTime:    start,
		EndTime:      end,
		LastModified: lastMod,
		AfkActive:    true,
	}
	if err := s.ledger.Create(ctx, row); err != nil {
		return errors.NewAppError(errors.ErrStoreWrite, "failed to create ledger row", err)
	}

	logger.Info("SyncService:TrackNewEvent:Activated", "user_id", userID, "event_id", eventID, "ends_at", end)
	return nil
}

// applyEventChange re-derives the desired state for a tracked event whose
// upstream definition moved: cancel the stale transition, then branch on the
// new window the same way a new event would.
func (s *syncService) applyEventChange(ctx context.Context, row *entity.SyncedEvent, start, end time.Time, lastMod *time.Time, now time.Time) error {
	if h := row.TaskHandle(); h != "" {
		if err := s.scheduler.Cancel(ctx, h); err != nil {
			logger.Warn("SyncService:ApplyEventChange:CancelError", "task_id", h, "error", err)
		}
	}

	switch {
	case start.After(now):
		// Re-armed into the future; any live away state for it is wrong now.
		if row.AfkActive {
			if err := s.presence.Clear(ctx, row.UserID); err != nil {
				logger.Warn("SyncService:ApplyEventChange:ClearError", "user_id", row.UserID, "error", err)
			}
		}

		delay := start.Sub(now)
		if delay >= s.maxDelay {
			// A row with no task and no away state must not linger; drop it
			// and let a later tick re-track the event inside the horizon.
			return s.deleteRow(ctx, row)
		}

		taskID, err := s.scheduler.Schedule(ctx, constants.TaskSetAway, task.SetAwayPayload{
			UserID:    row.UserID,
			EventID:   row.EventID,
			StartTime: start,
			EndTime:   end,
		}, delay)
		if err != nil {
			return errors.NewAppError(errors.ErrTaskOp, "failed to reschedule transition", err)
		}

		row.TaskID = &taskID
		row.StartTime = start
		row.EndTime = end
		row.LastModified = lastMod
		row.AfkActive = false
		if err := s.ledger.Update(ctx, row); err != nil {
			return errors.NewAppError(errors.ErrStoreWrite, "failed to update ledger row", err)
		}

		logger.Info("SyncService:ApplyEventChange:Rescheduled", "user_id", row.UserID, "event_id", row.EventID, "start", start)
		return nil

	case end.After(now):
		// Ongoing under the new window.
		if row.AfkActive {
			// Rewrite the record in place instead of clear-and-set, so the
			// away state never flickers off.
			if err := s.presence.ExtendWindow(ctx, row.UserID, start, end, task.BuildAwayText(start, end)); err != nil {
				return errors.NewAppError(errors.ErrStoreWrite, "failed to extend away record", err)
			}
		} else {
			endsAt := end
			if _, err := s.presence.Set(ctx, row.UserID, &presencedto.AwayRecord{
				StartedAt: start,
				EndsAt:    &endsAt,
				Text:      task.BuildAwayText(start, end),
				EventID:   row.EventID,
			}); err != nil {
				return errors.NewAppError(errors.ErrStoreWrite, "failed to set away record", err)
			}
		}

		row.TaskID = nil
		row.StartTime = start
		row.EndTime = end
		row.LastModified = lastMod
		row.AfkActive = true
		if err := s.ledger.Update(ctx, row); err != nil {
			return errors.NewAppError(errors.ErrStoreWrite, "failed to update ledger row", err)
		}

		logger.Info("SyncService:ApplyEventChange:Active", "user_id", row.UserID, "event_id", row.EventID, "ends_at", end)
		return nil

	default:
		// Moved into the past; clean up before the row goes away.
		if row.AfkActive {
			if err := s.presence.Clear(ctx, row.UserID); err != nil {
				return errors.NewAppError(errors.ErrStoreWrite, "failed to clear away record", err)
			}
		}
		return s.deleteRow(ctx, row)
	}
}

// releaseRow tears down one ledger row: cancel its transition if one is
// still pending, clear the away state it owns, then delete the row.
func (s *syncService) releaseRow(ctx context.Context, row *entity.SyncedEvent) error {
	if h := row.TaskHandle(); h != "" {
		if err := s.scheduler.Cancel(ctx, h); err != nil {
			logger.Warn("SyncService:ReleaseRow:CancelError", "task_id", h, "error", err)
		}
	}
	if row.AfkActive {
		if err := s.presence.Clear(ctx, row.UserID); err != nil {
			// Keep the row so the next tick retries the cleanup.
			return errors.NewAppError(errors.ErrStoreWrite, "failed to clear away record", err)
		}
	}
	return s.deleteRow(ctx, row)
}

func (s *syncService) deleteRow(ctx context.Context, row *entity.SyncedEvent) error {
	if err := s.ledger.Delete(ctx, row.UserID, row.EventID); err != nil {
		return errors.NewAppError(errors.ErrStoreWrite, "failed to delete ledger row", err)
	}
	logger.Debug("SyncService:DeleteRow", "user_id", row.UserID, "event_id", row.EventID)
	return nil
}

// CleanupUser releases every synced event for a user, used when the account
// unlinks. Task cancellation is best-effort; a fired task's presence write is
// idempotent and self-expiring.
func (s *syncService) CleanupUser(ctx context.Context, userID string) error {
	lock := s.accountLock(userID)
	lock.Lock()
	defer lock.Unlock()

	rows, err := s.ledger.GetByUserID(ctx, userID)
	if err != nil {
		return errors.NewAppError(errors.ErrGetFailed, "failed to load synced events", err)
	}

	active := false
	for i := range rows {
		if h := rows[i].TaskHandle(); h != "" {
			if err := s.scheduler.Cancel(ctx, h); err != nil {
				logger.Warn("SyncService:CleanupUser:CancelError", "task_id", h, "error", err)
			}
		}
		if rows[i].AfkActive {
			active = true
		}
	}

	if active {
		if err := s.presence.Clear(ctx, userID); err != nil {
			return errors.NewAppError(errors.ErrStoreWrite, "failed to clear away record", err)
		}
	}

	if err := s.ledger.DeleteByUserID(ctx, userID); err != nil {
		return errors.NewAppError(errors.ErrDeleteFailed, "failed to delete synced events", err)
	}

	logger.Info("SyncService:CleanupUser:Done", "user_id", userID, "rows", len(rows))
	return nil
}
