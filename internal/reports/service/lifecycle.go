package service

import (
	"context"
	"fmt"
	"time"

	assignmentsdomain "pestcontrol_backend/internal/assignments/domain"
	"pestcontrol_backend/internal/events"
	"pestcontrol_backend/internal/reports/domain"
	"pestcontrol_backend/internal/reports/repository"
	"pestcontrol_backend/internal/reports/transport"
	"pestcontrol_backend/internal/scheduler"
	"pestcontrol_backend/platform/apperr"
	"pestcontrol_backend/platform/db"
	"pestcontrol_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	msgOpenReportExists  = "an open report already exists for this client"
	msgServiceDateExists = "a report already exists for this client on this service date"
	msgIncomplete        = "report is incomplete"
	msgAssignedElsewhere = "client is now assigned to another technician"
	msgDeclineNotesFmt   = "admin_notes must be at least %d characters"
	msgOnlyOwnerDeletes  = "only the technician who created the report can delete it"
	msgOnlyOwnerSubmits  = "only the technician who created the report can submit it"
)

func duplicateOf(rep *domain.Report, message string) error {
	return apperr.Conflict(message).WithDetails(transport.DuplicateReportDetails{
		ExistingReportID: rep.ID,
		Status:           string(rep.Status),
	})
}

// checkDuplicates rejects a new report that would collide with an open
// report of the same technician or any live report on the same date.
func (s *Service) checkDuplicates(ctx context.Context, q db.DBTX, clientID, pcoID uuid.UUID, serviceDate time.Time) error {
	open, err := s.store.FindOpen(ctx, q, clientID, pcoID)
	if err != nil {
		return err
	}
	if open != nil {
		return duplicateOf(open, msgOpenReportExists)
	}
	sameDay, err := s.store.FindOnServiceDate(ctx, q, clientID, serviceDate)
	if err != nil {
		return err
	}
	if sameDay != nil {
		return duplicateOf(sameDay, msgServiceDateExists)
	}
	return nil
}

// Create opens a draft report for a client the technician is assigned to.
func (s *Service) Create(ctx context.Context, actor Actor, req transport.CreateReportRequest) (*transport.ReportResponse, error) {
	now := s.now()
	rep := domain.Report{
		ID:        uuid.New(),
		ClientID:  req.ClientID,
		PcoID:     actor.UserID,
		Status:    domain.StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := applyFields(&rep, req.ReportFields); err != nil {
		return nil, err
	}

	var detail domain.ReportDetail
	err := s.tx.WithinTx(ctx, func(ctx context.Context, q db.DBTX) error {
		if _, err := s.store.GetClient(ctx, q, rep.ClientID); err != nil {
			return err
		}
		if err := s.assignments.RequireActive(ctx, q, rep.ClientID, rep.PcoID); err != nil {
			return err
		}
		if err := s.checkDuplicates(ctx, q, rep.ClientID, rep.PcoID, rep.ServiceDate); err != nil {
			return err
		}
		if err := s.store.Insert(ctx, q, rep); err != nil {
			return err
		}
		var err error
		detail, err = s.loadDetail(ctx, q, rep.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.WithContext(ctx).Info("report created", "report_id", rep.ID, "client_id", rep.ClientID, "pco_id", rep.PcoID)
	s.publish(ctx, events.ReportCreated{
		BaseEvent: events.NewBaseEvent(),
		ReportID:  rep.ID,
		ClientID:  rep.ClientID,
		PcoID:     rep.PcoID,
	})
	return toResponse(detail), nil
}

// Get returns a report with all of its sub-entities.
func (s *Service) Get(ctx context.Context, actor Actor, id uuid.UUID) (*transport.ReportResponse, error) {
	if _, err := s.loadOwned(ctx, s.pool, actor, id); err != nil {
		return nil, err
	}
	detail, err := s.loadDetail(ctx, s.pool, id)
	if err != nil {
		return nil, err
	}
	return toResponse(detail), nil
}

// Update applies a technician edit to a draft or declined report. Only the
// fields present are changed; present sub-entity lists are diffed.
func (s *Service) Update(ctx context.Context, actor Actor, id uuid.UUID, req transport.UpdateReportRequest) (*transport.ReportResponse, error) {
	rep, err := s.loadOwned(ctx, s.pool, actor, id)
	if err != nil {
		return nil, err
	}
	if err := requireStatus(rep, domain.ActionUpdate); err != nil {
		return nil, err
	}
	if err := applyPatch(&rep, req); err != nil {
		return nil, err
	}

	now := s.now()
	rep.UpdatedAt = now

	var detail domain.ReportDetail
	err = s.tx.WithinTx(ctx, func(ctx context.Context, q db.DBTX) error {
		if err := s.store.UpdateContent(ctx, q, rep, domain.AllowedFrom(domain.ActionUpdate)); err != nil {
			return statusErr(err)
		}
		if err := s.applyDiffs(ctx, q, rep.ID, req, now); err != nil {
			return err
		}
		var err error
		detail, err = s.loadDetail(ctx, q, rep.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.WithContext(ctx).Info("report updated", "report_id", rep.ID, "status", rep.Status)
	return toResponse(detail), nil
}

// Delete discards a draft owned by the caller.
func (s *Service) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	rep, err := s.store.Get(ctx, s.pool, id)
	if err != nil {
		return err
	}
	if rep.PcoID != actor.UserID {
		return apperr.Forbidden(msgOnlyOwnerDeletes)
	}
	if err := requireStatus(rep, domain.ActionDelete); err != nil {
		return err
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context, q db.DBTX) error {
		return statusErr(s.store.Delete(ctx, q, rep.ID, actor.UserID, domain.AllowedFrom(domain.ActionDelete)))
	})
	if err != nil {
		return err
	}

	s.log.WithContext(ctx).Info("report deleted", "report_id", rep.ID)
	s.publish(ctx, events.ReportDeleted{
		BaseEvent: events.NewBaseEvent(),
		ReportID:  rep.ID,
		ClientID:  rep.ClientID,
		PcoID:     rep.PcoID,
	})
	return nil
}

func incomplete(missing []string) error {
	return apperr.Validation(msgIncomplete).WithDetails(transport.SubmissionIncompleteDetails{Missing: missing})
}

// Submit puts a draft or declined report into review: it checks
// completeness, classifies the equipment and releases the technician.
func (s *Service) Submit(ctx context.Context, actor Actor, id uuid.UUID) (*transport.ReportResponse, error) {
	rep, err := s.store.Get(ctx, s.pool, id)
	if err != nil {
		return nil, err
	}
	if rep.PcoID != actor.UserID {
		return nil, apperr.Forbidden(msgOnlyOwnerSubmits)
	}
	if err := requireStatus(rep, domain.ActionSubmit); err != nil {
		return nil, err
	}

	now := s.now()
	resubmission := rep.Status == domain.StatusDeclined

	var (
		result Reconciliation
		detail domain.ReportDetail
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context, q db.DBTX) error {
		counts, err := s.store.Counts(ctx, q, rep.ID)
		if err != nil {
			return err
		}
		missing := domain.MissingForSubmission(domain.SubmissionInput{
			ReportType:          rep.ReportType,
			PcoSignature:        rep.PcoSignature,
			ClientSignature:     rep.ClientSignature,
			ClientSignatureName: rep.ClientSignatureName,
			BaitStations:        counts.BaitStations,
			FumigationAreas:     counts.FumigationAreas,
			TargetPests:         counts.TargetPests,
		})
		if len(missing) > 0 {
			return incomplete(missing)
		}

		if err := s.store.Transition(ctx, q, repository.StatusChange{
			ID:          rep.ID,
			From:        domain.AllowedFrom(domain.ActionSubmit),
			To:          domain.StatusPending,
			SubmittedAt: &now,
			At:          now,
		}); err != nil {
			return statusErr(err)
		}
		if result, err = s.reconcile(ctx, q, rep, ReconcileOptions{}); err != nil {
			return err
		}
		if err := s.assignments.OnSubmit(ctx, q, rep.ClientID, rep.PcoID); err != nil {
			return err
		}
		detail, err = s.loadDetail(ctx, q, rep.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.WithContext(ctx).Info("report submitted", "report_id", rep.ID, "status", domain.StatusPending, "resubmission", resubmission)
	s.publishSubmitted(ctx, detail, result, resubmission)
	return toResponse(detail), nil
}

func (s *Service) publishSubmitted(ctx context.Context, detail domain.ReportDetail, result Reconciliation, resubmission bool) {
	s.publish(ctx, events.ReportSubmitted{
		BaseEvent:         events.NewBaseEvent(),
		ReportID:          detail.ID,
		ClientID:          detail.ClientID,
		ClientName:        detail.ClientName,
		PcoID:             detail.PcoID,
		ServiceDate:       detail.ServiceDate,
		NewBaitStations:   result.NewBaitStations,
		NewInsectMonitors: result.NewInsectMonitors,
		Resubmission:      resubmission,
	})
}

// Approve closes the service cycle: the report is approved and the
// technician's assignment to the client is removed.
func (s *Service) Approve(ctx context.Context, actor Actor, id uuid.UUID, req transport.ApproveReportRequest) (*transport.ReportResponse, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	rep, err := s.store.Get(ctx, s.pool, id)
	if err != nil {
		return nil, err
	}
	if err := requireStatus(rep, domain.ActionApprove); err != nil {
		return nil, err
	}

	now := s.now()
	var detail domain.ReportDetail
	err = s.tx.WithinTx(ctx, func(ctx context.Context, q db.DBTX) error {
		if err := s.store.Transition(ctx, q, repository.StatusChange{
			ID:              rep.ID,
			From:            domain.AllowedFrom(domain.ActionApprove),
			To:              domain.StatusApproved,
			ReviewedBy:      &actor.UserID,
			ReviewedAt:      &now,
			AdminNotes:      sanitize.TextPtr(req.AdminNotes),
			NextServiceDate: dateOrNil(req.NextServiceDate),
			At:              now,
		}); err != nil {
			return statusErr(err)
		}
		if err := s.assignments.OnClose(ctx, q, rep.ClientID, rep.PcoID); err != nil {
			return err
		}
		var err error
		detail, err = s.loadDetail(ctx, q, rep.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.WithContext(ctx).Info("report approved", "report_id", rep.ID, "reviewed_by", actor.UserID)
	s.scheduleNextService(ctx, detail.Report)
	s.publish(ctx, events.ReportApproved{
		BaseEvent:       events.NewBaseEvent(),
		ReportID:        detail.ID,
		ClientID:        detail.ClientID,
		ClientName:      detail.ClientName,
		PcoID:           detail.PcoID,
		ReviewedBy:      actor.UserID,
		NextServiceDate: detail.NextServiceDate,
	})
	return toResponse(detail), nil
}

// scheduleNextService enqueues the reminder for an approved report with a
// next service date. Failures are logged only.
func (s *Service) scheduleNextService(ctx context.Context, rep domain.Report) {
	if s.reminders == nil || rep.NextServiceDate == nil {
		return
	}
	runAt := rep.NextServiceDate.Add(-s.reminderLeadTime())
	if now := s.now(); runAt.Before(now) {
		runAt = now
	}
	payload := scheduler.NextServiceReminderPayload{
		ReportID:        rep.ID.String(),
		ClientID:        rep.ClientID.String(),
		NextServiceDate: rep.NextServiceDate.Format("2006-01-02"),
	}
	if err := s.reminders.ScheduleNextServiceReminder(ctx, payload, runAt); err != nil {
		s.log.WithContext(ctx).Error("failed to schedule next service reminder", "report_id", rep.ID, "error", err)
	}
}

// Decline sends a report back to the technician. Unless force is set, a
// client that now belongs to another technician is reported as a conflict
// and nothing changes.
func (s *Service) Decline(ctx context.Context, actor Actor, id uuid.UUID, req transport.DeclineReportRequest, force bool) (*transport.ReportResponse, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	minLen := s.declineMinNotes()
	notes, ok := domain.DeclineNotes(req.AdminNotes, minLen)
	if !ok {
		return nil, apperr.Validation(fmt.Sprintf(msgDeclineNotesFmt, minLen))
	}
	notes = sanitize.Text(notes)

	rep, err := s.store.Get(ctx, s.pool, id)
	if err != nil {
		return nil, err
	}
	action := domain.ActionDecline
	if force {
		action = domain.ActionForceDecline
	}
	if err := requireStatus(rep, action); err != nil {
		return nil, err
	}

	now := s.now()
	var detail domain.ReportDetail
	err = s.tx.WithinTx(ctx, func(ctx context.Context, q db.DBTX) error {
		if err := s.store.Transition(ctx, q, repository.StatusChange{
			ID:         rep.ID,
			From:       domain.AllowedFrom(action),
			To:         domain.StatusDeclined,
			ReviewedBy: &actor.UserID,
			ReviewedAt: &now,
			AdminNotes: &notes,
			At:         now,
		}); err != nil {
			return statusErr(err)
		}

		if force {
			if _, err := s.assignments.OnForceDecline(ctx, q, rep.ClientID, rep.PcoID, actor.UserID); err != nil {
				return err
			}
		} else {
			outcome, err := s.assignments.OnDecline(ctx, q, rep.ClientID, rep.PcoID, actor.UserID)
			if err != nil {
				return err
			}
			if conflict, ok := outcome.(assignmentsdomain.DeclineConflict); ok {
				return apperr.Conflict(msgAssignedElsewhere).WithDetails(transport.AssignmentConflictDetails{
					CurrentPcoID:         conflict.CurrentPcoID,
					OriginalPcoID:        conflict.OriginalPcoID,
					RequiresReassignment: true,
				})
			}
		}

		var err error
		detail, err = s.loadDetail(ctx, q, rep.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.WithContext(ctx).Info("report declined", "report_id", rep.ID, "reviewed_by", actor.UserID, "forced", force)
	s.publish(ctx, events.ReportDeclined{
		BaseEvent:  events.NewBaseEvent(),
		ReportID:   detail.ID,
		ClientID:   detail.ClientID,
		ClientName: detail.ClientName,
		PcoID:      detail.PcoID,
		ReviewedBy: actor.UserID,
		AdminNotes: notes,
		Forced:     force,
	})
	return toResponse(detail), nil
}

// Archive moves a report to its terminal state and ends the assignment.
func (s *Service) Archive(ctx context.Context, actor Actor, id uuid.UUID) (*transport.ReportResponse, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	rep, err := s.store.Get(ctx, s.pool, id)
	if err != nil {
		return nil, err
	}
	if err := requireStatus(rep, domain.ActionArchive); err != nil {
		return nil, err
	}

	now := s.now()
	var detail domain.ReportDetail
	err = s.tx.WithinTx(ctx, func(ctx context.Context, q db.DBTX) error {
		if err := s.store.Transition(ctx, q, repository.StatusChange{
			ID:   rep.ID,
			From: domain.AllowedFrom(domain.ActionArchive),
			To:   domain.StatusArchived,
			At:   now,
		}); err != nil {
			return statusErr(err)
		}
		if err := s.assignments.OnClose(ctx, q, rep.ClientID, rep.PcoID); err != nil {
			return err
		}
		var err error
		detail, err = s.loadDetail(ctx, q, rep.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.WithContext(ctx).Info("report archived", "report_id", rep.ID, "archived_by", actor.UserID)
	s.publish(ctx, events.ReportArchived{
		BaseEvent:  events.NewBaseEvent(),
		ReportID:   detail.ID,
		ClientID:   detail.ClientID,
		ClientName: detail.ClientName,
		PcoID:      detail.PcoID,
		ArchivedBy: actor.UserID,
	})
	return toResponse(detail), nil
}
