package service

import (
	"context"
	"errors"
	"fmt"

	"pestcontrol_backend/internal/reports/domain"
	"pestcontrol_backend/internal/reports/repository"
	"pestcontrol_backend/internal/reports/transport"
	"pestcontrol_backend/platform/apperr"
	"pestcontrol_backend/platform/db"
	"pestcontrol_backend/platform/locker"
	"pestcontrol_backend/platform/sanitize"

	"github.com/google/uuid"
)

const msgUploadInProgress = "this report is already being submitted"

func payloadMissing(rep domain.Report, stations int, f transport.FumigationRequest) []string {
	return domain.MissingForSubmission(domain.SubmissionInput{
		ReportType:          rep.ReportType,
		PcoSignature:        rep.PcoSignature,
		ClientSignature:     rep.ClientSignature,
		ClientSignatureName: rep.ClientSignatureName,
		BaitStations:        stations,
		FumigationAreas:     len(f.Areas),
		TargetPests:         len(f.TargetPests),
	})
}

// prevalidate converts the embedded payload once before any write so that
// malformed input is rejected up front.
func prevalidate(stations []transport.BaitStationRequest, f transport.FumigationRequest) error {
	for _, st := range stations {
		if _, err := toChemicals(st.Chemicals); err != nil {
			return err
		}
	}
	_, err := toChemicals(f.Chemicals)
	return err
}

func (s *Service) obtainUploadLock(ctx context.Context, clientID, pcoID uuid.UUID, f transport.ReportFields) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	key := fmt.Sprintf("reports:complete:%s:%s:%s", clientID, pcoID, f.ServiceDate.Format("2006-01-02"))
	lock, err := s.locker.Obtain(ctx, key, s.submitLockTTL())
	if err != nil {
		if errors.Is(err, locker.ErrNotObtained) {
			return nil, apperr.Conflict(msgUploadInProgress)
		}
		return nil, err
	}
	return func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.log.WithContext(ctx).Warn("failed to release upload lock", "key", key, "error", err)
		}
	}, nil
}

// Complete creates a report straight into review together with its
// sub-entities, classifies the equipment and releases the technician, all
// in one unit of work. Concurrent uploads of the same visit are serialised
// through the locker.
func (s *Service) Complete(ctx context.Context, actor Actor, req transport.CompleteReportRequest) (*transport.ReportResponse, error) {
	now := s.now()
	rep := domain.Report{
		ID:          uuid.New(),
		ClientID:    req.ClientID,
		PcoID:       actor.UserID,
		Status:      domain.StatusPending,
		SubmittedAt: &now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := applyFields(&rep, req.ReportFields); err != nil {
		return nil, err
	}
	if missing := payloadMissing(rep, len(req.BaitStations), req.Fumigation); len(missing) > 0 {
		return nil, incomplete(missing)
	}
	if err := prevalidate(req.BaitStations, req.Fumigation); err != nil {
		return nil, err
	}

	release, err := s.obtainUploadLock(ctx, rep.ClientID, rep.PcoID, req.ReportFields)
	if err != nil {
		return nil, err
	}
	defer release()

	var (
		result Reconciliation
		detail domain.ReportDetail
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context, q db.DBTX) error {
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
		if err := s.replaceStations(ctx, q, rep.ID, req.BaitStations, now); err != nil {
			return err
		}
		if err := s.replaceMonitors(ctx, q, rep.ID, req.InsectMonitors, now); err != nil {
			return err
		}
		if err := s.replaceFumigation(ctx, q, rep.ID, req.Fumigation); err != nil {
			return err
		}
		var err error
		if result, err = s.reconcile(ctx, q, rep, ReconcileOptions{Override: toOverride(req.ExpectedCounts)}); err != nil {
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

	s.log.WithContext(ctx).Info("complete report submitted", "report_id", rep.ID, "client_id", rep.ClientID, "status", rep.Status)
	s.publishSubmitted(ctx, detail, result, false)
	return toResponse(detail), nil
}

// Resubmit replaces the whole content of a declined report and puts it back
// into review. Expected counts, when given, force re-classification of the
// groups they touch.
func (s *Service) Resubmit(ctx context.Context, actor Actor, id uuid.UUID, req transport.ResubmitReportRequest) (*transport.ReportResponse, error) {
	rep, err := s.loadOwned(ctx, s.pool, actor, id)
	if err != nil {
		return nil, err
	}
	if err := requireStatus(rep, domain.ActionResubmit); err != nil {
		return nil, err
	}
	if err := applyFields(&rep, req.ReportFields); err != nil {
		return nil, err
	}
	if missing := payloadMissing(rep, len(req.BaitStations), req.Fumigation); len(missing) > 0 {
		return nil, incomplete(missing)
	}
	if err := prevalidate(req.BaitStations, req.Fumigation); err != nil {
		return nil, err
	}

	now := s.now()
	rep.UpdatedAt = now
	override := toOverride(req.ExpectedCounts)

	var (
		result Reconciliation
		detail domain.ReportDetail
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context, q db.DBTX) error {
		allowed := domain.AllowedFrom(domain.ActionResubmit)
		if err := s.store.UpdateContent(ctx, q, rep, allowed); err != nil {
			return statusErr(err)
		}
		if err := s.replaceStations(ctx, q, rep.ID, req.BaitStations, now); err != nil {
			return err
		}
		if err := s.replaceMonitors(ctx, q, rep.ID, req.InsectMonitors, now); err != nil {
			return err
		}
		if err := s.replaceFumigation(ctx, q, rep.ID, req.Fumigation); err != nil {
			return err
		}
		if err := s.store.Transition(ctx, q, repository.StatusChange{
			ID:          rep.ID,
			From:        allowed,
			To:          domain.StatusPending,
			SubmittedAt: &now,
			At:          now,
		}); err != nil {
			return statusErr(err)
		}
		var err error
		if result, err = s.reconcile(ctx, q, rep, ReconcileOptions{Override: override, ForceGroups: override.Groups()}); err != nil {
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

	s.log.WithContext(ctx).Info("report resubmitted", "report_id", rep.ID, "status", domain.StatusPending)
	s.publishSubmitted(ctx, detail, result, true)
	return toResponse(detail), nil
}

// AdminEdit applies an administrative correction. Sub-entities are diffed
// against storage. Reports already in review are reconciled again; expected
// count overrides force the groups they touch to be re-marked.
func (s *Service) AdminEdit(ctx context.Context, actor Actor, id uuid.UUID, req transport.AdminUpdateReportRequest) (*transport.ReportResponse, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	rep, err := s.store.Get(ctx, s.pool, id)
	if err != nil {
		return nil, err
	}
	if err := requireStatus(rep, domain.ActionAdminEdit); err != nil {
		return nil, err
	}
	if err := applyPatch(&rep, req.UpdateReportRequest); err != nil {
		return nil, err
	}
	if req.AdminNotes != nil {
		rep.AdminNotes = sanitize.TextPtr(req.AdminNotes)
	}

	now := s.now()
	rep.UpdatedAt = now
	override := toOverride(req.ExpectedCounts)

	var detail domain.ReportDetail
	err = s.tx.WithinTx(ctx, func(ctx context.Context, q db.DBTX) error {
		if err := s.store.UpdateContent(ctx, q, rep, domain.AllowedFrom(domain.ActionAdminEdit)); err != nil {
			return statusErr(err)
		}
		if err := s.applyDiffs(ctx, q, rep.ID, req.UpdateReportRequest, now); err != nil {
			return err
		}

		if rep.Status == domain.StatusPending || !override.IsZero() {
			if _, err := s.reconcile(ctx, q, rep, ReconcileOptions{Override: override, ForceGroups: override.Groups()}); err != nil {
				return err
			}
		} else if err := s.refreshCounts(ctx, q, rep.ID); err != nil {
			return err
		}

		var err error
		detail, err = s.loadDetail(ctx, q, rep.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.WithContext(ctx).Info("report edited by admin", "report_id", rep.ID, "status", rep.Status, "admin_id", actor.UserID)
	return toResponse(detail), nil
}
