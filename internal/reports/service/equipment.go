package service

import (
	"context"
	"slices"

	"pestcontrol_backend/internal/reports/domain"
	"pestcontrol_backend/platform/db"

	"github.com/google/uuid"
)

// ReconcileOptions tune a reconciliation run.
type ReconcileOptions struct {
	// Override replaces parts of the stored baseline for this run.
	Override domain.BaselineOverride
	// ForceGroups are re-marked even when their items already carry
	// new-addition flags.
	ForceGroups []domain.Group
}

// Reconciliation is the outcome of a reconciliation run.
type Reconciliation struct {
	NewBaitStations   int
	NewInsectMonitors int
	Baseline          domain.Baseline
	BaselineChanged   bool
}

// reconcile classifies the report's equipment against the client baseline,
// ratchets the baseline to the submitted footprint and stores the aggregate
// new counts. A group whose items are already marked is left as it is, so a
// second run changes nothing.
func (s *Service) reconcile(ctx context.Context, q db.DBTX, rep domain.Report, opts ReconcileOptions) (Reconciliation, error) {
	client, err := s.store.GetClient(ctx, q, rep.ClientID)
	if err != nil {
		return Reconciliation{}, err
	}
	// Every classification of a report is measured against the baseline the
	// client had before the report first raised it.
	prior := client.Baseline
	if rep.PriorBaseline != nil {
		prior = *rep.PriorBaseline
	} else if err := s.store.SetPriorBaseline(ctx, q, rep.ID, prior); err != nil {
		return Reconciliation{}, err
	}
	measured := prior.Apply(opts.Override)
	next := client.Baseline

	flagged := make(map[domain.Group]int, len(domain.AllGroups))
	for _, g := range domain.AllGroups {
		items, err := s.store.ListEquipment(ctx, q, rep.ID, g)
		if err != nil {
			return Reconciliation{}, err
		}
		if len(items) == 0 {
			continue
		}

		mark := slices.Contains(opts.ForceGroups, g)
		if !mark {
			marked, err := s.store.HasNewAdditions(ctx, q, rep.ID, g)
			if err != nil {
				return Reconciliation{}, err
			}
			if marked {
				s.log.Debug("equipment already marked, skipping", "report_id", rep.ID, "group", g)
			}
			mark = !marked
		}

		if mark {
			classification := domain.Classify(items, measured)
			if err := s.store.MarkNew(ctx, q, rep.ID, g, classification.NewIDs); err != nil {
				return Reconciliation{}, err
			}
			flagged[g] = len(classification.NewIDs)
		} else {
			flagged[g] = domain.CountFlagged(items)
		}

		next, _ = domain.Ratchet(next, g, domain.CountByCategory(items))
	}

	result := Reconciliation{
		NewBaitStations:   flagged[domain.GroupBaitStations],
		NewInsectMonitors: flagged[domain.GroupInsectMonitors],
		Baseline:          next,
		BaselineChanged:   next != client.Baseline,
	}

	if result.BaselineChanged {
		if err := s.store.UpdateBaseline(ctx, q, rep.ClientID, next); err != nil {
			return Reconciliation{}, err
		}
	}
	if err := s.store.SetNewCounts(ctx, q, rep.ID, result.NewBaitStations, result.NewInsectMonitors); err != nil {
		return Reconciliation{}, err
	}

	s.log.Info("equipment reconciled",
		"report_id", rep.ID,
		"client_id", rep.ClientID,
		"new_bait_stations", result.NewBaitStations,
		"new_insect_monitors", result.NewInsectMonitors,
		"baseline_changed", result.BaselineChanged,
	)
	return result, nil
}

// refreshCounts recomputes the aggregates from the persisted flags without
// classifying anything.
func (s *Service) refreshCounts(ctx context.Context, q db.DBTX, reportID uuid.UUID) error {
	counts := make(map[domain.Group]int, len(domain.AllGroups))
	for _, g := range domain.AllGroups {
		items, err := s.store.ListEquipment(ctx, q, reportID, g)
		if err != nil {
			return err
		}
		counts[g] = domain.CountFlagged(items)
	}
	return s.store.SetNewCounts(ctx, q, reportID, counts[domain.GroupBaitStations], counts[domain.GroupInsectMonitors])
}
