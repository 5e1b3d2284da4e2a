package domain

import "testing"

func TestStatusAllows(t *testing.T) {
	cases := []struct {
		from   Status
		action Action
		want   bool
	}{
		{StatusDraft, ActionUpdate, true},
		{StatusDeclined, ActionUpdate, true},
		{StatusPending, ActionUpdate, false},
		{StatusApproved, ActionUpdate, false},
		{StatusArchived, ActionUpdate, false},

		{StatusDraft, ActionSubmit, true},
		{StatusDeclined, ActionSubmit, true},
		{StatusPending, ActionSubmit, false},

		{StatusDraft, ActionApprove, true},
		{StatusPending, ActionApprove, true},
		{StatusDeclined, ActionApprove, false},
		{StatusApproved, ActionApprove, false},

		{StatusPending, ActionDecline, true},
		{StatusDeclined, ActionDecline, false},
		{StatusPending, ActionForceDecline, true},
		{StatusApproved, ActionForceDecline, false},

		{StatusApproved, ActionArchive, true},
		{StatusDeclined, ActionArchive, true},
		{StatusArchived, ActionArchive, false},

		{StatusDraft, ActionDelete, true},
		{StatusPending, ActionDelete, false},

		{StatusDeclined, ActionResubmit, true},
		{StatusDraft, ActionResubmit, false},

		{StatusPending, ActionAdminEdit, true},
		{StatusApproved, ActionAdminEdit, false},
	}

	for _, tc := range cases {
		if got := tc.from.Allows(tc.action); got != tc.want {
			t.Errorf("%s.Allows(%s) = %v, want %v", tc.from, tc.action, got, tc.want)
		}
	}
}

func TestApprovedAndArchivedNeverEditable(t *testing.T) {
	editing := []Action{ActionUpdate, ActionSubmit, ActionResubmit, ActionAdminEdit, ActionDelete, ActionDecline, ActionForceDecline}
	for _, s := range []Status{StatusApproved, StatusArchived} {
		for _, a := range editing {
			if s.Allows(a) {
				t.Errorf("%s must not allow %s", s, a)
			}
		}
	}
}

func TestApprovedReachableOnlyFromDraftOrPending(t *testing.T) {
	for _, s := range AllowedFrom(ActionApprove) {
		if s != StatusDraft && s != StatusPending {
			t.Fatalf("approve reachable from %s", s)
		}
	}
	if target, ok := Target(ActionApprove); !ok || target != StatusApproved {
		t.Fatalf("unexpected approve target %q", target)
	}
	if _, ok := Target(ActionUpdate); ok {
		t.Fatal("update must not change status")
	}
}

func TestReportTypeIncludes(t *testing.T) {
	if !ReportTypeBoth.IncludesBait() || !ReportTypeBoth.IncludesFumigation() {
		t.Fatal("both must include bait and fumigation")
	}
	if ReportTypeFumigation.IncludesBait() {
		t.Fatal("fumigation must not include bait")
	}
	if ReportTypeBaitInspection.IncludesFumigation() {
		t.Fatal("bait inspection must not include fumigation")
	}
	if ReportType("spray").IsValid() {
		t.Fatal("unknown type must be invalid")
	}
}
