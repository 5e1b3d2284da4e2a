package domain

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func strPtr(s string) *string { return &s }

func TestMissingForSubmission(t *testing.T) {
	signed := SubmissionInput{
		PcoSignature:        strPtr("data:image/png;base64,AAA"),
		ClientSignature:     strPtr("data:image/png;base64,BBB"),
		ClientSignatureName: strPtr("Jane Manager"),
	}

	cases := []struct {
		name string
		in   func() SubmissionInput
		want int
	}{
		{"complete bait", func() SubmissionInput {
			in := signed
			in.ReportType = ReportTypeBaitInspection
			in.BaitStations = 1
			return in
		}, 0},
		{"bait without stations", func() SubmissionInput {
			in := signed
			in.ReportType = ReportTypeBaitInspection
			return in
		}, 1},
		{"fumigation without areas or pests", func() SubmissionInput {
			in := signed
			in.ReportType = ReportTypeFumigation
			return in
		}, 2},
		{"both, nothing recorded, no signatures", func() SubmissionInput {
			return SubmissionInput{ReportType: ReportTypeBoth, ClientSignatureName: strPtr("   ")}
		}, 6},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := MissingForSubmission(tc.in())
			if len(got) != tc.want {
				t.Fatalf("expected %d missing, got %d: %v", tc.want, len(got), got)
			}
		})
	}
}

func TestDeclineNotes(t *testing.T) {
	if _, ok := DeclineNotes("too short", 10); ok {
		t.Fatal("9 characters must be rejected")
	}
	if _, ok := DeclineNotes("   padded   ", 10); ok {
		t.Fatal("whitespace must not count")
	}
	notes, ok := DeclineNotes("  Station 4 photo missing ", 10)
	if !ok || notes != "Station 4 photo missing" {
		t.Fatalf("unexpected result %q %v", notes, ok)
	}
}

type diffItem struct {
	id   *uuid.UUID
	name string
}

func TestPlanDiff(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	incoming := []diffItem{{id: &a, name: "keep a"}, {name: "new"}, {id: &c, name: "keep c"}}

	plan, err := PlanDiff([]uuid.UUID{a, b, c}, incoming, func(d diffItem) *uuid.UUID { return d.id })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.Update) != 2 || len(plan.Insert) != 1 || len(plan.Delete) != 1 || plan.Delete[0] != b {
		t.Fatalf("unexpected plan %+v", plan)
	}
}

func TestPlanDiffRejectsForeignAndDuplicateIDs(t *testing.T) {
	a := uuid.New()
	foreign := uuid.New()
	idOf := func(d diffItem) *uuid.UUID { return d.id }

	_, err := PlanDiff([]uuid.UUID{a}, []diffItem{{id: &foreign}}, idOf)
	if !errors.Is(err, ErrUnknownID) {
		t.Fatalf("expected ErrUnknownID, got %v", err)
	}

	_, err = PlanDiff([]uuid.UUID{a}, []diffItem{{id: &a}, {id: &a}}, idOf)
	if err == nil {
		t.Fatal("expected duplicate id error")
	}
}
