package session

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestNormalizeDefaultsToPhone(t *testing.T) {
	for _, s := range []State{{}, {Step: "bogus", Phone: "9876543210"}, {Version: 99, Step: StepMainMenu, Phone: "9876543210"}} {
		got := Normalize(s)
		if got.Step != StepPhone || got.Phone != "" || got.Draft != nil {
			t.Fatalf("expected fresh state for %+v, got %+v", s, got)
		}
	}
}

func TestNormalizeRequiresPhoneAfterLogin(t *testing.T) {
	got := Normalize(State{Step: StepMainMenu, Phone: "123"})
	if got.Step != StepPhone {
		t.Fatalf("expected phone step, got %s", got.Step)
	}

	got = Normalize(State{Step: StepMainMenu, Phone: "(987) 654-3210"})
	if got.Step != StepMainMenu || got.Phone != "9876543210" {
		t.Fatalf("expected normalized phone on mainMenu, got %+v", got)
	}
}

func TestNormalizeMissingDraft(t *testing.T) {
	got := Normalize(State{Step: StepBookService, Phone: "9876543210"})
	if got.Draft == nil || got.Draft.Mode != ModeNew || got.Draft.Services == nil {
		t.Fatalf("expected empty new draft, got %+v", got.Draft)
	}

	got = Normalize(State{Step: StepBookTime, Phone: "9876543210", Draft: &Draft{Mode: ModeNew}})
	if got.Step != StepBookService {
		t.Fatalf("expected fallback to bookService, got %s", got.Step)
	}
}

func TestNormalizeFallsBackToMissingField(t *testing.T) {
	got := Normalize(State{
		Step:  StepBookTime,
		Phone: "9876543210",
		Draft: &Draft{Mode: ModeNew, Services: []string{"haircut"}, DateISO: "2026-10-20"},
	})
	if got.Step != StepBookBranch {
		t.Fatalf("expected fallback to bookBranch, got %s", got.Step)
	}
}

func TestNormalizeModifyDraft(t *testing.T) {
	got := Normalize(State{Step: StepModifyMenu, Phone: "9876543210", Draft: &Draft{Mode: ModeModify}})
	if got.Step != StepMainMenu || got.Draft != nil {
		t.Fatalf("expected restart without appointment id, got %+v", got)
	}

	d := &Draft{Mode: ModeModify, ModifyType: ModifyBranch, AppointmentID: "abc", Services: []string{"facial"}}
	got = Normalize(State{Step: StepModifyMenu, Phone: "9876543210", Draft: d})
	if got.Step != StepModifyMenu || got.Draft.ModifyType != "" {
		t.Fatalf("expected modifyType cleared on modifyMenu, got %+v", got.Draft)
	}
	if d.ModifyType != ModifyBranch {
		t.Fatalf("input draft was mutated")
	}

	got = Normalize(State{Step: StepBookDate, Phone: "9876543210", Draft: &Draft{Mode: ModeModify, AppointmentID: "abc"}})
	if got.Step != StepModifyMenu {
		t.Fatalf("expected modifyMenu when modifyType missing, got %s", got.Step)
	}
}

func TestNormalizeModifyTypeMustMatchStep(t *testing.T) {
	full := func(mt ModifyType) *Draft {
		return &Draft{
			Mode:          ModeModify,
			ModifyType:    mt,
			Services:      []string{"haircut"},
			Location:      "Koramangala",
			DateISO:       "2026-10-17",
			TimeLabel:     "4PM",
			AppointmentID: "abc",
		}
	}
	owners := map[ModifyType]Step{
		ModifyServices: StepBookService,
		ModifyBranch:   StepBookBranch,
		ModifyDate:     StepBookDate,
		ModifyTime:     StepBookTime,
	}
	steps := []Step{StepBookService, StepBookBranch, StepBookDate, StepBookTime}

	for mt, owner := range owners {
		for _, step := range steps {
			got := Normalize(State{Step: step, Phone: "9876543210", Draft: full(mt)})
			if step == owner {
				if got.Step != step || got.Draft.ModifyType != mt {
					t.Fatalf("%s at %s: expected kept, got %s/%q", mt, step, got.Step, got.Draft.ModifyType)
				}
				continue
			}
			if got.Step != StepModifyMenu || got.Draft.ModifyType != "" {
				t.Fatalf("%s at %s: expected modifyMenu, got %s/%q", mt, step, got.Step, got.Draft.ModifyType)
			}
		}
	}

	for _, step := range steps {
		got := Normalize(State{Step: step, Phone: "9876543210", Draft: full(ModifyAll)})
		if got.Step != step || got.Draft.ModifyType != ModifyAll {
			t.Fatalf("all at %s: expected kept, got %s/%q", step, got.Step, got.Draft.ModifyType)
		}
	}
}

func TestNormalizeKeepsWellFormedDraft(t *testing.T) {
	price := 800.0
	in := State{
		Version: Version,
		Step:    StepBookTime,
		Phone:   "9876543210",
		Draft: &Draft{
			Mode:       ModeNew,
			Services:   []string{"haircut", "facial"},
			Location:   "Koramangala",
			DateISO:    "2026-10-20",
			TotalPrice: &price,
		},
	}
	got := Normalize(in)
	if !reflect.DeepEqual(got, in) {
		t.Fatalf("expected state unchanged, got %+v", got)
	}
}

func TestToggle(t *testing.T) {
	d := &Draft{Services: []string{}}
	if !d.Toggle("haircut") || !d.Toggle("facial") || !d.Toggle("manicure") {
		t.Fatalf("expected services to be added")
	}
	if d.Toggle("FACIAL") {
		t.Fatalf("expected facial to be removed")
	}
	if !reflect.DeepEqual(d.Services, []string{"haircut", "manicure"}) {
		t.Fatalf("unexpected services %v", d.Services)
	}
}

func TestCloneIsDeep(t *testing.T) {
	price := 10.0
	d := &Draft{Services: []string{"haircut"}, TotalPrice: &price}
	c := d.Clone()
	c.Services[0] = "facial"
	*c.TotalPrice = 20
	if d.Services[0] != "haircut" || *d.TotalPrice != 10 {
		t.Fatalf("clone shares memory with original")
	}
}

func TestStateJSONShape(t *testing.T) {
	var s State
	if err := json.Unmarshal([]byte(`{"step":"bookBranch","phone":"9876543210","tempBooking":{"mode":"new"}}`), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	s = Normalize(s)
	if s.Step != StepBookService {
		t.Fatalf("expected bookService without services, got %s", s.Step)
	}

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"version":1,"step":"bookService","phone":"9876543210","tempBooking":{"mode":"new","services":[]}}`
	if string(data) != want {
		t.Fatalf("expected %s, got %s", want, data)
	}
}

func TestNormalizePhone(t *testing.T) {
	if p, ok := NormalizePhone("+91 98765-43210"); ok || p != "919876543210" {
		t.Fatalf("expected 12 digits to be rejected, got %q %v", p, ok)
	}
	if p, ok := NormalizePhone("98765 43210"); !ok || p != "9876543210" {
		t.Fatalf("expected 10 digits, got %q %v", p, ok)
	}
}
