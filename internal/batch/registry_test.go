package batch

import (
	"testing"
)

func noopStep(sc *StepContext) error { return nil }

func TestRegistryRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	def := &JobDefinition{
		Name: "paymentFileGenerationJob",
		Steps: []StepDefinition{
			{Name: "queryApprovedTimesheets", Handler: noopStep},
			{Name: "transformToPaymentRecords", Handler: noopStep},
		},
	}
	if err := r.Register(def); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	got, ok := r.Lookup("paymentFileGenerationJob")
	if !ok || got.Name != def.Name {
		t.Fatalf("Lookup returned %+v (%v)", got, ok)
	}
	if _, ok := r.Lookup("missing"); ok {
		t.Fatalf("Lookup of unknown job must miss")
	}
}

func TestRegistryRejectsInvalidDefinitions(t *testing.T) {
	r := NewRegistry()
	cases := []struct {
		name string
		def  *JobDefinition
	}{
		{"nil definition", nil},
		{"empty name", &JobDefinition{Steps: []StepDefinition{{Name: "a", Handler: noopStep}}}},
		{"no steps", &JobDefinition{Name: "emptyJob"}},
		{"nil handler", &JobDefinition{Name: "badJob", Steps: []StepDefinition{{Name: "a"}}}},
		{"duplicate step", &JobDefinition{Name: "dupStepJob", Steps: []StepDefinition{
			{Name: "a", Handler: noopStep},
			{Name: "a", Handler: noopStep},
		}}},
	}
	for _, tc := range cases {
		if err := r.Register(tc.def); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestRegistryRejectsDuplicateJob(t *testing.T) {
	r := NewRegistry()
	def := &JobDefinition{Name: "onceJob", Steps: []StepDefinition{{Name: "a", Handler: noopStep}}}
	if err := r.Register(def); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}
	if err := r.Register(def); err == nil {
		t.Fatalf("second Register must fail")
	}
}

func TestRegistryNamesSorted(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"zJob", "aJob", "mJob"} {
		def := &JobDefinition{Name: name, Steps: []StepDefinition{{Name: "a", Handler: noopStep}}}
		if err := r.Register(def); err != nil {
			t.Fatalf("Register %s failed: %v", name, err)
		}
	}
	names := r.Names()
	want := []string{"aJob", "mJob", "zJob"}
	if len(names) != len(want) {
		t.Fatalf("Names = %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("Names = %v, want %v", names, want)
		}
	}
}
