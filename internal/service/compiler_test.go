package service

import (
	"errors"
	"reflect"
	"testing"

	"jobchat/internal/model"
	"jobchat/internal/schema"
)

// sampleValue returns a well-typed value for a field spec.
func sampleValue(t schema.ValueType) any {
	switch t {
	case schema.TypeNumber:
		return 42.0
	case schema.TypeBool:
		return true
	default:
		return "sample"
	}
}

func TestCompile_EmptyBag_AllIntents(t *testing.T) {
	for _, intent := range schema.Intents() {
		t.Run(string(intent), func(t *testing.T) {
			pred, err := Compile(intent, model.NewParameterBag(intent))
			if err != nil {
				t.Fatalf("Compile failed: %v", err)
			}
			if len(pred.Conditions) != 0 {
				t.Errorf("empty bag compiled to %d conditions, want 0", len(pred.Conditions))
			}

			// nil bag behaves like an empty one
			pred, err = Compile(intent, nil)
			if err != nil {
				t.Fatalf("Compile(nil bag) failed: %v", err)
			}
			if len(pred.Conditions) != 0 {
				t.Errorf("nil bag compiled to %d conditions, want 0", len(pred.Conditions))
			}
		})
	}
}

func TestCompile_SingleField_EverySpec(t *testing.T) {
	for _, intent := range schema.Intents() {
		specs, err := schema.SchemaFor(intent)
		if err != nil {
			t.Fatalf("SchemaFor(%s) failed: %v", intent, err)
		}

		for _, spec := range specs {
			t.Run(string(intent)+"/"+spec.Name, func(t *testing.T) {
				bag := model.NewParameterBag(intent)
				value := sampleValue(spec.Type)
				bag.Set(spec.Name, value)

				pred, err := Compile(intent, bag)
				if err != nil {
					t.Fatalf("Compile failed: %v", err)
				}
				if len(pred.Conditions) != 1 {
					t.Fatalf("got %d conditions, want exactly 1", len(pred.Conditions))
				}

				cond := pred.Conditions[0]
				if cond.Kind != spec.Kind {
					t.Errorf("kind = %s, want %s", cond.Kind, spec.Kind)
				}
				if cond.Path != spec.Path {
					t.Errorf("path = %s, want %s", cond.Path, spec.Path)
				}
				if cond.Value != value {
					t.Errorf("value = %v, want %v", cond.Value, value)
				}
			})
		}
	}
}

func TestCompile_RegistryOrder(t *testing.T) {
	bag := model.NewParameterBag(model.IntentJobSearch)
	// Set in reverse of declaration order; output must follow the registry.
	bag.Set("remote", true)
	bag.Set("min_salary", 2000.0)
	bag.Set("title", "backend")

	pred, err := Compile(model.IntentJobSearch, bag)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if len(pred.Conditions) != 3 {
		t.Fatalf("got %d conditions, want 3", len(pred.Conditions))
	}

	wantPaths := []string{"title", "salary", "remote"}
	for i, want := range wantPaths {
		if pred.Conditions[i].Path != want {
			t.Errorf("condition %d path = %s, want %s", i, pred.Conditions[i].Path, want)
		}
	}
}

func TestCompile_InvertedRange(t *testing.T) {
	bag := model.NewParameterBag(model.IntentJobSearch)
	bag.Set("min_salary", 100.0)
	bag.Set("max_salary", 10.0)

	// Inverted ranges compile; they are satisfiable by nothing, which is the
	// expected observable behavior, not an error.
	pred, err := Compile(model.IntentJobSearch, bag)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if len(pred.Conditions) != 2 {
		t.Fatalf("got %d conditions, want 2", len(pred.Conditions))
	}
}

func TestCompile_Idempotent(t *testing.T) {
	bag := model.NewParameterBag(model.IntentJobSearch)
	bag.Set("title", "engineer")
	bag.Set("min_salary", 1000.0)
	bag.Set("employer_name", "acme")

	first, err := Compile(model.IntentJobSearch, bag)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	second, err := Compile(model.IntentJobSearch, bag)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("compiling the same bag twice differed:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestCompile_UnsearchableIntent(t *testing.T) {
	for _, intent := range []model.Intent{model.IntentGeneralChat, model.IntentUnclear} {
		_, err := Compile(intent, model.NewParameterBag(intent))
		if !errors.Is(err, schema.ErrUnknownIntent) {
			t.Errorf("Compile(%s) = %v, want ErrUnknownIntent", intent, err)
		}
	}
}
