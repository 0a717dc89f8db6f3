package service

import (
	"jobchat/internal/model"
	"jobchat/internal/schema"
)

// Compile translates a parameter bag into a conjunctive predicate over the
// intent's entity collection.
//
// Field specs are walked in registry declaration order; each present field
// emits exactly one condition carrying its declared match kind and join
// path. Absent fields emit nothing at all, so an empty bag compiles to a
// zero-condition predicate that selects the entire collection. Inverted
// ranges (min > max) compile fine; they are simply satisfiable by nothing.
func Compile(intent model.Intent, bag *model.ParameterBag) (model.Predicate, error) {
	specs, err := schema.SchemaFor(intent)
	if err != nil {
		return model.Predicate{}, err
	}

	var pred model.Predicate
	if bag == nil {
		return pred, nil
	}

	for _, spec := range specs {
		value, ok := bag.Get(spec.Name)
		if !ok {
			continue
		}
		pred.Conditions = append(pred.Conditions, model.Condition{
			Path:  spec.Path,
			Kind:  spec.Kind,
			Value: value,
		})
	}

	return pred, nil
}
