package classroom

import (
	_ "embed"
	"fmt"
	"slices"

	"github.com/xeipuuv/gojsonschema"

	"github.com/p-n-ai/pai-classroom/internal/apperr"
)

//go:embed schema/test.json
var testSchemaJSON string

var testSchema = mustSchema(testSchemaJSON)

func mustSchema(src string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("compile schema: %v", err))
	}
	return schema
}

// validateTest checks a test document against the embedded schema and that
// every answer is one of its options.
func validateTest(t Test) ([]apperr.FieldError, error) {
	result, err := testSchema.Validate(gojsonschema.NewGoLoader(t))
	if err != nil {
		return nil, fmt.Errorf("validate test: %w", err)
	}

	var fields []apperr.FieldError
	for _, e := range result.Errors() {
		fields = append(fields, apperr.FieldError{Param: e.Field(), Msg: e.Description()})
	}
	if len(fields) > 0 {
		return fields, nil
	}

	for i, q := range t.Questions {
		if !slices.Contains(q.Options, q.Answer) {
			fields = append(fields, apperr.FieldError{
				Param: fmt.Sprintf("questions.%d.answer", i),
				Msg:   "Answer must be one of the options",
			})
		}
	}
	return fields, nil
}
