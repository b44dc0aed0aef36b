// Package schemas validates job profiles, candidate profiles and scoring
// weights against embedded JSON Schemas. Model output is checked here before
// it is decoded into domain types.
package schemas

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// Embedded schema names.
const (
	JobProfile       = "job_profile.schema.json"
	CandidateProfile = "candidate_profile.schema.json"
	ScoringWeights   = "scoring_weights.schema.json"
)

//go:embed *.schema.json
var files embed.FS

// ErrUnknownSchema is returned for a name with no embedded schema.
var ErrUnknownSchema = errors.New("unknown schema")

// Violation is one failed constraint, located by its JSON path.
type Violation struct {
	Field   string
	Message string
}

func (v Violation) String() string {
	return v.Field + ": " + v.Message
}

// ValidationError lists every constraint a document broke.
type ValidationError struct {
	Schema     string
	Violations []Violation
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("document does not match %s: %s", e.Schema, strings.Join(e.Details(), "; "))
}

// Details returns each violation as "field: message".
func (e *ValidationError) Details() []string {
	out := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		out[i] = v.String()
	}
	return out
}

type compiledSchema struct {
	once   sync.Once
	schema *gojsonschema.Schema
	err    error
}

var compiled sync.Map // name -> *compiledSchema

func lookup(name string) (*gojsonschema.Schema, error) {
	entry, _ := compiled.LoadOrStore(name, &compiledSchema{})
	c := entry.(*compiledSchema)
	c.once.Do(func() {
		raw, err := files.ReadFile(name)
		if err != nil {
			c.err = fmt.Errorf("%w %q", ErrUnknownSchema, name)
			return
		}
		if c.schema, err = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw)); err != nil {
			c.err = fmt.Errorf("compile schema %s: %w", name, err)
		}
	})
	return c.schema, c.err
}

// Validate checks document against the embedded schema called name. It
// returns a *ValidationError when the document is well-formed JSON that breaks
// the schema, and a plain error when it is not JSON at all.
func Validate(name string, document []byte) error {
	schema, err := lookup(name)
	if err != nil {
		return err
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(document))
	if err != nil {
		return fmt.Errorf("read %s document: %w", name, err)
	}
	if result.Valid() {
		return nil
	}

	verr := &ValidationError{Schema: name}
	for _, re := range result.Errors() {
		field := re.Field()
		if field == "" {
			field = "(root)"
		}
		verr.Violations = append(verr.Violations, Violation{Field: field, Message: re.Description()})
	}
	return verr
}

// ValidateValue encodes v as JSON and validates it.
func ValidateValue(name string, v any) error {
	document, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s document: %w", name, err)
	}
	return Validate(name, document)
}
