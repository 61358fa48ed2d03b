package report

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaCUE string

// ValidationError reports input rejected by the report schema.
type ValidationError struct {
	// Kind is "draft" or "patch".
	Kind string

	// Message lists every violation, one per line.
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Kind, e.Message)
}

// The schema is compiled once. A cue.Context is not safe for concurrent use,
// so all validation runs under mu.
var (
	mu        sync.Mutex
	cueCtx    *cue.Context
	schemaVal cue.Value
)

func schema() (cue.Value, error) {
	if cueCtx == nil {
		cueCtx = cuecontext.New()
		schemaVal = cueCtx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	}
	if err := schemaVal.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("compile report schema: %w", err)
	}
	return schemaVal, nil
}

// ValidateDraft checks d against the #Draft schema.
func ValidateDraft(d Draft) error {
	return validate("draft", "#Draft", d)
}

// ValidatePatch checks p against the #Patch schema.
func ValidatePatch(p Patch) error {
	return validate("patch", "#Patch", p)
}

func validate(kind, def string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("validate %s: %w", kind, err)
	}

	mu.Lock()
	defer mu.Unlock()

	s, err := schema()
	if err != nil {
		return err
	}

	// JSON is valid CUE; compiling it keeps the json tags authoritative.
	val := cueCtx.CompileBytes(data)
	if err := val.Err(); err != nil {
		return fmt.Errorf("validate %s: %w", kind, err)
	}

	unified := s.LookupPath(cue.ParsePath(def)).Unify(val)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return &ValidationError{
			Kind:    kind,
			Message: strings.TrimSpace(cueerrors.Details(err, nil)),
		}
	}
	return nil
}

// Prepare normalizes and validates a draft in one step.
func Prepare(d Draft) (Draft, error) {
	d = d.Normalize()
	if err := ValidateDraft(d); err != nil {
		return Draft{}, err
	}
	return d, nil
}

// PreparePatch normalizes and validates a patch in one step.
func PreparePatch(p Patch) (Patch, error) {
	p = p.Normalize()
	if err := ValidatePatch(p); err != nil {
		return Patch{}, err
	}
	return p, nil
}
