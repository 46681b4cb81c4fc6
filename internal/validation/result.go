// Package validation holds the rules that approve, warn on or reject a proposed
// container change. Every rule returns a Result; none of them panic or do I/O.
package validation

// Kind classifies a blocking problem
type Kind string

const (
	CapacityExceeded        Kind = "capacity_exceeded"
	InvalidStatusTransition Kind = "invalid_status_transition"
	MissingRelationship     Kind = "missing_relationship"
	TemporalViolation       Kind = "temporal_violation"
	EmptyRequiredField      Kind = "empty_required_field"
	InvalidQuantity         Kind = "invalid_quantity"
)

// Issue is one blocking error
type Issue struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// Result is the outcome of one or more rules. Errors block, warnings only inform.
type Result struct {
	Valid    bool     `json:"valid"`
	Errors   []Issue  `json:"errors"`
	Warnings []string `json:"warnings"`
}

// OK returns a passing result with empty lists
func OK() Result {
	return Result{Valid: true, Errors: []Issue{}, Warnings: []string{}}
}

func (r *Result) fail(kind Kind, msg string) {
	r.Valid = false
	r.Errors = append(r.Errors, Issue{Kind: kind, Message: msg})
}

func (r *Result) warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// Messages returns the error texts
func (r Result) Messages() []string {
	out := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		out[i] = e.Message
	}
	return out
}

// Has reports whether any error is of the given kind
func (r Result) Has(kind Kind) bool {
	for _, e := range r.Errors {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

// Combine concatenates results in order. It is valid only if every part is.
func Combine(results ...Result) Result {
	out := OK()
	for _, r := range results {
		out.Errors = append(out.Errors, r.Errors...)
		out.Warnings = append(out.Warnings, r.Warnings...)
		if !r.Valid {
			out.Valid = false
		}
	}
	return out
}
