package notify

import "errors"

// Result is the provider-agnostic outcome of a single send attempt.
// Success is true exactly when Errors is empty.
type Result struct {
	Success bool     `json:"success"`
	Errors  []string `json:"errors"`
}

// Success returns a successful result with an empty error list.
func Success() Result {
	return Result{Success: true, Errors: []string{}}
}

// Failure returns a failed result carrying at least one error message.
func Failure(err string, more ...string) Result {
	errs := make([]string, 0, 1+len(more))
	errs = append(errs, err)
	errs = append(errs, more...)
	return Result{Success: false, Errors: errs}
}

// Err returns nil for a successful result and the joined error messages
// otherwise.
func (r Result) Err() error {
	if r.Success {
		return nil
	}
	errs := make([]error, 0, len(r.Errors))
	for _, e := range r.Errors {
		errs = append(errs, errors.New(e))
	}
	return errors.Join(errs...)
}
