package notify

import (
	"errors"
	"fmt"
)

// ErrDuplicateParameter is returned by Parameters.Add when the key is
// already present.
var ErrDuplicateParameter = errors.New("duplicate parameter")

// Parameters is the flat, string-keyed payload passed from the dispatcher to
// a provider. Keys are namespaced by provider name so that several providers
// can share one mapping.
type Parameters map[string]string

// Has reports whether key is present, even with an empty value.
func (p Parameters) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// Get returns the value for key, or "" when absent.
func (p Parameters) Get(key string) string {
	return p[key]
}

// Set stores value under key, replacing any previous value.
func (p Parameters) Set(key, value string) {
	p[key] = value
}

// Add stores value under key unless the key already exists.
func (p Parameters) Add(key, value string) error {
	if p.Has(key) {
		return fmt.Errorf("%w: %s", ErrDuplicateParameter, key)
	}
	p[key] = value
	return nil
}
