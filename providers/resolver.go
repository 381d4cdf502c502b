// Package providers resolves password references like local://, bw://, and
// infisical:// so the rig password stays out of config files. Each backend
// registers itself from its package init and claims the schemes it
// understands.
package providers

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Backend resolves password references carrying one of its scheme prefixes.
type Backend interface {
	Name() string
	Supports(ref string) bool
	Resolve(ref string) (string, error)
}

var (
	backendsMu sync.RWMutex
	backends   []Backend
)

// Register adds a backend once; a second backend with the same
// case-insensitive name is ignored.
func Register(backend Backend) {
	if backend == nil {
		return
	}
	name := strings.TrimSpace(backend.Name())
	if name == "" {
		return
	}

	backendsMu.Lock()
	defer backendsMu.Unlock()

	for _, registered := range backends {
		if strings.EqualFold(strings.TrimSpace(registered.Name()), name) {
			return
		}
	}
	backends = append(backends, backend)
}

func registeredBackends() []Backend {
	backendsMu.RLock()
	defer backendsMu.RUnlock()

	snapshot := make([]Backend, len(backends))
	copy(snapshot, backends)
	return snapshot
}

// ResolvePasswordRef resolves a password reference against the registered
// backends. The first backend to return a non-empty value wins; an empty
// value from a claiming backend is an error, not a fallthrough.
func ResolvePasswordRef(ref string) (string, error) {
	return resolveRef(ref, registeredBackends())
}

func resolveRef(ref string, candidates []Backend) (string, error) {
	trimmedRef := strings.TrimSpace(ref)
	if trimmedRef == "" {
		return "", errors.New("password reference is empty")
	}

	var failures []error
	for _, backend := range candidates {
		if !backend.Supports(trimmedRef) {
			continue
		}

		value, err := backend.Resolve(trimmedRef)
		if err != nil {
			failures = append(failures, fmt.Errorf("%s: %w", backend.Name(), err))
			continue
		}
		if strings.TrimSpace(value) == "" {
			return "", fmt.Errorf("%s returned an empty secret", backend.Name())
		}
		return strings.TrimSpace(value), nil
	}

	if len(failures) == 0 {
		return "", fmt.Errorf("no password backend recognizes reference %q", trimmedRef)
	}
	return "", fmt.Errorf("resolve %q: %w", trimmedRef, errors.Join(failures...))
}
