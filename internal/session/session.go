// Package session owns the opaque bearer credential of the client process.
//
// There is exactly one Store per process. Writers are the login view (Set),
// the logout view and any component observing an authorization failure
// (Clear); everything else only reads. The store has no lock of its own and
// no expiry timer: the backing KV is last-writer-wins and a stale credential
// is only discovered when the service rejects it.
package session

import (
	"fmt"
	"log"

	"tutorly/internal/storage"
)

// Key is the fixed storage key; its absence means logged out.
const Key = "access_token"

type Store struct {
	kv storage.KV
}

func New(kv storage.KV) *Store {
	return &Store{kv: kv}
}

// Get returns the current credential. A read error is logged and treated
// as logged out.
func (s *Store) Get() (string, bool) {
	v, ok, err := s.kv.Get(Key)
	if err != nil {
		log.Printf("WARN: session: read credential: %v", err)
		return "", false
	}
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (s *Store) Set(credential string) error {
	if credential == "" {
		return fmt.Errorf("session: empty credential")
	}
	if err := s.kv.Set(Key, credential); err != nil {
		return fmt.Errorf("session: store credential: %w", err)
	}
	return nil
}

// Clear removes the credential. Callers reacting to an authorization
// failure must redirect to login afterwards.
func (s *Store) Clear() error {
	if err := s.kv.Delete(Key); err != nil {
		return fmt.Errorf("session: clear credential: %w", err)
	}
	return nil
}

func (s *Store) IsAuthenticated() bool {
	_, ok := s.Get()
	return ok
}
