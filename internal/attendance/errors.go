package attendance

import "fmt"

// PersistenceError reports a ledger write or read that the storage rejected.
// The write is lost; callers log it and carry on.
type PersistenceError struct {
	Op    string
	Group string
	Label string
	Err   error
}

func (e *PersistenceError) Error() string {
	if e.Label == "" {
		return fmt.Sprintf("attendance %s for group %s: %v", e.Op, e.Group, e.Err)
	}
	return fmt.Sprintf("attendance %s %s in group %s: %v", e.Op, e.Label, e.Group, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
