// Package resolver decides the winner between a local and a remote version
// of a record using "last write wins" over the record's logical clock.
package resolver

import "github.com/drillvoice/recipe-tracker-sub001/internal/models"

// Decision is the outcome of comparing a local and a remote record.
type Decision int

const (
	// KeepLocal keeps the existing local copy; no write is made.
	KeepLocal Decision = iota
	// AdoptRemote writes the remote record into the local store in full.
	AdoptRemote
)

// String returns the decision name.
func (d Decision) String() string {
	if d == AdoptRemote {
		return "adopt-remote"
	}
	return "keep-local"
}

// Resolve compares a local record (nil when absent) against a remote record.
// UpdatedAtMs is the sole authority: the larger value wins in full, no
// field-level merge is performed, and ties favor the existing local copy so
// no network write is made for them. Pure and deterministic.
func Resolve(local, remote *models.Meal) Decision {
	if local == nil {
		return AdoptRemote
	}
	if remote.UpdatedAtMs > local.UpdatedAtMs {
		return AdoptRemote
	}
	return KeepLocal
}
