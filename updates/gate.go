package updates

import (
	"fmt"

	"github.com/ProReality/ClassiCubeLauncher/digest"
)

// Reason explains an update decision
type Reason string

const (
	ReasonMissing     Reason = "artifact missing"
	ReasonHashFailed  Reason = "remote hash unavailable"
	ReasonUpToDate    Reason = "up to date"
	ReasonHashChanged Reason = "remote hash differs"
)

// CheckResult is the outcome of the update decision gate
type CheckResult struct {
	Update bool
	Reason Reason

	ArtifactPath string
	Local        digest.Value
	Remote       digest.Value
	// HashErr is the swallowed hash fetch failure behind ReasonHashFailed
	HashErr error
}

func (r *CheckResult) String() string {
	verdict := "no update"
	if r.Update {
		verdict = "update required"
	}
	return fmt.Sprintf("%s: %s (local %q, remote %q)", verdict, r.Reason, r.Local, r.Remote)
}

// decide applies the gate once the local state is known. A missing artifact
// short-circuits before any hash is fetched, so it is handled by the caller.
func decide(local, remote digest.Value, hashErr error) (bool, Reason) {
	switch {
	case hashErr != nil:
		return false, ReasonHashFailed
	case local.Equal(remote):
		return false, ReasonUpToDate
	default:
		return true, ReasonHashChanged
	}
}
