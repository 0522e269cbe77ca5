package media

// Outcome describes the result of a media-deletion attempt. It is a tagged
// value rather than an error so callers are forced to handle the partial
// case explicitly.
type Outcome int

const (
	// OutcomeCompleted means the rows and the stored blobs are both gone.
	OutcomeCompleted Outcome = iota
	// OutcomeNotFound means the media item does not exist (or a concurrent
	// delete got there first).
	OutcomeNotFound
	// OutcomeForbidden means the acting user does not own the item and holds
	// no elevated role. Nothing was changed.
	OutcomeForbidden
	// OutcomePartial means the local transaction committed but removing the
	// stored blob failed; the blob may be orphaned and needs out-of-band
	// reconciliation. The relational state is final and is never rolled back.
	OutcomePartial
	// OutcomeAborted means the local transaction was rolled back before any
	// externally visible effect.
	OutcomeAborted
)

// String implements fmt.Stringer.
func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeNotFound:
		return "not-found"
	case OutcomeForbidden:
		return "forbidden"
	case OutcomePartial:
		return "partial"
	case OutcomeAborted:
		return "aborted"
	default:
		return "unknown"
	}
}
