package aggregator

import (
	"log/slog"

	apperrors "github.com/rohankatakam/repolens/internal/errors"
)

// State is a step of the analysis state machine
type State int

const (
	StateResolvingIdentifier State = iota
	StateCheckingCache
	StateFetchingMetadata
	StateAccessDenied
	StateFanningOutDetail
	StateMerging
	StateCachingResult
	StateDone
	StateError
)

func (s State) String() string {
	switch s {
	case StateResolvingIdentifier:
		return "resolving_identifier"
	case StateCheckingCache:
		return "checking_cache"
	case StateFetchingMetadata:
		return "fetching_metadata"
	case StateAccessDenied:
		return "access_denied"
	case StateFanningOutDetail:
		return "fanning_out_detail"
	case StateMerging:
		return "merging"
	case StateCachingResult:
		return "caching_result"
	case StateDone:
		return "done"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// analysis tracks one run through the state machine
type analysis struct {
	id     string
	state  State
	logger *slog.Logger
}

func (r *analysis) transition(next State) {
	r.logger.Debug("state transition", "from", r.state, "to", next)
	r.state = next
}

func (r *analysis) fail(err error) {
	r.transition(StateError)
	r.logger.Warn("analysis failed",
		"kind", apperrors.GetKind(err).String(),
		"requires_auth", apperrors.RequiresAuth(err),
		"error", err)
}
