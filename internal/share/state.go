// Package share ingests links shared from other apps (posts, profiles, map
// pages) and walks them through search, selection and persistence.
package share

import (
	"github.com/sells-group/placematch/internal/model"
)

// State is a step of the ingestion state machine.
type State string

const (
	StateReceived         State = "RECEIVED"
	StateDirectPost       State = "DIRECT_POST"
	StateProfile          State = "PROFILE"
	StateExternalMap      State = "EXTERNAL_MAP"
	StateUnsupported      State = "UNSUPPORTED"
	StateCandidatesReady  State = "CANDIDATES_READY"
	StateSelectedExisting State = "SELECTED_EXISTING"
	StateSelectedNew      State = "SELECTED_NEW"
	StateManual           State = "MANUAL"
	StatePersisted        State = "PERSISTED"
	StateFailed           State = "FAILED"
)

// Action is what the caller should do next.
type Action string

const (
	ActionNone               Action = ""
	ActionSelectCandidate    Action = "select_candidate"
	ActionFavoriteOnly       Action = "favorite_only"
	ActionCreateThenFavorite Action = "create_then_favorite"
	ActionReturnToStart      Action = "return_to_start"
)

// Payload is an incoming share.
type Payload struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

// Session is the serializable state of one ingestion. Callers hand it back
// to Select and Persist.
type Session struct {
	State  State   `json:"state"`
	Kind   State   `json:"kind"`
	Action Action  `json:"action"`
	Input  Payload `json:"input"`

	Query      string              `json:"query,omitempty"`
	HintUnused bool                `json:"hint_unused,omitempty"`
	Bio        *model.BioSignalSet `json:"bio,omitempty"`

	Candidates []model.CandidatePlace `json:"candidates"`

	Selected *model.PlaceRecord  `json:"selected,omitempty"`
	Existing *model.MatchSummary `json:"existing,omitempty"`

	Persisted *model.PlaceRecord `json:"persisted,omitempty"`
	Error     string             `json:"error,omitempty"`
}

func (s *Session) fail(err error) {
	s.State = StateFailed
	s.Error = err.Error()
}
