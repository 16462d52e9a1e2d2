package session

import "context"

// Conversation phases. A session starts in PhaseInitial; naming an
// entity without a question moves it to PhaseAwaitingEntityType until
// the user picks stock, fund or ETF.
const (
	PhaseInitial            = "initial"
	PhaseAwaitingEntityType = "awaiting_entity_type"
)

// State is the per-session dialogue state carried between turns.
type State struct {
	Phase      string `json:"phase"`
	Entity     string `json:"entity,omitempty"`
	EntityType string `json:"entity_type,omitempty"`
	LastQuery  string `json:"last_query,omitempty"`
}

func NewState() *State {
	return &State{Phase: PhaseInitial}
}

// Reset returns the state to the initial phase, clearing any pending
// disambiguation.
func (s *State) Reset() {
	s.Phase = PhaseInitial
	s.Entity = ""
	s.EntityType = ""
}

// Store persists dialogue state keyed by session ID. Get returns a
// fresh initial state for unknown IDs, never an error for a miss.
type Store interface {
	Get(ctx context.Context, sessionID string) (*State, error)
	Put(ctx context.Context, sessionID string, state *State) error
	Delete(ctx context.Context, sessionID string) error
}
