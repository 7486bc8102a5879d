package terminals

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// State is what the behavior server knows about one hardware terminal
// (dome controller, panel board, sound board).
type State struct {
	TerminalID string    `json:"terminal_id"`
	Online     bool      `json:"online"`
	LastSeen   time.Time `json:"last_seen"`
}

type Registry struct {
	mu   sync.RWMutex
	data map[string]State
	ttl  time.Duration
}

func NewRegistry(ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Registry{
		data: make(map[string]State),
		ttl:  ttl,
	}
}

func (r *Registry) SetOnline(terminalID string, online bool) {
	terminalID = strings.TrimSpace(terminalID)
	if terminalID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[terminalID] = State{TerminalID: terminalID, Online: online, LastSeen: time.Now()}
}

// Touch records a heartbeat, which implies the terminal is online.
func (r *Registry) Touch(terminalID string) {
	r.SetOnline(terminalID, true)
}

func (r *Registry) Get(terminalID string) (State, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.data[terminalID]
	if !ok || r.isExpired(state) {
		return State{}, false
	}
	return state, true
}

// List returns live terminals sorted by id.
func (r *Registry) List() []State {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]State, 0, len(r.data))
	for _, state := range r.data {
		if r.isExpired(state) {
			continue
		}
		out = append(out, state)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TerminalID < out[j].TerminalID })
	return out
}

func (r *Registry) isExpired(state State) bool {
	return time.Since(state.LastSeen) > r.ttl
}
