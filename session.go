package kpisight

import (
	"sort"
	"sync"
	"time"
)

// ContextAnnotation is an opaque piece of external context attached to a
// session after analysis, carried verbatim into the report.
type ContextAnnotation struct {
	Source  string    `json:"source"`
	Query   string    `json:"query,omitempty"`
	Content string    `json:"content"`
	AddedAt time.Time `json:"added_at"`
}

// SessionMetadata records bookkeeping for one session's pipeline run.
type SessionMetadata struct {
	CreatedAt      time.Time                `json:"created_at"`
	UpdatedAt      time.Time                `json:"updated_at"`
	StageDurations map[string]time.Duration `json:"stage_durations"`
}

// Session holds the accumulated state of one analysis run. Fields populate
// monotonically as stages complete; a failed stage leaves previously
// committed fields untouched. All access goes through the session mutex.
type Session struct {
	mu sync.Mutex

	id          string
	rawData     *Dataset
	cleanedData *Dataset
	analyses    []MetricAnalysis
	summary     AnalysisSummary
	report      *CompactReport
	annotations []ContextAnnotation
	metadata    SessionMetadata
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Analyses returns the per-metric analyses, or nil before the analyze stage.
func (s *Session) Analyses() []MetricAnalysis {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.analyses
}

// Summary returns the analysis summary, valid after the analyze stage.
func (s *Session) Summary() AnalysisSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary
}

// Report returns the compacted report, or nil before the report stage.
func (s *Session) Report() *CompactReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.report
}

// Annotations returns the external context attached so far.
func (s *Session) Annotations() []ContextAnnotation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ContextAnnotation, len(s.annotations))
	copy(out, s.annotations)
	return out
}

// Metadata returns a copy of the session bookkeeping.
func (s *Session) Metadata() SessionMetadata {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta := s.metadata
	meta.StageDurations = make(map[string]time.Duration, len(s.metadata.StageDurations))
	for stage, d := range s.metadata.StageDurations {
		meta.StageDurations[stage] = d
	}
	return meta
}

// recordStage stores a stage duration and bumps the update time. Caller holds
// the session mutex.
func (s *Session) recordStage(stage string, d time.Duration, now time.Time) {
	if s.metadata.StageDurations == nil {
		s.metadata.StageDurations = make(map[string]time.Duration)
	}
	s.metadata.StageDurations[stage] = d
	s.metadata.UpdatedAt = now
}

// SessionStore holds sessions by identifier with per-session isolation:
// operations on one session never block or observe another.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionStore creates an empty session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*Session)}
}

// Get returns the session for the identifier, or a StateError when unknown.
func (st *SessionStore) Get(id string) (*Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	if !ok {
		return nil, newStateError(StateErrorTypeNotFound, "", "session "+id+" not found")
	}
	return s, nil
}

// getOrCreate returns the session for the identifier, creating it on first
// use.
func (st *SessionStore) getOrCreate(id string, now time.Time) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	if s, ok := st.sessions[id]; ok {
		return s
	}
	s := &Session{
		id:       id,
		metadata: SessionMetadata{CreatedAt: now, UpdatedAt: now},
	}
	st.sessions[id] = s
	return s
}

// IDs returns all known session identifiers in sorted order.
func (st *SessionStore) IDs() []string {
	st.mu.RLock()
	defer st.mu.RUnlock()
	ids := make([]string, 0, len(st.sessions))
	for id := range st.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Delete removes a session. Deleting an unknown identifier is a no-op.
func (st *SessionStore) Delete(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}

// Len returns the number of live sessions.
func (st *SessionStore) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
