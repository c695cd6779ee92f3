// Package session tracks one end-to-end scrape run: how many targets have
// been processed, which matches have accumulated, and the ordered message
// trail a polling caller reads progress from. A session survives process
// restarts through its Store, so an interactive crawl can stop between
// targets and be resumed later by id.
package session

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ndegwamoche/calendar-sync-scraper/internal/match"
)

// Status is a session's lifecycle state.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// ErrNotFound is returned when a session id does not resolve to in-flight
// state. Fatal to that call only, not to anything else.
var ErrNotFound = errors.New("session not found")

// Message is one entry in a session's ordered log trail.
type Message struct {
	Time time.Time `json:"time"`
	Text string    `json:"text"`
}

// State is the durable record of a scrape run.
//
// RequestCount never exceeds TotalTargets; reaching equality is the sole
// completion trigger. Pending holds accumulated deduplicated matches not yet
// flushed to the calendar.
type State struct {
	ID            string        `json:"id"`
	Status        Status        `json:"status"`
	SeasonValue   int           `json:"season_value"`
	RegionValue   int           `json:"region_value"`
	AgeGroupValue int           `json:"age_group_value"`
	TotalTargets  int           `json:"total_targets"`
	RequestCount  int           `json:"request_count"`
	TotalMatches  int           `json:"total_matches"`
	Matches       []match.Match `json:"matches"`
	Pending       []match.Match `json:"pending"`
	Messages      []Message     `json:"messages"`
	StartedAt     time.Time     `json:"started_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Store persists in-flight session state. Implementations must write
// snapshots atomically: a concurrent progress poll may read while the next
// increment is being written and must never see a torn state.
type Store interface {
	Load(id string) (*State, error)
	Save(state *State) error
}

// Recorder receives terminal session records for the durable run log.
type Recorder interface {
	Record(state *State) error
}

// Progress is what a polling caller sees.
type Progress struct {
	Percent       int    `json:"percent"`
	LatestMessage string `json:"latest_message"`
	Status        Status `json:"status"`
	RequestCount  int    `json:"request_count"`
	TotalTargets  int    `json:"total_targets"`
	TotalMatches  int    `json:"total_matches"`
}

// Tracker drives session state transitions against a Store and, when
// configured, records terminal sessions to a Recorder.
type Tracker struct {
	store    Store
	recorder Recorder
}

// NewTracker creates a tracker. recorder may be nil when no durable run log
// is wanted (tests, dry runs).
func NewTracker(store Store, recorder Recorder) *Tracker {
	return &Tracker{store: store, recorder: recorder}
}

// NewID builds a fresh session id: time-derived for sortability, with a
// uuid fragment so two runs starting in the same second stay distinct.
func NewID(now time.Time) string {
	fragment := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return now.UTC().Format("20060102150405") + "-" + fragment
}

// Start creates and persists a new running session.
func (t *Tracker) Start(seasonValue, regionValue, ageGroupValue, totalTargets int) (*State, error) {
	now := time.Now().UTC()
	state := &State{
		ID:            NewID(now),
		Status:        StatusRunning,
		SeasonValue:   seasonValue,
		RegionValue:   regionValue,
		AgeGroupValue: ageGroupValue,
		TotalTargets:  totalTargets,
		StartedAt:     now,
		UpdatedAt:     now,
	}
	if err := t.store.Save(state); err != nil {
		return nil, fmt.Errorf("saving new session: %w", err)
	}
	return state, nil
}

// Load resolves a session id, wrapping store misses in ErrNotFound.
func (t *Tracker) Load(id string) (*State, error) {
	state, err := t.store.Load(id)
	if err != nil {
		return nil, err
	}
	return state, nil
}

// RecordTarget folds one processed target into the session: the target's
// deduplicated new matches join the accumulated and pending sets, the
// request count advances, and a progress message is appended. A failed
// target contributes no matches but still counts toward RequestCount, so a
// resumed run does not retry it implicitly.
func (t *Tracker) RecordTarget(state *State, targetName string, matches []match.Match, targetErr error) error {
	before := len(state.Matches)
	if targetErr == nil {
		state.Matches = match.Merge(state.Matches, matches)
		newOnes := state.Matches[before:]
		state.Pending = match.Merge(state.Pending, newOnes)
		state.TotalMatches = len(state.Matches)
	}

	state.RequestCount++
	if state.RequestCount > state.TotalTargets {
		state.RequestCount = state.TotalTargets
	}

	if targetErr != nil {
		t.appendMessage(state, fmt.Sprintf("%s: %v", targetName, targetErr))
	} else {
		t.appendMessage(state, fmt.Sprintf("%s: %d matches (%d new)", targetName, len(matches), len(state.Matches)-before))
	}

	state.UpdatedAt = time.Now().UTC()
	if err := t.store.Save(state); err != nil {
		return fmt.Errorf("saving session progress: %w", err)
	}
	return nil
}

// TakePending clears and returns the matches awaiting a calendar flush.
func (t *Tracker) TakePending(state *State) ([]match.Match, error) {
	pending := state.Pending
	state.Pending = nil
	state.UpdatedAt = time.Now().UTC()
	if err := t.store.Save(state); err != nil {
		return nil, fmt.Errorf("saving session after flush: %w", err)
	}
	return pending, nil
}

// Note appends a free-text entry to the session's message trail and saves.
func (t *Tracker) Note(state *State, text string) error {
	t.appendMessage(state, text)
	state.UpdatedAt = time.Now().UTC()
	if err := t.store.Save(state); err != nil {
		return fmt.Errorf("saving session note: %w", err)
	}
	return nil
}

// Complete marks the session done and records it durably.
func (t *Tracker) Complete(state *State) error {
	state.Status = StatusCompleted
	t.appendMessage(state, fmt.Sprintf("completed: %d matches across %d targets", state.TotalMatches, state.RequestCount))
	return t.close(state)
}

// Fail marks the session failed, keeping the error in the trail. The state
// is not deleted; a later resumption check can still read it.
func (t *Tracker) Fail(state *State, cause error) error {
	state.Status = StatusFailed
	t.appendMessage(state, fmt.Sprintf("failed: %v", cause))
	return t.close(state)
}

func (t *Tracker) close(state *State) error {
	state.UpdatedAt = time.Now().UTC()
	if err := t.store.Save(state); err != nil {
		return fmt.Errorf("saving terminal session: %w", err)
	}
	if t.recorder != nil {
		if err := t.recorder.Record(state); err != nil {
			return fmt.Errorf("recording session log: %w", err)
		}
	}
	return nil
}

func (t *Tracker) appendMessage(state *State, text string) {
	state.Messages = append(state.Messages, Message{Time: time.Now().UTC(), Text: text})
}

// IsDone reports whether every target has been processed.
func (s *State) IsDone() bool {
	return s.TotalTargets > 0 && s.RequestCount >= s.TotalTargets
}

// ExpectedTotalMatches estimates the run's final match count from the
// running per-target average, refined after each target. Zero until the
// first target lands.
func (s *State) ExpectedTotalMatches() int {
	if s.RequestCount == 0 {
		return 0
	}
	avg := float64(s.TotalMatches) / float64(s.RequestCount)
	return int(math.Round(avg * float64(s.TotalTargets)))
}

// Progress computes the caller-visible progress against an expected total
// match count. Percent is 0 until any match is found, then clamped to
// [1, 100], since expected is an estimate and may be overshot.
func (s *State) Progress(expectedTotalMatches int) Progress {
	p := Progress{
		Status:       s.Status,
		RequestCount: s.RequestCount,
		TotalTargets: s.TotalTargets,
		TotalMatches: s.TotalMatches,
	}
	if len(s.Messages) > 0 {
		p.LatestMessage = s.Messages[len(s.Messages)-1].Text
	}

	if s.TotalMatches == 0 || expectedTotalMatches <= 0 {
		return p
	}

	percent := int(math.Round(100 * float64(s.TotalMatches) / float64(expectedTotalMatches)))
	if percent < 1 {
		percent = 1
	}
	if percent > 100 {
		percent = 100
	}
	p.Percent = percent
	return p
}
