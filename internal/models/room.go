package models

import (
	"sort"
	"time"

	"gorm.io/datatypes"
)

// Room status constants
const (
	RoomStatusWaiting  = "waiting"
	RoomStatusPlaying  = "playing"
	RoomStatusFinished = "finished"
)

// Round phase constants, meaningful while the room is playing
const (
	GameStateIdle       = "idle"
	GameStateSpinning   = "spinning"
	GameStatePlaying    = "playing"
	GameStateEvaluating = "evaluating"
	GameStateResults    = "results"
)

// Presence constants
const (
	PlayerStatusOnline  = "online"
	PlayerStatusAway    = "away"
	PlayerStatusOffline = "offline"
)

type Player struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Avatar   string    `json:"avatar"`
	IsReady  bool      `json:"isReady"`
	IsHost   bool      `json:"isHost"`
	Status   string    `json:"status"`
	JoinedAt time.Time `json:"joinedAt"`
	// Left marks a player who quit mid-game. The entry stays until the round
	// ends so their answers are still graded.
	Left     bool      `json:"left,omitempty"`
}

type RoomSettings struct {
	MaxPlayers           int      `json:"maxPlayers"`
	RoundDurationSeconds int      `json:"roundDurationSeconds"`
	Language             string   `json:"language"`
	IsPrivate            bool     `json:"isPrivate"`
	Categories           []string `json:"categories"`
}

type CategoryResult struct {
	Response string `json:"response"`
	IsValid  bool   `json:"isValid"`
	Score    int    `json:"score"`
}

// Room is the shared document every member observes. CurrentLetter is "" and
// RoundResults is nil outside the phases that own them.
type Room struct {
	ID              string                               `json:"id"`
	HostID          string                               `json:"hostId"`
	Status          string                               `json:"status"`
	GameState       string                               `json:"gameState"`
	Players         map[string]Player                    `json:"players"`
	Settings        RoomSettings                         `json:"settings"`
	CurrentLetter   string                               `json:"currentLetter"`
	Round           int                                  `json:"round"`
	PlayerResponses map[string]map[string]string         `json:"playerResponses"`
	RoundResults    map[string]map[string]CategoryResult `json:"roundResults"`
	GameScores      map[string]int                       `json:"gameScores"`
	RoundStartedAt  *time.Time                           `json:"roundStartedAt"`
	CreatedAt       time.Time                            `json:"createdAt"`
	UpdatedAt       time.Time                            `json:"updatedAt"`
	Version         int64                                `json:"version"`

	// EvaluationStartedAt is set when the round is stopped and cleared once
	// results are committed.
	EvaluationStartedAt *time.Time `json:"evaluationStartedAt"`
}

// IsMember reports whether playerID is seated and has not left.
func (r *Room) IsMember(playerID string) bool {
	p, ok := r.Players[playerID]
	return ok && !p.Left
}

// ActiveCount counts players who have not left.
func (r *Room) ActiveCount() int {
	n := 0
	for _, p := range r.Players {
		if !p.Left {
			n++
		}
	}
	return n
}

func (r *Room) IsHost(playerID string) bool {
	return playerID != "" && r.HostID == playerID
}

// CanStart is true when the roster is non-empty and everybody is ready.
func (r *Room) CanStart() bool {
	if r.ActiveCount() == 0 {
		return false
	}
	for _, p := range r.Players {
		if !p.Left && !p.IsReady {
			return false
		}
	}
	return true
}

// Deadline returns when the active round's countdown ends.
func (r *Room) Deadline() (time.Time, bool) {
	if r.RoundStartedAt == nil {
		return time.Time{}, false
	}
	return r.RoundStartedAt.Add(time.Duration(r.Settings.RoundDurationSeconds) * time.Second), true
}

// RosterIDs returns every player id, leavers included, sorted for
// deterministic iteration.
func (r *Room) RosterIDs() []string {
	ids := make([]string, 0, len(r.Players))
	for id := range r.Players {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// NextHost picks the earliest-joined member other than exclude, ties broken by
// id. Players who left are never picked.
func (r *Room) NextHost(exclude string) (string, bool) {
	var candidate *Player
	for _, id := range r.RosterIDs() {
		p := r.Players[id]
		if id == exclude || p.Left {
			continue
		}
		if candidate == nil || p.JoinedAt.Before(candidate.JoinedAt) {
			p := p
			candidate = &p
		}
	}
	if candidate == nil {
		return "", false
	}
	return candidate.ID, true
}

// LeftIDs returns the players who quit during the current game, sorted.
func (r *Room) LeftIDs() []string {
	var ids []string
	for _, id := range r.RosterIDs() {
		if r.Players[id].Left {
			ids = append(ids, id)
		}
	}
	return ids
}

// Clone returns a deep copy safe to hand to another goroutine.
func (r *Room) Clone() *Room {
	if r == nil {
		return nil
	}
	c := *r
	c.Players = make(map[string]Player, len(r.Players))
	for id, p := range r.Players {
		c.Players[id] = p
	}
	c.Settings.Categories = append([]string(nil), r.Settings.Categories...)
	if r.PlayerResponses != nil {
		c.PlayerResponses = make(map[string]map[string]string, len(r.PlayerResponses))
		for id, answers := range r.PlayerResponses {
			inner := make(map[string]string, len(answers))
			for k, v := range answers {
				inner[k] = v
			}
			c.PlayerResponses[id] = inner
		}
	}
	if r.RoundResults != nil {
		c.RoundResults = make(map[string]map[string]CategoryResult, len(r.RoundResults))
		for id, results := range r.RoundResults {
			inner := make(map[string]CategoryResult, len(results))
			for k, v := range results {
				inner[k] = v
			}
			c.RoundResults[id] = inner
		}
	}
	if r.GameScores != nil {
		c.GameScores = make(map[string]int, len(r.GameScores))
		for id, s := range r.GameScores {
			c.GameScores[id] = s
		}
	}
	if r.RoundStartedAt != nil {
		t := *r.RoundStartedAt
		c.RoundStartedAt = &t
	}
	if r.EvaluationStartedAt != nil {
		t := *r.EvaluationStartedAt
		c.EvaluationStartedAt = &t
	}
	return &c
}

// RoomRecord is the persisted row behind a Room. Status and GameState mirror the
// document so sweeps can filter without decoding it.
type RoomRecord struct {
	ID        string                   `gorm:"primaryKey;type:varchar(16)"`
	Version   int64                    `gorm:"not null;default:0"`
	Status    string                   `gorm:"type:varchar(20);not null;index"`
	GameState string                   `gorm:"type:varchar(20);not null;index"`
	Document  datatypes.JSONType[Room] `gorm:"type:jsonb;not null"`
	CreatedAt time.Time                `gorm:"autoCreateTime"`
	UpdatedAt time.Time                `gorm:"index"`
}

func (RoomRecord) TableName() string {
	return "rooms"
}
