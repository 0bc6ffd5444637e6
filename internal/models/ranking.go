package models

import (
	"math"
	"time"

	"gorm.io/datatypes"
)

// Mission type constants
const (
	MissionPlayRounds   = "play_rounds"
	MissionWinRounds    = "win_rounds"
	MissionScorePoints  = "score_points"
	MissionValidWords   = "valid_words"
	MissionPerfectRound = "perfect_round"
	MissionHighScore    = "high_score"
)

type Mission struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Goal      int    `json:"goal"`
	Progress  int    `json:"progress"`
	Reward    int64  `json:"reward"`
	Completed bool   `json:"completed"`
	Claimed   bool   `json:"claimed"`
}

type PlayerRanking struct {
	PlayerID          string                       `gorm:"primaryKey;type:varchar(64)" json:"id"`
	DisplayName       string                       `gorm:"type:varchar(64)" json:"displayName"`
	Avatar            string                       `gorm:"type:varchar(500)" json:"avatar"`
	TotalScore        int64                        `gorm:"default:0;not null;index" json:"totalScore"`
	GamesPlayed       int                          `gorm:"default:0;not null" json:"gamesPlayed"`
	GamesWon          int                          `gorm:"default:0;not null" json:"gamesWon"`
	BestScore         int                          `gorm:"default:0;not null" json:"bestScore"`
	AverageScore      int                          `gorm:"default:0;not null" json:"averageScore"`
	Level             string                       `gorm:"type:varchar(32);not null" json:"level"`
	Achievements      datatypes.JSONSlice[string]  `gorm:"type:jsonb" json:"achievements"`
	Coins             int64                        `gorm:"default:0;not null" json:"coins"`
	DailyMissions     datatypes.JSONSlice[Mission] `gorm:"type:jsonb" json:"dailyMissions"`
	MissionsLastReset string                       `gorm:"type:varchar(10)" json:"missionsLastReset"`
	CreatedAt         time.Time                    `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt         time.Time                    `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (PlayerRanking) TableName() string {
	return "player_rankings"
}

func (p *PlayerRanking) HasAchievement(id string) bool {
	for _, a := range p.Achievements {
		if a == id {
			return true
		}
	}
	return false
}

func (p *PlayerRanking) Mission(id string) (int, bool) {
	for i := range p.DailyMissions {
		if p.DailyMissions[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

type LevelThreshold struct {
	MinScore int64
	Name     string
}

// LevelTable is ascending by MinScore.
var LevelTable = []LevelThreshold{
	{MinScore: 0, Name: "Novice"},
	{MinScore: 100, Name: "Apprentice"},
	{MinScore: 500, Name: "Wordsmith"},
	{MinScore: 1500, Name: "Scholar"},
	{MinScore: 5000, Name: "Master"},
	{MinScore: 15000, Name: "Grandmaster"},
	{MinScore: 50000, Name: "Legend"},
}

// LevelForScore returns the name of the highest threshold not above totalScore.
func LevelForScore(totalScore int64) string {
	level := LevelTable[0].Name
	for _, t := range LevelTable {
		if totalScore < t.MinScore {
			break
		}
		level = t.Name
	}
	return level
}

// AverageScore is totalScore/gamesPlayed rounded half away from zero.
func AverageScore(totalScore int64, gamesPlayed int) int {
	if gamesPlayed <= 0 {
		return 0
	}
	return int(math.Round(float64(totalScore) / float64(gamesPlayed)))
}
