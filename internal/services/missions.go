package services

import (
	"github.com/mroshb/word_game/internal/models"
)

// DailyMissionCount is how many missions a player gets per UTC day.
const DailyMissionCount = 3

type missionTemplate struct {
	Key    string
	Type   string
	Title  string
	Goal   int
	Reward int64
}

var missionTemplates = []missionTemplate{
	{Key: "play3", Type: models.MissionPlayRounds, Title: "Play 3 rounds", Goal: 3, Reward: 20},
	{Key: "play10", Type: models.MissionPlayRounds, Title: "Play 10 rounds", Goal: 10, Reward: 60},
	{Key: "win1", Type: models.MissionWinRounds, Title: "Win a round", Goal: 1, Reward: 25},
	{Key: "win3", Type: models.MissionWinRounds, Title: "Win 3 rounds", Goal: 3, Reward: 75},
	{Key: "score100", Type: models.MissionScorePoints, Title: "Score 100 points", Goal: 100, Reward: 40},
	{Key: "valid15", Type: models.MissionValidWords, Title: "Find 15 valid words", Goal: 15, Reward: 30},
	{Key: "perfect", Type: models.MissionPerfectRound, Title: "Answer every category in one round", Goal: 1, Reward: 50},
	{Key: "high50", Type: models.MissionHighScore, Title: "Score 50 in a single round", Goal: 50, Reward: 40},
}

// rollMissions draws DailyMissionCount distinct templates for date.
func rollMissions(date string, pick func(n int) int) []models.Mission {
	pool := make([]missionTemplate, len(missionTemplates))
	copy(pool, missionTemplates)

	count := DailyMissionCount
	if count > len(pool) {
		count = len(pool)
	}

	missions := make([]models.Mission, 0, count)
	for i := 0; i < count; i++ {
		j := i + pick(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
		t := pool[i]
		missions = append(missions, models.Mission{
			ID:     date + ":" + t.Key,
			Type:   t.Type,
			Title:  t.Title,
			Goal:   t.Goal,
			Reward: t.Reward,
		})
	}
	return missions
}

// advanceMission applies one recorded round to m. Claimed missions never change.
func advanceMission(m *models.Mission, result *models.GameResult) {
	if m.Claimed || m.Completed {
		return
	}

	switch m.Type {
	case models.MissionPlayRounds:
		m.Progress++
	case models.MissionWinRounds:
		if result.Won {
			m.Progress++
		}
	case models.MissionScorePoints:
		m.Progress += result.Score
	case models.MissionValidWords:
		m.Progress += result.ValidCount
	case models.MissionPerfectRound:
		if result.IsPerfect() {
			m.Progress++
		}
	case models.MissionHighScore:
		if result.Score > m.Progress {
			m.Progress = result.Score
		}
	}

	if m.Progress >= m.Goal {
		m.Progress = m.Goal
		m.Completed = true
	}
}

// Achievement ids
const (
	AchievementFirstRound   = "first_round"
	AchievementFirstWin     = "first_win"
	AchievementTenWins      = "ten_wins"
	AchievementVeteran      = "veteran"
	AchievementPerfectRound = "perfect_round"
	AchievementSharpMind    = "sharp_mind"
	AchievementScholar      = "scholar"
)

type achievementRule struct {
	ID       string
	Unlocked func(p *models.PlayerRanking, result *models.GameResult) bool
}

var achievementRules = []achievementRule{
	{ID: AchievementFirstRound, Unlocked: func(p *models.PlayerRanking, _ *models.GameResult) bool { return p.GamesPlayed >= 1 }},
	{ID: AchievementFirstWin, Unlocked: func(p *models.PlayerRanking, _ *models.GameResult) bool { return p.GamesWon >= 1 }},
	{ID: AchievementTenWins, Unlocked: func(p *models.PlayerRanking, _ *models.GameResult) bool { return p.GamesWon >= 10 }},
	{ID: AchievementVeteran, Unlocked: func(p *models.PlayerRanking, _ *models.GameResult) bool { return p.GamesPlayed >= 50 }},
	{ID: AchievementPerfectRound, Unlocked: func(_ *models.PlayerRanking, r *models.GameResult) bool { return r.IsPerfect() }},
	{ID: AchievementSharpMind, Unlocked: func(_ *models.PlayerRanking, r *models.GameResult) bool { return r.Score >= 50 }},
	{ID: AchievementScholar, Unlocked: func(p *models.PlayerRanking, _ *models.GameResult) bool { return p.TotalScore >= 1500 }},
}

// unlockAchievements only ever appends.
func unlockAchievements(p *models.PlayerRanking, result *models.GameResult) []string {
	var unlocked []string
	for _, rule := range achievementRules {
		if p.HasAchievement(rule.ID) || !rule.Unlocked(p, result) {
			continue
		}
		p.Achievements = append(p.Achievements, rule.ID)
		unlocked = append(unlocked, rule.ID)
	}
	return unlocked
}
