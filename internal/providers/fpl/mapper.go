package fpl

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/preston-bernstein/epl-fixtures-service/internal/domain/fixtures"
)

// DecodeFixtures maps an FPL /fixtures/ payload to domain fixtures.
func DecodeFixtures(data []byte) ([]fixtures.Fixture, error) {
	var wire []fixtureResponse
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("fpl: decode fixtures: %w", err)
	}
	out := make([]fixtures.Fixture, 0, len(wire))
	for _, f := range wire {
		out = append(out, mapFixture(f))
	}
	return out, nil
}

// DecodeBootstrap maps an FPL /bootstrap-static/ payload to gameweeks and teams.
func DecodeBootstrap(data []byte) (fixtures.Bootstrap, error) {
	var wire bootstrapResponse
	if err := json.Unmarshal(data, &wire); err != nil {
		return fixtures.Bootstrap{}, fmt.Errorf("fpl: decode bootstrap: %w", err)
	}
	b := fixtures.Bootstrap{
		Gameweeks: make([]fixtures.Gameweek, 0, len(wire.Events)),
		Teams:     make([]fixtures.Team, 0, len(wire.Teams)),
	}
	for _, e := range wire.Events {
		b.Gameweeks = append(b.Gameweeks, mapGameweek(e))
	}
	for _, t := range wire.Teams {
		b.Teams = append(b.Teams, mapTeam(t))
	}
	return b, nil
}

func mapFixture(f fixtureResponse) fixtures.Fixture {
	out := fixtures.Fixture{
		ID:                  f.ID,
		Code:                f.Code,
		Gameweek:            f.Event,
		HomeTeamID:          f.TeamH,
		AwayTeamID:          f.TeamA,
		HomeScore:           f.TeamHScore,
		AwayScore:           f.TeamAScore,
		KickoffTime:         parseTime(f.KickoffTime),
		Started:             f.Started != nil && *f.Started,
		Finished:            f.Finished,
		FinishedProvisional: f.FinishedProvisional,
		Minutes:             f.Minutes,
		ProvisionalKickoff:  f.ProvisionalStartTime,
		HomeDifficulty:      f.TeamHDifficulty,
		AwayDifficulty:      f.TeamADifficulty,
	}
	if out.Minutes < 0 {
		out.Minutes = 0
	}
	return out
}

func mapGameweek(e eventResponse) fixtures.Gameweek {
	name := strings.TrimSpace(e.Name)
	if name == "" {
		name = fmt.Sprintf("Gameweek %d", e.ID)
	}
	return fixtures.Gameweek{
		ID:           e.ID,
		Name:         name,
		DeadlineTime: parseTime(e.DeadlineTime),
		Finished:     e.Finished,
		IsPrevious:   e.IsPrevious,
		IsCurrent:    e.IsCurrent,
		IsNext:       e.IsNext,
	}
}

func mapTeam(t teamResponse) fixtures.Team {
	return fixtures.Team{
		ID:        t.ID,
		Name:      strings.TrimSpace(t.Name),
		ShortName: strings.TrimSpace(t.ShortName),
		Code:      t.Code,
		Strength:  t.Strength,
	}
}

// parseTime returns nil for missing or malformed timestamps.
func parseTime(raw *string) *time.Time {
	if raw == nil {
		return nil
	}
	v := strings.TrimSpace(*raw)
	if v == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}
