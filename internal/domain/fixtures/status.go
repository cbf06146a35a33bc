package fixtures

const halfLengthMinutes = 45

// StatusOf derives the match status of f from its flags and kickoff. Exactly
// one status applies; callers recompute it on every read.
func StatusOf(f Fixture) MatchStatus {
	switch {
	case f.Finished:
		return MatchStatus{Status: StatusFinished}
	case f.Started:
		period := PeriodFirstHalf
		if f.Minutes > halfLengthMinutes {
			period = PeriodSecondHalf
		}
		return MatchStatus{Status: StatusLive, Minutes: f.Minutes, Period: period}
	case !f.HasKickoff():
		return MatchStatus{Status: StatusPostponed}
	default:
		return MatchStatus{Status: StatusScheduled}
	}
}

// IsLive reports whether f is in play.
func IsLive(f Fixture) bool {
	return StatusOf(f).Status == StatusLive
}

// IsScheduled reports whether f has a kickoff and has not started.
func IsScheduled(f Fixture) bool {
	return StatusOf(f).Status == StatusScheduled
}
