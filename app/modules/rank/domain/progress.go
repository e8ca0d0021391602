package rankdomain

// Progress describes how far a score is between its tier and the next one.
type Progress struct {
	Score      int64
	Current    Tier
	HasCurrent bool
	Next       Tier
	HasNext    bool

	PointsIntoCurrent   int64
	PointsNeededForNext int64
	// Percent is only meaningful when HasNext is set.
	Percent float64
}

// MaxTierReached is true when no tier sits above the score.
func (p Progress) MaxTierReached() bool { return !p.HasNext }

// Progress computes the progress report for score. Below the first tier the
// floor is zero, so the percentage measures the way into the first tier.
func (l *Ladder) Progress(score int64) Progress {
	p := Progress{Score: score}
	p.Current, p.HasCurrent = l.TierFor(score)
	p.Next, p.HasNext = l.NextTierAfter(score)

	var floor int64
	if p.HasCurrent {
		floor = p.Current.Requirement
	}
	p.PointsIntoCurrent = score - floor

	if !p.HasNext {
		return p
	}
	p.PointsNeededForNext = p.Next.Requirement - score
	span := p.Next.Requirement - floor
	if span > 0 {
		p.Percent = float64(p.PointsIntoCurrent) / float64(span) * 100
	}
	return p
}
