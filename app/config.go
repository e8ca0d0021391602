package app

import (
	"fmt"

	activityservice "github.com/Black-And-White-Club/activity-bot/app/modules/activity/application"
	applicationservice "github.com/Black-And-White-Club/activity-bot/app/modules/applications/application"
	rankdomain "github.com/Black-And-White-Club/activity-bot/app/modules/rank/domain"
	"github.com/Black-And-White-Club/activity-bot/app/shared/platform"
	"github.com/Black-And-White-Club/activity-bot/config"
)

// LadderFromConfig builds the rank ladder from the configured tiers. A tier
// without a name or requirement takes the stock value at its position.
func LadderFromConfig(ranks []config.RankConfig) (*rankdomain.Ladder, error) {
	tiers := make([]rankdomain.Tier, len(ranks))
	for i, r := range ranks {
		tiers[i] = rankdomain.Tier{Name: r.Name, Requirement: r.Requirement, RoleHandle: platform.RoleHandle(r.Role)}
	}
	ladder, err := rankdomain.NewLadder(rankdomain.FillDefaults(tiers))
	if err != nil {
		return nil, fmt.Errorf("invalid ranks: %w", err)
	}
	return ladder, nil
}

// ActivityConfig maps the scoring and decay sections onto the service config.
func ActivityConfig(cfg *config.Config) activityservice.Config {
	excluded := make([]platform.ChannelID, len(cfg.Activity.ExcludedChannels))
	for i, c := range cfg.Activity.ExcludedChannels {
		excluded[i] = platform.ChannelID(c)
	}
	return activityservice.Config{
		Env:              cfg.Env,
		OwnerID:          platform.UserID(cfg.Activity.OwnerID),
		Cooldown:         cfg.Activity.Cooldown,
		ExcludedChannels: excluded,
		DecayRate:        cfg.Decay.Rate,
		DecayGrace:       cfg.Decay.Grace,
		ReconcileTimeout: cfg.Decay.ReconcileTimeout,
	}
}

// ApplicationConfig maps the applications section. No questions keeps the
// stock form.
func ApplicationConfig(cfg config.ApplicationsConfig) applicationservice.Config {
	var questions []applicationservice.Question
	for _, q := range cfg.Questions {
		questions = append(questions, applicationservice.Question{ID: q.ID, Prompt: q.Prompt})
	}
	return applicationservice.Config{
		LobbyChannel:   platform.ChannelID(cfg.LobbyChannel),
		ReviewChannel:  platform.ChannelID(cfg.ReviewChannel),
		WelcomeChannel: platform.ChannelID(cfg.WelcomeChannel),
		MemberRole:     platform.RoleHandle(cfg.MemberRole),
		ReviewerRole:   platform.RoleHandle(cfg.ReviewerRole),
		Questions:      questions,
	}
}
