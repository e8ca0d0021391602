package app

import (
	"errors"
	"testing"
	"time"

	rankdomain "github.com/Black-And-White-Club/activity-bot/app/modules/rank/domain"
	"github.com/Black-And-White-Club/activity-bot/app/shared/platform"
	"github.com/Black-And-White-Club/activity-bot/config"
	"github.com/google/go-cmp/cmp"
)

func TestLadderFromConfig(t *testing.T) {
	ladder, err := LadderFromConfig([]config.RankConfig{
		{Name: "Bronze", Requirement: 1, Role: "r1"},
		{Name: "Iron", Requirement: 250, Role: "r2"},
	})
	if err != nil {
		t.Fatalf("LadderFromConfig: %v", err)
	}
	tier, ok := ladder.TierFor(300)
	if !ok || tier.Name != "Iron" || tier.RoleHandle != "r2" {
		t.Errorf("TierFor(300) = %+v, %v", tier, ok)
	}

	_, err = LadderFromConfig([]config.RankConfig{
		{Name: "Iron", Requirement: 250, Role: "r2"},
		{Name: "Bronze", Requirement: 1, Role: "r1"},
	})
	if !errors.Is(err, rankdomain.ErrUnorderedLadder) {
		t.Errorf("expected ErrUnorderedLadder, got %v", err)
	}
	if _, err := LadderFromConfig(nil); !errors.Is(err, rankdomain.ErrEmptyLadder) {
		t.Errorf("expected ErrEmptyLadder, got %v", err)
	}
	_, err = LadderFromConfig([]config.RankConfig{{Name: "Bronze", Requirement: 1}})
	if !errors.Is(err, rankdomain.ErrMissingRole) {
		t.Errorf("expected ErrMissingRole, got %v", err)
	}
}

func TestLadderFromConfig_StockTiers(t *testing.T) {
	ladder, err := LadderFromConfig([]config.RankConfig{{Role: "r1"}, {Role: "r2"}, {Name: "Gold", Role: "r3"}})
	if err != nil {
		t.Fatalf("LadderFromConfig: %v", err)
	}
	want := []rankdomain.Tier{
		{Name: "Bronze", Requirement: 1, RoleHandle: "r1"},
		{Name: "Iron", Requirement: 250, RoleHandle: "r2"},
		{Name: "Gold", Requirement: 500, RoleHandle: "r3"},
	}
	if diff := cmp.Diff(want, ladder.Tiers()); diff != "" {
		t.Errorf("tiers mismatch (-want +got):\n%s", diff)
	}
}

func TestActivityConfig(t *testing.T) {
	cfg := &config.Config{
		Env:      "dev",
		Activity: config.ActivityConfig{OwnerID: "owner", Cooldown: time.Second, ExcludedChannels: []string{"c1", "c2"}},
		Decay:    config.DecayConfig{Rate: 0.05, Grace: time.Hour},
	}
	got := ActivityConfig(cfg)
	if got.OwnerID != "owner" || got.Env != "dev" || got.DecayRate != 0.05 || got.DecayGrace != time.Hour {
		t.Errorf("unexpected config %+v", got)
	}
	if diff := cmp.Diff([]platform.ChannelID{"c1", "c2"}, got.ExcludedChannels); diff != "" {
		t.Errorf("excluded channels mismatch (-want +got):\n%s", diff)
	}
}

func TestApplicationConfig(t *testing.T) {
	got := ApplicationConfig(config.ApplicationsConfig{
		ReviewChannel: "review",
		MemberRole:    "member",
		Questions:     []config.QuestionConfig{{ID: "q1", Prompt: "Why?"}},
	})
	if got.ReviewChannel != "review" || got.MemberRole != "member" {
		t.Errorf("unexpected config %+v", got)
	}
	if len(got.Questions) != 1 || got.Questions[0].Prompt != "Why?" {
		t.Errorf("questions = %+v", got.Questions)
	}
	if empty := ApplicationConfig(config.ApplicationsConfig{}); empty.Questions != nil {
		t.Errorf("expected nil questions, got %+v", empty.Questions)
	}
}
