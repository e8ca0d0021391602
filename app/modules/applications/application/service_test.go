package applicationservice

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Black-And-White-Club/activity-bot/app/shared/platform"
	"github.com/Black-And-White-Club/activity-bot/internal/observability/metrics"
	"go.opentelemetry.io/otel/trace/noop"
)

func newTestService(client *platform.FakeClient) *ApplicationService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tracer := noop.NewTracerProvider().Tracer("test")
	return NewApplicationService(client, Config{
		LobbyChannel:   "lobby",
		ReviewChannel:  "review",
		WelcomeChannel: "general",
		MemberRole:     "member",
		ReviewerRole:   "staff",
	}, logger, metrics.NoOp{}, tracer)
}

func reviewEmbed() *platform.Embed {
	return &platform.Embed{
		AuthorID:    "u1",
		AuthorName:  "alice",
		Description: "Application to Join",
		Color:       platform.ColorYellow,
		Fields:      []platform.EmbedField{{Name: "User", Value: "alice <@u1>"}},
	}
}

func TestPostJoinMessage(t *testing.T) {
	client := platform.NewFakeClient()
	s := newTestService(client)

	id, err := s.PostJoinMessage(context.Background())
	if err != nil {
		t.Fatalf("PostJoinMessage: %v", err)
	}
	sent := client.SentMessages()
	if len(sent) != 1 || sent[0].MessageID != id || sent[0].ChannelID != "lobby" {
		t.Fatalf("unexpected sent messages: %+v", sent)
	}
	buttons := sent[0].Message.Buttons
	if len(buttons) != 1 || buttons[0].CustomID != ApplyButtonID || buttons[0].Label != "Apply to Join" {
		t.Errorf("unexpected buttons: %+v", buttons)
	}
}

func TestOpenApplication_ModalHasEveryQuestion(t *testing.T) {
	client := platform.NewFakeClient()
	s := newTestService(client)

	if err := s.OpenApplication(context.Background(), platform.InteractionRef{ID: "i1"}); err != nil {
		t.Fatalf("OpenApplication: %v", err)
	}
	if len(client.Modals) != 1 {
		t.Fatalf("expected one modal, got %d", len(client.Modals))
	}
	m := client.Modals[0]
	if m.CustomID != ApplicationModalID || m.Title != "Application to Join" {
		t.Errorf("unexpected modal header: %+v", m)
	}
	if len(m.Inputs) != len(DefaultQuestions) {
		t.Fatalf("expected %d inputs, got %d", len(DefaultQuestions), len(m.Inputs))
	}
	for i, in := range m.Inputs {
		if in.CustomID != DefaultQuestions[i].ID || in.Placeholder != DefaultQuestions[i].Prompt || !in.Required {
			t.Errorf("input %d mismatch: %+v", i, in)
		}
	}
}

func TestSubmitApplication(t *testing.T) {
	client := platform.NewFakeClient()
	s := newTestService(client)

	err := s.SubmitApplication(context.Background(), Submission{
		Ref:      platform.InteractionRef{ID: "i2"},
		UserID:   "u1",
		UserName: "alice",
		Answers:  map[string]string{"q1": "yes", "q4": "100"},
	})
	if err != nil {
		t.Fatalf("SubmitApplication: %v", err)
	}

	sent := client.SentMessages()
	if len(sent) != 1 || sent[0].ChannelID != "review" {
		t.Fatalf("expected review post, got %+v", sent)
	}
	msg := sent[0].Message
	if msg.Embed == nil || msg.Embed.Color != platform.ColorYellow || msg.Embed.AuthorName != "alice" {
		t.Fatalf("unexpected embed: %+v", msg.Embed)
	}
	if got := len(msg.Embed.Fields); got != 1+len(DefaultQuestions) {
		t.Errorf("expected %d fields, got %d", 1+len(DefaultQuestions), got)
	}
	if msg.Embed.Fields[4].Value != "100" {
		t.Errorf("expected q4 answer in field 4, got %+v", msg.Embed.Fields[4])
	}
	if len(msg.Buttons) != 2 || msg.Buttons[0].CustomID != "accept-application-u1" || msg.Buttons[1].CustomID != "decline-application-u1" {
		t.Errorf("unexpected buttons: %+v", msg.Buttons)
	}

	if len(client.Responses) != 1 || !client.Responses[0].Ephemeral || !strings.Contains(client.Responses[0].Content, "<@&staff>") {
		t.Errorf("unexpected confirmation: %+v", client.Responses)
	}
}

func TestParseDecision(t *testing.T) {
	tests := []struct {
		in        string
		accept    bool
		applicant platform.UserID
		ok        bool
	}{
		{"accept-application-42", true, "42", true},
		{"decline-application-42", false, "42", true},
		{"accept-application-", true, "", false},
		{"apply", false, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			accept, applicant, ok := ParseDecision(tt.in)
			if accept != tt.accept || applicant != tt.applicant || ok != tt.ok {
				t.Errorf("ParseDecision(%q) = %v, %q, %v", tt.in, accept, applicant, ok)
			}
		})
	}
}

func TestResolve_Accept(t *testing.T) {
	client := platform.NewFakeClient()
	client.AddMember("u1")
	s := newTestService(client)

	res, err := s.Resolve(context.Background(), Decision{
		Ref:          platform.InteractionRef{ID: "i3"},
		CustomID:     "accept-application-u1",
		ChannelID:    "review",
		MessageID:    "msg-9",
		Embed:        reviewEmbed(),
		ReviewerID:   "mod",
		ReviewerName: "bob",
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !res.IsSuccess() || !res.Success.Accepted || len(res.Success.StepErrors) != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}

	if roles := client.RolesOf("u1"); len(roles) != 1 || roles[0] != "member" {
		t.Errorf("expected member role, got %v", roles)
	}
	if len(client.Updated) != 1 {
		t.Fatalf("expected review message update, got %+v", client.Updated)
	}
	up := client.Updated[0].Message
	if up.Embed.Color != platform.ColorGreen || !up.ClearButtons || len(up.Embed.Fields) != 1 {
		t.Errorf("unexpected frozen message: %+v", up)
	}
	sent := client.SentMessages()
	if len(sent) != 1 || sent[0].ChannelID != "general" || !sent[0].Message.AllowMentions {
		t.Errorf("expected welcome in general, got %+v", sent)
	}
	if len(client.Responses) != 1 || client.Responses[0].Content != "alice application **accepted** by bob" {
		t.Errorf("unexpected response: %+v", client.Responses)
	}
}

func TestResolve_Decline(t *testing.T) {
	client := platform.NewFakeClient()
	client.AddMember("u1")
	s := newTestService(client)

	res, err := s.Resolve(context.Background(), Decision{
		CustomID:     "decline-application-u1",
		ChannelID:    "review",
		MessageID:    "msg-9",
		Embed:        reviewEmbed(),
		ReviewerName: "bob",
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !res.IsSuccess() || res.Success.Accepted {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(client.RolesOf("u1")) != 0 {
		t.Errorf("declined applicant should get no roles")
	}
	if len(client.DMs) != 1 || client.DMs[0].Text != declinedDM {
		t.Errorf("unexpected DMs: %+v", client.DMs)
	}
	if client.Updated[0].Message.Embed.Color != platform.ColorRed {
		t.Errorf("expected red embed")
	}
	if client.Responses[0].Content != "alice application **declined** by bob" {
		t.Errorf("unexpected response: %q", client.Responses[0].Content)
	}
}

func TestResolve_OnlyFirstDecisionApplies(t *testing.T) {
	client := platform.NewFakeClient()
	client.AddMember("u1")
	s := newTestService(client)

	decisions := []string{"accept-application-u1", "decline-application-u1", "accept-application-u1", "decline-application-u1"}
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		applied  int
		rejected int
	)
	for _, id := range decisions {
		wg.Add(1)
		go func(customID string) {
			defer wg.Done()
			res, err := s.Resolve(context.Background(), Decision{
				CustomID:  customID,
				ChannelID: "review",
				MessageID: "msg-1",
				Embed:     reviewEmbed(),
			})
			if err != nil {
				t.Errorf("Resolve: %v", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if res.IsSuccess() {
				applied++
			} else if res.Failure.Code == FailureAlreadyResolved {
				rejected++
			}
		}(id)
	}
	wg.Wait()

	if applied != 1 || rejected != len(decisions)-1 {
		t.Fatalf("expected 1 applied and %d rejected, got %d and %d", len(decisions)-1, applied, rejected)
	}
	if len(client.Updated) != 1 {
		t.Errorf("review message should be updated once, got %d", len(client.Updated))
	}
}

func TestResolve_StepFailuresAreReported(t *testing.T) {
	client := platform.NewFakeClient()
	s := newTestService(client)
	client.UpdateFn = func(context.Context, platform.ChannelID, platform.MessageID, platform.OutgoingMessage) error {
		return platform.ErrMessageNotFound
	}

	res, err := s.Resolve(context.Background(), Decision{
		CustomID:  "accept-application-gone",
		MessageID: "msg-2",
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !res.IsSuccess() {
		t.Fatalf("expected decision to be recorded, got %+v", res)
	}
	errs := res.Success.StepErrors
	if len(errs) != 2 {
		t.Fatalf("expected freeze and add-role failures, got %v", errs)
	}
	if !errors.Is(errs[0], platform.ErrMessageNotFound) || !errors.Is(errs[1], platform.ErrMemberNotFound) {
		t.Errorf("unexpected errors: %v", errs)
	}
	if len(client.SentMessages()) != 0 {
		t.Errorf("no welcome expected for a departed applicant")
	}
	if client.Responses[0].Content != "gone application **accepted** by " {
		t.Errorf("unexpected response: %q", client.Responses[0].Content)
	}
}

func TestResolve_UnknownButton(t *testing.T) {
	s := newTestService(platform.NewFakeClient())
	res, err := s.Resolve(context.Background(), Decision{CustomID: "apply", MessageID: "m"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !res.IsFailure() || res.Failure.Code != FailureUnknownButton {
		t.Fatalf("expected unknown button failure, got %+v", res)
	}
}

func TestResolutionGuard_PrunesExpiredClaims(t *testing.T) {
	g := newResolutionGuard(time.Hour)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return now }

	for i := 0; i <= guardCleanupThreshold; i++ {
		g.Claim(platform.MessageID("old-" + strings.Repeat("x", i)))
	}
	now = now.Add(2 * time.Hour)
	if !g.Claim("fresh") {
		t.Fatalf("fresh claim should succeed")
	}
	if g.size() != 1 {
		t.Errorf("expected expired claims pruned, have %d", g.size())
	}
	if g.Claim("fresh") {
		t.Errorf("second claim should fail")
	}
}
