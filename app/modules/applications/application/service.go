package applicationservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Black-And-White-Club/activity-bot/app/shared/platform"
	"github.com/Black-And-White-Club/activity-bot/internal/observability/attr"
	"github.com/Black-And-White-Club/activity-bot/internal/observability/metrics"
	"github.com/Black-And-White-Club/activity-bot/internal/results"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	lobbyText = "To join our Discord, you'll need to complete a brief application. " +
		"This helps us ensure that everyone who joins shares a genuine interest in the hobby " +
		"and contributes positively to our community."
	declinedDM = "Your application has unfortunately been declined."
)

// ApplicationService runs the membership application flow: lobby message,
// form, review message and a single accept or decline per application.
type ApplicationService struct {
	client  platform.Client
	cfg     Config
	logger  *slog.Logger
	metrics metrics.ApplicationMetrics
	tracer  trace.Tracer
	guard   *resolutionGuard
}

// NewApplicationService creates an ApplicationService.
func NewApplicationService(
	client platform.Client,
	cfg Config,
	logger *slog.Logger,
	metrics metrics.ApplicationMetrics,
	tracer trace.Tracer,
) *ApplicationService {
	if len(cfg.Questions) == 0 {
		cfg.Questions = DefaultQuestions
	}
	return &ApplicationService{
		client:  client,
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		tracer:  tracer,
		guard:   newResolutionGuard(cfg.GuardTTL),
	}
}

// PostJoinMessage posts the lobby message carrying the apply button.
func (s *ApplicationService) PostJoinMessage(ctx context.Context) (platform.MessageID, error) {
	ctx, span := s.tracer.Start(ctx, "ApplicationService.PostJoinMessage")
	defer span.End()

	id, err := s.client.SendMessage(ctx, s.cfg.LobbyChannel, platform.OutgoingMessage{
		Content: lobbyText,
		Buttons: []platform.Button{{CustomID: ApplyButtonID, Label: "Apply to Join", Style: platform.ButtonSecondary}},
	})
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("PostJoinMessage: %w", err)
	}
	s.metrics.RecordApplication(ctx, "lobby_posted")
	return id, nil
}

// Modal builds the application form.
func (s *ApplicationService) Modal() platform.Modal {
	inputs := make([]platform.TextInput, len(s.cfg.Questions))
	for i, q := range s.cfg.Questions {
		inputs[i] = platform.TextInput{
			CustomID:    q.ID,
			Label:       fmt.Sprintf("Question %d", i+1),
			Placeholder: q.Prompt,
			Required:    true,
		}
	}
	return platform.Modal{CustomID: ApplicationModalID, Title: "Application to Join", Inputs: inputs}
}

// OpenApplication answers the apply button with the form.
func (s *ApplicationService) OpenApplication(ctx context.Context, ref platform.InteractionRef) error {
	if err := s.client.OpenModal(ctx, ref, s.Modal()); err != nil {
		return fmt.Errorf("OpenApplication: %w", err)
	}
	s.metrics.RecordApplication(ctx, "opened")
	return nil
}

// SubmitApplication posts the answers for review and thanks the applicant.
func (s *ApplicationService) SubmitApplication(ctx context.Context, sub Submission) error {
	ctx, span := s.tracer.Start(ctx, "ApplicationService.SubmitApplication", trace.WithAttributes(
		attribute.String("user_id", string(sub.UserID)),
	))
	defer span.End()

	embed := &platform.Embed{
		AuthorID:    sub.UserID,
		AuthorName:  sub.UserName,
		Description: "Application to Join",
		Color:       platform.ColorYellow,
		Fields:      []platform.EmbedField{{Name: "User", Value: fmt.Sprintf("%s <@%s>", sub.UserName, sub.UserID)}},
	}
	for _, q := range s.cfg.Questions {
		embed.Fields = append(embed.Fields, platform.EmbedField{Name: q.Prompt, Value: sub.Answers[q.ID]})
	}

	_, err := s.client.SendMessage(ctx, s.cfg.ReviewChannel, platform.OutgoingMessage{
		Embed: embed,
		Buttons: []platform.Button{
			{CustomID: AcceptButtonPrefix + string(sub.UserID), Label: "Accept", Style: platform.ButtonSuccess},
			{CustomID: DeclineButtonPrefix + string(sub.UserID), Label: "Decline", Style: platform.ButtonDanger},
		},
	})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("SubmitApplication: post review: %w", err)
	}
	s.metrics.RecordApplication(ctx, "submitted")

	thanks := "Thank you for your application. We will review it in due course."
	if s.cfg.ReviewerRole != "" {
		thanks = fmt.Sprintf("Thank you for your application. <@&%s> will review it in due course.", s.cfg.ReviewerRole)
	}
	if err := s.client.Respond(ctx, sub.Ref, platform.InteractionResponse{Content: thanks, Ephemeral: true}); err != nil {
		s.logger.WarnContext(ctx, "Failed to confirm application", attr.UserID(sub.UserID), attr.Error(err))
	}
	return nil
}

// ParseDecision splits a review button id into the decision and applicant.
func ParseDecision(customID string) (accept bool, applicant platform.UserID, ok bool) {
	switch {
	case strings.HasPrefix(customID, AcceptButtonPrefix):
		applicant = platform.UserID(strings.TrimPrefix(customID, AcceptButtonPrefix))
		accept = true
	case strings.HasPrefix(customID, DeclineButtonPrefix):
		applicant = platform.UserID(strings.TrimPrefix(customID, DeclineButtonPrefix))
	default:
		return false, "", false
	}
	return accept, applicant, applicant != ""
}

// Resolve applies a reviewer's decision. Only the first decision for a
// review message is applied; later ones get an ephemeral notice.
func (s *ApplicationService) Resolve(ctx context.Context, d Decision) (results.OperationResult[Resolution, Failure], error) {
	ctx, span := s.tracer.Start(ctx, "ApplicationService.Resolve", trace.WithAttributes(
		attribute.String("custom_id", d.CustomID),
		attribute.String("reviewer_id", string(d.ReviewerID)),
	))
	defer span.End()

	accept, applicant, ok := ParseDecision(d.CustomID)
	if !ok {
		return results.FailureResult[Resolution](Failure{Code: FailureUnknownButton, Message: "Unknown application button"}), nil
	}

	if !s.guard.Claim(d.MessageID) {
		s.respond(ctx, d.Ref, platform.InteractionResponse{Content: "This application has already been resolved.", Ephemeral: true})
		return results.FailureResult[Resolution](Failure{Code: FailureAlreadyResolved, Message: "already resolved"}), nil
	}

	res := Resolution{ApplicantID: applicant, Accepted: accept}
	applicantName := string(applicant)
	if d.Embed != nil && d.Embed.AuthorName != "" {
		applicantName = d.Embed.AuthorName
	}

	if err := s.freeze(ctx, d, accept); err != nil {
		res.StepErrors = append(res.StepErrors, fmt.Errorf("freeze review message: %w", err))
	}

	verb := "declined"
	if accept {
		verb = "accepted"
		res.StepErrors = append(res.StepErrors, s.admit(ctx, applicant)...)
	} else if err := s.client.SendDirectMessage(ctx, applicant, declinedDM); err != nil {
		res.StepErrors = append(res.StepErrors, fmt.Errorf("notify applicant: %w", err))
	}

	s.respond(ctx, d.Ref, platform.InteractionResponse{
		Content: fmt.Sprintf("%s application **%s** by %s", applicantName, verb, d.ReviewerName),
	})

	s.metrics.RecordApplication(ctx, verb)
	if len(res.StepErrors) > 0 {
		err := errors.Join(res.StepErrors...)
		span.RecordError(err)
		s.logger.WarnContext(ctx, "Application resolved with failed steps",
			attr.UserID(applicant),
			attr.String("decision", verb),
			attr.Error(err),
		)
	} else {
		s.logger.InfoContext(ctx, "Application resolved",
			attr.UserID(applicant),
			attr.String("decision", verb),
			attr.String("reviewer_id", string(d.ReviewerID)),
		)
	}
	return results.SuccessResult[Resolution, Failure](res), nil
}

// freeze recolours the review embed and removes its buttons.
func (s *ApplicationService) freeze(ctx context.Context, d Decision, accept bool) error {
	embed := platform.Embed{Description: "Application to Join"}
	if d.Embed != nil {
		embed = *d.Embed
		embed.Fields = append([]platform.EmbedField(nil), d.Embed.Fields...)
	}
	embed.Color = platform.ColorRed
	if accept {
		embed.Color = platform.ColorGreen
	}
	return s.client.UpdateMessage(ctx, d.ChannelID, d.MessageID, platform.OutgoingMessage{
		Embed:        &embed,
		ClearButtons: true,
	})
}

// admit grants the member role and welcomes the new member.
func (s *ApplicationService) admit(ctx context.Context, applicant platform.UserID) []error {
	var errs []error
	if err := s.client.AddRole(ctx, applicant, s.cfg.MemberRole); err != nil {
		errs = append(errs, fmt.Errorf("add member role: %w", err))
		if errors.Is(err, platform.ErrMemberNotFound) {
			return errs
		}
	}
	if s.cfg.WelcomeChannel == "" {
		return errs
	}
	_, err := s.client.SendMessage(ctx, s.cfg.WelcomeChannel, platform.OutgoingMessage{
		Content:       fmt.Sprintf("Everyone please give a warm welcome to our newest user <@%s>!", applicant),
		AllowMentions: true,
	})
	if err != nil {
		errs = append(errs, fmt.Errorf("welcome message: %w", err))
	}
	return errs
}

func (s *ApplicationService) respond(ctx context.Context, ref platform.InteractionRef, resp platform.InteractionResponse) {
	if err := s.client.Respond(ctx, ref, resp); err != nil {
		s.logger.WarnContext(ctx, "Failed to respond to interaction",
			attr.String("interaction_id", ref.ID),
			attr.Error(err),
		)
	}
}
