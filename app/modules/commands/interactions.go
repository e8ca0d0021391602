package commandhandlers

import (
	"context"
	"fmt"

	activityevents "github.com/Black-And-White-Club/activity-bot/app/events/activity"
	applicationservice "github.com/Black-And-White-Club/activity-bot/app/modules/applications/application"
	"github.com/Black-And-White-Club/activity-bot/internal/handlerwrapper"
	"github.com/Black-And-White-Club/activity-bot/internal/observability/attr"
)

// HandleInteraction routes an interaction event by kind. Resolved
// applications are returned as ApplicationResolvedV1 events.
func (h *CommandHandlers) HandleInteraction(ctx context.Context, p *activityevents.InteractionPayloadV1) ([]handlerwrapper.Result, error) {
	switch p.Kind {
	case activityevents.InteractionCommand:
		return nil, h.HandleCommand(ctx, p)
	case activityevents.InteractionComponent:
		return h.handleComponent(ctx, p)
	case activityevents.InteractionModal:
		return nil, h.handleModal(ctx, p)
	default:
		h.logger.WarnContext(ctx, "Ignoring interaction of unknown kind",
			attr.String("kind", string(p.Kind)),
			attr.String("interaction_id", p.Ref.ID),
		)
		return nil, nil
	}
}

func (h *CommandHandlers) openApplication(ctx context.Context, p *activityevents.InteractionPayloadV1) error {
	if err := h.applications.OpenApplication(ctx, p.Ref); err != nil {
		return fmt.Errorf("open application: %w", err)
	}
	return nil
}

func (h *CommandHandlers) handleComponent(ctx context.Context, p *activityevents.InteractionPayloadV1) ([]handlerwrapper.Result, error) {
	if p.IsBot {
		return nil, nil
	}
	if p.CustomID == applicationservice.ApplyButtonID {
		return nil, h.openApplication(ctx, p)
	}

	if _, _, ok := applicationservice.ParseDecision(p.CustomID); !ok {
		h.logger.WarnContext(ctx, "Ignoring unknown component", attr.String("custom_id", p.CustomID))
		return nil, nil
	}
	if !p.IsAdmin {
		return nil, h.respond(ctx, p, replyNoPermission, true)
	}

	res, err := h.applications.Resolve(ctx, applicationservice.Decision{
		Ref:          p.Ref,
		CustomID:     p.CustomID,
		ChannelID:    p.ChannelID,
		MessageID:    p.MessageID,
		Embed:        p.Embed,
		ReviewerID:   p.UserID,
		ReviewerName: p.UserName,
	})
	if err != nil {
		return nil, err
	}
	if res.IsFailure() {
		return nil, nil
	}
	return []handlerwrapper.Result{{
		Topic: activityevents.ApplicationResolvedV1,
		Payload: &activityevents.ApplicationResolvedPayloadV1{
			ApplicantID: res.Success.ApplicantID,
			ReviewerID:  p.UserID,
			Accepted:    res.Success.Accepted,
		},
	}}, nil
}

func (h *CommandHandlers) handleModal(ctx context.Context, p *activityevents.InteractionPayloadV1) error {
	if p.IsBot || p.CustomID != applicationservice.ApplicationModalID {
		return nil
	}
	return h.applications.SubmitApplication(ctx, applicationservice.Submission{
		Ref:      p.Ref,
		UserID:   p.UserID,
		UserName: p.UserName,
		Answers:  p.Fields,
	})
}
