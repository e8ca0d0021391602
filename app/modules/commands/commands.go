// Package commandhandlers answers slash commands and routes button presses
// and modal submissions to the application flow.
package commandhandlers

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	activityevents "github.com/Black-And-White-Club/activity-bot/app/events/activity"
	"github.com/Black-And-White-Club/activity-bot/app/shared/platform"
	"github.com/Black-And-White-Club/activity-bot/internal/observability/attr"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Command names as registered with the platform.
const (
	CommandLeaderboard = "leaderboard"
	CommandScore       = "score"
	CommandRank        = "rank"
	CommandInactive    = "inactive-list"
	CommandDeleteUser  = "delete-user"
	CommandGetUser     = "get-user"
	CommandSetScore    = "set-score"
	CommandJoinMessage = "join-message"
	CommandApply       = "apply"
)

const (
	replyNoPermission = "You do not have permission to use this command."
	replyUnknown      = "Unknown command."
	replyFailed       = "Something went wrong, please try again later."
)

// Config tunes the command surface.
type Config struct {
	// Env "dev" restricts the bot to its owner.
	Env           string
	InactiveAfter time.Duration
}

type commandFunc func(ctx context.Context, p *activityevents.InteractionPayloadV1) (string, error)

type command struct {
	adminOnly bool
	run       commandFunc
}

// CommandHandlers answers interactions on behalf of the activity and
// application services.
type CommandHandlers struct {
	activity     Activity
	applications Applications
	interactions platform.Interactions
	cutoffs      *CutoffParser
	cfg          Config
	logger       *slog.Logger
	tracer       trace.Tracer
	now          func() time.Time
	commands     map[string]command
}

// NewCommandHandlers creates the handlers.
func NewCommandHandlers(
	activity Activity,
	applications Applications,
	interactions platform.Interactions,
	cfg Config,
	logger *slog.Logger,
	tracer trace.Tracer,
) *CommandHandlers {
	h := &CommandHandlers{
		activity:     activity,
		applications: applications,
		interactions: interactions,
		cutoffs:      NewCutoffParser(cfg.InactiveAfter),
		cfg:          cfg,
		logger:       logger,
		tracer:       tracer,
		now:          time.Now,
	}
	h.commands = map[string]command{
		CommandLeaderboard: {adminOnly: true, run: h.leaderboard},
		CommandScore:       {run: h.score},
		CommandRank:        {run: h.rank},
		CommandInactive:    {adminOnly: true, run: h.inactive},
		CommandDeleteUser:  {adminOnly: true, run: h.deleteUser},
		CommandGetUser:     {adminOnly: true, run: h.getUser},
		CommandSetScore:    {adminOnly: true, run: h.setScore},
		CommandJoinMessage: {adminOnly: true, run: h.joinMessage},
	}
	return h
}

// ignored reports whether the interaction should get no answer at all.
func (h *CommandHandlers) ignored(p *activityevents.InteractionPayloadV1) bool {
	return p.IsBot || (h.cfg.Env == "dev" && !p.IsOwner)
}

// HandleCommand runs a slash command and responds with its text.
func (h *CommandHandlers) HandleCommand(ctx context.Context, p *activityevents.InteractionPayloadV1) error {
	if h.ignored(p) {
		return nil
	}
	ctx, span := h.tracer.Start(ctx, "CommandHandlers.HandleCommand", trace.WithAttributes(
		attribute.String("command", p.Command),
		attribute.String("user_id", string(p.UserID)),
	))
	defer span.End()

	if p.Command == CommandApply {
		return h.openApplication(ctx, p)
	}

	cmd, ok := h.commands[p.Command]
	if !ok {
		return h.respond(ctx, p, replyUnknown, true)
	}
	if cmd.adminOnly && !p.IsAdmin {
		h.logger.WarnContext(ctx, "Rejected admin command",
			attr.String("command", p.Command),
			attr.UserID(p.UserID),
		)
		return h.respond(ctx, p, replyNoPermission, true)
	}

	text, err := cmd.run(ctx, p)
	if err != nil {
		span.RecordError(err)
		h.logger.ErrorContext(ctx, "Command failed",
			attr.String("command", p.Command),
			attr.UserID(p.UserID),
			attr.Error(err),
		)
		return h.respond(ctx, p, replyFailed, true)
	}
	return h.respond(ctx, p, text, false)
}

// respond answers the interaction. A failed reply is logged and not retried:
// the interaction token is short lived and the command already ran.
func (h *CommandHandlers) respond(ctx context.Context, p *activityevents.InteractionPayloadV1, text string, ephemeral bool) error {
	err := h.interactions.Respond(ctx, p.Ref, platform.InteractionResponse{Content: text, Ephemeral: ephemeral})
	if err != nil {
		h.logger.WarnContext(ctx, "Failed to respond to interaction",
			attr.String("interaction_id", p.Ref.ID),
			attr.Error(err),
		)
	}
	return nil
}

func (h *CommandHandlers) leaderboard(ctx context.Context, p *activityevents.InteractionPayloadV1) (string, error) {
	limit := 0
	if raw := p.Options["limit"]; raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return "Limit must be a number.", nil
		}
		limit = n
	}
	entries, err := h.activity.Leaderboard(ctx, limit)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.WriteString("**Leaderboard**\n")
	for _, e := range entries {
		fmt.Fprintf(&sb, "%d. <@%s>: %d\n", e.Position, e.UserID, e.Score)
	}
	return sb.String(), nil
}

func (h *CommandHandlers) score(ctx context.Context, p *activityevents.InteractionPayloadV1) (string, error) {
	res, err := h.activity.CurrentScore(ctx, p.UserID)
	if err != nil {
		return "", err
	}
	var score int64
	if res.IsSuccess() {
		score = *res.Success
	}
	return fmt.Sprintf("Your score is: %d", score), nil
}

func (h *CommandHandlers) rank(ctx context.Context, p *activityevents.InteractionPayloadV1) (string, error) {
	res, err := h.activity.RankProgress(ctx, p.UserID)
	if err != nil {
		return "", err
	}
	if res.IsFailure() {
		return "You do not have a score yet. Send a few messages to get started!", nil
	}
	prog := res.Success.Progress
	if prog.MaxTierReached() {
		return "You have reached the highest rank!", nil
	}
	return fmt.Sprintf(
		"You are %.2f%% of the way to the next rank! You need %d more points to reach %s(req: %d).",
		prog.Percent, prog.PointsNeededForNext, prog.Next.Name, prog.Next.Requirement,
	), nil
}

func (h *CommandHandlers) inactive(ctx context.Context, p *activityevents.InteractionPayloadV1) (string, error) {
	cutoff, err := h.cutoffs.Parse(p.Options["since"], h.now())
	if err != nil {
		return fmt.Sprintf("Could not understand %q as a date.", p.Options["since"]), nil
	}
	users, err := h.activity.InactivityReport(ctx, cutoff)
	if err != nil {
		return "", err
	}
	if len(users) == 0 {
		return "No inactive users found!", nil
	}
	var sb strings.Builder
	sb.WriteString("Inactive users:\n")
	for _, u := range users {
		fmt.Fprintf(&sb, "<@%s> (days: %d)\n", u.UserID, u.DaysInactive)
	}
	return sb.String(), nil
}

func (h *CommandHandlers) deleteUser(ctx context.Context, p *activityevents.InteractionPayloadV1) (string, error) {
	target, ok := userOption(p)
	if !ok {
		return "A user is required.", nil
	}
	if _, err := h.activity.DeleteUser(ctx, target); err != nil {
		return "", err
	}
	return "User deleted!", nil
}

func (h *CommandHandlers) getUser(ctx context.Context, p *activityevents.InteractionPayloadV1) (string, error) {
	target, ok := userOption(p)
	if !ok {
		return "A user is required.", nil
	}
	res, err := h.activity.GetUser(ctx, target)
	if err != nil {
		return "", err
	}
	if res.IsFailure() {
		return fmt.Sprintf("<@%s> is not tracked.", target), nil
	}
	u := res.Success
	last := "never"
	if u.LastMessageAt != nil {
		last = u.LastMessageAt.UTC().Format(time.DateTime)
	}
	return fmt.Sprintf("**User:** <@%s> **First Seen:** %s **Last Seen:** %s **Score:** %d",
		u.UserID, u.FirstSeenAt.UTC().Format(time.DateTime), last, u.Score), nil
}

func (h *CommandHandlers) setScore(ctx context.Context, p *activityevents.InteractionPayloadV1) (string, error) {
	target, ok := userOption(p)
	if !ok {
		return "A user is required.", nil
	}
	value, err := strconv.ParseInt(p.Options["score"], 10, 64)
	if err != nil {
		return "Score must be a whole number.", nil
	}
	res, err := h.activity.SetScore(ctx, target, value)
	if err != nil {
		return "", err
	}
	if res.IsFailure() {
		if res.Failure.Message != "" {
			return res.Failure.Message, nil
		}
		return "Could not set score.", nil
	}
	text := fmt.Sprintf("<@%s> score set to %d", target, res.Success.NewScore)
	if rec := res.Success.Reconcile; rec != nil && !rec.OK() {
		text += fmt.Sprintf(" (role update incomplete: %s)", rec.FailureSummary())
	}
	return text, nil
}

func (h *CommandHandlers) joinMessage(ctx context.Context, _ *activityevents.InteractionPayloadV1) (string, error) {
	if _, err := h.applications.PostJoinMessage(ctx); err != nil {
		return "", err
	}
	return "sent", nil
}

func userOption(p *activityevents.InteractionPayloadV1) (platform.UserID, bool) {
	id := strings.TrimSpace(p.Options["user"])
	id = strings.TrimSuffix(strings.TrimPrefix(strings.TrimPrefix(id, "<@"), "!"), ">")
	return platform.UserID(id), id != ""
}
