// Package activityevents defines the NATS subjects and payloads exchanged
// with the chat gateway.
package activityevents

// Inbound subjects published by the gateway.
const (
	// MessageReceivedV1 carries every guild text message.
	MessageReceivedV1 = "activity.message.received.v1"
	// MemberJoinedV1 fires when a member joins the guild.
	MemberJoinedV1 = "activity.member.joined.v1"
	// MemberLeftV1 fires when a member leaves or is removed.
	MemberLeftV1 = "activity.member.left.v1"
	// InteractionReceivedV1 carries slash commands, button presses and modal submits.
	InteractionReceivedV1 = "activity.interaction.received.v1"
	// MembersSyncV1 carries the full member list, sent when the gateway connects.
	MembersSyncV1 = "activity.members.sync.v1"
)

// Outbound subjects published by the bot.
const (
	RankChangedV1         = "activity.rank.changed.v1"
	ApplicationResolvedV1 = "activity.application.resolved.v1"
)

// StreamName is the JetStream stream holding every activity subject.
const StreamName = "activity"

// StreamSubjects is the subject filter of StreamName.
var StreamSubjects = []string{"activity.>"}
