package platform

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// SentMessage is a message recorded by FakeClient.
type SentMessage struct {
	ChannelID ChannelID
	MessageID MessageID
	Message   OutgoingMessage
}

// DirectMessage is a DM recorded by FakeClient.
type DirectMessage struct {
	UserID UserID
	Text   string
}

// FakeClient is an in-memory Client for tests. Members must be added with
// AddMember before their roles can be read or changed. The Fn hooks override
// the in-memory behaviour when set.
type FakeClient struct {
	mu sync.Mutex

	members map[UserID]map[RoleHandle]struct{}
	nextID  int
	trace   []string

	Sent      []SentMessage
	Updated   []SentMessage
	DMs       []DirectMessage
	Responses []InteractionResponse
	Modals    []Modal

	ListRolesFn   func(ctx context.Context, userID UserID) ([]RoleHandle, error)
	AddRoleFn     func(ctx context.Context, userID UserID, role RoleHandle) error
	RemoveRoleFn  func(ctx context.Context, userID UserID, role RoleHandle) error
	SendMessageFn func(ctx context.Context, channelID ChannelID, msg OutgoingMessage) (MessageID, error)
	UpdateFn      func(ctx context.Context, channelID ChannelID, messageID MessageID, msg OutgoingMessage) error
	SendDMFn      func(ctx context.Context, userID UserID, text string) error
	RespondFn     func(ctx context.Context, ref InteractionRef, resp InteractionResponse) error
	OpenModalFn   func(ctx context.Context, ref InteractionRef, modal Modal) error
}

// NewFakeClient returns an empty FakeClient.
func NewFakeClient() *FakeClient {
	return &FakeClient{members: map[UserID]map[RoleHandle]struct{}{}}
}

// AddMember registers a member holding roles.
func (f *FakeClient) AddMember(userID UserID, roles ...RoleHandle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	set := map[RoleHandle]struct{}{}
	for _, r := range roles {
		set[r] = struct{}{}
	}
	f.members[userID] = set
}

// RolesOf returns the member's roles sorted.
func (f *FakeClient) RolesOf(userID UserID) []RoleHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []RoleHandle
	for r := range f.members[userID] {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Trace returns the calls made, formatted as "Method arg".
func (f *FakeClient) Trace() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

// SentMessages returns a snapshot of the sent messages.
func (f *FakeClient) SentMessages() []SentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]SentMessage, len(f.Sent))
	copy(out, f.Sent)
	return out
}

func (f *FakeClient) record(format string, args ...any) {
	f.trace = append(f.trace, fmt.Sprintf(format, args...))
}

func (f *FakeClient) ListRoles(ctx context.Context, userID UserID) ([]RoleHandle, error) {
	f.mu.Lock()
	f.record("ListRoles %s", userID)
	fn := f.ListRolesFn
	_, ok := f.members[userID]
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, userID)
	}
	if !ok {
		return nil, ErrMemberNotFound
	}
	return f.RolesOf(userID), nil
}

func (f *FakeClient) AddRole(ctx context.Context, userID UserID, role RoleHandle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("AddRole %s %s", userID, role)
	if f.AddRoleFn != nil {
		return f.AddRoleFn(ctx, userID, role)
	}
	roles, ok := f.members[userID]
	if !ok {
		return ErrMemberNotFound
	}
	roles[role] = struct{}{}
	return nil
}

func (f *FakeClient) RemoveRole(ctx context.Context, userID UserID, role RoleHandle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("RemoveRole %s %s", userID, role)
	if f.RemoveRoleFn != nil {
		return f.RemoveRoleFn(ctx, userID, role)
	}
	roles, ok := f.members[userID]
	if !ok {
		return ErrMemberNotFound
	}
	if _, held := roles[role]; !held {
		return ErrRoleNotHeld
	}
	delete(roles, role)
	return nil
}

func (f *FakeClient) SendMessage(ctx context.Context, channelID ChannelID, msg OutgoingMessage) (MessageID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("SendMessage %s", channelID)
	if f.SendMessageFn != nil {
		return f.SendMessageFn(ctx, channelID, msg)
	}
	f.nextID++
	id := MessageID(fmt.Sprintf("msg-%d", f.nextID))
	f.Sent = append(f.Sent, SentMessage{ChannelID: channelID, MessageID: id, Message: msg})
	return id, nil
}

func (f *FakeClient) UpdateMessage(ctx context.Context, channelID ChannelID, messageID MessageID, msg OutgoingMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("UpdateMessage %s %s", channelID, messageID)
	if f.UpdateFn != nil {
		return f.UpdateFn(ctx, channelID, messageID, msg)
	}
	f.Updated = append(f.Updated, SentMessage{ChannelID: channelID, MessageID: messageID, Message: msg})
	return nil
}

func (f *FakeClient) SendDirectMessage(ctx context.Context, userID UserID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("SendDirectMessage %s", userID)
	if f.SendDMFn != nil {
		return f.SendDMFn(ctx, userID, text)
	}
	f.DMs = append(f.DMs, DirectMessage{UserID: userID, Text: text})
	return nil
}

func (f *FakeClient) Respond(ctx context.Context, ref InteractionRef, resp InteractionResponse) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Respond %s", ref.ID)
	if f.RespondFn != nil {
		return f.RespondFn(ctx, ref, resp)
	}
	f.Responses = append(f.Responses, resp)
	return nil
}

func (f *FakeClient) OpenModal(ctx context.Context, ref InteractionRef, modal Modal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("OpenModal %s", ref.ID)
	if f.OpenModalFn != nil {
		return f.OpenModalFn(ctx, ref, modal)
	}
	f.Modals = append(f.Modals, modal)
	return nil
}

var _ Client = (*FakeClient)(nil)
