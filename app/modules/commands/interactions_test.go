package commandhandlers

import (
	"context"
	"testing"

	activityevents "github.com/Black-And-White-Club/activity-bot/app/events/activity"
	applicationservice "github.com/Black-And-White-Club/activity-bot/app/modules/applications/application"
	"github.com/Black-And-White-Club/activity-bot/app/shared/platform"
	"github.com/Black-And-White-Club/activity-bot/internal/results"
	"github.com/google/go-cmp/cmp"
)

func TestHandleInteraction_ApplyButtonOpensForm(t *testing.T) {
	apps := &fakeApplications{}
	h := newTestHandlers(&fakeActivity{}, apps, platform.NewFakeClient(), Config{})

	out, err := h.HandleInteraction(context.Background(), &activityevents.InteractionPayloadV1{
		Ref:      platform.InteractionRef{ID: "i1"},
		Kind:     activityevents.InteractionComponent,
		UserID:   "u1",
		CustomID: applicationservice.ApplyButtonID,
	})
	if err != nil || out != nil {
		t.Fatalf("unexpected result %v, %v", out, err)
	}
	if len(apps.opened) != 1 || apps.opened[0].ID != "i1" {
		t.Errorf("expected form to open, got %+v", apps.opened)
	}
}

func TestHandleInteraction_ModalSubmits(t *testing.T) {
	apps := &fakeApplications{}
	h := newTestHandlers(&fakeActivity{}, apps, platform.NewFakeClient(), Config{})

	_, err := h.HandleInteraction(context.Background(), &activityevents.InteractionPayloadV1{
		Kind:     activityevents.InteractionModal,
		UserID:   "u1",
		UserName: "alice",
		CustomID: applicationservice.ApplicationModalID,
		Fields:   map[string]string{"q1": "yes"},
	})
	if err != nil {
		t.Fatalf("HandleInteraction: %v", err)
	}
	want := []applicationservice.Submission{{UserID: "u1", UserName: "alice", Answers: map[string]string{"q1": "yes"}}}
	if diff := cmp.Diff(want, apps.submitted); diff != "" {
		t.Errorf("submission mismatch (-want +got):\n%s", diff)
	}
}

func TestHandleInteraction_DecisionPublishesResolution(t *testing.T) {
	apps := &fakeApplications{}
	h := newTestHandlers(&fakeActivity{}, apps, platform.NewFakeClient(), Config{})

	out, err := h.HandleInteraction(context.Background(), &activityevents.InteractionPayloadV1{
		Kind:      activityevents.InteractionComponent,
		UserID:    "mod",
		UserName:  "bob",
		IsAdmin:   true,
		CustomID:  "accept-application-u1",
		MessageID: "m1",
	})
	if err != nil {
		t.Fatalf("HandleInteraction: %v", err)
	}
	if len(out) != 1 || out[0].Topic != activityevents.ApplicationResolvedV1 {
		t.Fatalf("expected resolution event, got %+v", out)
	}
	want := &activityevents.ApplicationResolvedPayloadV1{ApplicantID: "u1", ReviewerID: "mod", Accepted: true}
	if diff := cmp.Diff(want, out[0].Payload); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}
	if len(apps.decisions) != 1 || apps.decisions[0].ReviewerName != "bob" || apps.decisions[0].MessageID != "m1" {
		t.Errorf("unexpected decision %+v", apps.decisions)
	}
}

func TestHandleInteraction_AlreadyResolvedPublishesNothing(t *testing.T) {
	apps := &fakeApplications{
		ResolveFn: func(context.Context, applicationservice.Decision) (results.OperationResult[applicationservice.Resolution, applicationservice.Failure], error) {
			return results.FailureResult[applicationservice.Resolution](applicationservice.Failure{Code: applicationservice.FailureAlreadyResolved}), nil
		},
	}
	h := newTestHandlers(&fakeActivity{}, apps, platform.NewFakeClient(), Config{})

	out, err := h.HandleInteraction(context.Background(), &activityevents.InteractionPayloadV1{
		Kind:     activityevents.InteractionComponent,
		IsAdmin:  true,
		CustomID: "decline-application-u1",
	})
	if err != nil || len(out) != 0 {
		t.Fatalf("expected nothing published, got %v, %v", out, err)
	}
}

func TestHandleInteraction_DecisionRequiresAdmin(t *testing.T) {
	apps := &fakeApplications{}
	client := platform.NewFakeClient()
	h := newTestHandlers(&fakeActivity{}, apps, client, Config{})

	out, err := h.HandleInteraction(context.Background(), &activityevents.InteractionPayloadV1{
		Kind:     activityevents.InteractionComponent,
		CustomID: "accept-application-u1",
	})
	if err != nil || len(out) != 0 {
		t.Fatalf("unexpected result %v, %v", out, err)
	}
	if len(apps.decisions) != 0 {
		t.Errorf("non-admin decision was applied")
	}
	if len(client.Responses) != 1 || client.Responses[0].Content != replyNoPermission {
		t.Errorf("expected permission notice, got %+v", client.Responses)
	}
}
