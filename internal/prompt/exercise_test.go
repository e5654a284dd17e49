package prompt

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func exerciseFakes() *fakeSources {
	return &fakeSources{
		sessions: []ExerciseSession{
			{ID: "sess-1", ThreadID: "thread-1", ExerciseID: "ex-1", Status: SessionInProgress, CurrentStepID: "step-1"},
		},
		exercises: map[string]*Exercise{
			"ex-1": {ID: "ex-1", Title: "Wheel of Life", Description: "Map satisfaction across areas.", OverrideInstructions: "Keep the client on the current step."},
		},
		steps: map[string][]ExerciseStep{
			"ex-1": {
				{ID: "step-1", Title: "Score", Prompt: "Score each area 1 to 10.", Guidance: "Gut feel, not analysis.", Order: 1},
				{ID: "step-2", Title: "Reflect", Prompt: "Pick the lowest area.", Order: 2},
			},
		},
	}
}

func newTestResolver(f *fakeSources) *exerciseResolver {
	return &exerciseResolver{exercises: f, parser: f, logger: zerolog.Nop()}
}

func TestResolve_ActiveSession(t *testing.T) {
	r := newTestResolver(exerciseFakes())

	got, err := r.resolve(context.Background(), "client-1", "thread-1")
	if err != nil {
		t.Fatalf("resolve() error = %v", err)
	}
	if got == nil {
		t.Fatal("expected an active exercise context")
	}
	if got.Title != "Wheel of Life" || got.StepOrder != 1 || got.TotalSteps != 2 {
		t.Errorf("resolve() = %+v", got)
	}
	if got.StepGuidance != "Gut feel, not analysis." {
		t.Errorf("StepGuidance = %q", got.StepGuidance)
	}
}

func TestResolve_NoActiveExercise(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*fakeSources)
	}{
		{
			name:   "no sessions at all",
			mutate: func(f *fakeSources) { f.sessions = nil },
		},
		{
			name: "session on a different thread",
			mutate: func(f *fakeSources) {
				f.sessions[0].ThreadID = "other-thread"
			},
		},
		{
			name: "session completed",
			mutate: func(f *fakeSources) {
				f.sessions[0].Status = SessionCompleted
			},
		},
		{
			name: "session abandoned",
			mutate: func(f *fakeSources) {
				f.sessions[0].Status = SessionAbandoned
			},
		},
		{
			name: "session without a current step",
			mutate: func(f *fakeSources) {
				f.sessions[0].CurrentStepID = ""
			},
		},
		{
			name: "current step no longer exists",
			mutate: func(f *fakeSources) {
				f.sessions[0].CurrentStepID = "deleted-step"
			},
		},
		{
			name: "exercise definition gone",
			mutate: func(f *fakeSources) {
				delete(f.exercises, "ex-1")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := exerciseFakes()
			tt.mutate(f)
			got, err := newTestResolver(f).resolve(context.Background(), "client-1", "thread-1")
			if err != nil {
				t.Fatalf("resolve() error = %v, want nil", err)
			}
			if got != nil {
				t.Errorf("resolve() = %+v, want nil", got)
			}
		})
	}
}

func TestResolve_StorageErrorPropagates(t *testing.T) {
	f := exerciseFakes()
	f.sessionsErr = errors.New("redis down")

	if _, err := newTestResolver(f).resolve(context.Background(), "client-1", "thread-1"); err == nil {
		t.Fatal("storage failure must propagate, not resolve to nil")
	}
}

func TestResolve_AttachmentFailureBecomesPlaceholder(t *testing.T) {
	f := exerciseFakes()
	f.exerciseAtts = map[string][]Attachment{
		"ex-1": {
			{ObjectPath: "wheel.md", MimeType: "text/markdown", OriginalName: "wheel.md"},
			{ObjectPath: "broken.txt", MimeType: "text/plain", OriginalName: "broken.txt"},
		},
	}
	f.fileText = map[string]string{"wheel.md": "The wheel template."}
	f.fileErr = map[string]error{"broken.txt": errors.New("corrupt upload")}

	got, err := newTestResolver(f).resolve(context.Background(), "client-1", "thread-1")
	if err != nil {
		t.Fatalf("resolve() error = %v", err)
	}
	if len(got.Attachments) != 2 {
		t.Fatalf("got %d attachments, want 2", len(got.Attachments))
	}
	if got.Attachments[0] != "The wheel template." {
		t.Errorf("readable attachment = %q", got.Attachments[0])
	}
	if got.Attachments[1] != `[file "broken.txt" could not be read]` {
		t.Errorf("placeholder = %q", got.Attachments[1])
	}
}

func TestExerciseContextRender(t *testing.T) {
	ec := &ExerciseContext{
		Title:                "Wheel of Life",
		Description:          "Map satisfaction across areas.",
		OverrideInstructions: "Keep the client on the current step.",
		StepTitle:            "Score",
		StepPrompt:           "Score each area 1 to 10.",
		StepGuidance:         "Gut feel, not analysis.",
		StepOrder:            1,
		TotalSteps:           2,
		Attachments:          []string{"The wheel template."},
	}

	got := ec.render()
	for _, want := range []string{
		"Exercise: Wheel of Life (step 1 of 2)",
		"Keep the client on the current step.",
		"Current step: Score",
		"Score each area 1 to 10.",
		"Guidance for this step: Gut feel, not analysis.",
		"Step materials:",
		"The wheel template.",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("render() missing %q:\n%s", want, got)
		}
	}
}

func TestExerciseContextRender_MinimalFields(t *testing.T) {
	ec := &ExerciseContext{Title: "Bare", StepTitle: "Only", StepPrompt: "Do it.", StepOrder: 1, TotalSteps: 1}
	got := ec.render()
	if strings.Contains(got, "Guidance for this step") || strings.Contains(got, "Step materials:") {
		t.Errorf("optional blocks should be omitted when empty:\n%s", got)
	}
}
