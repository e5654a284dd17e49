package prompt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

// fakeSources implements every collaborator interface in memory.
type fakeSources struct {
	role    string
	roleErr error
	task    string
	taskErr error

	methodologies []ClientMethodology

	docs           []ReferenceDocument
	docAttachments map[string][]Attachment

	document *ClientDocument
	sections []DocumentSection
	gap      string

	sessions     []ExerciseSession
	sessionsErr  error
	exercises    map[string]*Exercise
	steps        map[string][]ExerciseStep
	exerciseAtts map[string][]Attachment

	threadMsgs []Turn
	clientMsgs []Turn

	fileText map[string]string
	fileErr  map[string]error
}

func (f *fakeSources) RolePrompt(ctx context.Context, clientID string) (string, error) {
	return f.role, f.roleErr
}

func (f *fakeSources) TaskPrompt(ctx context.Context, clientID string) (string, error) {
	return f.task, f.taskErr
}

func (f *fakeSources) ClientMethodologies(ctx context.Context, clientID string) ([]ClientMethodology, error) {
	return f.methodologies, nil
}

func (f *fakeSources) ReferenceDocuments(ctx context.Context) ([]ReferenceDocument, error) {
	return f.docs, nil
}

func (f *fakeSources) DocumentAttachments(ctx context.Context, docID string) ([]Attachment, error) {
	return f.docAttachments[docID], nil
}

func (f *fakeSources) ClientDocument(ctx context.Context, clientID string) (*ClientDocument, error) {
	return f.document, nil
}

func (f *fakeSources) DocumentSections(ctx context.Context, documentID string) ([]DocumentSection, error) {
	return f.sections, nil
}

func (f *fakeSources) SectionGap(ctx context.Context, sections []DocumentSection) (string, error) {
	return f.gap, nil
}

func (f *fakeSources) ClientSessions(ctx context.Context, clientID string) ([]ExerciseSession, error) {
	return f.sessions, f.sessionsErr
}

func (f *fakeSources) Exercise(ctx context.Context, id string) (*Exercise, error) {
	return f.exercises[id], nil
}

func (f *fakeSources) ExerciseSteps(ctx context.Context, exerciseID string) ([]ExerciseStep, error) {
	return f.steps[exerciseID], nil
}

func (f *fakeSources) ExerciseAttachments(ctx context.Context, exerciseID string) ([]Attachment, error) {
	return f.exerciseAtts[exerciseID], nil
}

func (f *fakeSources) ThreadMessages(ctx context.Context, threadID string) ([]Turn, error) {
	return f.threadMsgs, nil
}

func (f *fakeSources) ClientMessages(ctx context.Context, clientID string) ([]Turn, error) {
	return f.clientMsgs, nil
}

func (f *fakeSources) Parse(ctx context.Context, objectPath, mimeType, originalName string) (string, error) {
	if err, ok := f.fileErr[objectPath]; ok {
		return "", err
	}
	return f.fileText[objectPath], nil
}

func newTestAssembler(f *fakeSources) *Assembler {
	return NewAssembler(Sources{
		Prompts:       f,
		Methodologies: f,
		Library:       f,
		Documents:     f,
		Gaps:          f,
		Exercises:     f,
		Messages:      f,
		Files:         f,
	}, zerolog.Nop())
}

func baseFakes() *fakeSources {
	return &fakeSources{
		role: "You are a grounded coaching companion.",
		task: "Reflect first, then ask one question.",
		methodologies: []ClientMethodology{
			{Name: "Inner Game", Content: "Performance equals potential minus interference.", IsActive: true},
			{Name: "Retired Framework", Content: "No longer used.", IsActive: false},
		},
		document: &ClientDocument{ID: "doc-1", ClientID: "client-1"},
		sections: []DocumentSection{
			{ID: "s1", Title: "Goals", Content: "Wants to lead with less friction.", UpdatedAt: 1700000000},
		},
		threadMsgs: []Turn{
			{Speaker: SpeakerClient, Content: "I had a rough week.", Ordinal: 1},
			{Speaker: SpeakerAssistant, Content: "What made it rough?", Ordinal: 2},
			{Speaker: SpeakerCoach, Content: "Adding some context: big deadline landed.", Ordinal: 3},
		},
	}
}

func turnInput() TurnInput {
	return TurnInput{
		ClientID: "client-1",
		ThreadID: "thread-1",
		Message:  "Can we talk about the deadline?",
		Speaker:  SpeakerClient,
	}
}

func TestAssembleTurn_Basic(t *testing.T) {
	a := newTestAssembler(baseFakes())

	got, err := a.AssembleTurn(context.Background(), turnInput())
	if err != nil {
		t.Fatalf("AssembleTurn() error = %v", err)
	}

	for _, heading := range []string{"## Persona", "## Coaching Framework", "## Client Context", "## Response Instructions", "## Conversation Protocol"} {
		if !strings.Contains(got.SystemPrompt, heading) {
			t.Errorf("system prompt missing %q:\n%s", heading, got.SystemPrompt)
		}
	}
	if strings.Contains(got.SystemPrompt, "Retired Framework") {
		t.Error("inactive methodology should be excluded")
	}

	// The incoming message rides last, labeled, untruncated.
	last := got.History[len(got.History)-1]
	if last.Content != "Client: Can we talk about the deadline?" {
		t.Errorf("incoming message = %q", last.Content)
	}
	if got.EstimatedTokens <= 0 {
		t.Error("estimated tokens should be positive")
	}
}

func TestAssembleTurn_Deterministic(t *testing.T) {
	a := newTestAssembler(baseFakes())

	first, err := a.AssembleTurn(context.Background(), turnInput())
	if err != nil {
		t.Fatalf("AssembleTurn() error = %v", err)
	}
	second, err := a.AssembleTurn(context.Background(), turnInput())
	if err != nil {
		t.Fatalf("AssembleTurn() error = %v", err)
	}

	if first.SystemPrompt != second.SystemPrompt || first.EstimatedTokens != second.EstimatedTokens {
		t.Error("identical inputs must produce identical output")
	}
}

func TestAssembleTurn_ExerciseReplacesInstructions(t *testing.T) {
	f := baseFakes()
	f.sessions = []ExerciseSession{
		{ID: "sess-1", ThreadID: "thread-1", ExerciseID: "ex-1", Status: SessionInProgress, CurrentStepID: "step-2"},
	}
	f.exercises = map[string]*Exercise{
		"ex-1": {ID: "ex-1", Title: "Values Inventory", Description: "Surface core values.", OverrideInstructions: "Walk the client through one step at a time."},
	}
	f.steps = map[string][]ExerciseStep{
		"ex-1": {
			{ID: "step-1", Title: "List", Prompt: "List ten values.", Order: 1},
			{ID: "step-2", Title: "Rank", Prompt: "Rank your top five.", Order: 2},
		},
	}

	got, err := newTestAssembler(f).AssembleTurn(context.Background(), turnInput())
	if err != nil {
		t.Fatalf("AssembleTurn() error = %v", err)
	}

	if !strings.Contains(got.SystemPrompt, "## Active Guided Exercise") {
		t.Error("exercise block missing")
	}
	if !strings.Contains(got.SystemPrompt, "Values Inventory (step 2 of 2)") {
		t.Errorf("exercise step info missing:\n%s", got.SystemPrompt)
	}
	if strings.Contains(got.SystemPrompt, "## Response Instructions") {
		t.Error("exercise override must replace the default response instructions")
	}
}

func TestAssembleTurn_EmptySectionsOmitClientContext(t *testing.T) {
	f := baseFakes()
	f.sections = nil

	got, err := newTestAssembler(f).AssembleTurn(context.Background(), turnInput())
	if err != nil {
		t.Fatalf("AssembleTurn() error = %v", err)
	}
	if strings.Contains(got.SystemPrompt, "## Client Context") {
		t.Error("empty document sections must not produce a Client Context heading")
	}
}

func TestAssembleTurn_NoDocumentAtAll(t *testing.T) {
	f := baseFakes()
	f.document = nil

	got, err := newTestAssembler(f).AssembleTurn(context.Background(), turnInput())
	if err != nil {
		t.Fatalf("AssembleTurn() error = %v", err)
	}
	if strings.Contains(got.SystemPrompt, "## Client Context") {
		t.Error("a client without a living document gets no Client Context section")
	}
}

func TestAssembleTurn_BudgetCeiling(t *testing.T) {
	f := baseFakes()
	f.role = strings.Repeat("persona ", 20000)
	f.task = strings.Repeat("instructions ", 20000)
	f.methodologies = []ClientMethodology{
		{Name: "Big", Content: strings.Repeat("framework ", 30000), IsActive: true},
	}
	f.docs = []ReferenceDocument{
		{ID: "ref-1", Title: "Worldview", Content: strings.Repeat("reference ", 40000)},
	}
	f.sections = []DocumentSection{
		{ID: "s1", Title: "Everything", Content: strings.Repeat("memory ", 40000)},
	}
	f.gap = strings.Repeat("gap hint ", 5000)
	f.threadMsgs = nil
	for i := 0; i < 1000; i++ {
		f.threadMsgs = append(f.threadMsgs, Turn{
			Speaker: SpeakerClient,
			Content: strings.Repeat("chatter ", 250),
			Ordinal: int64(i + 1),
		})
	}

	got, err := newTestAssembler(f).AssembleTurn(context.Background(), turnInput())
	if err != nil {
		t.Fatalf("AssembleTurn() error = %v", err)
	}
	if got.EstimatedTokens > aggregateBudgetTokens {
		t.Errorf("assembly used %d estimated tokens, ceiling is %d",
			got.EstimatedTokens, aggregateBudgetTokens)
	}
}

func TestAssembleTurn_LibraryAttachmentFailureIsolated(t *testing.T) {
	f := baseFakes()
	f.docs = []ReferenceDocument{{ID: "ref-1", Title: "Worldview", Content: "Core reading."}}
	f.docAttachments = map[string][]Attachment{
		"ref-1": {
			{ObjectPath: "good.md", MimeType: "text/markdown", OriginalName: "good.md"},
			{ObjectPath: "bad.bin", MimeType: "text/plain", OriginalName: "bad.bin"},
		},
	}
	f.fileText = map[string]string{"good.md": "Readable attachment body."}
	f.fileErr = map[string]error{"bad.bin": errors.New("corrupt upload")}

	got, err := newTestAssembler(f).AssembleTurn(context.Background(), turnInput())
	if err != nil {
		t.Fatalf("one bad attachment must not fail assembly, got error: %v", err)
	}
	if !strings.Contains(got.SystemPrompt, "Readable attachment body.") {
		t.Error("readable attachment missing from prompt")
	}
	if !strings.Contains(got.SystemPrompt, `[file "bad.bin" could not be read]`) {
		t.Errorf("placeholder for unreadable file missing:\n%s", got.SystemPrompt)
	}
}

func TestAssembleTurn_RolePromptErrorPropagates(t *testing.T) {
	f := baseFakes()
	f.roleErr = fmt.Errorf("connection refused")

	if _, err := newTestAssembler(f).AssembleTurn(context.Background(), turnInput()); err == nil {
		t.Fatal("role prompt failure must abort the assembly")
	}
}

func TestAssembleTurn_PersistedMessageNotAppended(t *testing.T) {
	f := baseFakes()
	in := turnInput()
	in.Persisted = true
	in.Message = "already stored"

	got, err := newTestAssembler(f).AssembleTurn(context.Background(), in)
	if err != nil {
		t.Fatalf("AssembleTurn() error = %v", err)
	}
	for _, turn := range got.History {
		if strings.Contains(turn.Content, "already stored") {
			t.Error("persisted incoming message must not be appended again")
		}
	}
}

func TestAssembleTurn_GapHintIncluded(t *testing.T) {
	f := baseFakes()
	f.gap = "Sections Goals has not been updated recently."

	got, err := newTestAssembler(f).AssembleTurn(context.Background(), turnInput())
	if err != nil {
		t.Fatalf("AssembleTurn() error = %v", err)
	}
	if !strings.Contains(got.SystemPrompt, "## Context Gaps") {
		t.Error("gap hint section missing")
	}
}

func TestAssembleConsultation(t *testing.T) {
	f := baseFakes()
	f.clientMsgs = []Turn{
		{Speaker: SpeakerClient, Content: "I keep putting off the hard conversation.", Ordinal: 1},
		{Speaker: SpeakerAssistant, Content: "What makes it hard to start?", Ordinal: 2},
	}

	got, err := newTestAssembler(f).AssembleConsultation(context.Background(), "client-1")
	if err != nil {
		t.Fatalf("AssembleConsultation() error = %v", err)
	}

	if !strings.Contains(got, "## Consultation Briefing") {
		t.Error("consultation framing missing")
	}
	if !strings.Contains(got, "## Client Context") {
		t.Error("client memory missing from consultation")
	}
	if !strings.Contains(got, "Client: I keep putting off the hard conversation.") {
		t.Errorf("recent transcript missing:\n%s", got)
	}
	if strings.Contains(got, "## Persona") {
		t.Error("consultation mode should not carry the client-facing persona")
	}
}

func TestAssembleOpening(t *testing.T) {
	got, err := newTestAssembler(baseFakes()).AssembleOpening(context.Background(), "client-1")
	if err != nil {
		t.Fatalf("AssembleOpening() error = %v", err)
	}

	for _, heading := range []string{"## Persona", "## Coaching Framework", "## Client Context", "## Response Instructions", "## Opening Message"} {
		if !strings.Contains(got, heading) {
			t.Errorf("opening prompt missing %q", heading)
		}
	}
	if strings.Contains(got, "## Conversation Protocol") {
		t.Error("opening prompt has no conversation yet, protocol note does not apply")
	}
}
