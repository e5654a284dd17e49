package prompt

import (
	"context"
)

// Speaker identifies who authored a conversation turn
type Speaker string

const (
	SpeakerClient    Speaker = "client"
	SpeakerCoach     Speaker = "coach"
	SpeakerAssistant Speaker = "assistant"
)

// Turn is a single recorded conversation message. Turns are immutable
// once recorded; the assembler only reads windowed views of them.
type Turn struct {
	Speaker Speaker `json:"speaker"`
	Content string  `json:"content"`
	Ordinal int64   `json:"ordinal"` // monotonic per thread, assigned at write time
}

// AssembledPrompt is the result of a turn assembly: the system prompt,
// the windowed history, and the estimated total token cost of both.
type AssembledPrompt struct {
	SystemPrompt    string
	History         []Turn
	EstimatedTokens int
}

// ClientMethodology is a coaching framework assigned to a client.
type ClientMethodology struct {
	Name     string `json:"name"`
	Content  string `json:"content"`
	IsActive bool   `json:"is_active"`
}

// ReferenceDocument is a worldview/reference-library entry shared across clients.
type ReferenceDocument struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Attachment points at an uploaded file in object storage.
type Attachment struct {
	ObjectPath   string `json:"object_path"`
	MimeType     string `json:"mime_type"`
	OriginalName string `json:"original_name"`
}

// ClientDocument is the client's living document (durable memory).
type ClientDocument struct {
	ID       string `json:"id"`
	ClientID string `json:"client_id"`
}

// DocumentSection is one section of a client's living document.
type DocumentSection struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	UpdatedAt int64  `json:"updated_at"` // unix seconds
}

// Session status values for guided exercises.
const (
	SessionInProgress = "in_progress"
	SessionCompleted  = "completed"
	SessionAbandoned  = "abandoned"
)

// ExerciseSession tracks a client working through a guided exercise in a thread.
type ExerciseSession struct {
	ID            string `json:"id"`
	ThreadID      string `json:"thread_id"`
	ExerciseID    string `json:"exercise_id"`
	Status        string `json:"status"`
	CurrentStepID string `json:"current_step_id"`
}

// Exercise is a structured, step-based guided activity.
type Exercise struct {
	ID                   string `json:"id"`
	Title                string `json:"title"`
	Description          string `json:"description"`
	OverrideInstructions string `json:"override_instructions"`
}

// ExerciseStep is one step of a guided exercise.
type ExerciseStep struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Prompt   string `json:"prompt"`
	Guidance string `json:"guidance"`
	Order    int    `json:"order"`
}

// ExerciseContext is the resolved override state for an active exercise.
// When present it replaces the default response instructions section.
type ExerciseContext struct {
	ExerciseID           string
	Title                string
	Description          string
	OverrideInstructions string
	StepTitle            string
	StepPrompt           string
	StepGuidance         string
	StepOrder            int
	TotalSteps           int
	Attachments          []string // parsed file text, or an unreadable-file placeholder
}

// PromptSource provides the client's core persona and task prompts.
// A failure here aborts the whole assembly.
type PromptSource interface {
	RolePrompt(ctx context.Context, clientID string) (string, error)
	TaskPrompt(ctx context.Context, clientID string) (string, error)
}

// MethodologySource provides coaching frameworks assigned to a client.
type MethodologySource interface {
	ClientMethodologies(ctx context.Context, clientID string) ([]ClientMethodology, error)
}

// LibrarySource provides the shared reference library and its attachments.
type LibrarySource interface {
	ReferenceDocuments(ctx context.Context) ([]ReferenceDocument, error)
	DocumentAttachments(ctx context.Context, docID string) ([]Attachment, error)
}

// DocumentSource provides the client's living document.
type DocumentSource interface {
	ClientDocument(ctx context.Context, clientID string) (*ClientDocument, error)
	DocumentSections(ctx context.Context, documentID string) ([]DocumentSection, error)
}

// GapAnalyzer inspects living-document sections for staleness and
// returns a supplementary hint, or "" when there is nothing to flag.
type GapAnalyzer interface {
	SectionGap(ctx context.Context, sections []DocumentSection) (string, error)
}

// ExerciseSource provides guided-exercise state.
type ExerciseSource interface {
	ClientSessions(ctx context.Context, clientID string) ([]ExerciseSession, error)
	Exercise(ctx context.Context, id string) (*Exercise, error)
	ExerciseSteps(ctx context.Context, exerciseID string) ([]ExerciseStep, error)
	ExerciseAttachments(ctx context.Context, exerciseID string) ([]Attachment, error)
}

// MessageSource provides recorded conversation turns, oldest first.
type MessageSource interface {
	ThreadMessages(ctx context.Context, threadID string) ([]Turn, error)
	ClientMessages(ctx context.Context, clientID string) ([]Turn, error)
}

// FileParser extracts text from an uploaded file. May fail per file;
// callers isolate those failures with a placeholder.
type FileParser interface {
	Parse(ctx context.Context, objectPath, mimeType, originalName string) (string, error)
}
