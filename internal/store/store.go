package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/stillpoint-hq/stillpoint/internal/prompt"
)

// Default prompts seeded on first read for a client that has none yet.
const (
	defaultRolePrompt = `You are a thoughtful, grounded coaching companion. You listen closely, reflect what you hear, and ask one good question at a time. You never diagnose, you never lecture, and you keep the client's own words at the center of the conversation.`

	defaultTaskPrompt = `Respond in a warm, conversational tone. Keep responses focused: reflect, then ask at most one question. When the client's coach has set a framework, lean on its language. If the client seems to be in crisis, encourage them to contact their coach or a professional directly.`
)

// Store is the redis-backed implementation of the prompt assembler's
// collaborator interfaces, plus the writers the console and seeding
// use. Rows are JSON-encoded into lists; scalar values live in plain
// keys under the configured prefix.
type Store struct {
	client      *Client
	maxMessages int64
}

// NewStore creates a store over an established redis client.
// maxMessages bounds the retained history per thread and per client.
func NewStore(client *Client, maxMessages int) *Store {
	return &Store{
		client:      client,
		maxMessages: int64(maxMessages),
	}
}

// RolePrompt returns the client's persona prompt, creating it from the
// default on first access.
func (s *Store) RolePrompt(ctx context.Context, clientID string) (string, error) {
	return s.getOrCreate(ctx, s.client.Keys().RolePrompt(clientID), defaultRolePrompt)
}

// TaskPrompt returns the client's response instructions, creating them
// from the default on first access.
func (s *Store) TaskPrompt(ctx context.Context, clientID string) (string, error) {
	return s.getOrCreate(ctx, s.client.Keys().TaskPrompt(clientID), defaultTaskPrompt)
}

// SetRolePrompt replaces the client's persona prompt.
func (s *Store) SetRolePrompt(ctx context.Context, clientID, content string) error {
	if err := s.client.Redis().Set(ctx, s.client.Keys().RolePrompt(clientID), content, 0).Err(); err != nil {
		return fmt.Errorf("failed to set role prompt: %w", err)
	}
	return nil
}

// SetTaskPrompt replaces the client's response instructions.
func (s *Store) SetTaskPrompt(ctx context.Context, clientID, content string) error {
	if err := s.client.Redis().Set(ctx, s.client.Keys().TaskPrompt(clientID), content, 0).Err(); err != nil {
		return fmt.Errorf("failed to set task prompt: %w", err)
	}
	return nil
}

func (s *Store) getOrCreate(ctx context.Context, key, fallback string) (string, error) {
	val, err := s.client.Redis().Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		if err := s.client.Redis().Set(ctx, key, fallback, 0).Err(); err != nil {
			return "", fmt.Errorf("failed to seed %s: %w", key, err)
		}
		return fallback, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get %s: %w", key, err)
	}
	return val, nil
}

// ClientMethodologies returns the coaching frameworks assigned to a client.
func (s *Store) ClientMethodologies(ctx context.Context, clientID string) ([]prompt.ClientMethodology, error) {
	return listRows[prompt.ClientMethodology](ctx, s, s.client.Keys().Methodologies(clientID))
}

// AddMethodology assigns a coaching framework to a client.
func (s *Store) AddMethodology(ctx context.Context, clientID string, m prompt.ClientMethodology) error {
	return s.pushRow(ctx, s.client.Keys().Methodologies(clientID), m)
}

// ReferenceDocuments returns the shared reference library.
func (s *Store) ReferenceDocuments(ctx context.Context) ([]prompt.ReferenceDocument, error) {
	return listRows[prompt.ReferenceDocument](ctx, s, s.client.Keys().ReferenceDocuments())
}

// AddReferenceDocument adds a document to the shared library and
// returns its assigned ID.
func (s *Store) AddReferenceDocument(ctx context.Context, doc prompt.ReferenceDocument) (string, error) {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if err := s.pushRow(ctx, s.client.Keys().ReferenceDocuments(), doc); err != nil {
		return "", err
	}
	return doc.ID, nil
}

// DocumentAttachments returns the attachments of a reference document.
func (s *Store) DocumentAttachments(ctx context.Context, docID string) ([]prompt.Attachment, error) {
	return listRows[prompt.Attachment](ctx, s, s.client.Keys().DocumentAttachments(docID))
}

// AddDocumentAttachment links an uploaded file to a reference document.
func (s *Store) AddDocumentAttachment(ctx context.Context, docID string, att prompt.Attachment) error {
	return s.pushRow(ctx, s.client.Keys().DocumentAttachments(docID), att)
}

// ClientDocument returns the client's living document, or nil when the
// client has none yet.
func (s *Store) ClientDocument(ctx context.Context, clientID string) (*prompt.ClientDocument, error) {
	id, err := s.client.Redis().Get(ctx, s.client.Keys().ClientDocument(clientID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get client document: %w", err)
	}
	return &prompt.ClientDocument{ID: id, ClientID: clientID}, nil
}

// EnsureClientDocument returns the client's living document, creating
// an empty one if needed.
func (s *Store) EnsureClientDocument(ctx context.Context, clientID string) (*prompt.ClientDocument, error) {
	doc, err := s.ClientDocument(ctx, clientID)
	if err != nil || doc != nil {
		return doc, err
	}
	id := uuid.NewString()
	if err := s.client.Redis().Set(ctx, s.client.Keys().ClientDocument(clientID), id, 0).Err(); err != nil {
		return nil, fmt.Errorf("failed to create client document: %w", err)
	}
	return &prompt.ClientDocument{ID: id, ClientID: clientID}, nil
}

// DocumentSections returns the sections of a living document.
func (s *Store) DocumentSections(ctx context.Context, documentID string) ([]prompt.DocumentSection, error) {
	return listRows[prompt.DocumentSection](ctx, s, s.client.Keys().DocumentSections(documentID))
}

// AddDocumentSection appends a section to a living document.
func (s *Store) AddDocumentSection(ctx context.Context, documentID string, sec prompt.DocumentSection) error {
	if sec.ID == "" {
		sec.ID = uuid.NewString()
	}
	if sec.UpdatedAt == 0 {
		sec.UpdatedAt = time.Now().Unix()
	}
	return s.pushRow(ctx, s.client.Keys().DocumentSections(documentID), sec)
}

// ClientSessions returns a client's guided-exercise sessions.
func (s *Store) ClientSessions(ctx context.Context, clientID string) ([]prompt.ExerciseSession, error) {
	return listRows[prompt.ExerciseSession](ctx, s, s.client.Keys().ExerciseSessions(clientID))
}

// StartSession records an in-progress exercise session for a client+thread.
func (s *Store) StartSession(ctx context.Context, clientID string, session prompt.ExerciseSession) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.Status == "" {
		session.Status = prompt.SessionInProgress
	}
	return s.pushRow(ctx, s.client.Keys().ExerciseSessions(clientID), session)
}

// Exercise returns a guided exercise definition, or nil when unknown.
func (s *Store) Exercise(ctx context.Context, id string) (*prompt.Exercise, error) {
	data, err := s.client.Redis().Get(ctx, s.client.Keys().Exercise(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get exercise: %w", err)
	}
	var ex prompt.Exercise
	if err := json.Unmarshal([]byte(data), &ex); err != nil {
		return nil, fmt.Errorf("failed to decode exercise: %w", err)
	}
	return &ex, nil
}

// ExerciseSteps returns the steps of a guided exercise.
func (s *Store) ExerciseSteps(ctx context.Context, exerciseID string) ([]prompt.ExerciseStep, error) {
	return listRows[prompt.ExerciseStep](ctx, s, s.client.Keys().ExerciseSteps(exerciseID))
}

// ExerciseAttachments returns the attachments of a guided exercise.
func (s *Store) ExerciseAttachments(ctx context.Context, exerciseID string) ([]prompt.Attachment, error) {
	return listRows[prompt.Attachment](ctx, s, s.client.Keys().ExerciseAttachments(exerciseID))
}

// AddExercise stores an exercise definition with its steps and attachments.
func (s *Store) AddExercise(ctx context.Context, ex prompt.Exercise, steps []prompt.ExerciseStep, attachments []prompt.Attachment) error {
	if ex.ID == "" {
		ex.ID = uuid.NewString()
	}
	data, err := json.Marshal(ex)
	if err != nil {
		return fmt.Errorf("failed to encode exercise: %w", err)
	}

	pipe := s.client.Redis().Pipeline()
	pipe.Set(ctx, s.client.Keys().Exercise(ex.ID), data, 0)
	for i := range steps {
		if steps[i].ID == "" {
			steps[i].ID = uuid.NewString()
		}
		row, err := json.Marshal(steps[i])
		if err != nil {
			return fmt.Errorf("failed to encode exercise step: %w", err)
		}
		pipe.RPush(ctx, s.client.Keys().ExerciseSteps(ex.ID), row)
	}
	for _, att := range attachments {
		row, err := json.Marshal(att)
		if err != nil {
			return fmt.Errorf("failed to encode exercise attachment: %w", err)
		}
		pipe.RPush(ctx, s.client.Keys().ExerciseAttachments(ex.ID), row)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store exercise: %w", err)
	}
	return nil
}

// ThreadMessages returns a thread's history, oldest first.
func (s *Store) ThreadMessages(ctx context.Context, threadID string) ([]prompt.Turn, error) {
	return listRows[prompt.Turn](ctx, s, s.client.Keys().ThreadMessages(threadID))
}

// ClientMessages returns a client's cross-thread history, oldest first.
func (s *Store) ClientMessages(ctx context.Context, clientID string) ([]prompt.Turn, error) {
	return listRows[prompt.Turn](ctx, s, s.client.Keys().ClientMessages(clientID))
}

// AppendMessage records a turn in both the thread history and the
// client's cross-thread history, assigning the thread ordinal.
func (s *Store) AppendMessage(ctx context.Context, clientID, threadID string, turn prompt.Turn) error {
	ordinal, err := s.client.Redis().Incr(ctx, s.client.Keys().ThreadOrdinal(threadID)).Result()
	if err != nil {
		return fmt.Errorf("failed to assign message ordinal: %w", err)
	}
	turn.Ordinal = ordinal

	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	pipe := s.client.Redis().Pipeline()
	pipe.RPush(ctx, s.client.Keys().ThreadMessages(threadID), data)
	pipe.LTrim(ctx, s.client.Keys().ThreadMessages(threadID), -s.maxMessages, -1)
	pipe.RPush(ctx, s.client.Keys().ClientMessages(clientID), data)
	pipe.LTrim(ctx, s.client.Keys().ClientMessages(clientID), -s.maxMessages, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

// listRows reads a list of JSON rows. Malformed rows are skipped.
func listRows[T any](ctx context.Context, s *Store, key string) ([]T, error) {
	data, err := s.client.Redis().LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}

	rows := make([]T, 0, len(data))
	for _, d := range data {
		var row T
		if err := json.Unmarshal([]byte(d), &row); err != nil {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *Store) pushRow(ctx context.Context, key string, row any) error {
	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("failed to marshal row for %s: %w", key, err)
	}
	if err := s.client.Redis().RPush(ctx, key, data).Err(); err != nil {
		return fmt.Errorf("failed to append to %s: %w", key, err)
	}
	return nil
}
