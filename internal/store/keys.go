package store

import (
	"fmt"
)

// Keys generates Redis keys with consistent naming
type Keys struct {
	prefix string
}

// NewKeys creates a new Keys generator
func NewKeys(prefix string) *Keys {
	return &Keys{prefix: prefix}
}

// RolePrompt returns the key for a client's persona prompt
func (k *Keys) RolePrompt(clientID string) string {
	return fmt.Sprintf("%sclient:%s:role_prompt", k.prefix, clientID)
}

// TaskPrompt returns the key for a client's response instructions
func (k *Keys) TaskPrompt(clientID string) string {
	return fmt.Sprintf("%sclient:%s:task_prompt", k.prefix, clientID)
}

// Methodologies returns the key for a client's assigned coaching frameworks
func (k *Keys) Methodologies(clientID string) string {
	return fmt.Sprintf("%sclient:%s:methodologies", k.prefix, clientID)
}

// ReferenceDocuments returns the key for the shared reference library
func (k *Keys) ReferenceDocuments() string {
	return k.prefix + "library:documents"
}

// DocumentAttachments returns the key for a reference document's attachments
func (k *Keys) DocumentAttachments(docID string) string {
	return fmt.Sprintf("%slibrary:%s:attachments", k.prefix, docID)
}

// ClientDocument returns the key holding a client's living-document ID
func (k *Keys) ClientDocument(clientID string) string {
	return fmt.Sprintf("%sclient:%s:document", k.prefix, clientID)
}

// DocumentSections returns the key for a living document's sections
func (k *Keys) DocumentSections(documentID string) string {
	return fmt.Sprintf("%sdocument:%s:sections", k.prefix, documentID)
}

// ExerciseSessions returns the key for a client's guided-exercise sessions
func (k *Keys) ExerciseSessions(clientID string) string {
	return fmt.Sprintf("%sclient:%s:exercise_sessions", k.prefix, clientID)
}

// Exercise returns the key for a guided exercise definition
func (k *Keys) Exercise(id string) string {
	return fmt.Sprintf("%sexercise:%s", k.prefix, id)
}

// ExerciseSteps returns the key for a guided exercise's steps
func (k *Keys) ExerciseSteps(exerciseID string) string {
	return fmt.Sprintf("%sexercise:%s:steps", k.prefix, exerciseID)
}

// ExerciseAttachments returns the key for a guided exercise's attachments
func (k *Keys) ExerciseAttachments(exerciseID string) string {
	return fmt.Sprintf("%sexercise:%s:attachments", k.prefix, exerciseID)
}

// ThreadMessages returns the key for a thread's message history
func (k *Keys) ThreadMessages(threadID string) string {
	return fmt.Sprintf("%sthread:%s:messages", k.prefix, threadID)
}

// ClientMessages returns the key for a client's cross-thread message history
func (k *Keys) ClientMessages(clientID string) string {
	return fmt.Sprintf("%sclient:%s:messages", k.prefix, clientID)
}

// ThreadOrdinal returns the key for a thread's message ordinal counter
func (k *Keys) ThreadOrdinal(threadID string) string {
	return fmt.Sprintf("%sthread:%s:ordinal", k.prefix, threadID)
}
