package prompt

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// exerciseResolver determines whether a thread has an in-progress
// guided exercise and, if so, produces the override context for it.
type exerciseResolver struct {
	exercises ExerciseSource
	parser    FileParser
	logger    zerolog.Logger
}

// resolve returns the active exercise context for (client, thread), or
// (nil, nil) when there is none. A missing session, a session without a
// current step, or a step that no longer exists all count as "no active
// exercise"; these are normal outcomes, not failures. Storage errors
// propagate; a per-attachment parse failure is replaced with a
// placeholder so one corrupt upload cannot abort the whole assembly.
func (r *exerciseResolver) resolve(ctx context.Context, clientID, threadID string) (*ExerciseContext, error) {
	sessions, err := r.exercises.ClientSessions(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("list exercise sessions: %w", err)
	}

	var active *ExerciseSession
	for i := range sessions {
		if sessions[i].ThreadID == threadID && sessions[i].Status == SessionInProgress {
			active = &sessions[i]
			break
		}
	}
	if active == nil || active.CurrentStepID == "" {
		return nil, nil
	}

	exercise, err := r.exercises.Exercise(ctx, active.ExerciseID)
	if err != nil {
		return nil, fmt.Errorf("load exercise %s: %w", active.ExerciseID, err)
	}
	if exercise == nil {
		return nil, nil
	}

	steps, err := r.exercises.ExerciseSteps(ctx, exercise.ID)
	if err != nil {
		return nil, fmt.Errorf("load exercise steps: %w", err)
	}
	var current *ExerciseStep
	for i := range steps {
		if steps[i].ID == active.CurrentStepID {
			current = &steps[i]
			break
		}
	}
	if current == nil {
		return nil, nil
	}

	attachments, err := r.exercises.ExerciseAttachments(ctx, exercise.ID)
	if err != nil {
		return nil, fmt.Errorf("list exercise attachments: %w", err)
	}

	ec := &ExerciseContext{
		ExerciseID:           exercise.ID,
		Title:                exercise.Title,
		Description:          exercise.Description,
		OverrideInstructions: exercise.OverrideInstructions,
		StepTitle:            current.Title,
		StepPrompt:           current.Prompt,
		StepGuidance:         current.Guidance,
		StepOrder:            current.Order,
		TotalSteps:           len(steps),
	}

	for _, att := range attachments {
		text, err := r.parser.Parse(ctx, att.ObjectPath, att.MimeType, att.OriginalName)
		if err != nil {
			r.logger.Warn().
				Err(err).
				Str("file", att.OriginalName).
				Str("exercise", exercise.ID).
				Msg("exercise attachment unreadable, substituting placeholder")
			text = unreadableFilePlaceholder(att.OriginalName)
		}
		ec.Attachments = append(ec.Attachments, text)
	}

	return ec, nil
}

func unreadableFilePlaceholder(name string) string {
	return fmt.Sprintf("[file %q could not be read]", name)
}

// render produces the exercise override block for the system prompt.
func (ec *ExerciseContext) render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Exercise: %s (step %d of %d)\n", ec.Title, ec.StepOrder, ec.TotalSteps)
	if ec.Description != "" {
		b.WriteString(ec.Description + "\n")
	}
	if ec.OverrideInstructions != "" {
		b.WriteString("\n" + ec.OverrideInstructions + "\n")
	}
	fmt.Fprintf(&b, "\nCurrent step: %s\n%s\n", ec.StepTitle, ec.StepPrompt)
	if ec.StepGuidance != "" {
		b.WriteString("\nGuidance for this step: " + ec.StepGuidance + "\n")
	}
	if len(ec.Attachments) > 0 {
		b.WriteString("\nStep materials:\n")
		for _, text := range ec.Attachments {
			b.WriteString(text + "\n")
		}
	}
	return b.String()
}
