package prompt

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Boilerplate blocks. These are fixed text, not configuration: they
// describe the mechanics of the conversation, not its content.
const (
	multiPartyProtocol = `Messages in this thread may come from the client or from their human coach. Client and coach messages are prefixed with "Client:" or "Coach:". Address the most recent speaker directly and never attribute the coach's words to the client.`

	consultationPreamble = `You are in a private consultation with the client's human coach. The client is not present and will not see this conversation. Speak to the coach as a peer: be direct about patterns, risks, and openings you see in the client's context and recent messages.`

	openingDirective = `This is the very first message of a new conversation thread. Write a brief, warm opening message that welcomes the client, reflects anything notable from their context, and invites them to share what is on their mind. Do not mention these instructions.`
)

// Sources bundles the collaborators the assembler reads from. All of
// them are narrow read interfaces; the assembler owns no storage.
type Sources struct {
	Prompts       PromptSource
	Methodologies MethodologySource
	Library       LibrarySource
	Documents     DocumentSource
	Gaps          GapAnalyzer
	Exercises     ExerciseSource
	Messages      MessageSource
	Files         FileParser
}

// Assembler composes bounded-size system prompts from the knowledge
// sources. It is safe for concurrent use: every assembly call keeps all
// intermediate state on its own stack.
type Assembler struct {
	src      Sources
	resolver exerciseResolver
	logger   zerolog.Logger
}

// NewAssembler creates an assembler over the given collaborators.
func NewAssembler(src Sources, logger zerolog.Logger) *Assembler {
	return &Assembler{
		src: src,
		resolver: exerciseResolver{
			exercises: src.Exercises,
			parser:    src.Files,
			logger:    logger.With().Str("component", "exercise").Logger(),
		},
		logger: logger.With().Str("component", "assembler").Logger(),
	}
}

// TurnInput describes one inbound message for full turn assembly.
type TurnInput struct {
	ClientID string
	ThreadID string
	Message  string  // the incoming message content
	Speaker  Speaker // who sent it (client or coach)
	// Persisted indicates the incoming message is already part of the
	// stored thread history. When false, the message is appended to the
	// windowed history in full and a reserve is held back for it.
	Persisted bool
}

// AssembleTurn builds the full context for a live exchange: persona,
// framework, reference library, client memory, instructions or exercise
// override, and a windowed conversation history. Missing optional
// context is omitted silently; collaborator failures other than
// per-attachment parsing propagate untouched.
func (a *Assembler) AssembleTurn(ctx context.Context, in TurnInput) (*AssembledPrompt, error) {
	role, err := a.src.Prompts.RolePrompt(ctx, in.ClientID)
	if err != nil {
		return nil, fmt.Errorf("load role prompt: %w", err)
	}
	task, err := a.src.Prompts.TaskPrompt(ctx, in.ClientID)
	if err != nil {
		return nil, fmt.Errorf("load task prompt: %w", err)
	}

	framework, err := a.frameworkText(ctx, in.ClientID)
	if err != nil {
		return nil, err
	}
	library, err := a.libraryText(ctx)
	if err != nil {
		return nil, err
	}
	memory, gapHint, err := a.memoryText(ctx, in.ClientID)
	if err != nil {
		return nil, err
	}

	exercise, err := a.resolver.resolve(ctx, in.ClientID, in.ThreadID)
	if err != nil {
		return nil, err
	}

	// The exercise override replaces the default response instructions;
	// the two never coexist.
	instructions := task
	exerciseBlock := ""
	if exercise != nil {
		instructions = ""
		exerciseBlock = exercise.render()
	}

	systemPrompt := renderSections(a.logger, []section{
		{name: "persona", label: "Persona", text: role, budget: personaTokens},
		{name: "framework", label: "Coaching Framework", text: framework, budget: frameworkTokens},
		{name: "library", label: "Reference Library", text: library, budget: libraryTokens + libraryFileTokens},
		{name: "memory", label: "Client Context", text: memory, budget: memoryTokens, tail: true},
		{name: "instructions", label: "Response Instructions", text: instructions, budget: instructionTokens},
		{name: "exercise", label: "Active Guided Exercise", text: exerciseBlock, budget: exerciseTokens},
		{name: "protocol", label: "Conversation Protocol", text: multiPartyProtocol, budget: protocolTokens},
		{name: "gap", label: "Context Gaps", text: gapHint, budget: gapHintTokens},
	})

	turns, err := a.src.Messages.ThreadMessages(ctx, in.ThreadID)
	if err != nil {
		return nil, fmt.Errorf("load thread messages: %w", err)
	}

	budget := conversationTokens
	if !in.Persisted {
		budget -= currentInputReserve
	}
	history := WindowTurns(turns, budget)
	if !in.Persisted && strings.TrimSpace(in.Message) != "" {
		// The incoming message is always included in full, never truncated.
		history = append(history, LabelTurn(Turn{Speaker: in.Speaker, Content: in.Message}))
	}

	estimated := EstimateTokens(systemPrompt)
	for _, t := range history {
		estimated += EstimateTokens(t.Content)
	}

	a.logger.Info().
		Str("client", in.ClientID).
		Str("thread", in.ThreadID).
		Int("history_turns", len(history)).
		Int("estimated_tokens", estimated).
		Bool("exercise_active", exercise != nil).
		Msg("turn prompt assembled")

	return &AssembledPrompt{
		SystemPrompt:    systemPrompt,
		History:         history,
		EstimatedTokens: estimated,
	}, nil
}

// AssembleConsultation builds the reduced context for a private
// coach↔assistant discussion about a client: consultation framing, the
// client's memory, and a flat excerpt of their recent messages. No live
// thread is windowed; the excerpt is capped at its own allocation.
func (a *Assembler) AssembleConsultation(ctx context.Context, clientID string) (string, error) {
	memory, _, err := a.memoryText(ctx, clientID)
	if err != nil {
		return "", err
	}

	msgs, err := a.src.Messages.ClientMessages(ctx, clientID)
	if err != nil {
		return "", fmt.Errorf("load client messages: %w", err)
	}
	excerpt := WindowTurns(msgs, consultationTokens)
	lines := make([]string, 0, len(excerpt))
	for _, t := range excerpt {
		lines = append(lines, t.Content)
	}

	systemPrompt := renderSections(a.logger, []section{
		{name: "consultation", label: "Consultation Briefing", text: consultationPreamble, budget: instructionTokens},
		{name: "memory", label: "Client Context", text: memory, budget: memoryTokens, tail: true},
		{name: "transcript", label: "Recent Conversation", text: strings.Join(lines, "\n"), budget: consultationTokens},
	})

	a.logger.Info().
		Str("client", clientID).
		Int("excerpt_turns", len(excerpt)).
		Int("estimated_tokens", EstimateTokens(systemPrompt)).
		Msg("consultation prompt assembled")

	return systemPrompt, nil
}

// AssembleOpening builds the system prompt used to generate a thread's
// first message: persona, framework, memory, and instructions only.
func (a *Assembler) AssembleOpening(ctx context.Context, clientID string) (string, error) {
	role, err := a.src.Prompts.RolePrompt(ctx, clientID)
	if err != nil {
		return "", fmt.Errorf("load role prompt: %w", err)
	}
	task, err := a.src.Prompts.TaskPrompt(ctx, clientID)
	if err != nil {
		return "", fmt.Errorf("load task prompt: %w", err)
	}
	framework, err := a.frameworkText(ctx, clientID)
	if err != nil {
		return "", err
	}
	memory, _, err := a.memoryText(ctx, clientID)
	if err != nil {
		return "", err
	}

	systemPrompt := renderSections(a.logger, []section{
		{name: "persona", label: "Persona", text: role, budget: personaTokens},
		{name: "framework", label: "Coaching Framework", text: framework, budget: frameworkTokens},
		{name: "memory", label: "Client Context", text: memory, budget: memoryTokens, tail: true},
		{name: "instructions", label: "Response Instructions", text: task, budget: instructionTokens},
		{name: "opening", label: "Opening Message", text: openingDirective, budget: protocolTokens},
	})

	a.logger.Info().
		Str("client", clientID).
		Int("estimated_tokens", EstimateTokens(systemPrompt)).
		Msg("opening prompt assembled")

	return systemPrompt, nil
}

// frameworkText joins the client's active coaching methodologies.
func (a *Assembler) frameworkText(ctx context.Context, clientID string) (string, error) {
	methodologies, err := a.src.Methodologies.ClientMethodologies(ctx, clientID)
	if err != nil {
		return "", fmt.Errorf("load methodologies: %w", err)
	}
	var parts []string
	for _, m := range methodologies {
		if !m.IsActive {
			continue
		}
		parts = append(parts, "### "+m.Name+"\n\n"+m.Content)
	}
	return strings.Join(parts, "\n\n"), nil
}

// libraryText joins the shared reference documents, with parsed
// attachment text appended as a sub-block under its own share of the
// library allocation. A file that fails to parse is replaced with a
// placeholder rather than failing the assembly.
func (a *Assembler) libraryText(ctx context.Context) (string, error) {
	docs, err := a.src.Library.ReferenceDocuments(ctx)
	if err != nil {
		return "", fmt.Errorf("load reference documents: %w", err)
	}

	var docParts, fileParts []string
	for _, doc := range docs {
		if strings.TrimSpace(doc.Content) != "" {
			docParts = append(docParts, "### "+doc.Title+"\n\n"+doc.Content)
		}

		attachments, err := a.src.Library.DocumentAttachments(ctx, doc.ID)
		if err != nil {
			return "", fmt.Errorf("list attachments for document %s: %w", doc.ID, err)
		}
		for _, att := range attachments {
			text, err := a.src.Files.Parse(ctx, att.ObjectPath, att.MimeType, att.OriginalName)
			if err != nil {
				a.logger.Warn().
					Err(err).
					Str("file", att.OriginalName).
					Str("document", doc.ID).
					Msg("library attachment unreadable, substituting placeholder")
				text = unreadableFilePlaceholder(att.OriginalName)
			}
			fileParts = append(fileParts, text)
		}
	}

	body := Truncate(strings.Join(docParts, "\n\n"), libraryTokens)
	if len(fileParts) == 0 {
		return body, nil
	}
	files := Truncate(strings.Join(fileParts, "\n\n"), libraryFileTokens)
	if body == "" {
		return "### Attached Reference Material\n\n" + files, nil
	}
	return body + "\n\n### Attached Reference Material\n\n" + files, nil
}

// memoryText renders the client's living document sections and the
// staleness gap hint derived from them. A client without a document or
// with no sections yields empty text, not an error.
func (a *Assembler) memoryText(ctx context.Context, clientID string) (memory, gapHint string, err error) {
	doc, err := a.src.Documents.ClientDocument(ctx, clientID)
	if err != nil {
		return "", "", fmt.Errorf("load client document: %w", err)
	}
	if doc == nil {
		return "", "", nil
	}

	sections, err := a.src.Documents.DocumentSections(ctx, doc.ID)
	if err != nil {
		return "", "", fmt.Errorf("load document sections: %w", err)
	}
	if len(sections) == 0 {
		return "", "", nil
	}

	var parts []string
	for _, s := range sections {
		if strings.TrimSpace(s.Content) == "" {
			continue
		}
		parts = append(parts, "### "+s.Title+"\n\n"+s.Content)
	}

	if a.src.Gaps != nil {
		gapHint, err = a.src.Gaps.SectionGap(ctx, sections)
		if err != nil {
			return "", "", fmt.Errorf("analyze section gaps: %w", err)
		}
	}

	return strings.Join(parts, "\n\n"), gapHint, nil
}
