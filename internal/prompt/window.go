package prompt

// WindowTurns selects the trailing suffix of turns (oldest→newest) that
// fits within budgetTokens. It walks the list newest to oldest, stops
// at the first turn that would overflow the remaining budget, and
// returns the survivors in chronological order. The result is always a
// contiguous suffix: recency wins, and no gaps are introduced.
//
// Each retained turn is re-emitted with its speaker prefix folded into
// the content (see LabelTurn); the token cost is charged on the labeled
// form, since that is what the model receives.
func WindowTurns(turns []Turn, budgetTokens int) []Turn {
	if budgetTokens <= 0 || len(turns) == 0 {
		return nil
	}

	used := 0
	start := len(turns)
	for i := len(turns) - 1; i >= 0; i-- {
		cost := EstimateTokens(LabelTurn(turns[i]).Content)
		if used+cost > budgetTokens {
			break
		}
		used += cost
		start = i
	}

	selected := make([]Turn, 0, len(turns)-start)
	for _, t := range turns[start:] {
		selected = append(selected, LabelTurn(t))
	}
	return selected
}

// LabelTurn folds an explicit speaker prefix into a client or coach
// turn. The downstream model sees a three-party conversation (client,
// human coach, assistant) flattened into two roles, so without the
// prefix it cannot tell who is addressing it. Assistant turns carry
// their own role and stay unprefixed.
func LabelTurn(t Turn) Turn {
	switch t.Speaker {
	case SpeakerClient:
		t.Content = "Client: " + t.Content
	case SpeakerCoach:
		t.Content = "Coach: " + t.Content
	}
	return t
}
