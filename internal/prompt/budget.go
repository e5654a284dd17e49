package prompt

// Per-section token allocations. These are fixed constants, not derived
// from the model's context window at runtime; the sum stays well below a
// 32k window so the response has room regardless of model choice. Each
// allocation covers the section's heading and separator as well as its body.
const (
	personaTokens       = 2000
	frameworkTokens     = 3000
	libraryTokens       = 4000
	libraryFileTokens   = 1500 // sub-share of the library section for attached-file text
	memoryTokens        = 3000
	instructionTokens   = 1000
	exerciseTokens      = 2500
	protocolTokens      = 200
	gapHintTokens       = 300
	conversationTokens  = 7000
	currentInputReserve = 1000 // held back for an incoming message not yet persisted
	consultationTokens  = 3500 // flat transcript excerpt in consultation mode
)

// aggregateBudgetTokens is the hard ceiling for a full turn assembly:
// every section allocation plus the conversation buffer and the reserve
// for the current message.
const aggregateBudgetTokens = personaTokens + frameworkTokens + libraryTokens +
	libraryFileTokens + memoryTokens + instructionTokens + exerciseTokens +
	protocolTokens + gapHintTokens + conversationTokens + currentInputReserve
