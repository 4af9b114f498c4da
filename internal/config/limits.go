package config

// Fixed limits for the orchestration loop. These are design choices, not
// tunables: changing them changes observable protocol behavior.
const (
	// HistoryWindow is the number of prior rounds expanded into the
	// conversation fed to the backend.
	HistoryWindow = 2

	// ConfidenceThreshold is the strict lower bound on retrieval scores;
	// a passage scoring exactly the threshold is dropped.
	ConfidenceThreshold = 0.5

	// AnswerMaxTokens bounds each generation stream.
	AnswerMaxTokens = 2048

	// TitleMaxTokens bounds the one-shot session-title completion.
	TitleMaxTokens = 25

	// ConflictReportMaxTokens bounds the optional conflict-report pass.
	ConflictReportMaxTokens = 1024

	// MaxUserMessageLength bounds the inbound user message.
	MaxUserMessageLength = 8000
)
