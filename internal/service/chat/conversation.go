package chat

import (
	"pathway/internal/config"
	chatModels "pathway/internal/domain/models/chat"
)

// InstructionPrefix wraps the latest user message, directing the backend
// to lean on its retrieval tool.
const InstructionPrefix = "Please use your search tool one or more times based on this latest prompt: "

// AssembleHistory builds the ordered message list fed to the generation
// backend: at most the HistoryWindow most recent prior rounds expanded
// into user/assistant pairs, then the latest user text wrapped with the
// instruction prefix. Pure function, no I/O.
func AssembleHistory(prior []chatModels.Entry, latestUserText string) []*chatModels.Message {
	recent := recentWindow(prior)

	messages := make([]*chatModels.Message, 0, 2*len(recent)+1)
	for _, entry := range recent {
		messages = append(messages,
			chatModels.NewTextMessage("user", entry.User),
			chatModels.NewTextMessage("assistant", entry.Chatbot),
		)
	}

	messages = append(messages, chatModels.NewTextMessage("user", InstructionPrefix+latestUserText))

	return messages
}

// recentWindow returns the last HistoryWindow entries.
func recentWindow(entries []chatModels.Entry) []chatModels.Entry {
	if len(entries) <= config.HistoryWindow {
		return entries
	}
	return entries[len(entries)-config.HistoryWindow:]
}
