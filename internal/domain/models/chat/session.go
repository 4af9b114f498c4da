package chat

// Entry is one completed round persisted to the session store: the user
// text, the assistant's final answer, and serialized citation metadata.
// Entries are immutable once written.
type Entry struct {
	User     string `json:"user"`
	Chatbot  string `json:"chatbot"`
	Metadata string `json:"metadata"`
}

// Citation points at one retrieved source shown to the client.
type Citation struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// Session is the ordered history of rounds keyed by (user id, session id).
// LanguageCode is the detected language of the first user message, stored
// so later turns skip detection.
type Session struct {
	History      []Entry
	Title        string
	LanguageCode string
}
