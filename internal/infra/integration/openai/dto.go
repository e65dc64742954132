package openai

// Settings configures the chat-completions client.
type Settings struct {
	APIKey   string
	BaseURL  string
	Model    string
	Variants int
}
