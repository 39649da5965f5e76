package types

// ChatMessage is one entry of the conversation history.
type ChatMessage struct {
	Role    string `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// PromptEntry is a saved prompt from the user's prompt library.
type PromptEntry struct {
	Name    string `json:"name" yaml:"name"`
	Content string `json:"content" yaml:"content"`
}

// FunctionDef is a user-defined function the model may call.
type FunctionDef struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Code        string `json:"code" yaml:"code"`
}

// MCPConnection describes an external tool-server connection.
type MCPConnection struct {
	Name      string `json:"name" yaml:"name"`
	URL       string `json:"url" yaml:"url"`
	Transport string `json:"transport,omitempty" yaml:"transport,omitempty"`
}
