package types

// AppConfig represents the application configuration loaded from config file
type AppConfig struct {
	Alias           string  `yaml:"alias"`
	Port            int     `yaml:"port"`
	Origin          string  `yaml:"origin"`          // deployment origin the share link points at, e.g. https://chat.example.com
	SharePath       string  `yaml:"sharePath"`       // path component of the share link, usually "/"
	MaxLinkLength   int     `yaml:"maxLinkLength"`   // practical browser URL-bar ceiling
	WarningFraction float64 `yaml:"warningFraction"` // fraction of maxLinkLength that flips the budget to warning
	MaxQRLength     int     `yaml:"maxQrLength"`     // above this, QR rendering is skipped
	StatePath       string  `yaml:"statePath"`       // JSON key-value store for selection state
	MessagesPath    string  `yaml:"messagesPath"`    // conversation history file, optional
	ModelsEndpoint  string  `yaml:"modelsEndpoint"`  // OpenAI-compatible base URL for model listing, optional

	// Shareable local configuration.
	APIKey       string          `yaml:"apiKey,omitempty"`
	BaseURL      string          `yaml:"baseUrl,omitempty"`
	Model        string          `yaml:"model,omitempty"`
	SystemPrompt string          `yaml:"systemPrompt,omitempty"`
	Prompts      []PromptEntry   `yaml:"prompts,omitempty"`
	Functions    []FunctionDef   `yaml:"functions,omitempty"`
	MCP          []MCPConnection `yaml:"mcp,omitempty"`
}

// Config holds runtime overrides from CLI flags
type Config struct {
	Log              string
	UseConfigPath    string
	UsePort          int
	UseOrigin        string // override share link origin
	UseStatePath     string
	UseMaxLinkLength int
	UseMaxQRLength   int
	SkipProbe        bool // if true, skip MCP host reachability probing before collection
}
