package items

import (
	"fmt"
	"os"

	"github.com/bytedance/sonic"

	"github.com/confshare/confshare-go/tool"
	"github.com/confshare/confshare-go/types"
)

// Source is where the built-in share items read the user's local
// configuration from. Estimators treat it as read-only.
type Source interface {
	APIKey() string
	BaseURL() string
	Model() string
	SystemPrompt() string
	Prompts() []types.PromptEntry
	Functions() []types.FunctionDef
	Messages() []types.ChatMessage
	MCPConnections() []types.MCPConnection
}

// LocalSource serves share items from the loaded AppConfig plus an optional
// conversation history file.
type LocalSource struct {
	cfg      types.AppConfig
	messages []types.ChatMessage
}

// NewLocalSource builds a source from cfg, loading conversation history from
// cfg.MessagesPath when set. A missing or unreadable history file is not
// fatal; the conversation item just reports no data.
func NewLocalSource(cfg types.AppConfig) *LocalSource {
	s := &LocalSource{cfg: cfg}
	if cfg.MessagesPath != "" {
		msgs, err := loadMessages(cfg.MessagesPath)
		if err != nil {
			tool.DefaultLogger.Warnf("failed to load conversation history: %v", err)
		} else {
			s.messages = msgs
		}
	}
	return s
}

func loadMessages(path string) ([]types.ChatMessage, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %v", path, err)
	}
	var msgs []types.ChatMessage
	if err := sonic.Unmarshal(raw, &msgs); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %v", path, err)
	}
	return msgs, nil
}

func (s *LocalSource) APIKey() string                        { return s.cfg.APIKey }
func (s *LocalSource) BaseURL() string                       { return s.cfg.BaseURL }
func (s *LocalSource) Model() string                         { return s.cfg.Model }
func (s *LocalSource) SystemPrompt() string                  { return s.cfg.SystemPrompt }
func (s *LocalSource) Prompts() []types.PromptEntry          { return s.cfg.Prompts }
func (s *LocalSource) Functions() []types.FunctionDef        { return s.cfg.Functions }
func (s *LocalSource) Messages() []types.ChatMessage         { return s.messages }
func (s *LocalSource) MCPConnections() []types.MCPConnection { return s.cfg.MCP }
