package items

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/confshare/confshare-go/budget"
	"github.com/confshare/confshare-go/registry"
	"github.com/confshare/confshare-go/tool"
	"github.com/confshare/confshare-go/types"
)

// Options configures the built-in item set.
type Options struct {
	// Models, when set, backs the model item with a live model list so a
	// stale configured model is reported as absent rather than shared.
	Models *ModelStore
	// Probe, when set, drops unreachable MCP connections at collection time.
	Probe *Prober
}

// RegisterAll registers the built-in share items. Adding a new shareable
// artifact means registering one more descriptor here or in a feature
// package; the budget engine and composer never change.
func RegisterAll(reg *registry.Registry, src Source, opts Options) error {
	descriptors := []*registry.Descriptor{
		apiKeyItem(src),
		baseURLItem(src),
		modelItem(src, opts.Models),
		systemPromptItem(src),
		promptsItem(src),
		functionsItem(src),
		conversationItem(src),
		mcpItem(src, opts.Probe),
	}
	for _, d := range descriptors {
		if err := reg.Register(d); err != nil {
			return err
		}
	}
	return nil
}

// stringItem builds a descriptor for a plain string field: estimate is value
// length plus the documented JSON field overhead, absent when empty.
func stringItem(id, label string, defaultChecked, sensitive bool, get func() string) *registry.Descriptor {
	return &registry.Descriptor{
		ID:             id,
		Label:          label,
		DefaultChecked: defaultChecked,
		Sensitive:      sensitive,
		EstimateSize: func(ctx context.Context, req registry.Request) (int, error) {
			v := get()
			if v == "" {
				return 0, nil
			}
			return len(v) + budget.JSONFieldOverhead(id), nil
		},
		CollectData: func(ctx context.Context, req registry.Request) (any, bool, error) {
			v := get()
			if v == "" {
				if sensitive {
					return nil, false, fmt.Errorf("no value configured")
				}
				return nil, false, nil
			}
			return v, true, nil
		},
	}
}

// jsonItem builds a descriptor for a structured field: estimate and payload
// both come from serializing the current value.
func jsonItem[T any](id, label string, defaultChecked bool, get func() []T) *registry.Descriptor {
	return &registry.Descriptor{
		ID:             id,
		Label:          label,
		DefaultChecked: defaultChecked,
		EstimateSize: func(ctx context.Context, req registry.Request) (int, error) {
			entries := get()
			if len(entries) == 0 {
				return 0, nil
			}
			raw, err := sonic.Marshal(entries)
			if err != nil {
				return 0, fmt.Errorf("failed to size %s: %v", id, err)
			}
			return len(raw) + budget.JSONKeyOverhead(id), nil
		},
		CollectData: func(ctx context.Context, req registry.Request) (any, bool, error) {
			entries := get()
			if len(entries) == 0 {
				return nil, false, nil
			}
			return entries, true, nil
		},
	}
}

func apiKeyItem(src Source) *registry.Descriptor {
	return stringItem("apiKey", "API key", false, true, src.APIKey)
}

func baseURLItem(src Source) *registry.Descriptor {
	return stringItem("baseUrl", "API endpoint", true, false, src.BaseURL)
}

func systemPromptItem(src Source) *registry.Descriptor {
	return stringItem("systemPrompt", "System prompt", true, false, src.SystemPrompt)
}

func promptsItem(src Source) *registry.Descriptor {
	return jsonItem("prompts", "Prompt library", false, src.Prompts)
}

func functionsItem(src Source) *registry.Descriptor {
	return jsonItem("functions", "Function library", false, src.Functions)
}

// modelItem is a stringItem with one extra rule: when a live model list is
// available and the configured model is not on it, the model is treated as
// absent so a dead model id never ships in a link.
func modelItem(src Source, models *ModelStore) *registry.Descriptor {
	d := stringItem("model", "Model", true, false, src.Model)
	base := d.CollectData
	d.CollectData = func(ctx context.Context, req registry.Request) (any, bool, error) {
		v, ok, err := base(ctx, req)
		if err != nil || !ok || models == nil {
			return v, ok, err
		}
		available, listErr := models.List(ctx)
		if listErr != nil {
			// The list is advisory; an unreachable endpoint never blocks sharing.
			tool.DefaultLogger.Warnf("model list unavailable, sharing configured model as-is: %v", listErr)
			return v, true, nil
		}
		name, _ := v.(string)
		for _, m := range available {
			if m == name {
				return v, true, nil
			}
		}
		tool.DefaultLogger.Warnf("configured model %q is not served by the endpoint, omitting", name)
		return nil, false, nil
	}
	return d
}

func conversationItem(src Source) *registry.Descriptor {
	// A count of zero means zero messages, never all of them; the requested
	// count is only ever clamped down to what exists.
	tail := func(count int) []types.ChatMessage {
		msgs := src.Messages()
		if count <= 0 {
			return nil
		}
		if count > len(msgs) {
			count = len(msgs)
		}
		return msgs[len(msgs)-count:]
	}
	return &registry.Descriptor{
		ID:             "conversation",
		Label:          "Conversation history",
		DefaultChecked: false,
		AvailableCount: func() int { return len(src.Messages()) },
		EstimateSize: func(ctx context.Context, req registry.Request) (int, error) {
			msgs := tail(req.MessageCount)
			if len(msgs) == 0 {
				return 0, nil
			}
			raw, err := sonic.Marshal(msgs)
			if err != nil {
				return 0, fmt.Errorf("failed to size conversation: %v", err)
			}
			return len(raw) + budget.JSONKeyOverhead("conversation"), nil
		},
		CollectData: func(ctx context.Context, req registry.Request) (any, bool, error) {
			msgs := tail(req.MessageCount)
			if len(msgs) == 0 {
				return nil, false, nil
			}
			return msgs, true, nil
		},
	}
}

// mcpItem shares external tool connections. With a probe configured,
// connections whose host does not answer are dropped at collection time; the
// estimator still counts them all, which keeps the estimate pessimistic.
func mcpItem(src Source, probe *Prober) *registry.Descriptor {
	d := jsonItem("mcpConnections", "Tool connections", false, src.MCPConnections)
	d.CollectData = func(ctx context.Context, req registry.Request) (any, bool, error) {
		conns := src.MCPConnections()
		if len(conns) == 0 {
			return nil, false, nil
		}
		if probe == nil {
			return conns, true, nil
		}
		alive := make([]types.MCPConnection, 0, len(conns))
		for _, conn := range conns {
			if probe.Reachable(ctx, conn.URL) {
				alive = append(alive, conn)
				continue
			}
			tool.DefaultLogger.Warnf("tool connection %q is unreachable, leaving it out of the share", conn.Name)
		}
		if len(alive) == 0 {
			return nil, false, nil
		}
		return alive, true, nil
	}
	return d
}
