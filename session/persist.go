package session

import (
	"github.com/bytedance/sonic"

	"github.com/confshare/confshare-go/registry"
	"github.com/confshare/confshare-go/types"
)

// StateNamespace keys the selection blob in the key-value store. Stable
// across versions; bump only with a migration.
const StateNamespace = "confshare.selection.v1"

const (
	includeKeyPrefix = "include_"
	messageCountKey  = "messageCount"
)

// saveSelection writes {"include_<itemId>": bool, "messageCount": int} under
// the namespace. Selection content only, never payload data.
func saveSelection(store KV, selection types.SelectionState, messageCount int) error {
	if store == nil {
		return nil
	}
	record := make(map[string]any, len(selection)+1)
	for id, include := range selection {
		record[includeKeyPrefix+id] = include
	}
	record[messageCountKey] = messageCount
	raw, err := sonic.Marshal(record)
	if err != nil {
		return err
	}
	return store.Set(StateNamespace, raw)
}

// loadSelection reads the persisted selection for currently registered items.
// Ids that are no longer registered are ignored; registered ids missing from
// the record fall back to their descriptor default. found is false when
// nothing was ever persisted.
func loadSelection(store KV, reg *registry.Registry) (selection types.SelectionState, messageCount int, found bool) {
	if store == nil {
		return nil, 0, false
	}
	raw, ok := store.Get(StateNamespace)
	if !ok {
		return nil, 0, false
	}
	var record map[string]any
	if err := sonic.Unmarshal(raw, &record); err != nil {
		return nil, 0, false
	}

	selection = make(types.SelectionState)
	for _, d := range reg.All() {
		if v, ok := record[includeKeyPrefix+d.ID].(bool); ok {
			selection[d.ID] = v
		} else {
			selection[d.ID] = d.DefaultChecked
		}
	}
	messageCount = defaultMessageCountCap
	if v, ok := record[messageCountKey].(float64); ok && v >= 0 {
		messageCount = int(v)
	}
	return selection, messageCount, true
}
