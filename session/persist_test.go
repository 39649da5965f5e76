package session

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/bytedance/sonic"

	"github.com/confshare/confshare-go/registry"
	"github.com/confshare/confshare-go/tool"
	"github.com/confshare/confshare-go/types"
)

func persistRegistry(t *testing.T, ids ...string) *registry.Registry {
	t.Helper()
	r := registry.New()
	for _, id := range ids {
		d := &registry.Descriptor{
			ID:    id,
			Label: id,
			EstimateSize: func(ctx context.Context, req registry.Request) (int, error) {
				return 0, nil
			},
			CollectData: func(ctx context.Context, req registry.Request) (any, bool, error) {
				return nil, false, nil
			},
		}
		if err := r.Register(d); err != nil {
			t.Fatal(err)
		}
	}
	return r
}

func TestSelectionRoundTrip(t *testing.T) {
	store, err := tool.OpenStateStore(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatal(err)
	}
	reg := persistRegistry(t, "apiKey", "model", "conversation")

	saved := types.SelectionState{"apiKey": true, "model": false, "conversation": true}
	if err := saveSelection(store, saved, 7); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, count, found := loadSelection(store, reg)
	if !found {
		t.Fatal("expected persisted state to be found")
	}
	if count != 7 {
		t.Errorf("expected messageCount 7, got %d", count)
	}
	for id, want := range saved {
		if loaded[id] != want {
			t.Errorf("item %s: expected %v, got %v", id, want, loaded[id])
		}
	}
}

func TestLoadIgnoresUnregisteredIds(t *testing.T) {
	store, err := tool.OpenStateStore(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatal(err)
	}
	fullReg := persistRegistry(t, "apiKey", "legacyItem")
	if err := saveSelection(store, types.SelectionState{"apiKey": true, "legacyItem": true}, 3); err != nil {
		t.Fatal(err)
	}

	// legacyItem is gone in this version; its persisted flag is ignored.
	shrunkReg := persistRegistry(t, "apiKey")
	loaded, _, found := loadSelection(store, shrunkReg)
	if !found {
		t.Fatal("expected persisted state to be found")
	}
	if len(loaded) != 1 || !loaded["apiKey"] {
		t.Errorf("unexpected selection: %v", loaded)
	}
	_ = fullReg
}

func TestLoadFallsBackToDefaultsForNewIds(t *testing.T) {
	store, err := tool.OpenStateStore(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatal(err)
	}
	oldReg := persistRegistry(t, "apiKey")
	if err := saveSelection(store, types.SelectionState{"apiKey": true}, 3); err != nil {
		t.Fatal(err)
	}
	_ = oldReg

	newReg := registry.New()
	newItem := &registry.Descriptor{
		ID:             "model",
		Label:          "model",
		DefaultChecked: true,
		EstimateSize: func(ctx context.Context, req registry.Request) (int, error) {
			return 0, nil
		},
		CollectData: func(ctx context.Context, req registry.Request) (any, bool, error) {
			return nil, false, nil
		},
	}
	if err := newReg.Register(newItem); err != nil {
		t.Fatal(err)
	}
	loaded, _, found := loadSelection(store, newReg)
	if !found {
		t.Fatal("expected persisted state to be found")
	}
	if !loaded["model"] {
		t.Error("a newly registered item falls back to its default")
	}
}

func TestPersistedFormat(t *testing.T) {
	store, err := tool.OpenStateStore(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatal(err)
	}
	if err := saveSelection(store, types.SelectionState{"apiKey": true}, 12); err != nil {
		t.Fatal(err)
	}

	raw, ok := store.Get(StateNamespace)
	if !ok {
		t.Fatal("expected record under the namespace key")
	}
	var record map[string]any
	if err := sonic.Unmarshal(raw, &record); err != nil {
		t.Fatal(err)
	}
	if v, ok := record["include_apiKey"].(bool); !ok || !v {
		t.Errorf("expected include_apiKey=true, got %v", record["include_apiKey"])
	}
	if v, ok := record["messageCount"].(float64); !ok || v != 12 {
		t.Errorf("expected messageCount=12, got %v", record["messageCount"])
	}
}

func TestControllerPersistsAcrossSessions(t *testing.T) {
	dir := t.TempDir()
	data := &testData{model: "gpt-4o"}

	open := func() *Controller {
		reg := testRegistry(t, data)
		store, err := tool.OpenStateStore(filepath.Join(dir, "state.json"))
		if err != nil {
			t.Fatal(err)
		}
		ctrl := NewController(Config{
			Registry: reg,
			Engine:   testEngine(reg),
			Composer: testComposer(reg),
			Renderer: testRenderer(),
			Store:    store,
			Origin:   testOrigin,
			Path:     testPath,
		})
		if err := ctrl.Open(""); err != nil {
			t.Fatal(err)
		}
		return ctrl
	}

	ctrl := open()
	if err := ctrl.Toggle("model", false); err != nil {
		t.Fatal(err)
	}
	if err := ctrl.Toggle("apiKey", true); err != nil {
		t.Fatal(err)
	}
	if err := ctrl.SetMessageCount(4); err != nil {
		t.Fatal(err)
	}
	ctrl.Close()

	reopened := open()
	sel := reopened.Selection()
	if sel["model"] {
		t.Error("model toggle was not persisted")
	}
	if !sel["apiKey"] {
		t.Error("apiKey toggle was not persisted")
	}
	if reopened.MessageCount() != 4 {
		t.Errorf("messageCount not persisted: %d", reopened.MessageCount())
	}
}
