package registry

import (
	"context"
	"errors"
	"testing"
)

func noopDescriptor(id string, defaultChecked bool) *Descriptor {
	return &Descriptor{
		ID:             id,
		Label:          id,
		DefaultChecked: defaultChecked,
		EstimateSize: func(ctx context.Context, req Request) (int, error) {
			return 0, nil
		},
		CollectData: func(ctx context.Context, req Request) (any, bool, error) {
			return nil, false, nil
		},
	}
}

func TestRegisterDuplicateFails(t *testing.T) {
	r := New()
	if err := r.Register(noopDescriptor("apiKey", false)); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}
	err := r.Register(noopDescriptor("apiKey", false))
	if err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
	var dup *DuplicateItemError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateItemError, got %T: %v", err, err)
	}
	if dup.ID != "apiKey" {
		t.Errorf("expected duplicate id apiKey, got %q", dup.ID)
	}
}

func TestRegisterRejectsIncompleteDescriptor(t *testing.T) {
	r := New()
	if err := r.Register(&Descriptor{ID: "broken"}); err == nil {
		t.Fatal("expected registration without funcs to fail")
	}
	if err := r.Register(nil); err == nil {
		t.Fatal("expected nil registration to fail")
	}
}

func TestAllPreservesRegistrationOrder(t *testing.T) {
	r := New()
	ids := []string{"model", "apiKey", "conversation", "systemPrompt"}
	for _, id := range ids {
		if err := r.Register(noopDescriptor(id, false)); err != nil {
			t.Fatalf("failed to register %s: %v", id, err)
		}
	}
	all := r.All()
	if len(all) != len(ids) {
		t.Fatalf("expected %d descriptors, got %d", len(ids), len(all))
	}
	for i, d := range all {
		if d.ID != ids[i] {
			t.Errorf("position %d: expected %s, got %s", i, ids[i], d.ID)
		}
	}
}

func TestDefaultsFollowDefaultChecked(t *testing.T) {
	r := New()
	if err := r.Register(noopDescriptor("model", true)); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(noopDescriptor("apiKey", false)); err != nil {
		t.Fatal(err)
	}
	sel := r.Defaults()
	if !sel["model"] {
		t.Error("expected model to default to included")
	}
	if sel["apiKey"] {
		t.Error("expected apiKey to default to excluded")
	}
}

func TestGet(t *testing.T) {
	r := New()
	if err := r.Register(noopDescriptor("model", true)); err != nil {
		t.Fatal(err)
	}
	if d, ok := r.Get("model"); !ok || d.ID != "model" {
		t.Errorf("expected to find model, got %v %v", d, ok)
	}
	if _, ok := r.Get("missing"); ok {
		t.Error("expected missing item to not be found")
	}
}
