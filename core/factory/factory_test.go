package factory

import "testing"

type widget struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

func TestRegistryRegisterAndCreate(t *testing.T) {
	r := NewRegistry[*widget]()
	err := r.Register("widget", func(conf map[string]any) (*widget, error) {
		var w widget
		if err := Decode(conf, &w); err != nil {
			return nil, err
		}
		return &w, nil
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	w, err := r.Create(ModuleConfig{Type: "widget", Conf: map[string]any{"name": "a", "size": 3}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if w.Name != "a" || w.Size != 3 {
		t.Fatalf("decoded %+v", w)
	}
}

func TestRegistryRejectsDuplicatesAndUnknown(t *testing.T) {
	r := NewRegistry[int]()
	if err := r.Register("x", func(map[string]any) (int, error) { return 1, nil }); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Register("x", func(map[string]any) (int, error) { return 2, nil }); err == nil {
		t.Fatal("expected duplicate registration error")
	}
	if err := r.Register("nil", nil); err == nil {
		t.Fatal("expected nil factory error")
	}
	if _, err := r.Create(ModuleConfig{Type: "missing"}); err == nil {
		t.Fatal("expected unknown type error")
	}
}

func TestDecodeUsesJSONTags(t *testing.T) {
	var w widget
	if err := Decode(map[string]any{"name": "b", "size": 7}, &w); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if w.Name != "b" || w.Size != 7 {
		t.Fatalf("decoded %+v", w)
	}
}
