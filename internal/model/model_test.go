package model

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestFavoritesToggle(t *testing.T) {
	f := NewFavorites("p2", "", "p1", "p2")
	if f.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", f.Len())
	}
	if on := f.Toggle("p3"); !on {
		t.Error("Toggle(p3) should favorite p3")
	}
	if on := f.Toggle("p1"); on {
		t.Error("Toggle(p1) should unfavorite p1")
	}
	if got, want := f.IDs(), []string{"p2", "p3"}; !reflect.DeepEqual(got, want) {
		t.Errorf("IDs() = %v, want %v", got, want)
	}
}

func TestFavoritesNil(t *testing.T) {
	var f *Favorites
	if f.Has("p1") {
		t.Error("nil set should not contain anything")
	}
	if len(f.IDs()) != 0 {
		t.Error("nil set should have no ids")
	}
}

func TestFavoritesJSON(t *testing.T) {
	data, err := json.Marshal(NewFavorites("p9", "p1"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `["p1","p9"]` {
		t.Errorf("marshal = %s, want sorted array", data)
	}

	var f Favorites
	if err := json.Unmarshal([]byte(`["p4","p4","p5"]`), &f); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !f.Has("p4") || !f.Has("p5") || f.Len() != 2 {
		t.Errorf("unexpected set after unmarshal: %v", f.IDs())
	}
}

func TestParseTheme(t *testing.T) {
	if ParseTheme("dark") != ThemeDark {
		t.Error("dark should parse as ThemeDark")
	}
	if ParseTheme("solarized") != ThemeLight {
		t.Error("unknown themes should fall back to light")
	}
}
