package store

import "testing"

func TestSettingsSeedDefaults(t *testing.T) {
	ss := NewSettingsStore(testDB(t))

	goal, err := ss.GetInt("donation_goal", 0)
	if err != nil {
		t.Fatalf("get donation_goal: %v", err)
	}
	if goal != 50000 {
		t.Errorf("donation_goal = %d, want 50000", goal)
	}

	policy, err := ss.Get("rank_policy")
	if err != nil {
		t.Fatalf("get rank_policy: %v", err)
	}
	if policy != "standard" {
		t.Errorf("rank_policy = %q, want %q", policy, "standard")
	}
}

func TestSettingsGetIntFallback(t *testing.T) {
	ss := NewSettingsStore(testDB(t))

	got, err := ss.GetInt("no_such_key", 42)
	if err != nil {
		t.Fatalf("get missing key: %v", err)
	}
	if got != 42 {
		t.Errorf("fallback = %d, want 42", got)
	}

	// Non-numeric value also falls back.
	ss.Set("rank_policy", "competition")
	got, err = ss.GetInt("rank_policy", 7)
	if err != nil {
		t.Fatalf("get non-numeric: %v", err)
	}
	if got != 7 {
		t.Errorf("fallback = %d, want 7", got)
	}
}

func TestSettingsSetUpsert(t *testing.T) {
	ss := NewSettingsStore(testDB(t))

	if err := ss.Set("donation_goal", "75000"); err != nil {
		t.Fatalf("set existing key: %v", err)
	}
	goal, _ := ss.GetInt("donation_goal", 0)
	if goal != 75000 {
		t.Errorf("donation_goal = %d, want 75000", goal)
	}

	if err := ss.Set("brand_color", "#FF0000"); err != nil {
		t.Fatalf("set new key: %v", err)
	}
	val, err := ss.Get("brand_color")
	if err != nil {
		t.Fatalf("get new key: %v", err)
	}
	if val != "#FF0000" {
		t.Errorf("brand_color = %q, want %q", val, "#FF0000")
	}
}
