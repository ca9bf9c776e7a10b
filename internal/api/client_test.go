package api

import (
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
)

func TestTokenTracker(t *testing.T) {
	tracker := NewTokenTracker()

	tracker.Add(100, 50)
	tracker.Add(200, 75)

	input, output := tracker.Total()
	if input != 300 || output != 125 {
		t.Errorf("Total() = %d, %d, want 300, 125", input, output)
	}
	if tracker.Calls() != 2 {
		t.Errorf("Calls() = %d, want 2", tracker.Calls())
	}

	tracker.Reset()
	input, output = tracker.Total()
	if input != 0 || output != 0 || tracker.Calls() != 0 {
		t.Error("Reset did not clear tracked usage")
	}
}

func TestTokenTrackerCost(t *testing.T) {
	tracker := NewTokenTracker()
	tracker.Add(1_000_000, 1_000_000)

	// $3/1M input + $15/1M output
	if cost := tracker.Cost(); cost != 18.0 {
		t.Errorf("Cost() = %.2f, want 18.00", cost)
	}
}

func TestTranslateModelForBedrock(t *testing.T) {
	got := translateModelForBedrock(anthropic.ModelClaudeSonnet4_20250514)
	want := anthropic.Model("us.anthropic.claude-sonnet-4-20250514-v1:0")
	if got != want {
		t.Errorf("translateModelForBedrock = %s, want %s", got, want)
	}

	// Unknown models pass through unchanged.
	custom := anthropic.Model("us.anthropic.custom-v1:0")
	if got := translateModelForBedrock(custom); got != custom {
		t.Errorf("custom model translated to %s, want unchanged", got)
	}
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	if _, err := NewClient(ClientConfig{}); err == nil {
		t.Error("expected error when no API key is configured")
	}
}

func TestNewClientWithAPIKey(t *testing.T) {
	client, err := NewClient(ClientConfig{APIKey: "test-key"})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if client.Model() != anthropic.ModelClaudeSonnet4_20250514 {
		t.Errorf("default model = %s", client.Model())
	}
	if client.Tracker() == nil {
		t.Error("client has no token tracker")
	}
}
