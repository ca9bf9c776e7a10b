package specialist

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ShayCichocki/hivemind/internal/api"
	"github.com/ShayCichocki/hivemind/internal/quality"
	"github.com/ShayCichocki/hivemind/pkg/models"
)

// scoresMarker prefixes the self-assessment line specialists emit at
// the end of their output.
const scoresMarker = "SCORES:"

// Claude is a Capability backed by the Anthropic API. One instance is
// shared across specialist types; the system prompt is derived from
// the assignment's type per call.
type Claude struct {
	client    *api.Client
	maxTokens int64
}

// NewClaude creates an API-backed capability.
func NewClaude(client *api.Client, maxTokens int64) *Claude {
	return &Claude{client: client, maxTokens: maxTokens}
}

// Execute sends the sub-unit to the API and parses the self-reported
// quality scores from the trailing SCORES line. Output without a
// SCORES line comes back scoreless and will fail mandatory gates.
func (c *Claude) Execute(ctx context.Context, in *Input) (*quality.Result, error) {
	output, err := c.client.Complete(ctx, systemPrompt(in.Type), userPrompt(in), c.maxTokens)
	if err != nil {
		return nil, err
	}

	body, scores := splitScores(output)
	return &quality.Result{
		SubUnitID: in.SubUnit.ID,
		Output:    body,
		Scores:    scores,
	}, nil
}

// Cleanup is a no-op; the API client is owned by the caller.
func (c *Claude) Cleanup() error { return nil }

func systemPrompt(st models.SpecialistType) string {
	return fmt.Sprintf(`You are a %s specialist on a multi-specialist engineering team.
Complete the assigned work unit within your competency. Be concrete and complete.
End your response with a single line of self-assessed quality scores in [0,1]:
%s correctness=<v> completeness=<v> style=<v>`, st, scoresMarker)
}

func userPrompt(in *Input) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Task: %s\n", in.Task.Description)
	fmt.Fprintf(&sb, "Work unit (%s): %s\n", in.SubUnit.Competency, in.SubUnit.Description)

	if len(in.Context) > 0 {
		sb.WriteString("\nOutputs from earlier work units:\n")
		for id, out := range in.Context {
			fmt.Fprintf(&sb, "--- %s ---\n%s\n", id, out)
		}
	}
	return sb.String()
}

// splitScores separates the SCORES line from the output body. Malformed
// score entries are skipped rather than failing the whole result.
func splitScores(output string) (string, map[string]float64) {
	idx := strings.LastIndex(output, scoresMarker)
	if idx < 0 {
		return strings.TrimSpace(output), nil
	}

	body := strings.TrimSpace(output[:idx])
	scores := make(map[string]float64)

	for _, field := range strings.Fields(output[idx+len(scoresMarker):]) {
		key, val, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(val, 64)
		if err != nil || v < 0 || v > 1 {
			continue
		}
		scores[key] = v
	}
	return body, scores
}
