package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Conceptual-Machines/choreo-api/pkg/embedded"
)

type Loader struct{}

func NewPromptLoader() *Loader {
	return &Loader{}
}

// GetSystemPrompt loads the main system prompt
func (l *Loader) GetSystemPrompt() (string, error) {
	return strings.TrimSpace(string(embedded.SystemPromptTxt)), nil
}

// GetOutputContract loads the output contract template
func (l *Loader) GetOutputContract() (string, error) {
	return strings.TrimSpace(string(embedded.OutputContractTxt)), nil
}

// GetFewShotExamples loads the worked examples, each re-indented for inclusion in a prompt
func (l *Loader) GetFewShotExamples() ([]string, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(embedded.FewShotExamplesJSON, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse few-shot examples: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("no few-shot examples defined")
	}

	examples := make([]string, 0, len(raw))
	for i, msg := range raw {
		pretty, err := json.MarshalIndent(msg, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to format few-shot example %d: %w", i, err)
		}
		examples = append(examples, string(pretty))
	}
	return examples, nil
}
