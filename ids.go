package lintas

import (
	"strings"

	"github.com/google/uuid"
)

// NewRequestID joins parts with "-" and appends a random suffix, following
// the {operation}-{entity}-{unique} convention. Requests that share leading
// parts can be canceled together with CancelByPrefix.
//
//	id := lintas.NewRequestID("ai-query", model) // ai-query-top-llm-5f0c...
func NewRequestID(parts ...string) string {
	kept := make([]string, 0, len(parts)+1)
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	kept = append(kept, uuid.NewString())
	return strings.Join(kept, "-")
}
