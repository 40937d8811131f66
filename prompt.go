package main

import (
	"encoding/json"
	"fmt"
	"strings"
)

const maxPromptBodyChars = 200

const clusterSchemaName = "ticket_intent_assignments"

const clusterSystemInstruction = `You organize support tickets into intents.
For each ticket decide either "match_existing" (reuse one of the listed
intents, give its intent_id) or "create_new" (invent a new intent, give
category_l1/category_l2/category_l3 and intent_name). Every ticket gets
exactly one decision. Set confidence between 0 and 1 and a short rationale.`

// ClusterRequest is everything one reasoning-service call needs: the prompt
// pair, the response schema, and the task configuration used for routing.
type ClusterRequest struct {
	System      string
	User        string
	Schema      map[string]any
	SchemaName  string
	Temperature float64
}

// BuildClusterRequest is pure: it renders tickets and known intents into a
// reasoning-service request and performs no I/O.
func BuildClusterRequest(tickets []Ticket, intents []Intent, temperature float64) ClusterRequest {
	var ticketLines strings.Builder
	for i, t := range tickets {
		body := strings.TrimSpace(t.Body)
		if len(body) > maxPromptBodyChars {
			body = body[:maxPromptBodyChars] + "..."
		}
		ticketLines.WriteString(fmt.Sprintf("[%d] %s\n%s\n\n", i, strings.TrimSpace(t.Subject), body))
	}

	intentBlock := "There are no existing intents. Every ticket must receive a \"create_new\" decision."
	if len(intents) > 0 {
		var intentLines strings.Builder
		intentLines.WriteString("Existing intents:\n")
		for _, intent := range intents {
			path := intent.CategoryPath()
			if path == "" {
				path = "(uncategorized)"
			}
			intentLines.WriteString(fmt.Sprintf("- %s — %s (id: %s)\n", path, intent.Name, intent.ID))
		}
		intentBlock = intentLines.String()
	}

	user := intentBlock + "\nAssign these tickets:\n\n" + ticketLines.String()

	return ClusterRequest{
		System:      clusterSystemInstruction,
		User:        user,
		Schema:      ClusterResponseSchema(),
		SchemaName:  clusterSchemaName,
		Temperature: temperature,
	}
}

// ClusterResponseSchema describes the required response shape: an object
// with an "assignments" list, one entry per ticket.
func ClusterResponseSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"assignments": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"ticket_index": map[string]any{"type": "integer"},
						"decision": map[string]any{
							"type": "string",
							"enum": []string{DecisionMatchExisting, DecisionCreateNew},
						},
						"intent_id": map[string]any{
							"type":        "string",
							"description": "required for match_existing, omitted for create_new",
						},
						"category_l1": map[string]any{"type": "string"},
						"category_l2": map[string]any{"type": "string"},
						"category_l3": map[string]any{"type": "string"},
						"intent_name": map[string]any{
							"type":        "string",
							"description": "required for create_new",
						},
						"confidence": map[string]any{"type": "number"},
						"rationale":  map[string]any{"type": "string"},
					},
					"required": []string{"ticket_index", "decision", "confidence", "rationale"},
				},
			},
		},
		"required": []string{"assignments"},
	}
}

// renderSchema inlines the response schema into the system prompt; the
// service has no schema channel of its own.
func renderSchema(schema map[string]any) string {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return ""
	}
	return string(data)
}
