package server

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"agentrix/internal/instrument"
	"agentrix/internal/metrics"
)

// Agent produces a reply to a chat message.
type Agent = instrument.Func[string, string]

// FlightStatusAgent is an example agent that answers flight status questions, reporting each tool
// it executes as a user action.
type FlightStatusAgent struct {
	recorder *instrument.Recorder
}

// NewFlightStatusAgent creates a flight status agent reporting tool executions through emitter.
func NewFlightStatusAgent(emitter metrics.Emitter) *FlightStatusAgent {
	return &FlightStatusAgent{recorder: instrument.NewRecorder(emitter)}
}

// Respond answers input.
func (a *FlightStatusAgent) Respond(ctx context.Context, input string) (string, error) {
	if !strings.Contains(input, "flight") {
		return "I'm sorry, I couldn't process your request.", nil
	}

	flightID := ExtractFlightID(input)

	a.recorder.LogUserAction(ctx, "tool_executed", map[string]interface{}{
		"tool":       "flight_lookup",
		"parameters": []string{flightID},
	})

	return fmt.Sprintf("Flight %s status: On time", flightID), nil
}

// ExtractFlightID returns the first all-digit word of input, or "unknown".
func ExtractFlightID(input string) string {
	for _, word := range strings.Fields(input) {
		if isDigits(word) {
			return word
		}
	}

	return "unknown"
}

func isDigits(word string) bool {
	for _, r := range word {
		if !unicode.IsDigit(r) {
			return false
		}
	}

	return word != ""
}
