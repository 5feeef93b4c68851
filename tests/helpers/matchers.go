package helpers

import (
	"github.com/hbomb79/Mnemo/internal/http/websocket"
	"github.com/hbomb79/go-chanassert"
)

// MatchDownloadOutcome matches the DOWNLOAD_COMPLETE message for the
// operation provided, if the result of the download has the outcome given.
func MatchDownloadOutcome(operationID string, outcome string) chanassert.Matcher[websocket.SocketMessage] {
	return chanassert.MatchPredicate(func(message websocket.SocketMessage) bool {
		if message.Title != "DOWNLOAD_COMPLETE" {
			return false
		}

		operation, ok := updateArguments(message)["operation"].(map[string]any)
		if !ok || operation["id"] != operationID {
			return false
		}

		result, ok := operation["result"].(map[string]any)
		return ok && result["outcome"] == outcome
	})
}

func updateArguments(message websocket.SocketMessage) map[string]any {
	arguments, _ := message.Body["arguments"].(map[string]any)
	return arguments
}
