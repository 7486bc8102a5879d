package mqtt

import (
	"fmt"
	"strings"
)

// expected: {prefix}/terminal/{terminalId}/{kind}/...
func ParseTerminalID(topic, prefix string) (string, error) {
	parts := strings.Split(topic, "/")
	prefixParts := strings.Split(prefix, "/")
	if len(parts) < len(prefixParts)+3 {
		return "", fmt.Errorf("invalid topic: %s", topic)
	}
	for i, p := range prefixParts {
		if parts[i] != p {
			return "", fmt.Errorf("topic prefix mismatch: %s", topic)
		}
	}
	if parts[len(prefixParts)] != "terminal" {
		return "", fmt.Errorf("invalid topic pattern: %s", topic)
	}
	id := parts[len(prefixParts)+1]
	if id == "" || id == "+" || id == "#" {
		return "", fmt.Errorf("invalid terminal id: %s", topic)
	}
	return id, nil
}

// parseOnline accepts the payload spellings terminals use for presence.
func parseOnline(payload []byte) bool {
	switch strings.TrimSpace(strings.ToLower(string(payload))) {
	case "1", "true", "online":
		return true
	}
	return false
}
