package suggestion

import (
	"encoding/json"
	"strings"

	"promptgate/internal/domain/models"
)

const fence = "```"

// blockedSubstrings mark an action as an external address
var blockedSubstrings = []string{".com", ".ru", ".org", ".net"}

// ExtractJSONArray pulls a JSON array out of a free-text model reply.
// If the reply contains a fenced code block, only the text between the first
// pair of fences is used; a leading "json" language tag is dropped.
// Returns ok=false when the cleaned text is not JSON or not an array.
func ExtractJSONArray(text string) (items []interface{}, ok bool) {
	cleaned := strings.TrimSpace(unfence(text))
	if len(cleaned) >= 4 && strings.EqualFold(cleaned[:4], "json") {
		cleaned = strings.TrimSpace(cleaned[4:])
	}

	var parsed interface{}
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, false
	}
	items, ok = parsed.([]interface{})
	return items, ok
}

// unfence returns the content between the first two fence markers. With fewer
// than two markers the text is returned unchanged.
func unfence(text string) string {
	start := strings.Index(text, fence)
	if start < 0 {
		return text
	}
	rest := text[start+len(fence):]
	end := strings.Index(rest, fence)
	if end < 0 {
		return text
	}
	return rest[:end]
}

// Filter keeps the objects whose action is not an external address.
// It returns the survivors and how many entries were dropped.
func Filter(items []interface{}) ([]models.Suggestion, int) {
	kept := make([]models.Suggestion, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		s := models.SuggestionFromObject(obj)
		if IsExternalAction(s.Action) {
			continue
		}
		kept = append(kept, s)
	}
	return kept, len(items) - len(kept)
}

// IsExternalAction reports whether an action looks like a link: an http(s)
// scheme or a well-known top-level domain anywhere in it, ignoring case.
func IsExternalAction(action string) bool {
	lower := strings.ToLower(action)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return true
	}
	for _, s := range blockedSubstrings {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}
