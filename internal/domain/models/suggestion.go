package models

import "encoding/json"

// Suggestion is a follow-up action offered to the user.
// Label is display text; Action is an opaque token the client sends back
// as the action of a later request.
type Suggestion struct {
	Label  string
	Action string
	// Raw holds the object exactly as the model produced it, when the
	// suggestion came from a backend reply. Unknown fields survive here.
	Raw map[string]interface{}
}

// SuggestionFromObject builds a Suggestion from a decoded JSON object.
// Non-string label/action values leave the typed fields empty but stay in Raw.
func SuggestionFromObject(obj map[string]interface{}) Suggestion {
	s := Suggestion{Raw: obj}
	if label, ok := obj["label"].(string); ok {
		s.Label = label
	}
	if action, ok := obj["action"].(string); ok {
		s.Action = action
	}
	return s
}

// MarshalJSON returns the original object verbatim when there is one.
func (s Suggestion) MarshalJSON() ([]byte, error) {
	if s.Raw != nil {
		return json.Marshal(s.Raw)
	}
	return json.Marshal(map[string]string{
		"label":  s.Label,
		"action": s.Action,
	})
}

// UnmarshalJSON accepts any JSON object.
func (s *Suggestion) UnmarshalJSON(data []byte) error {
	var obj map[string]interface{}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*s = SuggestionFromObject(obj)
	return nil
}
