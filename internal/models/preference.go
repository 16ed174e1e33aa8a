package models

import "strings"

// Preference defaults applied when a subscriber has not set a field.
const (
	DefaultTopic  = "Technology"
	DefaultTone   = "Informative"
	DefaultFormat = "A concise summary"

	// MaxTopicWords bounds the search query sent upstream.
	MaxTopicWords = 5
)

// Preference is a subscriber's digest settings. It is owned by the profile
// system and read-only here.
type Preference struct {
	Topic  string `json:"topic"`
	Tone   string `json:"tone"`
	Format string `json:"format"`
}

// DefaultPreference returns the settings used for subscribers without a profile.
func DefaultPreference() Preference {
	return Preference{Topic: DefaultTopic, Tone: DefaultTone, Format: DefaultFormat}
}

// WithDefaults returns a copy with a sanitized topic and every blank field
// replaced by its default.
func (p Preference) WithDefaults() Preference {
	out := Preference{
		Topic:  SanitizeTopic(p.Topic),
		Tone:   strings.TrimSpace(p.Tone),
		Format: strings.TrimSpace(p.Format),
	}
	if out.Topic == "" {
		out.Topic = DefaultTopic
	}
	if out.Tone == "" {
		out.Tone = DefaultTone
	}
	if out.Format == "" {
		out.Format = DefaultFormat
	}
	return out
}

// SanitizeTopic collapses whitespace and keeps the first MaxTopicWords tokens.
func SanitizeTopic(topic string) string {
	words := strings.Fields(topic)
	if len(words) > MaxTopicWords {
		words = words[:MaxTopicWords]
	}
	return strings.Join(words, " ")
}
