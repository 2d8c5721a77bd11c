package webui

import (
	"encoding/json"
	"sort"
)

// Chat is one stored conversation as the backend returns it. Fields
// the UI never touches are left out; unknown fields are ignored on
// decode so schema growth on the server does not break the client.
type Chat struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Chat      Payload `json:"chat"`
	UpdatedAt int64   `json:"updated_at"`
	CreatedAt int64   `json:"created_at"`
	Archived  bool    `json:"archived"`
	Pinned    bool    `json:"pinned"`
	Meta      Meta    `json:"meta"`
}

// Meta carries the study annotations attached to a chat. Every field
// is optional on the wire.
type Meta struct {
	Subject         string   `json:"subject"`
	KnowledgePoints []string `json:"knowledge_points"`
	Tags            []string `json:"tags"`
	IsMistake       bool     `json:"is_mistake"`
}

// Payload is the inner chat document holding the transcript.
type Payload struct {
	Title   string  `json:"title"`
	History History `json:"history"`
}

// History stores messages keyed by message ID, mirroring the
// backend's graph-shaped transcript store.
type History struct {
	Messages  map[string]Message `json:"messages"`
	CurrentID string             `json:"currentId"`
}

// Ordered returns the messages sorted by timestamp, oldest first.
// Messages without a timestamp sort before timestamped ones; ties
// fall back to the message ID so the order is stable.
func (h History) Ordered() []Message {
	out := make([]Message, 0, len(h.Messages))
	for id, msg := range h.Messages {
		if msg.ID == "" {
			msg.ID = id
		}
		out = append(out, msg)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp < out[j].Timestamp
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Message is a single transcript entry.
type Message struct {
	ID        string
	Role      string
	Content   string
	Timestamp int64
}

// UnmarshalJSON tolerates rich message content: the backend stores
// plain strings for text chats but may attach structured payloads for
// multimodal ones. Anything that is not a string decodes to "".
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID        string          `json:"id"`
		Role      string          `json:"role"`
		Content   json.RawMessage `json:"content"`
		Timestamp int64           `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.ID = raw.ID
	m.Role = raw.Role
	m.Timestamp = raw.Timestamp
	m.Content = ""
	if len(raw.Content) > 0 {
		var text string
		if err := json.Unmarshal(raw.Content, &text); err == nil {
			m.Content = text
		}
	}
	return nil
}

// Statistics lists the facet values known to the backend, each sorted
// alphabetically server-side, plus the total number of chats.
type Statistics struct {
	Subjects        []string `json:"subjects"`
	KnowledgePoints []string `json:"knowledge_points"`
	Tags            []string `json:"tags"`
	TotalChats      int      `json:"total_chats"`
}

// Summary is the AI-generated study summary for one chat.
type Summary struct {
	Subject         string   `json:"subject"`
	KnowledgePoints []string `json:"knowledge_points"`
	Summary         string   `json:"summary"`
}

// SummaryForm updates a chat's study annotations. Nil fields are left
// untouched on the server, so a partial edit sends only what changed.
type SummaryForm struct {
	Subject         *string   `json:"subject,omitempty"`
	KnowledgePoints *[]string `json:"knowledge_points,omitempty"`
	Tags            *[]string `json:"tags,omitempty"`
}

// SubjectStats aggregates one subject's chats for the progress view.
type SubjectStats struct {
	Total           int      `json:"total"`
	Mistakes        int      `json:"mistakes"`
	KnowledgePoints []string `json:"knowledge_points"`
}
