package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"

	"github.com/csheth/studyscout/internal/annotate"
)

type stage int

const (
	stageSearch stage = iota
	stageMistakes
	stageDetail
	stageModal
	stagePicker
)

// Facet names double as the wire keys of the search endpoint.
const (
	facetSubject         = "subject"
	facetKnowledgePoints = "knowledge_points"
	facetTags            = "tags"
)

const appTagline = "Review your study chats with StudyScout."

const (
	minViewportWidth          = 40
	viewportHorizontalPadding = 4
	maxAccuracyRows           = 4
	titleClipLimit            = 60
)

type keymap struct {
	openDetail    key.Binding
	editSummary   key.Binding
	toggleMistake key.Binding
	runSearch     key.Binding
	clearFilters  key.Binding
	pickSubject   key.Binding
	pickPoints    key.Binding
	pickTags      key.Binding
	mistakeBook   key.Binding
	back          key.Binding
	quit          key.Binding
	toggleHelp    key.Binding
}

func newKeymap() keymap {
	return keymap{
		openDetail:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open chat")),
		editSummary:   key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit summary")),
		toggleMistake: key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "toggle mistake")),
		runSearch:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "search")),
		clearFilters:  key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear filters")),
		pickSubject:   key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "subject")),
		pickPoints:    key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "knowledge points")),
		pickTags:      key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "tags")),
		mistakeBook:   key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "mistake book")),
		back:          key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		quit:          key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		toggleHelp:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
	}
}

// ShortHelp feeds the one-line footer rendered by bubbles' help model.
func (k keymap) ShortHelp() []key.Binding {
	return []key.Binding{k.openDetail, k.runSearch, k.mistakeBook, k.toggleHelp, k.quit}
}

// FullHelp groups bindings for the expanded footer.
func (k keymap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.openDetail, k.editSummary, k.toggleMistake},
		{k.runSearch, k.clearFilters, k.mistakeBook},
		{k.pickSubject, k.pickPoints, k.pickTags},
		{k.back, k.toggleHelp, k.quit},
	}
}

// chatItem adapts an annotated chat for the bubbles list.
type chatItem struct {
	chat annotate.Chat
}

func (i chatItem) Title() string {
	title := displayTitle(i.chat.Chat)
	if i.chat.Meta.IsMistake {
		title = "✗ " + title
	}
	return title
}

func (i chatItem) Description() string {
	parts := make([]string, 0, 4)
	if i.chat.Meta.Subject != "" {
		parts = append(parts, i.chat.Meta.Subject)
	}
	if len(i.chat.Meta.KnowledgePoints) > 0 {
		parts = append(parts, strings.Join(i.chat.Meta.KnowledgePoints, ", "))
	}
	if len(i.chat.Meta.Tags) > 0 {
		parts = append(parts, "#"+strings.Join(i.chat.Meta.Tags, " #"))
	}
	parts = append(parts, i.chat.TimeRange)
	return strings.Join(parts, " • ")
}

func (i chatItem) FilterValue() string {
	fields := []string{
		i.chat.Title,
		i.chat.Chat.Chat.Title,
		i.chat.Meta.Subject,
		strings.Join(i.chat.Meta.KnowledgePoints, " "),
		strings.Join(i.chat.Meta.Tags, " "),
	}
	return strings.Join(fields, " ")
}
