package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/csheth/studyscout/internal/annotate"
	"github.com/csheth/studyscout/internal/webui"
)

const modalFieldCount = 3

// modalState is the annotation editor overlay: subject, knowledge points,
// and tags for one chat, plus the optional AI-drafted summary text.
type modalState struct {
	from   stage
	chatID string
	title  string

	subject textinput.Model
	points  textinput.Model
	tags    textinput.Model
	focus   int

	summary     string
	summarizing bool
	saving      bool
}

func (m *model) openModalFor(chat annotate.Chat, ok bool) (tea.Model, tea.Cmd) {
	if !ok {
		m.infoMessage = "Nothing selected."
		return m, nil
	}

	subject := textinput.New()
	subject.Placeholder = "e.g. Math"
	subject.CharLimit = 60
	subject.SetValue(chat.Meta.Subject)

	points := textinput.New()
	points.Placeholder = "comma-separated knowledge points"
	points.CharLimit = 240
	points.SetValue(strings.Join(chat.Meta.KnowledgePoints, ", "))

	tags := textinput.New()
	tags.Placeholder = "comma-separated tags"
	tags.CharLimit = 240
	tags.SetValue(strings.Join(chat.Meta.Tags, ", "))

	m.modal = modalState{
		from:    m.stage,
		chatID:  chat.ID,
		title:   displayTitle(chat.Chat),
		subject: subject,
		points:  points,
		tags:    tags,
	}
	m.modal.resize(m.layout.modalWidth)
	m.stage = stageModal
	m.errorMessage = ""
	m.infoMessage = "ctrl+g drafts with AI, ctrl+s saves, esc closes."
	return m, m.modal.focusField(0)
}

func (m *model) closeModal() {
	m.stage = m.modal.from
	m.modal = modalState{}
}

func (m *model) handleModalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		// Closing is always allowed; a late draft or save result for this
		// chat is dropped by its chatID guard in Update.
		m.closeModal()
		m.infoMessage = ""
		m.errorMessage = ""
		return m, nil

	case "tab", "down":
		return m, m.modal.focusField((m.modal.focus + 1) % modalFieldCount)

	case "shift+tab", "up":
		return m, m.modal.focusField((m.modal.focus + modalFieldCount - 1) % modalFieldCount)

	case "ctrl+g":
		if m.modal.summarizing {
			m.infoMessage = "A draft is already being generated."
			return m, nil
		}
		m.modal.summarizing = true
		m.errorMessage = ""
		m.infoMessage = "Asking the backend for a draft…"
		return m, tea.Batch(
			m.jobs.Start(jobKindSummarize, summarizeJob(m.config.Backend, m.config.SummarizeTimeout, m.modal.chatID)),
			m.spinner.Tick,
		)

	case "ctrl+s":
		if m.modal.saving {
			m.infoMessage = "Save already in progress."
			return m, nil
		}
		m.modal.saving = true
		m.errorMessage = ""
		m.infoMessage = "Saving…"
		return m, tea.Batch(
			m.jobs.Start(jobKindSave, saveSummaryJob(m.config.Backend, m.config.RequestTimeout, m.modal.chatID, m.modal.form())),
			m.spinner.Tick,
		)
	}

	var cmd tea.Cmd
	switch m.modal.focus {
	case 0:
		m.modal.subject, cmd = m.modal.subject.Update(msg)
	case 1:
		m.modal.points, cmd = m.modal.points.Update(msg)
	case 2:
		m.modal.tags, cmd = m.modal.tags.Update(msg)
	}
	return m, cmd
}

// form always sends all three fields. The backend treats a present field as
// an overwrite, so sending the full set makes the editor the source of truth.
func (s *modalState) form() webui.SummaryForm {
	subject := strings.TrimSpace(s.subject.Value())
	points := splitList(s.points.Value())
	tags := splitList(s.tags.Value())
	return webui.SummaryForm{
		Subject:         &subject,
		KnowledgePoints: &points,
		Tags:            &tags,
	}
}

// applyDraft fills subject and knowledge points from the AI response. Tags
// are left alone: the summarizer does not produce them.
func (s *modalState) applyDraft(summary webui.Summary) {
	s.summary = summary.Summary
	s.subject.SetValue(summary.Subject)
	s.points.SetValue(strings.Join(summary.KnowledgePoints, ", "))
}

func (s *modalState) focusField(idx int) tea.Cmd {
	s.focus = idx
	var cmd tea.Cmd
	for i, field := range s.fields() {
		if i == idx {
			cmd = field.Focus()
		} else {
			field.Blur()
		}
	}
	return cmd
}

func (s *modalState) fields() []*textinput.Model {
	return []*textinput.Model{&s.subject, &s.points, &s.tags}
}

func (s *modalState) resize(width int) {
	w := width - 6
	if w < 20 {
		w = 20
	}
	s.subject.Width = w
	s.points.Width = w
	s.tags.Width = w
}
