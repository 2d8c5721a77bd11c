package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/csheth/studyscout/internal/webui"
)

func (m *model) View() string {
	switch m.stage {
	case stageSearch:
		return m.viewSearch()
	case stageMistakes:
		return m.viewMistakes()
	case stageDetail:
		return m.viewDetail()
	case stageModal:
		return m.viewModal()
	case stagePicker:
		return m.viewPicker()
	default:
		return ""
	}
}

func (m *model) viewSearch() string {
	return joinNonEmpty([]string{
		m.headerView(),
		m.facetBarView(),
		m.searchList.View(),
		m.statusView(),
		m.help.View(m.keys),
	})
}

func (m *model) viewMistakes() string {
	return joinNonEmpty([]string{
		m.headerView(),
		m.accuracyView(),
		m.mistakeList.View(),
		m.statusView(),
		m.help.View(m.keys),
	})
}

func (m *model) viewDetail() string {
	header := lipgloss.JoinVertical(
		lipgloss.Left,
		titleStyle.Render(wordwrap.String(m.detail.title, m.layout.viewportWidth)),
		m.metaLine(),
	)
	body := m.detail.viewport.View()
	if m.detail.loading {
		body = helperStyle.Render(fmt.Sprintf("%s Loading chat…", m.spinner.View()))
	}
	return joinNonEmpty([]string{
		header,
		body,
		m.statusView(),
		helperStyle.Render("↑/↓ scrolls • e edits annotations • m toggles mistake • esc goes back"),
	})
}

func (m *model) viewModal() string {
	labels := []string{"Subject", "Knowledge points", "Tags"}
	fields := []string{m.modal.subject.View(), m.modal.points.View(), m.modal.tags.View()}

	var b strings.Builder
	b.WriteString(sectionHeaderStyle.Render("Annotate: " + m.modal.title))
	b.WriteString("\n\n")
	for i := range labels {
		if i == m.modal.focus {
			b.WriteString(currentLineStyle.Render("▸ " + labels[i]))
		} else {
			b.WriteString("  " + labels[i])
		}
		b.WriteString("\n")
		b.WriteString(fields[i])
		b.WriteString("\n")
	}
	if m.modal.summary != "" {
		b.WriteString("\n")
		b.WriteString(sectionHeaderStyle.Render("AI summary"))
		b.WriteString("\n")
		b.WriteString(helperStyle.Render(wordwrap.String(m.modal.summary, m.layout.modalWidth-6)))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(helperStyle.Render("tab next field • ctrl+g AI draft • ctrl+s save • esc close"))

	box := modalBoxStyle.Width(m.layout.modalWidth).Render(b.String())
	return joinNonEmpty([]string{m.headerView(), box, m.statusView()})
}

func (m *model) viewPicker() string {
	var b strings.Builder
	b.WriteString(sectionHeaderStyle.Render(m.picker.title))
	b.WriteString("\n\n")

	start, end := m.pickerWindow()
	for i := start; i < end; i++ {
		choice := m.picker.choices[i]
		marker := "  "
		if m.pickerChoiceActive(choice) {
			marker = "● "
		}
		if i == m.picker.cursor {
			b.WriteString(currentLineStyle.Render("▸ " + marker + choice))
		} else {
			b.WriteString("  " + marker + choice)
		}
		b.WriteString("\n")
	}
	if len(m.picker.choices) > end-start {
		b.WriteString(helperStyle.Render(fmt.Sprintf("%d/%d", m.picker.cursor+1, len(m.picker.choices))))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	if m.picker.facetName == facetSubject {
		b.WriteString(helperStyle.Render("enter picks (picking the active value unpicks) • esc closes"))
	} else {
		b.WriteString(helperStyle.Render("enter/space toggles • esc closes"))
	}

	box := pickerBoxStyle.Width(m.layout.modalWidth).Render(b.String())
	return joinNonEmpty([]string{m.headerView(), box, m.statusView()})
}

func (m *model) headerView() string {
	tagline := appTagline
	if m.choicesReady {
		tagline = fmt.Sprintf("%s  %d chats on record.", appTagline, m.choices.TotalChats)
	}
	return lipgloss.JoinVertical(
		lipgloss.Left,
		titleStyle.Render("StudyScout"),
		taglineStyle.Render(tagline),
	)
}

func (m *model) facetBarView() string {
	var chips []string
	if subject := m.controller.SingleValue(facetSubject); subject != "" {
		chips = append(chips, facetChipStyle.Render("subject: "+subject))
	}
	for _, point := range m.controller.MultiValues(facetKnowledgePoints) {
		chips = append(chips, facetChipStyle.Render("point: "+point))
	}
	for _, tag := range m.controller.MultiValues(facetTags) {
		chips = append(chips, facetChipStyle.Render("#"+tag))
	}
	if len(chips) == 0 {
		return helperStyle.Render("No filters. u subject, p points, t tags, s searches.")
	}
	return lipgloss.JoinVertical(
		lipgloss.Left,
		strings.Join(chips, " "),
		helperStyle.Render("c clears filters, s runs the search."),
	)
}

func (m *model) accuracyView() string {
	if !m.overviewReady {
		return helperStyle.Render("Accuracy table is loading…")
	}
	lines := []string{
		sectionHeaderStyle.Render(fmt.Sprintf("Accuracy %d%%  (%d chats, %d mistakes)",
			m.overview.Accuracy, m.overview.TotalChats, m.overview.TotalMistakes)),
	}
	rows := m.overview.Subjects
	overflow := 0
	if len(rows) > maxAccuracyRows {
		overflow = len(rows) - maxAccuracyRows
		rows = rows[:maxAccuracyRows]
	}
	for _, row := range rows {
		lines = append(lines, fmt.Sprintf("%s %3d%%  %d/%d mistakes",
			accuracySubjectStyle.Render(row.Subject), row.Accuracy, row.Mistakes, row.Total))
	}
	if overflow > 0 {
		lines = append(lines, helperStyle.Render(fmt.Sprintf("… and %d more subjects", overflow)))
	}
	return strings.Join(lines, "\n")
}

func (m *model) metaLine() string {
	meta := m.detail.chat.Meta
	var parts []string
	if meta.Subject != "" {
		parts = append(parts, "Subject: "+meta.Subject)
	}
	if len(meta.KnowledgePoints) > 0 {
		parts = append(parts, "Points: "+strings.Join(meta.KnowledgePoints, ", "))
	}
	if len(meta.Tags) > 0 {
		tags := make([]string, 0, len(meta.Tags))
		for _, tag := range meta.Tags {
			tags = append(tags, "#"+tag)
		}
		parts = append(parts, strings.Join(tags, " "))
	}
	if meta.IsMistake {
		parts = append(parts, errorStyle.Render("✗ mistake"))
	}
	if len(parts) == 0 {
		return helperStyle.Render("No annotations yet; press e to add some.")
	}
	return helperStyle.Render(strings.Join(parts, "  •  "))
}

func (m *model) statusView() string {
	var parts []string
	if m.errorMessage != "" {
		parts = append(parts, errorStyle.Render(m.errorMessage))
	}
	if m.infoMessage != "" {
		message := m.infoMessage
		if m.busy() {
			message = fmt.Sprintf("%s %s", m.spinner.View(), message)
		}
		parts = append(parts, helperStyle.Render(message))
	}
	if badges := m.jobBadges(); badges != "" {
		parts = append(parts, statusBarStyle.Render(badges))
	}
	return strings.Join(parts, "\n")
}

func (m *model) jobBadges() string {
	if len(m.activeJobs) == 0 {
		return ""
	}
	kinds := make([]string, 0, len(m.activeJobs))
	for _, snapshot := range m.activeJobs {
		kinds = append(kinds, string(snapshot.Kind))
	}
	sort.Strings(kinds)
	return strings.Join(kinds, "  •  ")
}

// renderDetail rebuilds the transcript markdown for the current viewport
// width. Glamour failures fall back to the raw markdown rather than hiding
// the chat.
func (m *model) renderDetail() {
	markdown := buildTranscript(m.detail.chat)
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(m.layout.viewportWidth),
	)
	if err != nil {
		m.detail.viewport.SetContent(markdown)
		m.detail.rendered = true
		return
	}
	rendered, err := renderer.Render(markdown)
	if err != nil {
		m.detail.viewport.SetContent(markdown)
	} else {
		m.detail.viewport.SetContent(rendered)
	}
	m.detail.rendered = true
}

func buildTranscript(chat webui.Chat) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", displayTitle(chat))

	messages := chat.Chat.History.Ordered()
	if len(messages) == 0 {
		b.WriteString("\n_No messages stored for this chat._\n")
		return b.String()
	}
	for _, message := range messages {
		switch message.Role {
		case "user":
			b.WriteString("\n### You\n\n")
		case "assistant":
			b.WriteString("\n### Assistant\n\n")
		default:
			role := message.Role
			if role == "" {
				role = "note"
			}
			fmt.Fprintf(&b, "\n### %s\n\n", role)
		}
		content := strings.TrimSpace(message.Content)
		if content == "" {
			content = "_(empty message)_"
		}
		b.WriteString(content)
		b.WriteString("\n")
	}
	return b.String()
}

func joinNonEmpty(parts []string) string {
	filtered := make([]string, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		filtered = append(filtered, part)
	}
	return strings.Join(filtered, "\n\n")
}

var (
	titleStyle           = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	taglineStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("147")).Italic(true)
	sectionHeaderStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81"))
	helperStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	errorStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	statusBarStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#8ecae6")).Padding(0, 1)
	currentLineStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#8ecae6"))
	facetChipStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#ffd166")).Padding(0, 1)
	accuracySubjectStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("110")).Width(18)
	modalBoxStyle        = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#7f5af0")).Padding(1, 2)
	pickerBoxStyle       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#56526e")).Padding(1, 2)
)
