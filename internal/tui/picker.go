package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// pickerState is the facet chooser overlay. A single-valued facet closes on
// pick; multi-valued facets stay open so several values can be toggled in
// one visit. Pickers only open from the search screen.
type pickerState struct {
	facetName string
	title     string
	choices   []string
	cursor    int
}

func (m *model) openPicker(name string) (tea.Model, tea.Cmd) {
	var title string
	var choices []string
	switch name {
	case facetSubject:
		title = "Pick a subject"
		choices = m.choices.Subjects
	case facetKnowledgePoints:
		title = "Toggle knowledge points"
		choices = m.choices.KnowledgePoints
	case facetTags:
		title = "Toggle tags"
		choices = m.choices.Tags
	default:
		return m, nil
	}
	if len(choices) == 0 {
		if m.choicesReady {
			m.infoMessage = "The backend reports no values for this facet yet."
		} else {
			m.infoMessage = "Facet choices are still loading."
		}
		return m, nil
	}

	m.picker = pickerState{facetName: name, title: title, choices: choices}
	if name == facetSubject {
		if current := m.controller.SingleValue(name); current != "" {
			for i, choice := range choices {
				if choice == current {
					m.picker.cursor = i
					break
				}
			}
		}
	}
	m.stage = stagePicker
	m.errorMessage = ""
	m.infoMessage = ""
	return m, nil
}

func (m *model) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q":
		m.stage = stageSearch
		if m.controller.HasActiveFilters() {
			m.infoMessage = "Press s to run the search."
		}
		return m, nil

	case "up", "k":
		if m.picker.cursor > 0 {
			m.picker.cursor--
		}
		return m, nil

	case "down", "j":
		if m.picker.cursor < len(m.picker.choices)-1 {
			m.picker.cursor++
		}
		return m, nil

	case "enter", " ":
		choice := m.picker.choices[m.picker.cursor]
		if m.picker.facetName == facetSubject {
			if m.controller.SingleValue(facetSubject) == choice {
				m.controller.SetSingle(facetSubject, "")
				m.infoMessage = "Subject filter removed. Press s to run the search."
			} else {
				m.controller.SetSingle(facetSubject, choice)
				m.infoMessage = fmt.Sprintf("Subject set to %s. Press s to run the search.", choice)
			}
			m.stage = stageSearch
			return m, nil
		}
		if m.controller.HasMulti(m.picker.facetName, choice) {
			m.controller.RemoveMulti(m.picker.facetName, choice)
		} else {
			m.controller.AddMulti(m.picker.facetName, choice)
		}
		return m, nil
	}
	return m, nil
}

// pickerChoiceActive reports whether a choice is part of the current
// filters, for the picker's selection markers.
func (m *model) pickerChoiceActive(choice string) bool {
	if m.picker.facetName == facetSubject {
		return m.controller.SingleValue(facetSubject) == choice
	}
	return m.controller.HasMulti(m.picker.facetName, choice)
}

// pickerWindow returns the slice bounds of the visible choice rows, keeping
// the cursor inside the window when the list is longer than the screen.
func (m *model) pickerWindow() (int, int) {
	rows := m.layout.pickerRows
	if rows < 1 {
		rows = 1
	}
	start := 0
	if m.picker.cursor >= rows {
		start = m.picker.cursor - rows + 1
	}
	end := start + rows
	if end > len(m.picker.choices) {
		end = len(m.picker.choices)
	}
	return start, end
}
