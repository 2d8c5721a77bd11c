package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/csheth/studyscout/internal/webui"
)

func keyRunes(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func seedSearchResults(t *testing.T, m *model, chats []webui.Chat) {
	t.Helper()
	if _, err := m.controller.Begin(); err != nil {
		t.Fatalf("begin: %v", err)
	}
	m.Update(searchResultMsg{chats: chats})
	if len(m.searchChats) != len(chats) {
		t.Fatalf("seeded %d chats, model holds %d", len(chats), len(m.searchChats))
	}
}

func TestInitStartsBootSearch(t *testing.T) {
	m := newTestModel(t, &fakeBackend{})
	if cmd := m.Init(); cmd == nil {
		t.Fatal("init should schedule startup jobs")
	}
	if !m.controller.Searching() {
		t.Fatal("boot search should be in flight after init")
	}
}

func TestSearchResultPopulatesList(t *testing.T) {
	m := newTestModel(t, &fakeBackend{})
	seedSearchResults(t, m, []webui.Chat{
		{ID: "c1", Title: "Quadratic equations", UpdatedAt: 1700000000},
		{ID: "c2", Title: "Trig identities", UpdatedAt: 1699900000},
	})

	if m.controller.Searching() {
		t.Fatal("search should be idle once the result lands")
	}
	if m.searchChats[0].TimeRange != "3 days ago" {
		t.Fatalf("time range mismatch: %q", m.searchChats[0].TimeRange)
	}
	if len(m.searchList.Items()) != 2 {
		t.Fatalf("list items not set, got %d", len(m.searchList.Items()))
	}
	if m.errorMessage != "" {
		t.Fatalf("unexpected error message %q", m.errorMessage)
	}
	if m.infoMessage != "2 chats loaded." {
		t.Fatalf("unexpected info message %q", m.infoMessage)
	}
}

func TestSearchFailureKeepsPreviousResults(t *testing.T) {
	m := newTestModel(t, &fakeBackend{})
	seedSearchResults(t, m, []webui.Chat{{ID: "c1", UpdatedAt: 1700000000}})

	if _, cmd := m.startSearch(); cmd == nil {
		t.Fatal("expected a search job to start")
	}
	m.Update(searchResultMsg{err: errors.New("no route to host")})

	if len(m.searchChats) != 1 {
		t.Fatalf("previous results should survive a failed search, got %d", len(m.searchChats))
	}
	if !strings.Contains(m.errorMessage, "no route to host") {
		t.Fatalf("error message should carry the cause, got %q", m.errorMessage)
	}
	if m.infoMessage != "Press s to retry." {
		t.Fatalf("retry hint missing, got %q", m.infoMessage)
	}
	if m.controller.Searching() {
		t.Fatal("failed search should return the controller to idle")
	}
}

func TestUnsolicitedSearchResultDropped(t *testing.T) {
	m := newTestModel(t, &fakeBackend{})
	m.Update(searchResultMsg{chats: []webui.Chat{{ID: "stray"}}})
	if len(m.searchChats) != 0 {
		t.Fatalf("result without a search in flight should be dropped, got %d chats", len(m.searchChats))
	}
}

func TestSecondSearchRefusedWhileRunning(t *testing.T) {
	m := newTestModel(t, &fakeBackend{})
	if _, cmd := m.startSearch(); cmd == nil {
		t.Fatal("first search should start")
	}
	if _, cmd := m.startSearch(); cmd != nil {
		t.Fatal("second search should be refused while one runs")
	}
	if m.infoMessage != "A search is already running." {
		t.Fatalf("unexpected info message %q", m.infoMessage)
	}
}

func TestClearFiltersGuardedWhileSearching(t *testing.T) {
	m := newTestModel(t, &fakeBackend{})
	m.controller.SetSingle(facetSubject, "Math")
	if _, err := m.controller.Begin(); err != nil {
		t.Fatalf("begin: %v", err)
	}

	m.Update(keyRunes('c'))
	if !m.controller.HasActiveFilters() {
		t.Fatal("filters should survive while a search is running")
	}
	if m.infoMessage != "Wait for the current search to finish." {
		t.Fatalf("unexpected info message %q", m.infoMessage)
	}

	m.Update(searchResultMsg{})
	m.Update(keyRunes('c'))
	if m.controller.HasActiveFilters() {
		t.Fatal("filters should clear once the search is idle")
	}
	if len(m.searchChats) != 0 {
		t.Fatal("clear should also drop cached results")
	}
}

func TestPickerSingleSelectsAndCloses(t *testing.T) {
	m := newTestModel(t, &fakeBackend{})
	m.choices = webui.Statistics{Subjects: []string{"Math", "Physics"}}
	m.choicesReady = true

	m.Update(keyRunes('u'))
	if m.stage != stagePicker {
		t.Fatalf("expected picker stage, got %v", m.stage)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	if m.stage != stageSearch {
		t.Fatal("single picker should close after a pick")
	}
	if got := m.controller.SingleValue(facetSubject); got != "Physics" {
		t.Fatalf("subject not set, got %q", got)
	}

	// Reopening puts the cursor on the active value; picking it unsets.
	m.Update(keyRunes('u'))
	if m.picker.cursor != 1 {
		t.Fatalf("cursor should start on the active subject, got %d", m.picker.cursor)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if got := m.controller.SingleValue(facetSubject); got != "" {
		t.Fatalf("picking the active value should unset it, got %q", got)
	}
}

func TestPickerMultiTogglesAndStaysOpen(t *testing.T) {
	m := newTestModel(t, &fakeBackend{})
	m.choices = webui.Statistics{Tags: []string{"exam_prep", "review"}}
	m.choicesReady = true

	m.Update(keyRunes('t'))
	if m.stage != stagePicker {
		t.Fatalf("expected picker stage, got %v", m.stage)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if !m.controller.HasMulti(facetTags, "exam_prep") {
		t.Fatal("enter should add the tag")
	}
	if m.stage != stagePicker {
		t.Fatal("multi picker should stay open after a toggle")
	}
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.controller.HasMulti(facetTags, "exam_prep") {
		t.Fatal("second enter should remove the tag")
	}
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.stage != stageSearch {
		t.Fatal("esc should close the picker")
	}
}

func TestPickerRefusedWithoutChoices(t *testing.T) {
	m := newTestModel(t, &fakeBackend{})
	m.Update(keyRunes('p'))
	if m.stage != stageSearch {
		t.Fatal("picker should not open with no choices")
	}
	if m.infoMessage != "Facet choices are still loading." {
		t.Fatalf("unexpected info message %q", m.infoMessage)
	}
}

func TestStatisticsFailureIsNonFatal(t *testing.T) {
	m := newTestModel(t, &fakeBackend{})
	m.Update(statisticsResultMsg{err: errors.New("503")})
	if m.errorMessage != "" {
		t.Fatalf("statistics failure should not raise an error, got %q", m.errorMessage)
	}
	if m.choicesReady {
		t.Fatal("choices should not be marked ready on failure")
	}
	if m.infoMessage == "" {
		t.Fatal("expected a hint that facet choices are unavailable")
	}
}

func TestMistakeBookLoadsListAndAccuracy(t *testing.T) {
	m := newTestModel(t, &fakeBackend{})
	m.Update(keyRunes('g'))
	if m.stage != stageMistakes {
		t.Fatalf("expected mistake book stage, got %v", m.stage)
	}
	if !m.mistakesLoading || !m.overviewLoading {
		t.Fatal("entering the book should load both the list and the table")
	}

	m.Update(mistakesResultMsg{chats: []webui.Chat{
		{ID: "m1", Title: "Wrong limit", UpdatedAt: 1700000000, Meta: webui.Meta{IsMistake: true}},
	}})
	m.Update(overviewResultMsg{stats: map[string]webui.SubjectStats{
		"Math": {Total: 4, Mistakes: 1},
	}})

	if len(m.mistakeList.Items()) != 1 {
		t.Fatalf("mistake list not populated, got %d items", len(m.mistakeList.Items()))
	}
	if !m.overviewReady || m.overview.Accuracy != 75 {
		t.Fatalf("overview not built, ready=%v accuracy=%d", m.overviewReady, m.overview.Accuracy)
	}
	view := m.View()
	if !strings.Contains(view, "Accuracy 75%") {
		t.Fatal("view should show the overall accuracy")
	}
	if !strings.Contains(view, "Mistake Book") {
		t.Fatal("view should show the mistake book list")
	}

	m.Update(keyRunes('g'))
	if m.stage != stageSearch {
		t.Fatal("g should toggle back to the search screen")
	}
}

func TestDetailIgnoresResultForOtherChat(t *testing.T) {
	m := newTestModel(t, &fakeBackend{})
	seedSearchResults(t, m, []webui.Chat{{ID: "c1", Title: "Limits", UpdatedAt: 1700000000}})

	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.stage != stageDetail || !m.detail.loading {
		t.Fatalf("expected loading detail stage, got stage=%v loading=%v", m.stage, m.detail.loading)
	}

	m.Update(chatResultMsg{chatID: "other", chat: webui.Chat{ID: "other"}})
	if !m.detail.loading {
		t.Fatal("result for another chat should be ignored")
	}

	full := webui.Chat{ID: "c1", Title: "Limits", Chat: webui.Payload{History: webui.History{Messages: map[string]webui.Message{
		"m1": {Role: "user", Content: "What is a limit?", Timestamp: 100},
		"m2": {Role: "assistant", Content: "The value a function approaches.", Timestamp: 200},
	}}}}
	m.Update(chatResultMsg{chatID: "c1", chat: full})
	if m.detail.loading {
		t.Fatal("matching result should finish loading")
	}
	if !m.detail.rendered {
		t.Fatal("transcript should be rendered")
	}
}

func TestDetailErrorReturnsToCaller(t *testing.T) {
	m := newTestModel(t, &fakeBackend{})
	seedSearchResults(t, m, []webui.Chat{{ID: "c1", UpdatedAt: 1700000000}})

	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m.Update(chatResultMsg{chatID: "c1", err: errors.New("gone")})
	if m.stage != stageSearch {
		t.Fatalf("detail error should return to the search screen, got %v", m.stage)
	}
	if !strings.Contains(m.errorMessage, "could not open chat") {
		t.Fatalf("unexpected error message %q", m.errorMessage)
	}
}

func TestModalPrefillsAndBuildsForm(t *testing.T) {
	m := newTestModel(t, &fakeBackend{})
	seedSearchResults(t, m, []webui.Chat{{
		ID: "c1", Title: "Limits", UpdatedAt: 1700000000,
		Meta: webui.Meta{Subject: "Math", KnowledgePoints: []string{"limits"}, Tags: []string{"exam_prep"}},
	}})

	m.Update(keyRunes('e'))
	if m.stage != stageModal {
		t.Fatalf("expected modal stage, got %v", m.stage)
	}
	if got := m.modal.subject.Value(); got != "Math" {
		t.Fatalf("subject not prefilled, got %q", got)
	}
	if got := m.modal.points.Value(); got != "limits" {
		t.Fatalf("points not prefilled, got %q", got)
	}

	m.modal.subject.SetValue(" Physics ")
	m.modal.points.SetValue("kinematics, 动量守恒")
	m.modal.tags.SetValue("review")
	form := m.modal.form()
	if form.Subject == nil || *form.Subject != "Physics" {
		t.Fatalf("form subject mismatch: %#v", form.Subject)
	}
	if form.KnowledgePoints == nil || len(*form.KnowledgePoints) != 2 {
		t.Fatalf("form points mismatch: %#v", form.KnowledgePoints)
	}
	if form.Tags == nil || len(*form.Tags) != 1 || (*form.Tags)[0] != "review" {
		t.Fatalf("form tags mismatch: %#v", form.Tags)
	}
}

func TestModalSaveSuccessClosesAndPatches(t *testing.T) {
	m := newTestModel(t, &fakeBackend{})
	seedSearchResults(t, m, []webui.Chat{{ID: "c1", Title: "Limits", UpdatedAt: 1700000000}})

	m.Update(keyRunes('e'))
	m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	if !m.modal.saving {
		t.Fatal("ctrl+s should mark the modal as saving")
	}

	updated := webui.Chat{ID: "c1", Title: "Limits", UpdatedAt: 1700000000,
		Meta: webui.Meta{Subject: "Math", Tags: []string{"exam_prep"}}}
	m.Update(summarySavedMsg{chatID: "c1", chat: updated})

	if m.stage != stageSearch {
		t.Fatalf("modal should close after a save, got stage %v", m.stage)
	}
	if m.infoMessage != "Annotations updated." {
		t.Fatalf("unexpected info message %q", m.infoMessage)
	}
	if m.searchChats[0].Meta.Subject != "Math" {
		t.Fatalf("search row not patched: %#v", m.searchChats[0].Meta)
	}
}

func TestModalSaveFailureKeepsInputs(t *testing.T) {
	m := newTestModel(t, &fakeBackend{})
	seedSearchResults(t, m, []webui.Chat{{ID: "c1", UpdatedAt: 1700000000}})

	m.Update(keyRunes('e'))
	m.modal.subject.SetValue("Chemistry")
	m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	m.Update(summarySavedMsg{chatID: "c1", err: errors.New("409 conflict")})

	if m.stage != stageModal {
		t.Fatal("modal should stay open when the save fails")
	}
	if m.modal.saving {
		t.Fatal("saving flag should clear on failure")
	}
	if got := m.modal.subject.Value(); got != "Chemistry" {
		t.Fatalf("inputs should be kept, got subject %q", got)
	}
	if !strings.Contains(m.errorMessage, "409") {
		t.Fatalf("error message should carry cause, got %q", m.errorMessage)
	}
}

func TestModalClosedBeforeSaveStillPatches(t *testing.T) {
	m := newTestModel(t, &fakeBackend{})
	seedSearchResults(t, m, []webui.Chat{{ID: "c1", UpdatedAt: 1700000000}})

	m.Update(keyRunes('e'))
	m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.stage != stageSearch {
		t.Fatal("esc should close the modal even mid-save")
	}

	updated := webui.Chat{ID: "c1", UpdatedAt: 1700000000, Meta: webui.Meta{Subject: "Math"}}
	m.Update(summarySavedMsg{chatID: "c1", chat: updated})
	if m.searchChats[0].Meta.Subject != "Math" {
		t.Fatal("late save result should still patch the list")
	}
	if m.stage != stageSearch {
		t.Fatal("late save result should not change the stage")
	}
}

func TestSummarizeDraftFillsFields(t *testing.T) {
	m := newTestModel(t, &fakeBackend{})
	seedSearchResults(t, m, []webui.Chat{{ID: "c1", UpdatedAt: 1700000000, Meta: webui.Meta{Tags: []string{"keep_me"}}}})

	m.Update(keyRunes('e'))
	m.Update(tea.KeyMsg{Type: tea.KeyCtrlG})
	if !m.modal.summarizing {
		t.Fatal("ctrl+g should mark the modal as summarizing")
	}

	m.Update(summarizeResultMsg{chatID: "other", summary: webui.Summary{Subject: "Wrong"}})
	if m.modal.subject.Value() == "Wrong" {
		t.Fatal("draft for another chat should be ignored")
	}

	m.Update(summarizeResultMsg{chatID: "c1", summary: webui.Summary{
		Subject:         "Math",
		KnowledgePoints: []string{"limits", "derivatives"},
		Summary:         "Covers the definition of a limit.",
	}})
	if m.modal.summarizing {
		t.Fatal("draft arrival should clear the summarizing flag")
	}
	if got := m.modal.subject.Value(); got != "Math" {
		t.Fatalf("draft subject not applied, got %q", got)
	}
	if got := m.modal.points.Value(); got != "limits, derivatives" {
		t.Fatalf("draft points not applied, got %q", got)
	}
	if got := m.modal.tags.Value(); got != "keep_me" {
		t.Fatalf("tags should be untouched by a draft, got %q", got)
	}
	if m.modal.summary == "" {
		t.Fatal("draft prose should be stored for display")
	}
}

func TestToggleResultPatchesBothLists(t *testing.T) {
	m := newTestModel(t, &fakeBackend{})
	seedSearchResults(t, m, []webui.Chat{{ID: "c1", Title: "Limits", UpdatedAt: 1700000000}})

	flagged := webui.Chat{ID: "c1", Title: "Limits", UpdatedAt: 1700000000, Meta: webui.Meta{IsMistake: true}}
	m.Update(mistakeToggledMsg{chatID: "c1", chat: flagged})
	if !m.searchChats[0].Meta.IsMistake {
		t.Fatal("search row should be flagged after the toggle")
	}
	if m.infoMessage != "Added to the mistake book." {
		t.Fatalf("unexpected info message %q", m.infoMessage)
	}

	// Seed the book, then un-flag: the row must leave the book list.
	m.Update(keyRunes('g'))
	m.Update(mistakesResultMsg{chats: []webui.Chat{flagged}})
	if len(m.mistakeChats) != 1 {
		t.Fatalf("book not seeded, got %d", len(m.mistakeChats))
	}
	unflagged := flagged
	unflagged.Meta = webui.Meta{}
	m.Update(mistakeToggledMsg{chatID: "c1", chat: unflagged})
	if len(m.mistakeChats) != 0 {
		t.Fatalf("unflagged chat should leave the book, got %d rows", len(m.mistakeChats))
	}
	if m.infoMessage != "Removed from the mistake book." {
		t.Fatalf("unexpected info message %q", m.infoMessage)
	}
}

func TestFacetChipsRendered(t *testing.T) {
	m := newTestModel(t, &fakeBackend{})
	m.controller.SetSingle(facetSubject, "Math")
	m.controller.AddMulti(facetTags, "exam_prep")

	view := m.View()
	if !strings.Contains(view, "subject: Math") {
		t.Fatal("view should show the subject chip")
	}
	if !strings.Contains(view, "#exam_prep") {
		t.Fatal("view should show the tag chip")
	}
}

func TestHelpToggle(t *testing.T) {
	m := newTestModel(t, &fakeBackend{})
	if m.help.ShowAll {
		t.Fatal("full help should start collapsed")
	}
	m.Update(keyRunes('?'))
	if !m.help.ShowAll {
		t.Fatal("? should expand the help footer")
	}
	m.Update(keyRunes('?'))
	if m.help.ShowAll {
		t.Fatal("? should collapse the help footer again")
	}
}

func TestWindowResizeReflowsLists(t *testing.T) {
	m := newTestModel(t, &fakeBackend{})
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	if m.layout.windowWidth != 120 || m.layout.windowHeight != 40 {
		t.Fatalf("layout not updated: %dx%d", m.layout.windowWidth, m.layout.windowHeight)
	}
	if m.searchList.Width() != m.layout.listWidth {
		t.Fatalf("search list width %d, want %d", m.searchList.Width(), m.layout.listWidth)
	}
	if m.mistakeList.Height() != m.layout.bookListHeight {
		t.Fatalf("mistake list height %d, want %d", m.mistakeList.Height(), m.layout.bookListHeight)
	}
}
