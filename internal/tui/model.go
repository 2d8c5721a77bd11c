package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/csheth/studyscout/internal/annotate"
	"github.com/csheth/studyscout/internal/facet"
	"github.com/csheth/studyscout/internal/progress"
	"github.com/csheth/studyscout/internal/webui"
)

// Backend is the slice of the webui client the TUI depends on. Tests swap in
// a fake; production wires *webui.Client.
type Backend interface {
	Statistics(ctx context.Context) (webui.Statistics, error)
	SearchChats(ctx context.Context, criteria facet.Criteria) ([]webui.Chat, error)
	GetChat(ctx context.Context, chatID string) (webui.Chat, error)
	Summarize(ctx context.Context, chatID string) (webui.Summary, error)
	UpdateSummary(ctx context.Context, chatID string, form webui.SummaryForm) (webui.Chat, error)
	ToggleMistake(ctx context.Context, chatID string) (webui.Chat, error)
	MistakeChats(ctx context.Context) ([]webui.Chat, error)
	SubjectStatistics(ctx context.Context) (map[string]webui.SubjectStats, error)
}

// Config wires runtime options into the TUI program.
type Config struct {
	Backend Backend
	Logger  *zap.Logger

	// Now stamps relative time ranges; tests pin it.
	Now func() time.Time

	RequestTimeout   time.Duration
	SummarizeTimeout time.Duration
}

// New returns a tea.Model ready to be mounted into a Program.
func New(config Config) tea.Model {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 15 * time.Second
	}
	if config.SummarizeTimeout <= 0 {
		config.SummarizeTimeout = 2 * time.Minute
	}

	delegate := list.NewDefaultDelegate()

	searchList := list.New([]list.Item{}, delegate, 0, 0)
	searchList.Title = "Study Chats"
	searchList.SetShowStatusBar(false)
	searchList.SetShowHelp(false)
	searchList.SetFilteringEnabled(true)
	searchList.DisableQuitKeybindings()

	mistakeList := list.New([]list.Item{}, delegate, 0, 0)
	mistakeList.Title = "Mistake Book"
	mistakeList.SetShowStatusBar(false)
	mistakeList.SetShowHelp(false)
	mistakeList.SetFilteringEnabled(true)
	mistakeList.DisableQuitKeybindings()

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	m := &model{
		config:  config,
		stage:   stageSearch,
		layout:  newPageLayout(),
		keys:    newKeymap(),
		help:    help.New(),
		spinner: spin,
		controller: facet.NewController[webui.Chat](
			facet.Single(facetSubject),
			facet.Multi(facetKnowledgePoints),
			facet.Multi(facetTags),
		),
		searchList:  searchList,
		mistakeList: mistakeList,
		jobs:        newJobBus(config.Logger),
		activeJobs:  map[string]jobSnapshot{},
		infoMessage: "Loading your chats…",
	}
	m.searchList.SetSize(m.layout.listWidth, m.layout.listHeight)
	m.mistakeList.SetSize(m.layout.listWidth, m.layout.bookListHeight)
	return m
}

type model struct {
	config Config
	stage  stage

	layout  pageLayout
	keys    keymap
	help    help.Model
	spinner spinner.Model

	controller *facet.Controller[webui.Chat]

	// choices feeds the facet pickers; loaded once at boot and refreshed
	// after every annotation save.
	choices      webui.Statistics
	choicesReady bool

	searchList  list.Model
	searchChats []annotate.Chat

	mistakeList     list.Model
	mistakeChats    []annotate.Chat
	mistakesLoading bool

	overview        progress.Overview
	overviewReady   bool
	overviewLoading bool

	detail detailState
	modal  modalState
	picker pickerState

	infoMessage  string
	errorMessage string

	jobs       *jobBus
	activeJobs map[string]jobSnapshot
}

type detailState struct {
	from     stage
	chatID   string
	title    string
	loading  bool
	chat     webui.Chat
	viewport viewport.Model
	rendered bool
}

// Result messages delivered by the job bus. Each carries the error from its
// backend call so Update stays the single place that reacts to failures.

type statisticsResultMsg struct {
	stats webui.Statistics
	err   error
}

type searchResultMsg struct {
	chats []webui.Chat
	err   error
}

type chatResultMsg struct {
	chatID string
	chat   webui.Chat
	err    error
}

type summarizeResultMsg struct {
	chatID  string
	summary webui.Summary
	err     error
}

type summarySavedMsg struct {
	chatID string
	chat   webui.Chat
	err    error
}

type mistakeToggledMsg struct {
	chatID string
	chat   webui.Chat
	err    error
}

type mistakesResultMsg struct {
	chats []webui.Chat
	err   error
}

type overviewResultMsg struct {
	stats map[string]webui.SubjectStats
	err   error
}

func (m *model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.spinner.Tick,
		m.jobs.Start(jobKindStatistics, statisticsJob(m.config.Backend, m.config.RequestTimeout)),
	}
	if criteria, err := m.controller.Begin(); err == nil {
		cmds = append(cmds, m.jobs.Start(jobKindSearch, searchJob(m.config.Backend, m.config.RequestTimeout, criteria)))
	}
	return tea.Batch(cmds...)
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case jobSignalMsg:
		m.activeJobs[msg.Snapshot.ID] = msg.Snapshot
		return m, nil

	case jobResultEnvelope:
		delete(m.activeJobs, msg.Snapshot.ID)
		if msg.Payload == nil {
			return m, nil
		}
		return m.Update(msg.Payload)

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		return m.handleKey(msg)

	case statisticsResultMsg:
		if msg.err != nil {
			if !m.choicesReady {
				m.infoMessage = "Facet choices unavailable; searching still works."
			}
			return m, nil
		}
		m.choices = msg.stats
		m.choicesReady = true
		return m, nil

	case searchResultMsg:
		return m.handleSearchResult(msg)

	case chatResultMsg:
		if m.stage != stageDetail || m.detail.chatID != msg.chatID {
			return m, nil
		}
		m.detail.loading = false
		if msg.err != nil {
			m.stage = m.detail.from
			m.errorMessage = fmt.Sprintf("could not open chat: %v", msg.err)
			return m, nil
		}
		m.errorMessage = ""
		m.detail.chat = msg.chat
		m.detail.title = displayTitle(msg.chat)
		m.renderDetail()
		return m, nil

	case summarizeResultMsg:
		if m.stage != stageModal || m.modal.chatID != msg.chatID {
			return m, nil
		}
		m.modal.summarizing = false
		if msg.err != nil {
			m.errorMessage = fmt.Sprintf("summarize failed: %v", msg.err)
			return m, nil
		}
		m.errorMessage = ""
		m.infoMessage = "Draft ready. Edit the fields, then ctrl+s to save."
		m.modal.applyDraft(msg.summary)
		return m, nil

	case summarySavedMsg:
		return m.handleSummarySaved(msg)

	case mistakeToggledMsg:
		if msg.err != nil {
			m.errorMessage = fmt.Sprintf("mistake toggle failed: %v", msg.err)
			return m, nil
		}
		m.errorMessage = ""
		if msg.chat.Meta.IsMistake {
			m.infoMessage = "Added to the mistake book."
		} else {
			m.infoMessage = "Removed from the mistake book."
		}
		cmds := []tea.Cmd{m.patchChat(msg.chat)}
		m.overviewReady = false
		if m.stage == stageMistakes {
			m.overviewLoading = true
			cmds = append(cmds,
				m.jobs.Start(jobKindOverview, overviewJob(m.config.Backend, m.config.RequestTimeout)),
				m.spinner.Tick,
			)
		}
		return m, tea.Batch(cmds...)

	case mistakesResultMsg:
		m.mistakesLoading = false
		if msg.err != nil {
			m.errorMessage = fmt.Sprintf("mistake book failed to load: %v", msg.err)
			return m, nil
		}
		m.errorMessage = ""
		m.mistakeChats = annotate.Records(msg.chats, annotate.RelativeRange(m.config.Now()))
		cmd := m.mistakeList.SetItems(chatItems(m.mistakeChats))
		m.mistakeList.ResetSelected()
		if !m.overviewLoading {
			m.infoMessage = ""
		}
		return m, cmd

	case overviewResultMsg:
		m.overviewLoading = false
		if msg.err != nil {
			m.errorMessage = fmt.Sprintf("accuracy stats failed to load: %v", msg.err)
			return m, nil
		}
		m.overview = progress.Build(msg.stats)
		m.overviewReady = true
		if !m.mistakesLoading {
			m.infoMessage = ""
		}
		return m, nil
	}

	return m, nil
}

func (m *model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.layout.Update(msg.Width, msg.Height)
	m.searchList.SetSize(m.layout.listWidth, m.layout.listHeight)
	m.mistakeList.SetSize(m.layout.listWidth, m.layout.bookListHeight)
	m.help.Width = msg.Width
	m.modal.resize(m.layout.modalWidth)
	if m.detail.chatID != "" {
		m.detail.viewport.Width = m.layout.viewportWidth
		m.detail.viewport.Height = m.layout.viewportHeight
		if !m.detail.loading {
			m.renderDetail()
		}
	}
	return m, nil
}

func (m *model) handleSearchResult(msg searchResultMsg) (tea.Model, tea.Cmd) {
	if err := m.controller.Finish(msg.chats, msg.err); err != nil {
		if errors.Is(err, facet.ErrNoSearchInFlight) {
			m.config.Logger.Warn("dropping search result with no search in flight")
			return m, nil
		}
		m.errorMessage = err.Error()
		m.infoMessage = "Press s to retry."
		return m, nil
	}
	m.errorMessage = ""
	m.searchChats = annotate.Records(m.controller.Results(), annotate.RelativeRange(m.config.Now()))
	cmd := m.searchList.SetItems(chatItems(m.searchChats))
	m.searchList.ResetSelected()
	switch {
	case len(m.searchChats) == 0 && m.controller.HasActiveFilters():
		m.infoMessage = "No chats matched. Adjust filters and press s."
	case len(m.searchChats) == 0:
		m.infoMessage = "No chats on the backend yet."
	default:
		m.infoMessage = fmt.Sprintf("%d chats loaded.", len(m.searchChats))
	}
	return m, cmd
}

func (m *model) handleSummarySaved(msg summarySavedMsg) (tea.Model, tea.Cmd) {
	stillOpen := m.stage == stageModal && m.modal.chatID == msg.chatID
	if msg.err != nil {
		if stillOpen {
			m.modal.saving = false
			m.errorMessage = fmt.Sprintf("save failed: %v", msg.err)
			m.infoMessage = "Inputs kept; press ctrl+s to retry."
		}
		return m, nil
	}
	cmds := []tea.Cmd{m.patchChat(msg.chat)}
	if stillOpen {
		m.modal.saving = false
		m.closeModal()
	}
	m.errorMessage = ""
	m.infoMessage = "Annotations updated."
	// Saved subjects, points, and tags may be brand new; refresh the
	// picker choices so they show up immediately.
	cmds = append(cmds, m.jobs.Start(jobKindStatistics, statisticsJob(m.config.Backend, m.config.RequestTimeout)))
	return m, tea.Batch(cmds...)
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.stage {
	case stageSearch:
		return m.handleSearchKey(msg)
	case stageMistakes:
		return m.handleMistakeKey(msg)
	case stageDetail:
		return m.handleDetailKey(msg)
	case stageModal:
		return m.handleModalKey(msg)
	case stagePicker:
		return m.handlePickerKey(msg)
	}
	return m, nil
}

func (m *model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// While the list filter prompt is open every key belongs to the list.
	if m.searchList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.searchList, cmd = m.searchList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.toggleHelp):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.runSearch):
		return m.startSearch()
	case key.Matches(msg, m.keys.clearFilters):
		if m.controller.Searching() {
			m.infoMessage = "Wait for the current search to finish."
			return m, nil
		}
		m.controller.Clear()
		m.searchChats = nil
		cmd := m.searchList.SetItems(nil)
		m.infoMessage = "Filters cleared. Press s to reload all chats."
		return m, cmd
	case key.Matches(msg, m.keys.pickSubject):
		return m.openPicker(facetSubject)
	case key.Matches(msg, m.keys.pickPoints):
		return m.openPicker(facetKnowledgePoints)
	case key.Matches(msg, m.keys.pickTags):
		return m.openPicker(facetTags)
	case key.Matches(msg, m.keys.mistakeBook):
		return m.enterMistakeBook()
	case key.Matches(msg, m.keys.openDetail):
		chat, ok := m.selectedSearchChat()
		return m.openDetail(chat, ok)
	case key.Matches(msg, m.keys.editSummary):
		chat, ok := m.selectedSearchChat()
		return m.openModalFor(chat, ok)
	case key.Matches(msg, m.keys.toggleMistake):
		chat, ok := m.selectedSearchChat()
		return m.toggleMistakeFor(chat, ok)
	}

	var cmd tea.Cmd
	m.searchList, cmd = m.searchList.Update(msg)
	return m, cmd
}

func (m *model) handleMistakeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.mistakeList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.mistakeList, cmd = m.mistakeList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.toggleHelp):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.mistakeBook):
		m.stage = stageSearch
		m.errorMessage = ""
		m.infoMessage = ""
		return m, nil
	case key.Matches(msg, m.keys.openDetail):
		chat, ok := m.selectedMistakeChat()
		return m.openDetail(chat, ok)
	case key.Matches(msg, m.keys.editSummary):
		chat, ok := m.selectedMistakeChat()
		return m.openModalFor(chat, ok)
	case key.Matches(msg, m.keys.toggleMistake):
		chat, ok := m.selectedMistakeChat()
		return m.toggleMistakeFor(chat, ok)
	}

	var cmd tea.Cmd
	m.mistakeList, cmd = m.mistakeList.Update(msg)
	return m, cmd
}

func (m *model) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back):
		m.stage = m.detail.from
		m.errorMessage = ""
		return m, nil
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.editSummary):
		if m.detail.loading {
			m.infoMessage = "Chat is still loading."
			return m, nil
		}
		return m.openModalFor(m.annotateOne(m.detail.chat), true)
	case key.Matches(msg, m.keys.toggleMistake):
		if m.detail.loading {
			m.infoMessage = "Chat is still loading."
			return m, nil
		}
		return m.toggleMistakeFor(m.annotateOne(m.detail.chat), true)
	}

	var cmd tea.Cmd
	m.detail.viewport, cmd = m.detail.viewport.Update(msg)
	return m, cmd
}

// startSearch snapshots the current filters and launches one backend search.
// A second press while one is running is refused, not queued.
func (m *model) startSearch() (tea.Model, tea.Cmd) {
	criteria, err := m.controller.Begin()
	if err != nil {
		m.infoMessage = "A search is already running."
		return m, nil
	}
	m.errorMessage = ""
	m.infoMessage = "Searching…"
	return m, tea.Batch(
		m.jobs.Start(jobKindSearch, searchJob(m.config.Backend, m.config.RequestTimeout, criteria)),
		m.spinner.Tick,
	)
}

func (m *model) enterMistakeBook() (tea.Model, tea.Cmd) {
	m.stage = stageMistakes
	m.errorMessage = ""
	m.infoMessage = "Loading mistake book…"
	m.mistakesLoading = true
	m.overviewLoading = true
	return m, tea.Batch(
		m.jobs.Start(jobKindMistakes, mistakesJob(m.config.Backend, m.config.RequestTimeout)),
		m.jobs.Start(jobKindOverview, overviewJob(m.config.Backend, m.config.RequestTimeout)),
		m.spinner.Tick,
	)
}

func (m *model) openDetail(chat annotate.Chat, ok bool) (tea.Model, tea.Cmd) {
	if !ok {
		m.infoMessage = "Nothing selected."
		return m, nil
	}
	vp := viewport.New(m.layout.viewportWidth, m.layout.viewportHeight)
	m.detail = detailState{
		from:     m.stage,
		chatID:   chat.ID,
		title:    displayTitle(chat.Chat),
		loading:  true,
		viewport: vp,
	}
	m.stage = stageDetail
	m.errorMessage = ""
	m.infoMessage = ""
	return m, tea.Batch(
		m.jobs.Start(jobKindChat, chatJob(m.config.Backend, m.config.RequestTimeout, chat.ID)),
		m.spinner.Tick,
	)
}

func (m *model) toggleMistakeFor(chat annotate.Chat, ok bool) (tea.Model, tea.Cmd) {
	if !ok {
		m.infoMessage = "Nothing selected."
		return m, nil
	}
	m.errorMessage = ""
	return m, m.jobs.Start(jobKindMistake, toggleMistakeJob(m.config.Backend, m.config.RequestTimeout, chat.ID))
}

func (m *model) selectedSearchChat() (annotate.Chat, bool) {
	item, ok := m.searchList.SelectedItem().(chatItem)
	if !ok {
		return annotate.Chat{}, false
	}
	return item.chat, true
}

func (m *model) selectedMistakeChat() (annotate.Chat, bool) {
	item, ok := m.mistakeList.SelectedItem().(chatItem)
	if !ok {
		return annotate.Chat{}, false
	}
	return item.chat, true
}

// patchChat folds a fresh copy of one chat back into every place it is
// shown: the search list, the mistake book, and the open detail view.
func (m *model) patchChat(chat webui.Chat) tea.Cmd {
	annotated := m.annotateOne(chat)
	var cmds []tea.Cmd

	for i := range m.searchChats {
		if m.searchChats[i].ID == chat.ID {
			m.searchChats[i] = annotated
			cmds = append(cmds, m.searchList.SetItem(i, chatItem{chat: annotated}))
			break
		}
	}

	if chat.Meta.IsMistake {
		for i := range m.mistakeChats {
			if m.mistakeChats[i].ID == chat.ID {
				m.mistakeChats[i] = annotated
				cmds = append(cmds, m.mistakeList.SetItem(i, chatItem{chat: annotated}))
				break
			}
		}
	} else {
		for i := range m.mistakeChats {
			if m.mistakeChats[i].ID == chat.ID {
				m.mistakeChats = append(m.mistakeChats[:i], m.mistakeChats[i+1:]...)
				m.mistakeList.RemoveItem(i)
				break
			}
		}
	}

	if m.detail.chatID == chat.ID && !m.detail.loading {
		m.detail.chat = chat
		m.detail.title = displayTitle(chat)
		m.renderDetail()
	}
	return tea.Batch(cmds...)
}

func (m *model) annotateOne(chat webui.Chat) annotate.Chat {
	return annotate.Records([]webui.Chat{chat}, annotate.RelativeRange(m.config.Now()))[0]
}

func (m *model) busy() bool {
	return m.controller.Searching() ||
		m.mistakesLoading ||
		m.overviewLoading ||
		m.detail.loading ||
		m.modal.summarizing ||
		m.modal.saving
}

func chatItems(chats []annotate.Chat) []list.Item {
	items := make([]list.Item, 0, len(chats))
	for _, chat := range chats {
		items = append(items, chatItem{chat: chat})
	}
	return items
}
