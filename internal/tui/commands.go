package tui

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/csheth/studyscout/internal/facet"
	"github.com/csheth/studyscout/internal/webui"
)

func statisticsJob(backend Backend, timeout time.Duration) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, timeout)
		defer cancel()
		stats, err := backend.Statistics(ctx)
		return statisticsResultMsg{stats: stats, err: err}, err
	}
}

func searchJob(backend Backend, timeout time.Duration, criteria facet.Criteria) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, timeout)
		defer cancel()
		chats, err := backend.SearchChats(ctx, criteria)
		return searchResultMsg{chats: chats, err: err}, err
	}
}

func chatJob(backend Backend, timeout time.Duration, chatID string) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, timeout)
		defer cancel()
		chat, err := backend.GetChat(ctx, chatID)
		return chatResultMsg{chatID: chatID, chat: chat, err: err}, err
	}
}

func summarizeJob(backend Backend, timeout time.Duration, chatID string) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, timeout)
		defer cancel()
		summary, err := backend.Summarize(ctx, chatID)
		return summarizeResultMsg{chatID: chatID, summary: summary, err: err}, err
	}
}

func saveSummaryJob(backend Backend, timeout time.Duration, chatID string, form webui.SummaryForm) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, timeout)
		defer cancel()
		chat, err := backend.UpdateSummary(ctx, chatID, form)
		return summarySavedMsg{chatID: chatID, chat: chat, err: err}, err
	}
}

func toggleMistakeJob(backend Backend, timeout time.Duration, chatID string) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, timeout)
		defer cancel()
		chat, err := backend.ToggleMistake(ctx, chatID)
		return mistakeToggledMsg{chatID: chatID, chat: chat, err: err}, err
	}
}

func mistakesJob(backend Backend, timeout time.Duration) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, timeout)
		defer cancel()
		chats, err := backend.MistakeChats(ctx)
		return mistakesResultMsg{chats: chats, err: err}, err
	}
}

func overviewJob(backend Backend, timeout time.Duration) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, timeout)
		defer cancel()
		stats, err := backend.SubjectStatistics(ctx)
		return overviewResultMsg{stats: stats, err: err}, err
	}
}

// displayTitle picks the best available title for a chat and clips it
// for list rows.
func displayTitle(chat webui.Chat) string {
	title := strings.TrimSpace(chat.Title)
	if title == "" {
		title = strings.TrimSpace(chat.Chat.Title)
	}
	if title == "" {
		return "(untitled chat)"
	}
	runes := []rune(title)
	if len(runes) <= titleClipLimit {
		return title
	}
	return strings.TrimSpace(string(runes[:titleClipLimit-1])) + "…"
}

// splitList parses a comma-separated input field into trimmed,
// non-empty values. Both ASCII and fullwidth commas separate, since
// subjects and points are often typed in Chinese.
func splitList(value string) []string {
	fields := strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == '，'
	})
	out := make([]string, 0, len(fields))
	for _, field := range fields {
		if trimmed := strings.TrimSpace(field); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
