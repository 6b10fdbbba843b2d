package tui

import (
	"context"
	"fmt"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragchat/internal/domain"
)

type fakeSession struct {
	asked      []string
	terminated bool
	err        error
}

func (f *fakeSession) ID() string { return "test-session" }

func (f *fakeSession) Ask(_ context.Context, q string) (string, []domain.SearchResult, error) {
	f.asked = append(f.asked, q)
	if f.err != nil {
		return "", nil, f.err
	}
	return "Paris", []domain.SearchResult{{
		Chunk: domain.Chunk{Text: "Rome is in Italy. Paris is the capital of France."},
		Score: 0.8,
	}}, nil
}

func (f *fakeSession) Terminate() { f.terminated = true }

func sized(t *testing.T, s Asker) Model {
	t.Helper()
	m, _ := New(context.Background(), s, "A document about capitals.").Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	return m.(Model)
}

func submit(t *testing.T, m Model, text string) (Model, tea.Cmd) {
	t.Helper()
	m.input.SetValue(text)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return next.(Model), cmd
}

func TestModel_AsksAndShowsAnswer(t *testing.T) {
	fs := &fakeSession{}
	m := sized(t, fs)
	assert.Contains(t, m.View(), "A document about capitals.")

	m, cmd := submit(t, m, "What is the capital of France?")
	require.NotNil(t, cmd)
	assert.True(t, m.busy)
	assert.Equal(t, "", m.input.Value())

	next, _ := m.Update(cmd())
	m = next.(Model)
	assert.False(t, m.busy)
	assert.Equal(t, []string{"What is the capital of France?"}, fs.asked)
	assert.Contains(t, m.renderTranscript(), "A: Paris")
	assert.Contains(t, m.View(), "Source 1/1")
}

func TestModel_ErrorIsShown(t *testing.T) {
	fs := &fakeSession{err: fmt.Errorf("%w: %w", domain.ErrGeneration, domain.ErrAuth)}
	m := sized(t, fs)
	m, cmd := submit(t, m, "Anything?")
	next, _ := m.Update(cmd())
	m = next.(Model)
	assert.Contains(t, m.status, "rejected the credentials")
	assert.Contains(t, m.renderTranscript(), "Error:")
}

func TestModel_ExitKeywordQuits(t *testing.T) {
	fs := &fakeSession{}
	_, cmd := submit(t, sized(t, fs), "sair")
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	assert.True(t, ok)
	assert.True(t, fs.terminated)
	assert.Empty(t, fs.asked)
}

func TestHighlightBestSentence(t *testing.T) {
	out := highlightBestSentence("Rome is in Italy. Paris is the capital of France.", "capital of France")
	assert.Contains(t, out, "Rome is in Italy.")
	assert.Contains(t, out, "Paris is the capital of France.")
	assert.Equal(t, "plain", highlightBestSentence("plain", "the"))
}
