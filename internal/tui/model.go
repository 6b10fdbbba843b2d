package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ragchat/internal/domain"
	"ragchat/internal/session"
	"ragchat/internal/textutil"
)

// Asker is the TUI-facing subset of a chat session.
type Asker interface {
	ID() string
	Ask(ctx context.Context, question string) (string, []domain.SearchResult, error)
	Terminate()
}

type exchange struct {
	question string
	answer   string
	err      error
	sources  []domain.SearchResult
}

// answerMsg carries the outcome of an Ask started from Update.
type answerMsg struct {
	question string
	answer   string
	sources  []domain.SearchResult
	err      error
}

// Model is the Bubble Tea model for the chat front end.
type Model struct {
	ctx      context.Context
	session  Asker
	input    textinput.Model
	viewport viewport.Model
	history  []exchange
	summary  string
	status   string
	busy     bool
	cursor   int
	ready    bool
}

// New creates a new TUI model instance.
func New(ctx context.Context, s Asker, summary string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question and press Enter ('sair' to quit)"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		ctx:      ctx,
		session:  s,
		input:    ti,
		viewport: vp,
		summary:  summary,
		status:   "Session " + s.ID(),
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and answer events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, th := transcriptBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + 1 + qh + 1 // header + summary, source, status, spacer
		vh := msg.Height - reserved - th
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh)
		m.refresh()
		return m, nil
	case answerMsg:
		m.busy = false
		m.history = append(m.history, exchange{question: msg.question, answer: msg.answer, err: msg.err, sources: msg.sources})
		m.cursor = 0
		if msg.err != nil {
			m.status = "Error: " + domain.Describe(msg.err)
		} else {
			m.status = fmt.Sprintf("Answered from %d chunk(s)", len(msg.sources))
		}
		m.refresh()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			m.session.Terminate()
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.busy {
				return m, nil
			}
			if session.IsExit(q) {
				m.session.Terminate()
				return m, tea.Quit
			}
			m.input.SetValue("")
			m.busy = true
			m.status = "Thinking..."
			return m, m.ask(q)
		case "up":
			if s := m.lastSources(); len(s) > 0 {
				m.cursor = (m.cursor - 1 + len(s)) % len(s)
				return m, nil
			}
		case "down":
			if s := m.lastSources(); len(s) > 0 {
				m.cursor = (m.cursor + 1) % len(s)
				return m, nil
			}
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) ask(q string) tea.Cmd {
	ctx, s := m.ctx, m.session
	return func() tea.Msg {
		answer, sources, err := s.Ask(ctx, q)
		return answerMsg{question: q, answer: answer, sources: sources, err: err}
	}
}

// View renders the TUI layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("RAG Chat")
	summary := summaryStyle.Render(m.summary)
	transcript := transcriptBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + summary + "\n" + transcript + "\n" + m.renderSource() + "\n" + input + "\n" + status
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m Model) lastSources() []domain.SearchResult {
	if len(m.history) == 0 {
		return nil
	}
	return m.history[len(m.history)-1].sources
}

func (m Model) renderTranscript() string {
	if len(m.history) == 0 {
		return "No questions yet."
	}
	var b strings.Builder
	for i, e := range m.history {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(questionStyle.Render("Q: " + e.question))
		b.WriteString("\n")
		if e.err != nil {
			b.WriteString(errorStyle.Render("Error: " + domain.Describe(e.err)))
			continue
		}
		b.WriteString("A: " + e.answer)
	}
	return b.String()
}

// renderSource shows the selected source of the last answer with the sentence
// that best matches the question highlighted.
func (m Model) renderSource() string {
	sources := m.lastSources()
	if len(sources) == 0 {
		return summaryStyle.Render("No sources.")
	}
	r := sources[m.cursor]
	title := fmt.Sprintf("Source %d/%d  score=%.3f  ", m.cursor+1, len(sources), r.Score)
	q := m.history[len(m.history)-1].question
	return summaryStyle.Render(title) + highlightBestSentence(r.Chunk.Text, q)
}

var (
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	questionStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true)
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	summaryStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

func highlightBestSentence(text, query string) string {
	spans := textutil.Sentences(text)
	if len(spans) == 0 {
		return text
	}
	sentences := make([]string, len(spans))
	for i, s := range spans {
		sentences[i] = s.Text
	}
	qTokens := make(map[string]struct{})
	for _, t := range textutil.Tokens(query) {
		qTokens[t] = struct{}{}
	}
	if len(qTokens) == 0 {
		return strings.Join(sentences, " ")
	}
	bestIdx, bestScore := 0, -1
	for i, s := range sentences {
		if score := tokenOverlapScore(qTokens, s); score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	sentences[bestIdx] = highlightStyle.Render(sentences[bestIdx])
	return strings.Join(sentences, " ")
}

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	for t := range textutil.TokenSet(sentence) {
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}
