// Package session runs the interactive question/answer loop of one user.
package session

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"ragchat/internal/conversation"
	"ragchat/internal/domain"
	"ragchat/internal/retrieval"
	"ragchat/internal/tracing"
)

type State int

const (
	Ready State = iota
	AwaitingInput
	Processing
	Terminated
)

func (s State) String() string {
	switch s {
	case Ready:
		return "READY"
	case AwaitingInput:
		return "AWAITING_INPUT"
	case Processing:
		return "PROCESSING"
	case Terminated:
		return "TERMINATED"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Retriever finds the chunks relevant to a question in the light of history.
type Retriever interface {
	Retrieve(ctx context.Context, question, history string) ([]domain.SearchResult, error)
}

// Answerer produces an answer from a question, history and context chunks.
type Answerer interface {
	Answer(ctx context.Context, question, history string, chunks []string) (string, error)
}

type Options struct {
	// ShowSources prints the retrieved chunks under every answer.
	ShowSources bool
	NoColor     bool
}

var exitWords = map[string]struct{}{"sair": {}, "exit": {}, "quit": {}}

// IsExit reports whether line asks to end the session.
func IsExit(line string) bool {
	_, ok := exitWords[strings.ToLower(strings.TrimSpace(line))]
	return ok
}

type Session struct {
	id        string
	tracker   *conversation.Tracker
	retriever Retriever
	answerer  Answerer
	opts      Options
	state     State

	promptColor *color.Color
	answerColor *color.Color
	errorColor  *color.Color
	dimColor    *color.Color
}

func New(tracker *conversation.Tracker, retriever Retriever, answerer Answerer, opts Options) *Session {
	s := &Session{
		id:          uuid.NewString(),
		tracker:     tracker,
		retriever:   retriever,
		answerer:    answerer,
		opts:        opts,
		state:       Ready,
		promptColor: color.New(color.FgCyan, color.Bold),
		answerColor: color.New(color.FgGreen, color.Bold),
		errorColor:  color.New(color.FgRed),
		dimColor:    color.New(color.Faint),
	}
	if opts.NoColor {
		for _, c := range []*color.Color{s.promptColor, s.answerColor, s.errorColor, s.dimColor} {
			c.DisableColor()
		}
	}
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) State() State { return s.state }

// History returns the turns currently fed back into retrieval and generation.
func (s *Session) History() []domain.Turn { return s.tracker.RecentHistory() }

// Ask answers one question. The turn is recorded only when an answer was
// produced.
func (s *Session) Ask(ctx context.Context, question string) (answer string, sources []domain.SearchResult, err error) {
	s.state = Processing
	defer func() {
		if s.state == Processing {
			s.state = AwaitingInput
		}
	}()

	ctx, span := tracing.Start(ctx, "turn",
		attribute.String("session.id", s.id),
		attribute.Int("history.turns", s.tracker.Len()),
	)
	defer func() { tracing.End(span, err) }()

	history := s.tracker.Format()
	sources, err = s.retriever.Retrieve(ctx, question, history)
	if err != nil {
		return "", nil, err
	}
	answer, err = s.answerer.Answer(ctx, question, history, retrieval.Texts(sources))
	if err != nil {
		return "", sources, err
	}
	s.tracker.Record(question, answer)
	return answer, sources, nil
}

// Terminate ends the session.
func (s *Session) Terminate() { s.state = Terminated }

// Run reads one question per line from in and writes answers to out until
// an exit keyword, end of input or cancellation of ctx.
func (s *Session) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		sc.Buffer(make([]byte, 64*1024), 1024*1024)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	s.dimColor.Fprintf(out, "Session %s\n", s.id)
	s.dimColor.Fprintln(out, "Ask a question about the document. Type 'sair' or 'exit' to quit.")
	slog.Debug("session started", "id", s.id)

	for {
		s.state = AwaitingInput
		s.promptColor.Fprint(out, "\nQuestion: ")

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			s.Terminate()
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(out)
				s.Terminate()
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			line = l
		}

		question := strings.TrimSpace(line)
		if question == "" {
			continue
		}
		if IsExit(question) {
			s.dimColor.Fprintln(out, "Bye.")
			s.Terminate()
			return nil
		}

		answer, sources, err := s.Ask(ctx, question)
		if err != nil {
			slog.Debug("turn failed", "id", s.id, "error", err)
			s.errorColor.Fprintln(out, "Error: "+domain.Describe(err))
			continue
		}
		s.answerColor.Fprint(out, "Answer: ")
		fmt.Fprintln(out, answer)
		if s.opts.ShowSources {
			s.printSources(out, sources)
		}
	}
}

func (s *Session) printSources(out io.Writer, sources []domain.SearchResult) {
	if len(sources) == 0 {
		return
	}
	s.dimColor.Fprintln(out, "Sources:")
	for i, r := range sources {
		text := r.Chunk.Text
		if runes := []rune(text); len(runes) > 80 {
			text = string(runes[:80]) + "..."
		}
		s.dimColor.Fprintf(out, "  [%d] %.3f chunk %d @%d: %s\n", i+1, r.Score, r.Chunk.Index, r.Chunk.Offset, text)
	}
}
