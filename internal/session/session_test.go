package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragchat/internal/chunker"
	"ragchat/internal/conversation"
	"ragchat/internal/domain"
	"ragchat/internal/embedding/hashing"
	"ragchat/internal/generation"
	"ragchat/internal/index"
	"ragchat/internal/retrieval"
	"ragchat/internal/vectorstore/memory"
)

type fakeRetriever struct {
	calls     int
	histories []string
	err       error
}

func (f *fakeRetriever) Retrieve(_ context.Context, _, history string) ([]domain.SearchResult, error) {
	f.calls++
	f.histories = append(f.histories, history)
	if f.err != nil {
		return nil, f.err
	}
	return []domain.SearchResult{{Chunk: domain.Chunk{Text: "The sky is blue."}, Score: 0.5}}, nil
}

type fakeAnswerer struct {
	calls   int
	answers []string
	errs    []error
}

func (f *fakeAnswerer) Answer(context.Context, string, string, []string) (string, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.answers) {
		return f.answers[i], nil
	}
	return "ok", nil
}

func TestIsExit(t *testing.T) {
	for _, in := range []string{"sair", "SAIR", "  exit ", "Quit"} {
		assert.True(t, IsExit(in), in)
	}
	for _, in := range []string{"", "sair agora", "exiting"} {
		assert.False(t, IsExit(in), in)
	}
}

func TestRun_ExitSkipsRetrievalAndGeneration(t *testing.T) {
	r, a := &fakeRetriever{}, &fakeAnswerer{}
	s := New(conversation.NewTracker(5), r, a, Options{NoColor: true})
	assert.Equal(t, Ready, s.State())

	var out bytes.Buffer
	require.NoError(t, s.Run(context.Background(), strings.NewReader("sair\nWhat is the sky?\n"), &out))
	assert.Equal(t, Terminated, s.State())
	assert.Zero(t, r.calls)
	assert.Zero(t, a.calls)
	assert.Contains(t, out.String(), s.ID())
}

func TestRun_ErrorDoesNotRecordTurn(t *testing.T) {
	r := &fakeRetriever{}
	a := &fakeAnswerer{
		errs:    []error{fmt.Errorf("%w: %w: dial tcp: refused", domain.ErrGeneration, domain.ErrNetwork)},
		answers: []string{"", "Blue."},
	}
	s := New(conversation.NewTracker(5), r, a, Options{NoColor: true})

	var out bytes.Buffer
	in := "What color is the sky?\n\n   \nWhat color is the sky?\nexit\n"
	require.NoError(t, s.Run(context.Background(), strings.NewReader(in), &out))

	assert.Contains(t, out.String(), "Error: could not reach the LLM provider")
	assert.Contains(t, out.String(), "Answer: Blue.")
	assert.Equal(t, 2, r.calls)
	assert.Equal(t, []string{"", ""}, r.histories)
	require.Len(t, s.History(), 1)
	assert.Equal(t, "Blue.", s.History()[0].Answer)
}

func TestRun_EOFTerminates(t *testing.T) {
	s := New(conversation.NewTracker(5), &fakeRetriever{}, &fakeAnswerer{}, Options{NoColor: true})
	require.NoError(t, s.Run(context.Background(), strings.NewReader("What color is the sky?"), io.Discard))
	assert.Equal(t, Terminated, s.State())
	assert.Len(t, s.History(), 1)
}

func TestRun_CancelTerminates(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	ctx, cancel := context.WithCancel(context.Background())
	s := New(conversation.NewTracker(5), &fakeRetriever{}, &fakeAnswerer{}, Options{NoColor: true})

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, pr, io.Discard) }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
		assert.Equal(t, Terminated, s.State())
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestAsk_RetrievalError(t *testing.T) {
	r := &fakeRetriever{err: fmt.Errorf("%w: store offline", domain.ErrRetrieval)}
	a := &fakeAnswerer{}
	s := New(conversation.NewTracker(5), r, a, Options{})

	_, _, err := s.Ask(context.Background(), "q")
	assert.True(t, errors.Is(err, domain.ErrRetrieval))
	assert.Zero(t, a.calls)
	assert.Empty(t, s.History())
	assert.Equal(t, AwaitingInput, s.State())
}

// recordingEmbedder remembers every text it embedded.
type recordingEmbedder struct {
	*hashing.Embedder
	texts []string
}

func (r *recordingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	r.texts = append(r.texts, text)
	return r.Embedder.Embed(ctx, text)
}

// capitalsModel answers from the context it is given, like a well-behaved LLM.
type capitalsModel struct{}

func (capitalsModel) Name() string  { return "scripted" }
func (capitalsModel) Model() string { return "scripted-1" }
func (capitalsModel) Generate(_ context.Context, p domain.Prompt) (string, error) {
	switch {
	case strings.Contains(p.User, "Question: What is the capital of France?") && strings.Contains(p.User, "Paris is the capital of France."):
		return "Paris", nil
	case strings.Contains(p.User, "Question: And Germany?") &&
		strings.Contains(p.User, "Previous answer: Paris") &&
		strings.Contains(p.User, "Berlin is the capital of Germany."):
		return "Berlin", nil
	}
	return "There is not enough data to answer.", nil
}

func TestSession_FollowUpUsesHistory(t *testing.T) {
	ctx := context.Background()
	doc := domain.Document{ID: "caps", Path: "caps.txt", Content: "Paris is the capital of France.\nBerlin is the capital of Germany."}
	store := memory.NewStorage()
	_, err := index.NewManager(t.TempDir(), chunker.NewSentenceChunker(1, 0), hashing.NewEmbedder(0), store).Open(ctx, doc)
	require.NoError(t, err)

	emb := &recordingEmbedder{Embedder: hashing.NewEmbedder(0)}
	s := New(conversation.NewTracker(5), retrieval.New(emb, store, 2), generation.New(capitalsModel{}, time.Second), Options{NoColor: true, ShowSources: true})

	answer, sources, err := s.Ask(ctx, "What is the capital of France?")
	require.NoError(t, err)
	assert.Equal(t, "Paris", answer)
	assert.Equal(t, "Paris is the capital of France.", sources[0].Chunk.Text)

	var out bytes.Buffer
	require.NoError(t, s.Run(ctx, strings.NewReader("And Germany?\nsair\n"), &out))
	assert.Contains(t, out.String(), "Answer: Berlin")
	assert.Contains(t, out.String(), "Sources:")

	require.Len(t, emb.texts, 2)
	assert.Equal(t, "What is the capital of France?", emb.texts[0])
	assert.Contains(t, emb.texts[1], "Previous answer: Paris")
	assert.Contains(t, emb.texts[1], "Current question: And Germany?")

	hist := s.History()
	require.Len(t, hist, 2)
	assert.Equal(t, "Berlin", hist[1].Answer)
}
