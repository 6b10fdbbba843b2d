package tfidf

import (
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"ragchat/internal/textutil"
)

// StateFile holds the fitted vocabulary inside the index directory.
const StateFile = "tfidf.gob"

// Embedder implements a simple TF-IDF vectorizer.
// It builds a vocabulary from the corpus and computes IDF values.
type Embedder struct {
	vocabulary map[string]int
	idf        []float64
}

type state struct {
	Terms []string
	IDF   []float64
}

// NewEmbedder creates an unfitted TF-IDF embedder.
func NewEmbedder() *Embedder {
	return &Embedder{vocabulary: make(map[string]int)}
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "tfidf" }

// Fit builds the vocabulary and IDF values from the chunk texts.
func (e *Embedder) Fit(corpus []string) error {
	if len(corpus) == 0 {
		return errors.New("empty corpus for TF-IDF fit")
	}
	df := make(map[string]int)
	for _, text := range corpus {
		seen := make(map[string]struct{})
		for _, tok := range textutil.Tokens(text) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}
	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	if len(terms) == 0 {
		return errors.New("no tokens found in corpus; ensure tokenizer supports your language")
	}
	idf := make([]float64, len(terms))
	n := float64(len(corpus))
	for i, term := range terms {
		// Smoothed IDF
		idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1.0
	}
	e.set(terms, idf)
	return nil
}

func (e *Embedder) set(terms []string, idf []float64) {
	e.vocabulary = make(map[string]int, len(terms))
	for i, t := range terms {
		e.vocabulary[t] = i
	}
	e.idf = idf
}

// Dimension returns the vocabulary size, 0 before fitting.
func (e *Embedder) Dimension() int { return len(e.idf) }

// Embed computes the L2-normalised TF-IDF vector of text. Words outside the
// vocabulary are ignored.
func (e *Embedder) Embed(_ context.Context, text string) ([]float32, error) {
	if len(e.idf) == 0 {
		return nil, errors.New("tfidf embedder not fitted")
	}
	tf := make(map[int]int)
	total := 0
	for _, tok := range textutil.Tokens(text) {
		if idx, ok := e.vocabulary[tok]; ok {
			tf[idx]++
			total++
		}
	}
	vec := make([]float32, len(e.idf))
	if total == 0 {
		return vec, nil
	}
	raw := make(map[int]float64, len(tf))
	norm := 0.0
	for idx, count := range tf {
		v := float64(count) / float64(total) * e.idf[idx]
		raw[idx] = v
		norm += v * v
	}
	norm = math.Sqrt(norm)
	for idx, v := range raw {
		vec[idx] = float32(v / norm)
	}
	return vec, nil
}

// Save writes the fitted vocabulary to dir.
func (e *Embedder) Save(dir string) error {
	terms := make([]string, len(e.idf))
	for t, i := range e.vocabulary {
		terms[i] = t
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(dir, StateFile)
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := gob.NewEncoder(f).Encode(state{Terms: terms, IDF: e.idf}); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Load restores a vocabulary written by Save.
func (e *Embedder) Load(dir string) error {
	f, err := os.Open(filepath.Join(dir, StateFile))
	if err != nil {
		return err
	}
	defer f.Close()
	var st state
	if err := gob.NewDecoder(f).Decode(&st); err != nil {
		return fmt.Errorf("decode %s: %w", StateFile, err)
	}
	if len(st.Terms) == 0 || len(st.Terms) != len(st.IDF) {
		return fmt.Errorf("%s: %d terms for %d idf values", StateFile, len(st.Terms), len(st.IDF))
	}
	e.set(st.Terms, st.IDF)
	return nil
}
