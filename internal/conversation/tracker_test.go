package conversation

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_KeepsLastN(t *testing.T) {
	tr := NewTracker(3)
	for i := 1; i <= 4; i++ {
		tr.Record(fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
	}
	hist := tr.RecentHistory()
	require.Len(t, hist, 3)
	assert.Equal(t, "q2", hist[0].Question)
	assert.Equal(t, "q4", hist[2].Question)
	assert.Equal(t, "a4", hist[2].Answer)
}

func TestTracker_Format(t *testing.T) {
	tr := NewTracker(0)
	assert.Equal(t, DefaultMaxTurns, tr.MaxTurns())
	assert.Equal(t, "", tr.Format())

	tr.Record("What is the capital of France?", "Paris")
	tr.Record("And Germany?", "Berlin")
	assert.Equal(t,
		"Previous question: What is the capital of France?\nPrevious answer: Paris\n"+
			"Previous question: And Germany?\nPrevious answer: Berlin",
		tr.Format())
}

func TestTracker_HistoryIsACopy(t *testing.T) {
	tr := NewTracker(2)
	tr.Record("q", "a")
	hist := tr.RecentHistory()
	hist[0].Answer = "changed"
	assert.Equal(t, "a", tr.RecentHistory()[0].Answer)

	tr.Reset()
	assert.Equal(t, 0, tr.Len())
}
