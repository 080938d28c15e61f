package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestBudget はエンコーディングを取得できない環境 (オフライン等) ではテストをスキップする
func newTestBudget(t *testing.T, limit int) *Budget {
	t.Helper()
	b, err := NewBudget(limit)
	if err != nil {
		t.Skipf("tiktoken encoding unavailable: %v", err)
	}
	return b
}

func TestBudget_Fit(t *testing.T) {
	b := newTestBudget(t, 10)

	n, err := b.Fit("hello world")
	require.NoError(t, err)
	assert.Positive(t, n)

	long := strings.Repeat("token ", 50)
	n, err = b.Fit(long)
	assert.ErrorIs(t, err, ErrPromptTooLarge)
	assert.Greater(t, n, 10)
}

func TestBudget_NoLimit(t *testing.T) {
	b := newTestBudget(t, 0)

	_, err := b.Fit(strings.Repeat("token ", 1000))
	assert.NoError(t, err)
	assert.Equal(t, 0, b.Count(""))
}
