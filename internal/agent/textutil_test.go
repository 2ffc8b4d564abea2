package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSyllables(t *testing.T) {
	tests := map[string]int{
		"table":   2,
		"make":    1,
		"rhythm":  1,
		"reading": 2,
		"a":       1,
		"...":     0,
	}
	for word, want := range tests {
		assert.Equal(t, want, Syllables(word), word)
	}
}

func TestSentencesAndParagraphs(t *testing.T) {
	assert.Equal(t, []string{"Hello world.", "How are you?", "Fine!"}, Sentences("Hello world. How are you? Fine!"))
	assert.Equal(t, []string{"tail without stop"}, Sentences("tail without stop"))
	assert.Equal(t, []string{"one", "two"}, Paragraphs("one\n\n  \n\ntwo\n"))
}

func TestFlesch(t *testing.T) {
	assert.Equal(t, Readability{ReadingEase: 50, Grade: 10}, Flesch(""))

	easy := Flesch("The cat sat. The dog ran.")
	hard := Flesch("Organizational transformation necessitates comprehensive institutional reconfiguration.")
	assert.Greater(t, easy.ReadingEase, hard.ReadingEase)
	assert.Less(t, easy.Grade, hard.Grade)
}

func TestMetrics(t *testing.T) {
	words, sentences, paragraphs, headings, avg := Metrics("## Title\n\nOne two three. Four five.\n\n- item")
	assert.Equal(t, 9, words)
	assert.Equal(t, 3, sentences)
	assert.Equal(t, 3, paragraphs)
	assert.Equal(t, 1, headings)
	assert.InDelta(t, 3.0, avg, 1e-9)
	assert.Equal(t, 1, ListItems("- a\ntext"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10, "..."))
	assert.Equal(t, "hello...", Truncate("hello world foo", 10, "..."))
}
