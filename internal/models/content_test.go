package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalQuestionScalarCorrect(t *testing.T) {
	data := `{"type":"multiple-choice","question":"Pick one","options":["a","b","c"],"correct":1}`

	var q Question
	require.NoError(t, json.Unmarshal([]byte(data), &q))

	assert.Equal(t, MultipleChoice, q.Type)
	assert.Equal(t, "Pick one", q.Prompt)
	assert.Equal(t, []int{1}, q.Key.Indices)
}

func TestUnmarshalQuestionListCorrect(t *testing.T) {
	data := `{"type":"reading-passage","question":"Pick any","options":["a","b","c"],"correct":[0,2]}`

	var q Question
	require.NoError(t, json.Unmarshal([]byte(data), &q))
	assert.Equal(t, []int{0, 2}, q.Key.Indices)
}

func TestUnmarshalFillInBlankVariants(t *testing.T) {
	var single Question
	require.NoError(t, json.Unmarshal([]byte(`{"type":"fill-in-blank","question":"Capital?","correct":"Paris"}`), &single))
	assert.Equal(t, []string{"Paris"}, single.Key.Texts)

	var many Question
	require.NoError(t, json.Unmarshal([]byte(`{"type":"fill-in-blank","question":"Colour?","correct":["gray","grey"]}`), &many))
	assert.Equal(t, []string{"gray", "grey"}, many.Key.Texts)
}

func TestUnmarshalDragDrop(t *testing.T) {
	data := `{"type":"drag-drop","question":"Order the words","items":["b","a"],"correct":["a","b"]}`

	var q Question
	require.NoError(t, json.Unmarshal([]byte(data), &q))
	assert.Equal(t, []string{"a", "b"}, q.Key.Order)
	assert.Equal(t, []string{"b", "a"}, q.Items)
}

func TestUnmarshalRejectsMissingOrMistypedCorrect(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"missing correct", `{"type":"multiple-choice","question":"?"}`},
		{"text for choice", `{"type":"multiple-choice","question":"?","correct":"a"}`},
		{"index for drag-drop", `{"type":"drag-drop","question":"?","correct":2}`},
		{"unknown type", `{"type":"essay","question":"?","correct":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var q Question
			assert.Error(t, json.Unmarshal([]byte(tt.data), &q))
		})
	}
}

func TestMarshalPreservesScalarConvention(t *testing.T) {
	q := Question{
		Type:    MultipleChoice,
		Prompt:  "Pick one",
		Options: []string{"a", "b"},
		Key:     AnswerKey{Indices: []int{1}},
	}

	data, err := json.Marshal(q)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"multiple-choice","question":"Pick one","options":["a","b"],"items":null,"correct":1}`, string(data))

	q.Key.Indices = []int{0, 1}
	data, err = json.Marshal(q)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"correct":[0,1]`)
}

func TestQuestionRoundTrip(t *testing.T) {
	original := Question{
		Type:   FillInBlank,
		Prompt: "Capital of France?",
		Key:    AnswerKey{Texts: []string{"Paris", "paris"}},
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded Question
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, original.Key, decoded.Key)
}

func TestBookAggregates(t *testing.T) {
	book := Book{Chapters: []Chapter{
		{Title: "Basics", Questions: make([]Question, 3)},
		{Title: "Grammar", Questions: make([]Question, 2)},
	}}

	assert.Equal(t, 5, book.TotalQuestions())
	assert.Equal(t, []string{"Basics", "Grammar"}, book.ChapterTitles())
}

func TestQuestionTypePredicates(t *testing.T) {
	assert.True(t, MultipleChoice.IsChoice())
	assert.True(t, ReadingPassage.IsChoice())
	assert.False(t, FillInBlank.IsChoice())
	assert.False(t, DragDrop.IsChoice())

	assert.True(t, DragDrop.Valid())
	assert.False(t, QuestionType("essay").Valid())
}
