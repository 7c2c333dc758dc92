package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itqan-learning/progress-service/internal/events"
	"github.com/itqan-learning/progress-service/internal/grading"
	"github.com/itqan-learning/progress-service/internal/services"
	"github.com/itqan-learning/progress-service/internal/storage"
	"github.com/itqan-learning/progress-service/internal/utils"
	"github.com/itqan-learning/progress-service/internal/validator"
)

const testBookJSON = `{
  "chapters": [
    {
      "title": "Chapter 1: Basics",
      "content": {"passage": "Dogs are loyal animals."},
      "questions": [
        {"type": "multiple-choice", "question": "Pick the noun", "options": ["run", "dog", "fast"], "correct": 1},
        {"type": "fill-in-blank", "question": "The sky is ___", "correct": "blue"},
        {"type": "drag-drop", "question": "Order the words", "items": ["dog", "cat"], "correct": ["cat", "dog"]}
      ]
    }
  ]
}`

type apiFixture struct {
	router  *gin.Engine
	session services.SessionService
	pub     *events.GoChannelEventPublisher
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := utils.NewDevelopmentLogger()
	v := validator.New()

	bookPath := filepath.Join(t.TempDir(), "book.json")
	require.NoError(t, os.WriteFile(bookPath, []byte(testBookJSON), 0o644))
	content, err := services.LoadContent(context.Background(), bookPath, v, logger)
	require.NoError(t, err)

	pub := events.NewGoChannelEventPublisher(events.PublisherConfig{
		TopicName:  "notifications",
		BufferSize: 64,
		Logger:     slog.Default(),
	})
	t.Cleanup(func() { pub.Close() })

	buffer := NewNotificationBuffer(logger)
	require.NoError(t, buffer.Run(context.Background(), pub))

	store := storage.NewMemoryStore(0)
	ledger := services.NewLedgerService(grading.NewEngine(), logger)
	progress := services.NewProgressService(store, logger, "", 3, 1)
	certs := services.NewCertificateService(logger)
	session := services.NewSessionService(content, ledger, progress, certs, pub, v, logger, services.SessionTimings{
		AutoSaveInterval:  time.Hour,
		HeartbeatInterval: time.Hour,
		IdleWarningAfter:  time.Hour,
		TimeoutAfter:      2 * time.Hour,
	})
	require.NoError(t, session.Start(context.Background()))
	t.Cleanup(func() { session.Stop(context.Background()) })

	router := gin.New()
	NewHandlerManager(session, content, certs, buffer, logger).SetupRoutes(router)
	return &apiFixture{router: router, session: session, pub: pub}
}

func (f *apiFixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	w := f.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "progress-service")
}

func TestListAndGetChapters(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodGet, "/api/v1/chapters", "")
	require.Equal(t, http.StatusOK, w.Code)

	var list struct {
		Chapters       []map[string]interface{} `json:"chapters"`
		TotalQuestions int                      `json:"total_questions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 3, list.TotalQuestions)
	require.Len(t, list.Chapters, 1)
	assert.Equal(t, "Chapter 1: Basics", list.Chapters[0]["title"])

	w = f.do(t, http.MethodGet, "/api/v1/chapters/0", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/chapters/7", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/chapters/abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegisterUserValidation(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPut, "/api/v1/session/user", `{"name": "S", "student_id": "12"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPut, "/api/v1/session/user", `{"name": "Sara Ali", "student_id": "12345"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/session", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Sara Ali")
}

func TestSelectionEndpoint(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/api/v1/questions/q_0_0/selection", `{"option_index": 1}`)
	assert.Equal(t, http.StatusOK, w.Code)

	// Fill-in questions do not take selections.
	w = f.do(t, http.MethodPost, "/api/v1/questions/q_0_1/selection", `{"option_index": 0}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/questions/bogus/selection", `{"option_index": 0}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/questions/q_0_0/selection", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckChapterIncompleteReturns409(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/api/v1/chapters/0/check", `{"texts": {"q_0_1": "blue"}}`)
	require.Equal(t, http.StatusConflict, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "chapter_incomplete", resp.Code)

	details, ok := resp.Details.(map[string]interface{})
	require.True(t, ok)
	assert.ElementsMatch(t, []interface{}{"q_0_0", "q_0_2"}, details["unanswered"])
}

func TestCheckChapterSuccessAndStats(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/api/v1/questions/q_0_0/selection", `{"option_index": 1}`)
	require.Equal(t, http.StatusOK, w.Code)

	body := `{"texts": {"q_0_1": "BLUE"}, "drops": {"q_0_2": ["cat", "dog"]}}`
	w = f.do(t, http.MethodPost, "/api/v1/chapters/0/check", body)
	require.Equal(t, http.StatusOK, w.Code)

	var result services.ChapterGradeResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, result.Completed)
	assert.Equal(t, 3, result.CorrectCount)

	w = f.do(t, http.MethodGet, "/api/v1/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	var stats map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.EqualValues(t, 3, stats["correct_answers"])
	assert.EqualValues(t, 1, stats["chapters_completed"])
	assert.EqualValues(t, 100, stats["completion_percentage"])

	// A second check echoes the stored outcomes instead of re-grading.
	w = f.do(t, http.MethodPost, "/api/v1/chapters/0/check", `{}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, result.Outcomes["q_0_0"].AlreadyGraded)
}

func TestCertificateDownload(t *testing.T) {
	f := newAPIFixture(t)

	// Not earned yet.
	w := f.do(t, http.MethodGet, "/api/v1/certificate", "")
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)

	f.do(t, http.MethodPut, "/api/v1/session/user", `{"name": "Sara Ali", "student_id": "12345"}`)
	f.do(t, http.MethodPost, "/api/v1/questions/q_0_0/selection", `{"option_index": 1}`)
	w = f.do(t, http.MethodPost, "/api/v1/chapters/0/check",
		`{"texts": {"q_0_1": "blue"}, "drops": {"q_0_2": ["cat", "dog"]}}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/certificate", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "ITQAN_English_Certificate_Sara_Ali")
	assert.Contains(t, w.Body.String(), "ITQAN Institute - English Learning Certificate")

	w = f.do(t, http.MethodGet, "/api/v1/certificate?format=xlsx", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")

	w = f.do(t, http.MethodGet, "/api/v1/certificate?format=pdf", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProgressSaveAndReset(t *testing.T) {
	f := newAPIFixture(t)

	f.do(t, http.MethodPut, "/api/v1/session/user", `{"name": "Sara Ali", "student_id": "12345"}`)
	f.do(t, http.MethodPost, "/api/v1/questions/q_0_0/selection", `{"option_index": 1}`)

	w := f.do(t, http.MethodPost, "/api/v1/progress/save", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/progress/reset", "")
	require.Equal(t, http.StatusOK, w.Code)

	state := f.session.State()
	assert.Nil(t, state.User)
	assert.Equal(t, 0, state.Stats.CorrectAnswers)
}

func TestActivityEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	w := f.do(t, http.MethodPost, "/api/v1/session/activity", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestNotificationsDrain(t *testing.T) {
	f := newAPIFixture(t)

	// Saving publishes a progress-saved notification.
	w := f.do(t, http.MethodPost, "/api/v1/progress/save", "")
	require.Equal(t, http.StatusOK, w.Code)

	// The buffer consumes asynchronously; poll until it lands.
	var drained struct {
		Notifications []events.NotificationEvent `json:"notifications"`
	}
	require.Eventually(t, func() bool {
		w := f.do(t, http.MethodGet, "/api/v1/notifications", "")
		if w.Code != http.StatusOK {
			return false
		}
		if err := json.Unmarshal(w.Body.Bytes(), &drained); err != nil {
			return false
		}
		return len(drained.Notifications) > 0
	}, 2*time.Second, 10*time.Millisecond)

	found := false
	for _, n := range drained.Notifications {
		if n.Type == events.EventProgressSaved {
			found = true
		}
	}
	assert.True(t, found)

	// Drained means gone.
	w = f.do(t, http.MethodGet, "/api/v1/notifications", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"notifications": []}`, w.Body.String())
}
