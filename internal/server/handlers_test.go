package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"iter"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/voifodas/voifodas/internal/chat"
	"github.com/voifodas/voifodas/internal/llm"
	"github.com/voifodas/voifodas/internal/prompt"
	"github.com/voifodas/voifodas/internal/session"
	"github.com/voifodas/voifodas/internal/speech"
	"github.com/voifodas/voifodas/internal/types"
	"github.com/voifodas/voifodas/internal/vision"
)

type fakeLLM struct {
	completion  string
	completeErr error
	fragments   []string
	streamErr   error
}

func (f *fakeLLM) Complete(ctx context.Context, msgs []types.Message, p llm.Params) (string, error) {
	if f.completeErr != nil {
		return "", f.completeErr
	}
	return f.completion, nil
}

func (f *fakeLLM) Stream(ctx context.Context, msgs []types.Message, p llm.Params) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, fragment := range f.fragments {
			if !yield(fragment, nil) {
				return
			}
		}
		if f.streamErr != nil {
			yield("", f.streamErr)
		}
	}
}

type fakeTranscriber struct {
	result speech.Transcription
	err    error
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audio io.Reader, filename string) (speech.Transcription, error) {
	if f.err != nil {
		return speech.Transcription{}, f.err
	}
	return f.result, nil
}

type fakeVision struct {
	text string
	err  error
}

func (f *fakeVision) ExtractText(ctx context.Context, image []byte, mimeType string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type testEnv struct {
	server *Server
	store  *session.Store
}

func newTestEnv(client llm.Client, transcriber speech.Transcriber, ocr vision.Reader) testEnv {
	store := session.NewStore(10)
	dispatcher := chat.NewService(client, store, prompt.NewBuilder(0, 0))
	return testEnv{server: New(dispatcher, store, transcriber, ocr, "cloud"), store: store}
}

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return body
}

// parseFrames splits an SSE body into its JSON payloads.
func parseFrames(t *testing.T, body string) []map[string]any {
	t.Helper()
	var frames []map[string]any
	for _, line := range strings.Split(body, "\n") {
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var frame map[string]any
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &frame); err != nil {
			t.Fatalf("malformed frame %q: %v", line, err)
		}
		frames = append(frames, frame)
	}
	return frames
}

func TestHealth(t *testing.T) {
	env := newTestEnv(&fakeLLM{}, &fakeTranscriber{}, &fakeVision{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["status"] != "ok" {
		t.Fatalf("expected status ok, got %v", body["status"])
	}
	if body["whisper"] != "available" {
		t.Fatalf("expected whisper available, got %v", body["whisper"])
	}
	if body["device"] != "cloud" {
		t.Fatalf("expected device label, got %v", body["device"])
	}
}

func TestHealthWhisperUnavailable(t *testing.T) {
	env := newTestEnv(&fakeLLM{}, nil, &fakeVision{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)

	if body := decodeBody(t, rec); body["whisper"] != "unavailable" {
		t.Fatalf("expected whisper unavailable, got %v", body["whisper"])
	}
}

func TestChatStreamEmptyMessage(t *testing.T) {
	env := newTestEnv(&fakeLLM{fragments: []string{"never"}}, nil, nil)

	rec := postJSON(t, env.server.Handler(), "/chat/stream", map[string]string{"session_id": "s"})

	if rec.Code != http.StatusOK {
		t.Fatalf("streaming endpoint must answer 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "text/event-stream") {
		t.Fatalf("expected event-stream content type, got %q", ct)
	}
	frames := parseFrames(t, rec.Body.String())
	if len(frames) != 1 {
		t.Fatalf("expected exactly one frame, got %d: %v", len(frames), frames)
	}
	if frames[0]["error"] != "Empty message" {
		t.Fatalf("expected empty-message error frame, got %v", frames[0])
	}
	if env.store.ClearAll() != 0 {
		t.Fatalf("empty message must not create a session")
	}
}

func TestChatStreamSuccess(t *testing.T) {
	env := newTestEnv(&fakeLLM{fragments: []string{"Hi", " there"}}, nil, nil)

	rec := postJSON(t, env.server.Handler(), "/chat/stream", map[string]string{
		"message":    "hello",
		"session_id": "s1",
	})

	frames := parseFrames(t, rec.Body.String())
	if len(frames) != 3 {
		t.Fatalf("expected 2 content frames + done, got %v", frames)
	}
	if frames[0]["content"] != "Hi" || frames[1]["content"] != " there" {
		t.Fatalf("content frames wrong: %v", frames)
	}
	if frames[2]["done"] != true {
		t.Fatalf("expected terminal done frame, got %v", frames[2])
	}

	history := env.store.History("s1")
	if len(history) != 2 || history[1].Content != "Hi there" {
		t.Fatalf("assistant message must equal concatenated fragments: %+v", history)
	}
}

func TestChatStreamCapabilityFailure(t *testing.T) {
	env := newTestEnv(&fakeLLM{fragments: []string{"par"}, streamErr: errors.New("rate limited")}, nil, nil)

	rec := postJSON(t, env.server.Handler(), "/chat/stream", map[string]string{
		"message":    "hello",
		"session_id": "s1",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("stream errors are in-band, expected 200, got %d", rec.Code)
	}
	frames := parseFrames(t, rec.Body.String())
	last := frames[len(frames)-1]
	if _, ok := last["error"]; !ok {
		t.Fatalf("stream must terminate with an error frame, got %v", last)
	}
	for _, frame := range frames {
		if _, ok := frame["done"]; ok {
			t.Fatalf("failed stream must not emit done: %v", frames)
		}
	}

	history := env.store.History("s1")
	if len(history) != 1 || history[0].Role != types.RoleUser {
		t.Fatalf("failed stream must not persist an assistant message: %+v", history)
	}
}

func TestChatStreamInvalidJSON(t *testing.T) {
	env := newTestEnv(&fakeLLM{}, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/chat/stream", strings.NewReader("not valid json {{{"))
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on malformed body, got %d", rec.Code)
	}
}

func TestQuickActionMissingText(t *testing.T) {
	env := newTestEnv(&fakeLLM{completion: "unused"}, nil, nil)

	rec := postJSON(t, env.server.Handler(), "/chat/quick", map[string]string{"action": "summarize", "text": ""})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["error"] == nil || body["error"] == "" {
		t.Fatalf("expected error field, got %v", body)
	}
}

func TestQuickActionSuccess(t *testing.T) {
	env := newTestEnv(&fakeLLM{completion: "summarized"}, nil, nil)

	rec := postJSON(t, env.server.Handler(), "/chat/quick", map[string]string{"action": "summarize", "text": "a long text"})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if body := decodeBody(t, rec); body["response"] != "summarized" {
		t.Fatalf("expected response field, got %v", body)
	}
}

func TestQuickActionCapabilityFailure(t *testing.T) {
	env := newTestEnv(&fakeLLM{completeErr: errors.New("upstream down")}, nil, nil)

	rec := postJSON(t, env.server.Handler(), "/chat/quick", map[string]string{"action": "explain", "text": "x"})

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestContextAnalyzeEmpty(t *testing.T) {
	env := newTestEnv(&fakeLLM{completion: "unused"}, nil, nil)

	rec := postJSON(t, env.server.Handler(), "/context/analyze", map[string]string{
		"screen_context":     "",
		"transcript_context": "",
	})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on empty context, got %d", rec.Code)
	}
}

func TestContextAnalyzeSuccess(t *testing.T) {
	env := newTestEnv(&fakeLLM{completion: "the meeting is going well"}, nil, nil)

	rec := postJSON(t, env.server.Handler(), "/context/analyze", map[string]string{
		"transcript_context": "everyone agreed on the plan",
		"playbook_name":      "Standup",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["analysis"] != "the meeting is going well" {
		t.Fatalf("expected analysis field, got %v", body)
	}
	if body["status"] != "success" {
		t.Fatalf("expected success status, got %v", body)
	}
}

func TestAutoSuggestEmpty(t *testing.T) {
	env := newTestEnv(&fakeLLM{}, nil, nil)

	rec := postJSON(t, env.server.Handler(), "/suggest/auto", map[string]string{})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAutoSuggestSuccess(t *testing.T) {
	env := newTestEnv(&fakeLLM{completion: "todo: send the recap email"}, nil, nil)

	rec := postJSON(t, env.server.Handler(), "/suggest/auto", map[string]string{
		"transcript": "wrap up and send notes",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["suggestion"] != "todo: send the recap email" {
		t.Fatalf("expected suggestion field, got %v", body)
	}
	if body["detected_type"] != "action" {
		t.Fatalf("expected action category, got %v", body["detected_type"])
	}
}

func TestClearHistory(t *testing.T) {
	env := newTestEnv(&fakeLLM{}, nil, nil)
	env.store.Append("s1", types.Message{Role: types.RoleUser, Content: "hi"})

	rec := postJSON(t, env.server.Handler(), "/history/clear", map[string]string{"session_id": "s1"})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["status"] != "cleared" {
		t.Fatalf("expected cleared status, got %v", body)
	}
	if got := len(env.store.History("s1")); got != 0 {
		t.Fatalf("history not cleared, %d messages left", got)
	}
}

func TestClearHistoryUnknownSession(t *testing.T) {
	env := newTestEnv(&fakeLLM{}, nil, nil)

	rec := postJSON(t, env.server.Handler(), "/history/clear", map[string]string{"session_id": "never-seen"})

	if rec.Code != http.StatusOK {
		t.Fatalf("clear must never fail, got %d", rec.Code)
	}
}

func TestCleanupSessions(t *testing.T) {
	env := newTestEnv(&fakeLLM{}, nil, nil)
	env.store.Append("a", types.Message{Role: types.RoleUser, Content: "x"})
	env.store.Append("b", types.Message{Role: types.RoleUser, Content: "y"})

	rec := postJSON(t, env.server.Handler(), "/maintenance/cleanup", map[string]string{})

	body := decodeBody(t, rec)
	if body["status"] != "cleaned" {
		t.Fatalf("expected cleaned status, got %v", body)
	}
	if body["count"] != float64(2) {
		t.Fatalf("expected count 2, got %v", body["count"])
	}
}

func TestTranscribeUnavailable(t *testing.T) {
	env := newTestEnv(&fakeLLM{}, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/transcribe", nil)
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestTranscribeMissingFile(t *testing.T) {
	env := newTestEnv(&fakeLLM{}, &fakeTranscriber{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/transcribe", nil)
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["error"] == nil {
		t.Fatalf("expected error field, got %v", body)
	}
}

func TestTranscribeSuccess(t *testing.T) {
	transcriber := &fakeTranscriber{result: speech.Transcription{Text: "hello world", Language: "en"}}
	env := newTestEnv(&fakeLLM{}, transcriber, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("audio", "recording.webm")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte("fake audio bytes")); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/transcribe", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["text"] != "hello world" || body["language"] != "en" {
		t.Fatalf("unexpected transcription response: %v", body)
	}
	if body["status"] != "success" {
		t.Fatalf("expected success status, got %v", body)
	}
}

func TestOCRUnavailable(t *testing.T) {
	env := newTestEnv(&fakeLLM{}, nil, nil)

	rec := postJSON(t, env.server.Handler(), "/ocr", map[string]any{"image": "aGk="})

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestOCRMissingImage(t *testing.T) {
	env := newTestEnv(&fakeLLM{}, nil, &fakeVision{text: "unused"})

	rec := postJSON(t, env.server.Handler(), "/ocr", map[string]any{"image": ""})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestOCRInvalidBase64(t *testing.T) {
	env := newTestEnv(&fakeLLM{}, nil, &fakeVision{text: "unused"})

	rec := postJSON(t, env.server.Handler(), "/ocr", map[string]any{"image": "!!!not-base64!!!"})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestOCRSuccess(t *testing.T) {
	env := newTestEnv(&fakeLLM{}, nil, &fakeVision{text: "extracted text"})
	image := base64.StdEncoding.EncodeToString([]byte("png bytes"))

	rec := postJSON(t, env.server.Handler(), "/ocr", map[string]any{"image": image})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["text"] != "extracted text" {
		t.Fatalf("unexpected OCR response: %v", body)
	}
	if _, ok := body["analysis"]; ok {
		t.Fatalf("analysis must be absent without the analyze flag: %v", body)
	}
}

func TestOCRWithAnalysis(t *testing.T) {
	env := newTestEnv(&fakeLLM{completion: "a settings dialog"}, nil, &fakeVision{text: "Settings > Privacy"})
	image := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte("jpeg bytes"))

	rec := postJSON(t, env.server.Handler(), "/ocr", map[string]any{
		"image":   image,
		"analyze": true,
		"prompt":  "what screen is this?",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["text"] != "Settings > Privacy" {
		t.Fatalf("unexpected OCR text: %v", body)
	}
	if body["analysis"] != "a settings dialog" {
		t.Fatalf("expected analysis field, got %v", body)
	}
}

func TestDecodeImageDataURL(t *testing.T) {
	data, mimeType, err := decodeImage("data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte("abc")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "abc" {
		t.Fatalf("payload wrong: %q", data)
	}
	if mimeType != "image/jpeg" {
		t.Fatalf("mime type wrong: %q", mimeType)
	}
}

func TestDecodeImageRawBase64DefaultsMime(t *testing.T) {
	data, mimeType, err := decodeImage(base64.StdEncoding.EncodeToString([]byte("abc")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "abc" || mimeType != "image/png" {
		t.Fatalf("unexpected result: %q %q", data, mimeType)
	}
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(&fakeLLM{}, nil, nil)

	req := httptest.NewRequest(http.MethodOptions, "/chat/stream", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 preflight, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("expected origin echoed, got %q", got)
	}
}

func TestCORSRejectsUnknownOrigin(t *testing.T) {
	env := newTestEnv(&fakeLLM{}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unknown origin must not be allowed, got %q", got)
	}
}
