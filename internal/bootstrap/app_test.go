package bootstrap_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"papermind-backend/internal/bootstrap"
	"papermind-backend/internal/shared/config"
)

// fakeProcessor mimics the processing service's HTTP endpoints.
type fakeProcessor struct {
	mu       sync.Mutex
	indexed  map[string]bool
	released []string
	failAsk  bool
}

func (f *fakeProcessor) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	if r.Method == http.MethodPost {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.URL.Path {
	case "/process-paper":
		if body["title"] == "Unreadable" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "Failed to extract text from PDF."})
			return
		}
		f.indexed[body["paper_id"]] = true
		_ = json.NewEncoder(w).Encode(map[string]string{"paper_id": body["paper_id"], "message": "Paper successfully added"})
	case "/ask":
		if f.failAsk || !f.indexed[body["paper_id"]] {
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "AI API error"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"answer": "About " + body["question"]})
	case "/delete-paper":
		delete(f.indexed, body["paper_id"])
		f.released = append(f.released, body["paper_id"])
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "deleted"})
	case "/debug/collection-info":
		_ = json.NewEncoder(w).Encode(map[string]any{"total_chunks": len(f.indexed)})
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeProcessor) releasedRefs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.released...)
}

func (f *fakeProcessor) setFailAsk(fail bool) {
	f.mu.Lock()
	f.failAsk = fail
	f.mu.Unlock()
}

type harness struct {
	t      *testing.T
	router http.Handler
	proc   *fakeProcessor
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	proc := &fakeProcessor{indexed: map[string]bool{}}
	srv := httptest.NewServer(proc)
	t.Cleanup(srv.Close)

	cfg := config.Config{
		Port:            "0",
		Env:             "dev",
		CORSAllowOrigin: []string{"http://localhost:3000"},
		JWTSecret:       "test-secret",
		BcryptCost:      4,
		ProcessingURL:   srv.URL,
	}
	app, err := bootstrap.Build(cfg)
	if err != nil {
		t.Fatalf("bootstrap build: %v", err)
	}
	return &harness{t: t, router: app.Router, proc: proc}
}

func (h *harness) do(method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	h.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			h.t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	h.router.ServeHTTP(resp, req)

	var decoded map[string]any
	if resp.Body.Len() > 0 {
		_ = json.Unmarshal(resp.Body.Bytes(), &decoded)
	}
	return resp, decoded
}

func (h *harness) expect(resp *httptest.ResponseRecorder, status int) {
	h.t.Helper()
	if resp.Code != status {
		h.t.Fatalf("expected status %d, got %d: %s", status, resp.Code, resp.Body.String())
	}
}

func (h *harness) login(username string) string {
	h.t.Helper()
	resp, _ := h.do(http.MethodPost, "/api/user/register", "", map[string]string{"username": username, "password": "pw-" + username})
	h.expect(resp, http.StatusCreated)
	resp, body := h.do(http.MethodPost, "/api/user/login", "", map[string]string{"username": username, "password": "pw-" + username})
	h.expect(resp, http.StatusOK)
	return body["token"].(string)
}

func errorCode(body map[string]any) string {
	errObj, _ := body["error"].(map[string]any)
	code, _ := errObj["code"].(string)
	return code
}

func TestPaperLifecycle(t *testing.T) {
	h := newHarness(t)
	alice := h.login("alice")
	bob := h.login("bob")

	resp, _ := h.do(http.MethodGet, "/api/paper/my-papers", "", nil)
	h.expect(resp, http.StatusUnauthorized)

	resp, body := h.do(http.MethodPost, "/api/paper/upload", alice, map[string]string{"name": "Vaswani", "title": "Attention"})
	h.expect(resp, http.StatusCreated)
	paperID := body["paperId"].(string)
	if body["message"] != "Paper successfully added" {
		t.Fatalf("unexpected message %v", body["message"])
	}

	resp, body = h.do(http.MethodPost, "/api/paper/upload", bob, map[string]string{"title": "Attention"})
	h.expect(resp, http.StatusConflict)
	if errorCode(body) != "duplicate_title" {
		t.Fatalf("unexpected error code %q", errorCode(body))
	}

	resp, body = h.do(http.MethodPost, "/api/paper/upload", bob, map[string]string{"title": "Unreadable"})
	h.expect(resp, http.StatusInternalServerError)
	if errorCode(body) != "processing_failed" {
		t.Fatalf("unexpected error code %q", errorCode(body))
	}

	resp, body = h.do(http.MethodGet, "/api/paper/all-papers", bob, nil)
	h.expect(resp, http.StatusOK)
	all := body["papers"].([]any)
	if len(all) != 1 || all[0].(map[string]any)["username"] != "alice" {
		t.Fatalf("unexpected all-papers %v", all)
	}

	resp, _ = h.do(http.MethodGet, "/api/paper/"+paperID, bob, nil)
	h.expect(resp, http.StatusNotFound)

	resp, body = h.do(http.MethodPost, "/api/paper/add-paper", bob, map[string]string{"paperId": paperID})
	h.expect(resp, http.StatusCreated)
	bobPaperID := body["paper"].(map[string]any)["id"].(string)

	resp, body = h.do(http.MethodPost, "/api/paper/add-paper", bob, map[string]string{"paperId": paperID})
	h.expect(resp, http.StatusConflict)
	if errorCode(body) != "already_added" {
		t.Fatalf("unexpected error code %q", errorCode(body))
	}

	resp, _ = h.do(http.MethodPost, "/api/paper/add-paper", alice, map[string]string{"paperId": paperID})
	h.expect(resp, http.StatusConflict)

	// Alice deletes her row; bob still shares the index, so nothing is released.
	resp, _ = h.do(http.MethodDelete, "/api/paper/"+paperID, alice, nil)
	h.expect(resp, http.StatusOK)
	if released := h.proc.releasedRefs(); len(released) != 0 {
		t.Fatalf("expected no release, got %v", released)
	}

	resp, body = h.do(http.MethodPost, "/api/query/ask", bob, map[string]string{"paperId": bobPaperID, "question": "what?"})
	h.expect(resp, http.StatusOK)
	if body["answer"] != "About what?" {
		t.Fatalf("unexpected answer %v", body["answer"])
	}

	resp, _ = h.do(http.MethodDelete, "/api/paper/"+bobPaperID, bob, nil)
	h.expect(resp, http.StatusOK)
	if released := h.proc.releasedRefs(); len(released) != 1 || released[0] != paperID {
		t.Fatalf("expected release of %s, got %v", paperID, released)
	}

	resp, body = h.do(http.MethodGet, "/api/query/history/"+bobPaperID, bob, nil)
	h.expect(resp, http.StatusOK)
	if len(body["queries"].([]any)) != 0 {
		t.Fatalf("expected history to be removed with the paper")
	}
}

func TestAskHistory(t *testing.T) {
	h := newHarness(t)
	alice := h.login("alice")
	bob := h.login("bob")

	resp, body := h.do(http.MethodPost, "/api/paper/upload", alice, map[string]string{"title": "Attention"})
	h.expect(resp, http.StatusCreated)
	paperID := body["paperId"].(string)

	resp, _ = h.do(http.MethodPost, "/api/query/ask", alice, map[string]string{"paperId": paperID})
	h.expect(resp, http.StatusBadRequest)

	resp, _ = h.do(http.MethodPost, "/api/query/ask", alice, map[string]string{"paperId": "missing", "question": "q"})
	h.expect(resp, http.StatusNotFound)

	h.proc.setFailAsk(true)
	resp, body = h.do(http.MethodPost, "/api/query/ask", alice, map[string]string{"paperId": paperID, "question": "first"})
	h.expect(resp, http.StatusInternalServerError)
	if errorCode(body) != "query_failed" {
		t.Fatalf("unexpected error code %q", errorCode(body))
	}

	resp, body = h.do(http.MethodGet, "/api/query/history/"+paperID, alice, nil)
	h.expect(resp, http.StatusOK)
	if len(body["queries"].([]any)) != 0 {
		t.Fatalf("failed ask must not be recorded")
	}

	h.proc.setFailAsk(false)
	for _, q := range []string{"first", "second"} {
		resp, body = h.do(http.MethodPost, "/api/query/ask", alice, map[string]string{"paperId": paperID, "question": q})
		h.expect(resp, http.StatusOK)
		if body["queryId"] == "" {
			t.Fatalf("expected queryId")
		}
	}
	resp, _ = h.do(http.MethodPost, "/api/query/ask", bob, map[string]string{"paperId": paperID, "question": "bob asks"})
	h.expect(resp, http.StatusOK)

	resp, body = h.do(http.MethodGet, "/api/query/history/"+paperID, alice, nil)
	h.expect(resp, http.StatusOK)
	history := body["queries"].([]any)
	if len(history) != 2 {
		t.Fatalf("expected 2 exchanges, got %d", len(history))
	}
	if history[0].(map[string]any)["question"] != "second" {
		t.Fatalf("expected newest first, got %v", history)
	}
}

func TestProbes(t *testing.T) {
	h := newHarness(t)

	resp, _ := h.do(http.MethodGet, "/api/health", "", nil)
	h.expect(resp, http.StatusOK)

	resp, body := h.do(http.MethodGet, "/api/ready", "", nil)
	h.expect(resp, http.StatusOK)
	if body["database"] != "disabled" || body["processing"] != "up" {
		t.Fatalf("unexpected readiness %v", body)
	}

	resp, _ = h.do(http.MethodGet, "/metrics", "", nil)
	h.expect(resp, http.StatusOK)
}
