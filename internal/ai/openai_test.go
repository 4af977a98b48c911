package ai

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/stretchr/testify/require"
)

// openAIRecorder поддельный OpenAI API: отвечает на /responses и /models/{id}, запоминает тела запросов.
type openAIRecorder struct {
	mu        sync.Mutex
	bodies    []map[string]any
	replies   []string
	failWith  int
	modelsHit int
}

func (r *openAIRecorder) client(t *testing.T) *openai.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(r.serve))
	t.Cleanup(srv.Close)
	c := openai.NewClient(
		option.WithBaseURL(srv.URL+"/v1/"),
		option.WithAPIKey("test-key"),
		option.WithMaxRetries(0),
	)
	return &c
}

func (r *openAIRecorder) serve(w http.ResponseWriter, req *http.Request) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	if req.Method == http.MethodGet {
		r.modelsHit++
		if r.failWith != 0 {
			w.WriteHeader(r.failWith)
			_, _ = io.WriteString(w, `{"error":{"message":"nope"}}`)
			return
		}
		_, _ = io.WriteString(w, `{"id":"gpt-4o","object":"model","created":0,"owned_by":"openai"}`)
		return
	}

	body, _ := io.ReadAll(req.Body)
	var decoded map[string]any
	_ = json.Unmarshal(body, &decoded)
	r.bodies = append(r.bodies, decoded)

	if r.failWith != 0 {
		w.WriteHeader(r.failWith)
		_, _ = io.WriteString(w, `{"error":{"message":"boom"}}`)
		return
	}
	reply := ""
	if i := len(r.bodies) - 1; i < len(r.replies) {
		reply = r.replies[i]
	}
	text, _ := json.Marshal(reply)
	_, _ = fmt.Fprintf(w, `{"id":"resp_%d","object":"response","created_at":0,"model":"gpt-4o","status":"completed",`+
		`"output":[{"type":"message","id":"msg_1","role":"assistant","status":"completed",`+
		`"content":[{"type":"output_text","text":%s,"annotations":[]}]}]}`, len(r.bodies), text)
}

func (r *openAIRecorder) inputs(t *testing.T, i int) []map[string]any {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.Greater(t, len(r.bodies), i)
	raw, ok := r.bodies[i]["input"].([]any)
	require.True(t, ok, "input must be a list")
	out := make([]map[string]any, 0, len(raw))
	for _, it := range raw {
		m, ok := it.(map[string]any)
		require.True(t, ok)
		out = append(out, m)
	}
	return out
}
