package ai

import (
	"context"
	"sync"

	"github.com/tmc/langchaingo/llms"
)

// fakeLLM запоминает запросы и отдаёт заранее заданные ответы по очереди.
type fakeLLM struct {
	mu       sync.Mutex
	replies  []string
	errs     []error
	calls    [][]llms.MessageContent
	lastOpts llms.CallOptions
}

func (f *fakeLLM) GenerateContent(_ context.Context, msgs []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := len(f.calls)
	f.calls = append(f.calls, msgs)
	f.lastOpts = llms.CallOptions{}
	for _, opt := range options {
		opt(&f.lastOpts)
	}
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	reply := ""
	if i < len(f.replies) {
		reply = f.replies[i]
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: reply}}}, nil
}

func (f *fakeLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func textOf(t llms.MessageContent) string {
	var out string
	for _, p := range t.Parts {
		if tc, ok := p.(llms.TextContent); ok {
			out += tc.Text
		}
	}
	return out
}
