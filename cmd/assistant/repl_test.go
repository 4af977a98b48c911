package main

import (
	"EWasteAssistant/internal/app/assistant"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChat struct {
	inputs   []string
	images   [][]byte
	imageErr error
	history  []assistant.Message
}

func (f *fakeChat) Submit(_ context.Context, input string) (assistant.Message, error) {
	f.inputs = append(f.inputs, input)
	if strings.TrimSpace(input) == "" {
		return assistant.Message{}, assistant.ErrEmptyInput
	}
	return assistant.Message{Role: assistant.RoleAssistant, Content: "answer to " + input}, nil
}

func (f *fakeChat) SubmitImage(_ context.Context, data []byte) (assistant.Message, error) {
	f.images = append(f.images, data)
	if f.imageErr != nil {
		return assistant.Message{}, f.imageErr
	}
	return assistant.Message{Role: assistant.RoleAssistant, Content: "that laptop goes to an e-waste center"}, nil
}

func (f *fakeChat) Messages() []assistant.Message { return f.history }

type fakeResetter struct{ resets int }

func (f *fakeResetter) Reset() { f.resets++ }

func runREPL(t *testing.T, c chat, s resetter, input string, files map[string][]byte) string {
	t.Helper()
	var out bytes.Buffer
	r := newREPL(c, s, strings.NewReader(input), &out)
	r.readFile = func(path string) ([]byte, error) {
		if data, ok := files[path]; ok {
			return data, nil
		}
		return nil, errors.New("no such file")
	}
	require.NoError(t, r.Run(context.Background()))
	return out.String()
}

func TestREPLSubmitsLines(t *testing.T) {
	c := &fakeChat{}
	out := runREPL(t, c, &fakeResetter{}, "  where do batteries go?  \n\n/quit\nnever sent\n", nil)

	assert.Equal(t, []string{"where do batteries go?"}, c.inputs)
	assert.Contains(t, out, "answer to where do batteries go?")
}

func TestREPLImageCommand(t *testing.T) {
	c := &fakeChat{}
	out := runREPL(t, c, &fakeResetter{}, "/image laptop.jpg\n/image missing.jpg\n/image\n", map[string][]byte{"laptop.jpg": []byte("jpeg")})

	require.Len(t, c.images, 1)
	assert.Equal(t, []byte("jpeg"), c.images[0])
	assert.Contains(t, out, "that laptop goes to an e-waste center")
	assert.Contains(t, out, "Cannot read missing.jpg")
	assert.Contains(t, out, "Usage: /image <path>")
}

func TestREPLImageStageErrorIsNotRepeated(t *testing.T) {
	c := &fakeChat{imageErr: &assistant.StageError{Stage: assistant.StageDecode, Err: errors.New("bad")}}
	out := runREPL(t, c, &fakeResetter{}, "/image a.png\n", map[string][]byte{"a.png": []byte("x")})

	assert.NotContains(t, out, "image decode")
	assert.NotContains(t, out, "assistant> ")
}

func TestREPLHistoryAndNew(t *testing.T) {
	ts := time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)
	c := &fakeChat{history: []assistant.Message{
		{Role: assistant.RoleUser, Content: "old phone?", Timestamp: ts},
		{Role: assistant.RoleAssistant, Content: "recycle it", Timestamp: ts},
	}}
	s := &fakeResetter{}
	out := runREPL(t, c, s, "/history\n/new\n/bogus\n", nil)

	assert.Contains(t, out, "old phone?")
	assert.Contains(t, out, "recycle it")
	assert.Contains(t, out, "15:04:05")
	assert.Contains(t, out, "Started a new conversation.")
	assert.Contains(t, out, "Unknown command /bogus")
	assert.Equal(t, 1, s.resets)
	assert.Empty(t, c.inputs)
}

func TestREPLEmptyHistory(t *testing.T) {
	out := runREPL(t, &fakeChat{}, &fakeResetter{}, "/history\n", nil)
	assert.Contains(t, out, "No messages yet.")
}
