package main

import (
	"EWasteAssistant/internal/app/assistant"
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const helpText = `Ask anything about e-waste disposal and recycling.
  /image <path>  analyze a photo of an item
  /history       show the conversation
  /new           start a new conversation
  /quit          exit`

type chat interface {
	Submit(ctx context.Context, input string) (assistant.Message, error)
	SubmitImage(ctx context.Context, data []byte) (assistant.Message, error)
	Messages() []assistant.Message
}

type resetter interface {
	Reset()
}

type styles struct {
	prompt    lipgloss.Style
	user      lipgloss.Style
	assistant lipgloss.Style
	meta      lipgloss.Style
	errorText lipgloss.Style
}

func newStyles() styles {
	return styles{
		prompt:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		user:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		assistant: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		meta:      lipgloss.NewStyle().Faint(true),
		errorText: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
	}
}

// repl терминальный чат: строка ввода это сообщение, строки с / это команды.
type repl struct {
	chat     chat
	sessions resetter
	in       io.Reader
	out      io.Writer
	readFile func(string) ([]byte, error)
	st       styles
}

func newREPL(c chat, sessions resetter, in io.Reader, out io.Writer) *repl {
	return &repl{chat: c, sessions: sessions, in: in, out: out, readFile: os.ReadFile, st: newStyles()}
}

func (r *repl) Run(ctx context.Context) error {
	fmt.Fprintln(r.out, r.st.meta.Render(helpText))
	sc := bufio.NewScanner(r.in)
	for {
		fmt.Fprint(r.out, r.st.prompt.Render("you> "))
		if !sc.Scan() {
			fmt.Fprintln(r.out)
			return sc.Err()
		}
		if quit := r.handle(ctx, sc.Text()); quit {
			return nil
		}
		if err := context.Cause(ctx); err != nil {
			return err
		}
	}
}

// handle обрабатывает одну строку ввода. true означает выход.
func (r *repl) handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	cmd, arg, _ := strings.Cut(line, " ")
	switch cmd {
	case "":
		return false
	case "/quit", "/exit":
		return true
	case "/help":
		fmt.Fprintln(r.out, r.st.meta.Render(helpText))
	case "/history":
		r.printHistory()
	case "/new":
		r.sessions.Reset()
		fmt.Fprintln(r.out, r.st.meta.Render("Started a new conversation."))
	case "/image":
		r.submitImage(ctx, strings.TrimSpace(arg))
	default:
		if strings.HasPrefix(cmd, "/") {
			fmt.Fprintln(r.out, r.st.errorText.Render("Unknown command "+cmd+", try /help"))
			return false
		}
		r.print(r.chat.Submit(ctx, line))
	}
	return false
}

func (r *repl) submitImage(ctx context.Context, path string) {
	if path == "" {
		fmt.Fprintln(r.out, r.st.errorText.Render("Usage: /image <path>"))
		return
	}
	data, err := r.readFile(path)
	if err != nil {
		fmt.Fprintln(r.out, r.st.errorText.Render("Cannot read "+path+": "+err.Error()))
		return
	}
	fmt.Fprintln(r.out, r.st.meta.Render("Analyzing image..."))
	m, err := r.chat.SubmitImage(ctx, data)
	var stageErr *assistant.StageError
	if errors.As(err, &stageErr) {
		// Текст уведомления уже напечатал notifier
		return
	}
	r.print(m, err)
}

func (r *repl) print(m assistant.Message, err error) {
	switch {
	case errors.Is(err, assistant.ErrBusy):
		fmt.Fprintln(r.out, r.st.errorText.Render("Still working on the previous request."))
	case err != nil:
		fmt.Fprintln(r.out, r.st.errorText.Render(err.Error()))
	default:
		fmt.Fprintln(r.out, r.st.assistant.Render("assistant> ")+m.Content)
	}
}

func (r *repl) printHistory() {
	msgs := r.chat.Messages()
	if len(msgs) == 0 {
		fmt.Fprintln(r.out, r.st.meta.Render("No messages yet."))
		return
	}
	for _, m := range msgs {
		label := r.st.user.Render("you")
		if m.Role == assistant.RoleAssistant {
			label = r.st.assistant.Render("assistant")
		}
		fmt.Fprintf(r.out, "%s %s %s\n", r.st.meta.Render(m.Timestamp.Format("15:04:05")), label, m.Content)
	}
}
