package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Terminal - алерты и подтверждения в консоли.
type Terminal struct {
	in  *bufio.Reader
	out io.Writer

	title *color.Color
	ok    *color.Color
	muted *color.Color
}

func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{
		in:    bufio.NewReader(in),
		out:   out,
		title: color.New(color.FgRed, color.Bold),
		ok:    color.New(color.FgGreen),
		muted: color.New(color.Faint),
	}
}

func (t *Terminal) Alert(title, message string) {
	fmt.Fprintln(t.out)
	t.title.Fprintf(t.out, "%s\n", title)
	fmt.Fprintf(t.out, "%s\n", message)
}

func (t *Terminal) Success(format string, args ...any) {
	t.ok.Fprintf(t.out, format+"\n", args...)
}

func (t *Terminal) Info(format string, args ...any) {
	fmt.Fprintf(t.out, format+"\n", args...)
}

func (t *Terminal) Muted(format string, args ...any) {
	t.muted.Fprintf(t.out, format+"\n", args...)
}

// Confirm спрашивает y/N. Пустой ответ - отказ.
func (t *Terminal) Confirm(ctx context.Context, prompt string) (bool, error) {
	answer, err := t.Prompt(ctx, prompt+" [y/N]: ")
	if err != nil {
		return false, err
	}

	switch strings.ToLower(answer) {
	case "y", "yes", "д", "да":
		return true, nil
	default:
		return false, nil
	}
}

// Prompt читает одну строку. EOF без ввода возвращает io.EOF.
func (t *Terminal) Prompt(ctx context.Context, label string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	fmt.Fprint(t.out, label)

	line, err := t.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}

	return strings.TrimSpace(line), nil
}
