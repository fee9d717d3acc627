package driver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"

	"github.com/sandevgo/tusknet/internal/core"
)

const (
	readChunkSize = 4096
	// Prompts are searched for in the tail of the buffer only.
	promptWindow = 512
)

var (
	ansiEscape    = regexp.MustCompile(`\x1b\[[0-9;?]*[A-Za-z]`)
	passwordReq   = regexp.MustCompile(`(?i)password:?\s*$`)
	errNoPrompt   = errors.New("no prompt detected")
	errEnableDeny = errors.New("enable mode was not granted")
)

// shell drives an interactive CLI over any byte stream. A reader goroutine
// pumps device output into chunks until the stream ends or Close is called.
type shell struct {
	dialect Dialect
	w       io.Writer
	closer  io.Closer

	chunks  chan []byte
	done    chan struct{}
	readErr error
	once    sync.Once

	buf      bytes.Buffer
	prompt   string
	promptRe *regexp.Regexp
}

func newShell(d Dialect, r io.Reader, w io.Writer, closer io.Closer) *shell {
	s := &shell{
		dialect: d,
		w:       w,
		closer:  closer,
		chunks:  make(chan []byte, 64),
		done:    make(chan struct{}),
	}
	go s.pump(r)
	return s
}

func (s *shell) pump(r io.Reader) {
	defer close(s.chunks)
	buf := make([]byte, readChunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			select {
			case s.chunks <- chunk:
			case <-s.done:
				return
			}
		}
		if err != nil {
			s.readErr = err
			return
		}
	}
}

// readUntil consumes output until one of patterns matches the end of the
// buffer and returns the consumed text with the index of the pattern.
func (s *shell) readUntil(ctx context.Context, patterns ...*regexp.Regexp) (string, int, error) {
	for {
		tail := s.tail()
		for i, re := range patterns {
			if re.MatchString(tail) {
				out := s.buf.String()
				s.buf.Reset()
				return out, i, nil
			}
		}

		select {
		case chunk, ok := <-s.chunks:
			if !ok {
				out := s.buf.String()
				s.buf.Reset()
				err := s.readErr
				if err == nil {
					err = io.EOF
				}
				return out, -1, fmt.Errorf("%w: %v", core.ErrTransportDropped, err)
			}
			s.buf.Write(normalize(chunk))
		case <-ctx.Done():
			return s.buf.String(), -1, ctx.Err()
		}
	}
}

func (s *shell) tail() string {
	b := s.buf.Bytes()
	if len(b) > promptWindow {
		b = b[len(b)-promptWindow:]
	}
	return string(b)
}

func (s *shell) send(line string) error {
	if _, err := io.WriteString(s.w, line+"\n"); err != nil {
		return fmt.Errorf("%w: write: %v", core.ErrTransportDropped, err)
	}
	return nil
}

// exchange sends line and waits for the device prompt.
func (s *shell) exchange(ctx context.Context, line string) (string, error) {
	if err := s.send(line); err != nil {
		return "", err
	}
	out, _, err := s.readUntil(ctx, s.promptRe)
	if err == nil {
		s.capturePrompt(out)
	}
	return out, err
}

// establish finds the prompt, escalates to privileged mode and disables
// paging. It runs once, right after login.
func (s *shell) establish(ctx context.Context, secret string) error {
	anyPrompt := s.dialect.anyPromptPattern()
	if _, _, err := s.readUntil(ctx, anyPrompt); err != nil {
		return fmt.Errorf("wait for prompt: %w", err)
	}

	// The banner may end in a prompt character, so ask for a fresh prompt.
	if err := s.send(""); err != nil {
		return err
	}
	out, _, err := s.readUntil(ctx, anyPrompt)
	if err != nil {
		return fmt.Errorf("wait for prompt: %w", err)
	}
	if !s.capturePromptWith(out, anyPrompt) {
		return errNoPrompt
	}
	s.promptRe = s.dialect.basePromptPattern(s.dialect.baseHost(s.prompt))

	if !s.dialect.privileged(s.prompt) && s.dialect.EnableCommand != "" {
		if err := s.enable(ctx, secret); err != nil {
			return err
		}
	}

	for _, cmd := range s.dialect.PagingCommands {
		if _, err := s.exchange(ctx, cmd); err != nil {
			return fmt.Errorf("disable paging: %w", err)
		}
	}
	return nil
}

func (s *shell) enable(ctx context.Context, secret string) error {
	if err := s.send(s.dialect.EnableCommand); err != nil {
		return err
	}
	out, idx, err := s.readUntil(ctx, passwordReq, s.promptRe)
	if err != nil {
		return fmt.Errorf("enable: %w", err)
	}
	if idx == 0 {
		if err := s.send(secret); err != nil {
			return err
		}
		if out, _, err = s.readUntil(ctx, s.promptRe, passwordReq); err != nil {
			return fmt.Errorf("enable: %w", err)
		}
	}
	if !s.capturePrompt(out) || !s.dialect.privileged(s.prompt) {
		return fmt.Errorf("%w: %w", core.ErrAuthentication, errEnableDeny)
	}
	return nil
}

func (s *shell) capturePrompt(out string) bool {
	return s.capturePromptWith(out, s.promptRe)
}

func (s *shell) capturePromptWith(out string, re *regexp.Regexp) bool {
	m := re.FindStringSubmatch(out)
	if m == nil {
		return false
	}
	s.prompt = strings.TrimSpace(m[1])
	return true
}

// Run executes a read command or a configuration batch.
func (s *shell) Run(ctx context.Context, req core.Request) (string, error) {
	if len(req.Commands) == 0 {
		return "", nil
	}
	if req.Mode == core.ModeWrite {
		return s.runConfig(ctx, req)
	}
	return s.runRead(ctx, req)
}

func (s *shell) runRead(ctx context.Context, req core.Request) (string, error) {
	cmd := req.Commands[0]
	raw, err := s.exchange(ctx, cmd)
	out := clean(raw, cmd, s.promptRe, req.StripCommand, req.StripPrompt)
	if err != nil {
		return out, err
	}
	if line, bad := s.dialect.rejected(out); bad {
		return out, fmt.Errorf("%w: %s", core.ErrDeviceRejected, line)
	}
	return out, nil
}

// runConfig sends commands in order and stops at the first rejected line.
// Whatever the device printed up to that point is returned.
func (s *shell) runConfig(ctx context.Context, req core.Request) (string, error) {
	var combined strings.Builder

	if s.dialect.ConfigEnter != "" {
		raw, err := s.exchange(ctx, s.dialect.ConfigEnter)
		combined.WriteString(raw)
		if err != nil {
			return combined.String(), err
		}
	}

	var rejected error
	for _, cmd := range req.Commands {
		raw, err := s.exchange(ctx, cmd)
		combined.WriteString(raw)
		if err != nil {
			return combined.String(), err
		}
		if line, bad := s.dialect.rejected(raw); bad {
			rejected = fmt.Errorf("%w: %q: %s", core.ErrDeviceRejected, cmd, line)
			break
		}
	}

	if req.ExitConfigMode && s.dialect.ConfigExit != "" {
		raw, err := s.exchange(ctx, s.dialect.ConfigExit)
		combined.WriteString(raw)
		if err != nil {
			return combined.String(), err
		}
	}
	return strings.TrimRight(combined.String(), "\n"), rejected
}

func (s *shell) Prompt() string {
	return s.prompt
}

func (s *shell) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		if s.closer != nil {
			err = s.closer.Close()
		}
	})
	return err
}

// normalize drops carriage returns and terminal escape sequences.
func normalize(chunk []byte) []byte {
	chunk = ansiEscape.ReplaceAll(chunk, nil)
	return bytes.ReplaceAll(chunk, []byte("\r"), nil)
}

// clean removes the echoed command line and the trailing prompt.
func clean(raw, cmd string, prompt *regexp.Regexp, stripCommand, stripPrompt bool) string {
	out := raw
	if stripCommand {
		if line, rest, found := strings.Cut(out, "\n"); found && strings.Contains(line, strings.TrimSpace(cmd)) {
			out = rest
		} else if !found && strings.Contains(line, strings.TrimSpace(cmd)) {
			out = ""
		}
	}
	if stripPrompt && prompt != nil {
		if loc := prompt.FindStringIndex(out); loc != nil {
			out = out[:loc[0]]
		}
	}
	return strings.Trim(out, "\n")
}
