package driver

import (
	"bufio"
	"io"
	"strings"
	"sync"
)

const invalidInput = "% Invalid input detected at '^' marker."

// fakeCLI imitates an IOS style exec and configuration CLI.
type fakeCLI struct {
	hostname  string
	secret    string
	banner    string
	responses map[string]string
	// silent commands are echoed but never answered.
	silent map[string]bool

	mu         sync.Mutex
	privileged bool
	configMode string
	awaitingPw bool
	received   []string
}

func newFakeCLI() *fakeCLI {
	return &fakeCLI{
		hostname: "r1",
		secret:   "enablepw",
		banner:   "Authorized access only>",
		responses: map[string]string{
			"show version": "Cisco IOS Software, Version 15.2(4)M\r\nr1 uptime is 1 week",
			"show clock":   "*10:00:00.000 UTC Mon Jan 1 2024",
		},
		silent: map[string]bool{"show slow": true},
	}
}

func (f *fakeCLI) Received() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.received...)
}

func (f *fakeCLI) prompt() string {
	p := f.hostname
	if f.configMode != "" {
		p += "(" + f.configMode + ")"
	}
	if f.privileged {
		return p + "#"
	}
	return p + ">"
}

// serve runs the CLI until rw is closed.
func (f *fakeCLI) serve(rw io.ReadWriteCloser) {
	defer rw.Close()

	f.mu.Lock()
	greeting := f.banner + "\r\n" + f.prompt()
	f.mu.Unlock()
	_, _ = io.WriteString(rw, greeting)

	f.loop(bufio.NewReader(rw), rw)
}

func (f *fakeCLI) loop(br *bufio.Reader, w io.Writer) {
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")

		f.mu.Lock()
		echo := !f.awaitingPw
		reply := f.handle(line)
		f.mu.Unlock()

		if echo {
			_, _ = io.WriteString(w, line+"\r\n")
		}
		if reply != "" {
			_, _ = io.WriteString(w, reply)
		}
	}
}

func (f *fakeCLI) handle(line string) string {
	if f.awaitingPw {
		f.awaitingPw = false
		if line == f.secret {
			f.privileged = true
			return "\r\n" + f.prompt()
		}
		return "% Access denied\r\n\r\n" + f.prompt()
	}

	f.received = append(f.received, line)
	if f.silent[line] {
		return ""
	}

	switch {
	case line == "":
		return f.prompt()
	case line == "enable":
		if f.secret == "" {
			f.privileged = true
			return f.prompt()
		}
		f.awaitingPw = true
		return "Password: "
	case strings.HasPrefix(line, "terminal "):
		return f.prompt()
	case line == "configure terminal" && f.privileged:
		f.configMode = "config"
		return "Enter configuration commands, one per line.  End with CNTL/Z.\r\n" + f.prompt()
	case line == "end" && f.configMode != "":
		f.configMode = ""
		return f.prompt()
	case f.configMode != "":
		if strings.HasPrefix(line, "bogus") {
			return invalidInput + "\r\n\r\n" + f.prompt()
		}
		if strings.HasPrefix(line, "interface ") {
			f.configMode = "config-if"
		}
		return f.prompt()
	}

	if out, ok := f.responses[line]; ok {
		return out + "\r\n" + f.prompt()
	}
	return invalidInput + "\r\n\r\n" + f.prompt()
}
