package driver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/sandevgo/tusknet/internal/core"
)

const (
	ptyWidth  = 511
	ptyHeight = 1000
)

type sshDriver struct {
	dialect         Dialect
	hostKeyCallback ssh.HostKeyCallback
}

func (d *sshDriver) DefaultPort() int {
	return d.dialect.DefaultPort()
}

func (d *sshDriver) Open(ctx context.Context, params core.ConnectionParams) (core.DeviceConn, error) {
	addr := net.JoinHostPort(params.Host, strconv.Itoa(params.Port))

	cfg := &ssh.ClientConfig{
		User: params.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(params.Password),
			ssh.KeyboardInteractive(answerWith(params.Password)),
		},
		HostKeyCallback: d.hostKeyCallback,
		Timeout:         params.Timeout,
	}

	dialer := &net.Dialer{Timeout: params.Timeout}
	rawConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, dialError(addr, err)
	}

	// Handshake I/O is bounded by the connect timeout and by ctx.
	_ = rawConn.SetDeadline(time.Now().Add(params.Timeout))
	stop := context.AfterFunc(ctx, func() { _ = rawConn.Close() })

	clientConn, chans, reqs, err := ssh.NewClientConn(rawConn, addr, cfg)
	if err != nil {
		stop()
		_ = rawConn.Close()
		return nil, handshakeError(addr, err)
	}
	_ = rawConn.SetDeadline(time.Time{})

	client := ssh.NewClient(clientConn, chans, reqs)
	conn, err := startShell(ctx, client, d.dialect, params.Secret)
	stop()
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return conn, nil
}

func startShell(ctx context.Context, client *ssh.Client, d Dialect, secret string) (*shell, error) {
	session, err := client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("%w: open session: %v", core.ErrUnreachable, err)
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          0,
		ssh.TTY_OP_ISPEED: 9600,
		ssh.TTY_OP_OSPEED: 9600,
	}
	if err := session.RequestPty("vt100", ptyHeight, ptyWidth, modes); err != nil {
		_ = session.Close()
		return nil, fmt.Errorf("%w: request pty: %v", core.ErrUnreachable, err)
	}

	stdin, err := session.StdinPipe()
	if err != nil {
		_ = session.Close()
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		_ = session.Close()
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if err := session.Shell(); err != nil {
		_ = session.Close()
		return nil, fmt.Errorf("%w: start shell: %v", core.ErrUnreachable, err)
	}

	sh := newShell(d, stdout, stdin, &sshCloser{session: session, client: client})
	if err := sh.establish(ctx, secret); err != nil {
		_ = sh.Close()
		return nil, err
	}
	return sh, nil
}

type sshCloser struct {
	session *ssh.Session
	client  *ssh.Client
}

func (c *sshCloser) Close() error {
	serr := c.session.Close()
	cerr := c.client.Close()
	// Closing an already finished session reports io.EOF.
	if serr != nil && !isClosedErr(serr) {
		return errors.Join(serr, cerr)
	}
	if cerr != nil && !isClosedErr(cerr) {
		return cerr
	}
	return nil
}

func answerWith(password string) ssh.KeyboardInteractiveChallenge {
	return func(name, instruction string, questions []string, echos []bool) ([]string, error) {
		answers := make([]string, len(questions))
		for i := range questions {
			answers[i] = password
		}
		return answers, nil
	}
}

func dialError(addr string, err error) error {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	return fmt.Errorf("dial %s: %w: %v", addr, core.ErrUnreachable, err)
}

func handshakeError(addr string, err error) error {
	if strings.Contains(err.Error(), "unable to authenticate") {
		return fmt.Errorf("ssh %s: %w: %v", addr, core.ErrAuthentication, err)
	}
	return fmt.Errorf("ssh %s: %w", addr, err)
}

func isClosedErr(err error) bool {
	return errors.Is(err, net.ErrClosed) || strings.Contains(err.Error(), "EOF")
}
