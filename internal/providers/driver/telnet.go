package driver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"time"

	"github.com/ziutek/telnet"

	"github.com/sandevgo/tusknet/internal/core"
)

var (
	usernameReq  = regexp.MustCompile(`(?i)(username|login|user name):?\s*$`)
	loginRefused = regexp.MustCompile(`(?i)(% ?login invalid|authentication failed|login incorrect|% ?bad passwords|access denied)`)
)

type telnetDriver struct {
	dialect Dialect
}

func (d *telnetDriver) DefaultPort() int {
	return d.dialect.DefaultPort()
}

func (d *telnetDriver) Open(ctx context.Context, params core.ConnectionParams) (core.DeviceConn, error) {
	addr := net.JoinHostPort(params.Host, strconv.Itoa(params.Port))

	dialer := &net.Dialer{Timeout: params.Timeout}
	rawConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, dialError(addr, err)
	}

	conn, err := telnet.NewConn(rawConn)
	if err != nil {
		_ = rawConn.Close()
		return nil, fmt.Errorf("telnet %s: %w: %v", addr, core.ErrUnreachable, err)
	}
	conn.SetUnixWriteMode(true)

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	sh := newShell(d.dialect, conn, conn, conn)
	if err := login(ctx, sh, params, time.Now().Add(params.Timeout)); err != nil {
		_ = sh.Close()
		return nil, fmt.Errorf("telnet %s: %w", addr, err)
	}
	if err := sh.establish(ctx, params.Secret); err != nil {
		_ = sh.Close()
		return nil, fmt.Errorf("telnet %s: %w", addr, err)
	}
	return sh, nil
}

// login answers the username and password prompts. Devices without a
// username prompt go straight to the password.
func login(ctx context.Context, sh *shell, params core.ConnectionParams, deadline time.Time) error {
	ctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	anyPrompt := sh.dialect.anyPromptPattern()
	_, idx, err := sh.readUntil(ctx, usernameReq, passwordReq, anyPrompt)
	if err != nil {
		return loginError(err)
	}

	if idx == 0 {
		if err := sh.send(params.Username); err != nil {
			return err
		}
		if _, _, err := sh.readUntil(ctx, passwordReq); err != nil {
			return loginError(err)
		}
		idx = 1
	}

	if idx == 1 {
		if err := sh.send(params.Password); err != nil {
			return err
		}
		out, idx, err := sh.readUntil(ctx, loginRefused, usernameReq, passwordReq, anyPrompt)
		if err != nil {
			return loginError(err)
		}
		if idx != 3 {
			return fmt.Errorf("%w: %s", core.ErrAuthentication, lastLine(out))
		}
	}

	// The prompt is read again by establish.
	_ = sh.send("")
	return nil
}

// loginError reports a login deadline as a driver timeout so it is told apart
// from the caller giving up.
func loginError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("login: %w", core.ErrDriverTimeout)
	}
	return fmt.Errorf("login: %w", err)
}

func lastLine(out string) string {
	for i := len(out) - 1; i >= 0; i-- {
		if out[i] == '\n' && i < len(out)-1 {
			return out[i+1:]
		}
	}
	return out
}
