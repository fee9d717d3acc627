package driver

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/sandevgo/tusknet/internal/core"
)

type sshTestServer struct {
	addr   string
	host   string
	port   int
	signer ssh.Signer
	cli    *fakeCLI
}

// startSSHServer runs a password-protected SSH server whose shell is a fakeCLI.
func startSSHServer(t *testing.T) *sshTestServer {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	signer, err := ssh.NewSignerFromKey(priv)
	require.NoError(t, err)

	config := &ssh.ServerConfig{
		PasswordCallback: func(c ssh.ConnMetadata, pass []byte) (*ssh.Permissions, error) {
			if c.User() == "admin" && string(pass) == "secret" {
				return nil, nil
			}
			return nil, errors.New("access denied")
		},
	}
	config.AddHostKey(signer)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = listener.Close() })

	srv := &sshTestServer{
		addr:   listener.Addr().String(),
		signer: signer,
		cli:    newFakeCLI(),
	}
	host, port, _ := net.SplitHostPort(srv.addr)
	srv.host = host
	srv.port, _ = strconv.Atoi(port)

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go srv.handle(conn, config)
		}
	}()
	return srv
}

func (s *sshTestServer) handle(conn net.Conn, config *ssh.ServerConfig) {
	_, chans, reqs, err := ssh.NewServerConn(conn, config)
	if err != nil {
		_ = conn.Close()
		return
	}
	go ssh.DiscardRequests(reqs)

	for newChan := range chans {
		if newChan.ChannelType() != "session" {
			_ = newChan.Reject(ssh.UnknownChannelType, "unknown channel type")
			continue
		}
		channel, requests, err := newChan.Accept()
		if err != nil {
			continue
		}
		go func() {
			for req := range requests {
				switch req.Type {
				case "pty-req":
					_ = req.Reply(true, nil)
				case "shell":
					_ = req.Reply(true, nil)
					go s.cli.serve(channel)
				default:
					if req.WantReply {
						_ = req.Reply(false, nil)
					}
				}
			}
		}()
	}
}

func (s *sshTestServer) params(user, password string) core.ConnectionParams {
	return core.ConnectionParams{
		Host:       s.host,
		Port:       s.port,
		DeviceType: "cisco_ios",
		Username:   user,
		Password:   password,
		Secret:     "enablepw",
		Timeout:    2 * time.Second,
	}
}

func TestSSHDriver_OpenAndRun(t *testing.T) {
	srv := startSSHServer(t)
	f, err := NewFactory("")
	require.NoError(t, err)
	drv, err := f.NewDriver("cisco_ios")
	require.NoError(t, err)

	conn, err := drv.Open(testCtx(t), srv.params("admin", "secret"))
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, "r1#", conn.Prompt())

	out, err := conn.Run(testCtx(t), core.Request{
		Mode:         core.ModeRead,
		Commands:     []string{"show clock"},
		StripPrompt:  true,
		StripCommand: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "*10:00:00.000 UTC Mon Jan 1 2024", out)

	_, err = conn.Run(testCtx(t), core.Request{
		Mode:           core.ModeWrite,
		Commands:       []string{"interface Gi0/1", "no shutdown"},
		ExitConfigMode: true,
	})
	require.NoError(t, err)
	assert.NoError(t, conn.Close())
}

func TestSSHDriver_AuthenticationFailure(t *testing.T) {
	srv := startSSHServer(t)
	f, _ := NewFactory("")
	drv, _ := f.NewDriver("cisco_ios")

	_, err := drv.Open(testCtx(t), srv.params("admin", "wrong"))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrAuthentication)

	de := core.ConnectFailure("r1", err)
	assert.Equal(t, core.ReasonAuthentication, de.Reason)
}

func TestSSHDriver_Unreachable(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().(*net.TCPAddr)
	require.NoError(t, listener.Close())

	f, _ := NewFactory("")
	drv, _ := f.NewDriver("cisco_ios")
	_, err = drv.Open(testCtx(t), core.ConnectionParams{
		Host:    "127.0.0.1",
		Port:    addr.Port,
		Timeout: time.Second,
	})
	assert.ErrorIs(t, err, core.ErrUnreachable)
}

func TestSSHDriver_KnownHosts(t *testing.T) {
	srv := startSSHServer(t)
	dir := t.TempDir()

	trusted := filepath.Join(dir, "known_hosts")
	line := knownhosts.Line([]string{srv.addr}, srv.signer.PublicKey())
	require.NoError(t, os.WriteFile(trusted, []byte(line+"\n"), 0o600))

	f, err := NewFactory(trusted)
	require.NoError(t, err)
	drv, _ := f.NewDriver("cisco_ios")
	conn, err := drv.Open(testCtx(t), srv.params("admin", "secret"))
	require.NoError(t, err)
	_ = conn.Close()

	_, otherKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	otherSigner, err := ssh.NewSignerFromKey(otherKey)
	require.NoError(t, err)

	mismatched := filepath.Join(dir, "known_hosts_other")
	line = knownhosts.Line([]string{srv.addr}, otherSigner.PublicKey())
	require.NoError(t, os.WriteFile(mismatched, []byte(line+"\n"), 0o600))

	f, err = NewFactory(mismatched)
	require.NoError(t, err)
	drv, _ = f.NewDriver("cisco_ios")
	_, err = drv.Open(testCtx(t), srv.params("admin", "secret"))
	assert.Error(t, err)
}

func TestSSHDriver_ContextCancelled(t *testing.T) {
	srv := startSSHServer(t)
	f, _ := NewFactory("")
	drv, _ := f.NewDriver("cisco_ios")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := drv.Open(ctx, srv.params("admin", "secret"))
	assert.Error(t, err)
}
