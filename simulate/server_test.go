package simulate

import (
	"bufio"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

func dial(t *testing.T, srv *Server, password string) (*ssh.Client, error) {
	t.Helper()
	return ssh.Dial("tcp", srv.Addr(), &ssh.ClientConfig{
		User:            "admin",
		Auth:            []ssh.AuthMethod{ssh.Password(password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         5 * time.Second,
	})
}

func startServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	srv, err := Start(cfg)
	require.NoError(t, err)
	t.Cleanup(srv.Stop)
	return srv
}

func TestServerRejectsBadPassword(t *testing.T) {
	srv := startServer(t, DefaultConfig())
	_, err := dial(t, srv, "wrong")
	assert.Error(t, err)
}

func TestServerExec(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mode = ModeMultiple
	cfg.Contexts = []string{"admin"}
	srv := startServer(t, cfg)

	client, err := dial(t, srv, "admin")
	require.NoError(t, err)
	defer client.Close()

	sess, err := client.NewSession()
	require.NoError(t, err)
	defer sess.Close()
	out, err := sess.Output("show mode")
	require.NoError(t, err)
	assert.Equal(t, "Security context mode: multiple\r\n", string(out))
}

func TestServerInteractiveShell(t *testing.T) {
	srv := startServer(t, DefaultConfig())
	client, err := dial(t, srv, "admin")
	require.NoError(t, err)
	defer client.Close()

	sess, err := client.NewSession()
	require.NoError(t, err)
	defer sess.Close()
	require.NoError(t, sess.RequestPty("vt100", 80, 200, ssh.TerminalModes{}))
	stdin, err := sess.StdinPipe()
	require.NoError(t, err)
	stdout, err := sess.StdoutPipe()
	require.NoError(t, err)
	require.NoError(t, sess.Shell())

	r := bufio.NewReader(stdout)
	readUntil := func(suffix string) string {
		var b strings.Builder
		for !strings.HasSuffix(b.String(), suffix) {
			c, err := r.ReadByte()
			require.NoError(t, err)
			b.WriteByte(c)
		}
		return b.String()
	}

	readUntil("ciscoasa> ")
	_, err = stdin.Write([]byte("enable\n"))
	require.NoError(t, err)
	readUntil("Password: ")
	_, err = stdin.Write([]byte("cisco\n"))
	require.NoError(t, err)
	readUntil("ciscoasa# ")

	_, err = stdin.Write([]byte("show mode\n"))
	require.NoError(t, err)
	out := readUntil("ciscoasa# ")
	assert.Equal(t, "show mode\r\nSecurity context mode: single\r\nciscoasa# ", out)
}
