package session

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"netbackup/internal/models"
	"netbackup/pkg/logging"
)

const defaultSSHPort = 22

// SSHConfig configures the SSH connector.
type SSHConfig struct {
	Timeout    time.Duration
	KnownHosts string // empty disables host key verification
	Username   string // used when the device has none
	Password   string // used when the device has none
}

// SSHConnector retrieves configurations by running a show command over an
// SSH exec channel.
type SSHConnector struct {
	config          SSHConfig
	hostKeyCallback ssh.HostKeyCallback
	logger          logging.Logger
}

// NewSSHConnector creates an SSH connector. It fails only if the known_hosts
// file cannot be loaded.
func NewSSHConnector(cfg SSHConfig, logger logging.Logger) (*SSHConnector, error) {
	callback := ssh.InsecureIgnoreHostKey()
	if cfg.KnownHosts != "" {
		cb, err := knownhosts.New(cfg.KnownHosts)
		if err != nil {
			return nil, fmt.Errorf("failed to load known_hosts %s: %w", cfg.KnownHosts, err)
		}
		callback = cb
	} else {
		logger.Warn("SSH host key verification is disabled; set session.known_hosts to enable it")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &SSHConnector{config: cfg, hostKeyCallback: callback, logger: logger}, nil
}

// CommandFor returns the show command that prints the running configuration
// for a device type. Unknown types use the IOS command.
func CommandFor(deviceType string) string {
	switch deviceType {
	case models.DeviceTypeJuniperJunos:
		return "show configuration | no-more"
	case models.DeviceTypeAristaEOS:
		return "show running-config"
	default:
		return "show running-config"
	}
}

// Connect dials the device and authenticates with password credentials.
func (c *SSHConnector) Connect(ctx context.Context, device models.Device) (Session, error) {
	user, pass := device.Username, device.Password
	if user == "" {
		user = c.config.Username
	}
	if pass == "" {
		pass = c.config.Password
	}
	port := device.Port
	if port == 0 {
		port = defaultSSHPort
	}
	addr := net.JoinHostPort(device.Host, strconv.Itoa(port))

	clientCfg := &ssh.ClientConfig{
		User: user,
		Auth: []ssh.AuthMethod{
			ssh.Password(pass),
			ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = pass
				}
				return answers, nil
			}),
		},
		HostKeyCallback: c.hostKeyCallback,
		Timeout:         c.config.Timeout,
	}

	c.logger.Info("Connecting to %s (%s)...", device.Name, addr)

	dialer := net.Dialer{Timeout: c.config.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, NewConnectionError(device.Name, "dial failed", err)
	}
	_ = conn.SetDeadline(time.Now().Add(c.config.Timeout))
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, clientCfg)
	if err != nil {
		conn.Close()
		return nil, NewConnectionError(device.Name, "ssh handshake failed", err)
	}
	_ = conn.SetDeadline(time.Time{})

	return &sshSession{
		client:  ssh.NewClient(sshConn, chans, reqs),
		device:  device.Name,
		timeout: c.config.Timeout,
	}, nil
}

type sshSession struct {
	client  *ssh.Client
	device  string
	timeout time.Duration
}

func (s *sshSession) Retrieve(ctx context.Context, deviceType string) (string, error) {
	sess, err := s.client.NewSession()
	if err != nil {
		return "", NewRetrievalError(s.device, "cannot open exec channel", err)
	}
	defer sess.Close()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type result struct {
		out []byte
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := sess.Output(CommandFor(deviceType))
		done <- result{out, err}
	}()

	select {
	case <-ctx.Done():
		sess.Close()
		return "", NewRetrievalError(s.device, "command timed out", ctx.Err())
	case r := <-done:
		if r.err != nil {
			return "", NewRetrievalError(s.device, "command failed", r.err)
		}
		return CleanOutput(string(r.out)), nil
	}
}

func (s *sshSession) Close() error {
	return s.client.Close()
}

// CleanOutput drops the IOS preamble that precedes the configuration body.
func CleanOutput(out string) string {
	lines := strings.Split(out, "\n")
	start := 0
	for start < len(lines) {
		l := strings.TrimSpace(lines[start])
		if l == "" || strings.HasPrefix(l, "Building configuration") || strings.HasPrefix(l, "Current configuration") {
			start++
			continue
		}
		break
	}
	return strings.Join(lines[start:], "\n")
}
