package agent

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/segpull/segpull/internal/engine/types"
)

// PasswordEnv is read by lftp's open --env-password
const PasswordEnv = "LFTP_PASSWORD"

// Target is a parsed sftp:// location
type Target struct {
	Host       string
	Port       int
	User       string
	Password   string
	RemotePath string
}

// ParseTarget parses sftp://[user[:password]@]host[:port]/path
func ParseTarget(raw string) (Target, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Target{}, fmt.Errorf("invalid target %q: %w", raw, err)
	}
	if u.Scheme != "sftp" {
		return Target{}, fmt.Errorf("invalid target %q: scheme must be sftp", raw)
	}
	if u.Hostname() == "" {
		return Target{}, fmt.Errorf("invalid target %q: missing host", raw)
	}
	if u.Path == "" || strings.HasSuffix(u.Path, "/") {
		return Target{}, fmt.Errorf("invalid target %q: missing remote file", raw)
	}

	t := Target{
		Host:       u.Hostname(),
		Port:       types.DefaultSFTPPort,
		RemotePath: u.Path,
	}
	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil || port <= 0 || port > 65535 {
			return Target{}, fmt.Errorf("invalid target %q: bad port %q", raw, p)
		}
		t.Port = port
	}
	if u.User != nil {
		t.User = u.User.Username()
		t.Password, _ = u.User.Password()
	}
	return t, nil
}

// String renders the target without its password
func (t Target) String() string {
	host := t.Host
	if t.Port != 0 && t.Port != types.DefaultSFTPPort {
		host += ":" + strconv.Itoa(t.Port)
	}
	if t.User != "" {
		host = t.User + "@" + host
	}
	return "sftp://" + host + t.RemotePath
}

// Options control one pget invocation
type Options struct {
	LocalPath  string
	Segments   int
	Resume     bool
	Track      bool // Ask lftp to keep the segment status file
	Timeout    time.Duration
	NetRetries int
}

// Command is a ready to run agent invocation. Env holds extra KEY=VALUE pairs.
type Command struct {
	Path string
	Args []string
	Env  []string
}

// String renders the command line for logs. Secrets only ever travel in Env.
func (c Command) String() string {
	return c.Path + " " + strings.Join(c.Args, " ")
}

// CommandBuilder turns a target and options into an agent command
type CommandBuilder interface {
	Build(t Target, opts Options) Command
}

// LFTP builds lftp -c scripts
type LFTP struct {
	Binary string
}

// Build implements CommandBuilder
func (l LFTP) Build(t Target, opts Options) Command {
	binary := l.Binary
	if binary == "" {
		binary = types.DefaultAgentBinary
	}
	cmd := Command{
		Path: binary,
		Args: []string{"-c", Script(t, opts)},
	}
	if t.Password != "" {
		cmd.Env = append(cmd.Env, PasswordEnv+"="+t.Password)
	}
	return cmd
}

// Script returns the lftp command script for one pget run
func Script(t Target, opts Options) string {
	segments := opts.Segments
	if segments < 1 {
		segments = 1
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = types.DefaultAgentTimeout
	}
	retries := opts.NetRetries
	if retries <= 0 {
		retries = types.DefaultAgentNetRetries
	}

	var b strings.Builder
	b.WriteString("set cmd:fail-exit yes; ")
	fmt.Fprintf(&b, "set net:max-retries %d; ", retries)
	fmt.Fprintf(&b, "set net:timeout %d; ", int(timeout.Seconds()))
	b.WriteString("set sftp:auto-confirm yes; ")

	b.WriteString("open")
	if t.User != "" {
		fmt.Fprintf(&b, " -u %s", quote(t.User))
		if t.Password != "" {
			b.WriteString(" --env-password")
		}
	}
	port := t.Port
	if port == 0 {
		port = types.DefaultSFTPPort
	}
	fmt.Fprintf(&b, " -p %d sftp://%s; ", port, hostLiteral(t.Host))

	fmt.Fprintf(&b, "pget -n %d", segments)
	// lftp only writes the status file when continuing is enabled
	if opts.Resume || opts.Track {
		b.WriteString(" -c")
	}
	fmt.Fprintf(&b, " %s -o %s", quote(t.RemotePath), quote(opts.LocalPath))
	return b.String()
}

func hostLiteral(host string) string {
	if strings.Contains(host, ":") {
		return "[" + host + "]"
	}
	return host
}

// quote wraps s in double quotes using lftp's escaping rules
func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}
