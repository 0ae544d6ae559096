package daemon

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/npratt/reroll/internal/config"
)

const (
	// daemonEnvVar marks the re-executed serve process.
	daemonEnvVar = "REROLL_DAEMONIZED"

	// socketWaitTimeout is how long the parent waits for the child's socket.
	socketWaitTimeout = 2 * time.Second

	socketCheckInterval = 50 * time.Millisecond
)

// spawnFunc starts a prepared child command.
type spawnFunc func(cmd *exec.Cmd) error

// Daemonize re-executes the current command detached from the terminal.
// It returns (true, pid, nil) in the parent, which should exit, and
// (false, pid, nil) in the child, which carries on serving. The parent waits
// up to two seconds for the child's socket before reporting.
func Daemonize(cfg *config.Config) (shouldExit bool, pid int, err error) {
	return daemonize(cfg, os.Args[1:], (*exec.Cmd).Start, os.Stdout)
}

func daemonize(cfg *config.Config, args []string, spawn spawnFunc, out io.Writer) (bool, int, error) {
	if IsDaemonized() {
		return false, os.Getpid(), nil
	}
	if cfg == nil || cfg.Paths.Socket == "" {
		return false, 0, errors.New("daemonize: no socket path configured")
	}

	executable, err := os.Executable()
	if err != nil {
		return false, 0, fmt.Errorf("get executable path: %w", err)
	}

	cmd := childCommand(executable, args, os.Environ())
	if err := spawn(cmd); err != nil {
		return false, 0, fmt.Errorf("start daemon: %w", err)
	}
	childPID := 0
	if cmd.Process != nil {
		childPID = cmd.Process.Pid
	}

	if err := waitForSocketReady(cfg.Paths.Socket, socketWaitTimeout); err != nil {
		// The child may still be loading the catalog or the OCR engine.
		_, _ = fmt.Fprintf(out, "Started reroll daemon (pid %d), socket %s not ready yet\n", childPID, cfg.Paths.Socket)
	} else {
		_, _ = fmt.Fprintf(out, "Started reroll daemon (pid %d) on %s\n", childPID, cfg.Paths.Socket)
	}
	return true, childPID, nil
}

// childCommand builds the detached re-exec of the current serve invocation.
// Any inherited daemon marker is replaced so the child sees exactly one.
func childCommand(executable string, args, environ []string) *exec.Cmd {
	env := make([]string, 0, len(environ)+1)
	for _, kv := range environ {
		if strings.HasPrefix(kv, daemonEnvVar+"=") {
			continue
		}
		env = append(env, kv)
	}
	env = append(env, daemonEnvVar+"=1")

	cmd := exec.Command(executable, args...)
	cmd.Env = env
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.SysProcAttr = detachAttrs()
	return cmd
}

// IsDaemonized reports whether this process is the re-executed daemon child.
func IsDaemonized() bool {
	return os.Getenv(daemonEnvVar) == "1"
}

// waitForSocketReady polls until socketPath accepts connections.
func waitForSocketReady(socketPath string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("unix", socketPath, socketCheckInterval)
		if err == nil {
			_ = conn.Close()
			return nil
		}
		time.Sleep(socketCheckInterval)
	}
	return fmt.Errorf("socket %s not available after %v", socketPath, timeout)
}
