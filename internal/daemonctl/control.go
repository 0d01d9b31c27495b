// Package daemonctl drives the daemon process from CLI commands: launching
// it detached, waiting for the control socket, and stopping or killing it
// when the socket stops answering.
package daemonctl

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/delsi82/color-recognition/internal/camera"
	"github.com/delsi82/color-recognition/internal/config"
	"github.com/delsi82/color-recognition/internal/ipc"
	"github.com/delsi82/color-recognition/internal/preflight"
	"github.com/delsi82/color-recognition/internal/triage"
)

// ErrDaemonNotRunning reports that no daemon answered on the control socket
// and no live process matched the PID file.
var ErrDaemonNotRunning = errors.New("daemon not running")

const shutdownPollInterval = 200 * time.Millisecond

// StartState describes how EnsureStarted satisfied the request.
type StartState string

const (
	StartStateStarted        StartState = "started"
	StartStateAlreadyRunning StartState = "already-running"
	StartStateStopping       StartState = "stopping"
)

// StartResult reports the outcome of a start request.
type StartResult struct {
	State    StartState
	Launched bool
	Message  string
}

// LaunchOptions carries the flags forwarded to the spawned daemon process.
type LaunchOptions struct {
	ConfigPath string
}

// Launch spawns the daemon as a detached child of the current process. An
// empty executable path resolves to the current binary.
func Launch(executablePath string, opts LaunchOptions) error {
	if strings.TrimSpace(executablePath) == "" {
		path, err := os.Executable()
		if err != nil {
			return fmt.Errorf("resolve executable: %w", err)
		}
		executablePath = path
	}
	args := []string{"run"}
	if opts.ConfigPath != "" {
		args = append(args, "--config", opts.ConfigPath)
	}
	cmd := exec.Command(executablePath, args...)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start daemon process: %w", err)
	}
	if cmd.Process != nil {
		_ = cmd.Process.Release()
	}
	return nil
}

// WaitForClient dials the control socket until it answers or the timeout
// elapses, returning a connected client.
func WaitForClient(socketPath string, timeout time.Duration) (*ipc.Client, error) {
	deadline := time.Now().Add(timeout)
	for {
		client, err := ipc.Dial(socketPath)
		if err == nil {
			return client, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("daemon did not become ready within %s: %w", timeout, err)
		}
		time.Sleep(shutdownPollInterval)
	}
}

// EnsureStarted connects to a running daemon, or launches one and waits for
// its control socket to come up.
func EnsureStarted(socketPath, executablePath string, opts LaunchOptions, readyTimeout time.Duration) (StartResult, error) {
	client, err := ipc.Dial(socketPath)
	if err == nil {
		defer client.Close()
		status, statusErr := client.Status()
		if statusErr == nil && status != nil && !status.Running {
			return StartResult{
				State:   StartStateStopping,
				Message: "daemon is shutting down; retry once it exits",
			}, nil
		}
		return StartResult{State: StartStateAlreadyRunning}, nil
	}
	if !isDaemonUnavailable(err) {
		return StartResult{}, fmt.Errorf("connect to daemon: %w", err)
	}
	if err := Launch(executablePath, opts); err != nil {
		return StartResult{}, err
	}
	ready, err := WaitForClient(socketPath, readyTimeout)
	if err != nil {
		return StartResult{}, err
	}
	ready.Close()
	return StartResult{State: StartStateStarted, Launched: true}, nil
}

// ProcessInfo reads the PID file and reports whether that process is alive.
func ProcessInfo(pidPath string) (int, bool) {
	data, err := os.ReadFile(pidPath)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, processAlive(pid)
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

// WaitForShutdown polls until the daemon is down or the timeout elapses.
// Down means the socket stopped answering and the process exited, or the
// socket still answers but reports the session stopped (the window between
// acknowledging a stop and releasing the socket). Returns true on a clean
// shutdown.
func WaitForShutdown(socketPath string, pid int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		client, err := ipc.Dial(socketPath)
		if err == nil {
			status, statusErr := client.Status()
			client.Close()
			if statusErr == nil && status != nil && !status.Running {
				return true
			}
		} else if pid <= 0 || !processAlive(pid) {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(shutdownPollInterval)
	}
}

// ForceKillProcess kills the daemon identified by the PID file and removes
// the PID and lock files it leaves behind. It refuses to kill the calling
// process.
func ForceKillProcess(pidPath, lockPath string) (bool, error) {
	pid, alive := ProcessInfo(pidPath)
	if pid <= 0 {
		return false, ErrDaemonNotRunning
	}
	if pid == os.Getpid() {
		return false, fmt.Errorf("refusing to kill current process (pid %d)", pid)
	}
	killed := false
	if alive {
		proc, err := os.FindProcess(pid)
		if err != nil {
			return false, fmt.Errorf("find daemon process %d: %w", pid, err)
		}
		if err := proc.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return false, fmt.Errorf("kill daemon process %d: %w", pid, err)
		}
		killed = true
	}
	for _, path := range []string{pidPath, lockPath} {
		if strings.TrimSpace(path) == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return killed, fmt.Errorf("remove %s: %w", path, err)
		}
	}
	return killed, nil
}

// StopResult reports how the daemon was brought down.
type StopResult struct {
	StopAcknowledged bool
	ForcedKill       bool
	PID              int
}

// StopAndTerminate asks the daemon to stop over IPC and escalates to SIGKILL
// when it does not exit within the grace period.
func StopAndTerminate(socketPath string, cfg *config.Config, grace time.Duration) (StopResult, error) {
	var result StopResult
	pidPath, lockPath := daemonPaths(cfg)

	client, err := ipc.Dial(socketPath)
	if err != nil {
		if !isDaemonUnavailable(err) {
			return result, fmt.Errorf("connect to daemon: %w", err)
		}
		pid, alive := ProcessInfo(pidPath)
		if !alive {
			return result, ErrDaemonNotRunning
		}
		// The socket is gone but the process is still up.
		killed, killErr := ForceKillProcess(pidPath, lockPath)
		if killErr != nil {
			return result, killErr
		}
		result.ForcedKill = killed
		result.PID = pid
		return result, nil
	}

	if status, statusErr := client.Status(); statusErr == nil && status != nil {
		result.PID = status.PID
	}
	stopResp, stopErr := client.Stop()
	client.Close()
	switch {
	case stopErr == nil:
		result.StopAcknowledged = stopResp != nil && stopResp.Stopped
	case !isDaemonUnavailable(stopErr):
		return result, fmt.Errorf("request daemon stop: %w", stopErr)
	}

	if WaitForShutdown(socketPath, result.PID, grace) {
		return result, nil
	}
	killed, killErr := ForceKillProcess(pidPath, lockPath)
	if killErr != nil {
		return result, killErr
	}
	result.ForcedKill = killed
	return result, nil
}

// RestartResult captures both halves of a restart request.
type RestartResult struct {
	Stop  StopResult
	Start StartResult
}

// Restart stops any running daemon and launches a fresh one.
func Restart(socketPath, executablePath string, cfg *config.Config, opts LaunchOptions, grace, readyTimeout time.Duration) (RestartResult, error) {
	var result RestartResult
	stop, err := StopAndTerminate(socketPath, cfg, grace)
	if err != nil && !errors.Is(err, ErrDaemonNotRunning) {
		return result, err
	}
	result.Stop = stop
	start, err := EnsureStarted(socketPath, executablePath, opts, readyTimeout)
	if err != nil {
		return result, err
	}
	result.Start = start
	return result, nil
}

// FetchStatus queries the daemon over IPC, falling back to an offline
// snapshot built from configuration and the PID file when nothing answers.
// The second return reports whether a live daemon produced the response.
func FetchStatus(socketPath string, cfg *config.Config) (*ipc.StatusResponse, bool) {
	client, err := ipc.Dial(socketPath)
	if err == nil {
		defer client.Close()
		if status, statusErr := client.Status(); statusErr == nil && status != nil {
			return status, true
		}
	}

	offline := &ipc.StatusResponse{State: string(triage.StateStopped)}
	if cfg != nil {
		offline.LockPath = cfg.Daemon.LockPath
		if cfg.Detections.Enabled {
			offline.IndexPath = cfg.Detections.DatabasePath
		}
		if pid, alive := ProcessInfo(cfg.Daemon.PIDPath); alive {
			// Process exists but the socket is not answering yet.
			offline.Running = true
			offline.PID = pid
		}
	}
	return offline, false
}

// StatusLine is one row of the CLI status report.
type StatusLine struct {
	Label    string
	Severity string
	Detail   string
}

// BuildSystemChecks combines daemon state with local configuration checks
// into the rows rendered by the status command.
func BuildSystemChecks(cfg *config.Config, status *ipc.StatusResponse) []StatusLine {
	lines := make([]StatusLine, 0, 8)
	if status != nil && status.Running {
		detail := "Running"
		if status.PID > 0 {
			detail = fmt.Sprintf("Running (pid %d)", status.PID)
		}
		lines = append(lines, StatusLine{Label: "Daemon", Severity: "ok", Detail: detail})
	} else {
		lines = append(lines, StatusLine{Label: "Daemon", Severity: "warn", Detail: "Not running (run `colorrec start`)"})
	}

	if cfg == nil {
		return lines
	}

	if node := camera.NodeForSelector(cfg.Camera.Device); node != "" {
		check := preflight.CheckDeviceNode("Camera", node)
		lines = append(lines, StatusLine{Label: "Camera", Severity: severityFor(check.Passed), Detail: check.Detail})
	} else {
		lines = append(lines, StatusLine{Label: "Camera", Severity: "info", Detail: fmt.Sprintf("Remote source (%s)", cfg.Camera.Device)})
	}

	for _, dir := range []struct {
		label string
		path  string
	}{
		{label: "Output directory", path: cfg.Paths.OutputDir},
		{label: "Log directory", path: cfg.Paths.LogDir},
		{label: "State directory", path: cfg.Paths.StateDir},
	} {
		result := preflight.CheckDirectoryAccess(dir.label, dir.path)
		lines = append(lines, StatusLine{Label: dir.label, Severity: severityFor(result.Passed), Detail: result.Detail})
	}

	if cfg.Detections.Enabled {
		lines = append(lines, StatusLine{Label: "Detection index", Severity: "ok", Detail: cfg.Detections.DatabasePath})
	} else {
		lines = append(lines, StatusLine{Label: "Detection index", Severity: "info", Detail: "Disabled"})
	}

	if strings.TrimSpace(cfg.Notifications.NtfyTopic) != "" {
		lines = append(lines, StatusLine{Label: "Notifications", Severity: "ok", Detail: "Configured"})
	} else {
		lines = append(lines, StatusLine{Label: "Notifications", Severity: "info", Detail: "Not configured"})
	}

	return lines
}

func severityFor(passed bool) string {
	if passed {
		return "ok"
	}
	return "error"
}

func daemonPaths(cfg *config.Config) (pidPath, lockPath string) {
	if cfg == nil {
		return "", ""
	}
	return cfg.Daemon.PIDPath, cfg.Daemon.LockPath
}

func isDaemonUnavailable(err error) bool {
	if err == nil {
		return false
	}
	return os.IsNotExist(err) ||
		errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, syscall.ENOENT) ||
		errors.Is(err, syscall.ECONNREFUSED)
}
