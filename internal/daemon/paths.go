package daemon

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/npratt/reroll/internal/config"
)

// ErrNoDaemon is returned when no daemon.json is found for the project.
var ErrNoDaemon = errors.New("no reroll daemon for this project")

// DaemonInfo is written to daemon.json by serve so the client commands can
// find the socket, session log and state file from any subdirectory.
type DaemonInfo struct {
	SocketPath string    `json:"socket_path"`
	LogPath    string    `json:"log_path"`
	StatePath  string    `json:"state_path"`
	HTTPAddr   string    `json:"http_addr,omitempty"`
	Catalog    string    `json:"catalog,omitempty"` // empty for the built-in catalog
	Version    string    `json:"version,omitempty"`
	StartTime  time.Time `json:"start_time"`
	PID        int       `json:"pid"`
}

const daemonInfoFile = "daemon.json"

// ProjectDir holds daemon.json, the state file, the session log and the socket.
const ProjectDir = ".reroll"

// projectMarkers identify a project root, nearest first.
var projectMarkers = []string{ProjectDir, ".git"}

// ResolvePaths makes the state, log and socket paths absolute against
// basePath, or the working directory when basePath is empty.
func ResolvePaths(paths config.PathsConfig, basePath string) (config.PathsConfig, error) {
	if basePath == "" {
		wd, err := os.Getwd()
		if err != nil {
			return paths, fmt.Errorf("get working directory: %w", err)
		}
		basePath = wd
	}

	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(basePath, p)
	}
	return config.PathsConfig{
		State:  resolve(paths.State),
		Log:    resolve(paths.Log),
		Socket: resolve(paths.Socket),
	}, nil
}

// FindProjectRoot walks up from startDir to the first directory holding a
// .reroll or .git directory. Without a marker it returns startDir made absolute.
func FindProjectRoot(startDir string) string {
	if startDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "."
		}
		startDir = wd
	}
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return startDir
	}

	for dir := absDir; ; {
		for _, marker := range projectMarkers {
			if info, err := os.Stat(filepath.Join(dir, marker)); err == nil && info.IsDir() {
				return dir
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return absDir
		}
		dir = parent
	}
}

// FindDaemonInfo reads daemon.json for the project containing startDir.
// A missing file wraps ErrNoDaemon.
func FindDaemonInfo(startDir string) (*DaemonInfo, error) {
	infoPath := DaemonInfoPath(FindProjectRoot(startDir))
	info, err := ReadDaemonInfo(infoPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w (checked %s)", ErrNoDaemon, infoPath)
	}
	return info, err
}

// WriteDaemonInfo writes info to path through a temp file and rename, so a
// concurrent reader never sees a partial file.
func WriteDaemonInfo(path string, info *DaemonInfo) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal daemon info: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write daemon info: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename daemon info: %w", err)
	}
	return nil
}

// ReadDaemonInfo reads daemon.json at path. A file without a socket path is
// rejected.
func ReadDaemonInfo(path string) (*DaemonInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read daemon info: %w", err)
	}

	var info DaemonInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("unmarshal daemon info: %w", err)
	}
	if info.SocketPath == "" {
		return nil, fmt.Errorf("daemon info %s has no socket path", path)
	}
	return &info, nil
}

// RemoveDaemonInfo deletes daemon.json; a missing file is not an error.
func RemoveDaemonInfo(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove daemon info: %w", err)
	}
	return nil
}

// DaemonInfoPath returns the path of daemon.json under projectRoot.
func DaemonInfoPath(projectRoot string) string {
	return filepath.Join(projectRoot, ProjectDir, daemonInfoFile)
}
