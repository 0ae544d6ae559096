// Package initcmd writes a starter reroll configuration into a project or the
// user's config directory.
package initcmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aymanbagabas/go-udiff"

	"github.com/npratt/reroll/internal/config"
)

// Options configures the init command behavior.
type Options struct {
	DryRun  bool
	Force   bool
	Minimal bool      // Only the config file
	Global  bool      // Write ~/.config/reroll/config.yaml instead of the project
	Dir     string    // Project directory (defaults to the working directory)
	Writer  io.Writer // Output writer (defaults to os.Stdout)
}

// InstallFile represents a file to be installed.
type InstallFile struct {
	Path     string // Relative to the target directory
	Content  string
	IsAppend bool // Maintained as a managed section inside an existing file
}

// Result contains the outcome of the init operation.
type Result struct {
	TargetDir   string
	Created     []string
	Appended    []string
	Skipped     []string
	Unchanged   []string
	Overwritten []string
	BackedUp    []string
}

// FileStatus represents the status of a file to be installed.
type FileStatus struct {
	Path      string
	Exists    bool
	Unchanged bool
	Diff      string // Unified diff if changed
}

const (
	managedSectionBegin = "# <reroll-managed>"
	managedSectionEnd   = "# </reroll-managed>"
)

// BuildFileList returns the files to install. Global installs only write the
// config file.
func BuildFileList(minimal, global bool) []InstallFile {
	if global {
		return []InstallFile{{Path: config.GlobalConfigFile, Content: MustReadTemplate(configTemplate)}}
	}

	files := []InstallFile{
		{
			Path:    filepath.Join(config.ProjectConfigDir, config.ProjectConfigFile),
			Content: MustReadTemplate(configTemplate),
		},
	}
	if !minimal {
		files = append(files,
			InstallFile{Path: ".env.example", Content: MustReadTemplate(envTemplate)},
			InstallFile{Path: ".gitignore", Content: MustReadTemplate(gitignoreTemplate), IsAppend: true},
		)
	}
	return files
}

// Run executes the init command with the given options.
func Run(opts Options) (*Result, error) {
	if opts.Writer == nil {
		opts.Writer = os.Stdout
	}

	targetDir, err := getTargetDir(opts)
	if err != nil {
		return nil, err
	}

	files := BuildFileList(opts.Minimal, opts.Global)
	statuses := checkFileStatuses(targetDir, files)

	if opts.DryRun {
		return showDryRun(opts.Writer, targetDir, files, statuses), nil
	}

	if hasChanges(statuses) && !opts.Force {
		return showChanges(opts.Writer, targetDir, statuses)
	}

	return installFiles(opts.Writer, targetDir, files, statuses, opts.Force)
}

// getTargetDir returns the directory files are written relative to.
func getTargetDir(opts Options) (string, error) {
	if opts.Global {
		dir := os.Getenv("XDG_CONFIG_HOME")
		if dir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("get home directory: %w", err)
			}
			dir = filepath.Join(home, ".config")
		}
		return filepath.Join(dir, config.GlobalConfigDir), nil
	}
	if opts.Dir != "" {
		return opts.Dir, nil
	}
	return ".", nil
}

// checkFileStatuses checks each file and returns its status. Append files
// compare only their managed section.
func checkFileStatuses(targetDir string, files []InstallFile) []FileStatus {
	statuses := make([]FileStatus, 0, len(files))
	for _, f := range files {
		status := FileStatus{Path: f.Path}

		data, err := os.ReadFile(filepath.Join(targetDir, f.Path))
		if err == nil {
			status.Exists = true
			existing := string(data)
			if f.IsAppend {
				section, ok := managedSection(existing)
				status.Unchanged = ok && strings.TrimSpace(section) == strings.TrimSpace(f.Content)
			} else if existing == f.Content {
				status.Unchanged = true
			} else {
				status.Diff = udiff.Unified("existing", "new", existing, f.Content)
			}
		}

		statuses = append(statuses, status)
	}
	return statuses
}

// hasChanges reports whether a non-append file would be overwritten.
func hasChanges(statuses []FileStatus) bool {
	for _, s := range statuses {
		if s.Exists && !s.Unchanged && s.Diff != "" {
			return true
		}
	}
	return false
}

// showDryRun displays what would be changed without making changes.
func showDryRun(w io.Writer, targetDir string, files []InstallFile, statuses []FileStatus) *Result {
	_, _ = fmt.Fprintln(w, "DRY RUN - No changes will be made")
	_, _ = fmt.Fprintln(w)

	result := &Result{TargetDir: targetDir}
	for i, f := range files {
		path := filepath.Join(targetDir, f.Path)
		status := statuses[i]

		switch {
		case status.Unchanged:
			_, _ = fmt.Fprintf(w, "Already up to date: %s\n", path)
			result.Unchanged = append(result.Unchanged, f.Path)
		case f.IsAppend && status.Exists:
			_, _ = fmt.Fprintf(w, "Would update managed section: %s\n", path)
			result.Appended = append(result.Appended, f.Path)
		case status.Exists:
			_, _ = fmt.Fprintf(w, "Would overwrite (has changes): %s\n", path)
			_, _ = fmt.Fprintln(w, status.Diff)
			result.Skipped = append(result.Skipped, f.Path)
		default:
			_, _ = fmt.Fprintf(w, "Would create: %s\n", path)
			_, _ = fmt.Fprintln(w, "--- BEGIN FILE ---")
			_, _ = fmt.Fprint(w, f.Content)
			_, _ = fmt.Fprintln(w, "--- END FILE ---")
			_, _ = fmt.Fprintln(w)
			result.Created = append(result.Created, f.Path)
		}
	}

	_, _ = fmt.Fprintln(w, "Run without --dry-run to apply changes.")
	return result
}

// showChanges displays files with changes and their diffs.
func showChanges(w io.Writer, targetDir string, statuses []FileStatus) (*Result, error) {
	result := &Result{TargetDir: targetDir}

	_, _ = fmt.Fprintln(w, "The following files have changes:")
	_, _ = fmt.Fprintln(w)
	for _, s := range statuses {
		if !s.Exists || s.Unchanged || s.Diff == "" {
			continue
		}
		_, _ = fmt.Fprintf(w, "%s:\n", filepath.Join(targetDir, s.Path))
		_, _ = fmt.Fprintln(w, s.Diff)
		result.Skipped = append(result.Skipped, s.Path)
	}

	_, _ = fmt.Fprintln(w, "Use --force to overwrite changed files (a timestamped backup is kept).")
	return result, fmt.Errorf("files have changes (use --force to overwrite)")
}

// installFiles creates directories and writes files.
func installFiles(w io.Writer, targetDir string, files []InstallFile, statuses []FileStatus, force bool) (*Result, error) {
	result := &Result{TargetDir: targetDir}

	for i, f := range files {
		path := filepath.Join(targetDir, f.Path)
		status := statuses[i]

		if status.Unchanged {
			_, _ = fmt.Fprintf(w, "Already up to date: %s\n", path)
			result.Unchanged = append(result.Unchanged, f.Path)
			continue
		}

		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return result, fmt.Errorf("create directory %s: %w", filepath.Dir(path), err)
		}

		if f.IsAppend {
			if err := appendManaged(path, f.Content); err != nil {
				return result, err
			}
			if status.Exists {
				_, _ = fmt.Fprintf(w, "Updated: %s\n", path)
			} else {
				_, _ = fmt.Fprintf(w, "Created: %s\n", path)
			}
			result.Appended = append(result.Appended, f.Path)
			continue
		}

		if status.Exists {
			if !force {
				_, _ = fmt.Fprintf(w, "Skipped (has changes): %s\n", path)
				result.Skipped = append(result.Skipped, f.Path)
				continue
			}
			backup, err := backupFile(path)
			if err != nil {
				return result, err
			}
			result.BackedUp = append(result.BackedUp, backup)
		}

		if err := os.WriteFile(path, []byte(f.Content), 0644); err != nil {
			return result, fmt.Errorf("write %s: %w", path, err)
		}
		if status.Exists {
			_, _ = fmt.Fprintf(w, "Overwritten: %s\n", path)
			result.Overwritten = append(result.Overwritten, f.Path)
		} else {
			_, _ = fmt.Fprintf(w, "Created: %s\n", path)
			result.Created = append(result.Created, f.Path)
		}
	}

	_, _ = fmt.Fprintln(w)
	if len(result.Created)+len(result.Overwritten)+len(result.Appended) == 0 {
		_, _ = fmt.Fprintln(w, "reroll configuration is already up to date.")
		return result, nil
	}
	_, _ = fmt.Fprintln(w, "Set buttons, region and targets in the config, then run 'reroll run'.")
	return result, nil
}

// appendManaged inserts or replaces the managed section in path.
func appendManaged(path, section string) error {
	var existing string
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		existing = string(data)
	case !os.IsNotExist(err):
		return fmt.Errorf("read %s: %w", path, err)
	}

	content := handleManagedSection(existing, strings.TrimRight(section, "\n")) + "\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// backupFile copies path to path.<timestamp>.bak and returns the backup path.
func backupFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	backup := fmt.Sprintf("%s.%s.bak", path, time.Now().Format("2006-01-02T15-04-05"))
	if err := os.WriteFile(backup, data, 0644); err != nil {
		return "", fmt.Errorf("write backup %s: %w", backup, err)
	}
	return backup, nil
}

// handleManagedSection replaces the content between the managed markers, or
// appends the section when the markers are absent.
func handleManagedSection(existingContent, newSection string) string {
	beginIdx := strings.Index(existingContent, managedSectionBegin)
	endIdx := strings.Index(existingContent, managedSectionEnd)

	if beginIdx >= 0 && endIdx > beginIdx {
		before := strings.TrimRight(existingContent[:beginIdx], "\n")
		after := strings.TrimLeft(existingContent[endIdx+len(managedSectionEnd):], "\n")

		parts := make([]string, 0, 3)
		if before != "" {
			parts = append(parts, before)
		}
		parts = append(parts, newSection)
		if after = strings.TrimRight(after, "\n"); after != "" {
			parts = append(parts, after)
		}
		return strings.Join(parts, "\n\n")
	}

	if existing := strings.TrimRight(existingContent, "\n"); existing != "" {
		return existing + "\n\n" + newSection
	}
	return newSection
}

// managedSection returns the managed block of content, markers included.
func managedSection(content string) (string, bool) {
	beginIdx := strings.Index(content, managedSectionBegin)
	endIdx := strings.Index(content, managedSectionEnd)
	if beginIdx < 0 || endIdx < beginIdx {
		return "", false
	}
	return content[beginIdx : endIdx+len(managedSectionEnd)], true
}
