package exec

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
)

type mockExecCmd struct {
	output []byte
	err    error
}

func (m mockExecCmd) Output() ([]byte, error) {
	return m.output, m.err
}

func TestExecRunner_Run(t *testing.T) {
	tests := []struct {
		name       string
		mockOutput []byte
		mockErr    error
		wantErr    string
	}{
		{
			name:       "successful command",
			mockOutput: []byte("hello world"),
		},
		{
			name:    "command error",
			mockErr: errors.New("command failed"),
			wantErr: "tesseract: command failed",
		},
		{
			name:    "exit error carries stderr",
			mockErr: &exec.ExitError{Stderr: []byte("  Error opening data file eng.traineddata\n")},
			wantErr: "Error opening data file eng.traineddata",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			origExecCommand := execCommand
			defer func() { execCommand = origExecCommand }()

			var gotName string
			var gotArgs []string
			execCommand = func(ctx context.Context, name string, args ...string) execCmd {
				gotName, gotArgs = name, args
				return mockExecCmd{output: tt.mockOutput, err: tt.mockErr}
			}

			runner := NewExecRunner()
			output, err := runner.Run(context.Background(), "tesseract", "in.png", "stdout")

			if gotName != "tesseract" || strings.Join(gotArgs, " ") != "in.png stdout" {
				t.Errorf("ran %s %v", gotName, gotArgs)
			}
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("Run() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Run() error: %v", err)
			}
			if string(output) != string(tt.mockOutput) {
				t.Errorf("Run() output = %q, want %q", output, tt.mockOutput)
			}
		})
	}
}

func TestExecRunner_RunCancelled(t *testing.T) {
	origExecCommand := execCommand
	defer func() { execCommand = origExecCommand }()
	execCommand = func(ctx context.Context, name string, args ...string) execCmd {
		return mockExecCmd{err: errors.New("signal: killed")}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewExecRunner().Run(ctx, "xdotool")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestAvailable(t *testing.T) {
	origLookPath := lookPath
	defer func() { lookPath = origLookPath }()

	lookPath = func(name string) (string, error) {
		if name == "xdotool" {
			return "/usr/bin/xdotool", nil
		}
		return "", exec.ErrNotFound
	}

	if !Available("xdotool") {
		t.Error("xdotool should be available")
	}
	if Available("import") {
		t.Error("import should not be available")
	}
}

func TestExecRunner_ImplementsCommandRunner(t *testing.T) {
	var _ CommandRunner = NewExecRunner()
}
