package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/anthr76/podlock/internal/locking"
	"github.com/anthr76/podlock/internal/render"
)

const testPodfile = `platform :ios, '12.0'

target 'App' do
  pod 'AFNetworking', '~> 2.0'
  pod 'JSONKit'
end
`

const testLockfile = `PODS:
  - AFNetworking (2.0.3):
    - AFNetworking/Serialization (= 2.0.3)
  - AFNetworking/Serialization (2.0.3)
  - JSONKit (1.4)

DEPENDENCIES:
  - AFNetworking (~> 2.0)
  - JSONKit

SPEC CHECKSUMS:
  AFNetworking: 8ea0ebb9ca21b1c6b26b1c0e77e1d6d3e0da8b9f
  JSONKit: 3d63a1ea7cb7d7fb5f0c3fd34e80fc7cb1c8b8b4

COCOAPODS: 1.15.2
`

func writeProject(t *testing.T, podfile, lock string) string {
	t.Helper()
	tmpDir := t.TempDir()
	if podfile != "" {
		if err := os.WriteFile(filepath.Join(tmpDir, "Podfile"), []byte(podfile), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if lock != "" {
		if err := os.WriteFile(filepath.Join(tmpDir, "Podfile.lock"), []byte(lock), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return tmpDir
}

// resetFlags restores the package-level flag values after a test.
func resetFlags(t *testing.T) {
	t.Helper()
	for _, env := range []string{"PODLOCK_LOCKFILE", "PODLOCK_PODFILE", "PODLOCK_FORMAT", "PODLOCK_MALFORMED"} {
		t.Setenv(env, "")
	}
	t.Cleanup(func() {
		graphUpdate, graphUnlock = nil, nil
		graphUpdateAll, graphPodfileChanges, graphSkipMalformed = false, false, false
		graphFormat = ""
		updateDir = "."
		rootConfig = ""
	})
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	cmd.SetArgs(args)

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)

	err := cmd.Execute()
	return buf.String(), err
}

func TestRootCommand(t *testing.T) {
	output, err := execute(t, rootCmd, "--help")
	if err != nil {
		t.Fatalf("rootCmd failed: %v", err)
	}

	for _, want := range []string{"podlock", "graph", "verify", "update", "version"} {
		if !strings.Contains(output, want) {
			t.Errorf("Help output should contain %q", want)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	cmd := &cobra.Command{Use: "version", Run: runVersion}

	output, err := execute(t, cmd)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(output, Version) {
		t.Errorf("Version output should contain version %q, got %q", Version, output)
	}
}

func TestGraphCommand(t *testing.T) {
	tests := []struct {
		name    string
		setup   func()
		want    []string
		notWant []string
	}{
		{
			name: "locked",
			want: []string{
				"AFNetworking (= 2.0.3) [explicit]",
				"  -> AFNetworking/Serialization",
				"JSONKit (= 1.4) [explicit]",
			},
		},
		{
			name:  "unlock",
			setup: func() { graphUnlock = []string{"AFNetworking"} },
			want: []string{
				"AFNetworking (unlocked) [explicit]",
				"AFNetworking/Serialization (unlocked)",
				"JSONKit (= 1.4) [explicit]",
			},
		},
		{
			name:    "update",
			setup:   func() { graphUpdate = []string{"afnetworking"} },
			want:    []string{"JSONKit (= 1.4) [explicit]"},
			notWant: []string{"AFNetworking"},
		},
		{
			name:    "update all",
			setup:   func() { graphUpdateAll = true },
			notWant: []string{"AFNetworking", "JSONKit"},
		},
		{
			name:  "dot",
			setup: func() { graphFormat = render.FormatDOT },
			want:  []string{"digraph podlock {", `"AFNetworking" -> "AFNetworking/Serialization"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags(t)
			if tt.setup != nil {
				tt.setup()
			}
			tmpDir := writeProject(t, testPodfile, testLockfile)

			cmd := &cobra.Command{Use: "graph", RunE: runGraph}
			output, err := execute(t, cmd, tmpDir)
			if err != nil {
				t.Fatalf("graph failed: %v", err)
			}

			for _, want := range tt.want {
				if !strings.Contains(output, want) {
					t.Errorf("output missing %q:\n%s", want, output)
				}
			}
			for _, notWant := range tt.notWant {
				if strings.Contains(output, notWant) {
					t.Errorf("output should not contain %q:\n%s", notWant, output)
				}
			}
		})
	}
}

func TestGraphCommandPodfileChanges(t *testing.T) {
	resetFlags(t)
	graphPodfileChanges = true

	podfile := strings.Replace(testPodfile, "'~> 2.0'", "'~> 3.0'", 1)
	tmpDir := writeProject(t, podfile, testLockfile)

	cmd := &cobra.Command{Use: "graph", RunE: runGraph}
	output, err := execute(t, cmd, tmpDir)
	if err != nil {
		t.Fatalf("graph failed: %v", err)
	}
	if !strings.Contains(output, "AFNetworking (unlocked)") {
		t.Errorf("changed pod should be unlocked:\n%s", output)
	}
	if !strings.Contains(output, "JSONKit (= 1.4)") {
		t.Errorf("unchanged pod should stay locked:\n%s", output)
	}
}

func TestGraphCommandMissingLockfile(t *testing.T) {
	resetFlags(t)
	tmpDir := writeProject(t, testPodfile, "")

	cmd := &cobra.Command{Use: "graph", RunE: runGraph}
	output, err := execute(t, cmd, tmpDir)
	if err != nil {
		t.Fatalf("graph failed: %v", err)
	}
	if strings.TrimSpace(output) != "" {
		t.Errorf("expected empty graph, got:\n%s", output)
	}
}

func TestGraphCommandMalformed(t *testing.T) {
	lock := testLockfile + "\n"
	lock = strings.Replace(lock, "  - JSONKit (1.4)\n", "  - JSONKit (1.4)\n  - 42\n", 1)

	t.Run("fail", func(t *testing.T) {
		resetFlags(t)
		tmpDir := writeProject(t, testPodfile, lock)

		cmd := &cobra.Command{Use: "graph", RunE: runGraph}
		_, err := execute(t, cmd, tmpDir)
		if !errors.Is(err, locking.ErrMalformedLockRecord) {
			t.Errorf("graph error = %v, want ErrMalformedLockRecord", err)
		}
	})

	t.Run("skip", func(t *testing.T) {
		resetFlags(t)
		graphSkipMalformed = true
		tmpDir := writeProject(t, testPodfile, lock)

		cmd := &cobra.Command{Use: "graph", RunE: runGraph}
		if _, err := execute(t, cmd, tmpDir); err != nil {
			t.Errorf("graph failed: %v", err)
		}
	})
}

func TestGraphCommandInvalidFormat(t *testing.T) {
	resetFlags(t)
	graphFormat = "svg"
	tmpDir := writeProject(t, testPodfile, testLockfile)

	cmd := &cobra.Command{Use: "graph", RunE: runGraph}
	_, err := execute(t, cmd, tmpDir)
	if !errors.Is(err, render.ErrUnknownFormat) {
		t.Errorf("graph error = %v, want ErrUnknownFormat", err)
	}
}

func TestGraphCommandConfigFile(t *testing.T) {
	resetFlags(t)
	tmpDir := writeProject(t, testPodfile, testLockfile)
	if err := os.WriteFile(filepath.Join(tmpDir, ".podlock.toml"), []byte("format = \"json\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cmd := &cobra.Command{Use: "graph", RunE: runGraph}
	output, err := execute(t, cmd, tmpDir)
	if err != nil {
		t.Fatalf("graph failed: %v", err)
	}
	if !strings.Contains(output, `"vertices"`) {
		t.Errorf("expected JSON output, got:\n%s", output)
	}
}

func TestVerifyCommand(t *testing.T) {
	tests := []struct {
		name    string
		podfile string
		lock    string
		wantErr bool
		want    []string
	}{
		{
			name:    "in sync",
			podfile: testPodfile,
			lock:    testLockfile,
			want:    []string{"in sync"},
		},
		{
			name:    "git pod with tag",
			podfile: testPodfile + "pod 'Foo', :git => 'https://github.com/x/Foo.git', :tag => '1.0' # release\n",
			lock: strings.NewReplacer(
				"  - JSONKit (1.4)\n", "  - JSONKit (1.4)\n  - Foo (1.0)\n",
				"  - JSONKit\n", "  - JSONKit\n  - Foo (from `https://github.com/x/Foo.git`, tag `1.0`)\n",
			).Replace(testLockfile) + "\nEXTERNAL SOURCES:\n  Foo:\n    :git: https://github.com/x/Foo.git\n    :tag: '1.0'\n",
			want: []string{"in sync"},
		},
		{
			name:    "missing pod",
			podfile: testPodfile + "pod 'Masonry', '1.1.0'\n",
			lock:    testLockfile,
			wantErr: true,
			want:    []string{"Missing from lockfile:", "+ Masonry (= 1.1.0)"},
		},
		{
			name:    "extra pod",
			podfile: "pod 'AFNetworking', '~> 2.0'\n",
			lock:    testLockfile,
			wantErr: true,
			want:    []string{"Extra in lockfile:", "- JSONKit"},
		},
		{
			name:    "requirement changed",
			podfile: strings.Replace(testPodfile, "'~> 2.0'", "'~> 3.0'", 1),
			lock:    testLockfile,
			wantErr: true,
			want:    []string{"AFNetworking: lockfile=AFNetworking (~> 2.0), Podfile=AFNetworking (~> 3.0)"},
		},
		{
			name:    "locked version unsatisfied",
			podfile: testPodfile,
			lock:    strings.Replace(testLockfile, "AFNetworking (2.0.3):", "AFNetworking (1.3.0):", 1),
			wantErr: true,
			want:    []string{"AFNetworking: locked 1.3.0 does not satisfy AFNetworking (~> 2.0)"},
		},
		{
			name:    "bad checksum",
			podfile: testPodfile,
			lock:    strings.Replace(testLockfile, "3d63a1ea7cb7d7fb5f0c3fd34e80fc7cb1c8b8b4", "not-a-sha", 1),
			wantErr: true,
			want:    []string{"Checksum problems:", `JSONKit: invalid checksum "not-a-sha"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags(t)
			tmpDir := writeProject(t, tt.podfile, tt.lock)

			cmd := &cobra.Command{Use: "verify", RunE: runVerify}
			output, err := execute(t, cmd, tmpDir)
			if (err != nil) != tt.wantErr {
				t.Fatalf("verify error = %v, wantErr %v\n%s", err, tt.wantErr, output)
			}
			if tt.wantErr && !errors.Is(err, ErrVerificationFailed) {
				t.Errorf("verify error = %v, want ErrVerificationFailed", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(output, want) {
					t.Errorf("output missing %q:\n%s", want, output)
				}
			}
		})
	}
}

func TestVerifyCommandMissingFiles(t *testing.T) {
	resetFlags(t)

	cmd := &cobra.Command{Use: "verify", RunE: runVerify}
	if _, err := execute(t, cmd, writeProject(t, testPodfile, "")); err == nil {
		t.Error("verify should fail without a lockfile")
	}
	if _, err := execute(t, cmd, writeProject(t, "", testLockfile)); err == nil {
		t.Error("verify should fail without a Podfile")
	}
}

func TestUpdateCommand(t *testing.T) {
	resetFlags(t)
	updateDir = writeProject(t, testPodfile, testLockfile)

	cmd := &cobra.Command{Use: "update", Args: cobra.MinimumNArgs(1), RunE: runUpdate}
	output, err := execute(t, cmd, "afnetworking")
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}

	for _, want := range []string{
		"would release 2 pods",
		"! AFNetworking",
		"! AFNetworking/Serialization",
		"= JSONKit 1.4",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
}

func TestUpdateCommandValidation(t *testing.T) {
	resetFlags(t)
	updateDir = writeProject(t, testPodfile, testLockfile)

	cmd := &cobra.Command{Use: "update", Args: cobra.MinimumNArgs(1), RunE: runUpdate}
	if _, err := execute(t, cmd); err == nil {
		t.Error("Update command should fail without a pod name")
	}
	if _, err := execute(t, cmd, "Unknown"); !errors.Is(err, ErrPodNotFound) {
		t.Errorf("update error = %v, want ErrPodNotFound", err)
	}
}
