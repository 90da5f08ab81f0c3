package domain

import (
	"errors"
	"testing"
)

func TestNewDownloadTask(t *testing.T) {
	task := NewDownloadTask(ResourceLibrary, "https://libraries.minecraft.net/a.jar", "libraries/a.jar", "  ABCDEF ", "")

	if task.ID == "" {
		t.Error("ID should be generated")
	}
	if task.State != StatePending {
		t.Errorf("State = %v, want %v", task.State, StatePending)
	}
	if task.Algorithm != AlgorithmSHA1 {
		t.Errorf("Algorithm = %q, want %q", task.Algorithm, AlgorithmSHA1)
	}
	if task.ExpectedChecksum != "abcdef" {
		t.Errorf("ExpectedChecksum = %q, want normalized lowercase", task.ExpectedChecksum)
	}
	if !task.HasExpectedChecksum() {
		t.Error("HasExpectedChecksum() should be true")
	}
}

func TestDownloadTask_Transition(t *testing.T) {
	tests := []struct {
		name    string
		path    []TaskState
		wantErr bool
		final   TaskState
	}{
		{
			name:  "happy path",
			path:  []TaskState{StateResolving, StateDownloading, StateVerifying, StateCommitted},
			final: StateCommitted,
		},
		{
			name:  "mirror advance",
			path:  []TaskState{StateResolving, StateDownloading, StateDownloading, StateVerifying, StateCommitted},
			final: StateCommitted,
		},
		{
			name:  "present artifact skip",
			path:  []TaskState{StateCommitted},
			final: StateCommitted,
		},
		{
			name:  "fail while downloading",
			path:  []TaskState{StateResolving, StateDownloading, StateFailed},
			final: StateFailed,
		},
		{
			name:  "cancel while resolving",
			path:  []TaskState{StateResolving, StateCancelled},
			final: StateCancelled,
		},
		{
			name:    "cannot skip resolving",
			path:    []TaskState{StateDownloading},
			wantErr: true,
			final:   StatePending,
		},
		{
			name:    "no transition out of terminal",
			path:    []TaskState{StateResolving, StateFailed, StateDownloading},
			wantErr: true,
			final:   StateFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := NewDownloadTask(ResourceMod, "https://x/y.jar", "mods/y.jar", "", "")
			var err error
			for _, s := range tt.path {
				if err = task.Transition(s); err != nil {
					break
				}
			}
			if (err != nil) != tt.wantErr {
				t.Fatalf("Transition error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidStateTransition) {
				t.Errorf("error = %v, want ErrInvalidStateTransition", err)
			}
			if task.State != tt.final {
				t.Errorf("State = %v, want %v", task.State, tt.final)
			}
			if task.State.IsTerminal() && task.FinishedAt == nil {
				t.Error("FinishedAt should be set for terminal state")
			}
		})
	}
}

func TestParseResourceType(t *testing.T) {
	tests := []struct {
		in      string
		want    ResourceType
		wantErr bool
	}{
		{in: "library", want: ResourceLibrary},
		{in: "Loader_Installer", want: ResourceLoaderInstaller},
		{in: " server-jar ", want: ResourceServerJar},
		{in: "metadata", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseResourceType(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseResourceType(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidInput) {
				t.Errorf("error should wrap ErrInvalidInput, got %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseResourceType(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestResourceType_IsLarge(t *testing.T) {
	for _, rt := range ResourceTypes() {
		want := rt == ResourceLoaderInstaller || rt == ResourceServerJar
		if rt.IsLarge() != want {
			t.Errorf("%s.IsLarge() = %v, want %v", rt, rt.IsLarge(), want)
		}
	}
}
