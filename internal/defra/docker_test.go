package defra

import "testing"

func TestDockerConfig_Defaults(t *testing.T) {
	cfg := DockerConfig{Labels: map[string]string{"test": "1"}}.withDefaults()

	if cfg.ContainerName != DefaultContainerName {
		t.Errorf("ContainerName = %q", cfg.ContainerName)
	}
	if cfg.Image != DefaultImage {
		t.Errorf("Image = %q", cfg.Image)
	}
	if cfg.HostPort != DefaultPort {
		t.Errorf("HostPort = %q", cfg.HostPort)
	}
	if cfg.Labels[Label] != "true" || cfg.Labels["test"] != "1" {
		t.Errorf("Labels = %v", cfg.Labels)
	}
}

func TestContainerStatus(t *testing.T) {
	tests := map[string]ContainerStatus{
		"running":    StatusRunning,
		"exited":     StatusStopped,
		"dead":       StatusStopped,
		"created":    StatusStarting,
		"restarting": StatusStarting,
		"paused":     ContainerStatus("paused"),
	}
	for state, want := range tests {
		if got := containerStatus(state); got != want {
			t.Errorf("containerStatus(%q) = %q, want %q", state, got, want)
		}
	}
}
