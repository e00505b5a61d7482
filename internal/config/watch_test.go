package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/pbxkit/softphone/internal/util"
)

func TestWatchReloadsOnSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg := validConfig()
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}

	changes := make(chan Config, 4)
	w, err := Watch(path, func(nc Config) { changes <- nc })
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	defer w.Close()

	cfg.Account.DefaultDevice = "webrtc"
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save update: %v", err)
	}

	select {
	case nc := <-changes:
		if nc.Account.DefaultDevice != "webrtc" {
			t.Fatalf("reloaded device = %q", nc.Account.DefaultDevice)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no reload observed")
	}
}

func TestWatchSkipsInvalidSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	if err := Save(path, validConfig()); err != nil {
		t.Fatalf("save: %v", err)
	}

	changes := make(chan Config, 4)
	w, err := Watch(path, func(nc Config) { changes <- nc })
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	defer w.Close()

	// An intermediate invalid save (e.g. mid-edit) must not reach onChange.
	bad := Default()
	if err := util.WriteJSONFile(path, bad); err != nil {
		t.Fatalf("write invalid config: %v", err)
	}

	select {
	case <-changes:
		t.Fatal("invalid config must not be delivered")
	case <-time.After(500 * time.Millisecond):
	}
}
