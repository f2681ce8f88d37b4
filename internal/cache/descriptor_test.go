package cache_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gridload/gridload/internal/cache"
)

func TestLoadDescriptors_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "caches.yaml")
	content := `caches:
  - name: sessionCache
    default_ttl: 30m
    listeners:
      - factory: rmi_cache_replicator
  - name: agentCache
    default_ttl: 1m
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	descriptors, err := cache.LoadDescriptors(path)
	if err != nil {
		t.Fatalf("LoadDescriptors: %v", err)
	}
	if len(descriptors) != 2 {
		t.Fatalf("descriptors = %v", descriptors)
	}
	if descriptors[0].Name != "sessionCache" || descriptors[0].DefaultTTL != 30*time.Minute {
		t.Fatalf("descriptor 0 = %+v", descriptors[0])
	}
	if !descriptors[0].Replicated() {
		t.Fatal("sessionCache debe ser replicado")
	}
	if descriptors[1].Replicated() {
		t.Fatal("agentCache no debe ser replicado")
	}
}

func TestLoadDescriptors_MissingFileUsesDefaults(t *testing.T) {
	descriptors, err := cache.LoadDescriptors(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadDescriptors: %v", err)
	}
	if len(descriptors) == 0 {
		t.Fatal("sin descriptores por defecto")
	}
	// Los defaults embebidos incluyen al menos un cache replicado.
	replicated := false
	for _, d := range descriptors {
		if d.Name == "" {
			t.Fatalf("descriptor sin nombre: %+v", d)
		}
		if d.Replicated() {
			replicated = true
		}
	}
	if !replicated {
		t.Fatal("defaults sin caches replicados")
	}
}

func TestLoadDescriptors_RejectsUnnamed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "caches.yaml")
	if err := os.WriteFile(path, []byte("caches:\n  - default_ttl: 1m\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := cache.LoadDescriptors(path); err == nil {
		t.Fatal("expected error for unnamed descriptor")
	}
}

func TestLoadDescriptors_RejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "caches.yaml")
	if err := os.WriteFile(path, []byte("caches: [\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := cache.LoadDescriptors(path); err == nil {
		t.Fatal("expected error for malformed yaml")
	}
}

func TestDescriptor_ReplicatedIgnoresOtherFactories(t *testing.T) {
	d := cache.Descriptor{
		Name: "x",
		Listeners: []cache.ListenerFactory{
			{Factory: "metrics_listener"},
			{Factory: cache.RMIReplicatorFactory, Properties: map[string]string{"async": "true"}},
		},
	}
	if !d.Replicated() {
		t.Fatal("Replicated = false")
	}
}
