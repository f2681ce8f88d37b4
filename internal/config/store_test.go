package config_test

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gridload/gridload/internal/config"
)

const storePollDelay = 10 * time.Millisecond

// newTestHome arma un home temporal con el system.conf dado.
func newTestHome(t *testing.T, systemConf string) *config.Home {
	t.Helper()
	home := config.NewHome(t.TempDir())
	writeConf(t, home.SubFile(config.SystemConfFile), systemConf)
	return home
}

// mtimeSeq produce mtimes sintéticos estrictamente crecientes.
var mtimeSeq atomic.Int64

// writeConf escribe un archivo de configuración con rename atómico, así un
// reload concurrente nunca ve un archivo a medio escribir. El mtime se fija
// de forma sintética para que cada escritura sea un cambio visible, sin
// depender de la granularidad del filesystem.
func writeConf(t *testing.T, path, content string) {
	t.Helper()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", tmp, err)
	}
	future := time.Now().Add(time.Duration(mtimeSeq.Add(1)) * time.Minute)
	if err := os.Chtimes(tmp, future, future); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatalf("rename: %v", err)
	}
}

func newTestStore(t *testing.T, home *config.Home) *config.Store {
	t.Helper()
	store, err := config.NewStore(config.StoreOptions{Home: home, PollDelay: storePollDelay})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

func TestStoreLoad_MergeAndDefaults(t *testing.T) {
	home := newTestHome(t, "controller.ip=10.0.0.1\ncontroller.verbose=true\n")
	store := newTestStore(t, home)
	snap, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got := snap.Controller().Get(config.PropControllerIP); got != "10.0.0.1" {
		t.Fatalf("controller.ip = %q", got)
	}
	if !store.IsVerbose() {
		t.Fatal("IsVerbose = false")
	}
	// Claves no seteadas caen al default de dominio.
	if got := snap.Controller().GetInt(config.PropControllerMonitorPort); got != 13243 {
		t.Fatalf("monitor_port = %d", got)
	}
	// Las propiedades internas embebidas siempre están presentes.
	if store.Version() == "" {
		t.Fatal("Version vacía")
	}
	// El home resuelto se inyecta en el snapshot.
	if got, ok := snap.Get(config.PropHomeDir); !ok || got != home.Dir() {
		t.Fatalf("%s = %q, %v", config.PropHomeDir, got, ok)
	}
	if store.Current() != snap {
		t.Fatal("Current() no retorna el snapshot cargado")
	}
}

func TestStoreLoad_MissingSystemConfIsFatal(t *testing.T) {
	home := config.NewHome(t.TempDir()) // sin system.conf
	store := newTestStore(t, home)
	if _, err := store.Load(); !errors.Is(err, config.ErrSourceRead) {
		t.Fatalf("Load = %v, want ErrSourceRead", err)
	}
}

func TestStoreLoad_ExHomeOverrideWins(t *testing.T) {
	home := newTestHome(t, "controller.ip=10.0.0.1\ncontroller.monitor_port=13243\n")
	exHome := config.NewHome(t.TempDir())
	writeConf(t, exHome.SubFile(config.SystemExConfFile), "controller.ip=172.16.0.1\n")

	store, err := config.NewStore(config.StoreOptions{Home: home, ExHome: exHome})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	snap, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := snap.Controller().Get(config.PropControllerIP); got != "172.16.0.1" {
		t.Fatalf("override no aplicado: controller.ip = %q", got)
	}
	// Las claves sin override conservan el valor base.
	if got := snap.Controller().GetInt(config.PropControllerMonitorPort); got != 13243 {
		t.Fatalf("monitor_port = %d", got)
	}
}

func TestStoreLoad_DatabaseConfMerged(t *testing.T) {
	home := newTestHome(t, "controller.ip=10.0.0.1\n")
	writeConf(t, home.SubFile(config.DatabaseConfFile),
		"database.url=postgres://db:5432/gridload\n")
	store := newTestStore(t, home)
	snap, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := snap.Database().Get(config.PropDatabaseURL); got != "postgres://db:5432/gridload" {
		t.Fatalf("database.url = %q", got)
	}
}

func TestStore_ReloadNotifiesListenersInOrder(t *testing.T) {
	home := newTestHome(t, "controller.ip=10.0.0.1\n")
	store := newTestStore(t, home)
	if _, err := store.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	var mu sync.Mutex
	var order []string
	store.AddListener(func(*config.Snapshot) error {
		mu.Lock()
		order = append(order, "a")
		mu.Unlock()
		return nil
	})
	store.AddListener(func(*config.Snapshot) error {
		mu.Lock()
		order = append(order, "b")
		mu.Unlock()
		return errors.New("listener failure")
	})
	store.AddListener(func(snap *config.Snapshot) error {
		mu.Lock()
		order = append(order, "c")
		mu.Unlock()
		// El listener recibe el snapshot nuevo, no el viejo.
		if got := snap.Controller().Get(config.PropControllerIP); got != "10.0.0.2" {
			t.Errorf("listener vio controller.ip = %q", got)
		}
		return nil
	})

	writeConf(t, home.SubFile(config.SystemConfFile), "controller.ip=10.0.0.2\n")
	if _, err := store.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(order) != 3 || order[0] != "a" || order[1] != "b" || order[2] != "c" {
		t.Fatalf("order = %v", order)
	}
}

func TestStore_ReloadFailureKeepsPreviousSnapshot(t *testing.T) {
	home := newTestHome(t, "controller.ip=10.0.0.1\n")
	store := newTestStore(t, home)
	snap, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	notified := false
	store.AddListener(func(*config.Snapshot) error { notified = true; return nil })

	if err := os.Remove(home.SubFile(config.SystemConfFile)); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := store.Reload(); !errors.Is(err, config.ErrSourceRead) {
		t.Fatalf("Reload = %v, want ErrSourceRead", err)
	}
	if store.Current() != snap {
		t.Fatal("snapshot previo no retenido tras reload fallido")
	}
	if notified {
		t.Fatal("listeners notificados tras reload fallido")
	}
}

func TestStore_WatcherReloadsOnFileChange(t *testing.T) {
	home := newTestHome(t, "controller.ip=10.0.0.1\n")
	store := newTestStore(t, home)
	if _, err := store.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	reloaded := make(chan *config.Snapshot, 4)
	store.AddListener(func(snap *config.Snapshot) error {
		reloaded <- snap
		return nil
	})
	if err := store.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer store.Stop()

	writeConf(t, home.SubFile(config.SystemConfFile), "controller.ip=10.0.0.2\n")
	select {
	case snap := <-reloaded:
		if got := snap.Controller().Get(config.PropControllerIP); got != "10.0.0.2" {
			t.Fatalf("controller.ip = %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
	if got := store.ControllerIP(); got != "10.0.0.2" {
		t.Fatalf("Current no actualizado: %q", got)
	}
}

func TestStore_ClusterAccessors(t *testing.T) {
	home := newTestHome(t, ""+
		"cluster.enabled=true\n"+
		"cluster.members=10.0.0.1;10.0.0.2\n"+
		"cluster.port=40010\n"+
		"cluster.region=east\n"+
		"cluster.hidden_region=true\n")
	store := newTestStore(t, home)
	if _, err := store.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !store.IsClustered() {
		t.Fatal("IsClustered = false")
	}
	if got := store.Region(); got != "east" {
		t.Fatalf("Region = %q", got)
	}
	if got := store.ClusterMemberList(); got != "10.0.0.1;10.0.0.2" {
		t.Fatalf("ClusterMemberList = %q", got)
	}
	if got := store.ClusterListenerPort(); got != 40010 {
		t.Fatalf("ClusterListenerPort = %d", got)
	}
	if !store.IsHiddenRegion() {
		t.Fatal("IsHiddenRegion = false")
	}
}

func TestStore_NonClusteredDefaults(t *testing.T) {
	home := newTestHome(t, "cluster.region=east\n")
	store := newTestStore(t, home)
	if _, err := store.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if store.IsClustered() {
		t.Fatal("IsClustered = true sin cluster.enabled")
	}
	// Sin cluster la región configurada se ignora.
	if got := store.Region(); got != config.NoneRegion {
		t.Fatalf("Region = %q, want %q", got, config.NoneRegion)
	}
	if got := store.ClusterListenerPort(); got != config.DefaultClusterListenerPort {
		t.Fatalf("ClusterListenerPort = %d", got)
	}
}

func TestStore_Announcement(t *testing.T) {
	home := newTestHome(t, "controller.ip=10.0.0.1\n")
	writeConf(t, home.SubFile(config.AnnouncementFile), "maintenance window tonight")
	store := newTestStore(t, home)
	if _, err := store.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := store.Announcement(); got != "maintenance window tonight" {
		t.Fatalf("Announcement = %q", got)
	}
	if store.AnnouncementDate().IsZero() {
		t.Fatal("AnnouncementDate zero")
	}
}

func TestStore_SaveAnnouncement(t *testing.T) {
	home := newTestHome(t, "controller.ip=10.0.0.1\n")
	store := newTestStore(t, home)
	if _, err := store.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := store.SaveAnnouncement("upgrade at noon"); err != nil {
		t.Fatalf("SaveAnnouncement: %v", err)
	}
	// Visible de inmediato, sin esperar al watchdog.
	if got := store.Announcement(); got != "upgrade at noon" {
		t.Fatalf("Announcement = %q", got)
	}
	content, err := home.ReadFile(config.AnnouncementFile)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if content != "upgrade at noon" {
		t.Fatalf("persisted = %q", content)
	}
}

func TestStore_AnnouncementMissingIsEmpty(t *testing.T) {
	home := newTestHome(t, "controller.ip=10.0.0.1\n")
	store := newTestStore(t, home)
	if _, err := store.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := store.Announcement(); got != "" {
		t.Fatalf("Announcement = %q, want empty", got)
	}
}

func TestStore_PolicyScriptCachedUntilInvalidated(t *testing.T) {
	home := newTestHome(t, "controller.ip=10.0.0.1\n")
	writeConf(t, home.SubFile(config.PolicyScriptFile), "function v1() {}")
	store := newTestStore(t, home)
	if _, err := store.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := store.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer store.Stop()

	script, err := store.ProcessAndThreadPolicyScript()
	if err != nil {
		t.Fatalf("ProcessAndThreadPolicyScript: %v", err)
	}
	if script != "function v1() {}" {
		t.Fatalf("script = %q", script)
	}

	// El watchdog invalida el cache; la siguiente lectura ve el contenido
	// nuevo. Se espera con deadline porque la invalidación es asíncrona.
	writeConf(t, home.SubFile(config.PolicyScriptFile), "function v2() {}")
	deadline := time.Now().Add(2 * time.Second)
	for {
		script, err = store.ProcessAndThreadPolicyScript()
		if err != nil {
			t.Fatalf("ProcessAndThreadPolicyScript: %v", err)
		}
		if script == "function v2() {}" {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("script todavía cacheado: %q", script)
		}
		time.Sleep(storePollDelay)
	}
}

func TestStore_Locks(t *testing.T) {
	home := newTestHome(t, "controller.ip=10.0.0.1\n")
	exHome := config.NewHome(t.TempDir())
	store, err := config.NewStore(config.StoreOptions{Home: home, ExHome: exHome})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if _, err := store.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if store.HasNoMoreTestLock() || store.HasShutdownLock() {
		t.Fatal("locks reportados sin archivos")
	}
	writeConf(t, exHome.SubFile(config.NoMoreTestLockFile), "")
	writeConf(t, exHome.SubFile(config.ShutdownLockFile), "")
	if !store.HasNoMoreTestLock() || !store.HasShutdownLock() {
		t.Fatal("locks existentes no reportados")
	}
}

func TestStore_ConcurrentReadersSeeConsistentSnapshots(t *testing.T) {
	home := newTestHome(t, "pair.a=0\npair.b=0\n")
	store := newTestStore(t, home)
	if _, err := store.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				snap := store.Current()
				a, _ := snap.Get("pair.a")
				b, _ := snap.Get("pair.b")
				// Ambas claves se escriben juntas: un snapshot consistente
				// nunca las muestra desparejadas.
				if a != b {
					t.Errorf("snapshot inconsistente: pair.a=%q pair.b=%q", a, b)
					return
				}
			}
		}()
	}

	for i := 1; i <= 50; i++ {
		writeConf(t, home.SubFile(config.SystemConfFile),
			fmt.Sprintf("pair.a=%d\npair.b=%d\n", i, i))
		if _, err := store.Reload(); err != nil {
			t.Fatalf("Reload: %v", err)
		}
	}
	close(done)
	wg.Wait()
}

func TestNewStore_RequiresHome(t *testing.T) {
	if _, err := config.NewStore(config.StoreOptions{}); err == nil {
		t.Fatal("expected error without Home")
	}
}
