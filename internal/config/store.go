// Package config mantiene la configuración viva del controller.
//
// Un Store carga snapshots inmutables desde el home (base) y el ex-home
// (override), los expone con Current() detrás de un puntero atómico, y ante
// cambios de archivo detectados por los watchdogs reemplaza el snapshot
// completo y notifica a los listeners registrados, sin reiniciar el proceso.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gridload/gridload/internal/metrics"
	"github.com/gridload/gridload/internal/observability/logger"
	"github.com/gridload/gridload/internal/watch"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// ErrSourceRead indica que una fuente de configuración no pudo leerse.
// En el Load inicial es fatal; en un reload disparado por watcher es
// transitorio: se loguea y se retiene el snapshot anterior.
var ErrSourceRead = errors.New("config: cannot read configuration source")

//go:embed internal.properties
var internalProperties string

// StoreOptions configura un Store.
type StoreOptions struct {
	// Home es el directorio base de configuración. Obligatorio.
	Home *Home

	// ExHome es el directorio de overrides. Opcional; si no existe no se
	// aplican overrides.
	ExHome *Home

	// PollDelay es el intervalo de polling de los watchdogs.
	// Si es 0 se usa watch.DefaultDelay.
	PollDelay time.Duration
}

// Store es el almacén de configuración en caliente del controller.
//
// El único estado compartido entre goroutines es el puntero al snapshot
// actual, que se reemplaza atómicamente después de armar el snapshot nuevo
// aparte; los lectores nunca ven un merge a medias.
type Store struct {
	home      *Home
	exHome    *Home
	pollDelay time.Duration
	log       *zap.Logger

	current   atomic.Pointer[Snapshot]
	reloadMu  sync.Mutex
	listeners *ListenerRegistry

	// clustered se fija en Load: el modo cluster no es hot-reloadable.
	clustered bool

	annMu            sync.RWMutex
	announcement     string
	announcementDate time.Time

	// Script de política de procesos/threads, cacheado con un par explícito
	// {value, loaded}: "no cargado" y "legítimamente vacío" son estados
	// distintos. El watchdog del archivo invalida el flag.
	policyMu     sync.Mutex
	policyScript string
	policyLoaded bool

	watchdogs []*watch.Watchdog
}

// NewStore construye un Store sin side effects: nada de filesystem ni red
// hasta Load()/Start().
func NewStore(opts StoreOptions) (*Store, error) {
	if opts.Home == nil {
		return nil, errors.New("config: Home is required")
	}
	delay := opts.PollDelay
	if delay <= 0 {
		delay = watch.DefaultDelay
	}
	return &Store{
		home:      opts.Home,
		exHome:    opts.ExHome,
		pollDelay: delay,
		log:       logger.Named("config"),
		listeners: NewListenerRegistry(),
	}, nil
}

// Home retorna el directorio base.
func (s *Store) Home() *Home { return s.home }

// ExHome retorna el directorio de overrides (puede no existir).
func (s *Store) ExHome() *Home { return s.exHome }

// AddListener registra un suscriptor de cambios. Debe llamarse durante el
// setup, antes de Start().
func (s *Store) AddListener(l Listener) {
	s.listeners.Add(l)
}

// Load construye el snapshot inicial. Un error de lectura acá es fatal:
// el proceso no puede arrancar sin configuración.
func (s *Store) Load() (*Snapshot, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	snap, err := s.buildSnapshot()
	if err != nil {
		return nil, err
	}
	s.current.Store(snap)
	// El modo cluster se decide una sola vez por proceso.
	s.clustered = snap.Cluster().GetBool(PropClusterEnabled)
	s.loadAnnouncement()
	s.log.Info("configuration loaded",
		logger.Path(s.home.Dir()), logger.Keys(snap.Len()),
		logger.Bool("clustered", s.clustered))
	return snap, nil
}

// Reload reconstruye el snapshot y, si tuvo éxito, lo publica con un único
// swap atómico y notifica a los listeners en orden de registro. Los reloads
// concurrentes se serializan; la notificación ocurre fuera de la sección
// crítica para no sostener el lock durante trabajo arbitrario de listeners.
func (s *Store) Reload() (*Snapshot, error) {
	snap, err := s.swapSnapshot()
	if err != nil {
		metrics.ConfigReloadFailures.Inc()
		return nil, err
	}
	metrics.ConfigReloads.Inc()
	s.listeners.Notify(snap)
	return snap, nil
}

func (s *Store) swapSnapshot() (*Snapshot, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()
	snap, err := s.buildSnapshot()
	if err != nil {
		return nil, err
	}
	s.current.Store(snap)
	return snap, nil
}

// Current retorna el último snapshot completado. Nunca un snapshot a medio
// construir. Requiere un Load() previo.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// buildSnapshot mergea todas las fuentes en un mapa nuevo, aparte del
// snapshot publicado: internal (embebido) → system.conf → database.conf →
// system-ex.conf (override gana en colisión de claves).
func (s *Store) buildSnapshot() (*Snapshot, error) {
	merged, err := godotenv.Unmarshal(internalProperties)
	if err != nil {
		return nil, fmt.Errorf("%w: internal properties: %v", ErrSourceRead, err)
	}

	base, err := s.home.Properties(SystemConfFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceRead, s.home.SubFile(SystemConfFile), err)
	}
	for k, v := range base {
		merged[k] = v
	}

	db, err := s.home.Properties(DatabaseConfFile)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s: %v", ErrSourceRead, s.home.SubFile(DatabaseConfFile), err)
		}
		s.log.Debug("database.conf missing, using defaults")
	}
	for k, v := range db {
		merged[k] = v
	}

	if s.exHome != nil && s.exHome.Exists() {
		override, err := s.exHome.Properties(SystemExConfFile)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s: %v", ErrSourceRead, s.exHome.SubFile(SystemExConfFile), err)
		}
		for k, v := range override {
			merged[k] = v
		}
	}

	merged[PropHomeDir] = s.home.Dir()
	return newSnapshot(merged), nil
}

// Start lanza los watchdogs del home: system.conf (reload + fan-out),
// announcement.conf (recarga del anuncio) y process_and_thread_policy.js
// (invalidación del script cacheado). Cada watchdog corre en su propia
// goroutine.
func (s *Store) Start() error {
	watched := []watch.Options{
		{
			Path:  s.home.SubFile(SystemConfFile),
			Delay: s.pollDelay,
			OnChange: func() {
				s.log.Info("system configuration changed, reloading")
				if _, err := s.Reload(); err != nil {
					// Transitorio: se retiene el snapshot anterior.
					s.log.Error("reload failed, keeping previous snapshot", logger.Err(err))
					return
				}
				s.log.Info("new system configuration applied")
			},
		},
		{
			Path:  s.home.SubFile(AnnouncementFile),
			Delay: s.pollDelay,
			OnChange: func() {
				s.log.Info("announcement file changed")
				s.loadAnnouncement()
			},
		},
		{
			Path:  s.home.SubFile(PolicyScriptFile),
			Delay: s.pollDelay,
			OnChange: func() {
				s.log.Info("process and thread policy changed")
				s.invalidatePolicyScript()
			},
		},
	}
	for _, opts := range watched {
		w, err := watch.New(opts)
		if err != nil {
			s.Stop()
			return err
		}
		if err := w.Start(); err != nil {
			s.Stop()
			return err
		}
		s.watchdogs = append(s.watchdogs, w)
	}
	return nil
}

// Stop detiene todos los watchdogs. Idempotente.
func (s *Store) Stop() {
	for _, w := range s.watchdogs {
		w.Stop()
	}
}

// loadAnnouncement lee announcement.conf. Un archivo ausente deja el anuncio
// vacío sin error; cualquier otro fallo se loguea y retiene el valor previo.
func (s *Store) loadAnnouncement() {
	content, err := s.home.ReadFile(AnnouncementFile)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Error("cannot read announcement file", logger.Err(err))
			return
		}
		content = ""
	}
	var date time.Time
	if fi, err := os.Stat(s.home.SubFile(AnnouncementFile)); err == nil {
		date = fi.ModTime()
	}
	s.annMu.Lock()
	s.announcement = content
	s.announcementDate = date
	s.annMu.Unlock()
}

// SaveAnnouncement persiste un anuncio nuevo en el home y actualiza el valor
// en memoria sin esperar al próximo ciclo del watchdog.
func (s *Store) SaveAnnouncement(content string) error {
	if err := s.home.WriteFile(AnnouncementFile, []byte(content)); err != nil {
		return fmt.Errorf("config: save announcement: %w", err)
	}
	s.loadAnnouncement()
	s.log.Info("announcement updated")
	return nil
}

// Announcement retorna el contenido actual del anuncio.
func (s *Store) Announcement() string {
	s.annMu.RLock()
	defer s.annMu.RUnlock()
	return s.announcement
}

// AnnouncementDate retorna la fecha de la última modificación del anuncio
// (zero si no hay archivo).
func (s *Store) AnnouncementDate() time.Time {
	s.annMu.RLock()
	defer s.annMu.RUnlock()
	return s.announcementDate
}

// ProcessAndThreadPolicyScript retorna el contenido del script de política,
// cacheado hasta que el watchdog lo invalide.
func (s *Store) ProcessAndThreadPolicyScript() (string, error) {
	s.policyMu.Lock()
	defer s.policyMu.Unlock()
	if s.policyLoaded {
		return s.policyScript, nil
	}
	content, err := s.home.ReadFile(PolicyScriptFile)
	if err != nil {
		return "", fmt.Errorf("config: read policy script: %w", err)
	}
	s.policyScript = content
	s.policyLoaded = true
	return s.policyScript, nil
}

func (s *Store) invalidatePolicyScript() {
	s.policyMu.Lock()
	s.policyLoaded = false
	s.policyMu.Unlock()
}

// ───── Accesores de conveniencia sobre el snapshot actual ─────

// IsClustered reporta si el modo cluster está habilitado.
// Se fija en Load: no es hot-reloadable.
func (s *Store) IsClustered() bool { return s.clustered }

// Region retorna la región configurada, o NoneRegion sin cluster.
func (s *Store) Region() string {
	if !s.clustered {
		return NoneRegion
	}
	return s.Current().Cluster().Get(PropClusterRegion)
}

// ClusterMemberList retorna la lista cruda de miembros del cluster
// (separados por "," o ";").
func (s *Store) ClusterMemberList() string {
	return s.Current().Cluster().Get(PropClusterMembers)
}

// ClusterListenerPort retorna el puerto de escucha del cluster.
func (s *Store) ClusterListenerPort() int {
	if port := s.Current().Cluster().GetInt(PropClusterPort); port > 0 {
		return port
	}
	return DefaultClusterListenerPort
}

// IsHiddenRegion reporta si esta instancia se oculta del cluster.
func (s *Store) IsHiddenRegion() bool {
	return s.Current().Cluster().GetBool(PropClusterHiddenRegion)
}

// ControllerIP retorna la IP configurada del controller ("" si no hay).
func (s *Store) ControllerIP() string {
	return s.Current().Controller().Get(PropControllerIP)
}

// MonitorPort retorna el puerto del monitor.
func (s *Store) MonitorPort() int {
	return s.Current().Controller().GetInt(PropControllerMonitorPort)
}

// IsDevMode reporta si el modo desarrollo está habilitado.
func (s *Store) IsDevMode() bool {
	return s.Current().Controller().GetBool(PropControllerDevMode)
}

// IsVerbose reporta si el logging verboso está habilitado.
func (s *Store) IsVerbose() bool {
	return s.Current().Controller().GetBool(PropControllerVerbose)
}

// Version retorna la versión del controller (propiedades internas).
func (s *Store) Version() string {
	return s.Current().Internal().Get(PropInternalVersion)
}

// HasNoMoreTestLock reporta si existe el lock que bloquea nuevos tests.
func (s *Store) HasNoMoreTestLock() bool {
	return s.exHome != nil && s.exHome.Exists() && s.exHome.HasLock(NoMoreTestLockFile)
}

// HasShutdownLock reporta si existe el lock de shutdown.
func (s *Store) HasShutdownLock() bool {
	return s.exHome != nil && s.exHome.Exists() && s.exHome.HasLock(ShutdownLockFile)
}
