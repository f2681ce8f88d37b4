package cache

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gridload/gridload/internal/observability/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrUnknownCache indica que el nombre no figura en los descriptores.
	ErrUnknownCache = errors.New("cache: unknown cache name")
)

// ManagerOptions configura el Manager.
type ManagerOptions struct {
	// Descriptors define los caches disponibles. Obligatorio.
	Descriptors []Descriptor

	// Backend es la configuración base compartida por todos los caches
	// (driver, addr, prefix). El TTL por cache viene del descriptor.
	Backend Config

	// PeerProvider y PeerListener son los strings de topología construidos
	// por el subsistema cluster. Vacíos en modo no-clustered.
	PeerProvider string
	PeerListener string
}

// Manager administra un Client por cache declarado.
// Thread-safe; usa singleflight para evitar construcciones duplicadas del
// mismo cache en paralelo.
type Manager struct {
	descriptors map[string]Descriptor
	backend     Config

	peerProvider string
	peerListener string

	mu      sync.RWMutex
	clients map[string]Client
	sf      singleflight.Group
	log     *zap.Logger
}

// NewManager crea el Manager y deja registrada la topología de los caches
// replicados. Los clients se construyen lazy en Cache().
func NewManager(opts ManagerOptions) (*Manager, error) {
	if len(opts.Descriptors) == 0 {
		return nil, errors.New("cache: no descriptors")
	}
	m := &Manager{
		descriptors:  make(map[string]Descriptor, len(opts.Descriptors)),
		backend:      opts.Backend,
		peerProvider: opts.PeerProvider,
		peerListener: opts.PeerListener,
		clients:      make(map[string]Client),
		log:          logger.Named("cache"),
	}
	for _, d := range opts.Descriptors {
		if _, dup := m.descriptors[d.Name]; dup {
			return nil, fmt.Errorf("cache: duplicate descriptor %q", d.Name)
		}
		m.descriptors[d.Name] = d
		if d.Replicated() && opts.PeerProvider != "" {
			m.log.Info("replicated cache configured",
				logger.CacheName(d.Name),
				logger.String("peer_provider", opts.PeerProvider),
				logger.String("peer_listener", opts.PeerListener),
			)
		}
	}
	return m, nil
}

// Cache retorna el Client del cache indicado, construyéndolo si es la primera
// vez. Llamadas concurrentes por el mismo nombre comparten una única
// construcción.
func (m *Manager) Cache(name string) (Client, error) {
	m.mu.RLock()
	c, ok := m.clients[name]
	m.mu.RUnlock()
	if ok {
		return c, nil
	}

	d, ok := m.descriptors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCache, name)
	}

	v, err, _ := m.sf.Do(name, func() (any, error) {
		m.mu.RLock()
		existing, ok := m.clients[name]
		m.mu.RUnlock()
		if ok {
			return existing, nil
		}

		cfg := m.backend
		cfg.Prefix = m.backend.Prefix + d.Name + ":"
		if d.DefaultTTL > 0 {
			cfg.DefaultTTL = d.DefaultTTL
		}
		client, err := New(cfg)
		if err != nil {
			return nil, fmt.Errorf("cache: build %q: %w", name, err)
		}

		m.mu.Lock()
		m.clients[name] = client
		m.mu.Unlock()
		m.log.Debug("cache initialized", logger.CacheName(name), logger.String("driver", cfg.Driver))
		return client, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Client), nil
}

// PeerProvider retorna el string de peer provider registrado (vacío si no hay
// cluster).
func (m *Manager) PeerProvider() string { return m.peerProvider }

// PeerListener retorna el string de peer listener registrado.
func (m *Manager) PeerListener() string { return m.peerListener }

// Names retorna los nombres de caches declarados.
func (m *Manager) Names() []string {
	names := make([]string, 0, len(m.descriptors))
	for n := range m.descriptors {
		names = append(names, n)
	}
	return names
}

// Close cierra todos los clients construidos.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var firstErr error
	for name, c := range m.clients {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("cache: close %q: %w", name, err)
		}
		delete(m.clients, name)
	}
	return firstErr
}
