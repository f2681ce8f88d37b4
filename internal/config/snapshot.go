package config

import (
	"sort"
	"strconv"
	"time"
)

// Properties es una vista de solo lectura sobre el snapshot mergeado, con
// defaults propios de un dominio. Nunca muta el mapa subyacente.
type Properties struct {
	values   map[string]string
	defaults map[string]string
}

// Get retorna el valor de la clave, o su default de dominio, o "".
func (p *Properties) Get(key string) string {
	if v, ok := p.values[key]; ok {
		return v
	}
	return p.defaults[key]
}

// GetDefault retorna el valor de la clave o def si no existe.
func (p *Properties) GetDefault(key, def string) string {
	if v, ok := p.values[key]; ok {
		return v
	}
	if v, ok := p.defaults[key]; ok {
		return v
	}
	return def
}

// GetInt retorna el valor como entero (0 si no parsea).
func (p *Properties) GetInt(key string) int {
	n, err := strconv.Atoi(p.Get(key))
	if err != nil {
		return 0
	}
	return n
}

// GetBool retorna el valor como booleano (false si no parsea).
func (p *Properties) GetBool(key string) bool {
	b, err := strconv.ParseBool(p.Get(key))
	if err != nil {
		return false
	}
	return b
}

// GetDuration retorna el valor como time.Duration (0 si no parsea).
func (p *Properties) GetDuration(key string) time.Duration {
	d, err := time.ParseDuration(p.Get(key))
	if err != nil {
		return 0
	}
	return d
}

// Has reporta si la clave existe en el snapshot (sin contar defaults).
func (p *Properties) Has(key string) bool {
	_, ok := p.values[key]
	return ok
}

// Snapshot es una vista inmutable y completamente mergeada de la
// configuración en un punto del tiempo. Se crea al inicio del proceso y se
// reemplaza entero en cada reload; nunca se muta in place, así los lectores
// siempre ven un snapshot consistente.
type Snapshot struct {
	values   map[string]string
	loadedAt time.Time

	controller *Properties
	cluster    *Properties
	database   *Properties
	internal   *Properties
}

func newSnapshot(merged map[string]string) *Snapshot {
	return &Snapshot{
		values:     merged,
		loadedAt:   time.Now(),
		controller: &Properties{values: merged, defaults: controllerDefaults},
		cluster:    &Properties{values: merged, defaults: clusterDefaults},
		database:   &Properties{values: merged, defaults: databaseDefaults},
		internal:   &Properties{values: merged, defaults: internalDefaults},
	}
}

// Controller retorna la vista del dominio controller.
func (s *Snapshot) Controller() *Properties { return s.controller }

// Cluster retorna la vista del dominio cluster.
func (s *Snapshot) Cluster() *Properties { return s.cluster }

// Database retorna la vista del dominio database.
func (s *Snapshot) Database() *Properties { return s.database }

// Internal retorna la vista del dominio internal.
func (s *Snapshot) Internal() *Properties { return s.internal }

// Get retorna el valor crudo de una clave del snapshot mergeado.
func (s *Snapshot) Get(key string) (string, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Len retorna la cantidad de claves mergeadas.
func (s *Snapshot) Len() int { return len(s.values) }

// Keys retorna las claves mergeadas, ordenadas.
func (s *Snapshot) Keys() []string {
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// LoadedAt retorna el instante en que se construyó el snapshot.
func (s *Snapshot) LoadedAt() time.Time { return s.loadedAt }
