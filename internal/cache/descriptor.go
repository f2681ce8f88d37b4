package cache

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// RMIReplicatorFactory es el identificador fijo de la factory de replicación.
// Un cache cuyo descriptor declara un listener con esta factory participa de
// la replicación entre controllers.
const RMIReplicatorFactory = "rmi_cache_replicator"

//go:embed caches.yaml
var defaultDescriptors []byte

// ListenerFactory es un descriptor de event-listener-factory declarado por un
// cache.
type ListenerFactory struct {
	Factory    string            `yaml:"factory"`
	Properties map[string]string `yaml:"properties,omitempty"`
}

// Descriptor describe un cache configurado: su nombre, su TTL por defecto y
// las listener factories que declara.
type Descriptor struct {
	Name       string            `yaml:"name"`
	DefaultTTL time.Duration     `yaml:"default_ttl,omitempty"`
	Listeners  []ListenerFactory `yaml:"listeners,omitempty"`
}

// Replicated reporta si el descriptor declara la factory de replicación.
// Es un filtro por capacidad, no un dispatch polimórfico.
func (d Descriptor) Replicated() bool {
	for _, l := range d.Listeners {
		if l.Factory == RMIReplicatorFactory {
			return true
		}
	}
	return false
}

type descriptorFile struct {
	Caches []Descriptor `yaml:"caches"`
}

// LoadDescriptors carga los descriptores de caches desde un archivo YAML.
// Si el archivo no existe se usan los descriptores embebidos por defecto.
// El orden del archivo se preserva: define el orden de los nombres en la
// topología de peers.
func LoadDescriptors(path string) ([]Descriptor, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultDescriptors()
	}
	if err != nil {
		return nil, fmt.Errorf("cache: read descriptors %s: %w", path, err)
	}
	return parseDescriptors(data)
}

// DefaultDescriptors retorna los descriptores embebidos en el binario.
func DefaultDescriptors() ([]Descriptor, error) {
	return parseDescriptors(defaultDescriptors)
}

func parseDescriptors(data []byte) ([]Descriptor, error) {
	var f descriptorFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("cache: parse descriptors: %w", err)
	}
	for i, d := range f.Caches {
		if d.Name == "" {
			return nil, fmt.Errorf("cache: descriptor %d has no name", i)
		}
	}
	return f.Caches, nil
}
