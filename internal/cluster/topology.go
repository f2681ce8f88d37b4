package cluster

import (
	"fmt"
	"strings"

	"github.com/gridload/gridload/internal/cache"
)

// PeerSocketTimeoutMillis es el timeout del socket del peer listener.
// Constante de diseño, no configurable.
const PeerSocketTimeoutMillis = 1000

// Topology es la configuración de peers que consume el inicializador del
// cache distribuido. PeerProvider nunca referencia a Local como peer.
type Topology struct {
	Local        Member
	PeerProvider string
	PeerListener string
}

// ExtractReplicatedCacheNames retorna los nombres de caches cuyo descriptor
// declara la factory de replicación (cache.RMIReplicatorFactory), preservando
// el orden de los descriptores. Caches sin listeners o con factories ajenas
// quedan afuera.
func ExtractReplicatedCacheNames(descriptors []cache.Descriptor) []string {
	names := make([]string, 0, len(descriptors))
	for _, d := range descriptors {
		if d.Replicated() {
			names = append(names, d.Name)
		}
	}
	return names
}

// BuildTopology construye los strings de peer provider y peer listener.
//
// El peer provider tiene la forma
//
//	peerDiscovery=manual,rmiUrls=//ip:port/name|//ip:port/name...
//
// con una entrada por cada remoto (orden de entrada) cruzado con cada nombre
// replicado (orden dado). Sin nombres replicados la lista queda vacía y el
// string termina en "rmiUrls=".
//
// El peer listener tiene la forma exacta
//
//	hostName=<ip>, port=<port>, socketTimeoutMillis=1000
//
// La resolución de dirección es precondición: el caller nunca debe llegar acá
// sin un Member local único (ver Resolver.Resolve).
func BuildTopology(replicatedCacheNames []string, local Member, remotes []Member) Topology {
	urls := make([]string, 0, len(remotes)*len(replicatedCacheNames))
	for _, r := range remotes {
		for _, name := range replicatedCacheNames {
			urls = append(urls, fmt.Sprintf("//%s/%s", r, name))
		}
	}
	return Topology{
		Local:        local,
		PeerProvider: "peerDiscovery=manual,rmiUrls=" + strings.Join(urls, "|"),
		PeerListener: fmt.Sprintf("hostName=%s, port=%d, socketTimeoutMillis=%d",
			local.IP, local.Port, PeerSocketTimeoutMillis),
	}
}
