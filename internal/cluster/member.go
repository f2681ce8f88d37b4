// Package cluster resuelve la identidad de este controller dentro del cluster
// y construye la topología de peers que necesita el cache distribuido.
//
// El flujo es: lista de miembros (string) → ParseMembers → Resolver.Resolve
// (exactamente un miembro local) → BuildTopology (strings de peer provider y
// peer listener que consume el inicializador del cache).
package cluster

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Member es la dirección de un nodo del cluster.
// La igualdad es estructural (IP y puerto).
type Member struct {
	IP   string
	Port int
}

// String formatea el miembro como "ip:port" (con brackets para IPv6).
func (m Member) String() string {
	return net.JoinHostPort(m.IP, strconv.Itoa(m.Port))
}

// ParseMembers parsea la lista de miembros del cluster desde un string.
// Los miembros se separan con "," o ";"; cada uno es "ip" o "ip:port".
// Un miembro sin puerto usa defaultPort. Entradas vacías se ignoran.
func ParseMembers(raw string, defaultPort int) ([]Member, error) {
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';'
	})
	members := make([]Member, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		m, err := parseMember(p, defaultPort)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, nil
}

// parseMember acepta "ip", "ip:port", "[v6]" y "[v6]:port".
func parseMember(s string, defaultPort int) (Member, error) {
	// IPv6 entre brackets, con o sin puerto.
	if strings.HasPrefix(s, "[") {
		if host, port, err := net.SplitHostPort(s); err == nil {
			return withPort(host, port)
		}
		host := strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
		return Member{IP: host, Port: defaultPort}, nil
	}
	switch strings.Count(s, ":") {
	case 0:
		return Member{IP: s, Port: defaultPort}, nil
	case 1:
		host, port, err := net.SplitHostPort(s)
		if err != nil {
			return Member{}, fmt.Errorf("cluster: invalid member %q: %w", s, err)
		}
		return withPort(host, port)
	default:
		// IPv6 sin brackets ni puerto.
		return Member{IP: s, Port: defaultPort}, nil
	}
}

func withPort(host, port string) (Member, error) {
	n, err := strconv.Atoi(port)
	if err != nil || n <= 0 || n > 65535 {
		return Member{}, fmt.Errorf("cluster: invalid port %q for member %q", port, host)
	}
	return Member{IP: host, Port: n}, nil
}
