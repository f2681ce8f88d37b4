package cluster

import (
	"errors"
	"fmt"
	"net"
)

// ErrAddressResolution indica que la lista de miembros no contiene exactamente
// una entrada local. Es fatal: sin identidad local única no hay topología
// posible, y elegir "el primero" escondería un error de configuración.
var ErrAddressResolution = errors.New("cluster: cannot resolve unique local member")

// ResolverOptions configura un Resolver.
type ResolverOptions struct {
	// LocalIPs retorna las IPs de las interfaces de red de este host.
	// Si es nil se consultan las interfaces reales (net.InterfaceAddrs).
	// Inyectable para tests.
	LocalIPs func() ([]net.IP, error)
}

// Resolver clasifica miembros del cluster como locales o remotos respecto a la
// identidad de red de este proceso y su puerto de escucha.
type Resolver struct {
	localIPs func() ([]net.IP, error)
}

// NewResolver crea un Resolver.
func NewResolver(opts ResolverOptions) *Resolver {
	fn := opts.LocalIPs
	if fn == nil {
		fn = interfaceIPs
	}
	return &Resolver{localIPs: fn}
}

// Resolve clasifica cada miembro: local si su IP pertenece a una interfaz de
// este host (o es loopback) Y su puerto es listenerPort; todo lo demás es
// remoto (incluyendo mismo host con otro puerto). Falla con
// ErrAddressResolution si hay 0 o ≥2 matches locales. El orden de entrada de
// los remotos se preserva. Función pura sobre sus inputs más la consulta de
// interfaces locales.
func (r *Resolver) Resolve(members []Member, listenerPort int) (Member, []Member, error) {
	ips, err := r.localIPs()
	if err != nil {
		return Member{}, nil, fmt.Errorf("cluster: query local interfaces: %w", err)
	}

	var locals []Member
	remotes := make([]Member, 0, len(members))
	for _, m := range members {
		if isLocal(m, listenerPort, ips) {
			locals = append(locals, m)
			continue
		}
		remotes = append(remotes, m)
	}

	if len(locals) != 1 {
		return Member{}, nil, fmt.Errorf("%w: %d local matches for port %d in %v",
			ErrAddressResolution, len(locals), listenerPort, members)
	}
	return locals[0], remotes, nil
}

func isLocal(m Member, listenerPort int, localIPs []net.IP) bool {
	if m.Port != listenerPort {
		return false
	}
	ip := net.ParseIP(m.IP)
	if ip == nil {
		// Una entrada no parseable nunca puede identificar a este host.
		return false
	}
	if ip.IsLoopback() {
		return true
	}
	for _, l := range localIPs {
		if l.Equal(ip) {
			return true
		}
	}
	return false
}

// interfaceIPs consulta las direcciones de todas las interfaces del host.
func interfaceIPs() ([]net.IP, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil, err
	}
	ips := make([]net.IP, 0, len(addrs))
	for _, a := range addrs {
		switch v := a.(type) {
		case *net.IPNet:
			ips = append(ips, v.IP)
		case *net.IPAddr:
			ips = append(ips, v.IP)
		}
	}
	return ips, nil
}
