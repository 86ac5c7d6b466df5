// Package session tracks connect and disconnect metadata for client identities.
package session

import (
	"net"
	"strconv"
	"time"

	"github.com/Sentinel-Gate/filegate/internal/domain/identity"
)

// Address is the remote endpoint of a connection.
type Address struct {
	Host string
	Port int
}

// AddressFrom converts a net.Addr into an Address.
// Addresses that do not split into host and port keep the whole string as Host.
func AddressFrom(addr net.Addr) Address {
	if addr == nil {
		return Address{}
	}
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return Address{Host: tcp.IP.String(), Port: tcp.Port}
	}
	host, port, err := net.SplitHostPort(addr.String())
	if err != nil {
		return Address{Host: addr.String()}
	}
	p, _ := strconv.Atoi(port)
	return Address{Host: host, Port: p}
}

// String returns the address in host:port form.
func (a Address) String() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

// Record describes one connection's session.
type Record struct {
	// Identity is the slot identity the session was assigned.
	Identity identity.Identity
	// Address is the remote endpoint of the connection.
	Address Address
	// ConnectedAt is when the handshake completed.
	ConnectedAt time.Time
	// DisconnectedAt is nil while the session is active.
	DisconnectedAt *time.Time
}
