package tunnelpool

import "encoding/binary"

// ipTotalLength reads the 16-bit Total Length field from an IPv4
// header (bytes 2-3, big-endian). It returns 0 if packet is too short
// to contain the field; the pool never inspects payloads beyond this.
//
// encoding/binary is used directly: none of the examples import a
// packet-parsing library, and reading one fixed-offset big-endian
// field needs nothing beyond the standard library.
func ipTotalLength(packet []byte) uint16 {
	if len(packet) < 4 {
		return 0
	}
	return binary.BigEndian.Uint16(packet[2:4])
}

// needsFragmentation reports whether packet's declared IP total length
// exceeds mtu.
func needsFragmentation(packet []byte, mtu uint16) bool {
	return ipTotalLength(packet) > mtu
}
