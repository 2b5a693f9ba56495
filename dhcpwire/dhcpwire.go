// Package dhcpwire implements the validation subset of spec.md §6's DHCP
// paragraph: decoding IPv4/UDP headers far enough to confirm a datagram
// is a well-formed DHCP message, without parsing DHCP options. Grounded
// on the teacher's header-parsing idiom in packetproto/fragmentproto
// (fixed-layout structs filled field by field, truncation checked before
// each read).
package dhcpwire

import (
	"encoding/binary"
	"errors"
)

var (
	ErrTruncatedIPHeader  = errors.New("dhcpwire: truncated IPv4 header")
	ErrNotIPv4            = errors.New("dhcpwire: IP version is not 4")
	ErrBadIPChecksum      = errors.New("dhcpwire: IPv4 header checksum mismatch")
	ErrNotUDP             = errors.New("dhcpwire: IP protocol is not UDP")
	ErrTruncatedUDPHeader = errors.New("dhcpwire: truncated UDP header")
	ErrUDPLengthMismatch  = errors.New("dhcpwire: UDP length inconsistent with IP payload")
	ErrWrongDHCPPorts     = errors.New("dhcpwire: UDP ports do not match DHCP server/client ports")
	ErrTruncatedDHCP      = errors.New("dhcpwire: truncated DHCP message")
)

// ServerPort and ClientPort are the well-known DHCP UDP ports (spec.md
// §6): a server-to-client datagram carries ServerPort as its source and
// ClientPort as its destination.
const (
	ServerPort = 67
	ClientPort = 68
)

const (
	protocolUDP    = 17
	ipMinHeaderLen = 20
	udpHeaderLen   = 8
	dhcpMinLen     = 236 // fixed BOOTP fields, excluding the 4-byte magic cookie
)

// Datagram is a validated DHCP-over-UDP-over-IPv4 packet: the raw DHCP
// message payload plus the IP addresses and the fixed-layout fields
// ValidateDHCPOverIPv4 checked along the way.
type Datagram struct {
	SrcIP   [4]byte
	DstIP   [4]byte
	SrcPort uint16
	DstPort uint16
	DHCP    []byte
}

// ValidateDHCPOverIPv4 decodes data as an IPv4 packet carrying a UDP
// datagram addressed between the DHCP server and client ports, per
// spec.md §6: IP version 4; IP header checksum; protocol UDP; source
// port 67 and destination port 68 (the reverse direction is rejected);
// UDP length consistent with the IP payload. IP options, if present
// (indicated by an IHL > 5), are skipped without interpretation. DHCP
// option parsing is out of scope; only the 236-byte fixed header is
// length-checked, and the magic cookie is neither required nor checked.
func ValidateDHCPOverIPv4(data []byte) (Datagram, error) {
	if len(data) < ipMinHeaderLen {
		return Datagram{}, ErrTruncatedIPHeader
	}
	if data[0]>>4 != 4 {
		return Datagram{}, ErrNotIPv4
	}
	ihl := int(data[0]&0x0F) * 4
	if ihl < ipMinHeaderLen || len(data) < ihl {
		return Datagram{}, ErrTruncatedIPHeader
	}
	if ipChecksum(data[:ihl]) != 0 {
		return Datagram{}, ErrBadIPChecksum
	}
	if data[9] != protocolUDP {
		return Datagram{}, ErrNotUDP
	}
	totalLen := int(binary.BigEndian.Uint16(data[2:4]))
	if totalLen > len(data) {
		return Datagram{}, ErrTruncatedIPHeader
	}
	ipPayload := data[ihl:totalLen]

	if len(ipPayload) < udpHeaderLen {
		return Datagram{}, ErrTruncatedUDPHeader
	}
	srcPort := binary.BigEndian.Uint16(ipPayload[0:2])
	dstPort := binary.BigEndian.Uint16(ipPayload[2:4])
	udpLen := int(binary.BigEndian.Uint16(ipPayload[4:6]))
	if udpLen != len(ipPayload) {
		return Datagram{}, ErrUDPLengthMismatch
	}
	if srcPort != ServerPort || dstPort != ClientPort {
		return Datagram{}, ErrWrongDHCPPorts
	}

	dhcp := ipPayload[udpHeaderLen:]
	if len(dhcp) < dhcpMinLen {
		return Datagram{}, ErrTruncatedDHCP
	}

	d := Datagram{SrcPort: srcPort, DstPort: dstPort, DHCP: dhcp}
	copy(d.SrcIP[:], data[12:16])
	copy(d.DstIP[:], data[16:20])
	return d, nil
}

// BuildDatagram assembles a well-formed IPv4/UDP datagram carrying dhcp as
// its payload, server-to-client (source port ServerPort, destination port
// ClientPort), padding dhcp up to the fixed DHCP header length if shorter.
// The returned bytes round-trip through ValidateDHCPOverIPv4. Options are
// never emitted; the IP header is always the minimum 20 bytes.
func BuildDatagram(srcIP, dstIP [4]byte, dhcp []byte) []byte {
	if len(dhcp) < dhcpMinLen {
		padded := make([]byte, dhcpMinLen)
		copy(padded, dhcp)
		dhcp = padded
	}

	udpLen := udpHeaderLen + len(dhcp)
	totalLen := ipMinHeaderLen + udpLen
	out := make([]byte, totalLen)

	out[0] = 0x45 // version 4, IHL 5
	binary.BigEndian.PutUint16(out[2:4], uint16(totalLen))
	out[8] = 64 // TTL
	out[9] = protocolUDP
	copy(out[12:16], srcIP[:])
	copy(out[16:20], dstIP[:])
	binary.BigEndian.PutUint16(out[20:22], ServerPort)
	binary.BigEndian.PutUint16(out[22:24], ClientPort)
	binary.BigEndian.PutUint16(out[24:26], uint16(udpLen))
	copy(out[28:], dhcp)

	binary.BigEndian.PutUint16(out[10:12], 0)
	binary.BigEndian.PutUint16(out[10:12], ipChecksum(out[:ipMinHeaderLen]))

	return out
}

// ipChecksum computes the IPv4 header checksum (RFC 791 one's-complement
// sum of 16-bit words); a valid header, checksum field included, sums to
// zero.
func ipChecksum(header []byte) uint16 {
	var sum uint32
	for i := 0; i+1 < len(header); i += 2 {
		sum += uint32(binary.BigEndian.Uint16(header[i : i+2]))
	}
	if len(header)%2 == 1 {
		sum += uint32(header[len(header)-1]) << 8
	}
	for sum>>16 != 0 {
		sum = (sum & 0xFFFF) + (sum >> 16)
	}
	return ^uint16(sum)
}
