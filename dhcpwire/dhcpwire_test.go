package dhcpwire

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

// buildPacket assembles a minimal IPv4/UDP/DHCP packet with a correct
// header checksum. dhcpBody is padded or truncated to exactly
// dhcpMinLen bytes, matching the fixed-header validation this package
// performs.
func buildPacket(t *testing.T, srcPort, dstPort uint16, dhcpBody []byte) []byte {
	t.Helper()

	body := make([]byte, dhcpMinLen)
	copy(body, dhcpBody)

	udp := make([]byte, udpHeaderLen+len(body))
	binary.BigEndian.PutUint16(udp[0:2], srcPort)
	binary.BigEndian.PutUint16(udp[2:4], dstPort)
	binary.BigEndian.PutUint16(udp[4:6], uint16(len(udp)))
	copy(udp[udpHeaderLen:], body)

	ip := make([]byte, ipMinHeaderLen+len(udp))
	ip[0] = 0x45 // version 4, IHL 5
	binary.BigEndian.PutUint16(ip[2:4], uint16(len(ip)))
	ip[9] = protocolUDP
	copy(ip[12:16], []byte{10, 0, 0, 1})
	copy(ip[16:20], []byte{10, 0, 0, 2})
	binary.BigEndian.PutUint16(ip[10:12], 0)
	sum := ipChecksum(ip[:ipMinHeaderLen])
	binary.BigEndian.PutUint16(ip[10:12], sum)

	return ip
}

func TestValidateDHCPOverIPv4Accepts(t *testing.T) {
	pkt := buildPacket(t, ServerPort, ClientPort, []byte{0x02, 0x01, 0x06, 0x00})

	d, err := ValidateDHCPOverIPv4(pkt)
	require.NoError(t, err)
	require.Equal(t, [4]byte{10, 0, 0, 1}, d.SrcIP)
	require.Equal(t, [4]byte{10, 0, 0, 2}, d.DstIP)
	require.Equal(t, uint16(ServerPort), d.SrcPort)
	require.Equal(t, uint16(ClientPort), d.DstPort)
	require.Len(t, d.DHCP, dhcpMinLen)
	require.Equal(t, byte(0x02), d.DHCP[0])
}

func TestValidateDHCPOverIPv4RejectsBadChecksum(t *testing.T) {
	pkt := buildPacket(t, ServerPort, ClientPort, nil)
	pkt[10] ^= 0xFF // corrupt the checksum field

	_, err := ValidateDHCPOverIPv4(pkt)
	require.ErrorIs(t, err, ErrBadIPChecksum)
}

func TestValidateDHCPOverIPv4RejectsWrongPorts(t *testing.T) {
	pkt := buildPacket(t, 1234, 5678, nil)

	_, err := ValidateDHCPOverIPv4(pkt)
	require.ErrorIs(t, err, ErrWrongDHCPPorts)
}

func TestValidateDHCPOverIPv4RejectsWrongVersion(t *testing.T) {
	pkt := buildPacket(t, ServerPort, ClientPort, nil)
	pkt[0] = 0x65 // version 6, IHL 5
	sum := ipChecksum(pkt[:ipMinHeaderLen])
	binary.BigEndian.PutUint16(pkt[10:12], 0)
	binary.BigEndian.PutUint16(pkt[10:12], sum)

	_, err := ValidateDHCPOverIPv4(pkt)
	require.ErrorIs(t, err, ErrNotIPv4)
}

func TestValidateDHCPOverIPv4RejectsNonUDP(t *testing.T) {
	pkt := buildPacket(t, ServerPort, ClientPort, nil)
	pkt[9] = 6 // TCP
	binary.BigEndian.PutUint16(pkt[10:12], 0)
	sum := ipChecksum(pkt[:ipMinHeaderLen])
	binary.BigEndian.PutUint16(pkt[10:12], sum)

	_, err := ValidateDHCPOverIPv4(pkt)
	require.ErrorIs(t, err, ErrNotUDP)
}

func TestValidateDHCPOverIPv4RejectsTruncation(t *testing.T) {
	pkt := buildPacket(t, ServerPort, ClientPort, nil)

	_, err := ValidateDHCPOverIPv4(pkt[:10])
	require.ErrorIs(t, err, ErrTruncatedIPHeader)
}

func TestValidateDHCPOverIPv4RejectsUDPLengthMismatch(t *testing.T) {
	pkt := buildPacket(t, ServerPort, ClientPort, nil)

	// Truncate the buffer (dropping most of the DHCP body) and shrink the
	// IP total-length field to match, but leave the UDP length field at
	// its original, now-stale value.
	truncated := append([]byte(nil), pkt[:ipMinHeaderLen+udpHeaderLen+10]...)
	binary.BigEndian.PutUint16(truncated[2:4], uint16(len(truncated)))
	binary.BigEndian.PutUint16(truncated[10:12], 0)
	sum := ipChecksum(truncated[:ipMinHeaderLen])
	binary.BigEndian.PutUint16(truncated[10:12], sum)

	_, err := ValidateDHCPOverIPv4(truncated)
	require.ErrorIs(t, err, ErrUDPLengthMismatch)
}
