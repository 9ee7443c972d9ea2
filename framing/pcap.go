package framing

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/croixa/astrix/errs"
)

// PCAP file structure constants.
const (
	pcapGlobalHeaderLen = 24
	pcapRecordHeaderLen = 16

	pcapMagicMicros = 0xA1B2C3D4
	pcapMagicNanos  = 0xA1B23C4D

	linkEthernet = 1
	linkLinuxSLL = 113

	etherTypeIPv4 = 0x0800
	protoUDP      = 17
)

// isPCAP reports whether data starts with a PCAP global header magic in
// either byte order.
func isPCAP(data []byte) bool {
	if len(data) < 4 {
		return false
	}
	be := binary.BigEndian.Uint32(data)
	le := binary.LittleEndian.Uint32(data)

	return be == pcapMagicMicros || be == pcapMagicNanos ||
		le == pcapMagicMicros || le == pcapMagicNanos
}

// pcapFramer extracts ASTERIX payloads from UDP datagrams in a classic PCAP
// capture. Non-IPv4 and non-UDP packets are skipped.
type pcapFramer struct {
	data  []byte
	cur   int
	order binary.ByteOrder
	nanos bool
	link  uint32
}

func newPCAPFramer(data []byte) (*pcapFramer, error) {
	if len(data) < pcapGlobalHeaderLen {
		return nil, fmt.Errorf("PCAP global header needs %d bytes: %w",
			pcapGlobalHeaderLen, errs.ErrTruncated)
	}

	f := &pcapFramer{data: data, cur: pcapGlobalHeaderLen}
	switch magic := binary.BigEndian.Uint32(data); magic {
	case pcapMagicMicros, pcapMagicNanos:
		f.order = binary.BigEndian
		f.nanos = magic == pcapMagicNanos
	default:
		switch magic := binary.LittleEndian.Uint32(data); magic {
		case pcapMagicMicros, pcapMagicNanos:
			f.order = binary.LittleEndian
			f.nanos = magic == pcapMagicNanos
		default:
			return nil, fmt.Errorf("not a PCAP capture: %w", errs.ErrInvalid)
		}
	}

	f.link = f.order.Uint32(data[20:24])
	if f.link != linkEthernet && f.link != linkLinuxSLL {
		return nil, fmt.Errorf("unsupported PCAP link type %d: %w", f.link, errs.ErrInvalid)
	}

	return f, nil
}

// Next walks capture records until one carries a UDP datagram.
func (f *pcapFramer) Next() (*Frame, error) {
	for {
		if f.cur >= len(f.data) {
			return nil, io.EOF
		}
		if f.cur+pcapRecordHeaderLen > len(f.data) {
			return nil, fmt.Errorf("PCAP record header needs %d bytes, %d remain: %w",
				pcapRecordHeaderLen, len(f.data)-f.cur, errs.ErrTruncated)
		}

		hdr := f.data[f.cur:]
		sec := uint64(f.order.Uint32(hdr[0:4]))
		frac := uint64(f.order.Uint32(hdr[4:8]))
		inclLen := int(f.order.Uint32(hdr[8:12]))

		f.cur += pcapRecordHeaderLen
		if f.cur+inclLen > len(f.data) {
			return nil, fmt.Errorf("PCAP record of %d bytes, %d remain: %w",
				inclLen, len(f.data)-f.cur, errs.ErrTruncated)
		}
		packet := f.data[f.cur : f.cur+inclLen]
		f.cur += inclLen

		payload, ok := f.udpPayload(packet)
		if !ok {
			continue
		}

		ts := sec * 1000
		if f.nanos {
			ts += frac / 1000000
		} else {
			ts += frac / 1000
		}

		return &Frame{Payload: payload, TimestampMS: ts}, nil
	}
}

// udpPayload strips the link, IPv4 and UDP headers of one captured packet.
func (f *pcapFramer) udpPayload(packet []byte) ([]byte, bool) {
	// link layer: Ethernet II carries the ethertype after the two MAC
	// addresses, Linux cooked capture after its 14-byte pseudo header
	linkLen := 14
	if f.link == linkLinuxSLL {
		linkLen = 16
	}
	if len(packet) < linkLen {
		return nil, false
	}
	etherType := binary.BigEndian.Uint16(packet[linkLen-2 : linkLen])
	if etherType != etherTypeIPv4 {
		return nil, false
	}

	ip := packet[linkLen:]
	if len(ip) < 20 || ip[0]>>4 != 4 {
		return nil, false
	}
	ihl := int(ip[0]&0x0F) * 4
	if ihl < 20 || len(ip) < ihl+8 {
		return nil, false
	}
	if ip[9] != protoUDP {
		return nil, false
	}

	udp := ip[ihl:]
	udpLen := int(binary.BigEndian.Uint16(udp[4:6]))
	if udpLen < 8 || len(udp) < udpLen {
		return nil, false
	}

	return udp[8:udpLen], true
}
