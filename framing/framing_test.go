package framing

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/require"

	"github.com/croixa/astrix/errs"
)

// asterixBlock is a minimal CAT048 data block reused across frame tests.
var asterixBlock = []byte{0x30, 0x00, 0x06, 0x80, 0x01, 0x23}

func TestRawFramer(t *testing.T) {
	f, err := Open(asterixBlock, KindRaw)
	require.NoError(t, err)

	frame, err := f.Next()
	require.NoError(t, err)
	require.Equal(t, asterixBlock, frame.Payload)
	require.Zero(t, frame.TimestampMS)

	_, err = f.Next()
	require.ErrorIs(t, err, io.EOF)
}

// buildFinal wraps payloads into FINAL records with increasing timestamps.
func buildFinal(t *testing.T, payloads ...[]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	for i, p := range payloads {
		byteCount := finalHeaderLen + len(p) + finalPaddingLen
		require.NoError(t, binary.Write(&buf, binary.BigEndian, uint16(byteCount)))
		buf.WriteByte(0x01) // line id
		ticks := uint32((i + 1) * 100)
		buf.Write([]byte{byte(ticks >> 16), byte(ticks >> 8), byte(ticks)})
		buf.Write(p)
		buf.Write(make([]byte, finalPaddingLen))
	}

	return buf.Bytes()
}

func TestFinalFramer(t *testing.T) {
	data := buildFinal(t, asterixBlock, asterixBlock)

	f, err := Open(data, KindFinal)
	require.NoError(t, err)

	first, err := f.Next()
	require.NoError(t, err)
	require.Equal(t, asterixBlock, first.Payload)
	require.Equal(t, uint64(1000), first.TimestampMS) // 100 ticks of 10ms

	second, err := f.Next()
	require.NoError(t, err)
	require.Equal(t, uint64(2000), second.TimestampMS)

	_, err = f.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestFinalFramerErrors(t *testing.T) {
	t.Run("Truncated header", func(t *testing.T) {
		f := &finalFramer{data: []byte{0x00, 0x10, 0x01}}
		_, err := f.Next()
		require.ErrorIs(t, err, errs.ErrTruncated)
	})

	t.Run("Byte count too small", func(t *testing.T) {
		f := &finalFramer{data: []byte{0x00, 0x08, 0x01, 0x00, 0x00, 0x01, 0xAA, 0xBB}}
		_, err := f.Next()
		require.ErrorIs(t, err, errs.ErrInvalid)
	})

	t.Run("Record exceeds buffer", func(t *testing.T) {
		f := &finalFramer{data: []byte{0x00, 0x40, 0x01, 0x00, 0x00, 0x01, 0xAA, 0xBB}}
		_, err := f.Next()
		require.ErrorIs(t, err, errs.ErrTruncated)
	})
}

// buildPCAP wraps payloads into Ethernet/IPv4/UDP packets inside a classic
// little-endian microsecond PCAP capture.
func buildPCAP(t *testing.T, payloads ...[]byte) []byte {
	t.Helper()
	var buf bytes.Buffer

	// global header
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(pcapMagicMicros)))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint16(2))) // version major
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint16(4))) // version minor
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(0))) // thiszone
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(0))) // sigfigs
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(65535)))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(linkEthernet)))

	for i, p := range payloads {
		packet := buildUDPPacket(p)
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(1700000000+i))) // ts_sec
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(500000)))       // ts_usec
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(len(packet))))
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(len(packet))))
		buf.Write(packet)
	}

	return buf.Bytes()
}

func buildUDPPacket(payload []byte) []byte {
	var pkt bytes.Buffer
	pkt.Write(make([]byte, 12)) // MAC addresses
	_ = binary.Write(&pkt, binary.BigEndian, uint16(etherTypeIPv4))

	udpLen := 8 + len(payload)
	ip := make([]byte, 20)
	ip[0] = 0x45 // IPv4, IHL 5
	binary.BigEndian.PutUint16(ip[2:4], uint16(20+udpLen))
	ip[8] = 64 // TTL
	ip[9] = protoUDP
	pkt.Write(ip)

	udp := make([]byte, 8)
	binary.BigEndian.PutUint16(udp[0:2], 8600)
	binary.BigEndian.PutUint16(udp[2:4], 8600)
	binary.BigEndian.PutUint16(udp[4:6], uint16(udpLen))
	pkt.Write(udp)
	pkt.Write(payload)

	return pkt.Bytes()
}

func TestPCAPFramer(t *testing.T) {
	data := buildPCAP(t, asterixBlock, asterixBlock)

	f, err := Open(data, KindPCAP)
	require.NoError(t, err)

	frame, err := f.Next()
	require.NoError(t, err)
	require.Equal(t, asterixBlock, frame.Payload)
	require.Equal(t, uint64(1700000000)*1000+500, frame.TimestampMS)

	_, err = f.Next()
	require.NoError(t, err)
	_, err = f.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestPCAPAutodetectFromRaw(t *testing.T) {
	data := buildPCAP(t, asterixBlock)

	f, err := Open(data, KindRaw)
	require.NoError(t, err)
	frame, err := f.Next()
	require.NoError(t, err)
	require.Equal(t, asterixBlock, frame.Payload)
}

func TestPCAPSkipsNonUDP(t *testing.T) {
	// an ARP packet between two UDP datagrams must be skipped
	arp := make([]byte, 42)
	binary.BigEndian.PutUint16(arp[12:14], 0x0806)

	var buf bytes.Buffer
	buf.Write(buildPCAP(t, asterixBlock))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(1700000001))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(0))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(arp)))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(arp)))
	buf.Write(arp)

	f, err := Open(buf.Bytes(), KindPCAP)
	require.NoError(t, err)

	_, err = f.Next()
	require.NoError(t, err)
	_, err = f.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestPCAPErrors(t *testing.T) {
	t.Run("Not a capture", func(t *testing.T) {
		_, err := newPCAPFramer(make([]byte, pcapGlobalHeaderLen))
		require.ErrorIs(t, err, errs.ErrInvalid)
	})

	t.Run("Unsupported link type", func(t *testing.T) {
		data := buildPCAP(t)
		binary.LittleEndian.PutUint32(data[20:24], 101) // raw IP
		_, err := newPCAPFramer(data)
		require.ErrorIs(t, err, errs.ErrInvalid)
	})

	t.Run("Truncated record", func(t *testing.T) {
		data := buildPCAP(t, asterixBlock)
		f, err := newPCAPFramer(data[:len(data)-2])
		require.NoError(t, err)
		_, err = f.Next()
		require.ErrorIs(t, err, errs.ErrTruncated)
	})
}

func TestDecompress(t *testing.T) {
	t.Run("Plain data passes through", func(t *testing.T) {
		out, err := Decompress(asterixBlock)
		require.NoError(t, err)
		require.Equal(t, asterixBlock, out)
	})

	t.Run("Gzip", func(t *testing.T) {
		var buf bytes.Buffer
		w := gzip.NewWriter(&buf)
		_, err := w.Write(asterixBlock)
		require.NoError(t, err)
		require.NoError(t, w.Close())

		out, err := Decompress(buf.Bytes())
		require.NoError(t, err)
		require.Equal(t, asterixBlock, out)
	})

	t.Run("Zstd", func(t *testing.T) {
		enc, err := zstd.NewWriter(nil)
		require.NoError(t, err)
		compressed := enc.EncodeAll(asterixBlock, nil)
		require.NoError(t, enc.Close())

		out, err := Decompress(compressed)
		require.NoError(t, err)
		require.Equal(t, asterixBlock, out)
	})

	t.Run("S2", func(t *testing.T) {
		var buf bytes.Buffer
		w := s2.NewWriter(&buf)
		_, err := w.Write(asterixBlock)
		require.NoError(t, err)
		require.NoError(t, w.Close())

		out, err := Decompress(buf.Bytes())
		require.NoError(t, err)
		require.Equal(t, asterixBlock, out)
	})

	t.Run("LZ4", func(t *testing.T) {
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		_, err := w.Write(asterixBlock)
		require.NoError(t, err)
		require.NoError(t, w.Close())

		out, err := Decompress(buf.Bytes())
		require.NoError(t, err)
		require.Equal(t, asterixBlock, out)
	})

	t.Run("Corrupt gzip reports scheme", func(t *testing.T) {
		bad := append([]byte{0x1F, 0x8B}, 0xFF, 0xFF, 0xFF)
		_, err := Decompress(bad)
		require.Error(t, err)
		require.Contains(t, err.Error(), "gzip")
	})
}

func TestDecompressedFinalCapture(t *testing.T) {
	// end to end: a gzip-compressed FINAL recording
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write(buildFinal(t, asterixBlock))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	f, err := Open(buf.Bytes(), KindFinal)
	require.NoError(t, err)

	frame, err := f.Next()
	require.NoError(t, err)
	require.Equal(t, asterixBlock, frame.Payload)
	require.Equal(t, uint64(1000), frame.TimestampMS)
}

func TestParseKind(t *testing.T) {
	for _, name := range []string{"raw", "pcap", "final"} {
		k, ok := ParseKind(name)
		require.True(t, ok)
		require.Equal(t, name, k.String())
	}
	_, ok := ParseKind("hdlc")
	require.False(t, ok)
}
