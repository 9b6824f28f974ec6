// Package pcapfile reads classic pcap capture files. It supports both file
// endiannesses and both timestamp resolutions, which is all the gateway
// needs to replay an HCI capture; pcapng and live capture stay external.
package pcapfile

import (
	"encoding/binary"
	"io"
	"time"

	"sensilo-go/errcode"
)

const (
	magicMicros = 0xa1b2c3d4
	magicNanos  = 0xa1b23c4d

	globalHeaderLen = 24
	recordHeaderLen = 16

	// maxPacketLen rejects records whose declared captured length is
	// clearly garbage (corrupt file), well above any HCI packet.
	maxPacketLen = 1 << 18
)

// Packet is one record from the capture file. OriginalLength is the length
// seen on the wire, which exceeds len(Data) when the capture was truncated
// by the snap length.
type Packet struct {
	Data           []byte
	OriginalLength int
	TS             time.Time
}

type Reader struct {
	r     io.Reader
	order binary.ByteOrder
	nanos bool
	hdr   [recordHeaderLen]byte
}

// NewReader consumes and validates the global header.
func NewReader(r io.Reader) (*Reader, error) {
	const op = "pcapfile.NewReader"
	var gh [globalHeaderLen]byte
	if _, err := io.ReadFull(r, gh[:]); err != nil {
		return nil, &errcode.E{C: errcode.ParseFailed, Op: op, Msg: "global header", Err: err}
	}
	rd := &Reader{r: r}
	switch binary.LittleEndian.Uint32(gh[:4]) {
	case magicMicros:
		rd.order = binary.LittleEndian
	case magicNanos:
		rd.order, rd.nanos = binary.LittleEndian, true
	default:
		switch binary.BigEndian.Uint32(gh[:4]) {
		case magicMicros:
			rd.order = binary.BigEndian
		case magicNanos:
			rd.order, rd.nanos = binary.BigEndian, true
		default:
			return nil, &errcode.E{C: errcode.ParseFailed, Op: op, Msg: "not a pcap file"}
		}
	}
	return rd, nil
}

// Next returns the next record. io.EOF marks a clean end of file; a record
// cut off mid-way is a parse failure.
func (rd *Reader) Next() (Packet, error) {
	const op = "pcapfile.Next"
	if _, err := io.ReadFull(rd.r, rd.hdr[:]); err != nil {
		if err == io.EOF {
			return Packet{}, io.EOF
		}
		return Packet{}, &errcode.E{C: errcode.ParseFailed, Op: op, Msg: "record header", Err: err}
	}
	sec := rd.order.Uint32(rd.hdr[0:4])
	sub := rd.order.Uint32(rd.hdr[4:8])
	incl := rd.order.Uint32(rd.hdr[8:12])
	orig := rd.order.Uint32(rd.hdr[12:16])
	if incl > maxPacketLen {
		return Packet{}, &errcode.E{C: errcode.ParseFailed, Op: op, Msg: "implausible record length"}
	}
	data := make([]byte, incl)
	if _, err := io.ReadFull(rd.r, data); err != nil {
		return Packet{}, &errcode.E{C: errcode.ParseFailed, Op: op, Msg: "record data", Err: err}
	}
	nsec := int64(sub)
	if !rd.nanos {
		nsec *= 1000
	}
	return Packet{
		Data:           data,
		OriginalLength: int(orig),
		TS:             time.Unix(int64(sec), nsec),
	}, nil
}
