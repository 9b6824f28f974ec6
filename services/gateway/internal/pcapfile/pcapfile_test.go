package pcapfile

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func globalHeader(order binary.ByteOrder, magic uint32) []byte {
	gh := make([]byte, globalHeaderLen)
	order.PutUint32(gh[0:4], magic)
	order.PutUint16(gh[4:6], 2) // version 2.4
	order.PutUint16(gh[6:8], 4)
	order.PutUint32(gh[16:20], 65535) // snaplen
	order.PutUint32(gh[20:24], 201)   // linktype, irrelevant here
	return gh
}

func record(order binary.ByteOrder, sec, sub uint32, data []byte, orig uint32) []byte {
	rec := make([]byte, recordHeaderLen, recordHeaderLen+len(data))
	order.PutUint32(rec[0:4], sec)
	order.PutUint32(rec[4:8], sub)
	order.PutUint32(rec[8:12], uint32(len(data)))
	order.PutUint32(rec[12:16], orig)
	return append(rec, data...)
}

func TestReader_LittleEndianMicros(t *testing.T) {
	var f bytes.Buffer
	f.Write(globalHeader(binary.LittleEndian, magicMicros))
	f.Write(record(binary.LittleEndian, 1700000000, 250000, []byte{1, 2, 3}, 3))
	f.Write(record(binary.LittleEndian, 1700000001, 0, []byte{4}, 9))

	rd, err := NewReader(&f)
	require.NoError(t, err)

	p, err := rd.Next()
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, p.Data)
	assert.Equal(t, 3, p.OriginalLength)
	assert.Equal(t, time.Unix(1700000000, 250000000).UTC(), p.TS.UTC())

	p, err = rd.Next()
	require.NoError(t, err)
	assert.Equal(t, []byte{4}, p.Data)
	assert.Equal(t, 9, p.OriginalLength, "snap-truncated record keeps the wire length")

	_, err = rd.Next()
	assert.Equal(t, io.EOF, err)
}

func TestReader_BigEndianNanos(t *testing.T) {
	var f bytes.Buffer
	f.Write(globalHeader(binary.BigEndian, magicNanos))
	f.Write(record(binary.BigEndian, 1700000000, 123456789, []byte{0xaa}, 1))

	rd, err := NewReader(&f)
	require.NoError(t, err)

	p, err := rd.Next()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xaa}, p.Data)
	assert.Equal(t, time.Unix(1700000000, 123456789).UTC(), p.TS.UTC())
}

func TestReader_NotAPcapFile(t *testing.T) {
	_, err := NewReader(bytes.NewReader(make([]byte, globalHeaderLen)))
	assert.Error(t, err)
}

func TestReader_TruncatedRecord(t *testing.T) {
	var f bytes.Buffer
	f.Write(globalHeader(binary.LittleEndian, magicMicros))
	full := record(binary.LittleEndian, 1, 0, []byte{1, 2, 3, 4}, 4)
	f.Write(full[:len(full)-2]) // data cut short

	rd, err := NewReader(&f)
	require.NoError(t, err)
	_, err = rd.Next()
	assert.Error(t, err)
	assert.NotEqual(t, io.EOF, err, "a cut-off record is corruption, not end of file")
}

func TestReader_ImplausibleLength(t *testing.T) {
	var f bytes.Buffer
	f.Write(globalHeader(binary.LittleEndian, magicMicros))
	rec := record(binary.LittleEndian, 1, 0, nil, 0)
	binary.LittleEndian.PutUint32(rec[8:12], maxPacketLen+1)
	f.Write(rec)

	rd, err := NewReader(&f)
	require.NoError(t, err)
	_, err = rd.Next()
	assert.Error(t, err)
}
