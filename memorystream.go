package layerfs

import (
	"io"

	"github.com/layerfs/layerfs/internal/errs"
)

// memoryStream is a trivial in-memory stream.Stream, used for payloads a
// resolver helper has already materialized in full (a SQLite blob column,
// a decoded credential plist entry).
type memoryStream struct {
	data   []byte
	cursor int64
}

func newMemoryStream(data []byte) *memoryStream {
	return &memoryStream{data: data}
}

func (m *memoryStream) Read(p []byte) (int, error) {
	if m.cursor >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[m.cursor:])
	m.cursor += int64(n)
	return n, nil
}

func (m *memoryStream) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = m.cursor + offset
	case io.SeekEnd:
		target = int64(len(m.data)) + offset
	default:
		return 0, errs.InvalidData("invalid whence %d", whence)
	}
	if target < 0 {
		return 0, errs.InvalidData("negative seek result")
	}
	m.cursor = target
	return target, nil
}

func (m *memoryStream) Close() error         { return nil }
func (m *memoryStream) Size() (int64, error) { return int64(len(m.data)), nil }
func (m *memoryStream) Offset() int64        { return m.cursor }
