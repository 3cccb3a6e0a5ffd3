package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// NPY format errors.
var (
	ErrInvalidNPYMagic       = errors.New("invalid NPY magic: expected '\\x93NUMPY'")
	ErrUnsupportedNPYVersion = errors.New("unsupported NPY version")
	ErrUnsupportedNPYDtype   = errors.New("unsupported NPY dtype")
	ErrFortranOrder          = errors.New("fortran-ordered NPY arrays are not supported")
	ErrMalformedNPYHeader    = errors.New("malformed NPY header")
	ErrTruncatedNPYData      = errors.New("truncated NPY data")
)

const npyMagic = "\x93NUMPY"

// NPY is a parsed .npy array. Values are widened or narrowed to float32
// regardless of the stored dtype.
type NPY struct {
	Major, Minor uint8
	Descr        string
	Shape        []int
	Data         []float32
}

// Len returns the number of elements the shape describes.
func (a *NPY) Len() int {
	n := 1
	for _, d := range a.Shape {
		n *= d
	}
	return n
}

// Rows returns the size of the first dimension, or 1 for a scalar.
func (a *NPY) Rows() int {
	if len(a.Shape) == 0 {
		return 1
	}
	return a.Shape[0]
}

// Cols returns the number of elements per row.
func (a *NPY) Cols() int {
	if len(a.Shape) == 0 || a.Shape[0] == 0 {
		return 1
	}
	return a.Len() / a.Shape[0]
}

type npyDtype struct {
	size   int
	decode func(b []byte, order binary.ByteOrder) float32
}

var npyDtypes = map[string]npyDtype{
	"u1": {1, func(b []byte, _ binary.ByteOrder) float32 { return float32(b[0]) }},
	"i1": {1, func(b []byte, _ binary.ByteOrder) float32 { return float32(int8(b[0])) }},
	"b1": {1, func(b []byte, _ binary.ByteOrder) float32 { return float32(b[0]) }},
	"u2": {2, func(b []byte, o binary.ByteOrder) float32 { return float32(o.Uint16(b)) }},
	"i2": {2, func(b []byte, o binary.ByteOrder) float32 { return float32(int16(o.Uint16(b))) }},
	"u4": {4, func(b []byte, o binary.ByteOrder) float32 { return float32(o.Uint32(b)) }},
	"i4": {4, func(b []byte, o binary.ByteOrder) float32 { return float32(int32(o.Uint32(b))) }},
	"u8": {8, func(b []byte, o binary.ByteOrder) float32 { return float32(o.Uint64(b)) }},
	"i8": {8, func(b []byte, o binary.ByteOrder) float32 { return float32(int64(o.Uint64(b))) }},
	"f4": {4, func(b []byte, o binary.ByteOrder) float32 { return math.Float32frombits(o.Uint32(b)) }},
	"f8": {8, func(b []byte, o binary.ByteOrder) float32 { return float32(math.Float64frombits(o.Uint64(b))) }},
}

// ParseNPY parses a .npy file from raw bytes.
func ParseNPY(data []byte) (*NPY, error) {
	if len(data) < 10 {
		return nil, ErrTruncatedNPYData
	}
	if string(data[:6]) != npyMagic {
		return nil, ErrInvalidNPYMagic
	}

	arr := &NPY{Major: data[6], Minor: data[7]}

	// Version 1.0 has a 2-byte header length, 2.0 and 3.0 a 4-byte one
	var headerLen, offset int
	switch arr.Major {
	case 1:
		headerLen = int(binary.LittleEndian.Uint16(data[8:10]))
		offset = 10
	case 2, 3:
		if len(data) < 12 {
			return nil, ErrTruncatedNPYData
		}
		headerLen = int(binary.LittleEndian.Uint32(data[8:12]))
		offset = 12
	default:
		return nil, fmt.Errorf("%w: %d.%d", ErrUnsupportedNPYVersion, arr.Major, arr.Minor)
	}
	if len(data) < offset+headerLen {
		return nil, fmt.Errorf("%w: reading header", ErrTruncatedNPYData)
	}

	header := string(data[offset : offset+headerLen])
	descr, fortran, shape, err := parseNPYHeader(header)
	if err != nil {
		return nil, err
	}
	arr.Descr = descr
	arr.Shape = shape

	if fortran && len(shape) > 1 {
		return nil, ErrFortranOrder
	}

	if len(descr) < 3 {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedNPYDtype, descr)
	}
	var order binary.ByteOrder = binary.LittleEndian
	switch descr[0] {
	case '<', '|', '=':
	case '>':
		order = binary.BigEndian
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedNPYDtype, descr)
	}
	dt, ok := npyDtypes[descr[1:]]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedNPYDtype, descr)
	}

	body := data[offset+headerLen:]
	n := arr.Len()
	if len(body) < n*dt.size {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrTruncatedNPYData, n*dt.size, len(body))
	}

	arr.Data = make([]float32, n)
	for i := range arr.Data {
		arr.Data[i] = dt.decode(body[i*dt.size:(i+1)*dt.size], order)
	}
	return arr, nil
}

// parseNPYHeader reads the Python dict literal of an NPY header, e.g.
// {'descr': '<f4', 'fortran_order': False, 'shape': (60000, 3), }
func parseNPYHeader(h string) (descr string, fortran bool, shape []int, err error) {
	h = strings.TrimSpace(h)
	if !strings.HasPrefix(h, "{") || !strings.HasSuffix(h, "}") {
		return "", false, nil, fmt.Errorf("%w: not a dict", ErrMalformedNPYHeader)
	}

	value := func(key string) (string, bool) {
		i := strings.Index(h, "'"+key+"'")
		if i < 0 {
			return "", false
		}
		rest := h[i+len(key)+2:]
		colon := strings.IndexByte(rest, ':')
		if colon < 0 {
			return "", false
		}
		return strings.TrimSpace(rest[colon+1:]), true
	}

	v, ok := value("descr")
	if !ok || len(v) < 2 || v[0] != '\'' {
		return "", false, nil, fmt.Errorf("%w: missing descr", ErrMalformedNPYHeader)
	}
	end := strings.IndexByte(v[1:], '\'')
	if end < 0 {
		return "", false, nil, fmt.Errorf("%w: unterminated descr", ErrMalformedNPYHeader)
	}
	descr = v[1 : end+1]

	v, ok = value("fortran_order")
	if !ok {
		return "", false, nil, fmt.Errorf("%w: missing fortran_order", ErrMalformedNPYHeader)
	}
	fortran = strings.HasPrefix(v, "True")

	v, ok = value("shape")
	if !ok || !strings.HasPrefix(v, "(") {
		return "", false, nil, fmt.Errorf("%w: missing shape", ErrMalformedNPYHeader)
	}
	closing := strings.IndexByte(v, ')')
	if closing < 0 {
		return "", false, nil, fmt.Errorf("%w: unterminated shape", ErrMalformedNPYHeader)
	}
	shape = []int{}
	for _, part := range strings.Split(v[1:closing], ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, convErr := strconv.Atoi(strings.TrimSuffix(part, "L"))
		if convErr != nil || d < 0 {
			return "", false, nil, fmt.Errorf("%w: bad dimension %q", ErrMalformedNPYHeader, part)
		}
		shape = append(shape, d)
	}
	return descr, fortran, shape, nil
}

// ParseNPYFile parses a .npy file from disk.
func ParseNPYFile(path string) (*NPY, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading NPY file: %w", err)
	}
	return ParseNPY(data)
}

// WriteNPY writes data as a version 1.0 little-endian float32 array.
func WriteNPY(w io.Writer, shape []int, data []float32) error {
	n := 1
	dims := make([]string, len(shape))
	for i, d := range shape {
		n *= d
		dims[i] = strconv.Itoa(d)
	}
	if n != len(data) {
		return fmt.Errorf("shape %v holds %d values, got %d", shape, n, len(data))
	}

	shapeStr := strings.Join(dims, ", ")
	if len(shape) == 1 {
		shapeStr += ","
	}
	header := fmt.Sprintf("{'descr': '<f4', 'fortran_order': False, 'shape': (%s), }", shapeStr)
	// magic + version + length + header + '\n' is padded to a multiple of 64
	total := len(npyMagic) + 4 + len(header) + 1
	if pad := total % 64; pad != 0 {
		header += strings.Repeat(" ", 64-pad)
	}
	header += "\n"

	buf := new(bytes.Buffer)
	buf.WriteString(npyMagic)
	buf.WriteByte(1)
	buf.WriteByte(0)
	binary.Write(buf, binary.LittleEndian, uint16(len(header)))
	buf.WriteString(header)
	if err := binary.Write(buf, binary.LittleEndian, data); err != nil {
		return err
	}

	_, err := w.Write(buf.Bytes())
	return err
}
