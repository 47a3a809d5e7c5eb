package resp

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"strings"

	"github.com/juju/errors"
)

// Resp protocol's data types
const (
	RespStatus    = '+' // +<string>\r\n
	RespError     = '-' // -<string>\r\n
	RespString    = '$' // $<length>\r\n<bytes>\r\n
	RespInt       = ':' // :<number>\r\n
	RespNil       = '_' // _\r\n
	RespFloat     = ',' // ,<floating-point-number>\r\n (golang float)
	RespBool      = '#' // true: #t\r\n false: #f\r\n
	RespBlobError = '!' // !<length>\r\n<bytes>\r\n
	RespVerbatim  = '=' // =<length>\r\nFORMAT:<bytes>\r\n
	RespBigInt    = '(' // (<big number>\r\n
	RespArray     = '*' // *<len>\r\n... (same as resp2)
	RespMap       = '%' // %<len>\r\n(key)\r\n(value)\r\n... (golang map)
	RespSet       = '~' // ~<len>\r\n... (same as Array)
	RespAttr      = '|' // |<len>\r\n(key)\r\n(value)\r\n... + command reply
	RespPush      = '>' // ><len>\r\n... (same as Array)
)

// Largest lengths accepted from the wire.
const (
	MaxBulkLen      = 512 << 20
	MaxAggregateLen = 1 << 20

	preallocLimit = 64 << 10
)

// ErrProtocol is returned for malformed input.
var ErrProtocol = errors.ConstError("ERR Protocol error")

// ServerError is an error reply read off the wire.
type ServerError string

func (e ServerError) Error() string { return string(e) }

// Read reads one value. Lines that do not start with a type marker are
// inline commands and come back as a plain string.
func Read(r *bufio.Reader) (any, error) {
	l, err := r.ReadString('\n')
	if err != nil {
		if err == io.EOF && l != "" {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}

	line := strings.TrimRight(l, "\r\n")
	if line == "" {
		return "", nil
	}

	switch line[0] {
	case RespNil:
		return nil, nil
	case RespBool:
		return len(line) > 1 && line[1] == 't', nil
	case RespInt:
		n, err := strconv.Atoi(line[1:])
		if err != nil {
			return nil, errors.Annotatef(ErrProtocol, "invalid integer %q", line[1:])
		}
		return n, nil
	case RespStatus:
		return line[1:], nil
	case RespString:
		return readString(r, line)
	case RespError:
		return ServerError(line[1:]), nil
	case RespArray, RespSet, RespPush:
		return readSlice(r, line)
	case RespMap:
		return readMap(r, line)
	}

	return line, nil
}

func readString(r *bufio.Reader, line string) (any, error) {
	n, err := replyLen(line, MaxBulkLen)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, nil
	}

	// Memory follows the bytes actually received, not the announced length.
	var buf bytes.Buffer
	buf.Grow(min(n+2, preallocLimit))
	if _, err := io.CopyN(&buf, r, int64(n+2)); err != nil {
		return nil, errors.Trace(unexpected(err))
	}
	b := buf.Bytes()
	if b[n] != '\r' || b[n+1] != '\n' {
		return nil, errors.Annotate(ErrProtocol, "bulk string not terminated by CRLF")
	}

	return string(b[:n]), nil
}

func readSlice(r *bufio.Reader, line string) (any, error) {
	n, err := replyLen(line, MaxAggregateLen)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, nil
	}

	arr := make([]any, 0, min(n, preallocLimit/16))
	for i := 0; i < n; i++ {
		v, err := Read(r)
		if err != nil {
			return arr, unexpected(err)
		}

		arr = append(arr, v)
	}

	return arr, nil
}

func readMap(r *bufio.Reader, line string) (any, error) {
	n, err := replyLen(line, MaxAggregateLen)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, errors.Annotatef(ErrProtocol, "invalid map length %d", n)
	}

	m := make(map[string]any, min(n, preallocLimit/16))
	for i := 0; i < n; i++ {
		k, err := Read(r)
		if err != nil {
			return m, unexpected(err)
		}
		v, err := Read(r)
		if err != nil {
			return m, unexpected(err)
		}
		m[fmtKey(k)] = v
	}
	return m, nil
}

// unexpected turns EOF inside an aggregate into io.ErrUnexpectedEOF.
func unexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

func fmtKey(k any) string {
	switch k := k.(type) {
	case string:
		return k
	case int:
		return strconv.Itoa(k)
	}
	return ""
}

// replyLen parses the length of a bulk or aggregate header. It must be -1
// (null) or between 0 and max.
func replyLen(line string, max int) (int, error) {
	n, err := strconv.Atoi(line[1:])
	if err != nil {
		return 0, errors.Annotatef(ErrProtocol, "invalid length %q", line[1:])
	}
	if n < -1 || n > max {
		return 0, errors.Annotatef(ErrProtocol, "length %d out of range", n)
	}
	return n, nil
}
