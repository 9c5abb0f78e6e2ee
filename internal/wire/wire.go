// Package wire provides protobuf message framing for friskstat result streams.
//
// Each frame is a google.protobuf.Struct, length-delimited with protobuf's
// standard varint prefix. A frame is either a result (see report.ToStruct)
// or an error frame of the form {"error": {"code": N, "name": "...",
// "message": "..."}}. This lets `--format pb` output be piped into other
// tools and read back frame by frame.
package wire

import (
	"bufio"
	"fmt"
	"io"
	"sync"

	"github.com/xtxerr/friskstat/config"
	"github.com/xtxerr/friskstat/internal/errors"
	"github.com/xtxerr/friskstat/internal/report"
	"google.golang.org/protobuf/encoding/protodelim"
	"google.golang.org/protobuf/types/known/structpb"
)

// errorKey marks an error frame.
const errorKey = "error"

// RemoteError is an error frame read back from a stream.
type RemoteError struct {
	Code    int
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %s", errors.CodeName(e.Code), e.Message)
}

// ExitCode returns the code carried by the frame, so that a re-rendered
// error exits the way the original command did.
func (e *RemoteError) ExitCode() int {
	return e.Code
}

// Reader reads length-delimited result frames from an io.Reader.
// It is safe for concurrent use.
type Reader struct {
	r       *bufio.Reader
	mu      sync.Mutex
	maxSize int64
}

// NewReader creates a Reader wrapping the given io.Reader.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r), maxSize: config.DefaultMaxMessageSize}
}

// SetMaxSize changes the largest frame accepted, in bytes.
func (r *Reader) SetMaxSize(n int64) {
	r.mu.Lock()
	r.maxSize = n
	r.mu.Unlock()
}

// ReadStruct reads the next raw frame. It returns io.EOF at a clean end of
// stream.
func (r *Reader) ReadStruct() (*structpb.Struct, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := &structpb.Struct{}
	opts := protodelim.UnmarshalOptions{
		MaxSize: r.maxSize,
	}
	if err := opts.UnmarshalFrom(r.r, s); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read frame: %w", err)
	}
	return s, nil
}

// Read reads the next result. An error frame is returned as *RemoteError.
func (r *Reader) Read() (*report.Result, error) {
	s, err := r.ReadStruct()
	if err != nil {
		return nil, err
	}

	if ev, ok := s.GetFields()[errorKey]; ok {
		f := ev.GetStructValue().GetFields()
		return nil, &RemoteError{
			Code:    int(f["code"].GetNumberValue()),
			Message: f["message"].GetStringValue(),
		}
	}

	return report.FromStruct(s)
}

// Writer writes length-delimited result frames to an io.Writer.
// It is safe for concurrent use and implements report.Encoder.
type Writer struct {
	w  io.Writer
	mu sync.Mutex
}

// NewWriter creates a Writer wrapping the given io.Writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteStruct writes a raw frame with length prefix.
func (w *Writer) WriteStruct(s *structpb.Struct) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := protodelim.MarshalTo(w.w, s); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// Encode writes r as one frame.
func (w *Writer) Encode(r *report.Result) error {
	s, err := r.ToStruct()
	if err != nil {
		return errors.Wrap(err, "convert result")
	}
	return w.WriteStruct(s)
}

// WriteError writes an error frame for err. The code is the process exit
// code errors.ErrorToCode assigns to err.
func (w *Writer) WriteError(err error) error {
	return w.WriteStruct(NewErrorFrame(errors.ErrorToCode(err), err.Error()))
}

// =============================================================================
// Error Frame Helpers
// =============================================================================

// NewErrorFrame creates an error frame with the given code and message.
// Codes should be from the errors package (errors.Code*).
func NewErrorFrame(code int, msg string) *structpb.Struct {
	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			errorKey: structpb.NewStructValue(&structpb.Struct{
				Fields: map[string]*structpb.Value{
					"code":    structpb.NewNumberValue(float64(code)),
					"name":    structpb.NewStringValue(errors.CodeName(code)),
					"message": structpb.NewStringValue(msg),
				},
			}),
		},
	}
}
