package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/xtxerr/friskstat/internal/errors"
	"google.golang.org/protobuf/encoding/protojson"
)

// Format selects how results are written.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatPB   Format = "pb" // length-delimited structpb stream, see internal/wire
)

// ParseFormat parses an output format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatPB:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", errors.Wrapf(errors.ErrInvalidFormat, "output format %q (want text, json or pb)", s)
	}
}

// Encoder writes results one at a time.
type Encoder interface {
	Encode(r *Result) error
}

// NewEncoder returns the text or JSON encoder for format. FormatPB is served
// by wire.Writer and is rejected here.
func NewEncoder(w io.Writer, format Format) (Encoder, error) {
	switch format {
	case FormatText, "":
		return &TextEncoder{w: w}, nil
	case FormatJSON:
		return &JSONEncoder{w: w}, nil
	default:
		return nil, errors.Wrapf(errors.ErrInvalidFormat, "no text encoder for %q", format)
	}
}

// =============================================================================
// Text
// =============================================================================

// TextEncoder writes an aligned table preceded by the query line.
type TextEncoder struct {
	w io.Writer
}

// Encode implements Encoder.
func (e *TextEncoder) Encode(r *Result) error {
	if _, err := fmt.Fprintf(e.w, "# %s\n", r.Query); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(e.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(r.Columns, "\t"))
	for _, row := range r.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = FormatValue(v)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(r.Rows) == 0 {
		_, err := fmt.Fprintln(e.w, "(no rows)")
		return err
	}
	return nil
}

// FormatValue renders a single cell. Floats get two decimals; booleans
// render as Y/N like the source data.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case float64:
		return strconv.FormatFloat(x, 'f', 2, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', 2, 32)
	case bool:
		if x {
			return "Y"
		}
		return "N"
	case string:
		return x
	default:
		return fmt.Sprint(normalize(x))
	}
}

// =============================================================================
// JSON
// =============================================================================

// JSONEncoder writes one JSON object per result, newline-terminated.
type JSONEncoder struct {
	w io.Writer
}

var jsonOptions = protojson.MarshalOptions{UseProtoNames: true}

// Encode implements Encoder.
func (e *JSONEncoder) Encode(r *Result) error {
	s, err := r.ToStruct()
	if err != nil {
		return errors.Wrap(err, "convert result")
	}
	data, err := jsonOptions.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "marshal result")
	}
	data = append(data, '\n')
	_, err = e.w.Write(data)
	return err
}
