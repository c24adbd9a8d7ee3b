// Package tablefile reads and writes dataset tables as Apache Arrow IPC files.
//
// Every column is stored as a nullable utf8 field. A table without rows is
// written as a schema with no record batches; a table with rows is written as
// a single record batch. Encoding is deterministic.
package tablefile

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/leapstack-labs/recordkeeper/pkg/core"
)

// Schema metadata keys.
const (
	MetaDataset = "recordkeeper.dataset"
	MetaFormat  = "recordkeeper.format"

	// FormatVersion is written to every file and checked on read.
	FormatVersion = "1"
)

// Header is the file-level metadata of a table file.
type Header struct {
	Dataset string
	Format  string
}

type options struct {
	mem     memory.Allocator
	dataset string
	logger  *slog.Logger
}

// Option configures encoding and decoding.
type Option func(*options)

// WithAllocator sets the Arrow allocator. Defaults to the Go allocator.
func WithAllocator(mem memory.Allocator) Option {
	return func(o *options) { o.mem = mem }
}

// WithDataset records the dataset name in the file metadata.
func WithDataset(name string) Option {
	return func(o *options) { o.dataset = name }
}

// WithLogger sets the logger for WriteAtomic warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{mem: memory.DefaultAllocator, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Encode writes t to w.
func Encode(w io.Writer, t *core.Table, opts ...Option) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("invalid table: %w", err)
	}
	o := buildOptions(opts)

	fields := make([]arrow.Field, len(t.Columns))
	for i, col := range t.Columns {
		fields[i] = arrow.Field{Name: col.Name, Type: arrow.BinaryTypes.String, Nullable: true}
	}
	md := arrow.NewMetadata([]string{MetaDataset, MetaFormat}, []string{o.dataset, FormatVersion})
	schema := arrow.NewSchema(fields, &md)

	fw, err := ipc.NewFileWriter(w, ipc.WithSchema(schema), ipc.WithAllocator(o.mem))
	if err != nil {
		return fmt.Errorf("create arrow writer: %w", err)
	}

	if t.NumRows() > 0 {
		if err := writeBatch(fw, schema, t, o.mem); err != nil {
			_ = fw.Close()
			return err
		}
	}

	if err := fw.Close(); err != nil {
		return fmt.Errorf("finish arrow file: %w", err)
	}
	return nil
}

func writeBatch(fw *ipc.FileWriter, schema *arrow.Schema, t *core.Table, mem memory.Allocator) error {
	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	for i, col := range t.Columns {
		sb := b.Field(i).(*array.StringBuilder)
		sb.Reserve(len(col.Values))
		for _, v := range col.Values {
			if v.Valid {
				sb.Append(v.Value)
			} else {
				sb.AppendNull()
			}
		}
	}

	rec := b.NewRecord()
	defer rec.Release()

	if err := fw.Write(rec); err != nil {
		return fmt.Errorf("write record batch: %w", err)
	}
	return nil
}

// EncodeBytes returns the encoded form of t.
func EncodeBytes(t *core.Table, opts ...Option) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, t, opts...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses an encoded table.
func Decode(data []byte, opts ...Option) (*core.Table, Header, error) {
	o := buildOptions(opts)

	fr, err := ipc.NewFileReader(bytes.NewReader(data), ipc.WithAllocator(o.mem))
	if err != nil {
		return nil, Header{}, fmt.Errorf("open arrow file: %w", err)
	}
	defer fr.Close()

	schema := fr.Schema()
	md := schema.Metadata()
	hdr := Header{}
	hdr.Dataset, _ = md.GetValue(MetaDataset)
	hdr.Format, _ = md.GetValue(MetaFormat)
	if hdr.Format != "" && hdr.Format != FormatVersion {
		return nil, hdr, fmt.Errorf("unsupported table format version %q", hdr.Format)
	}

	t := &core.Table{Columns: make([]core.Column, schema.NumFields())}
	for i := 0; i < schema.NumFields(); i++ {
		f := schema.Field(i)
		if f.Type.ID() != arrow.STRING {
			return nil, hdr, fmt.Errorf("column %q has type %s, want utf8", f.Name, f.Type)
		}
		t.Columns[i] = core.Column{Name: f.Name, Values: []core.Text{}}
	}

	for i := 0; i < fr.NumRecords(); i++ {
		rec, err := fr.Record(i)
		if err != nil {
			return nil, hdr, fmt.Errorf("read record batch %d: %w", i, err)
		}
		for c := range t.Columns {
			arr, ok := rec.Column(c).(*array.String)
			if !ok {
				return nil, hdr, fmt.Errorf("column %q: unexpected array %T", t.Columns[c].Name, rec.Column(c))
			}
			for r := 0; r < arr.Len(); r++ {
				if arr.IsNull(r) {
					t.Columns[c].Values = append(t.Columns[c].Values, core.Null())
				} else {
					t.Columns[c].Values = append(t.Columns[c].Values, core.Some(strings.Clone(arr.Value(r))))
				}
			}
		}
	}

	if err := t.Validate(); err != nil {
		return nil, hdr, fmt.Errorf("corrupt table: %w", err)
	}
	return t, hdr, nil
}
