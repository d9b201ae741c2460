// Package export writes traffic records in downloadable formats.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/parquet-go/parquet-go"

	"trafficcount/internal/model"
	"trafficcount/internal/repository"
)

// Format is an export encoding.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatJSON    Format = "json"
	FormatParquet Format = "parquet"
)

// ParseFormat normalizes a user supplied format name.
func ParseFormat(raw string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(raw))); f {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatJSON, FormatParquet:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported export format: %s", raw)
	}
}

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatParquet:
		return "application/vnd.apache.parquet"
	default:
		return "text/csv"
	}
}

// FileName returns the download file name for the format.
func (f Format) FileName() string {
	return "traffic_counts." + string(f)
}

// Row is the parquet layout of a record.
type Row struct {
	Date        string `parquet:"date,zstd"`
	Time        string `parquet:"time,zstd"`
	TimeUnixUs  int64  `parquet:"time_unix_us"`
	Cars        int32  `parquet:"cars"`
	Bicycles    int32  `parquet:"bicycles"`
	Pedestrians int32  `parquet:"pedestrians"`
	Total       int32  `parquet:"total"`
}

// ToRow converts a record for the parquet writer.
func ToRow(r model.TrafficRecord) Row {
	return Row{
		Date:        r.Date,
		Time:        r.Time.Format(model.TimeLayout),
		TimeUnixUs:  r.Time.UnixMicro(),
		Cars:        int32(r.Cars),
		Bicycles:    int32(r.Bicycles),
		Pedestrians: int32(r.Pedestrians),
		Total:       int32(r.Total()),
	}
}

// Write encodes records to w.
func Write(w io.Writer, records []model.TrafficRecord, format Format) error {
	switch format {
	case FormatCSV:
		return repository.WriteCSV(w, records)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if records == nil {
			records = []model.TrafficRecord{}
		}
		return enc.Encode(records)
	case FormatParquet:
		return writeParquet(w, records)
	default:
		return fmt.Errorf("unsupported export format: %s", format)
	}
}

func writeParquet(w io.Writer, records []model.TrafficRecord) error {
	rows := make([]Row, len(records))
	for i, r := range records {
		rows[i] = ToRow(r)
	}

	writer := parquet.NewGenericWriter[Row](w)
	if len(rows) > 0 {
		if _, err := writer.Write(rows); err != nil {
			return fmt.Errorf("write parquet rows: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}
