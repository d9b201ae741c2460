package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"trafficcount/internal/model"
)

// CSVHeader 文件表头，列顺序固定
var CSVHeader = []string{"Date", "Time", "Cars", "Bicycles", "Pedestrians"}

// 读取时依次尝试的时间格式
var timeLayouts = []string{
	model.TimeLayout,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05.999999999",
}

// CSVRecordStore 基于 CSV 平面文件的记录仓库
//
// 每次追加都会读出整个文件、追加一行再整体重写，写入开销为 O(n)。
// 多个写入方同时操作同一文件时可能丢失更新，这里不做加锁。
type CSVRecordStore struct {
	path  string
	clock Clock
}

// NewCSVRecordStore 创建 CSV 记录仓库
func NewCSVRecordStore(path string, opts ...Option) *CSVRecordStore {
	o := buildOptions(opts)
	return &CSVRecordStore{
		path:  path,
		clock: o.clock,
	}
}

// Path 文件路径
func (s *CSVRecordStore) Path() string {
	return s.path
}

// Load 读取全部记录，文件不存在时写入只有表头的空文件
func (s *CSVRecordStore) Load(ctx context.Context) ([]model.TrafficRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		if err := s.writeAll(nil); err != nil {
			return nil, err
		}
		return []model.TrafficRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	defer f.Close()

	return ReadCSV(f)
}

// Append 读-改-写方式追加一条记录
func (s *CSVRecordStore) Append(ctx context.Context, cars, bicycles, pedestrians int) (model.TrafficRecord, error) {
	records, err := s.Load(ctx)
	if err != nil {
		return model.TrafficRecord{}, err
	}

	record := model.NewTrafficRecord(s.clock().Truncate(time.Microsecond), cars, bicycles, pedestrians)
	records = append(records, record)

	if err := s.writeAll(records); err != nil {
		return model.TrafficRecord{}, err
	}
	return record, nil
}

// Clear 删除数据文件，文件不存在时返回 false
func (s *CSVRecordStore) Clear(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	err := os.Remove(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("remove %s: %w", s.path, err)
	}
	return true, nil
}

// writeAll 先写临时文件再替换，整体重写
func (s *CSVRecordStore) writeAll(records []model.TrafficRecord) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if err := WriteCSV(tmp, records); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

// WriteCSV 按固定列顺序写出表头和记录
func WriteCSV(w io.Writer, records []model.TrafficRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range records {
		row := []string{
			r.Date,
			r.Time.Format(model.TimeLayout),
			strconv.Itoa(r.Cars),
			strconv.Itoa(r.Bicycles),
			strconv.Itoa(r.Pedestrians),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV 解析带表头的记录文件，任何一行无法解析都会整体失败
func ReadCSV(r io.Reader) ([]model.TrafficRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}

	records := make([]model.TrafficRecord, 0, len(rows))
	if len(rows) == 0 {
		return records, nil
	}
	if !isHeader(rows[0]) {
		return nil, fmt.Errorf("%w: unexpected header %v", ErrMalformedRecord, rows[0])
	}

	for i, row := range rows[1:] {
		record, err := parseRow(row)
		if err != nil {
			// 行号从 1 开始，表头占第 1 行
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedRecord, i+2, err)
		}
		records = append(records, record)
	}
	return records, nil
}

func isHeader(row []string) bool {
	if len(row) != len(CSVHeader) {
		return false
	}
	for i, col := range row {
		if strings.TrimSpace(col) != CSVHeader[i] {
			return false
		}
	}
	return true
}

func parseRow(row []string) (model.TrafficRecord, error) {
	if len(row) != len(CSVHeader) {
		return model.TrafficRecord{}, fmt.Errorf("expected %d columns, got %d", len(CSVHeader), len(row))
	}

	if _, err := time.ParseInLocation(model.DateLayout, row[0], time.Local); err != nil {
		return model.TrafficRecord{}, fmt.Errorf("date %q: %w", row[0], err)
	}
	ts, err := parseTime(row[1])
	if err != nil {
		return model.TrafficRecord{}, err
	}

	counts := make([]int, 3)
	for i, raw := range row[2:] {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return model.TrafficRecord{}, fmt.Errorf("%s %q: %w", CSVHeader[i+2], raw, err)
		}
		counts[i] = n
	}

	return model.TrafficRecord{
		Date:        row[0],
		Time:        ts,
		Cars:        counts[0],
		Bicycles:    counts[1],
		Pedestrians: counts[2],
	}, nil
}

func parseTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return ts.Local(), nil
	}
	for _, layout := range timeLayouts {
		if ts, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("time %q: unrecognized format", raw)
}
