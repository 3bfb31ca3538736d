package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// ==================== TABLE STORAGE ====================

// TableHeader is the header row consumed by the plotting scripts.
var TableHeader = []string{"prime_p", "Re_Sp_over_sqrtp", "Im_Sp_over_sqrtp", "magnitude"}

const tablePrecision = 6

type StorageManager struct {
	config *OutputConfig
	logger *logrus.Logger

	tablePath string
	statsPath string
}

func NewStorageManager(cfg *Config, logger *logrus.Logger) (*StorageManager, error) {
	baseDir := cfg.Output.OutputDirectory
	if baseDir == "" {
		baseDir = "."
	}

	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, &PersistenceError{Path: baseDir, Op: "create output directory", Err: err}
	}

	return &StorageManager{
		config:    &cfg.Output,
		logger:    logger,
		tablePath: cfg.TablePath(),
		statsPath: cfg.StatsPath(),
	}, nil
}

func (sm *StorageManager) TablePath() string { return sm.tablePath }
func (sm *StorageManager) StatsPath() string { return sm.statsPath }

// SaveTable writes the table as CSV. The file only appears under its final
// name once it has been written completely.
func (sm *StorageManager) SaveTable(table *ResultTable) error {
	tmp, err := os.CreateTemp(filepath.Dir(sm.tablePath), ".expsum-*.csv")
	if err != nil {
		return &PersistenceError{Path: sm.tablePath, Op: "create", Err: err}
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := WriteTable(tmp, table); err != nil {
		tmp.Close()
		return &PersistenceError{Path: sm.tablePath, Op: "write", Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &PersistenceError{Path: sm.tablePath, Op: "close", Err: err}
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return &PersistenceError{Path: sm.tablePath, Op: "chmod", Err: err}
	}
	if err := os.Rename(tmpName, sm.tablePath); err != nil {
		return &PersistenceError{Path: sm.tablePath, Op: "rename", Err: err}
	}

	sm.logger.Infof("Saved %d rows to %s", table.Len(), sm.tablePath)
	return nil
}

// WriteTable encodes the table as CSV with fixed six-decimal reals.
func WriteTable(w io.Writer, table *ResultTable) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(TableHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, r := range table.Results {
		record := []string{
			strconv.Itoa(r.Prime),
			strconv.FormatFloat(r.Re(), 'f', tablePrecision, 64),
			strconv.FormatFloat(r.Im(), 'f', tablePrecision, 64),
			strconv.FormatFloat(r.Magnitude, 'f', tablePrecision, 64),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write row for p=%d: %w", r.Prime, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// LoadTable reads a table written by SaveTable. Header and '#' comment rows
// are skipped. Sum is reconstructed from the stored normalized value.
func LoadTable(path string) (*ResultTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &PersistenceError{Path: path, Op: "open", Err: err}
	}
	defer f.Close()

	table, err := ReadTable(f)
	if err != nil {
		return nil, &PersistenceError{Path: path, Op: "read", Err: err}
	}
	return table, nil
}

func ReadTable(r io.Reader) (*ResultTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	table := &ResultTable{}
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(record) == 0 || strings.HasPrefix(record[0], "#") || record[0] == TableHeader[0] {
			continue
		}
		if len(record) != len(TableHeader) {
			return nil, fmt.Errorf("line %d: expected %d fields, got %d", line, len(TableHeader), len(record))
		}

		p, err := strconv.Atoi(record[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: bad prime %q: %w", line, record[0], err)
		}
		var vals [3]float64
		for i := range vals {
			vals[i], err = strconv.ParseFloat(record[i+1], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: bad %s %q: %w", line, TableHeader[i+1], record[i+1], err)
			}
		}

		normalized := complex(vals[0], vals[1])
		table.Results = append(table.Results, ExponentialSumResult{
			Prime:      p,
			Normalized: normalized,
			Sum:        normalized * complex(sqrtInt(p), 0),
			Magnitude:  vals[2],
		})
	}
	return table, nil
}

// ==================== SUMMARY STORAGE ====================

// SaveStatistics writes the run summary as indented JSON.
func (sm *StorageManager) SaveStatistics(summary *RunSummary) error {
	if !sm.config.SaveStats {
		return nil
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode statistics: %w", err)
	}

	if err := os.WriteFile(sm.statsPath, append(data, '\n'), 0644); err != nil {
		return &PersistenceError{Path: sm.statsPath, Op: "write statistics", Err: err}
	}

	sm.logger.Debugf("Saved run summary to %s", sm.statsPath)
	return nil
}
