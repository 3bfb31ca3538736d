package main

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
)

type StorageSuite struct {
	suite.Suite
	dir     string
	cfg     *Config
	storage *StorageManager
}

func (s *StorageSuite) SetupTest() {
	s.dir = s.T().TempDir()
	s.cfg = createDefaultConfig()
	s.cfg.Output.OutputDirectory = filepath.Join(s.dir, "data")

	storage, err := NewStorageManager(s.cfg, quietLogger())
	s.Require().NoError(err)
	s.storage = storage
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) evaluated(primes ...int) *ResultTable {
	e := NewExponentialSumEvaluator(Q47, nil)
	table := &ResultTable{}
	for _, p := range primes {
		r, err := e.Evaluate(p)
		s.Require().NoError(err)
		table.Results = append(table.Results, r)
	}
	return table
}

func (s *StorageSuite) TestTableFormat() {
	s.Run("writes header and fixed precision rows", func() {
		var buf bytes.Buffer
		s.Require().NoError(WriteTable(&buf, s.evaluated(283)))

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		s.Require().Len(lines, 2)
		s.Equal("prime_p,Re_Sp_over_sqrtp,Im_Sp_over_sqrtp,magnitude", lines[0])
		s.Equal("283,8.644131,-0.190269,8.646225", lines[1])
	})

	s.Run("saves to the configured path", func() {
		s.Require().NoError(s.storage.SaveTable(s.evaluated(283, 659)))
		s.Equal(filepath.Join(s.dir, "data", "exponential_sums.csv"), s.storage.TablePath())
		s.FileExists(s.storage.TablePath())

		leftovers, err := filepath.Glob(filepath.Join(s.dir, "data", ".expsum-*"))
		s.Require().NoError(err)
		s.Empty(leftovers)
	})
}

// TestRoundTrip verifies magnitudes survive persistence to six decimals.
func (s *StorageSuite) TestRoundTrip() {
	table := s.evaluated(283, 659, 941, 1129, 1223)
	s.Require().NoError(s.storage.SaveTable(table))

	loaded, err := LoadTable(s.storage.TablePath())
	s.Require().NoError(err)
	s.Require().Equal(table.Len(), loaded.Len())

	for i, want := range table.Results {
		got := loaded.Results[i]
		s.Equal(want.Prime, got.Prime)
		s.InDelta(want.Magnitude, got.Magnitude, 5e-7)
		s.InDelta(want.Re(), got.Re(), 5e-7)
		s.InDelta(want.Im(), got.Im(), 5e-7)
		s.InDelta(got.Magnitude, math.Hypot(got.Re(), got.Im()), 2e-6)
	}
}

func (s *StorageSuite) TestReadTableSkipsComments() {
	input := "# generated elsewhere\nprime_p,Re_Sp_over_sqrtp,Im_Sp_over_sqrtp,magnitude\n283,8.644131,-0.190269,8.646225\n"
	table, err := ReadTable(strings.NewReader(input))
	s.Require().NoError(err)
	s.Require().Equal(1, table.Len())
	s.Equal(283, table.Results[0].Prime)

	_, err = ReadTable(strings.NewReader("283,abc,0,0\n"))
	s.Error(err)
	_, err = ReadTable(strings.NewReader("283,1.0\n"))
	s.Error(err)
}

func (s *StorageSuite) TestPersistenceErrors() {
	s.Run("missing table file", func() {
		_, err := LoadTable(filepath.Join(s.dir, "nope.csv"))
		var persistErr *PersistenceError
		s.Require().ErrorAs(err, &persistErr)
		s.Equal("open", persistErr.Op)
	})

	s.Run("output directory blocked by a file", func() {
		blocker := filepath.Join(s.dir, "blocker")
		s.Require().NoError(os.WriteFile(blocker, []byte("x"), 0644))

		cfg := createDefaultConfig()
		cfg.Output.OutputDirectory = filepath.Join(blocker, "data")
		_, err := NewStorageManager(cfg, quietLogger())

		var persistErr *PersistenceError
		s.Require().ErrorAs(err, &persistErr)
		s.Equal(cfg.Output.OutputDirectory, persistErr.Path)
	})
}

func (s *StorageSuite) TestSaveStatistics() {
	table := s.evaluated(283, 659)
	summary := &RunSummary{
		RunID:      "run-1",
		Version:    Version,
		Bound:      700,
		Statistics: Aggregate(table, 283),
	}
	s.Require().NoError(s.storage.SaveStatistics(summary))

	data, err := os.ReadFile(s.storage.StatsPath())
	s.Require().NoError(err)

	var decoded RunSummary
	s.Require().NoError(json.Unmarshal(data, &decoded))
	s.Equal("run-1", decoded.RunID)
	s.Equal(2, decoded.Statistics.Count)
	s.Equal(283, decoded.Statistics.All.MaxPrime)
	s.Equal(659, decoded.Statistics.ExcludingOutlier.MaxPrime)

	s.Run("disabled", func() {
		s.Require().NoError(os.Remove(s.storage.StatsPath()))
		s.cfg.Output.SaveStats = false
		s.Require().NoError(s.storage.SaveStatistics(summary))
		s.NoFileExists(s.storage.StatsPath())
	})
}
