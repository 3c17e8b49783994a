// Package yamlfile loads delivery schedules and offer catalogs from YAML files.
package yamlfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/Apurer/replenishment-engine/internal/domains/procurement/domain"
)

// ErrDuplicateBranch is returned when a schedule lists a branch twice.
var ErrDuplicateBranch = errors.New("branch listed more than once")

type scheduleDocument struct {
	Branches []branchDocument `yaml:"branches"`
}

type branchDocument struct {
	BranchID int64          `yaml:"branchId"`
	Items    []itemDocument `yaml:"items"`
}

type itemDocument struct {
	ProductID int64    `yaml:"productId"`
	Quantity  int64    `yaml:"quantity"`
	Days      []string `yaml:"days"`
}

// Schedule is the periodic delivery schedule of every configured branch.
type Schedule struct {
	branches map[int64][]domain.ScheduledDemand
}

// LoadSchedule reads a schedule file such as:
//
//	branches:
//	  - branchId: 1
//	    items:
//	      - productId: 1001
//	        quantity: 30
//	        days: [monday, thu]
func LoadSchedule(path string) (*Schedule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schedule file: %w", err)
	}
	return ParseSchedule(data)
}

func ParseSchedule(data []byte) (*Schedule, error) {
	var doc scheduleDocument
	if err := decodeStrict(data, &doc); err != nil {
		return nil, fmt.Errorf("decode schedule: %w", err)
	}
	s := &Schedule{branches: make(map[int64][]domain.ScheduledDemand, len(doc.Branches))}
	for _, b := range doc.Branches {
		if b.BranchID <= 0 {
			return nil, fmt.Errorf("schedule: %w", domain.ErrInvalidBranchID)
		}
		if _, dup := s.branches[b.BranchID]; dup {
			return nil, fmt.Errorf("schedule: %w: %d", ErrDuplicateBranch, b.BranchID)
		}
		entries := make([]domain.ScheduledDemand, 0, len(b.Items))
		for _, item := range b.Items {
			if item.ProductID <= 0 {
				return nil, fmt.Errorf("schedule branch %d: %w", b.BranchID, domain.ErrInvalidProductID)
			}
			days, err := domain.ParseWeekdaySet(item.Days)
			if err != nil {
				return nil, fmt.Errorf("schedule branch %d product %d: %w", b.BranchID, item.ProductID, err)
			}
			entries = append(entries, domain.ScheduledDemand{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				Days:      days,
			})
		}
		s.branches[b.BranchID] = entries
	}
	return s, nil
}

// For returns the branch's schedule; nil when the branch is not configured.
func (s *Schedule) For(branchID int64) []domain.ScheduledDemand {
	if s == nil {
		return nil
	}
	entries := s.branches[branchID]
	out := make([]domain.ScheduledDemand, len(entries))
	copy(out, entries)
	return out
}

// Branches lists the configured branch ids in ascending order.
func (s *Schedule) Branches() []int64 {
	if s == nil {
		return nil
	}
	ids := make([]int64, 0, len(s.branches))
	for id := range s.branches {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func decodeStrict(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
