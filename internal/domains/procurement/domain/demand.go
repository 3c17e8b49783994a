package domain

import (
	"sort"
	"time"
)

// OrderRequestLine is one product's demand at one branch. It is consumed
// once by the planner and never persisted.
type OrderRequestLine struct {
	ProductID int64
	Quantity  int64
	BranchID  int64
}

// ShortageDemand is an ad-hoc replenishment need detected from low inventory.
type ShortageDemand struct {
	BranchID   int64
	Quantities map[int64]int64
}

// Lines expands the demand into request lines in ascending product order.
func (d ShortageDemand) Lines() []OrderRequestLine {
	ids := make([]int64, 0, len(d.Quantities))
	for id := range d.Quantities {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	lines := make([]OrderRequestLine, 0, len(ids))
	for _, id := range ids {
		lines = append(lines, OrderRequestLine{ProductID: id, Quantity: d.Quantities[id], BranchID: d.BranchID})
	}
	return lines
}

// ScheduledDemand is a product quantity that fires on the listed weekdays.
type ScheduledDemand struct {
	ProductID int64
	Quantity  int64
	Days      WeekdaySet
}

// PeriodicDemand is a branch's delivery schedule evaluated for one weekday.
type PeriodicDemand struct {
	BranchID int64
	Schedule []ScheduledDemand
	Today    time.Weekday
}

// Lines keeps only entries scheduled for Today, in ascending product order.
func (d PeriodicDemand) Lines() []OrderRequestLine {
	lines := make([]OrderRequestLine, 0, len(d.Schedule))
	for _, entry := range d.Schedule {
		if !entry.Days.Contains(d.Today) {
			continue
		}
		lines = append(lines, OrderRequestLine{ProductID: entry.ProductID, Quantity: entry.Quantity, BranchID: d.BranchID})
	}
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })
	return lines
}
