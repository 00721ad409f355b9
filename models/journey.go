package models

import (
	"fmt"
	"time"
)

// SearchCriteria holds the values typed into the buy-tickets form.
// They are fixed at scenario start and consumed once by the buy page.
type SearchCriteria struct {
	Origin      string
	Destination string
	Day         int
	Month       time.Month
	Year        int
	Adults      int
	Children    int
	FareClass   string
}

// Passengers returns the total head count shown in the passenger dropdown.
func (c SearchCriteria) Passengers() int {
	return c.Adults + c.Children
}

// MonthName is the English month label used by the date picker header.
func (c SearchCriteria) MonthName() string {
	return c.Month.String()
}

// TravelDate returns the travel day at midnight in loc.
func (c SearchCriteria) TravelDate(loc *time.Location) time.Time {
	return time.Date(c.Year, c.Month, c.Day, 0, 0, 0, 0, loc)
}

func (c SearchCriteria) String() string {
	return fmt.Sprintf("%s → %s on %d %s %d, %d adults + %d children, class %s",
		c.Origin, c.Destination, c.Day, c.MonthName(), c.Year, c.Adults, c.Children, c.FareClass)
}

// TrainSelection identifies the timetable row to pick on the results page.
type TrainSelection struct {
	Service   string // e.g. "AP 125"
	Departure string // "HH:MM"
	Arrival   string // "HH:MM"
}

func (s TrainSelection) String() string {
	return fmt.Sprintf("%s %s→%s", s.Service, s.Departure, s.Arrival)
}

// TrainRow is a timetable row that matched a TrainSelection.
type TrainRow struct {
	Index     int
	Service   string
	Departure string
	Arrival   string

	// RadioSelector is a CSS selector that addresses the row's GO radio,
	// empty when the radio carries neither id nor value.
	RadioSelector string
}
