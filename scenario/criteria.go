package scenario

import (
	"time"

	"cp-tickets/models"
)

const (
	travelDay   = 24
	travelMonth = time.September
)

// DefaultCriteria is the fixed search of the scenario: Lisboa Oriente to
// Porto Campanha on 24 September for two adults and two children in
// Turistic class. The date falls in the current year unless it has already
// passed, in which case next year's is used.
func DefaultCriteria(now time.Time) models.SearchCriteria {
	year := now.Year()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if today.After(time.Date(year, travelMonth, travelDay, 0, 0, 0, 0, now.Location())) {
		year++
	}

	return models.SearchCriteria{
		Origin:      "Lisboa Oriente",
		Destination: "Porto Campanha",
		Day:         travelDay,
		Month:       travelMonth,
		Year:        year,
		Adults:      2,
		Children:    2,
		FareClass:   "Turistic",
	}
}

// DefaultSelection is the train picked from the results.
func DefaultSelection() models.TrainSelection {
	return models.TrainSelection{
		Service:   "AP 125",
		Departure: "12:09",
		Arrival:   "14:48",
	}
}
