package artifacts

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
	_ "time/tzdata"

	ics "github.com/arran4/golang-ical"

	"cp-tickets/models"
)

const journeyFileName = "journey.ics"

// siteZone is the timezone the CP timetable is published in.
const siteZone = "Europe/Lisbon"

// WriteJourney records the selected train as a calendar event.
func (s *Store) WriteJourney(criteria models.SearchCriteria, row *models.TrainRow) (string, error) {
	if row == nil {
		return "", fmt.Errorf("artifacts: write journey: no train row")
	}

	start, end, err := JourneyTimes(criteria, row)
	if err != nil {
		return "", fmt.Errorf("artifacts: write journey: %w", err)
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//cp-tickets//scenario run//EN")

	event := cal.AddEvent(s.runID + "@cp-tickets")
	event.SetDtStampTime(s.now())
	event.SetStartAt(start)
	event.SetEndAt(end)
	event.SetSummary(fmt.Sprintf("%s %s → %s", row.Service, criteria.Origin, criteria.Destination))
	event.SetLocation(criteria.Origin)
	event.SetDescription(fmt.Sprintf("%d adults, %d children, class %s", criteria.Adults, criteria.Children, criteria.FareClass))

	path := filepath.Join(s.dir, journeyFileName)
	if err := os.WriteFile(path, []byte(cal.Serialize()), 0644); err != nil {
		return "", fmt.Errorf("artifacts: write journey: %w", err)
	}
	return path, nil
}

// JourneyTimes resolves the row's HH:MM departure and arrival on the travel
// date. An arrival earlier than the departure rolls over to the next day.
func JourneyTimes(criteria models.SearchCriteria, row *models.TrainRow) (time.Time, time.Time, error) {
	loc, err := time.LoadLocation(siteZone)
	if err != nil {
		loc = time.UTC
	}
	day := criteria.TravelDate(loc)

	dep, err := clockOn(day, row.Departure)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("departure: %w", err)
	}
	arr, err := clockOn(day, row.Arrival)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("arrival: %w", err)
	}
	if arr.Before(dep) {
		arr = arr.AddDate(0, 0, 1)
	}
	return dep, arr, nil
}

func clockOn(day time.Time, hhmm string) (time.Time, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, day.Location()), nil
}
