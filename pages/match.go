package pages

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	"cp-tickets/models"
)

// loginURLIndicators are URL fragments used by CP's authentication screens.
var loginURLIndicators = []string{"login", "signin", "mycp", "registo"}

// FindTrainRow scans a results page snapshot for the timetable row of the
// requested train. Rows are compared on the service cell (serv), departure
// (part) and arrival (cheg). The first matching row wins.
func FindTrainRow(html string, sel models.TrainSelection) (*models.TrainRow, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse results html: %w", err)
	}

	var found *models.TrainRow
	doc.Find("tr").EachWithBreak(func(i int, row *goquery.Selection) bool {
		serv := row.ChildrenFiltered("td[headers='serv']")
		if serv.Length() == 0 || !containsService(serv.Text(), sel.Service) {
			return true
		}
		dep := normalizeSpace(row.ChildrenFiltered("td[headers='part']").Text())
		arr := normalizeSpace(row.ChildrenFiltered("td[headers='cheg']").Text())
		if dep != normalizeSpace(sel.Departure) || arr != normalizeSpace(sel.Arrival) {
			return true
		}

		found = &models.TrainRow{
			Index:         i,
			Service:       normalizeSpace(serv.Text()),
			Departure:     dep,
			Arrival:       arr,
			RadioSelector: radioSelector(row),
		}
		return false
	})

	if found == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoMatchingRow, sel)
	}
	return found, nil
}

// containsService reports whether cell text names the service as a whole
// token, ignoring case and the spacing between its letter and number parts
// ("AP 125" matches "AP125" but neither "AP 1250" nor "XAP 125").
func containsService(cell, service string) bool {
	parts := serviceParts(service)
	if len(parts) == 0 {
		return false
	}
	for i, part := range parts {
		parts[i] = regexp.QuoteMeta(part)
	}
	re := regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}])` + strings.Join(parts, `[\s\p{Zs}]*`) + `(?:$|[^\p{L}\p{N}])`)
	return re.MatchString(cell)
}

// serviceParts splits a service label into runs of letters, digits and
// other characters: "AP 125" and "AP125" both give ["AP", "125"].
func serviceParts(service string) []string {
	var parts []string
	for _, field := range strings.Fields(service) {
		start := 0
		runes := []rune(field)
		for i := 1; i <= len(runes); i++ {
			if i == len(runes) || runeClass(runes[i]) != runeClass(runes[i-1]) {
				parts = append(parts, string(runes[start:i]))
				start = i
			}
		}
	}
	return parts
}

func runeClass(r rune) int {
	switch {
	case unicode.IsLetter(r):
		return 1
	case unicode.IsDigit(r):
		return 2
	default:
		return 0
	}
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func radioSelector(row *goquery.Selection) string {
	radio := row.Find("input[type='radio'][name='GO']").First()
	if radio.Length() == 0 {
		return ""
	}
	if id, ok := radio.Attr("id"); ok && id != "" {
		return fmt.Sprintf("input[type='radio'][name='GO'][id=%s]", cssString(id))
	}
	if value, ok := radio.Attr("value"); ok && value != "" {
		return fmt.Sprintf("input[type='radio'][name='GO'][value=%s]", cssString(value))
	}
	return ""
}

func cssString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

// LooksLikeLoginWall reports whether a page is CP's authentication screen:
// either the URL names a login route or the document carries login inputs
// outside the footer.
func LooksLikeLoginWall(pageURL, html string) bool {
	u := strings.ToLower(pageURL)
	for _, indicator := range loginURLIndicators {
		if strings.Contains(u, indicator) {
			return true
		}
	}

	if html == "" {
		return false
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false
	}

	found := false
	doc.Find("input").EachWithBreak(func(_ int, in *goquery.Selection) bool {
		if in.Closest("footer").Length() > 0 {
			return true
		}
		typ := strings.ToLower(in.AttrOr("type", ""))
		name := strings.ToLower(in.AttrOr("name", ""))
		if typ == "password" || typ == "email" ||
			strings.Contains(name, "user") || strings.Contains(name, "mail") {
			found = true
			return false
		}
		return true
	})
	return found
}
