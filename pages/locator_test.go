package pages

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"cp-tickets/models"
)

func TestXPathLiteral(t *testing.T) {
	assert.Equal(t, `'Porto Campanha'`, xpathLiteral("Porto Campanha"))
	assert.Equal(t, `"Sta. Apolónia's"`, xpathLiteral("Sta. Apolónia's"))
	assert.Equal(t, `concat('a"b', "'", 'c')`, xpathLiteral(`a"b'c`))
}

func TestContainsAllWords(t *testing.T) {
	assert.Equal(t, "contains(., 'Lisboa') and contains(., 'Oriente')", containsAllWords("Lisboa  Oriente"))
	assert.Equal(t, "true()", containsAllWords("  "))
}

func TestLocatorJSElement(t *testing.T) {
	css := CSS("terms", `#travelTerms`)
	assert.Equal(t, `document.querySelector("#travelTerms")`, css.jsElement())

	xp := XPath("radio", `//input[@name='GO']`)
	assert.Equal(t,
		`document.evaluate("//input[@name='GO']", document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue`,
		xp.jsElement())
	assert.Equal(t, "radio (//input[@name='GO'])", xp.String())
}

func TestRowRadio(t *testing.T) {
	byID := rowRadio(&models.TrainRow{Index: 3, RadioSelector: `input[id="go-3"]`})
	assert.False(t, byID.XPath)
	assert.Equal(t, `input[id="go-3"]`, byID.Query)

	byIndex := rowRadio(&models.TrainRow{Index: 3})
	assert.True(t, byIndex.XPath)
	assert.Equal(t, "(//tr)[4]//input[@type='radio' and @name='GO']", byIndex.Query)
}

func TestDropdownAndPassengerLabels(t *testing.T) {
	assert.Equal(t, "1 Passenger", passengerLabel(1))
	assert.Equal(t, "4 Passengers", passengerLabel(4))

	opt := dropdownOption("class option", "Turistic")
	assert.True(t, opt.XPath)
	assert.Contains(t, opt.Query, "contains(normalize-space(.), 'Turistic')")
}
