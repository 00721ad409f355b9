package pages

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cp-tickets/models"
)

const timetableFixture = `<html><body>
<table class="timetable">
  <thead><tr><th id="serv">Service</th><th id="part">Departure</th><th id="cheg">Arrival</th><th></th></tr></thead>
  <tbody>
    <tr>
      <td headers="serv"><span>IC 521</span></td>
      <td headers="part">12:09</td>
      <td headers="cheg">15:20</td>
      <td><input type="radio" name="GO" id="go-1" value="521"></td>
    </tr>
    <tr>
      <td headers="serv"><span>AP 125</span></td>
      <td headers="part">09:39</td>
      <td headers="cheg">12:18</td>
      <td><input type="radio" name="GO" id="go-2" value="125a"></td>
    </tr>
    <tr>
      <td headers="serv"><span>AP 125</span></td>
      <td headers="part"> 12:09 </td>
      <td headers="cheg">14:48</td>
      <td><input type="radio" name="GO" id="go-3" value="125b"></td>
    </tr>
    <tr>
      <td headers="serv"><span>AP 125</span></td>
      <td headers="part">12:09</td>
      <td headers="cheg">14:48</td>
      <td><input type="radio" name="GO" id="go-4" value="125c"></td>
    </tr>
  </tbody>
</table>
</body></html>`

var ap125 = models.TrainSelection{Service: "AP 125", Departure: "12:09", Arrival: "14:48"}

func TestFindTrainRow_FirstMatchWins(t *testing.T) {
	row, err := FindTrainRow(timetableFixture, ap125)
	require.NoError(t, err)

	assert.Equal(t, 3, row.Index)
	assert.Equal(t, "AP 125", row.Service)
	assert.Equal(t, "12:09", row.Departure)
	assert.Equal(t, "14:48", row.Arrival)
	assert.Equal(t, `input[type='radio'][name='GO'][id="go-3"]`, row.RadioSelector)
}

func TestFindTrainRow_TimesMustMatch(t *testing.T) {
	_, err := FindTrainRow(timetableFixture, models.TrainSelection{Service: "IC 521", Departure: "12:09", Arrival: "14:48"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoMatchingRow))
}

func TestFindTrainRow_NoRows(t *testing.T) {
	_, err := FindTrainRow(`<html><body><p>No trains</p></body></html>`, ap125)
	assert.ErrorIs(t, err, ErrNoMatchingRow)
}

func TestFindTrainRow_RadioByValue(t *testing.T) {
	html := `<table><tr>
		<td headers="serv">AP125</td><td headers="part">12:09</td><td headers="cheg">14:48</td>
		<td><input type="radio" name="GO" value="x1"></td>
	</tr></table>`

	row, err := FindTrainRow(html, ap125)
	require.NoError(t, err)
	assert.Equal(t, `input[type='radio'][name='GO'][value="x1"]`, row.RadioSelector)
}

func TestFindTrainRow_NoRadio(t *testing.T) {
	html := `<table><tr>
		<td headers="serv">AP 125</td><td headers="part">12:09</td><td headers="cheg">14:48</td>
	</tr></table>`

	row, err := FindTrainRow(html, ap125)
	require.NoError(t, err)
	assert.Empty(t, row.RadioSelector)
}

func TestContainsService(t *testing.T) {
	tests := []struct {
		cell, service string
		want          bool
	}{
		{"AP 125", "AP 125", true},
		{"AP125", "AP 125", true},
		{"  ap  125 ", "AP 125", true},
		{"Alfa Pendular AP 125 (2)", "AP 125", true},
		{"AP\u00a0125", "AP 125", true},
		{"AP 125", "AP125", true},
		{"AP 1250", "AP 125", false},
		{"XAP 125", "AP 125", false},
		{"1AP 125", "AP 125", false},
		{"AP 11250", "AP 125", false},
		{"IC 521", "AP 125", false},
		{"AP 125", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.cell, func(t *testing.T) {
			assert.Equal(t, tt.want, containsService(tt.cell, tt.service))
		})
	}
}

func TestLooksLikeLoginWall(t *testing.T) {
	tests := []struct {
		name string
		url  string
		html string
		want bool
	}{
		{"login url", "https://www.cp.pt/passageiros/en/login?next=buy", "", true},
		{"mycp url", "https://www.cp.pt/MyCP/entrar", "", true},
		{"password field", "https://www.cp.pt/sales/step2",
			`<form><input type="text" name="q"><input type="password" name="pw"></form>`, true},
		{"email field", "https://www.cp.pt/sales/step2",
			`<form><input type="email" name="address"></form>`, true},
		{"username name", "https://www.cp.pt/sales/step2",
			`<form><input type="text" name="UserName"></form>`, true},
		{"footer newsletter only", "https://www.cp.pt/sales/step1",
			`<main><input type="radio" name="GO"></main><footer><input type="email" name="newsletter"></footer>`, false},
		{"results page", "https://www.cp.pt/sales/step1", timetableFixture, false},
		{"empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LooksLikeLoginWall(tt.url, tt.html))
		})
	}
}
