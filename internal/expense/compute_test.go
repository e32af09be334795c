package expense

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/fieldforce/backend/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestComputeAmount_Travel(t *testing.T) {
	rates := models.Rates{RatePerKm: dec("2.40")}

	t.Run("sums legs and multiplies by rate", func(t *testing.T) {
		p := Payload{TravelDetails: models.TravelDetails{{Km: dec("10")}, {Km: dec("5")}}}

		c := ComputeAmount(models.CategoryTravel, p, &rates, nil)

		assert.True(t, c.Amount.Equal(dec("36.00")), c.Amount.String())
		require.NotNil(t, c.TotalDistanceKm)
		require.NotNil(t, c.RatePerKm)
		assert.True(t, c.TotalDistanceKm.Equal(dec("15")))
		assert.True(t, c.RatePerKm.Equal(dec("2.40")))
		assert.Equal(t, MethodTravel, c.Method)
	})

	t.Run("missing and invalid km count as zero", func(t *testing.T) {
		var legs models.TravelDetails
		err := json.Unmarshal([]byte(`[{"km":10},{"from":"A","to":"B"},{"km":"abc"},{"km":null},{"km":"4.5"},{"km":-3}]`), &legs)
		require.NoError(t, err)

		c := ComputeAmount(models.CategoryTravel, Payload{TravelDetails: legs}, &rates, nil)

		assert.True(t, c.TotalDistanceKm.Equal(dec("14.5")), c.TotalDistanceKm.String())
		assert.True(t, c.Amount.Equal(dec("34.80")), c.Amount.String())
	})

	t.Run("no legs", func(t *testing.T) {
		c := ComputeAmount(models.CategoryTravel, Payload{}, &rates, nil)
		assert.True(t, c.Amount.IsZero())
	})

	t.Run("huge exponents are skipped without arithmetic", func(t *testing.T) {
		var legs models.TravelDetails
		err := json.Unmarshal([]byte(`[{"km":"1e50000000"},{"km":1e-50000000},{"km":"10001"},{"km":"10"}]`), &legs)
		require.NoError(t, err)

		start := time.Now()
		c := ComputeAmount(models.CategoryTravel, Payload{TravelDetails: legs}, &rates, nil)

		assert.Less(t, time.Since(start), time.Second)
		assert.True(t, c.TotalDistanceKm.Equal(dec("10")), c.TotalDistanceKm.String())
		assert.True(t, c.Amount.Equal(dec("24.00")), c.Amount.String())
	})
}

func TestComputeAmount_Daily(t *testing.T) {
	rates := models.Rates{HeadOfficeAmount: dec("150"), OutsideHeadOfficeAmount: dec("175")}

	t.Run("head office", func(t *testing.T) {
		c := ComputeAmount(models.CategoryDaily, Payload{DailyAllowanceType: "headoffice"}, &rates, nil)
		assert.True(t, c.Amount.Equal(dec("150")))
		assert.Nil(t, c.TotalDistanceKm)
		assert.Equal(t, MethodDaily, c.Method)
	})

	t.Run("anything else is outside head office", func(t *testing.T) {
		for _, kind := range []string{"outside", "", "HeadOffice", "field"} {
			c := ComputeAmount(models.CategoryDaily, Payload{DailyAllowanceType: kind}, &rates, nil)
			assert.True(t, c.Amount.Equal(dec("175")), kind)
		}
	})
}

func TestComputeAmount_ManualOverride(t *testing.T) {
	rates := DefaultRates()

	t.Run("positive manual amount bypasses category", func(t *testing.T) {
		manual := dec("499.99")
		p := Payload{TravelDetails: models.TravelDetails{{Km: dec("100")}}}

		c := ComputeAmount(models.CategoryTravel, p, &rates, &manual)

		assert.True(t, c.Amount.Equal(manual))
		assert.Nil(t, c.TotalDistanceKm)
		assert.Equal(t, MethodManual, c.Method)
	})

	t.Run("manual amount beyond the column range falls through", func(t *testing.T) {
		for _, raw := range []string{"1e50000000", "10000000000"} {
			manual := dec(raw)
			c := ComputeAmount(models.CategoryDaily, Payload{DailyAllowanceType: "headoffice"}, &rates, &manual)
			assert.Equal(t, MethodDaily, c.Method, raw)
		}
	})

	t.Run("zero manual amount falls through", func(t *testing.T) {
		manual := decimal.Zero
		c := ComputeAmount(models.CategoryDaily, Payload{DailyAllowanceType: "headoffice"}, &rates, &manual)
		assert.True(t, c.Amount.Equal(dec("150")))
	})
}

// Unknown categories are accepted with a zero amount; this documents the
// behaviour rather than endorsing it.
func TestComputeAmount_UnknownCategoryYieldsZero(t *testing.T) {
	rates := DefaultRates()
	c := ComputeAmount("stationery", Payload{}, &rates, nil)
	assert.True(t, c.Amount.IsZero())
	assert.Equal(t, MethodUnknownCategory, c.Method)
}

func TestComputeAmount_NilRatesUseDefaults(t *testing.T) {
	p := Payload{TravelDetails: models.TravelDetails{{Km: dec("10")}}}
	c := ComputeAmount(models.CategoryTravel, p, nil, nil)
	assert.True(t, c.Amount.Equal(dec("24")))
}

func TestDefaultRates(t *testing.T) {
	r := DefaultRates()
	assert.Equal(t, "2.4", r.RatePerKm.String())
	assert.Equal(t, "150", r.HeadOfficeAmount.String())
	assert.Equal(t, "175", r.OutsideHeadOfficeAmount.String())
}
