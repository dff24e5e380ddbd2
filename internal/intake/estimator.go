package intake

import (
	"strings"

	"github.com/ashdownmotors/garage-platform/internal/dvla"
)

// EstimateStep is the position in the two-step estimator flow.
type EstimateStep string

const (
	EstimateEnterRegistration EstimateStep = "enter_registration"
	EstimateConfirmOrRetry    EstimateStep = "confirm_or_retry"
)

// EstimateState is the non-conversational variant of the intake flow:
// look a registration up, confirm the vehicle, then price services
// against the confirmed engine size. Retrying discards the previous
// lookup result entirely and returns to the registration step.
type EstimateState struct {
	SessionID string              `json:"session_id"`
	Step      EstimateStep        `json:"step"`
	Vehicle   *dvla.VehicleDetails `json:"vehicle,omitempty"`
	Confirmed bool                `json:"confirmed"`
}

// ServicePrice is one line of a quote.
type ServicePrice struct {
	Service string  `json:"service"`
	Price   float64 `json:"price"`
}

// Engine size bands for service pricing. Unknown engines are priced at
// the middle band.
const (
	smallEngineCC = 1400
	largeEngineCC = 2000
)

var fixedPrices = map[string]float64{
	"mot":              54.85,
	"air conditioning": 59,
	"diagnostics":      45,
}

// serviceBandPrices are small/medium/large engine prices.
var serviceBandPrices = map[string][3]float64{
	"interim service": {89, 109, 129},
	"full service":    {149, 179, 209},
	"major service":   {209, 249, 289},
}

// QuoteServices prices the requested services against the vehicle's
// engine capacity. Unrecognised services are returned with a zero price
// so the front end can flag them as "ask for a quote".
func QuoteServices(services []string, engineCC *int) ([]ServicePrice, float64) {
	band := 1
	if engineCC != nil {
		switch {
		case *engineCC <= smallEngineCC:
			band = 0
		case *engineCC > largeEngineCC:
			band = 2
		}
	}

	var (
		quote []ServicePrice
		total float64
	)
	for _, svc := range services {
		key := strings.ToLower(strings.TrimSpace(svc))
		price := 0.0
		if p, ok := fixedPrices[key]; ok {
			price = p
		} else if bands, ok := serviceBandPrices[key]; ok {
			price = bands[band]
		}
		quote = append(quote, ServicePrice{Service: strings.TrimSpace(svc), Price: price})
		total += price
	}
	return quote, total
}
