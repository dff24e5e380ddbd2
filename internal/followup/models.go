package followup

import (
	"time"

	"github.com/google/uuid"
)

// Ticket is the persisted follow-up reminder. It carries a self-contained
// snapshot of the booking: if the ledger row is later deleted the ticket
// still fires. Consumed (deleted) exactly once when the reminder is sent.
type Ticket struct {
	ID           uuid.UUID `json:"id"`
	CustomerName string    `json:"customer_name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	Registration string    `json:"registration"`
	VehicleMake  string    `json:"vehicle_make"`
	VehicleModel string    `json:"vehicle_model"`
	Services     string    `json:"services"`
	TotalPrice   float64   `json:"total_price"`
	SubmittedAt  time.Time `json:"submitted_at"`
	FireAt       time.Time `json:"fire_at"`
	CreatedAt    time.Time `json:"created_at"`
}
