package httpapi

import (
	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/tinoosan/journal/internal/address"
	"github.com/tinoosan/journal/internal/record"
)

// DepositReader reports the storage deposit currently held for an owner.
type DepositReader interface {
	Held(owner uuid.UUID) (money.Amount, error)
}

type entryRequest struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

type entryResponse struct {
	Owner   uuid.UUID       `json:"owner"`
	Title   string          `json:"title"`
	Message string          `json:"message"`
	Address address.Address `json:"address"`
}

type addressResponse struct {
	Owner   uuid.UUID       `json:"owner"`
	Title   string          `json:"title"`
	Address address.Address `json:"address"`
}

type depositResponse struct {
	Owner       uuid.UUID `json:"owner"`
	Currency    string    `json:"currency"`
	AmountMinor int64     `json:"amount_minor"`
	Amount      string    `json:"amount"`
}

func toEntryResponse(e record.JournalEntry, addr address.Address) entryResponse {
	return entryResponse{Owner: e.Owner, Title: e.Title, Message: e.Message, Address: addr}
}

func toDepositResponse(owner uuid.UUID, amt money.Amount) depositResponse {
	units, _ := amt.MinorUnits()
	return depositResponse{
		Owner:       owner,
		Currency:    amt.Curr().Code(),
		AmountMinor: units,
		Amount:      amt.Decimal().String(),
	}
}
