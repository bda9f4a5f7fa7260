package claims

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ClaimStatus is the review state of a claim
type ClaimStatus string

const (
	StatusPending        ClaimStatus = "pending"
	StatusApproved       ClaimStatus = "approved"
	StatusRejected       ClaimStatus = "rejected"
	StatusFraudSuspected ClaimStatus = "fraud_suspected"
)

// ClaimNumberPrefix is prepended to every claim number
const ClaimNumberPrefix = "CL-"

// DateLayout is the wire format of accident dates
const DateLayout = "2006-01-02"

// InsuredParty is a policy holder
type InsuredParty struct {
	ID           int64     `json:"id" db:"id"`
	NationalCode string    `json:"national_code" db:"national_code"`
	FullName     string    `json:"full_name" db:"full_name"`
	PhoneNumber  string    `json:"phone_number" db:"phone_number"`
	Address      string    `json:"address" db:"address"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Claim is a damage claim filed against an insured party
type Claim struct {
	ID           int64       `json:"id" db:"id"`
	ClaimNumber  string      `json:"claim_number" db:"claim_number"`
	InsuredID    int64       `json:"insured_id" db:"insured_id"`
	Amount       int64       `json:"amount" db:"amount"` // rials
	AccidentDate time.Time   `json:"accident_date" db:"accident_date"`
	Description  string      `json:"description" db:"description"`
	Status       ClaimStatus `json:"status" db:"status"`

	// Written only by the claim observers at save time.
	FraudScore   float64  `json:"fraud_score" db:"fraud_score"`
	FraudSignals []string `json:"fraud_signals" db:"fraud_signals"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// FormattedAmount renders the amount with dot thousands separators, e.g. 5.000.000.
func (c *Claim) FormattedAmount() string {
	return FormatAmount(c.Amount)
}

// FormatAmount groups digits of amount in threes separated by dots.
func FormatAmount(amount int64) string {
	digits := strconv.FormatInt(amount, 10)
	sign := ""
	if strings.HasPrefix(digits, "-") {
		sign, digits = "-", digits[1:]
	}

	var b strings.Builder
	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(digits[:lead])
	for i := lead; i < len(digits); i += 3 {
		b.WriteByte('.')
		b.WriteString(digits[i : i+3])
	}
	return sign + b.String()
}

// FormatClaimNumber renders a sequence value as a claim number, e.g. CL-000042.
func FormatClaimNumber(seq int64) string {
	return fmt.Sprintf("%s%06d", ClaimNumberPrefix, seq)
}

// ClaimFilter narrows ListClaims
type ClaimFilter struct {
	InsuredID *int64
	Status    *ClaimStatus
	MinScore  *float64
	Limit     int
	Offset    int
}

// CreateInsuredRequest is the body of POST /insured
type CreateInsuredRequest struct {
	NationalCode string `json:"national_code" validate:"required,national_code"`
	FullName     string `json:"full_name" validate:"required,max=100"`
	PhoneNumber  string `json:"phone_number" validate:"required,max=13,phone"`
	Address      string `json:"address" validate:"required"`
}

// UpdateInsuredRequest is the body of PUT /insured/:id. Nil fields are left unchanged.
type UpdateInsuredRequest struct {
	NationalCode *string `json:"national_code,omitempty" validate:"omitempty,national_code"`
	FullName     *string `json:"full_name,omitempty" validate:"omitempty,min=1,max=100"`
	PhoneNumber  *string `json:"phone_number,omitempty" validate:"omitempty,max=13,phone"`
	Address      *string `json:"address,omitempty" validate:"omitempty,min=1"`
}

// CreateClaimRequest is the body of POST /claims
type CreateClaimRequest struct {
	InsuredID    int64  `json:"insured_id" validate:"required,gt=0"`
	Amount       int64  `json:"amount" validate:"gte=0"`
	AccidentDate string `json:"accident_date" validate:"required,datetime=2006-01-02"`
	Description  string `json:"description" validate:"required"`
}

// UpdateClaimRequest is the body of PUT /claims/:id. Nil fields are left unchanged.
type UpdateClaimRequest struct {
	Amount       *int64  `json:"amount,omitempty" validate:"omitempty,gte=0"`
	AccidentDate *string `json:"accident_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Description  *string `json:"description,omitempty" validate:"omitempty,min=1"`
	Status       *string `json:"status,omitempty" validate:"omitempty,claim_status"`
}

// ClaimResponse adds display fields to a Claim
type ClaimResponse struct {
	*Claim
	AccidentDate    string `json:"accident_date"`
	FormattedAmount string `json:"formatted_amount"`
}

// ToClaimResponse converts a claim for the HTTP surface
func ToClaimResponse(c *Claim) *ClaimResponse {
	return &ClaimResponse{
		Claim:           c,
		AccidentDate:    c.AccidentDate.Format(DateLayout),
		FormattedAmount: c.FormattedAmount(),
	}
}
