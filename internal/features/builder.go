// Package features derives the fixed-schema feature vector from a raw
// transaction and a customer profile snapshot.
package features

import (
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Build turns an analyze request plus a profile snapshot into the
// 19-field feature vector. It is pure and deterministic: identical
// inputs produce identical vectors on every call and across process
// restarts. profile may be nil, in which case the documented cold-start
// defaults apply.
func Build(req *domain.AnalyzeRequest, profile *domain.CustomerRiskProfile, now time.Time) (*domain.FeatureVector, error) {
	amount, err := requireNumeric("TransactionAmount", req.TransactionAmount)
	if err != nil {
		return nil, err
	}
	duration, err := requireNumeric("TransactionDuration", req.TransactionDuration)
	if err != nil {
		return nil, err
	}
	attempts, err := requireNumeric("LoginAttempts", req.LoginAttempts)
	if err != nil {
		return nil, err
	}
	balance, err := requireNumeric("AccountBalance", req.AccountBalance)
	if err != nil {
		return nil, err
	}

	if req.PreviousTransactionDate == "" {
		return nil, domain.NewValidationError("PreviousTransactionDate", "required")
	}
	prev, err := time.Parse(domain.TimeLayout, req.PreviousTransactionDate)
	if err != nil {
		return nil, domain.NewValidationError("PreviousTransactionDate", "must match "+domain.TimeLayout)
	}

	if duration == 0 {
		return nil, domain.NewValidationError("TransactionDuration", "must be non-zero")
	}

	if profile == nil {
		profile = domain.DefaultProfile(req.AccountID)
	}
	if profile.StdAmount == 0 {
		return nil, domain.NewValidationError("StdAmount", "profile std amount must be non-zero")
	}
	if profile.AvgDuration == 0 {
		return nil, domain.NewValidationError("AvgDuration", "profile avg duration must be non-zero")
	}

	days := int(now.Sub(prev).Hours() / 24)

	return &domain.FeatureVector{
		TransactionAmount:        amount,
		TransactionDuration:      duration,
		LoginAttempts:            attempts,
		AccountBalance:           balance,
		DaysSinceLastTransaction: float64(days),
		TransactionSpeed:         amount / duration,
		AvgAmount:                profile.AvgAmount,
		StdAmount:                profile.StdAmount,
		MaxAmount:                profile.MaxAmount,
		AvgDuration:              profile.AvgDuration,
		UniqueLocations:          float64(profile.UniqueLocations),
		AmountDeviation:          (amount - profile.AvgAmount) / profile.StdAmount,
		DurationDeviation:        (duration - profile.AvgDuration) / profile.AvgDuration,
		TransactionType:          encodeType(req.TransactionType),
		Location:                 hashCode(req.Location),
		DeviceID:                 hashCode(req.DeviceID),
		MerchantID:               hashCode(req.MerchantID),
		Channel:                  encodeChannel(req.Channel),
		CustomerOccupation:       encodeOccupation(req.CustomerOccupation),
	}, nil
}

func requireNumeric(field string, v *float64) (float64, error) {
	if v == nil {
		return 0, domain.NewValidationError(field, "required numeric field")
	}
	return *v, nil
}
