package domain

import "errors"

var (
	ErrInvalidMerchant = errors.New("invalid_merchant")
	ErrInvalidPeriod   = errors.New("invalid_billing_period")
	ErrInvalidRate     = errors.New("invalid_gst_rate")
)
