package domain

import "errors"

var (
	ErrNegativeAmount = errors.New("negative_taxable_amount")
	ErrNegativeRate   = errors.New("negative_tax_rate")
	ErrUnknownRegime  = errors.New("unknown_tax_regime")
)
