package nn

import "errors"

// Errors returned by LoadStateDict.
var (
	ErrMissingParameter = errors.New("nn: missing parameter")
	ErrShapeMismatch    = errors.New("nn: parameter shape mismatch")
	ErrUnsupportedDType = errors.New("nn: unsupported parameter dtype")
)
