package workflow

import (
	"errors"

	"photocurate/internal/variation"
)

var (
	ErrInvalidRequest     = errors.New("invalid request")
	ErrNotFound           = errors.New("not found")
	ErrInvalidImageFormat = errors.New("invalid image format: only JPEG is accepted")
	ErrGenerationFailed   = variation.ErrGenerationFailed
	ErrNotApproved        = errors.New("photo is not approved")
)

func IsNotFound(err error) bool         { return errors.Is(err, ErrNotFound) }
func IsInvalidRequest(err error) bool   { return errors.Is(err, ErrInvalidRequest) }
func IsInvalidImage(err error) bool     { return errors.Is(err, ErrInvalidImageFormat) }
func IsGenerationFailed(err error) bool { return errors.Is(err, ErrGenerationFailed) }
func IsNotApproved(err error) bool      { return errors.Is(err, ErrNotApproved) }
