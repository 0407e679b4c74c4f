package validate_test

import (
	"testing"

	"github.com/ardanlabs/nullchain/foundation/validate"
	"github.com/stretchr/testify/require"
)

type adjustRequest struct {
	Bits   string `json:"bits" validate:"required"`
	Actual uint64 `json:"actual" validate:"required"`
	Target uint64 `json:"target" validate:"required,gt=0"`
}

func Test_Check(t *testing.T) {
	err := validate.Check(adjustRequest{Bits: "0x1d00ffff", Actual: 600, Target: 600})
	require.NoError(t, err)

	err = validate.Check(adjustRequest{Actual: 600})
	require.True(t, validate.IsFieldErrors(err))

	fields := validate.GetFieldErrors(err).Fields()
	require.Len(t, fields, 2)
	require.Contains(t, fields, "bits")
	require.Contains(t, fields, "target")
	require.Contains(t, fields["bits"], "required")
}
