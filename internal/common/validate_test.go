package common_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/videoshop/internal/common"
)

type redeemForm struct {
	ID  string `json:"id" validate:"required"`
	Pwd string `json:"pwd" validate:"required"`
	N   int    `json:"number" validate:"min=1,max=5"`
}

func TestValidateReportsFieldReasons(t *testing.T) {
	err := common.Validate(redeemForm{N: 9})
	require.Error(t, err)

	var appErr *common.AppError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, 422, appErr.HTTPStatus)
	require.ElementsMatch(t, []common.FieldError{
		{Field: "id", Reason: "id.empty"},
		{Field: "pwd", Reason: "pwd.empty"},
		{Field: "number", Reason: "number.max"},
	}, appErr.Details)
}

func TestValidateAcceptsValid(t *testing.T) {
	require.NoError(t, common.Validate(redeemForm{ID: "x", Pwd: "y", N: 3}))
}
