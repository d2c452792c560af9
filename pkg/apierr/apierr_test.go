package apierr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dashkit/authcore/pkg/apierr"
)

func TestFromStatus_Mapping(t *testing.T) {
	cases := []struct {
		status int
		want   apierr.Type
	}{
		{401, apierr.Unauthorized},
		{403, apierr.Forbidden},
		{400, apierr.Validation},
		{404, apierr.Validation},
		{422, apierr.Validation},
		{500, apierr.Server},
		{503, apierr.Server},
	}

	for _, tc := range cases {
		e := apierr.FromStatus(tc.status, "details")
		assert.Equal(t, tc.want, e.Type, "status %d", tc.status)
		assert.Equal(t, tc.status, e.StatusCode)
		assert.Equal(t, "details", e.Details)
	}
}

func TestIsType_Wrapped(t *testing.T) {
	inner := apierr.New(apierr.AuthExpired, "token refresh failed", nil)
	wrapped := fmt.Errorf("request failed: %w", inner)

	assert.True(t, apierr.IsType(wrapped, apierr.AuthExpired))
	assert.False(t, apierr.IsType(wrapped, apierr.Network))
	assert.False(t, apierr.IsType(errors.New("plain"), apierr.AuthExpired))
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	e := apierr.New(apierr.Network, "request failed", cause)

	require.ErrorIs(t, e, cause)
	assert.Equal(t, "request failed", e.Error())

	withStatus := apierr.FromStatus(502, "")
	assert.Contains(t, withStatus.Error(), "502")
}
