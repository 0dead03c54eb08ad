package errors

import (
	stderrors "errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
)

func TestClientError_Message(t *testing.T) {
	err := MissingRequiredConfig("hosts list is empty")
	assert.Equal(t, "MissingRequiredConfig: hosts list is empty", err.Error())

	wrapped := ConnectionFailed("dial 10.0.0.1:3000", io.ErrUnexpectedEOF)
	assert.Contains(t, wrapped.Error(), "ConnectionFailed")
	assert.Contains(t, wrapped.Error(), io.ErrUnexpectedEOF.Error())
	assert.True(t, stderrors.Is(wrapped, io.ErrUnexpectedEOF))
}

func TestGetCode_ThroughWrapping(t *testing.T) {
	err := fmt.Errorf("build active endpoint: %w", MissingRequiredConfig("port is zero"))

	assert.True(t, IsClientError(err))
	assert.Equal(t, ErrCodeMissingRequiredConfig, GetCode(err))
	assert.True(t, IsMissingRequiredConfig(err))
	assert.False(t, IsConnectionFailed(err))

	assert.Equal(t, ErrCodeOK, GetCode(nil))
	assert.Equal(t, ErrCodeInternal, GetCode(io.EOF))
}

func TestInvalidEdition_Details(t *testing.T) {
	err := InvalidEdition("prod")
	assert.True(t, IsInvalidEdition(err))
	assert.Equal(t, "prod", err.Details["value"])
}

func TestToGRPCStatus(t *testing.T) {
	tests := []struct {
		err  *ClientError
		want codes.Code
	}{
		{InvalidEdition("x"), codes.InvalidArgument},
		{MissingRequiredConfig("x"), codes.FailedPrecondition},
		{MissingRequiredCredential("x", nil), codes.Unauthenticated},
		{ConnectionFailed("x", nil), codes.Unavailable},
		{NewClientError(ErrCodeInternal, "x", nil), codes.Internal},
	}

	for _, tt := range tests {
		t.Run(tt.err.Code.String(), func(t *testing.T) {
			st := tt.err.ToGRPCStatus()
			require.NotNil(t, st)
			assert.Equal(t, tt.want, st.Code())
			assert.Equal(t, tt.err.Error(), st.Message())
		})
	}
}

func TestStatus(t *testing.T) {
	err := fmt.Errorf("active endpoint: %w", MissingRequiredConfig("hosts list is empty"))
	st := Status(err)
	assert.Equal(t, codes.FailedPrecondition, st.Code())
	assert.Equal(t, err.Error(), st.Message())

	assert.Equal(t, codes.Unknown, Status(io.EOF).Code())
	assert.Equal(t, codes.OK, Status(nil).Code())
}
