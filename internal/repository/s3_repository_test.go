package repository

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/stretchr/testify/require"
)

func TestIsNotFound(t *testing.T) {
	notFoundResponse := &awshttp.ResponseError{
		ResponseError: &smithyhttp.ResponseError{
			Response: &smithyhttp.Response{Response: &http.Response{StatusCode: http.StatusNotFound}},
			Err:      errors.New("not found"),
		},
	}
	forbiddenResponse := &awshttp.ResponseError{
		ResponseError: &smithyhttp.ResponseError{
			Response: &smithyhttp.Response{Response: &http.Response{StatusCode: http.StatusForbidden}},
			Err:      errors.New("forbidden"),
		},
	}

	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"typed not found", &types.NotFound{}, true},
		{"typed no such key", fmt.Errorf("get: %w", &types.NoSuchKey{}), true},
		{"api error code", &smithy.GenericAPIError{Code: "NotFound"}, true},
		{"bare 404", notFoundResponse, true},
		{"forbidden", forbiddenResponse, false},
		{"access denied", &smithy.GenericAPIError{Code: "AccessDenied"}, false},
		{"network", errors.New("dial tcp: connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, isNotFound(tt.err))
		})
	}
}

func TestEndpointURL(t *testing.T) {
	require.Equal(t, "http://localhost:9000", endpointURL("localhost:9000", false))
	require.Equal(t, "https://minio.internal", endpointURL("minio.internal", true))
	require.Equal(t, "https://s3.example.com", endpointURL("https://s3.example.com", false))
}
