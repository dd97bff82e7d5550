package cloud

import (
	"errors"

	aprtypes "github.com/aws/aws-sdk-go-v2/service/apprunner/types"
	"github.com/aws/smithy-go"
)

// ErrNotFound is returned when the requested external object, or the part of
// it we need, does not exist yet.
var ErrNotFound = errors.New("not found")

// ErrorCode returns the AWS API error code carried by err, or "" when err did
// not come from an AWS API.
func ErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

// IsBindingNotFound reports whether App Runner rejected a call because the
// service or the custom domain no longer exists.
func IsBindingNotFound(err error) bool {
	var rnf *aprtypes.ResourceNotFoundException
	return errors.As(err, &rnf)
}
