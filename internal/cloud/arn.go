package cloud

import "strings"

// IsCertificateARN reports whether id is shaped like an ACM certificate ARN.
func IsCertificateARN(id string) bool {
	return hasARNService(id, "acm")
}

// IsAppRunnerARN reports whether id is shaped like an App Runner ARN.
func IsAppRunnerARN(id string) bool {
	return hasARNService(id, "apprunner")
}

// hasARNService matches arn:<partition>:<service>:... in any partition.
func hasARNService(id, service string) bool {
	parts := strings.SplitN(id, ":", 4)
	return len(parts) == 4 && parts[0] == "arn" && strings.HasPrefix(parts[1], "aws") && parts[2] == service
}
