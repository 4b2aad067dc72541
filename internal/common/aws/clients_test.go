// internal/common/aws/clients_test.go
package aws

import "review-responder/internal/notify"

// The notifier consumes the wrappers through its service interfaces, so the
// wrapper methods must keep the SDK's variadic option signatures.
var (
	_ notify.SESService = (*SESClient)(nil)
	_ notify.SNSService = (*SNSClient)(nil)
)
