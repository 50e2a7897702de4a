package providers

import (
	"context"
	"errors"
	"fmt"
)

// errorResponse maps a vendor/transport failure into a terminal ChatResponse.
// Deadline expiry becomes "timeout", everything else "error".
func errorResponse(provider string, err error) *ChatResponse {
	reason := FinishError
	if errors.Is(err, context.DeadlineExceeded) {
		reason = FinishTimeout
	}
	return &ChatResponse{
		Content:      fmt.Sprintf("%s error: %v", provider, err),
		FinishReason: reason,
	}
}
