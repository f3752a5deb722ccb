package errors

import sterrors "errors"

var (
	ErrServiceRequired      = sterrors.New("irisflow: pipeline service is required")
	ErrHandlerRequired      = sterrors.New("irisflow: handler function is required")
	ErrHandlerNameRequired  = sterrors.New("irisflow: handler name is required")
	ErrConsumeTopicRequired = sterrors.New("irisflow: consume topic is required")
	ErrPublisherRequired    = sterrors.New("irisflow: publisher is required")
	ErrTopicRequired        = sterrors.New("irisflow: topic is required")
	ErrScorerRequired       = sterrors.New("irisflow: scoring client is required")
	ErrSinkRequired         = sterrors.New("irisflow: sink writer is required")
	ErrPayloadRequired      = sterrors.New("irisflow: message payload is required")
)
