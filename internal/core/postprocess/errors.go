package postprocess

import "errors"

var (
	ErrPassPending = errors.New("previous post-process pass has not completed")
	ErrClosed      = errors.New("processor is closed")
)
