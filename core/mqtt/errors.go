package mqtt

import "errors"

// ErrPublish is returned once every publish attempt has failed.
var ErrPublish = errors.New("mqtt publish failed")
