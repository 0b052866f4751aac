package sign

import "errors"

var (
	ErrUnsupportedMethod  = errors.New("unsupported signature method")
	ErrSignatureMismatch  = errors.New("signature mismatch")
	ErrContentMD5Mismatch = errors.New("content md5 mismatch")
)
