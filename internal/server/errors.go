package server

import "errors"

var (
	errNoHTTPAddress = errors.New("no http listen address configured")
)
