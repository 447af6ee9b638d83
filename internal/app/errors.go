package service

import "errors"

// Sentinel errors returned by Start.
var (
	ErrStart   = errors.New("service start failed")
	ErrStarted = errors.New("service already started")
)
