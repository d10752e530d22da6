package stm

import "errors"

var RetryWithoutReadsErr = errors.New("transaction retried without reading any var, nothing could wake it")
