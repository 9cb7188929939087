package memutils

import "github.com/cockroachdb/errors"

// PowerOfTwoError is the error returned from CheckPow2 or other methods if the number being tested is not a power of two
var PowerOfTwoError error = errors.New("number must be a power of two")

// AlignmentError is returned from CheckAlignment when a value is not a multiple of the requested alignment
var AlignmentError error = errors.New("value is not a multiple of the alignment")
