package usecase

import (
	"errors"
	"fmt"
)

var (
	ErrStatusFeed = errors.New("status feed error")
	ErrMetaStore  = errors.New("metadata store error")
)

func wrapFeed(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrStatusFeed, err)
}

func wrapStore(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrMetaStore, err)
}
