//go:build !linux

package main

import (
	"errors"

	"github.com/itohio/xadcstream/pkg/config"
)

func openHardware(*config.Config) (*board, error) {
	return nil, errors.New("hardware access requires linux, run with -sim")
}
