package bridge

import (
	"strings"

	"github.com/pkg/errors"
)

// PauseCategory is one independently pausable class of operations.
type PauseCategory uint8

const (
	PauseDeployToken PauseCategory = iota
	PauseTransferIn
	PauseTransferOutToken
	PauseTransferOutNative
	PauseDepositOutToken
	PauseDepositOutNative

	numPauseCategories
)

var pauseCategoryNames = [numPauseCategories]string{
	"deploy_token",
	"transfer_in",
	"transfer_out_token",
	"transfer_out_native",
	"deposit_out_token",
	"deposit_out_native",
}

func (c PauseCategory) String() string {
	if c >= numPauseCategories {
		return "unknown"
	}
	return pauseCategoryNames[c]
}

func ParsePauseCategory(s string) (PauseCategory, error) {
	for i, name := range pauseCategoryNames {
		if strings.EqualFold(name, s) {
			return PauseCategory(i), nil
		}
	}
	return 0, errors.Errorf("unknown pause category %q", s)
}

// AllPauseCategories lists the closed enumeration in bit order.
func AllPauseCategories() []PauseCategory {
	all := make([]PauseCategory, 0, numPauseCategories)
	for c := PauseCategory(0); c < numPauseCategories; c++ {
		all = append(all, c)
	}
	return all
}

// PauseMask is a set of paused categories. A category is either fully
// paused or fully active.
type PauseMask uint8

const pauseMaskAll = PauseMask(1<<numPauseCategories - 1)

func NewPauseMask(categories ...PauseCategory) PauseMask {
	var m PauseMask
	for _, c := range categories {
		m |= 1 << c
	}
	return m
}

func (m PauseMask) Has(c PauseCategory) bool {
	return c < numPauseCategories && m&(1<<c) != 0
}

func (m PauseMask) Valid() bool {
	return m&^pauseMaskAll == 0
}

func (m PauseMask) Categories() []PauseCategory {
	var cs []PauseCategory
	for c := PauseCategory(0); c < numPauseCategories; c++ {
		if m.Has(c) {
			cs = append(cs, c)
		}
	}
	return cs
}

func (m PauseMask) Names() []string {
	names := []string{}
	for _, c := range m.Categories() {
		names = append(names, c.String())
	}
	return names
}

func (m PauseMask) all(cs ...PauseCategory) bool {
	for _, c := range cs {
		if !m.Has(c) {
			return false
		}
	}
	return true
}

// inboundHalted must hold before the light client or relay address change.
func (m PauseMask) inboundHalted() bool {
	return m.all(PauseTransferIn)
}

// depositOutHalted must hold before the relay chain id changes.
func (m PauseMask) depositOutHalted() bool {
	return m.all(PauseDepositOutToken, PauseDepositOutNative)
}

// outboundHalted must hold before the local chain id changes.
func (m PauseMask) outboundHalted() bool {
	return m.all(PauseTransferOutToken, PauseTransferOutNative, PauseDepositOutToken, PauseDepositOutNative)
}

// fullyHalted must hold before a code upgrade.
func (m PauseMask) fullyHalted() bool {
	return m&pauseMaskAll == pauseMaskAll
}

func checkNotPaused(m PauseMask, c PauseCategory) error {
	if m.Has(c) {
		return errors.Wrapf(ErrOperationPaused, "%s is paused", c)
	}
	return nil
}
