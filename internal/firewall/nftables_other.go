// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build !linux

package firewall

import (
	"grimm.is/scanwall/internal/errors"
	"grimm.is/scanwall/internal/logging"
)

// NFTables is unavailable off Linux; every call reports OutcomeToolMissing.
type NFTables struct{}

func NewNFTables(string, *logging.Logger) *NFTables {
	return &NFTables{}
}

func (*NFTables) Block(string) (Outcome, error) {
	return toolMissing(BackendNFTables, errors.New(errors.KindUnavailable, "nftables requires linux"))
}
