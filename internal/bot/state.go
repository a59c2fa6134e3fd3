package bot

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"

	oberr "oceanbot/internal/errors"
	"oceanbot/internal/model"
)

// beginWalletEntry moves the user to AwaitingWalletAddress.
func beginWalletEntry(user *model.UserProfile) {
	user.State = model.StateAwaitingWalletAddress
}

// cancel returns the user to Idle without touching the wallet.
func cancel(user *model.UserProfile) {
	user.State = model.StateIdle
}

// completeWalletEntry validates input and, when it is an address, stores it
// and returns the user to Idle. Invalid input leaves the profile unchanged.
func completeWalletEntry(user *model.UserProfile, input string) error {
	input = strings.TrimSpace(input)
	if !common.IsHexAddress(input) {
		return oberr.New(oberr.CodeInvalidUserInput, "invalid wallet address")
	}
	user.Wallet = common.HexToAddress(input).Hex()
	user.State = model.StateIdle
	return nil
}

// unlinkWallet clears the wallet and its derived positions.
func unlinkWallet(user *model.UserProfile) {
	user.Wallet = ""
	user.Positions = nil
	user.PositionsUpdatedAt = 0
	user.State = model.StateIdle
}
