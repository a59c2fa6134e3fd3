package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// UserState is the conversational state of a chat user.
type UserState uint8

const (
	StateIdle UserState = iota
	StateAwaitingWalletAddress
)

func (s UserState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingWalletAddress:
		return "awaiting_wallet"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

func (s UserState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *UserState) UnmarshalText(text []byte) error {
	switch string(text) {
	case "", "idle":
		*s = StateIdle
	case "awaiting_wallet":
		*s = StateAwaitingWalletAddress
	default:
		return fmt.Errorf("unknown user state %q", string(text))
	}
	return nil
}

// UserProfile is the per-chat record. It is created lazily and never deleted.
type UserProfile struct {
	ID                 int64      `json:"id"`
	Wallet             string     `json:"wallet,omitempty"`
	State              UserState  `json:"state"`
	Positions          []Position `json:"positions,omitempty"`
	PositionsUpdatedAt int64      `json:"positionsUpdatedAt,omitempty"`
}

// Position is a user's stake in one ocean, derived from userInfo.
type Position struct {
	Pool         string          `json:"pool"`
	Name         string          `json:"name"`
	DepositToken string          `json:"depositToken"`
	Staked       decimal.Decimal `json:"staked"`
	ValueUSD     float64         `json:"valueUsd"`
}
