package model

import "github.com/shopspring/decimal"

// OceanBase is one entry of the ocean listing API.
type OceanBase struct {
	Name                string `json:"name"`
	DepositToken        string `json:"depositToken"`
	EarningToken        string `json:"earningToken"`
	Address             string `json:"address"`
	DepositTokenAddress string `json:"depositTokenAddress"`
	EarningTokenAddress string `json:"earningTokenAddress"`
	Active              bool   `json:"active"`
}

// Ocean is a listed pool enriched with its on-chain reward window.
// Offsets are relative to the chain height observed during the refresh.
type Ocean struct {
	OceanBase
	StartBlock       uint64          `json:"startBlock"`
	EndBlock         uint64          `json:"bonusEndBlock"`
	StartOffset      int64           `json:"startOffset"`
	EndOffset        int64           `json:"endOffset"`
	RewardPerBlock   decimal.Decimal `json:"rewardPerBlock"`
	RewardsRemaining decimal.Decimal `json:"rewardsRemaining"`
}

// InWindow reports whether the observed height lies strictly between the
// start and end blocks.
func (o Ocean) InWindow() bool {
	return o.StartOffset < 0 && o.EndOffset > 0
}

// OceanInfo is an Ocean with staking totals, prices, TVL and APR.
type OceanInfo struct {
	Ocean
	TotalStaked       decimal.Decimal `json:"totalStaked"`
	DepositTokenPrice float64         `json:"depositTokenPrice"`
	RewardTokenPrice  float64         `json:"rewardTokenPrice"`
	TVL               float64         `json:"tvl"`
	APR               float64         `json:"apr"`
}

// FetchState is the advisory refresh-in-progress marker shared by all
// instances through the store. Since is unix seconds.
type FetchState struct {
	Fetching bool  `json:"fetching"`
	Since    int64 `json:"since"`
}

// TokenMeta is the ERC20 metadata the bot reads once per token.
type TokenMeta struct {
	Address  string `json:"address"`
	Decimals uint8  `json:"decimals"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
}
