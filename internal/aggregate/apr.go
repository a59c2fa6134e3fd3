package aggregate

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"oceanbot/internal/model"
)

const (
	yearDuration     = 365 * 24 * time.Hour
	DefaultBlockTime = 3 * time.Second
)

// BlocksPerYear is the number of blocks produced in 365 days at blockTime.
func BlocksPerYear(blockTime time.Duration) float64 {
	if blockTime <= 0 {
		blockTime = DefaultBlockTime
	}
	return float64(yearDuration / blockTime)
}

// TVL is the USD value of the staked deposit tokens.
func TVL(totalStaked decimal.Decimal, depositPrice float64) float64 {
	if depositPrice <= 0 || totalStaked.Sign() <= 0 {
		return 0
	}
	tvl, _ := totalStaked.Mul(decimal.NewFromFloat(depositPrice)).Float64()
	return tvl
}

// APR is 100 * blocksPerYear * rewardPerBlock * rewardPrice divided by
// totalStaked * depositPrice. It is 0 whenever the denominator is.
func APR(blocksPerYear float64, rewardPerBlock decimal.Decimal, rewardPrice float64, totalStaked decimal.Decimal, depositPrice float64) float64 {
	if depositPrice <= 0 || totalStaked.Sign() <= 0 {
		return 0
	}
	rate, _ := rewardPerBlock.Float64()
	staked, _ := totalStaked.Float64()
	apr := 100 * blocksPerYear * rate * rewardPrice / (staked * depositPrice)
	if math.IsNaN(apr) || math.IsInf(apr, 0) {
		return 0
	}
	return apr
}

// ProjectAPR estimates the APR after depositing delta more tokens:
// apr + (-apr / (1 + totalStaked/delta)).
func ProjectAPR(info model.OceanInfo, delta float64) float64 {
	if delta <= 0 || info.APR == 0 {
		return info.APR
	}
	staked, _ := info.TotalStaked.Float64()
	projected := info.APR + (-info.APR / (1 + staked/delta))
	if math.IsNaN(projected) || math.IsInf(projected, 0) {
		return info.APR
	}
	return projected
}
