/*
Copyright 2025 Rankito Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package model

import "math"

// BalanceScoreDivisor scales the coefficient of variation into the [0,1]
// balance score. Empirical tuning constant; keep as-is rather than
// re-deriving.
const BalanceScoreDivisor = 1.5

// BalancedCVThreshold is the coefficient-of-variation cutoff below which an
// account pool is considered balanced.
const BalancedCVThreshold = 0.5

// IntegrationLoad is one account's share of today's submission load.
type IntegrationLoad struct {
	AccountID string `json:"account_id"`
	Name      string `json:"name"`
	Health    string `json:"health"`
	UsedToday int    `json:"used_today"`
	Remaining int    `json:"remaining"`
}

// LoadDistribution is the diagnostic snapshot dashboards read to detect
// quota skew across a site's account pool. It does not itself rebalance;
// the scheduler's round-robin assignment is the balancing mechanism.
type LoadDistribution struct {
	SiteID       string            `json:"site_id"`
	Integrations []IntegrationLoad `json:"integrations"`
	TotalURLs    int               `json:"total_urls"`
	BalanceScore float64           `json:"balance_score"`
	IsBalanced   bool              `json:"is_balanced"`
}

// BalanceScore computes a 0-1 statistic summarizing how evenly usage is
// spread across an account pool, from today's per-account usage counts.
//
// The score is derived from the coefficient of variation (population stddev
// over mean), which is scale-invariant: scores are comparable across sites
// with different pool sizes or absolute volumes. Fewer than two accounts, or
// zero total usage, is trivially balanced.
func BalanceScore(usage []int) (score float64, balanced bool) {
	if len(usage) < 2 {
		return 1, true
	}

	total := 0
	for _, u := range usage {
		total += u
	}
	if total == 0 {
		return 1, true
	}

	mean := float64(total) / float64(len(usage))
	var variance float64
	for _, u := range usage {
		d := float64(u) - mean
		variance += d * d
	}
	variance /= float64(len(usage))

	cv := 0.0
	if mean > 0 {
		cv = math.Sqrt(variance) / mean
	}

	score = 1 - cv/BalanceScoreDivisor
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score, cv < BalancedCVThreshold
}
