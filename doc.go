// Package main implements cf-pick, a CLI tool that picks Codeforces problems
// none of a group of users has attempted yet, one per requested rating.
//
// # Features
//
//   - Submission history aggregated across several handles
//   - Rating, contest year and contest exclusion filters
//   - Distinct-contest, distinct-tag and per-tag cap constraints
//   - Reproducible picks with a fixed seed
//   - Throttled, multi-host API access with retries and challenge-page detection
//   - Optional browser cookie export and IPv4-preferring transport
//
// # Usage
//
//	cf-pick pick [--config PATH] [--seed N] [--verbose]
//
// # Configuration
//
// Configuration is loaded from a JSON (or TOML) file given by --config,
// the CF_PICK_CONFIG environment variable, or cf_pick.json in the current
// directory. A minimal config:
//
//	{
//	  "handles": ["tourist", "Petr"],
//	  "ratings": [1200, 1200, 1500],
//	  "year_min": 2019,
//	  "year_max": 2024,
//	  "distinct_contest": true
//	}
package main
