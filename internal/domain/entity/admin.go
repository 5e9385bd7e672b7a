package entity

import "strings"

// RegionScope is one (region, optional business unit) assignment. An empty
// SBUCode covers every business unit in the region.
type RegionScope struct {
	RegionCode string `json:"region_code"`
	SBUCode    string `json:"sbu_code,omitempty"`
}

// Admin is a reviewer. Authority is always computed from Role and Regions at
// the moment of an action and never stored on a form.
type Admin struct {
	ID         int64         `json:"id"`
	Name       string        `json:"name"`
	Email      string        `json:"email"`
	LarkOpenID string        `json:"lark_open_id,omitempty"`
	Role       Role          `json:"role"`
	Regions    []RegionScope `json:"regions,omitempty"`
}

// HasRegion reports whether any assignment names regionCode, ignoring SBU
func (a *Admin) HasRegion(regionCode string) bool {
	for _, r := range a.Regions {
		if strings.EqualFold(r.RegionCode, regionCode) {
			return true
		}
	}
	return false
}

// RegionFilter restricts a directory listing to admins whose scope covers a
// form's region, and its business unit when SBUCode is set.
type RegionFilter struct {
	RegionCode string
	SBUCode    string
	// MatchSBU applies the coordinator business-unit rule instead of a
	// region-only match.
	MatchSBU bool
}
