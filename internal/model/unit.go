package model

// Unit is a marketplace listing as stored in the latest-listings collection.
type Unit struct {
	ID         string   `json:"id"`
	Image      string   `json:"image"`
	Class      string   `json:"class"`
	Name       string   `json:"name"`
	Genes      string   `json:"genes"`
	Owner      string   `json:"owner"`
	Stage      int      `json:"stage"`
	Title      string   `json:"title"`
	BreedCount int      `json:"breed_count"`
	Level      int      `json:"level"`
	Parts      []Part   `json:"parts"`
	Stats      Stats    `json:"stats"`
	Auction    *Auction `json:"auction,omitempty"`
}

// RecordID returns the unit identity.
func (u Unit) RecordID() string { return u.ID }

// Part is one body part of a unit.
type Part struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Class        string    `json:"class"`
	Type         string    `json:"type"`
	SpecialGenes string    `json:"special_genes,omitempty"`
	Stage        int       `json:"stage"`
	Abilities    []Ability `json:"abilities"`
}

// Ability is a battle card attached to a part.
type Ability struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Attack        int    `json:"attack"`
	Defense       int    `json:"defense"`
	Energy        int    `json:"energy"`
	Description   string `json:"description"`
	BackgroundURL string `json:"background_url"`
	EffectIconURL string `json:"effect_icon_url"`
}

// Stats holds the four base stats. All fields are required.
type Stats struct {
	HP     int `json:"hp"`
	Speed  int `json:"speed"`
	Skill  int `json:"skill"`
	Morale int `json:"morale"`
}

// Auction is present only while a unit is listed for sale.
type Auction struct {
	StartingPrice     string `json:"starting_price"`
	EndingPrice       string `json:"ending_price"`
	StartingTimestamp string `json:"starting_timestamp"`
	EndingTimestamp   string `json:"ending_timestamp"`
	Duration          string `json:"duration"`
	TimeLeft          string `json:"time_left"`
	CurrentPrice      string `json:"current_price"`
	CurrentPriceUSD   string `json:"current_price_usd"`
	SuggestedPrice    string `json:"suggested_price"`
	Seller            string `json:"seller"`
	ListingIndex      int    `json:"listing_index"`
	State             string `json:"state"`
}
