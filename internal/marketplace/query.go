package marketplace

import "encoding/json"

// SortBy is the listings sort key understood by the marketplace.
type SortBy string

const (
	SortLatest    SortBy = "Latest"
	SortPriceAsc  SortBy = "PriceAsc"
	SortPriceDesc SortBy = "PriceDesc"
	SortIDAsc     SortBy = "IdAsc"
	SortIDDesc    SortBy = "IdDesc"
)

// AuctionType filters listings by sale state.
type AuctionType string

const (
	AuctionAll        AuctionType = "All"
	AuctionSale       AuctionType = "Sale"
	AuctionNotForSale AuctionType = "NotForSale"
)

// Criteria is the search filter of the listings query. Empty fields are
// left out of the variables.
type Criteria struct {
	Classes    []string `json:"classes,omitempty"`
	Parts      []string `json:"parts,omitempty"`
	BreedCount []int    `json:"breedCount,omitempty"`
	Pureness   []int    `json:"pureness,omitempty"`
	Stages     []int    `json:"stages,omitempty"`
	NumMystic  []int    `json:"numMystic,omitempty"`
	Region     string   `json:"region,omitempty"`
}

// ListingsParams are the pagination and filter inputs of the listings query.
type ListingsParams struct {
	From        int         `json:"from"`
	Size        int         `json:"size"`
	Sort        SortBy      `json:"sort,omitempty"`
	AuctionType AuctionType `json:"auctionType,omitempty"`
	Criteria    *Criteria   `json:"criteria,omitempty"`
}

// DefaultListingsParams returns the first page of latest sales.
func DefaultListingsParams() ListingsParams {
	return ListingsParams{
		From:        0,
		Size:        24,
		Sort:        SortLatest,
		AuctionType: AuctionSale,
	}
}

// Document is a GraphQL request body.
type Document struct {
	Name      string `json:"-"`
	Query     string `json:"query"`
	Variables any    `json:"variables"`
}

// Body encodes the document as the {query, variables} JSON payload.
// Identical documents always encode to identical bytes.
func (d Document) Body() ([]byte, error) {
	return json.Marshal(d)
}

type detailVariables struct {
	AxieID string `json:"axieId"`
}

type pageVariables struct {
	From int `json:"from"`
	Size int `json:"size"`
}

// ListingsQuery builds the latest-listings query.
func ListingsQuery(p ListingsParams) Document {
	return Document{Name: "GetAxieLatest", Query: listingsQuery, Variables: p}
}

// DetailQuery builds the single-unit detail query.
func DetailQuery(id string) Document {
	return Document{Name: "GetAxieDetail", Query: detailQuery, Variables: detailVariables{AxieID: id}}
}

// RecentlySoldQuery builds the recently-settled sales query.
func RecentlySoldQuery(from, size int) Document {
	return Document{Name: "GetRecentlyAxiesSold", Query: recentlySoldQuery, Variables: pageVariables{From: from, Size: size}}
}

const abilityFields = `
          id
          name
          attack
          defense
          energy
          description
          backgroundUrl
          effectIconUrl`

const partFields = `
        id
        name
        class
        type
        specialGenes
        stage
        abilities {` + abilityFields + `
        }`

const statsFields = `
        hp
        speed
        skill
        morale`

const auctionFields = `
        startingPrice
        endingPrice
        startingTimestamp
        endingTimestamp
        duration
        timeLeft
        currentPrice
        currentPriceUSD
        suggestedPrice
        seller
        listingIndex
        state`

const listingsQuery = `query GetAxieLatest($auctionType: AuctionType, $criteria: AxieSearchCriteria, $from: Int, $sort: SortBy, $size: Int, $owner: String) {
  axies(auctionType: $auctionType, criteria: $criteria, from: $from, sort: $sort, size: $size, owner: $owner) {
    total
    results {
      id
      image
      class
      name
      genes
      owner
      stage
      title
      breedCount
      level
      parts {` + partFields + `
      }
      stats {` + statsFields + `
      }
      auction {` + auctionFields + `
      }
    }
  }
}
`

const detailQuery = `query GetAxieDetail($axieId: ID!) {
  axie(axieId: $axieId) {
    id
    image
    class
    chain
    name
    genes
    owner
    birthDate
    bodyShape
    sireId
    sireClass
    matronId
    matronClass
    stage
    title
    breedCount
    level
    stats {` + statsFields + `
    }
    auction {` + auctionFields + `
    }
    ownerProfile {
      name
    }
    battleInfo {
      banned
      banUntil
      level
    }
    children {
      id
      name
      class
      image
      title
      stage
    }
    parts {` + partFields + `
    }
  }
}
`

const recentlySoldQuery = `query GetRecentlyAxiesSold($from: Int, $size: Int) {
  settledAuctions {
    axies(from: $from, size: $size) {
      total
      results {
        id
        name
        image
        class
        breedCount
        transferHistory {
          total
          results {
            timestamp
            withPrice
            withPriceUsd
          }
        }
      }
    }
  }
}
`
