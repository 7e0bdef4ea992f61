// Package sector maps ticker symbols to coarse market sectors used for
// grouping, filtering and aggregate markers.
package sector

import (
	"sort"
	"strings"
)

// Other is returned for tickers missing from the table.
const Other = "Other"

// Sector identifiers.
const (
	Technology     = "Technology"
	Semiconductors = "Semiconductors"
	Finance        = "Finance"
	Consumer       = "Consumer"
	Healthcare     = "Healthcare"
	Energy         = "Energy"
	Industrials    = "Industrials"
	MediaTelco     = "MediaTelco"
	RealEstate     = "RealEstate"
	Utilities      = "Utilities"
	Indices        = "Indices"
)

var labels = map[string]string{
	Technology:     "Technology",
	Semiconductors: "Semiconductors",
	Finance:        "Finance",
	Consumer:       "Consumer",
	Healthcare:     "Healthcare",
	Energy:         "Energy",
	Industrials:    "Industrials",
	MediaTelco:     "Media & Telco",
	RealEstate:     "Real Estate",
	Utilities:      "Utilities",
	Indices:        "Market Indices",
	Other:          "Other",
}

// members lists tickers per sector; the lookup table is built from it once.
var members = map[string][]string{
	Technology: {
		"AAPL", "MSFT", "GOOGL", "GOOG", "META", "AMZN", "TSLA", "NFLX",
		"ORCL", "CRM", "ADBE", "CSCO", "ACN", "IBM", "NOW", "INTU",
		"PLTR", "U", "AI", "RBLX", "SNPS", "CDNS", "PANW", "CRWD",
		"FTNT", "ANET", "APH", "MSI", "COIN", "HOOD", "SQ", "PYPL",
		"MSTR", "IBIT", "MARA", "UPST", "SOFI", "AFRM", "DKNG",
	},
	Semiconductors: {
		"NVDA", "AMD", "AVGO", "QCOM", "INTC", "TSM", "ARM", "MU",
		"AMAT", "LRCX", "ADI", "KLAC", "TXN", "MRVL", "ON", "MCHP",
		"STM", "NXP", "SWKS", "QRVO", "MPWR", "TER", "SMH", "SOXL",
	},
	Consumer: {
		"WMT", "COST", "TGT", "HD", "LOW", "MCD", "SBUX", "NKE",
		"LULU", "CMG", "TJX", "ROST", "KO", "PEP", "PG", "PM",
		"MO", "EL", "CL", "KMB", "GIS", "KHC", "KR", "SYY",
		"STZ", "TSN", "HRL", "CAG", "F", "GM", "HMC", "TM",
		"BKNG", "ABNB", "MAR", "HLT", "RCL", "CCL", "NCLH", "MGM",
		"CZR", "WYNN", "LVS", "DHI", "LEN", "EBAY", "ETSY", "CHWY",
		"PTON", "GME", "AMC",
	},
	Finance: {
		"JPM", "BAC", "WFC", "C", "GS", "MS", "BLK", "SCHW",
		"AXP", "V", "MA", "BR", "BRK.B", "SPGI", "MCO", "PGR",
		"CB", "MMC", "AON", "USB", "PNC", "TFC", "COF", "DFS",
		"BK", "STT", "TROW", "ICE", "CME", "CBOE", "NDAQ", "AIG",
		"ALL", "TRV", "ARES",
	},
	Healthcare: {
		"LLY", "UNH", "JNJ", "ABBV", "MRK", "TMO", "ABT", "DHR",
		"PFE", "AMGN", "ISRG", "ELV", "VRTX", "REGN", "ZTS", "BSX",
		"BDX", "GILD", "HCA", "MCK", "CI", "HUM", "CVS", "BMY",
		"SYK", "EW", "MDT", "DXCM", "ILMN", "ALGN", "BIIB", "MRNA",
		"HIMS", "SOLV", "RVTY",
	},
	Industrials: {
		"CAT", "DE", "HON", "GE", "UNP", "UPS", "FDX", "RTX",
		"BA", "LMT", "NOC", "GD", "ADP", "ITW", "ETN", "WM",
		"MMM", "CSX", "NSC", "EMR", "PH", "PCAR", "CMI", "TT",
		"LHX", "TDG", "CARR", "OTIS", "DAL", "UAL", "AAL", "LUV",
		"RKLB", "SPCE", "LUNR", "ASTS",
		// Materials are folded into Industrials.
		"LIN", "SHW", "FCX", "APD", "NEM", "DOW", "DD", "PPG", "NUE", "AA",
	},
	Energy: {
		"XOM", "CVX", "COP", "SLB", "EOG", "MPC", "PSX", "VLO",
		"OXY", "HES", "KMI", "WMB", "BKR", "HAL", "DVN", "FANG",
		"MRO", "CTRA", "EQT", "TRGP", "OKE", "SHEL", "EQNR",
	},
	MediaTelco: {
		"DIS", "CMCSA", "TMUS", "VZ", "T", "CHTR", "WBD", "PARA",
		"FOXA", "FOX", "NWSA", "NWS", "OMC", "IPG", "LYV", "TTWO",
		"EA", "MTCH", "DJT", "RDDT",
	},
	RealEstate: {
		"PLD", "AMT", "EQIX", "CCI", "PSA", "O", "DLR", "SPG",
		"WELL", "VICI", "CSGP", "AVB", "EQR", "CBRE", "WY", "OPEN",
		"Z", "RDFN",
	},
	Utilities: {
		"NEE", "SO", "DUK", "SRE", "AEP", "D", "PEG", "EXC",
		"XEL", "ED", "EIX", "WEC", "ES", "ETR", "PPL", "FE",
		"CMS", "AWK", "VST", "CEG", "NRG", "GEV",
	},
	Indices: {
		"SPY", "QQQ", "IWM", "DIA", "VTI", "VOO", "GLD", "SLV",
		"USO", "UNG", "TLT", "HYG", "VIXY", "UVXY",
	},
}

var byTicker = func() map[string]string {
	m := make(map[string]string, 400)
	for id, tickers := range members {
		for _, t := range tickers {
			m[t] = id
		}
	}
	return m
}()

// Resolve returns the sector id for ticker, or Other if unknown. Lookup is
// case-insensitive.
func Resolve(ticker string) string {
	if id, ok := byTicker[ticker]; ok {
		return id
	}
	if id, ok := byTicker[strings.ToUpper(strings.TrimSpace(ticker))]; ok {
		return id
	}
	return Other
}

// Label returns the display name of a sector id, echoing unknown ids.
func Label(id string) string {
	if l, ok := labels[id]; ok {
		return l
	}
	return id
}

// IDs returns every known sector id (including Other) in sorted order.
func IDs() []string {
	ids := make([]string, 0, len(labels))
	for id := range labels {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Tickers returns the tickers mapped to id, sorted.
func Tickers(id string) []string {
	out := append([]string(nil), members[id]...)
	sort.Strings(out)
	return out
}
