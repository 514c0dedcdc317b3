// Package domain models wet-deposition records from a precipitation chemistry
// monitoring station and the arithmetic that turns them into nitrogen
// deposition totals.
//
// # Data Source
//
// Records come from a station network that publishes three tables per site:
// weekly samples, monthly precipitation-weighted means and annual
// precipitation-weighted means. Each row carries the precipitation depth,
// ion concentrations in mg/L and a per-analyte flag column. The loader adapter
// turns every row into a [RawRecord]; [ParseRawRecord] produces a [Reading].
//
// # Network Conventions
//
// Calendar keys:
//
//	weekly, monthly: "yrmonth" as a combined YYYYMM integer, e.g. 201803.
//	annual:          "yr" as a four-digit year.
//	weekly rows may also carry "dateon"/"dateoff" sample start and end times.
//
// Precipitation units:
//
//	weekly:          millimetres
//	monthly, annual: centimetres
//
// Sentinel codes:
//
//	-9     generic missing value (any analyte or criteria column)
//	-9.99  missing precipitation
//	-7     trace precipitation (weekly only), recorded as 0.051 mm
//
// Any other negative number is not a valid observation and fails the parse.
//
// Flags:
//
//	"<" in flagNH4 / flagNO3 marks a value below the method detection limit.
//	Every other code is treated as uncensored.
//
// Annual criteria:
//
//	Criteria1  percentage of the period with valid samples      (>= 75)
//	Criteria2  percentage of the period with precipitation data (>= 90)
//	Criteria3  percentage of precipitation with valid samples   (>= 75)
//
// # Unit Arithmetic
//
// Concentrations are mapped to nitrogen equivalents with fixed molar-mass
// ratios and rescaled from mg/L to kg/m³ (factor 1e-3). Deposition in kg/ha is
// concentration × precipitation depth × period factor, where the factor is 10
// for millimetres and 100 for centimetres:
//
//	kg/m³ × (P mm × 1e-3 m) × 1e4 m²/ha = P × 10
//	kg/m³ × (P cm × 1e-2 m) × 1e4 m²/ha = P × 100
//
// # ID Generation
//
// Reading IDs are deterministic SHA-256 hashes of
// granularity|station|year|month|dateon so repeated runs over the same files
// publish identical keys downstream. Weekly rows without a dateon use
// source:line in its place. See [generateID].
package domain
