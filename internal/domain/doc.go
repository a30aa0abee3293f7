// Package domain parses National Weather Service (NWS) alert text, matches
// alerts to service orders by county, and lays the result out as a
// multi-sheet report.
//
// # Data Source
//
// Active alerts come from the NWS Atom feed at
// https://api.weather.gov/alerts/active.atom. Each entry carries a title,
// an updated timestamp and a plain-text summary. Only those three fields are
// used; the CAP extension elements are ignored.
//
// # NWS Data Conventions
//
// Title format:
//
//	"<event> issued <time> until <time> by NWS <office> <ST>"
//	e.g. "Flood Warning issued April 26 at 3:15AM CDT until April 27 by NWS Jackson MS"
//	The last two characters are the issuing office's state code. Titles whose
//	suffix is not a monitored state are marked [StateUnknown].
//
// Summary format:
//
//	* WHAT...Heavy rain expected.
//	* WHERE...Jefferson, Hinds and Rankin Counties.
//	* WHEN...Until 5 PM CDT this afternoon.
//	* IMPACTS...Flooding of rivers, creeks and streams.
//
//	Six markers are recognised: WHAT, WHERE, WHEN, IMPACTS, ADDITIONAL DETAILS
//	and INSTRUCTIONS. Continuation lines are joined with a single space. The
//	text after the marker is kept verbatim, including the "..." NWS puts after
//	the keyword.
//
// Updated format:
//
//	ISO-8601, normally "2025-04-26T03:15:00-05:00". A trailing "Z" is UTC.
//	Values that do not parse are kept as-is for display.
//
// # County Matching
//
// An order matches an alert when the order's county appears anywhere in the
// alert's WHERE text, ignoring case. The first alert in feed order wins. The
// test is deliberately loose: NWS WHERE text lists counties in prose
// ("portions of east central Mississippi, including Lee County") and a
// false positive only means an order is flagged for a possible delay.
//
// # Report Layout
//
// A report holds an "Alert Summary MM-DD-YYYY" sheet followed by one sheet
// per client, or a "No_Matches" placeholder when nothing matched. Sheet names
// are limited to 31 characters and must be unique ignoring case; see
// [BuildReport].
package domain
