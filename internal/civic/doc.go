// Package civic defines the domain types shared by the election guide: district
// types, geocoded locations, spreadsheet records, race types, news headlines,
// and the saved-session payloads handed back to the browser.
package civic
